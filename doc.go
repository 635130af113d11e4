// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sass drives an out-of-process Sass compiler that speaks the
// Embedded Sass Protocol: a length-delimited, multiplexed request/response
// protocol carried over the child process's stdin and stdout.
//
// The primary elements of interest are:
//
//  *  Compile and CompileString, which run a single compilation against a
//     shared Channel.
//
//  *  Options and StringOptions, which configure a compilation.
//
//  *  Importer and FileImporter, which a host implements to resolve
//     stylesheet dependencies that the compiler cannot find on its own.
//
//  *  Logger, which a host implements to receive @warn/@debug events.
//
// A Channel owns the compiler subprocess and the Dispatcher multiplexing
// it; it respawns both automatically if the protocol ever reaches an
// unrecoverable state. Host callbacks (importers, loggers) run
// synchronously on the Dispatcher's reader goroutine and must not block
// on progress of another compilation.
package sass
