// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package sass

import (
	"net/url"
	"os"

	"golang.org/x/term"
)

// Style controls how the compiler formats generated CSS.
type Style int

const (
	// StyleExpanded prints each selector and declaration on its own line.
	StyleExpanded Style = iota
	// StyleCompressed removes all unnecessary whitespace.
	StyleCompressed
)

func (s Style) String() string {
	switch s {
	case StyleExpanded:
		return "expanded"
	case StyleCompressed:
		return "compressed"
	default:
		return "unknown"
	}
}

// Syntax identifies which of the three Sass source syntaxes a string of
// source text is written in.
type Syntax string

const (
	SyntaxSCSS Syntax = "scss"
	SyntaxSass Syntax = "sass"
	SyntaxCSS  Syntax = "css"
)

// Options configures a single call to Compile. The zero value is not
// directly usable; build one from DefaultOptions so Charset defaults to
// true, matching the compiler's own default.
//
// This is a plain struct, not a fluent builder: that ergonomics layer is
// out of scope for this host, which only needs to express every field
// the protocol's CompileRequest carries.
type Options struct {
	// ExePath names a compiler executable. Compile and CompileString do
	// not read it: they always run against the compiler the Channel was
	// created with by NewChannel.
	ExePath string

	// LoadPaths are directories, registered in order after every
	// explicit Importer, for stylesheets load rules reference by URL.
	// Each one maps any URL to a file: URL under that directory without
	// checking that the file exists, so it never defers to a later load
	// path.
	LoadPaths []string

	// Importers are consulted, in registration order, to resolve
	// dependencies the compiler cannot find on its own. Each element
	// must implement Importer or FileImporter.
	Importers []any

	// Logger receives @warn and @debug events for this compilation. If
	// nil, events are printed to stderr.
	Logger Logger

	Style                   Style
	SourceMap               bool
	SourceMapIncludeSources bool
	Charset                 bool
	QuietDeps               bool
	Verbose                 bool

	// AlertColor controls whether compiler-formatted errors and
	// warnings are colorized. Nil means: colorize exactly when this
	// process's own stdout is a terminal, matching the compiler's own
	// default.
	AlertColor *bool

	AlertAscii bool
}

// ResolveAlertColor reports whether compiler-formatted output should be
// colorized for the given Options.AlertColor preference: pref itself if
// set, otherwise whether this process's stdout is a terminal.
func ResolveAlertColor(pref *bool) bool {
	if pref != nil {
		return *pref
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// DefaultOptions returns the Options the compiler itself would assume in
// the absence of any explicit configuration.
func DefaultOptions() Options {
	return Options{Charset: true}
}

// StringOptions configures a call to CompileString, which compiles
// in-memory source text rather than a file on disk.
type StringOptions struct {
	Options

	// Syntax is the syntax Source is written in.
	Syntax Syntax

	// URL is the canonical URL to attribute Source to, for error
	// messages, source maps and relative load resolution. May be empty.
	URL string
}

// DefaultStringOptions returns the StringOptions the compiler itself
// would assume, with Syntax defaulting to SCSS.
func DefaultStringOptions() StringOptions {
	return StringOptions{Options: DefaultOptions(), Syntax: SyntaxSCSS}
}

// CompileResult is the successful outcome of a compilation.
type CompileResult struct {
	// CSS is the generated stylesheet.
	CSS string

	// LoadedURLs are the canonical URLs of every stylesheet that
	// contributed to CSS, including the entrypoint itself, in the order
	// the compiler first loaded them.
	LoadedURLs []*url.URL

	// SourceMap is the generated source map, as JSON text. Empty unless
	// Options.SourceMap was set.
	SourceMap string
}

// VersionInfo identifies the compiler backing a Channel, as reported by
// its own version handshake.
type VersionInfo struct {
	ProtocolVersion       string
	CompilerVersion       string
	ImplementationVersion string
	ImplementationName    string
}
