// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package sass

import (
	"fmt"
	"net/url"

	"github.com/sassembedded/host/internal/protocol"
)

// Compile runs a single compilation of the stylesheet at path against
// ch, blocking until the compiler responds.
func (ch *Channel) Compile(path string, opts Options) (CompileResult, error) {
	importers, err := newImporterRegistry(opts.Importers, opts.LoadPaths)
	if err != nil {
		return CompileResult{}, err
	}
	loggers := newLoggerRegistry(opts.Logger)

	c, err := ch.connect(importers, loggers)
	if err != nil {
		return CompileResult{}, err
	}
	defer c.disconnect()

	req := &protocol.CompileRequest{
		Path:                    path,
		Importers:               importers.refs(),
		Style:                   opts.Style.String(),
		SourceMap:               opts.SourceMap,
		SourceMapIncludeSources: opts.SourceMapIncludeSources,
		Charset:                 opts.Charset,
		QuietDeps:               opts.QuietDeps,
		Verbose:                 opts.Verbose,
		AlertColor:              ResolveAlertColor(opts.AlertColor),
		AlertAscii:              opts.AlertAscii,
	}

	resp, err := c.compileRequest(req)
	if err != nil {
		return CompileResult{}, err
	}

	return compileResultFromResponse(resp)
}

// CompileString runs a single compilation of source, held in memory
// rather than read from disk, against ch.
func (ch *Channel) CompileString(source string, opts StringOptions) (CompileResult, error) {
	importers, err := newImporterRegistry(opts.Importers, opts.LoadPaths)
	if err != nil {
		return CompileResult{}, err
	}
	loggers := newLoggerRegistry(opts.Logger)

	c, err := ch.connect(importers, loggers)
	if err != nil {
		return CompileResult{}, err
	}
	defer c.disconnect()

	syntax := opts.Syntax
	if syntax == "" {
		syntax = SyntaxSCSS
	}

	req := &protocol.CompileRequest{
		Source:                  source,
		SourceSyntax:            string(syntax),
		SourceURL:               opts.URL,
		Importers:               importers.refs(),
		Style:                   opts.Style.String(),
		SourceMap:               opts.SourceMap,
		SourceMapIncludeSources: opts.SourceMapIncludeSources,
		Charset:                 opts.Charset,
		QuietDeps:               opts.QuietDeps,
		Verbose:                 opts.Verbose,
		AlertColor:              ResolveAlertColor(opts.AlertColor),
		AlertAscii:              opts.AlertAscii,
	}

	resp, err := c.compileRequest(req)
	if err != nil {
		return CompileResult{}, err
	}

	return compileResultFromResponse(resp)
}

// Info reports the compiler's own identification of itself, via the
// protocol's version handshake.
func (ch *Channel) Info() (VersionInfo, error) {
	importers, _ := newImporterRegistry(nil, nil)
	loggers := newLoggerRegistry(nil)

	c, err := ch.connect(importers, loggers)
	if err != nil {
		return VersionInfo{}, err
	}
	defer c.disconnect()

	resp, err := c.versionRequest()
	if err != nil {
		return VersionInfo{}, err
	}

	return VersionInfo{
		ProtocolVersion:       resp.ProtocolVersion,
		CompilerVersion:       resp.CompilerVersion,
		ImplementationVersion: resp.ImplementationVersion,
		ImplementationName:    resp.ImplementationName,
	}, nil
}

func compileResultFromResponse(resp *protocol.CompileResponse) (CompileResult, error) {
	if resp.Failure != nil {
		exc := &Exception{
			Message:     resp.Failure.FormattedMessage,
			SassMessage: resp.Failure.Message,
			SassStack:   resp.Failure.StackTrace,
		}
		if resp.Failure.Span != nil {
			s := resp.Failure.Span
			exc.Span = &SourceSpan{
				Text:        s.Text,
				URL:         s.URL,
				StartLine:   int(s.StartLine),
				StartColumn: int(s.StartColumn),
				EndLine:     int(s.EndLine),
				EndColumn:   int(s.EndColumn),
				Context:     s.Context,
			}
		}
		return CompileResult{}, exc
	}

	loadedURLs := make([]*url.URL, len(resp.LoadedURLs))
	for i, raw := range resp.LoadedURLs {
		u, err := url.Parse(raw)
		if err != nil {
			return CompileResult{}, &ProtocolError{Message: fmt.Sprintf("malformed loaded URL %q: %v", raw, err)}
		}
		loadedURLs[i] = u
	}

	return CompileResult{
		CSS:        resp.CSS,
		LoadedURLs: loadedURLs,
		SourceMap:  resp.SourceMap,
	}, nil
}
