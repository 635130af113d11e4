// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package protocol

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/sassembedded/host/varint"
)

type tag byte

const (
	tagCompileRequest tag = iota + 1
	tagCompileResponse
	tagVersionRequest
	tagVersionResponse
	tagCanonicalizeRequest
	tagCanonicalizeResponse
	tagImportRequest
	tagImportResponse
	tagFileImportRequest
	tagFileImportResponse
	tagFunctionCallRequest
	tagLogEvent
	tagProtocolError
)

// writer accumulates a message body before it is handed to the host
// process's framed writer.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) byte(b byte) {
	w.buf.WriteByte(b)
}

func (w *writer) uint32(v uint32) {
	_ = varint.WriteUvarint(&w.buf, uint64(v))
}

func (w *writer) bool(b bool) {
	if b {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *writer) string(s string) {
	_ = varint.WriteUvarint(&w.buf, uint64(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) span(s *SpanData) {
	if s == nil {
		w.bool(false)
		return
	}
	w.bool(true)
	w.string(s.Text)
	w.string(s.URL)
	w.uint32(s.StartLine)
	w.uint32(s.StartColumn)
	w.uint32(s.EndLine)
	w.uint32(s.EndColumn)
	w.string(s.Context)
}

// reader parses a message body previously produced by writer, reading
// from the in-memory buffer handed to it by the process's frame reader.
type reader struct {
	r *bufio.Reader
}

func newReader(body []byte) *reader {
	return &reader{r: bufio.NewReader(bytes.NewReader(body))}
}

func (r *reader) byte() (byte, error) {
	return r.r.ReadByte()
}

func (r *reader) uint32() (uint32, error) {
	v, err := varint.ReadUvarint(r.r)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func (r *reader) bool() (bool, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (r *reader) string() (string, error) {
	n, err := varint.ReadUvarint(r.r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (r *reader) span() (*SpanData, error) {
	present, err := r.bool()
	if err != nil || !present {
		return nil, err
	}
	s := &SpanData{}
	if s.Text, err = r.string(); err != nil {
		return nil, err
	}
	if s.URL, err = r.string(); err != nil {
		return nil, err
	}
	if s.StartLine, err = r.uint32(); err != nil {
		return nil, err
	}
	if s.StartColumn, err = r.uint32(); err != nil {
		return nil, err
	}
	if s.EndLine, err = r.uint32(); err != nil {
		return nil, err
	}
	if s.EndColumn, err = r.uint32(); err != nil {
		return nil, err
	}
	if s.Context, err = r.string(); err != nil {
		return nil, err
	}
	return s, nil
}

// MarshalInbound encodes a message the host is about to send to the
// compiler.
func MarshalInbound(msg InboundMessage) ([]byte, error) {
	w := &writer{}

	switch m := msg.(type) {
	case *CompileRequest:
		w.byte(byte(tagCompileRequest))
		w.uint32(m.ID)
		w.string(m.Path)
		w.string(m.Source)
		w.string(m.SourceSyntax)
		w.string(m.SourceURL)
		w.uint32(uint32(len(m.Importers)))
		for _, imp := range m.Importers {
			w.uint32(imp.ImporterID)
			w.byte(byte(imp.Kind))
		}
		w.string(m.Style)
		w.bool(m.SourceMap)
		w.bool(m.SourceMapIncludeSources)
		w.bool(m.Charset)
		w.bool(m.QuietDeps)
		w.bool(m.Verbose)
		w.bool(m.AlertColor)
		w.bool(m.AlertAscii)

	case *VersionRequest:
		w.byte(byte(tagVersionRequest))
		w.uint32(m.ID)

	case *CanonicalizeResponse:
		w.byte(byte(tagCanonicalizeResponse))
		w.uint32(m.ID)
		w.uint32(m.CompilationID)
		w.string(m.URL)
		w.string(m.Error)

	case *ImportResponse:
		w.byte(byte(tagImportResponse))
		w.uint32(m.ID)
		w.uint32(m.CompilationID)
		w.string(m.Contents)
		w.string(m.Syntax)
		w.string(m.SourceMapURL)
		w.string(m.Error)

	case *FileImportResponse:
		w.byte(byte(tagFileImportResponse))
		w.uint32(m.ID)
		w.uint32(m.CompilationID)
		w.string(m.FileURL)
		w.string(m.Error)

	default:
		return nil, fmt.Errorf("protocol: unsupported inbound message %T", msg)
	}

	return w.buf.Bytes(), nil
}

// MarshalOutbound encodes a message as the compiler would send it to the
// host. Production code never calls this; it exists so tests can drive a
// fake compiler process without duplicating the wire format.
func MarshalOutbound(msg OutboundMessage) ([]byte, error) {
	w := &writer{}

	switch m := msg.(type) {
	case *CompileResponse:
		w.byte(byte(tagCompileResponse))
		w.uint32(m.ID)
		w.bool(m.Failure == nil)
		if m.Failure == nil {
			w.string(m.CSS)
			w.string(m.SourceMap)
			w.uint32(uint32(len(m.LoadedURLs)))
			for _, u := range m.LoadedURLs {
				w.string(u)
			}
		} else {
			w.string(m.Failure.Message)
			w.string(m.Failure.FormattedMessage)
			w.string(m.Failure.StackTrace)
			w.span(m.Failure.Span)
		}

	case *VersionResponse:
		w.byte(byte(tagVersionResponse))
		w.uint32(m.ID)
		w.string(m.ProtocolVersion)
		w.string(m.CompilerVersion)
		w.string(m.ImplementationVersion)
		w.string(m.ImplementationName)

	case *CanonicalizeRequest:
		w.byte(byte(tagCanonicalizeRequest))
		w.uint32(m.ID)
		w.uint32(m.CompilationID)
		w.uint32(m.ImporterID)
		w.string(m.URL)
		w.bool(m.FromImport)
		w.string(m.ContainingURL)

	case *ImportRequest:
		w.byte(byte(tagImportRequest))
		w.uint32(m.ID)
		w.uint32(m.CompilationID)
		w.uint32(m.ImporterID)
		w.string(m.URL)

	case *FileImportRequest:
		w.byte(byte(tagFileImportRequest))
		w.uint32(m.ID)
		w.uint32(m.CompilationID)
		w.uint32(m.ImporterID)
		w.string(m.URL)
		w.bool(m.FromImport)
		w.string(m.ContainingURL)

	case *FunctionCallRequest:
		w.byte(byte(tagFunctionCallRequest))
		w.uint32(m.ID)
		w.uint32(m.CompilationID)
		w.string(m.Name)

	case *LogEvent:
		w.byte(byte(tagLogEvent))
		w.uint32(m.CompilationID)
		w.byte(byte(m.Kind))
		w.string(m.Message)
		w.string(m.Formatted)
		w.span(m.Span)
		w.string(m.StackTrace)

	case *ProtocolError:
		w.byte(byte(tagProtocolError))
		w.uint32(m.ID)
		w.byte(byte(m.Kind))
		w.string(m.Message)

	default:
		return nil, fmt.Errorf("protocol: unsupported outbound message %T", msg)
	}

	return w.buf.Bytes(), nil
}

// UnmarshalInbound decodes a message as the compiler would receive it
// from the host. Production code never calls this; it exists so tests
// can assert on what a fake compiler observed.
func UnmarshalInbound(body []byte) (InboundMessage, error) {
	r := newReader(body)

	t, err := r.byte()
	if err != nil {
		return nil, fmt.Errorf("protocol: read tag: %w", err)
	}

	switch tag(t) {
	case tagCompileRequest:
		m := &CompileRequest{}
		if m.ID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.Path, err = r.string(); err != nil {
			return nil, err
		}
		if m.Source, err = r.string(); err != nil {
			return nil, err
		}
		if m.SourceSyntax, err = r.string(); err != nil {
			return nil, err
		}
		if m.SourceURL, err = r.string(); err != nil {
			return nil, err
		}
		n, err := r.uint32()
		if err != nil {
			return nil, err
		}
		m.Importers = make([]ImporterRef, n)
		for i := range m.Importers {
			if m.Importers[i].ImporterID, err = r.uint32(); err != nil {
				return nil, err
			}
			kind, err := r.byte()
			if err != nil {
				return nil, err
			}
			m.Importers[i].Kind = ImporterKind(kind)
		}
		if m.Style, err = r.string(); err != nil {
			return nil, err
		}
		if m.SourceMap, err = r.bool(); err != nil {
			return nil, err
		}
		if m.SourceMapIncludeSources, err = r.bool(); err != nil {
			return nil, err
		}
		if m.Charset, err = r.bool(); err != nil {
			return nil, err
		}
		if m.QuietDeps, err = r.bool(); err != nil {
			return nil, err
		}
		if m.Verbose, err = r.bool(); err != nil {
			return nil, err
		}
		if m.AlertColor, err = r.bool(); err != nil {
			return nil, err
		}
		if m.AlertAscii, err = r.bool(); err != nil {
			return nil, err
		}
		return m, nil

	case tagVersionRequest:
		m := &VersionRequest{}
		if m.ID, err = r.uint32(); err != nil {
			return nil, err
		}
		return m, nil

	case tagCanonicalizeResponse:
		m := &CanonicalizeResponse{}
		if m.ID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.CompilationID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.URL, err = r.string(); err != nil {
			return nil, err
		}
		if m.Error, err = r.string(); err != nil {
			return nil, err
		}
		return m, nil

	case tagImportResponse:
		m := &ImportResponse{}
		if m.ID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.CompilationID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.Contents, err = r.string(); err != nil {
			return nil, err
		}
		if m.Syntax, err = r.string(); err != nil {
			return nil, err
		}
		if m.SourceMapURL, err = r.string(); err != nil {
			return nil, err
		}
		if m.Error, err = r.string(); err != nil {
			return nil, err
		}
		return m, nil

	case tagFileImportResponse:
		m := &FileImportResponse{}
		if m.ID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.CompilationID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.FileURL, err = r.string(); err != nil {
			return nil, err
		}
		if m.Error, err = r.string(); err != nil {
			return nil, err
		}
		return m, nil

	default:
		return nil, fmt.Errorf("protocol: unknown inbound tag %d", t)
	}
}

// UnmarshalOutbound decodes a message the compiler has sent to the host.
func UnmarshalOutbound(body []byte) (OutboundMessage, error) {
	r := newReader(body)

	t, err := r.byte()
	if err != nil {
		return nil, fmt.Errorf("protocol: read tag: %w", err)
	}

	switch tag(t) {
	case tagCompileResponse:
		m := &CompileResponse{}
		if m.ID, err = r.uint32(); err != nil {
			return nil, err
		}
		ok, err := r.bool()
		if err != nil {
			return nil, err
		}
		if ok {
			if m.CSS, err = r.string(); err != nil {
				return nil, err
			}
			if m.SourceMap, err = r.string(); err != nil {
				return nil, err
			}
			n, err := r.uint32()
			if err != nil {
				return nil, err
			}
			m.LoadedURLs = make([]string, n)
			for i := range m.LoadedURLs {
				if m.LoadedURLs[i], err = r.string(); err != nil {
					return nil, err
				}
			}
		} else {
			f := &CompileFailure{}
			if f.Message, err = r.string(); err != nil {
				return nil, err
			}
			if f.FormattedMessage, err = r.string(); err != nil {
				return nil, err
			}
			if f.StackTrace, err = r.string(); err != nil {
				return nil, err
			}
			if f.Span, err = r.span(); err != nil {
				return nil, err
			}
			m.Failure = f
		}
		return m, nil

	case tagVersionResponse:
		m := &VersionResponse{}
		if m.ID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.ProtocolVersion, err = r.string(); err != nil {
			return nil, err
		}
		if m.CompilerVersion, err = r.string(); err != nil {
			return nil, err
		}
		if m.ImplementationVersion, err = r.string(); err != nil {
			return nil, err
		}
		if m.ImplementationName, err = r.string(); err != nil {
			return nil, err
		}
		return m, nil

	case tagCanonicalizeRequest:
		m := &CanonicalizeRequest{}
		if m.ID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.CompilationID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.ImporterID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.URL, err = r.string(); err != nil {
			return nil, err
		}
		if m.FromImport, err = r.bool(); err != nil {
			return nil, err
		}
		if m.ContainingURL, err = r.string(); err != nil {
			return nil, err
		}
		return m, nil

	case tagImportRequest:
		m := &ImportRequest{}
		if m.ID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.CompilationID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.ImporterID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.URL, err = r.string(); err != nil {
			return nil, err
		}
		return m, nil

	case tagFileImportRequest:
		m := &FileImportRequest{}
		if m.ID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.CompilationID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.ImporterID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.URL, err = r.string(); err != nil {
			return nil, err
		}
		if m.FromImport, err = r.bool(); err != nil {
			return nil, err
		}
		if m.ContainingURL, err = r.string(); err != nil {
			return nil, err
		}
		return m, nil

	case tagFunctionCallRequest:
		m := &FunctionCallRequest{}
		if m.ID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.CompilationID, err = r.uint32(); err != nil {
			return nil, err
		}
		if m.Name, err = r.string(); err != nil {
			return nil, err
		}
		return m, nil

	case tagLogEvent:
		m := &LogEvent{}
		if m.CompilationID, err = r.uint32(); err != nil {
			return nil, err
		}
		kind, err := r.byte()
		if err != nil {
			return nil, err
		}
		m.Kind = LogEventKind(kind)
		if m.Message, err = r.string(); err != nil {
			return nil, err
		}
		if m.Formatted, err = r.string(); err != nil {
			return nil, err
		}
		if m.Span, err = r.span(); err != nil {
			return nil, err
		}
		if m.StackTrace, err = r.string(); err != nil {
			return nil, err
		}
		return m, nil

	case tagProtocolError:
		m := &ProtocolError{}
		if m.ID, err = r.uint32(); err != nil {
			return nil, err
		}
		kind, err := r.byte()
		if err != nil {
			return nil, err
		}
		m.Kind = ProtocolErrorKind(kind)
		if m.Message, err = r.string(); err != nil {
			return nil, err
		}
		return m, nil

	default:
		return nil, fmt.Errorf("protocol: unknown outbound tag %d", t)
	}
}
