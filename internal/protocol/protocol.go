// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

// Package protocol defines the Go-native shape of the Embedded Sass
// Protocol's messages and a binary codec for them.
//
// In a production build these types and their marshalling are generated
// from a versioned .proto schema. That generator is not available here,
// so this package hand-rolls the subset of the schema this host actually
// exercises: one concrete struct per message variant, tagged with a
// single leading byte, with a minimal Write/Read codec built on top of
// the varint package for every variable-length field. No consumer of
// package sass imports this package directly.
package protocol

// GlobalErrorID is the reserved compilation id carried by a ProtocolError
// that is not correlated with any particular compilation, and also the
// id value a Dispatcher's allocator uses to mark itself poisoned.
const GlobalErrorID uint32 = 0xFFFFFFFF

// InboundMessage is a message the host sends to the compiler.
type InboundMessage interface {
	inboundMessage()
}

// OutboundMessage is a message the compiler sends to the host.
type OutboundMessage interface {
	outboundMessage()
}

// ImporterKind distinguishes a full Importer, which canonicalizes and
// loads stylesheets itself, from a FileImporter, which only resolves a
// file: URL for the compiler to read.
type ImporterKind uint8

const (
	ImporterKindFull ImporterKind = iota
	ImporterKindFile
)

// ImporterRef is how a CompileRequest tells the compiler about one of the
// host's registered importers, keyed by the id the host assigned it in
// the ImporterRegistry.
type ImporterRef struct {
	ImporterID uint32
	Kind       ImporterKind
}

// SpanData is a source span as reported by the compiler.
type SpanData struct {
	Text        string
	URL         string
	StartLine   uint32
	StartColumn uint32
	EndLine     uint32
	EndColumn   uint32
	Context     string
}

// CompileRequest starts a compilation. Exactly one of Path or Source is
// populated, matching whether the caller invoked Compile or
// CompileString.
type CompileRequest struct {
	ID uint32

	Path string

	Source       string
	SourceSyntax string // "scss", "sass", or "css"
	SourceURL    string

	Importers []ImporterRef

	Style                   string
	SourceMap               bool
	SourceMapIncludeSources bool
	Charset                 bool
	QuietDeps               bool
	Verbose                 bool
	AlertColor              bool
	AlertAscii              bool
}

func (*CompileRequest) inboundMessage() {}

// CompileFailure is the payload of a CompileResponse reporting a Sass
// compile error.
type CompileFailure struct {
	Message          string
	FormattedMessage string
	StackTrace       string
	Span             *SpanData
}

// CompileResponse answers a CompileRequest. Failure is nil on success.
type CompileResponse struct {
	ID uint32

	CSS        string
	SourceMap  string
	LoadedURLs []string

	Failure *CompileFailure
}

func (*CompileResponse) outboundMessage() {}

// VersionRequest asks the compiler to identify itself.
type VersionRequest struct {
	ID uint32
}

func (*VersionRequest) inboundMessage() {}

// VersionResponse answers a VersionRequest.
type VersionResponse struct {
	ID uint32

	ProtocolVersion       string
	CompilerVersion       string
	ImplementationVersion string
	ImplementationName    string
}

func (*VersionResponse) outboundMessage() {}

// CanonicalizeRequest asks a full Importer to resolve a dependency URL to
// a canonical one.
type CanonicalizeRequest struct {
	ID            uint32
	CompilationID uint32
	ImporterID    uint32
	URL           string
	FromImport    bool
	ContainingURL string
}

func (*CanonicalizeRequest) outboundMessage() {}

// CanonicalizeResponse answers a CanonicalizeRequest. Error is non-empty
// on failure, in which case URL is ignored.
type CanonicalizeResponse struct {
	ID            uint32
	CompilationID uint32
	URL           string
	Error         string
}

func (*CanonicalizeResponse) inboundMessage() {}

// ImportRequest asks a full Importer to load the contents of a URL it
// previously canonicalized.
type ImportRequest struct {
	ID            uint32
	CompilationID uint32
	ImporterID    uint32
	URL           string
}

func (*ImportRequest) outboundMessage() {}

// ImportResponse answers an ImportRequest. Error is non-empty on
// failure.
type ImportResponse struct {
	ID            uint32
	CompilationID uint32
	Contents      string
	Syntax        string
	SourceMapURL  string
	Error         string
}

func (*ImportResponse) inboundMessage() {}

// FileImportRequest asks a FileImporter to resolve a dependency URL to a
// file: URL the compiler can read itself.
type FileImportRequest struct {
	ID            uint32
	CompilationID uint32
	ImporterID    uint32
	URL           string
	FromImport    bool
	ContainingURL string
}

func (*FileImportRequest) outboundMessage() {}

// FileImportResponse answers a FileImportRequest. Error is non-empty on
// failure; otherwise FileURL must have a "file:" scheme.
type FileImportResponse struct {
	ID            uint32
	CompilationID uint32
	FileURL       string
	Error         string
}

func (*FileImportResponse) inboundMessage() {}

// FunctionCallRequest asks the host to evaluate a registered custom Sass
// function. Global function callbacks are out of scope for this host, so
// receiving one is a fatal protocol error.
type FunctionCallRequest struct {
	ID            uint32
	CompilationID uint32
	Name          string
}

func (*FunctionCallRequest) outboundMessage() {}

// LogEventKind distinguishes a @debug rule from a warning, and a
// deprecation warning from an ordinary @warn.
type LogEventKind uint8

const (
	LogEventDebug LogEventKind = iota
	LogEventWarning
	LogEventDeprecationWarning
)

// LogEvent reports a @warn or @debug rule encountered during compilation.
type LogEvent struct {
	CompilationID uint32
	Kind          LogEventKind
	Message       string
	Formatted     string
	Span          *SpanData
	StackTrace    string
}

func (*LogEvent) outboundMessage() {}

// ProtocolErrorKind classifies a ProtocolError.
type ProtocolErrorKind uint8

const (
	ProtocolErrorParse ProtocolErrorKind = iota
	ProtocolErrorParams
	ProtocolErrorInternal
)

// ProtocolError is the wire "Error" variant: the compiler's report that
// it could not make sense of a message the host sent. ID is
// GlobalErrorID when the compiler could not associate the error with any
// particular request.
type ProtocolError struct {
	ID      uint32
	Kind    ProtocolErrorKind
	Message string
}

func (*ProtocolError) outboundMessage() {}
