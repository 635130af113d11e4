// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package sass

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/sassembedded/host/internal/protocol"
)

// Importer resolves and loads stylesheets the compiler cannot find on
// its own (for example @use "pkg:bootstrap"). Canonicalize turns a
// dependency URL into a canonical one the compiler can cache against;
// Load returns the contents the canonical URL refers to.
//
// Both methods may be called concurrently, from the Dispatcher's reader
// goroutine, for any compilation using this Importer; they must not
// block on another compilation's progress.
type Importer interface {
	Canonicalize(url string, fromImport bool, containingURL string) (string, error)
	Load(canonicalURL string) (ImportResult, error)
}

// FileImporter resolves a dependency URL to a file: URL that the
// compiler reads itself, rather than returning the stylesheet's
// contents directly.
type FileImporter interface {
	FindFileURL(url string, fromImport bool, containingURL string) (*url.URL, error)
}

// ImportResult is the content an Importer loaded for a canonical URL.
type ImportResult struct {
	Contents string
	Syntax   Syntax

	// SourceMapURL is the URL contents should be attributed to in a
	// source map, if different from the canonical URL. Nil if not
	// applicable.
	SourceMapURL *url.URL
}

// importerRegistry assigns a stable id to each Importer/FileImporter a
// caller supplied for one compilation, and dispatches the compiler's
// canonicalize/import/file_import requests back to them by id.
//
// Registration order matters: the compiler tries importers in the order
// they were registered, falling through to the next on a "could not
// resolve" result, so the registry must preserve it.
type importerRegistry struct {
	mu sync.Mutex

	entries []protocol.ImporterRef
	full    map[uint32]Importer
	file    map[uint32]FileImporter
	nextID  uint32
}

func newImporterRegistry(importers []any, loadPaths []string) (*importerRegistry, error) {
	r := &importerRegistry{
		full: make(map[uint32]Importer),
		file: make(map[uint32]FileImporter),
	}

	for _, imp := range importers {
		if err := r.register(imp); err != nil {
			return nil, err
		}
	}
	for _, path := range loadPaths {
		if err := r.register(loadPathImporter(path)); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *importerRegistry) register(imp any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++

	switch v := imp.(type) {
	case Importer:
		r.full[id] = v
		r.entries = append(r.entries, protocol.ImporterRef{ImporterID: id, Kind: protocol.ImporterKindFull})
	case FileImporter:
		r.file[id] = v
		r.entries = append(r.entries, protocol.ImporterRef{ImporterID: id, Kind: protocol.ImporterKindFile})
	default:
		return fmt.Errorf("sass: %T is neither an Importer nor a FileImporter", imp)
	}

	return nil
}

func (r *importerRegistry) refs() []protocol.ImporterRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.ImporterRef, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *importerRegistry) canonicalize(id uint32, rawURL string, fromImport bool, containingURL string) (string, error) {
	r.mu.Lock()
	imp, ok := r.full[id]
	r.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("sass: no full Importer registered with id %d", id)
	}
	return imp.Canonicalize(rawURL, fromImport, containingURL)
}

func (r *importerRegistry) load(id uint32, canonicalURL string) (ImportResult, error) {
	r.mu.Lock()
	imp, ok := r.full[id]
	r.mu.Unlock()
	if !ok {
		return ImportResult{}, fmt.Errorf("sass: no full Importer registered with id %d", id)
	}
	return imp.Load(canonicalURL)
}

func (r *importerRegistry) findFileURL(id uint32, rawURL string, fromImport bool, containingURL string) (*url.URL, error) {
	r.mu.Lock()
	imp, ok := r.file[id]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("sass: no FileImporter registered with id %d", id)
	}
	return imp.FindFileURL(rawURL, fromImport, containingURL)
}

// loadPathImporter adapts a plain filesystem load path (as configured via
// Options.LoadPaths) into a FileImporter, matching the compiler's own
// built-in handling of load paths as a degenerate importer appended
// after every explicit one. FindFileURL joins the directory and the URL
// without checking that the file exists.
type loadPathImporter string

func (p loadPathImporter) FindFileURL(rawURL string, fromImport bool, containingURL string) (*url.URL, error) {
	return &url.URL{Scheme: "file", Path: string(p) + "/" + rawURL}, nil
}
