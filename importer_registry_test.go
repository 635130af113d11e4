package sass

import (
	"net/url"
	"testing"

	"github.com/sassembedded/host/internal/protocol"
)

type fakeImporter struct {
	canonical string
	canonErr  error
	contents  ImportResult
	loadErr   error
}

func (f *fakeImporter) Canonicalize(rawURL string, fromImport bool, containingURL string) (string, error) {
	return f.canonical, f.canonErr
}

func (f *fakeImporter) Load(canonicalURL string) (ImportResult, error) {
	return f.contents, f.loadErr
}

type fakeFileImporter struct {
	fileURL *url.URL
	err     error
}

func (f *fakeFileImporter) FindFileURL(rawURL string, fromImport bool, containingURL string) (*url.URL, error) {
	return f.fileURL, f.err
}

func TestImporterRegistryRegistersInOrder(t *testing.T) {
	r, err := newImporterRegistry([]any{
		&fakeImporter{},
		&fakeFileImporter{},
	}, []string{"/vendor/styles"})
	if err != nil {
		t.Fatalf("newImporterRegistry: %v", err)
	}

	refs := r.refs()
	if len(refs) != 3 {
		t.Fatalf("got %d importer refs, want 3", len(refs))
	}
	if refs[0].Kind != protocol.ImporterKindFull {
		t.Errorf("refs[0].Kind = %v, want full", refs[0].Kind)
	}
	if refs[1].Kind != protocol.ImporterKindFile {
		t.Errorf("refs[1].Kind = %v, want file", refs[1].Kind)
	}
	if refs[2].Kind != protocol.ImporterKindFile {
		t.Errorf("refs[2] (the load path) Kind = %v, want file", refs[2].Kind)
	}
	if refs[0].ImporterID >= refs[1].ImporterID || refs[1].ImporterID >= refs[2].ImporterID {
		t.Errorf("importer ids did not preserve registration order: %+v", refs)
	}
}

func TestImporterRegistryRejectsUnknownType(t *testing.T) {
	if _, err := newImporterRegistry([]any{"not an importer"}, nil); err == nil {
		t.Fatal("expected an error registering a non-Importer value")
	}
}

func TestImporterRegistryCanonicalizeRoutesByID(t *testing.T) {
	imp := &fakeImporter{canonical: "file:///pkg/_index.scss"}
	r, err := newImporterRegistry([]any{imp}, nil)
	if err != nil {
		t.Fatalf("newImporterRegistry: %v", err)
	}

	got, err := r.canonicalize(0, "pkg:bootstrap", false, "stdin:")
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if got != "file:///pkg/_index.scss" {
		t.Errorf("canonicalize = %q", got)
	}
}

func TestImporterRegistryCanonicalizeUnknownID(t *testing.T) {
	r, err := newImporterRegistry(nil, nil)
	if err != nil {
		t.Fatalf("newImporterRegistry: %v", err)
	}

	if _, err := r.canonicalize(42, "pkg:bootstrap", false, ""); err == nil {
		t.Fatal("expected an error for an unregistered importer id")
	}
}

func TestFileImporterNonFileURLIsRejected(t *testing.T) {
	httpURL, _ := url.Parse("https://example.com/style.scss")
	r, err := newImporterRegistry([]any{&fakeFileImporter{fileURL: httpURL}}, nil)
	if err != nil {
		t.Fatalf("newImporterRegistry: %v", err)
	}

	d, fc := newTestDispatcher()
	c, err := connect(d, r, newLoggerRegistry(nil))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	// The fake process's stdin is an io.Pipe, so the reply blocks until
	// fc.recv reads it; answer from another goroutine.
	go c.handleFileImport(&protocol.FileImportRequest{ID: 1, CompilationID: c.id, ImporterID: 0, URL: "pkg:bootstrap"})

	resp, err := fc.recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	fir, ok := resp.(*protocol.FileImportResponse)
	if !ok {
		t.Fatalf("got %T, want *protocol.FileImportResponse", resp)
	}
	if fir.Error == "" {
		t.Error("expected an Error for a FileImporter that returned a non-file: URL")
	}
}
