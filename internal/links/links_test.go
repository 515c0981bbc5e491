package links

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", `# Doc
[good](docs/guide.md)
[site](https://example.com/page) and [mail](mailto:x@example.com)
[frag](#section) and [phone](tel:123)
`)
	writeFile(t, root, "docs/guide.md", "[up](../README.md)\n")
	writeFile(t, root, "notes.txt", "[ignored](nowhere.md)\n")
	writeFile(t, root, ".git/objects.md", "[skipped](nowhere.md)\n")

	local, external, files, err := Scan(root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if files != 2 {
		t.Fatalf("expected 2 markdown files, got %d", files)
	}
	if len(local) != 2 {
		t.Fatalf("expected 2 local links, got %v", local)
	}
	if len(external) != 1 || external[0].Target != "https://example.com/page" {
		t.Fatalf("expected 1 external link, got %v", external)
	}
	if local[0].File != "README.md" || local[0].Line != 2 {
		t.Fatalf("unexpected link position: %+v", local[0])
	}
}

func TestCheckLocal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "x")
	writeFile(t, root, "docs/guide.md", "x")

	links := []Link{
		{File: "README.md", Line: 1, Target: "docs/guide.md"},
		{File: "docs/guide.md", Line: 1, Target: "../README.md"},
		{File: "docs/guide.md", Line: 2, Target: "/README.md"},
		{File: "docs/guide.md", Line: 3, Target: "guide.md#section"},
		{File: "README.md", Line: 2, Target: "missing.md"},
		{File: "docs/guide.md", Line: 4, Target: "/missing/deep.md"},
	}

	broken := CheckLocal(root, links)
	if len(broken) != 2 {
		t.Fatalf("expected 2 broken links, got %v", broken)
	}
	for _, b := range broken {
		if b.Reason != "target does not exist" {
			t.Fatalf("unexpected reason: %q", b.Reason)
		}
	}
}

func TestNormalizeTarget(t *testing.T) {
	tests := []struct {
		raw, want string
	}{
		{" docs/guide.md ", "docs/guide.md"},
		{"<docs/guide.md>", "docs/guide.md"},
		{"docs/my%20file.md", "docs/my file.md"},
		{"#fragment", "#fragment"},
	}
	for _, tt := range tests {
		if got := normalizeTarget(tt.raw); got != tt.want {
			t.Fatalf("normalize %q: expected %q, got %q", tt.raw, tt.want, got)
		}
	}
}

func TestCheckExternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			fmt.Fprint(w, "fine")
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><h2 id="install">Install</h2><a name="legacy"></a></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	checker := NewExternalChecker(100, 10, 5*time.Second)
	links := []Link{
		{File: "README.md", Line: 1, Target: srv.URL + "/ok"},
		{File: "README.md", Line: 2, Target: srv.URL + "/page#install"},
		{File: "README.md", Line: 3, Target: srv.URL + "/page#legacy"},
		{File: "README.md", Line: 4, Target: srv.URL + "/page#nope"},
		{File: "README.md", Line: 5, Target: srv.URL + "/gone"},
	}

	broken, err := checker.CheckExternal(context.Background(), links)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(broken) != 2 {
		t.Fatalf("expected 2 broken links, got %v", broken)
	}
	reasons := map[string]string{}
	for _, b := range broken {
		reasons[b.Target] = b.Reason
	}
	if reasons[srv.URL+"/page#nope"] != "anchor #nope not found" {
		t.Fatalf("expected anchor failure, got %v", reasons)
	}
	if reasons[srv.URL+"/gone"] != "HTTP 404" {
		t.Fatalf("expected 404 failure, got %v", reasons)
	}
}

func TestCheckExternalContextCancel(t *testing.T) {
	// a limiter that never admits forces Wait to observe cancellation
	checker := NewExternalChecker(0.0001, 1, time.Second)
	checker.Limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := checker.CheckExternal(ctx, []Link{{Target: "https://example.com"}})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
