package links

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opencheck/opencheck/internal/suite"
)

func TestSuiteLocalFailureGates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "[broken](missing.md)\n")

	s := &Suite{}
	res, err := s.Run(context.Background(), &suite.Target{Root: root})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.OK {
		t.Fatal("broken local link must fail the suite")
	}
	if res.Failed() != 1 {
		t.Fatalf("expected 1 failure, got %d", res.Failed())
	}
}

func TestSuiteExternalBrokenIsAdvisory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	root := t.TempDir()
	writeFile(t, root, "README.md", "[remote]("+srv.URL+"/gone)\n")

	s := &Suite{External: NewExternalChecker(100, 10, 5*time.Second)}
	res, err := s.Run(context.Background(), &suite.Target{Root: root, ExternalLinks: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.OK {
		t.Fatal("broken external link must stay advisory")
	}
	if res.Warned() != 1 {
		t.Fatalf("expected 1 warning, got %d", res.Warned())
	}
}

func TestSuiteSkipsExternalWhenDisabled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "[remote](https://nowhere.invalid/gone)\n")

	s := &Suite{}
	res, err := s.Run(context.Background(), &suite.Target{Root: root})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.OK || res.Warned() != 0 {
		t.Fatal("external links must be ignored unless enabled")
	}
}
