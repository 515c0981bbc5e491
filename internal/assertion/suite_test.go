package assertion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencheck/opencheck/internal/document"
	"github.com/opencheck/opencheck/internal/suite"
)

func writeConfig(t *testing.T, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "opencode.json")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSuiteRun(t *testing.T) {
	s := &Suite{}
	res, err := s.Run(context.Background(), &suite.Target{ConfigPath: writeConfig(t, goodConfig)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !res.OK {
		t.Fatal("expected passing result")
	}
	if len(res.Findings) != len(Canonical()) {
		t.Fatalf("expected %d findings, got %d", len(Canonical()), len(res.Findings))
	}
	// advisory findings carry the warn flag so the renderer and the exit
	// code treat them as non-gating
	warned := 0
	for _, f := range res.Findings {
		if f.Warn {
			warned++
		}
	}
	if warned != 2 {
		t.Fatalf("expected 2 advisory findings, got %d", warned)
	}
	if len(res.Summary) == 0 {
		t.Fatal("expected summary lines")
	}
}

func TestSuiteNamesAdvisoryEntries(t *testing.T) {
	cfg := `{
		"permission": {
			"bash": "deny", "edit": "deny", "write": "deny",
			"patch": "deny", "multiedit": "deny", "todowrite": "deny"
		},
		"agent": {"orchestrator": {}},
		"tool": {"question": {}},
		"provider": {"openai": {}, "anthropic": {}},
		"mcp": {"toolkit": {}}
	}`

	s := &Suite{}
	res, err := s.Run(context.Background(), &suite.Target{ConfigPath: writeConfig(t, cfg)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	details := make(map[string]string)
	for _, f := range res.Findings {
		details[f.ID] = f.Detail
	}
	if details["provider-present"] != "configured: anthropic, openai" {
		t.Fatalf("expected sorted provider entries, got %q", details["provider-present"])
	}
	if details["mcp-present"] != "configured: toolkit" {
		t.Fatalf("expected mcp entries, got %q", details["mcp-present"])
	}
	// required findings never carry the entry listing
	if details["bash-denied"] != "" {
		t.Fatalf("unexpected detail on required finding: %q", details["bash-denied"])
	}
}

func TestSuiteRunMissingConfig(t *testing.T) {
	s := &Suite{}
	_, err := s.Run(context.Background(), &suite.Target{
		ConfigPath: filepath.Join(t.TempDir(), "absent.json"),
	})
	if !errors.Is(err, document.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSuiteRunInvalidConfig(t *testing.T) {
	s := &Suite{}
	_, err := s.Run(context.Background(), &suite.Target{
		ConfigPath: writeConfig(t, `{"permission":`),
	})
	var parseErr *document.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}
