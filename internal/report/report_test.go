package report

import (
	"reflect"
	"strings"
	"testing"

	"github.com/opencheck/opencheck/internal/suite"
)

func sampleResult() *suite.Result {
	res := suite.NewResult("config")
	res.Pass("bash-denied", "bash permission is denied")
	res.Fail("edit-denied", "edit permission is denied", `expected permission.edit="deny", found permission.edit="allow"`)
	res.Add(suite.Finding{ID: "provider-present", Description: "a provider is configured", Warn: true, Detail: "provider: key path absent"})
	res.Summary = []string{"verified assertions: 3"}
	return res
}

func TestRenderPlain(t *testing.T) {
	lines := Render(sampleResult(), PlainStyles())
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "✓ ") {
		t.Fatalf("expected pass marker, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "✗ ") || !strings.Contains(lines[1], "found permission.edit") {
		t.Fatalf("expected failure line with detail, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "⚠ ") {
		t.Fatalf("expected warn marker, got %q", lines[2])
	}
}

func TestRenderPassDetail(t *testing.T) {
	res := suite.NewResult("config")
	res.Add(suite.Finding{ID: "provider-present", Description: "a provider is configured",
		Pass: true, Detail: "configured: anthropic"})

	lines := Render(res, PlainStyles())
	if len(lines) != 1 || !strings.Contains(lines[0], "configured: anthropic") {
		t.Fatalf("expected pass detail in output, got %v", lines)
	}
}

func TestRenderDeterministic(t *testing.T) {
	first := Render(sampleResult(), PlainStyles())
	second := Render(sampleResult(), PlainStyles())
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical results rendered differently")
	}
}

func TestRenderSummaryVerdicts(t *testing.T) {
	ok := suite.NewResult("config")
	ok.Pass("a", "a")

	warned := suite.NewResult("config")
	warned.Pass("a", "a")
	warned.Add(suite.Finding{ID: "b", Description: "b", Warn: true})

	failed := suite.NewResult("config")
	failed.Fail("a", "a", "detail")

	tests := []struct {
		name    string
		results []*suite.Result
		want    string
	}{
		{"all pass", []*suite.Result{ok}, "All checks passed (1)."},
		{"warnings only", []*suite.Result{warned}, "1 warning(s)"},
		{"required failure", []*suite.Result{failed}, "1 required check(s) failed."},
	}

	for _, tt := range tests {
		lines := RenderSummary(tt.results, PlainStyles())
		joined := strings.Join(lines, "\n")
		if !strings.Contains(joined, tt.want) {
			t.Fatalf("%s: expected summary to contain %q, got:\n%s", tt.name, tt.want, joined)
		}
	}
}

func TestRenderSummaryNextSteps(t *testing.T) {
	failed := suite.NewResult("config")
	failed.Fail("a", "a", "")

	joined := strings.Join(RenderSummary([]*suite.Result{failed}, PlainStyles()), "\n")
	if !strings.Contains(joined, "Next Steps") {
		t.Fatal("expected failure summary to include next steps")
	}

	joined = strings.Join(RenderSummary([]*suite.Result{sampleOK()}, PlainStyles()), "\n")
	if strings.Contains(joined, "Next Steps") {
		t.Fatal("passing summary must not include next steps")
	}
}

func sampleOK() *suite.Result {
	res := suite.NewResult("config")
	res.Pass("a", "a")
	return res
}

func TestExitCode(t *testing.T) {
	failed := suite.NewResult("config")
	failed.Fail("a", "a", "")

	warned := suite.NewResult("config")
	warned.Add(suite.Finding{ID: "b", Description: "b", Warn: true})

	if got := ExitCode([]*suite.Result{sampleOK()}); got != ExitOK {
		t.Fatalf("expected exit %d for passing results, got %d", ExitOK, got)
	}
	if got := ExitCode([]*suite.Result{warned}); got != ExitOK {
		t.Fatalf("advisory failures must not change the exit code, got %d", got)
	}
	if got := ExitCode([]*suite.Result{sampleOK(), failed}); got != ExitFailed {
		t.Fatalf("expected exit %d when any suite fails, got %d", ExitFailed, got)
	}
}
