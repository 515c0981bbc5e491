// Package report turns suite results into display lines and process exit
// codes. Rendering is pure: the caller decides where the lines go.
package report

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/opencheck/opencheck/internal/suite"
)

// Process exit codes.
const (
	ExitOK             = 0
	ExitFailed         = 1
	ExitConfigNotFound = 2
	ExitConfigInvalid  = 3
)

// Styles holds the lipgloss styles used by the renderer.
type Styles struct {
	Pass   lipgloss.Style
	Fail   lipgloss.Style
	Warn   lipgloss.Style
	Banner lipgloss.Style
	Dim    lipgloss.Style
}

// DefaultStyles returns the colored style set.
func DefaultStyles() Styles {
	return Styles{
		Pass:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Fail:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		Banner: lipgloss.NewStyle().Bold(true),
		Dim:    lipgloss.NewStyle().Faint(true),
	}
}

// PlainStyles returns styles that add no escape sequences.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{Pass: plain, Fail: plain, Warn: plain, Banner: plain, Dim: plain}
}

// Render produces one line per finding followed by the suite's summary
// lines. Deterministic: identical results render identically.
func Render(res *suite.Result, st Styles) []string {
	var lines []string
	for _, f := range res.Findings {
		switch {
		case f.Pass:
			line := fmt.Sprintf("%s %s", st.Pass.Render("✓"), f.Description)
			if f.Detail != "" {
				line += " " + st.Dim.Render("— "+f.Detail)
			}
			lines = append(lines, line)
		case f.Warn:
			lines = append(lines, fmt.Sprintf("%s %s — %s", st.Warn.Render("⚠"), f.Description, f.Detail))
		default:
			line := fmt.Sprintf("%s %s", st.Fail.Render("✗"), f.Description)
			if f.Detail != "" {
				line += " — " + f.Detail
			}
			lines = append(lines, line)
		}
	}
	return lines
}

// RenderSummary produces the final banner for a set of results: an overall
// verdict plus each suite's checklist of what was verified.
func RenderSummary(results []*suite.Result, st Styles) []string {
	passed, failed, warned := 0, 0, 0
	ok := true
	for _, res := range results {
		passed += res.Passed()
		failed += res.Failed()
		warned += res.Warned()
		if !res.OK {
			ok = false
		}
	}

	var lines []string
	lines = append(lines, "")
	lines = append(lines, st.Banner.Render("Configuration Summary"))
	for _, res := range results {
		for _, s := range res.Summary {
			lines = append(lines, st.Dim.Render("  • "+s))
		}
	}

	switch {
	case ok && warned == 0:
		lines = append(lines, st.Pass.Render(fmt.Sprintf("All checks passed (%d).", passed)))
	case ok:
		lines = append(lines, st.Pass.Render(fmt.Sprintf("All required checks passed (%d); %d warning(s).", passed, warned)))
	default:
		lines = append(lines, st.Fail.Render(fmt.Sprintf("%d required check(s) failed.", failed)))
		lines = append(lines, "")
		lines = append(lines, st.Banner.Render("Next Steps"))
		lines = append(lines, "  review the failing entries above and correct the installation,")
		lines = append(lines, "  then re-run opencheck to confirm.")
	}
	return lines
}

// ExitCode maps aggregate results to a process exit code: 0 when every
// suite's required checks passed, 1 otherwise. Load failures never reach
// here; the caller maps them to their own codes.
func ExitCode(results []*suite.Result) int {
	for _, res := range results {
		if !res.OK {
			return ExitFailed
		}
	}
	return ExitOK
}
