package assertion

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/opencheck/opencheck/internal/document"
	"github.com/opencheck/opencheck/internal/suite"
)

// Suite runs the canonical configuration assertions against the deployed
// opencode configuration file. Load failures are returned as errors so the
// caller can map file-not-found and parse errors to their distinct exit
// codes; assertion failures are ordinary findings.
type Suite struct{}

func (s *Suite) Name() string { return "config" }

func (s *Suite) Describe() string {
	return "verify the deployed opencode configuration invariants"
}

func (s *Suite) Run(ctx context.Context, t *suite.Target) (*suite.Result, error) {
	doc, err := document.Load(t.ConfigPath)
	if err != nil {
		return nil, err
	}

	rep := Evaluate(doc, Canonical())

	res := suite.NewResult(s.Name())
	for _, o := range rep.Outcomes {
		detail := o.Message
		if o.Pass && o.Assertion.Severity == Advisory {
			// name the configured entries so the report shows which
			// providers or MCP servers satisfied the check
			if keys := doc.Keys(o.Assertion.Path); len(keys) > 0 {
				sort.Strings(keys)
				detail = "configured: " + strings.Join(keys, ", ")
			}
		}
		res.Add(suite.Finding{
			ID:          o.Assertion.ID,
			Description: o.Assertion.Description,
			Pass:        o.Pass,
			Warn:        o.Assertion.Severity == Advisory,
			Detail:      detail,
		})
	}
	res.Summary = append(res.Summary,
		fmt.Sprintf("verified configuration: %s", t.ConfigPath),
		fmt.Sprintf("required assertions: %d, advisory: %d",
			len(rep.Outcomes)-advisoryCount(rep), advisoryCount(rep)),
	)
	return res, nil
}

func advisoryCount(rep *Report) int {
	n := 0
	for _, o := range rep.Outcomes {
		if o.Assertion.Severity == Advisory {
			n++
		}
	}
	return n
}
