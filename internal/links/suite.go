package links

import (
	"context"
	"fmt"
	"time"

	"github.com/opencheck/opencheck/internal/suite"
)

// Suite validates markdown links under the toolkit root. External targets
// are only checked when the target enables them; broken external links are
// advisory, since remote availability is not an installation defect.
type Suite struct {
	External *ExternalChecker
}

func (s *Suite) Name() string { return "links" }

func (s *Suite) Describe() string {
	return "validate local (and optionally external) markdown links"
}

func (s *Suite) Run(ctx context.Context, t *suite.Target) (*suite.Result, error) {
	local, external, filesScanned, err := Scan(t.Root)
	if err != nil {
		return nil, err
	}

	res := suite.NewResult(s.Name())

	if broken := CheckLocal(t.Root, local); len(broken) == 0 {
		res.Pass("local-links", "local markdown links resolve")
	} else {
		for _, b := range broken {
			res.Fail("local-links", "local markdown links resolve",
				fmt.Sprintf("%s:%d: %s", b.File, b.Line, b.Target))
		}
	}

	checkedExternal := 0
	if t.ExternalLinks && len(external) > 0 {
		checker := s.External
		if checker == nil {
			checker = NewExternalChecker(2, 1, 10*time.Second)
		}
		broken, err := checker.CheckExternal(ctx, external)
		if err != nil {
			return nil, err
		}
		checkedExternal = len(external)
		if len(broken) == 0 {
			res.Pass("external-links", "external links reachable")
		} else {
			for _, b := range broken {
				res.Add(suite.Finding{
					ID:          "external-links",
					Description: "external links reachable",
					Pass:        false,
					Warn:        true,
					Detail:      fmt.Sprintf("%s:%d: %s (%s)", b.File, b.Line, b.Target, b.Reason),
				})
			}
		}
	}

	res.Summary = append(res.Summary,
		fmt.Sprintf("validated markdown files: %d", filesScanned),
		fmt.Sprintf("validated local links: %d", len(local)),
	)
	if checkedExternal > 0 {
		res.Summary = append(res.Summary, fmt.Sprintf("validated external links: %d", checkedExternal))
	}
	return res, nil
}
