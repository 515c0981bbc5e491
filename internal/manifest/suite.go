package manifest

import (
	"context"
	"fmt"

	"github.com/opencheck/opencheck/internal/suite"
)

// Suite validates manifest integrity and generated-artifact sync.
type Suite struct{}

func (s *Suite) Name() string { return "manifest" }

func (s *Suite) Describe() string {
	return "validate toolkit manifest integrity and generated artifact sync"
}

func (s *Suite) Run(ctx context.Context, t *suite.Target) (*suite.Result, error) {
	m, err := Load(t.Root)
	if err != nil {
		return nil, err
	}

	res := suite.NewResult(s.Name())

	addStage(res, "manifest-structure", "manifest structure", ValidateStructure(m))
	addStage(res, "template-references", "template references", ValidateTemplateRefs(t.Root, m))
	addStage(res, "generated-artifacts", "generated artifacts in sync", ValidateGenerated(t.Root, m))

	skills, agents, commands, _ := m.Counts()
	res.Summary = append(res.Summary,
		fmt.Sprintf("validated assets: skills=%d, agents=%d, commands=%d", skills, agents, commands))
	return res, nil
}

func addStage(res *suite.Result, id, description string, errs []string) {
	if len(errs) == 0 {
		res.Pass(id, description)
		return
	}
	for _, msg := range errs {
		res.Fail(id, description, msg)
	}
}
