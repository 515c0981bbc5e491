package command

import (
	"context"
	"fmt"

	"github.com/opencheck/opencheck/internal/routing"
	"github.com/opencheck/opencheck/internal/suite"
)

// Suite validates the /crew command surface against the runtime registry.
type Suite struct{}

func (s *Suite) Name() string { return "commands" }

func (s *Suite) Describe() string {
	return "validate /crew command references and template surface"
}

func (s *Suite) Run(ctx context.Context, t *suite.Target) (*suite.Result, error) {
	reg, err := routing.LoadRegistry(t.Root)
	if err != nil {
		return nil, err
	}
	valid, err := TemplateNames(t.Root)
	if err != nil {
		return nil, err
	}

	refs, filesScanned, err := ScanReferences(t.Root)
	if err != nil {
		return nil, err
	}

	res := suite.NewResult(s.Name())
	addStage(res, "command-references", "command references resolve", ValidateReferences(refs, valid))
	addStage(res, "command-surface", "command templates carry the canonical surface", ValidateSurface(t.Root, reg))

	res.Summary = append(res.Summary,
		fmt.Sprintf("validated files for command references: %d", filesScanned),
		fmt.Sprintf("validated canonical commands: %d", reg.Commands.Len()),
	)
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
