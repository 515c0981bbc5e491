package routing

import (
	"context"
	"fmt"

	"github.com/opencheck/opencheck/internal/manifest"
	"github.com/opencheck/opencheck/internal/suite"
)

// Suite validates skill trigger coverage and deterministic command routing.
type Suite struct{}

func (s *Suite) Name() string { return "routing" }

func (s *Suite) Describe() string {
	return "validate skill triggers, command policy and agent alignment"
}

func (s *Suite) Run(ctx context.Context, t *suite.Target) (*suite.Result, error) {
	reg, err := LoadRegistry(t.Root)
	if err != nil {
		return nil, err
	}

	res := suite.NewResult(s.Name())
	addStage(res, "trigger-uniqueness", "skill triggers unique", ValidateTriggers(reg))
	addStage(res, "command-policy", "command policy consistent", ValidateCommandPolicy(reg))
	addStage(res, "agent-alignment", "agents aligned with policy", ValidateAgentAlignment(t.Root, reg))
	addStage(res, "orchestrator-mentions", "orchestrator files mention all skills", ValidateOrchestratorMentions(t.Root, reg))

	triggerCount := 0
	for _, name := range reg.Skills.Keys {
		var entry manifest.SkillEntry
		if err := reg.Skills.Get(name, &entry); err == nil {
			triggerCount += len(entry.Triggers)
		}
	}
	res.Summary = append(res.Summary,
		fmt.Sprintf("validated command policies: %d", reg.CommandPolicy.Len()),
		fmt.Sprintf("validated canonical trigger phrases: %d", triggerCount),
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
