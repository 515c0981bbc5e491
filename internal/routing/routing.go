// Package routing validates that the runtime registry, the agent templates
// and the orchestrator instructions agree on which agent routes which
// command through which skills.
package routing

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opencheck/opencheck/internal/manifest"
)

// OrchestratorFiles are the instruction files that must mention every
// canonical skill, relative to the toolkit root.
var OrchestratorFiles = []string{
	"templates/claude/CLAUDE.md",
	"templates/opencode/crewai-orchestrator.md",
}

const agentTemplateDir = "templates/shared/agents/crewai"

// LoadRegistry reads and parses toolkit/registry.json. The registry shares
// the manifest's shape minus template references, so the manifest parser is
// reused as-is.
func LoadRegistry(root string) (*manifest.Manifest, error) {
	path := filepath.Join(root, filepath.FromSlash(manifest.RegistryFile))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	reg, err := manifest.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return reg, nil
}

// ValidateTriggers checks that trigger phrases are unique across canonical
// skills after case and whitespace normalization.
func ValidateTriggers(reg *manifest.Manifest) []string {
	var errs []string
	seen := make(map[string]string)

	for _, name := range reg.Skills.Keys {
		var entry manifest.SkillEntry
		if err := reg.Skills.Get(name, &entry); err != nil {
			errs = append(errs, fmt.Sprintf("canonical skill `%s` is malformed: %v", name, err))
			continue
		}
		if len(entry.Triggers) == 0 {
			errs = append(errs, fmt.Sprintf("canonical skill `%s` has no triggers", name))
			continue
		}
		for _, trigger := range entry.Triggers {
			normalized := strings.Join(strings.Fields(strings.ToLower(trigger)), " ")
			if owner, dup := seen[normalized]; dup {
				errs = append(errs, fmt.Sprintf("duplicate trigger `%s` shared by `%s` and `%s`", trigger, name, owner))
			} else {
				seen[normalized] = name
			}
		}
	}
	return errs
}

// ValidateCommandPolicy checks the command policy's internal consistency and
// that every canonical skill is reachable through some command.
func ValidateCommandPolicy(reg *manifest.Manifest) []string {
	var errs []string

	canonicalCommands := keySet(reg.Commands.Keys)
	canonicalSkills := keySet(reg.Skills.Keys)

	if !equalSets(keySet(reg.CommandPolicy.Keys), canonicalCommands) {
		errs = append(errs, fmt.Sprintf(
			"command policy mismatch with canonical command set: policy=%v, commands=%v",
			sorted(reg.CommandPolicy.Keys), sorted(reg.Commands.Keys)))
	}

	covered := make(map[string]bool)
	for _, command := range reg.CommandPolicy.Keys {
		var policy manifest.PolicyEntry
		if err := reg.CommandPolicy.Get(command, &policy); err != nil {
			errs = append(errs, fmt.Sprintf("command `%s` policy is malformed: %v", command, err))
			continue
		}

		if !canonicalSkills[policy.Primary] {
			errs = append(errs, fmt.Sprintf("command `%s` primary skill `%s` is not canonical", command, policy.Primary))
		}
		covered[policy.Primary] = true

		optionalSeen := make(map[string]bool)
		for _, skill := range policy.Optional {
			if optionalSeen[skill] {
				errs = append(errs, fmt.Sprintf("command `%s` optional skills contain duplicates", command))
			}
			optionalSeen[skill] = true

			if !canonicalSkills[skill] {
				errs = append(errs, fmt.Sprintf("command `%s` optional skill `%s` is not canonical", command, skill))
			}
			if skill == policy.Primary {
				errs = append(errs, fmt.Sprintf("command `%s` optional skills include primary skill `%s`", command, policy.Primary))
			}
			covered[skill] = true
		}
	}

	var uncovered []string
	for _, skill := range reg.Skills.Keys {
		if !covered[skill] {
			uncovered = append(uncovered, skill)
		}
	}
	if len(uncovered) > 0 {
		sort.Strings(uncovered)
		errs = append(errs, "canonical skills not used by any command policy: "+strings.Join(uncovered, ", "))
	}

	return errs
}

// agentFrontmatter is the YAML frontmatter of an agent template.
type agentFrontmatter struct {
	Name   string   `yaml:"name"`
	Skills []string `yaml:"skills"`
}

// parseFrontmatter splits a markdown file on "---" fences and decodes the
// YAML between them.
func parseFrontmatter(data []byte) (*agentFrontmatter, error) {
	parts := bytes.SplitN(data, []byte("---"), 3)
	if len(parts) < 3 {
		return nil, fmt.Errorf("no YAML frontmatter found or format is incorrect")
	}
	var fm agentFrontmatter
	if err := yaml.Unmarshal(parts[1], &fm); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	return &fm, nil
}

// ValidateAgentAlignment checks that agent templates exist, declare only
// canonical skills, and that each command's owner holds the skills its
// policy routes through.
func ValidateAgentAlignment(root string, reg *manifest.Manifest) []string {
	var errs []string

	canonicalAgents := keySet(reg.Agents.Keys)
	canonicalSkills := keySet(reg.Skills.Keys)

	agentSkills := make(map[string]map[string]bool)
	for _, agent := range reg.Agents.Keys {
		rel := fmt.Sprintf("%s/%s.md", agentTemplateDir, agent)
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			errs = append(errs, fmt.Sprintf("missing canonical agent file: %s", rel))
			continue
		}
		fm, err := parseFrontmatter(data)
		if err != nil {
			errs = append(errs, fmt.Sprintf("agent `%s` has invalid skills frontmatter", agent))
			continue
		}

		var unknown []string
		for _, skill := range fm.Skills {
			if !canonicalSkills[skill] {
				unknown = append(unknown, skill)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			errs = append(errs, fmt.Sprintf("agent `%s` uses non-canonical skills: %s", agent, strings.Join(unknown, ", ")))
		}

		agentSkills[agent] = keySet(fm.Skills)
	}

	for _, command := range reg.CommandPolicy.Keys {
		var policy manifest.PolicyEntry
		if err := reg.CommandPolicy.Get(command, &policy); err != nil {
			continue
		}
		var entry manifest.CommandEntry
		reg.Commands.Get(command, &entry)

		ownerSkills := agentSkills[entry.Owner]
		if policy.Primary != "" && !ownerSkills[policy.Primary] {
			errs = append(errs, fmt.Sprintf("command `%s` owner `%s` missing primary skill `%s`", command, entry.Owner, policy.Primary))
		}
		for _, skill := range policy.Optional {
			if !ownerSkills[skill] {
				errs = append(errs, fmt.Sprintf("command `%s` owner `%s` missing optional skill `%s`", command, entry.Owner, skill))
			}
		}
	}

	for _, skill := range reg.Skills.Keys {
		var entry manifest.SkillEntry
		if err := reg.Skills.Get(skill, &entry); err != nil {
			continue
		}
		for _, owner := range entry.Owners {
			if !canonicalAgents[owner] {
				errs = append(errs, fmt.Sprintf("canonical skill `%s` references unknown owner `%s`", skill, owner))
			}
		}
	}

	return errs
}

// ValidateOrchestratorMentions checks that the orchestrator instruction files
// mention every canonical skill by name.
func ValidateOrchestratorMentions(root string, reg *manifest.Manifest) []string {
	var errs []string
	skills := sorted(reg.Skills.Keys)

	for _, rel := range OrchestratorFiles {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			errs = append(errs, fmt.Sprintf("missing orchestrator file: %s", rel))
			continue
		}
		text := string(data)
		for _, skill := range skills {
			if !strings.Contains(text, skill) {
				errs = append(errs, fmt.Sprintf("orchestrator file missing canonical skill `%s`: %s", skill, rel))
			}
		}
	}
	return errs
}

func keySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

func equalSets(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func sorted(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	return out
}
