package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ValidateStructure checks the manifest's shape: required sections, the
// supported schema version, and cross-references between commands, agents,
// skills and the command policy. Returns one message per problem.
func ValidateStructure(m *Manifest) []string {
	var errs []string

	top := m.Raw()
	if top == nil {
		return []string{"manifest is empty"}
	}

	requiredTop := []string{
		"schema_version", "phase", "commands", "agents", "skills", "workflows", "installation",
	}
	for _, key := range requiredTop {
		if !top.Has(key) {
			errs = append(errs, fmt.Sprintf("manifest missing top-level key `%s`", key))
		}
	}
	if len(errs) > 0 {
		return errs
	}

	if m.SchemaVersion != SchemaVersion {
		errs = append(errs, fmt.Sprintf("unsupported schema_version `%s`; expected `%s`", m.SchemaVersion, SchemaVersion))
	}

	for _, section := range []struct {
		name string
		om   *OrderedMap
	}{
		{"commands", &m.Commands},
		{"agents", &m.Agents},
		{"workflows", &m.Workflows},
		{"skills", &m.Skills},
	} {
		if section.om.Values == nil {
			errs = append(errs, fmt.Sprintf("manifest missing `%s.canonical` object", section.name))
		}
	}
	if m.CommandPolicy.Values == nil {
		errs = append(errs, "manifest missing `skills.command_policy` object")
	}
	if m.SystemFiles == nil {
		errs = append(errs, "manifest missing `installation.system_files` object")
	}
	if len(errs) > 0 {
		return errs
	}

	canonicalAgents := stringSet(m.Agents.Keys)
	canonicalSkills := stringSet(m.Skills.Keys)

	for _, name := range m.Commands.Keys {
		var entry CommandEntry
		if err := m.Commands.Get(name, &entry); err != nil {
			errs = append(errs, fmt.Sprintf("command `%s` entry is malformed: %v", name, err))
			continue
		}
		if !canonicalAgents[entry.Owner] {
			errs = append(errs, fmt.Sprintf("command `%s` owner `%s` is not a canonical agent", name, entry.Owner))
		}
	}

	for _, name := range m.Skills.Keys {
		var entry SkillEntry
		if err := m.Skills.Get(name, &entry); err != nil {
			errs = append(errs, fmt.Sprintf("skill `%s` entry is malformed: %v", name, err))
			continue
		}
		if len(entry.Owners) == 0 {
			errs = append(errs, fmt.Sprintf("skill `%s` must define non-empty `owners` list", name))
		} else if unknown := missingFrom(entry.Owners, canonicalAgents); len(unknown) > 0 {
			errs = append(errs, fmt.Sprintf("skill `%s` has unknown owners: %s", name, strings.Join(unknown, ", ")))
		}
		if len(entry.Triggers) == 0 {
			errs = append(errs, fmt.Sprintf("skill `%s` must define non-empty `triggers` list", name))
		}
	}

	if !sameKeySet(m.CommandPolicy.Keys, m.Commands.Keys) {
		errs = append(errs, fmt.Sprintf(
			"`skills.command_policy` keys must match canonical commands: expected %v, got %v",
			sortedCopy(m.Commands.Keys), sortedCopy(m.CommandPolicy.Keys)))
	}
	for _, name := range m.CommandPolicy.Keys {
		var policy PolicyEntry
		if err := m.CommandPolicy.Get(name, &policy); err != nil {
			errs = append(errs, fmt.Sprintf("command policy `%s` is malformed: %v", name, err))
			continue
		}
		if !canonicalSkills[policy.Primary] {
			errs = append(errs, fmt.Sprintf("command policy `%s` references unknown primary skill `%s`", name, policy.Primary))
		}
		for _, skill := range policy.Optional {
			if !canonicalSkills[skill] {
				errs = append(errs, fmt.Sprintf("command policy `%s` references unknown optional skill `%s`", name, skill))
			}
			if skill == policy.Primary {
				errs = append(errs, fmt.Sprintf("command policy `%s` optional includes primary skill `%s`", name, policy.Primary))
			}
		}
	}

	for _, platform := range []string{"claude", "opencode"} {
		if len(m.SystemFiles[platform]) == 0 {
			errs = append(errs, fmt.Sprintf("installation.system_files.%s must be a non-empty string list", platform))
		}
	}

	return errs
}

// ValidateTemplateRefs checks that every canonical entry's template path
// follows the expected layout and exists under root.
func ValidateTemplateRefs(root string, m *Manifest) []string {
	var errs []string

	verify := func(label, configured, expected string) {
		if configured != expected {
			errs = append(errs, fmt.Sprintf("`%s` template mismatch: expected `%s`, got `%s`", label, expected, configured))
			return
		}
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(configured))); err != nil {
			errs = append(errs, fmt.Sprintf("missing referenced template file: %s", configured))
		}
	}

	for _, name := range m.Commands.Keys {
		var entry CommandEntry
		m.Commands.Get(name, &entry)
		verify("commands.canonical."+name, entry.Template,
			fmt.Sprintf("templates/shared/commands/crew/%s.md", name))
	}
	for _, name := range m.Agents.Keys {
		var entry AgentEntry
		m.Agents.Get(name, &entry)
		verify("agents.canonical."+name, entry.Template,
			fmt.Sprintf("templates/shared/agents/crewai/%s.md", name))
	}
	for _, name := range m.Skills.Keys {
		var entry SkillEntry
		m.Skills.Get(name, &entry)
		verify("skills.canonical."+name, entry.Template,
			fmt.Sprintf("templates/shared/skills/%s/SKILL.md", name))
	}
	for _, name := range m.Workflows.Keys {
		var entry WorkflowEntry
		m.Workflows.Get(name, &entry)
		verify("workflows.canonical."+name, entry.Template,
			fmt.Sprintf("templates/shared/workflows/%s/SKILL.md", name))
	}

	platforms := make([]string, 0, len(m.SystemFiles))
	for platform := range m.SystemFiles {
		platforms = append(platforms, platform)
	}
	sort.Strings(platforms)
	for _, platform := range platforms {
		for _, entry := range m.SystemFiles[platform] {
			if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(entry))); err != nil {
				errs = append(errs, fmt.Sprintf("installation.system_files.%s references missing file: %s", platform, entry))
			}
		}
	}

	return errs
}

// ValidateGenerated checks that every generated artifact matches what the
// manifest would render today.
func ValidateGenerated(root string, m *Manifest) []string {
	var errs []string

	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(SchemaFile))); err != nil {
		errs = append(errs, fmt.Sprintf("manifest schema file missing: %s", SchemaFile))
	}

	expectedRegistry, err := RenderRegistry(m)
	if err != nil {
		errs = append(errs, fmt.Sprintf("render registry: %v", err))
	} else {
		registryPath := filepath.Join(root, filepath.FromSlash(RegistryFile))
		actual, err := os.ReadFile(registryPath)
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("generated runtime registry missing: %s", RegistryFile))
		case string(actual) != string(expectedRegistry):
			errs = append(errs, fmt.Sprintf("%s is out of sync with %s; run `opencheck manifest sync`", RegistryFile, ManifestFile))
		}
	}

	installPath := filepath.Join(root, InstallFile)
	installText, err := os.ReadFile(installPath)
	if err != nil {
		errs = append(errs, fmt.Sprintf("install script missing: %s", InstallFile))
	} else {
		actual, err := ExtractBlock(string(installText), InstallBlockBegin, InstallBlockEnd)
		if err != nil {
			errs = append(errs, err.Error())
		} else if actual != RenderInstallBlock(m) {
			errs = append(errs, fmt.Sprintf("%s generated package block is out of sync with %s", InstallFile, ManifestFile))
		}
	}

	readmePath := filepath.Join(root, ReadmeFile)
	readmeText, err := os.ReadFile(readmePath)
	if err != nil {
		errs = append(errs, fmt.Sprintf("README file missing: %s", ReadmeFile))
		return errs
	}

	for _, check := range []struct {
		begin, end, expected, label string
	}{
		{ReadmeWhatsInsideBegin, ReadmeWhatsInsideEnd, RenderWhatsInsideBlock(m), "README what's-inside block"},
		{ReadmeInstallerCountsBegin, ReadmeInstallerCountsEnd, RenderInstallerCountsBlock(m), "README installer-count block"},
		{ReadmeIndexBegin, ReadmeIndexEnd, RenderIndexBlock(m), "README index block"},
	} {
		actual, err := ExtractBlock(string(readmeText), check.begin, check.end)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if actual != check.expected {
			errs = append(errs, fmt.Sprintf("%s is out of sync with %s", check.label, ManifestFile))
		}
	}

	return errs
}

func stringSet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

func missingFrom(values []string, set map[string]bool) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range values {
		if !set[v] && !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	sort.Strings(out)
	return out
}

func sameKeySet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := stringSet(a)
	for _, k := range b {
		if !set[k] {
			return false
		}
	}
	return true
}

func sortedCopy(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	return out
}

// raw JSON helper shared with the renderer. HTML escaping is off so output
// matches the bytes a plain JSON writer produces for &, < and >.
func compactJSON(v any) json.RawMessage {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		raw, _ := json.Marshal(v)
		return raw
	}
	return bytes.TrimRight(buf.Bytes(), "\n")
}
