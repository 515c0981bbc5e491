package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Marker pairs delimiting generated blocks in hand-edited files.
const (
	InstallBlockBegin = "# BEGIN GENERATED: TOOLKIT_PACKAGE_LISTS"
	InstallBlockEnd   = "# END GENERATED: TOOLKIT_PACKAGE_LISTS"

	ReadmeWhatsInsideBegin = "<!-- BEGIN GENERATED: TOOLKIT_WHATS_INSIDE -->"
	ReadmeWhatsInsideEnd   = "<!-- END GENERATED: TOOLKIT_WHATS_INSIDE -->"

	ReadmeInstallerCountsBegin = "<!-- BEGIN GENERATED: TOOLKIT_INSTALLER_COUNTS -->"
	ReadmeInstallerCountsEnd   = "<!-- END GENERATED: TOOLKIT_INSTALLER_COUNTS -->"

	ReadmeIndexBegin = "<!-- BEGIN GENERATED: TOOLKIT_INDEX -->"
	ReadmeIndexEnd   = "<!-- END GENERATED: TOOLKIT_INDEX -->"
)

// RenderRegistry renders toolkit/registry.json from the manifest. Output is
// deterministic and preserves the manifest's declaration order, so the sync
// check can compare bytes.
func RenderRegistry(m *Manifest) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString(`"schema_version":`)
	buf.Write(compactJSON(m.SchemaVersion))
	buf.WriteString(`,"phase":`)
	buf.Write(compactJSON(m.Phase))

	buf.WriteString(`,"commands":{"canonical":{`)
	for i, name := range m.Commands.Keys {
		var entry CommandEntry
		if err := m.Commands.Get(name, &entry); err != nil {
			return nil, fmt.Errorf("command %s: %w", name, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(compactJSON(name))
		buf.WriteString(`:{"owner":`)
		buf.Write(compactJSON(entry.Owner))
		buf.WriteByte('}')
	}
	buf.WriteString(`}}`)

	buf.WriteString(`,"agents":{"canonical":{`)
	for i, name := range m.Agents.Keys {
		var entry AgentEntry
		if err := m.Agents.Get(name, &entry); err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(compactJSON(name))
		buf.WriteString(`:{"description":`)
		buf.Write(compactJSON(entry.Description))
		buf.WriteByte('}')
	}
	buf.WriteString(`}}`)

	buf.WriteString(`,"skills":{"canonical":{`)
	for i, name := range m.Skills.Keys {
		var entry SkillEntry
		if err := m.Skills.Get(name, &entry); err != nil {
			return nil, fmt.Errorf("skill %s: %w", name, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(compactJSON(name))
		buf.WriteString(`:{"owners":`)
		buf.Write(compactJSON(entry.Owners))
		buf.WriteString(`,"triggers":`)
		buf.Write(compactJSON(entry.Triggers))
		buf.WriteByte('}')
	}
	buf.WriteString(`},"command_policy":`)

	policy := bytes.Buffer{}
	if len(m.CommandPolicyRaw) > 0 {
		if err := json.Compact(&policy, m.CommandPolicyRaw); err != nil {
			return nil, fmt.Errorf("command policy: %w", err)
		}
	} else {
		policy.WriteString("{}")
	}
	buf.Write(policy.Bytes())
	buf.WriteString(`}}`)

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("indent registry: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// RenderInstallBlock renders the generated package-list block for install.sh.
func RenderInstallBlock(m *Manifest) string {
	agents := make([]string, 0, m.Agents.Len())
	for _, name := range m.Agents.Keys {
		agents = append(agents, "crewai/"+name)
	}
	commands := make([]string, 0, m.Commands.Len())
	for _, name := range m.Commands.Keys {
		commands = append(commands, "crew/"+name)
	}

	lines := []string{
		InstallBlockBegin,
		renderBashArray("PKG_SKILLS", m.Skills.Keys),
		"",
		renderBashArray("PKG_AGENTS", agents),
		"",
		renderBashArray("PKG_WORKFLOWS", m.Workflows.Keys),
		"",
		renderBashArray("PKG_COMMANDS", commands),
		InstallBlockEnd,
	}
	return strings.Join(lines, "\n")
}

func renderBashArray(name string, values []string) string {
	lines := []string{name + "=("}
	for _, v := range values {
		lines = append(lines, fmt.Sprintf("    %q", v))
	}
	lines = append(lines, ")")
	return strings.Join(lines, "\n")
}

// RenderWhatsInsideBlock renders the README "what's inside" summary block.
func RenderWhatsInsideBlock(m *Manifest) string {
	skills, agents, commands, workflows := m.Counts()
	lines := []string{
		ReadmeWhatsInsideBegin,
		fmt.Sprintf("- **%d Skill Packs**", skills),
		fmt.Sprintf("- **%d Core Agents**", agents),
		fmt.Sprintf("- **%d Canonical Commands**", commands),
		fmt.Sprintf("- **%d Workflows** that guide you step by step", workflows),
		ReadmeWhatsInsideEnd,
	}
	return strings.Join(lines, "\n")
}

// RenderInstallerCountsBlock renders the README installer-count block.
func RenderInstallerCountsBlock(m *Manifest) string {
	skills, agents, commands, workflows := m.Counts()
	lines := []string{
		ReadmeInstallerCountsBegin,
		fmt.Sprintf("- %d Skills", skills),
		fmt.Sprintf("- %d Agents", agents),
		fmt.Sprintf("- %d Workflows", workflows),
		fmt.Sprintf("- %d Commands", commands),
		ReadmeInstallerCountsEnd,
	}
	return strings.Join(lines, "\n")
}

// RenderIndexBlock renders the README index block listing canonical assets.
func RenderIndexBlock(m *Manifest) string {
	lines := []string{
		ReadmeIndexBegin,
		fmt.Sprintf("- **Canonical commands (%d):** %s", m.Commands.Len(), codeList(m.Commands.Keys, "/crew ")),
		fmt.Sprintf("- **Canonical agents (%d):** %s", m.Agents.Len(), codeList(m.Agents.Keys, "")),
		fmt.Sprintf("- **Canonical skill packs (%d):** %s", m.Skills.Len(), codeList(m.Skills.Keys, "")),
		fmt.Sprintf("- **Workflows (%d):** %s", m.Workflows.Len(), codeList(m.Workflows.Keys, "")),
		ReadmeIndexEnd,
	}
	return strings.Join(lines, "\n")
}

func codeList(items []string, prefix string) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, "`"+prefix+item+"`")
	}
	return strings.Join(parts, ", ")
}

// ExtractBlock returns the delimited block, markers included.
func ExtractBlock(text, begin, end string) (string, error) {
	start := strings.Index(text, begin)
	if start == -1 {
		return "", fmt.Errorf("missing start marker: %s", begin)
	}
	stop := strings.Index(text[start:], end)
	if stop == -1 {
		return "", fmt.Errorf("missing end marker: %s", end)
	}
	stop += start + len(end)
	return text[start:stop], nil
}

// ReplaceBlock swaps the delimited block for a fresh rendering.
func ReplaceBlock(text, begin, end, block string) (string, error) {
	start := strings.Index(text, begin)
	if start == -1 {
		return "", fmt.Errorf("missing start marker: %s", begin)
	}
	stop := strings.Index(text[start:], end)
	if stop == -1 {
		return "", fmt.Errorf("missing end marker: %s", end)
	}
	stop += start + len(end)
	return text[:start] + block + text[stop:], nil
}
