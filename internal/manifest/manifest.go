package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Well-known toolkit files, relative to the toolkit root.
const (
	ManifestFile = "toolkit/manifest.json"
	SchemaFile   = "toolkit/manifest.schema.json"
	RegistryFile = "toolkit/registry.json"
	InstallFile  = "install.sh"
	ReadmeFile   = "README.md"
)

// SchemaVersion is the only manifest schema this tool understands.
const SchemaVersion = "1.0"

// OrderedMap is a JSON object that remembers its key order. The manifest's
// declaration order drives every generated artifact, so plain maps are not
// enough.
type OrderedMap struct {
	Keys   []string
	Values map[string]json.RawMessage
}

func (m *OrderedMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object")
	}

	m.Keys = nil
	m.Values = make(map[string]json.RawMessage)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if _, dup := m.Values[key]; !dup {
			m.Keys = append(m.Keys, key)
		}
		m.Values[key] = raw
	}

	_, err = dec.Token() // closing brace
	return err
}

// Get decodes the entry for key into out.
func (m *OrderedMap) Get(key string, out any) error {
	raw, ok := m.Values[key]
	if !ok {
		return fmt.Errorf("key %s not found", key)
	}
	return json.Unmarshal(raw, out)
}

func (m *OrderedMap) Has(key string) bool {
	_, ok := m.Values[key]
	return ok
}

func (m *OrderedMap) Len() int { return len(m.Keys) }

// CommandEntry describes a canonical command in the manifest.
type CommandEntry struct {
	Owner    string `json:"owner"`
	Template string `json:"template"`
}

// AgentEntry describes a canonical agent in the manifest.
type AgentEntry struct {
	Description string `json:"description"`
	Template    string `json:"template"`
}

// SkillEntry describes a canonical skill pack in the manifest.
type SkillEntry struct {
	Owners   []string `json:"owners"`
	Triggers []string `json:"triggers"`
	Template string   `json:"template"`
}

// WorkflowEntry describes a workflow in the manifest.
type WorkflowEntry struct {
	Template string `json:"template"`
}

// PolicyEntry maps a command to its primary and optional skills.
type PolicyEntry struct {
	Primary  string   `json:"primary"`
	Optional []string `json:"optional"`
}

// Manifest is the parsed toolkit manifest. Canonical sections keep their
// declared order.
type Manifest struct {
	SchemaVersion string
	Phase         string

	Commands  OrderedMap
	Agents    OrderedMap
	Skills    OrderedMap
	Workflows OrderedMap

	// CommandPolicy is kept as ordered raw JSON: the runtime registry embeds
	// it verbatim.
	CommandPolicy    OrderedMap
	CommandPolicyRaw json.RawMessage

	SystemFiles map[string][]string

	raw *OrderedMap
}

// Load reads and parses the manifest under root.
func Load(root string) (*Manifest, error) {
	path := filepath.Join(root, filepath.FromSlash(ManifestFile))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse parses raw manifest JSON.
func Parse(data []byte) (*Manifest, error) {
	var top OrderedMap
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	m := &Manifest{raw: &top}

	top.Get("schema_version", &m.SchemaVersion)
	top.Get("phase", &m.Phase)

	if raw, ok := top.Values["commands"]; ok {
		m.Commands = canonicalSection(raw)
	}
	if raw, ok := top.Values["agents"]; ok {
		m.Agents = canonicalSection(raw)
	}
	if raw, ok := top.Values["workflows"]; ok {
		m.Workflows = canonicalSection(raw)
	}
	if raw, ok := top.Values["skills"]; ok {
		var section OrderedMap
		if err := json.Unmarshal(raw, &section); err == nil {
			if canonical, ok := section.Values["canonical"]; ok {
				json.Unmarshal(canonical, &m.Skills)
			}
			if policy, ok := section.Values["command_policy"]; ok {
				m.CommandPolicyRaw = policy
				json.Unmarshal(policy, &m.CommandPolicy)
			}
		}
	}
	if raw, ok := top.Values["installation"]; ok {
		var inst struct {
			SystemFiles map[string][]string `json:"system_files"`
		}
		if err := json.Unmarshal(raw, &inst); err == nil {
			m.SystemFiles = inst.SystemFiles
		}
	}

	return m, nil
}

func canonicalSection(raw json.RawMessage) OrderedMap {
	var section OrderedMap
	if err := json.Unmarshal(raw, &section); err != nil {
		return OrderedMap{}
	}
	if canonical, ok := section.Values["canonical"]; ok {
		var inner OrderedMap
		if err := json.Unmarshal(canonical, &inner); err == nil {
			return inner
		}
	}
	return OrderedMap{}
}

// Raw exposes the top-level ordered object for structural validation.
func (m *Manifest) Raw() *OrderedMap { return m.raw }

// Counts returns the canonical asset counts for summary lines.
func (m *Manifest) Counts() (skills, agents, commands, workflows int) {
	return m.Skills.Len(), m.Agents.Len(), m.Commands.Len(), m.Workflows.Len()
}
