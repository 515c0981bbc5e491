// Package command validates the /crew command surface: every /crew
// reference across docs and runtime assets must name a real command
// template, and each canonical template must carry the expected
// frontmatter, heading and response contract.
package command

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opencheck/opencheck/internal/manifest"
)

// TemplateDir holds the canonical command templates, relative to the
// toolkit root.
const TemplateDir = "templates/shared/commands/crew"

var referencePattern = regexp.MustCompile(`/crew\s+([a-z][a-z-]*)`)

// contractTokens are the numbered deliverables every command response must
// promise.
var contractTokens = []string{
	"1. `findings`",
	"2. `plan`",
	"3. `proposed changes`",
	"4. `validation steps`",
}

// Reference is one /crew mention found in a scanned file.
type Reference struct {
	File    string
	Line    int
	Command string
}

// TemplateNames returns the set of command names with a template on disk.
func TemplateNames(root string) (map[string]bool, error) {
	dir := filepath.Join(root, filepath.FromSlash(TemplateDir))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read command template directory: %w", err)
	}
	names := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".md") {
			continue
		}
		names[strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))] = true
	}
	return names, nil
}

// ScanReferences collects /crew mentions from every markdown file under
// root (skipping .git) plus the install script and the runtime registry.
func ScanReferences(root string) ([]Reference, int, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".md") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	for _, rel := range []string{manifest.InstallFile, manifest.RegistryFile} {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		}
	}
	sort.Strings(files)

	var refs []Reference
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, err
		}

		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			for _, match := range referencePattern.FindAllStringSubmatch(scanner.Text(), -1) {
				refs = append(refs, Reference{File: rel, Line: lineNo, Command: match[1]})
			}
		}
		serr := scanner.Err()
		f.Close()
		if serr != nil {
			return nil, 0, serr
		}
	}

	return refs, len(files), nil
}

// ValidateReferences reports references naming commands without a template.
func ValidateReferences(refs []Reference, valid map[string]bool) []string {
	var errs []string
	for _, ref := range refs {
		if !valid[ref.Command] {
			errs = append(errs, fmt.Sprintf("%s:%d references unknown command `/crew %s`", ref.File, ref.Line, ref.Command))
		}
	}
	return errs
}

// commandFrontmatter is the YAML frontmatter of a command template.
type commandFrontmatter struct {
	Canonical bool   `yaml:"canonical"`
	CommandID string `yaml:"command_id"`
}

func parseFrontmatter(data []byte) (*commandFrontmatter, string, error) {
	parts := bytes.SplitN(data, []byte("---"), 3)
	if len(parts) < 3 {
		return nil, "", fmt.Errorf("no YAML frontmatter found or format is incorrect")
	}
	var fm commandFrontmatter
	if err := yaml.Unmarshal(parts[1], &fm); err != nil {
		return nil, "", fmt.Errorf("parse frontmatter: %w", err)
	}
	return &fm, string(parts[2]), nil
}

// ValidateSurface checks that the templates on disk match the registry's
// canonical command set exactly and that each template carries the
// canonical frontmatter, heading, sections and contract tokens.
func ValidateSurface(root string, reg *manifest.Manifest) []string {
	var errs []string

	existing, err := TemplateNames(root)
	if err != nil {
		return []string{err.Error()}
	}

	expected := make(map[string]bool, len(reg.Commands.Keys))
	for _, name := range reg.Commands.Keys {
		expected[name] = true
	}

	var missing, unexpected []string
	for name := range expected {
		if !existing[name] {
			missing = append(missing, name)
		}
	}
	for name := range existing {
		if !expected[name] {
			unexpected = append(unexpected, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		errs = append(errs, "missing command templates: "+strings.Join(missing, ", "))
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		errs = append(errs, "unexpected command templates: "+strings.Join(unexpected, ", "))
	}

	for _, name := range reg.Commands.Keys {
		if !existing[name] {
			continue
		}
		rel := TemplateDir + "/" + name + ".md"
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			errs = append(errs, fmt.Sprintf("read command template %s: %v", rel, err))
			continue
		}

		fm, body, err := parseFrontmatter(data)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s has invalid frontmatter: %v", rel, err))
			continue
		}
		if !fm.Canonical {
			errs = append(errs, fmt.Sprintf("%s missing `canonical: true` frontmatter", rel))
		}
		wantID := fmt.Sprintf("crew.%s.v1", name)
		if fm.CommandID != wantID {
			errs = append(errs, fmt.Sprintf("%s command_id mismatch: expected `%s`, got `%s`", rel, wantID, fm.CommandID))
		}

		if !strings.Contains(body, "# /crew "+name) {
			errs = append(errs, fmt.Sprintf("%s missing canonical heading `# /crew %s`", rel, name))
		}
		for _, section := range []string{"## Syntax", "## Response Contract (Required)"} {
			if !strings.Contains(body, section) {
				errs = append(errs, fmt.Sprintf("%s missing `%s` section", rel, section))
			}
		}
		for _, token := range contractTokens {
			if !strings.Contains(body, token) {
				errs = append(errs, fmt.Sprintf("%s missing response contract token `%s`", rel, token))
			}
		}
	}

	return errs
}
