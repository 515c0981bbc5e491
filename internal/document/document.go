package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// ErrNotFound is returned by Load when the configuration file does not exist.
var ErrNotFound = errors.New("configuration file not found")

// ParseError is returned by Load when the file exists but is not valid JSON.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Document is a read-only JSON configuration document addressed by key paths.
type Document struct {
	root any
}

// Load reads and parses a JSON configuration file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return doc, nil
}

// Parse parses raw JSON into a Document.
func Parse(data []byte) (*Document, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if _, ok := root.(map[string]any); !ok {
		return nil, fmt.Errorf("top-level value must be a JSON object")
	}
	return &Document{root: root}, nil
}

// Lookup walks the document using dot notation with array indexing.
// Examples: "permission.bash", "agent.orchestrator", "items[0].id"
func (d *Document) Lookup(path string) (any, bool) {
	current := d.root
	for _, part := range splitPath(path) {
		key, idx, hasIdx := parsePathPart(part)

		if key != "" {
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			val, exists := obj[key]
			if !exists {
				return nil, false
			}
			current = val
		}

		if hasIdx {
			arr, ok := current.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			current = arr[idx]
		}
	}
	return current, true
}

// Exists reports whether a key path is present.
func (d *Document) Exists(path string) bool {
	_, ok := d.Lookup(path)
	return ok
}

// String returns the value at path rendered as a string.
// Non-string scalars are formatted; objects and arrays keep their JSON shape.
func (d *Document) String(path string) (string, bool) {
	val, ok := d.Lookup(path)
	if !ok {
		return "", false
	}
	switch v := val.(type) {
	case string:
		return v, true
	case nil:
		return "null", true
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v), true
		}
		return string(raw), true
	}
}

// Keys returns the child keys of the object at path, if it is an object.
func (d *Document) Keys(path string) []string {
	val, ok := d.Lookup(path)
	if !ok {
		return nil
	}
	obj, ok := val.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	return keys
}

// splitPath splits "a.b[0].c" into ["a", "b[0]", "c"]
func splitPath(path string) []string {
	var parts []string
	current := ""
	for _, ch := range path {
		if ch == '.' {
			if current != "" {
				parts = append(parts, current)
				current = ""
			}
		} else {
			current += string(ch)
		}
	}
	if current != "" {
		parts = append(parts, current)
	}
	return parts
}

// parsePathPart parses "name[0]" into ("name", 0, true) or "name" into ("name", 0, false)
func parsePathPart(part string) (string, int, bool) {
	bracketIdx := strings.Index(part, "[")
	if bracketIdx == -1 {
		return part, 0, false
	}

	key := part[:bracketIdx]
	idxStr := part[bracketIdx+1 : len(part)-1]
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		return part, 0, false
	}
	return key, idx, true
}
