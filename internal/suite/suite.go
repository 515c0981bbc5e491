package suite

import (
	"context"
	"fmt"
	"sync"
)

// Target describes the installation a suite runs against.
type Target struct {
	// Root is the toolkit repository root (manifest, registry, templates).
	Root string
	// ConfigPath is the deployed opencode configuration file.
	ConfigPath string
	// ExternalLinks enables network checks for http(s) markdown links.
	ExternalLinks bool
}

// Finding is a single named check outcome within a suite run.
type Finding struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Pass        bool   `json:"pass"`
	// Warn marks an advisory failure: reported, never gates OK.
	Warn   bool   `json:"warn,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Result holds the outcome of one suite run.
type Result struct {
	Suite    string    `json:"suite"`
	OK       bool      `json:"ok"`
	Findings []Finding `json:"findings"`
	// Summary carries suite-specific count lines for the final banner,
	// e.g. "validated markdown files: 42".
	Summary []string `json:"summary,omitempty"`
}

// Add appends a finding and keeps OK in sync.
func (r *Result) Add(f Finding) {
	r.Findings = append(r.Findings, f)
	if !f.Pass && !f.Warn {
		r.OK = false
	}
}

// Fail appends a failing required finding.
func (r *Result) Fail(id, description, detail string) {
	r.Add(Finding{ID: id, Description: description, Pass: false, Detail: detail})
}

// Pass appends a passing finding.
func (r *Result) Pass(id, description string) {
	r.Add(Finding{ID: id, Description: description, Pass: true})
}

// NewResult creates an empty, passing result for a suite.
func NewResult(name string) *Result {
	return &Result{Suite: name, OK: true}
}

// Passed counts passing findings.
func (r *Result) Passed() int {
	n := 0
	for _, f := range r.Findings {
		if f.Pass {
			n++
		}
	}
	return n
}

// Failed counts failing required findings.
func (r *Result) Failed() int {
	n := 0
	for _, f := range r.Findings {
		if !f.Pass && !f.Warn {
			n++
		}
	}
	return n
}

// Warned counts failing advisory findings.
func (r *Result) Warned() int {
	n := 0
	for _, f := range r.Findings {
		if !f.Pass && f.Warn {
			n++
		}
	}
	return n
}

// Suite verifies one aspect of a toolkit installation.
type Suite interface {
	// Name returns the suite identifier used on the command line.
	Name() string
	// Describe returns a one-line description for listings.
	Describe() string
	// Run evaluates the suite against the target.
	Run(ctx context.Context, t *Target) (*Result, error)
}

// Registry holds all registered suites by name.
type Registry struct {
	mu     sync.RWMutex
	suites map[string]Suite
	order  []string
}

func NewRegistry() *Registry {
	return &Registry{suites: make(map[string]Suite)}
}

func (r *Registry) Register(s Suite) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.suites[s.Name()]; !ok {
		r.order = append(r.order, s.Name())
	}
	r.suites[s.Name()] = s
}

func (r *Registry) Get(name string) (Suite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.suites[name]
	if !ok {
		return nil, fmt.Errorf("no suite registered for name: %s", name)
	}
	return s, nil
}

// All returns the registered suites in registration order.
func (r *Registry) All() []Suite {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Suite, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.suites[name])
	}
	return out
}
