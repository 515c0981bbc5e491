// Package doctor wires the verification suites together: it resolves suite
// names, runs them against a target and records each completed run in the
// history store.
package doctor

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/opencheck/opencheck/internal/assertion"
	"github.com/opencheck/opencheck/internal/command"
	"github.com/opencheck/opencheck/internal/links"
	"github.com/opencheck/opencheck/internal/manifest"
	"github.com/opencheck/opencheck/internal/routing"
	"github.com/opencheck/opencheck/internal/storage"
	"github.com/opencheck/opencheck/internal/suite"
)

// DefaultRegistry creates a registry with all built-in suites.
func DefaultRegistry(external *links.ExternalChecker) *suite.Registry {
	r := suite.NewRegistry()
	r.Register(&assertion.Suite{})
	r.Register(&manifest.Suite{})
	r.Register(&routing.Suite{})
	r.Register(&command.Suite{})
	r.Register(&links.Suite{External: external})
	return r
}

// Runner executes suites and records history. The store may be nil, in
// which case runs are not recorded.
type Runner struct {
	registry *suite.Registry
	store    storage.Store
	logger   *slog.Logger
}

func NewRunner(registry *suite.Registry, store storage.Store, logger *slog.Logger) *Runner {
	return &Runner{registry: registry, store: store, logger: logger}
}

// Run executes the named suites in order against the target. An empty name
// list runs every registered suite. The first suite error (a target that
// cannot be loaded at all) aborts the run; findings do not.
func (r *Runner) Run(ctx context.Context, names []string, t *suite.Target) ([]*suite.Result, error) {
	suites := make([]suite.Suite, 0, len(names))
	if len(names) == 0 {
		suites = r.registry.All()
	} else {
		for _, name := range names {
			s, err := r.registry.Get(name)
			if err != nil {
				return nil, err
			}
			suites = append(suites, s)
		}
	}

	var results []*suite.Result
	for _, s := range suites {
		started := time.Now()
		res, err := s.Run(ctx, t)
		if err != nil {
			return results, err
		}
		r.logger.Debug("suite completed",
			"suite", s.Name(), "ok", res.OK,
			"passed", res.Passed(), "failed", res.Failed(), "warned", res.Warned(),
			"duration", time.Since(started))
		r.record(ctx, started, res)
		results = append(results, res)
	}
	return results, nil
}

// record persists a run. Best-effort: history failures are logged and never
// change the verification outcome.
func (r *Runner) record(ctx context.Context, started time.Time, res *suite.Result) {
	if r.store == nil {
		return
	}
	findings, err := json.Marshal(res.Findings)
	if err != nil {
		r.logger.Warn("marshal findings for history", "error", err)
		findings = []byte("[]")
	}
	run := &storage.Run{
		StartedAt: started,
		Suite:     res.Suite,
		OK:        res.OK,
		Passed:    res.Passed(),
		Failed:    res.Failed(),
		Warned:    res.Warned(),
		Findings:  findings,
	}
	if err := r.store.InsertRun(ctx, run); err != nil {
		r.logger.Warn("record run history", "error", err)
	}
}
