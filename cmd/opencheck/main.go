package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/opencheck/opencheck/internal/config"
	"github.com/opencheck/opencheck/internal/doctor"
	"github.com/opencheck/opencheck/internal/document"
	"github.com/opencheck/opencheck/internal/links"
	"github.com/opencheck/opencheck/internal/manifest"
	"github.com/opencheck/opencheck/internal/report"
	"github.com/opencheck/opencheck/internal/server"
	"github.com/opencheck/opencheck/internal/storage"
	"github.com/opencheck/opencheck/internal/suite"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "opencheck",
		Usage:   "verify an opencode agent-toolkit installation",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config-file",
				Usage: "opencheck YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "deployed opencode configuration file",
				Sources: cli.EnvVars(config.EnvConfigPath),
			},
			&cli.StringFlag{
				Name:  "root",
				Usage: "toolkit repository root",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "emit the raw report as JSON",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable styled output",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "verify",
				Usage:     "verify the deployed opencode configuration invariants",
				ArgsUsage: "[config-path]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runSuites(ctx, cmd, []string{"config"}, cmd.Args().First())
				},
			},
			{
				Name:  "manifest",
				Usage: "validate toolkit manifest integrity and generated artifacts",
				Commands: []*cli.Command{
					{
						Name:   "sync",
						Usage:  "regenerate the registry and generated blocks from the manifest",
						Action: runManifestSync,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runSuites(ctx, cmd, []string{"manifest"}, "")
				},
			},
			{
				Name:  "routing",
				Usage: "validate skill triggers, command policy and agent alignment",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runSuites(ctx, cmd, []string{"routing"}, "")
				},
			},
			{
				Name:  "commands",
				Usage: "validate /crew command references and template surface",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runSuites(ctx, cmd, []string{"commands"}, "")
				},
			},
			{
				Name:  "links",
				Usage: "validate markdown links under the toolkit root",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "external",
						Usage: "also fetch and verify http(s) links",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runSuites(ctx, cmd, []string{"links"}, "")
				},
			},
			{
				Name:  "all",
				Usage: "run every verification suite",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runSuites(ctx, cmd, nil, "")
				},
			},
			{
				Name:  "history",
				Usage: "list recent verification runs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "suite", Usage: "filter by suite name"},
					&cli.IntFlag{Name: "limit", Usage: "maximum runs to list", Value: 20},
				},
				Action: runHistory,
			},
			{
				Name:   "watch",
				Usage:  "re-verify on an interval and serve live reports",
				Action: runWatch,
			},
		},
		// bare invocation behaves like `opencheck verify`
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runSuites(ctx, cmd, []string{"config"}, cmd.Args().First())
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if _, ok := err.(cli.ExitCoder); !ok {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		cli.HandleExitCoder(err)
	}
}

// setup loads the tool configuration and applies command-line overrides.
func setup(cmd *cli.Command) (*config.Config, *slog.Logger, report.Styles, error) {
	cfg, err := config.Load(cmd.String("config-file"))
	if err != nil {
		return nil, nil, report.Styles{}, err
	}
	if root := cmd.String("root"); root != "" {
		cfg.Target.Root = root
	}
	if path := cmd.String("config"); path != "" {
		cfg.Target.ConfigPath = path
	}
	if level := cmd.String("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if cmd.Bool("external") {
		cfg.Links.External = true
	}

	logger := setupLogger(cfg.Logging)

	styles := report.DefaultStyles()
	if cmd.Bool("no-color") {
		styles = report.PlainStyles()
	}
	return cfg, logger, styles, nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

// openStore opens the history database. Best-effort: a history failure
// must never block verification.
func openStore(cfg *config.Config, logger *slog.Logger) storage.Store {
	if !cfg.History.Enabled {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o755); err != nil {
		logger.Warn("create history directory", "error", err)
		return nil
	}
	store, err := storage.NewSQLiteStore(cfg.History.Path, cfg.History.MaxReadConns)
	if err != nil {
		logger.Warn("open history database", "error", err)
		return nil
	}

	// enforce the retention window on every open; watch mode additionally
	// re-purges on a ticker
	before := time.Now().AddDate(0, 0, -cfg.History.RetentionDays)
	if _, err := store.PurgeOldRuns(context.Background(), before); err != nil {
		logger.Warn("purge run history", "error", err)
	}
	return store
}

func newRunner(cfg *config.Config, store storage.Store, logger *slog.Logger) *doctor.Runner {
	external := links.NewExternalChecker(cfg.Links.RatePerSec, cfg.Links.Burst, cfg.Links.Timeout)
	return doctor.NewRunner(doctor.DefaultRegistry(external), store, logger)
}

func targetFrom(cfg *config.Config) *suite.Target {
	return &suite.Target{
		Root:          cfg.Target.Root,
		ConfigPath:    cfg.Target.ConfigPath,
		ExternalLinks: cfg.Links.External,
	}
}

func runSuites(ctx context.Context, cmd *cli.Command, names []string, configPath string) error {
	cfg, logger, styles, err := setup(cmd)
	if err != nil {
		return err
	}
	if configPath != "" {
		cfg.Target.ConfigPath = configPath
	}

	store := openStore(cfg, logger)
	if store != nil {
		defer store.Close()
	}

	runner := newRunner(cfg, store, logger)
	results, err := runner.Run(ctx, names, targetFrom(cfg))
	if err != nil {
		return fatalError(err)
	}

	if cmd.Bool("json") {
		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		for _, res := range results {
			for _, line := range report.Render(res, styles) {
				fmt.Println(line)
			}
		}
		for _, line := range report.RenderSummary(results, styles) {
			fmt.Println(line)
		}
	}

	if code := report.ExitCode(results); code != report.ExitOK {
		return cli.Exit("", code)
	}
	return nil
}

// fatalError maps load failures to their distinct exit codes: a missing
// configuration file and malformed JSON are different failures than a
// failing assertion.
func fatalError(err error) error {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)

	var parseErr *document.ParseError
	switch {
	case errors.Is(err, document.ErrNotFound):
		return cli.Exit("", report.ExitConfigNotFound)
	case errors.As(err, &parseErr):
		return cli.Exit("", report.ExitConfigInvalid)
	default:
		return cli.Exit("", 1)
	}
}

func runManifestSync(ctx context.Context, cmd *cli.Command) error {
	cfg, _, _, err := setup(cmd)
	if err != nil {
		return err
	}

	m, err := manifest.Load(cfg.Target.Root)
	if err != nil {
		return err
	}
	written, err := manifest.Sync(cfg.Target.Root, m)
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Printf("synced %s\n", path)
	}
	return nil
}

func runHistory(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, _, err := setup(cmd)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled in configuration")
	}

	store := openStore(cfg, logger)
	if store == nil {
		return fmt.Errorf("history database unavailable")
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, cmd.String("suite"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	for _, r := range runs {
		verdict := "ok"
		if !r.OK {
			verdict = "FAILED"
		}
		fmt.Printf("%6d  %s  %-10s %-7s passed=%d failed=%d warned=%d\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Suite, verdict, r.Passed, r.Failed, r.Warned)
	}
	return nil
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, _, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := openStore(cfg, logger)
	if store != nil {
		defer store.Close()
		retention := storage.NewRetentionWorker(store, cfg.History.RetentionDays, 6*time.Hour, logger)
		go retention.Run(ctx)
	}

	runner := newRunner(cfg, store, logger)
	watcher := server.NewWatcher(runner, targetFrom(cfg), nil, cfg.Watch.Interval, logger)

	go watcher.Run(ctx)

	logger.Info("starting opencheck watch", "version", version,
		"listen", cfg.Watch.Listen, "interval", cfg.Watch.Interval)
	return server.Serve(ctx, cfg.Watch.Listen, watcher.Handler(), logger)
}
