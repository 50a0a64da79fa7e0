// Command snapshot-check loads a persisted cache snapshot, runs the
// consistency rules over it, and reports violations. Dangling references can
// optionally be repaired in place.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"cachecore/internal/config"
	"cachecore/internal/provider"
	"cachecore/internal/snapshot"
	"cachecore/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

type options struct {
	driver  string
	sqlite  string
	dsn     string
	jsonOut bool
	repair  bool
}

func cli(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 2
	}

	fs := flag.NewFlagSet("snapshot-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.driver, "driver", cfg.SnapshotDriver, "snapshot driver (memory|sqlite|postgres)")
	fs.StringVar(&opts.sqlite, "sqlite", cfg.SQLitePath, "path to sqlite snapshot file")
	fs.StringVar(&opts.dsn, "dsn", cfg.PostgresDSN, "postgres DSN when driver=postgres")
	fs.BoolVar(&opts.jsonOut, "json", false, "emit the report as JSON")
	fs.BoolVar(&opts.repair, "repair", false, "clear dangling references and save the snapshot back")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	report, err := run(context.Background(), opts, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "snapshot check failed: %v\n", err)
		return 2
	}
	if report.HasBlocking() {
		return 1
	}
	return 0
}

func run(ctx context.Context, opts options, stdout io.Writer) (domain.Result, error) {
	store, err := snapshot.Open(ctx, snapshot.Params{
		Driver:      snapshot.Driver(opts.driver),
		SQLitePath:  opts.sqlite,
		PostgresDSN: opts.dsn,
	})
	if err != nil {
		return domain.Result{}, fmt.Errorf("open snapshot store: %w", err)
	}
	defer func() { _ = store.Close() }()

	snap, err := store.Load(ctx)
	if err != nil {
		return domain.Result{}, fmt.Errorf("load snapshot: %w", err)
	}

	engine := domain.NewRulesEngine()
	engine.Register(provider.TaskReferencesRule())
	engine.Register(provider.DuplicateIDsRule())

	result, err := engine.Evaluate(ctx, snapshot.View(snap), nil)
	if err != nil {
		return domain.Result{}, fmt.Errorf("evaluate rules: %w", err)
	}

	repaired := 0
	if opts.repair && len(result.Violations) > 0 {
		migrated, dropped := snapshot.Migrate(snap)
		if dropped > 0 {
			if err := store.Save(ctx, migrated); err != nil {
				return domain.Result{}, fmt.Errorf("save repaired snapshot: %w", err)
			}
			repaired = dropped
			result, err = engine.Evaluate(ctx, snapshot.View(migrated), nil)
			if err != nil {
				return domain.Result{}, fmt.Errorf("re-evaluate rules: %w", err)
			}
		}
	}

	if err := printReport(stdout, snap.Len(), repaired, result, opts.jsonOut); err != nil {
		return domain.Result{}, err
	}
	return result, nil
}

type reportPayload struct {
	Entities   int                `json:"entities"`
	Repaired   int                `json:"repaired,omitempty"`
	Consistent bool               `json:"consistent"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

func printReport(stdout io.Writer, entities, repaired int, result domain.Result, asJSON bool) error {
	if asJSON {
		payload := reportPayload{
			Entities:   entities,
			Repaired:   repaired,
			Consistent: len(result.Violations) == 0,
			Violations: result.Violations,
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	fmt.Fprintf(stdout, "checked %d entities\n", entities)
	if repaired > 0 {
		fmt.Fprintf(stdout, "repaired %d dangling references\n", repaired)
	}
	if len(result.Violations) == 0 {
		fmt.Fprintln(stdout, "snapshot is consistent")
		return nil
	}
	for _, v := range result.Violations {
		fmt.Fprintf(stdout, "[%s] %s: %s\n", v.Severity, v.Rule, v.Message)
	}
	fmt.Fprintf(stdout, "%d violations found\n", len(result.Violations))
	return nil
}
