package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cognicore/qbank/internal/logger"
	"github.com/cognicore/qbank/pkg/qbank/config"
	"github.com/cognicore/qbank/pkg/qbank/corpus"
	"github.com/cognicore/qbank/pkg/qbank/jsonio"
	"github.com/cognicore/qbank/pkg/qbank/ledger"
	"github.com/cognicore/qbank/pkg/qbank/report"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	settings config.Settings
	comp     *config.Components
	log      *logger.Logger
	out      io.Writer
	printer  *message.Printer
}

func (a *app) init(cmd *cobra.Command) error {
	s, err := config.SettingsFromEnv()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	overrides := map[string]*string{
		"root":     &s.Root,
		"index":    &s.IndexPath,
		"docs-dir": &s.DocsDir,
		"rules":    &s.RulesPath,
		"stoplist": &s.StoplistPath,
		"ledger":   &s.LedgerPath,
		"log-mode": &s.LogMode,
	}
	for name, dest := range overrides {
		if !flags.Changed(name) {
			continue
		}
		if *dest, err = flags.GetString(name); err != nil {
			return err
		}
	}
	if err := s.Validate(); err != nil {
		return err
	}
	a.settings = s

	if a.log, err = logger.New(s.LogMode); err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	loader := &config.Loader{RulesPath: a.path(s.RulesPath), StoplistPath: a.path(s.StoplistPath)}
	if a.comp, err = loader.Load(); err != nil {
		return err
	}

	a.out = cmd.OutOrStdout()
	a.printer = message.NewPrinter(language.English)

	a.log.Debug("settings loaded", "settings", s.String())
	return nil
}

func (a *app) close() {
	if a.log != nil {
		a.log.Sync()
	}
}

// path resolves rel against the repository root. Empty stays empty.
func (a *app) path(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(a.settings.Root, rel)
}

// docPath returns flagValue resolved against the root, or the default
// artifact name under the docs directory.
func (a *app) docPath(flagValue, name string) string {
	if flagValue != "" {
		return a.path(flagValue)
	}
	return a.path(filepath.Join(a.settings.DocsDir, name))
}

// rel shortens path for display and the ledger.
func (a *app) rel(path string) string {
	if r, err := filepath.Rel(a.settings.Root, path); err == nil {
		return filepath.ToSlash(r)
	}
	return path
}

func (a *app) loadCorpus() (*corpus.Corpus, error) {
	c, err := corpus.Load(a.settings.Root, a.settings.IndexPath)
	if err != nil {
		return nil, err
	}
	for _, sk := range c.Skipped {
		a.log.Warn("topic skipped", "topic", sk.Topic, "file", sk.File, "reason", sk.Reason)
	}
	for _, an := range c.Anomalies {
		a.log.Warn("structural anomaly",
			"kind", an.Kind, "file", an.File, "subcategory", an.Subcategory,
			"position", an.Position, "detail", an.Detail)
	}
	a.log.Info("corpus loaded", "topics", len(c.Topics), "skipped", len(c.Skipped))
	return c, nil
}

// writeArtifacts writes the JSON artifact and its Markdown rendering.
func (a *app) writeArtifacts(jsonPath string, v any, mdPath, md string) error {
	if err := jsonio.WriteFile(jsonPath, v); err != nil {
		return fmt.Errorf("write %s: %w", jsonPath, err)
	}
	if err := report.WriteFile(mdPath, md); err != nil {
		return fmt.Errorf("write %s: %w", mdPath, err)
	}
	a.log.Info("artifacts written", "json", a.rel(jsonPath), "markdown", a.rel(mdPath))
	return nil
}

func (a *app) openLedger(ctx context.Context) (*ledger.Ledger, error) {
	l, err := ledger.Open(ctx, a.path(a.settings.LedgerPath))
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return l, nil
}

// stageOutcome is what a stage hands back for the ledger.
type stageOutcome struct {
	Summary  any
	Artifact string
}

// runStage runs fn under a fresh run id and records it in the ledger.
// Applying stages hold the corpus lock for the duration of fn.
func (a *app) runStage(ctx context.Context, stage string, apply bool, fn func(runID string) (stageOutcome, error)) error {
	l, err := a.openLedger(ctx)
	if err != nil {
		return err
	}
	defer l.Close()

	if apply {
		holder := lockHolder(stage)
		if err := l.Acquire(ctx, holder); err != nil {
			return err
		}
		a.log.Debug("corpus lock acquired", "holder", holder)
		defer func() {
			if err := l.Release(context.Background(), holder); err != nil {
				a.log.Warn("release corpus lock", "holder", holder, "error", err)
			}
		}()
	}

	started := time.Now()
	runID := l.NewRunID()
	log := a.log.With("stage", stage, "run_id", runID)
	log.Info("stage started", "apply", apply)

	outcome, err := fn(runID)
	if err != nil {
		log.Error("stage failed", "error", err)
		return err
	}

	summary, err := json.Marshal(outcome.Summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	run := &ledger.Run{
		ID:        runID,
		Stage:     stage,
		Applied:   apply,
		StartedAt: started,
		Summary:   summary,
		Artifact:  a.rel(outcome.Artifact),
	}
	if err := l.RecordRun(ctx, run); err != nil {
		return err
	}
	log.Info("stage finished", "elapsed", time.Since(started).String())
	return nil
}

func lockHolder(stage string) string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s@%s:%d", stage, host, os.Getpid())
}

// Output helpers.

func (a *app) dryRunBanner(apply bool) {
	if !apply {
		fmt.Fprintln(a.out, color.YellowString("DRY RUN - no topic files will be written (use --apply)"))
	}
}

func (a *app) count(label string, n int) {
	fmt.Fprintf(a.out, "  %-40s %s\n", label+":", a.printer.Sprintf("%d", n))
}

func (a *app) done(format string, args ...any) {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(a.out, "%s %s\n", green("✓"), fmt.Sprintf(format, args...))
}
