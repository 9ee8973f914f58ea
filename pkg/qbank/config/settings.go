package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cognicore/qbank/pkg/qbank/internalerr"
)

// Settings holds the runtime knobs shared by every pipeline stage.
type Settings struct {
	// Root is the repository root that topic file paths are relative to.
	Root string

	// IndexPath is the topic index, relative to Root unless absolute.
	// Default: data/topics.json
	IndexPath string

	// DocsDir receives the JSON and Markdown artifacts.
	// Default: docs
	DocsDir string

	// RulesPath selects a rules.yaml; empty uses the embedded table.
	RulesPath string

	// StoplistPath selects a stoplist.yaml adjusting the rules' stopwords.
	StoplistPath string

	// NearThreshold is the minimum similarity ratio for near-duplicates.
	// Default: 0.92
	NearThreshold float64

	// MinScore is the minimum best_other score before the batch stage acts.
	// Default: 4
	MinScore int

	// RequireSignal gates moves on the target topic's lexical signal.
	// Default: true
	RequireSignal bool

	// LedgerPath is the sqlite run ledger, relative to Root unless absolute.
	// Default: .qbank-ledger.db
	LedgerPath string

	// LogMode is "dev" (console) or "prod" (JSON).
	LogMode string
}

// DefaultSettings returns the default settings
func DefaultSettings() Settings {
	return Settings{
		Root:          ".",
		IndexPath:     "data/topics.json",
		DocsDir:       "docs",
		NearThreshold: 0.92,
		MinScore:      4,
		RequireSignal: true,
		LedgerPath:    ".qbank-ledger.db",
		LogMode:       "dev",
	}
}

// Validate checks if the settings have valid values
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Root) == "" {
		return fmt.Errorf("%w: root is required", internalerr.ErrInvalidConfig)
	}
	if strings.TrimSpace(s.IndexPath) == "" {
		return fmt.Errorf("%w: index path is required", internalerr.ErrInvalidConfig)
	}
	if s.NearThreshold <= 0.0 || s.NearThreshold > 1.0 {
		return fmt.Errorf("%w: near_threshold must be in (0.0, 1.0] (got %.2f)",
			internalerr.ErrInvalidConfig, s.NearThreshold)
	}
	if s.MinScore < 0 {
		return fmt.Errorf("%w: min_score cannot be negative (got %d)", internalerr.ErrInvalidConfig, s.MinScore)
	}
	switch s.LogMode {
	case "dev", "prod":
	default:
		return fmt.Errorf("%w: log_mode must be dev or prod (got %q)", internalerr.ErrInvalidConfig, s.LogMode)
	}
	return nil
}

// String returns a human-readable representation of the settings
func (s Settings) String() string {
	return fmt.Sprintf(
		"Settings{Root: %s, Index: %s, Docs: %s, NearThreshold: %.2f, MinScore: %d, RequireSignal: %t}",
		s.Root, s.IndexPath, s.DocsDir, s.NearThreshold, s.MinScore, s.RequireSignal,
	)
}

// SettingsFromEnv creates Settings from environment variables, falling back to defaults
//
// Environment variables:
//   - QBANK_ROOT: repository root (default: .)
//   - QBANK_INDEX: topic index path (default: data/topics.json)
//   - QBANK_DOCS_DIR: artifact directory (default: docs)
//   - QBANK_RULES: rules.yaml path (default: embedded table)
//   - QBANK_STOPLIST: stoplist.yaml path (default: none)
//   - QBANK_NEAR_THRESHOLD: near-duplicate ratio (default: 0.92)
//   - QBANK_MIN_SCORE: batch minimum score (default: 4)
//   - QBANK_REQUIRE_SIGNAL: require target signal for moves (default: true)
//   - QBANK_LEDGER: run ledger path (default: .qbank-ledger.db)
//   - QBANK_LOG_MODE: dev or prod (default: dev)
func SettingsFromEnv() (Settings, error) {
	s := DefaultSettings()

	parseEnvString("QBANK_ROOT", &s.Root)
	parseEnvString("QBANK_INDEX", &s.IndexPath)
	parseEnvString("QBANK_DOCS_DIR", &s.DocsDir)
	parseEnvString("QBANK_RULES", &s.RulesPath)
	parseEnvString("QBANK_STOPLIST", &s.StoplistPath)
	parseEnvString("QBANK_LEDGER", &s.LedgerPath)
	parseEnvString("QBANK_LOG_MODE", &s.LogMode)

	if err := parseEnvFloat("QBANK_NEAR_THRESHOLD", &s.NearThreshold); err != nil {
		return s, err
	}
	if err := parseEnvInt("QBANK_MIN_SCORE", &s.MinScore); err != nil {
		return s, err
	}
	if err := parseEnvBool("QBANK_REQUIRE_SIGNAL", &s.RequireSignal); err != nil {
		return s, err
	}

	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return s, nil
}

func parseEnvString(key string, dest *string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dest = value
	}
}

func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid value for %s: %v", internalerr.ErrInvalidConfig, key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: invalid value for %s: %v", internalerr.ErrInvalidConfig, key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%w: invalid value for %s: %v", internalerr.ErrInvalidConfig, key, err)
	}
	*dest = parsed
	return nil
}
