package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/qbank/pkg/qbank/internalerr"
)

func TestDefaultRules(t *testing.T) {
	rules, err := DefaultRules()
	require.NoError(t, err)

	require.Len(t, rules.Topics, 10)
	assert.Len(t, rules.Stopwords, 25)
	assert.Len(t, rules.Canonical, 8)

	byID := make(map[string]TopicRule)
	for _, tr := range rules.Topics {
		byID[tr.ID] = tr
	}
	assert.Equal(t, "psr_general_admin", byID["psr"].Fallback)
	assert.Equal(t, "comp_verbal_reasoning", byID["competency_framework"].Fallback)
	assert.Contains(t, byID["procurement_act"].Hints, "tender")
	assert.Contains(t, byID["ict_management"].Hints, "e-governance")

	assert.Equal(t, "psr", rules.Canonical[0].Topic)
	assert.Contains(t, rules.Canonical[0].Hints, "gl ")
}

func TestFocusBank(t *testing.T) {
	rules, err := DefaultRules()
	require.NoError(t, err)

	bank := rules.FocusBank("procurement_act")
	require.Len(t, bank, 5+10)
	assert.Equal(t, "open competition", bank[0].Focus)
	assert.Equal(t, "documented procedure", bank[5].Focus)
	assert.Equal(t, "Follow documented procedure and keep complete records.", bank[5].Answer)

	assert.Len(t, rules.FocusBank("unknown"), 10)
}

func TestLoadStoplist(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "stoplist.yaml")

	content := `terms:
  - the
  - a
  - and
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	sl, err := LoadStoplist(path)
	if err != nil {
		t.Fatalf("Failed to load stoplist: %v", err)
	}
	assert.ElementsMatch(t, []string{"the", "a", "and"}, sl.Terms)
}

func TestParseRulesRejectsDuplicateTopic(t *testing.T) {
	_, err := ParseRules([]byte(`topics:
  - id: psr
  - id: psr
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
}

func TestParseRulesRejectsMissingID(t *testing.T) {
	_, err := ParseRules([]byte(`topics:
  - hints: [a]
`))
	require.Error(t, err)
}

func TestLoaderDefaults(t *testing.T) {
	loader := Loader{}
	comp, err := loader.Load()
	require.NoError(t, err)

	require.NotNil(t, comp.Tokenizer)
	require.NotNil(t, comp.Taxonomy)
	assert.Equal(t, 25, comp.Tokenizer.Stopwords())
	assert.Len(t, comp.Taxonomy.TopicIDs(), 10)

	assert.True(t, comp.Taxonomy.HasSignal("procurement_act", "Role of the BPP in tendering"))
	assert.True(t, comp.Taxonomy.HasSignal("psr", "Under Rule 020101 an officer..."))
	assert.True(t, comp.Taxonomy.HasSignal("psr", "Officers on GL. 08"))
	assert.False(t, comp.Taxonomy.HasSignal("psr", "What is a tender?"))
}

func TestLoaderCustomRulesAndStoplist(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "rules.yaml")
	stopPath := filepath.Join(dir, "stop.yaml")

	require.NoError(t, os.WriteFile(rulesPath, []byte(`stopwords: [the]
topics:
  - id: alpha
    hints: [Alpha, beta]
    signal: '\balpha\b'
    fallback: alpha_general
canonical:
  - topic: alpha
    hints: [alpha]
`), 0644))
	require.NoError(t, os.WriteFile(stopPath, []byte("terms: [x, y]\n"), 0644))

	comp, err := (&Loader{RulesPath: rulesPath, StoplistPath: stopPath}).Load()
	require.NoError(t, err)

	assert.Equal(t, 2, comp.Tokenizer.Stopwords())
	assert.Equal(t, []string{"alpha"}, comp.Taxonomy.TopicIDs())
	assert.Equal(t, []string{"alpha", "beta"}, comp.Taxonomy.Hints("alpha"))
	fb, ok := comp.Taxonomy.Fallback("alpha")
	assert.True(t, ok)
	assert.Equal(t, "alpha_general", fb)
}

func TestLoaderStoplistAdjustsRules(t *testing.T) {
	dir := t.TempDir()
	stopPath := filepath.Join(dir, "stop.yaml")
	require.NoError(t, os.WriteFile(stopPath, []byte("add: [Officer, ' ']\nkeep: [what, which]\n"), 0644))

	comp, err := (&Loader{StoplistPath: stopPath}).Load()
	require.NoError(t, err)

	assert.Equal(t, 24, comp.Tokenizer.Stopwords())
	assert.Equal(t, []string{"which", "rank"}, comp.Tokenizer.Tokenize("Which officer rank"))
}

func TestLoaderErrors(t *testing.T) {
	_, err := (&Loader{RulesPath: "/nonexistent/rules.yaml"}).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load rules")

	_, err = (&Loader{StoplistPath: "/nonexistent/stop.yaml"}).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load stoplist")

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("topics:\n  - id: x\n    signal: '(unclosed'\n"), 0644))
	_, err = (&Loader{RulesPath: bad}).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load taxonomy")
}

func TestSettingsFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(t *testing.T, s Settings)
	}{
		{
			name:    "no environment variables uses defaults",
			envVars: map[string]string{},
			check: func(t *testing.T, s Settings) {
				assert.Equal(t, DefaultSettings(), s)
			},
		},
		{
			name: "valid custom settings",
			envVars: map[string]string{
				"QBANK_ROOT":           "/srv/bank",
				"QBANK_NEAR_THRESHOLD": "0.85",
				"QBANK_MIN_SCORE":      "6",
				"QBANK_REQUIRE_SIGNAL": "false",
				"QBANK_LOG_MODE":       "prod",
				"QBANK_STOPLIST":       "config/stop.yaml",
			},
			check: func(t *testing.T, s Settings) {
				assert.Equal(t, "/srv/bank", s.Root)
				assert.Equal(t, "config/stop.yaml", s.StoplistPath)
				assert.Equal(t, 0.85, s.NearThreshold)
				assert.Equal(t, 6, s.MinScore)
				assert.False(t, s.RequireSignal)
				assert.Equal(t, "prod", s.LogMode)
			},
		},
		{
			name:    "invalid float",
			envVars: map[string]string{"QBANK_NEAR_THRESHOLD": "high"},
			wantErr: true,
		},
		{
			name:    "threshold out of range",
			envVars: map[string]string{"QBANK_NEAR_THRESHOLD": "1.5"},
			wantErr: true,
		},
		{
			name:    "invalid bool",
			envVars: map[string]string{"QBANK_REQUIRE_SIGNAL": "maybe"},
			wantErr: true,
		},
		{
			name:    "negative min score",
			envVars: map[string]string{"QBANK_MIN_SCORE": "-1"},
			wantErr: true,
		},
	}

	keys := []string{
		"QBANK_ROOT", "QBANK_INDEX", "QBANK_DOCS_DIR", "QBANK_RULES", "QBANK_STOPLIST", "QBANK_LEDGER",
		"QBANK_LOG_MODE", "QBANK_NEAR_THRESHOLD", "QBANK_MIN_SCORE", "QBANK_REQUIRE_SIGNAL",
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range keys {
				t.Setenv(k, "")
			}
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			s, err := SettingsFromEnv()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig))
				return
			}
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func TestSettingsValidateLogMode(t *testing.T) {
	s := DefaultSettings()
	s.LogMode = "verbose"
	assert.Error(t, s.Validate())
}
