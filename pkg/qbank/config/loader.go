package config

import (
	"fmt"

	"github.com/cognicore/qbank/pkg/qbank/taxonomy"
	"github.com/cognicore/qbank/pkg/qbank/textnorm"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	RulesPath    string // empty selects the embedded defaults
	StoplistPath string // adjusts the stopwords of the rules table
}

// Components holds all loaded configuration components
type Components struct {
	Tokenizer *textnorm.Tokenizer
	Taxonomy  *taxonomy.Taxonomy
	Rules     *Rules
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	var (
		rules *Rules
		err   error
	)
	if l.RulesPath != "" {
		rules, err = LoadRules(l.RulesPath)
	} else {
		rules, err = DefaultRules()
	}
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	comp := &Components{Rules: rules}

	if len(rules.Stopwords) > 0 {
		comp.Tokenizer = textnorm.NewTokenizer(rules.Stopwords)
	} else {
		comp.Tokenizer = textnorm.NewDefaultTokenizer()
	}
	if l.StoplistPath != "" {
		stoplist, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		comp.Tokenizer = stoplist.Apply(comp.Tokenizer)
	}

	tax, err := BuildTaxonomy(rules)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}
	comp.Taxonomy = tax

	return comp, nil
}

// BuildTaxonomy compiles a rules table.
func BuildTaxonomy(rules *Rules) (*taxonomy.Taxonomy, error) {
	tax := taxonomy.NewTaxonomy()
	for _, t := range rules.Topics {
		if err := tax.AddTopic(t.ID, t.Hints, t.Signal, t.Fallback); err != nil {
			return nil, err
		}
	}
	for _, c := range rules.Canonical {
		tax.AddCanonical(c.Topic, c.Hints)
	}
	return tax, nil
}
