package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/qbank/pkg/qbank/expand"
	"github.com/cognicore/qbank/pkg/qbank/textnorm"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// Rules is the on-disk form of the topic tables.
type Rules struct {
	Stopwords []string        `yaml:"stopwords"`
	Topics    []TopicRule     `yaml:"topics"`
	Canonical []CanonicalRule `yaml:"canonical"`
	Expansion Expansion       `yaml:"expansion"`
}

// TopicRule holds the hints, signal pattern and fallback subcategory of a topic.
type TopicRule struct {
	ID       string      `yaml:"id"`
	Hints    []string    `yaml:"hints"`
	Signal   string      `yaml:"signal"`
	Fallback string      `yaml:"fallback"`
	Focus    []FocusRule `yaml:"focus"`
}

// FocusRule is one expansion theme and the answer marked correct for it.
type FocusRule struct {
	Focus  string `yaml:"focus"`
	Answer string `yaml:"answer"`
}

// Expansion holds the themes shared by every topic.
type Expansion struct {
	Generic []FocusRule `yaml:"generic"`
}

// FocusBank returns the expansion themes of a topic followed by the generic
// ones.
func (r *Rules) FocusBank(topicID string) []expand.Focus {
	var out []expand.Focus
	add := func(rules []FocusRule) {
		for _, f := range rules {
			if strings.TrimSpace(f.Focus) != "" && strings.TrimSpace(f.Answer) != "" {
				out = append(out, expand.Focus{Focus: strings.TrimSpace(f.Focus), Answer: strings.TrimSpace(f.Answer)})
			}
		}
	}
	for _, t := range r.Topics {
		if strings.TrimSpace(t.ID) == topicID {
			add(t.Focus)
			break
		}
	}
	add(r.Expansion.Generic)
	return out
}

// CanonicalRule maps a topic to the substrings that identify it as canonical.
type CanonicalRule struct {
	Topic string   `yaml:"topic"`
	Hints []string `yaml:"hints"`
}

// DefaultRules returns the built-in rules table.
func DefaultRules() (*Rules, error) {
	return ParseRules(defaultRulesYAML)
}

// LoadRules loads a rules table from a YAML file
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRules(data)
}

// ParseRules decodes and checks a rules table.
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(r.Topics))
	for i, t := range r.Topics {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			return nil, fmt.Errorf("topics[%d]: id is required", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("topics[%d]: duplicate id %q", i, id)
		}
		seen[id] = struct{}{}
	}
	for i, c := range r.Canonical {
		if strings.TrimSpace(c.Topic) == "" {
			return nil, fmt.Errorf("canonical[%d]: topic is required", i)
		}
	}
	return &r, nil
}

// Stoplist adjusts the stopwords of the rules table. A non-empty Terms
// replaces the list; Add and Keep then add and remove single words.
type Stoplist struct {
	Terms []string `yaml:"terms"`
	Add   []string `yaml:"add"`
	Keep  []string `yaml:"keep"`
}

// Apply returns tok adjusted by the stoplist.
func (sl *Stoplist) Apply(tok *textnorm.Tokenizer) *textnorm.Tokenizer {
	if len(sl.Terms) > 0 {
		tok = textnorm.NewTokenizer(sl.Terms)
	}
	for _, w := range sl.Add {
		if w = strings.TrimSpace(w); w != "" {
			tok.AddStopword(w)
		}
	}
	for _, w := range sl.Keep {
		tok.RemoveStopword(strings.TrimSpace(w))
	}
	return tok
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}
