package taxonomy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cognicore/qbank/pkg/qbank/internalerr"
	"github.com/cognicore/qbank/pkg/qbank/textnorm"
)

// Topic holds the hand-authored tables for one topic id.
type Topic struct {
	ID       string
	Hints    []string       // profile tokens added verbatim to the topic profile
	Signal   *regexp.Regexp // lexical gate required before moving a question here
	Fallback string         // subcategory that receives moved questions
}

type canonicalRule struct {
	topic string
	hints []string // matched as substrings of the normalized question text
}

// Taxonomy maps topic ids to profile hints, signal patterns and fallback
// subcategories. Matching code never hard-codes topic ids; everything is
// looked up here.
type Taxonomy struct {
	topics    map[string]*Topic
	order     []string
	canonical []canonicalRule
}

// NewTaxonomy creates an empty taxonomy.
func NewTaxonomy() *Taxonomy {
	return &Taxonomy{topics: make(map[string]*Topic)}
}

// AddTopic registers (or replaces) the tables for a topic. The signal
// pattern is compiled case-insensitively; an empty pattern means the topic
// never accepts moves when signals are required.
func (t *Taxonomy) AddTopic(id string, hints []string, signal, fallback string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: taxonomy: topic id is required", internalerr.ErrInvalidConfig)
	}

	topic := &Topic{ID: id, Fallback: strings.TrimSpace(fallback)}
	for _, h := range hints {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			topic.Hints = append(topic.Hints, h)
		}
	}
	if strings.TrimSpace(signal) != "" {
		re, err := regexp.Compile("(?i)" + signal)
		if err != nil {
			return fmt.Errorf("%w: taxonomy: topic %s signal: %w", internalerr.ErrInvalidConfig, id, err)
		}
		topic.Signal = re
	}

	if _, exists := t.topics[id]; !exists {
		t.order = append(t.order, id)
	}
	t.topics[id] = topic
	return nil
}

// AddCanonical appends a canonical-topic rule. Rules are evaluated in the
// order they were added; the first hint found wins.
func (t *Taxonomy) AddCanonical(topic string, hints []string) {
	normalized := make([]string, 0, len(hints))
	for _, h := range hints {
		if h = strings.ToLower(h); h != "" {
			normalized = append(normalized, h)
		}
	}
	t.canonical = append(t.canonical, canonicalRule{topic: topic, hints: normalized})
}

// Topic returns the tables registered for id.
func (t *Taxonomy) Topic(id string) (*Topic, bool) {
	topic, ok := t.topics[id]
	return topic, ok
}

// TopicIDs returns registered topic ids in registration order.
func (t *Taxonomy) TopicIDs() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Hints returns the profile hint tokens for a topic (nil when unknown).
func (t *Taxonomy) Hints(id string) []string {
	if topic, ok := t.topics[id]; ok {
		return topic.Hints
	}
	return nil
}

// HasSignal reports whether text carries the explicit lexical signal of the
// target topic. Unknown topics and topics without a pattern never match.
func (t *Taxonomy) HasSignal(id, text string) bool {
	topic, ok := t.topics[id]
	if !ok || topic.Signal == nil {
		return false
	}
	return topic.Signal.MatchString(text)
}

// Fallback returns the default subcategory for moves into topic id.
func (t *Taxonomy) Fallback(id string) (string, bool) {
	topic, ok := t.topics[id]
	if !ok || topic.Fallback == "" {
		return "", false
	}
	return topic.Fallback, true
}

// InferCanonical returns the canonical topic for a question text together
// with the evidence ("token:<hint>") that selected it.
func (t *Taxonomy) InferCanonical(questionText string) (string, string, bool) {
	norm := textnorm.Normalize(questionText)
	for _, rule := range t.canonical {
		for _, h := range rule.hints {
			if strings.Contains(norm, h) {
				return rule.topic, "token:" + h, true
			}
		}
	}
	return "", "none", false
}
