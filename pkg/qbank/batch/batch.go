// Package batch applies a reviewed relevance queue to the corpus, moving
// questions to their suggested topic or dropping source copies that the
// target topic already holds.
package batch

import (
	"fmt"
	"sort"

	"github.com/cognicore/qbank/pkg/qbank/corpus"
	"github.com/cognicore/qbank/pkg/qbank/internalerr"
	"github.com/cognicore/qbank/pkg/qbank/review"
	"github.com/cognicore/qbank/pkg/qbank/textnorm"
)

// Action kinds.
const (
	ActionMove              = "move_to_target"
	ActionRemoveDuplicate   = "remove_source_duplicate"
	ActionSkippedMoveFailed = "skipped_move_failed"

	ReasonEquivalentExists = "equivalent_exists_in_target_topic"
	ReasonSignalMatched    = "high_confidence_signal_matched"
)

// Rules supplies the per-topic signal patterns and fallback subcategories.
type Rules interface {
	HasSignal(topicID, text string) bool
	Fallback(topicID string) (string, bool)
}

// Options controls a batch run.
type Options struct {
	MinScore      int
	RequireSignal bool
	Apply         bool
}

// DefaultOptions returns dry-run options with the signal gate on.
func DefaultOptions() Options {
	return Options{MinScore: 4, RequireSignal: true}
}

// Action records what happened to one queue item.
type Action struct {
	Action            string `json:"action"`
	QuestionID        string `json:"question_id"`
	SourceTopic       string `json:"source_topic"`
	SourceSubcategory string `json:"source_subcategory"`
	TargetTopic       string `json:"target_topic"`
	Reason            string `json:"reason"`
	Detail            string `json:"detail,omitempty"`
}

// Summary holds the counts of a batch run.
type Summary struct {
	ProcessedActions        int  `json:"processed_actions"`
	Moved                   int  `json:"moved"`
	RemovedSourceDuplicates int  `json:"removed_source_duplicates"`
	SkippedMoveFailed       int  `json:"skipped_move_failed"`
	FilesChanged            int  `json:"files_changed"`
	Applied                 bool `json:"applied"`
}

// Filtered counts queue items that produced no action.
type Filtered struct {
	Incomplete int `json:"incomplete"`
	LowScore   int `json:"low_score"`
	NoSignal   int `json:"no_signal"`
	NotFound   int `json:"not_found"`
	Rejected   int `json:"rejected"`
}

// Result is the batch artifact.
type Result struct {
	RunID        string   `json:"run_id,omitempty"`
	Summary      Summary  `json:"summary"`
	Filtered     Filtered `json:"filtered"`
	ChangedFiles []string `json:"changed_files"`
	Actions      []Action `json:"actions"`
}

// Mover executes queues against a corpus.
type Mover struct {
	rules Rules
}

// NewMover creates a mover using rules for signal checks and fallbacks.
func NewMover(rules Rules) *Mover {
	return &Mover{rules: rules}
}

type locKey struct{ topic, sub, id string }

type location struct {
	sub   *corpus.Subcategory
	index int
	q     *corpus.Question
}

// Run processes queue items in descending best_other order (ties keep queue
// order). Target membership is computed from the corpus as loaded and grows
// as questions are moved in; a question never counts as its own duplicate,
// and dry runs predict the actions of an applied run. With Apply set, appends happen immediately and
// removals are collected and applied once per source list at the end; the
// corpus is not saved.
func (m *Mover) Run(c *corpus.Corpus, q *review.Queue, opts Options) *Result {
	lookup, texts := index(c)

	items := make([]review.Item, len(q.Items))
	copy(items, q.Items)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Scores.BestOther > items[j].Scores.BestOther
	})

	res := &Result{Actions: []Action{}, ChangedFiles: []string{}}
	removals := make(map[*corpus.Subcategory]map[int]struct{})
	var removalOrder []*corpus.Subcategory
	consumed := make(map[locKey]struct{})
	gone := make(map[*corpus.Question]struct{})

	markRemoval := func(loc location) {
		set, ok := removals[loc.sub]
		if !ok {
			set = make(map[int]struct{})
			removals[loc.sub] = set
			removalOrder = append(removalOrder, loc.sub)
		}
		set[loc.index] = struct{}{}
	}

	for _, it := range items {
		if it.RecommendedAction == review.ActionRejected {
			res.Filtered.Rejected++
			continue
		}
		if it.SourceTopic == "" || it.SourceSubcategory == "" || it.QuestionID == "" || it.SuggestedTargetTopic == "" {
			res.Filtered.Incomplete++
			continue
		}
		if it.Scores.BestOther < opts.MinScore {
			res.Filtered.LowScore++
			continue
		}
		target := it.SuggestedTargetTopic
		if opts.RequireSignal && !m.rules.HasSignal(target, it.Question) {
			res.Filtered.NoSignal++
			continue
		}

		key := locKey{it.SourceTopic, it.SourceSubcategory, it.QuestionID}
		loc, ok := lookup[key]
		if _, done := consumed[key]; !ok || done {
			res.Filtered.NotFound++
			continue
		}

		action := Action{
			QuestionID:        it.QuestionID,
			SourceTopic:       it.SourceTopic,
			SourceSubcategory: it.SourceSubcategory,
			TargetTopic:       target,
		}
		norm := textnorm.Normalize(it.Question)

		if norm != "" && texts.other(target, norm, loc.q, gone) {
			action.Action = ActionRemoveDuplicate
			action.Reason = ReasonEquivalentExists
			consumed[key] = struct{}{}
			gone[loc.q] = struct{}{}
			if opts.Apply {
				markRemoval(loc)
			}
			res.Actions = append(res.Actions, action)
			continue
		}

		action.Reason = ReasonSignalMatched
		dest, err := m.destination(c, target, loc)
		if err != nil {
			action.Action = ActionSkippedMoveFailed
			action.Detail = err.Error()
			res.Actions = append(res.Actions, action)
			continue
		}

		action.Action = ActionMove
		moved := loc.q.Clone()
		if opts.Apply {
			if err := dest.Append(moved); err != nil {
				action.Action = ActionSkippedMoveFailed
				action.Detail = err.Error()
				res.Actions = append(res.Actions, action)
				continue
			}
			markRemoval(loc)
		}
		consumed[key] = struct{}{}
		gone[loc.q] = struct{}{}
		texts.add(target, norm, moved)
		res.Actions = append(res.Actions, action)
	}

	if opts.Apply {
		for _, sub := range removalOrder {
			sub.RemoveIndices(removals[sub])
		}
		res.ChangedFiles = c.ChangedFiles()
	}

	for _, a := range res.Actions {
		switch a.Action {
		case ActionMove:
			res.Summary.Moved++
		case ActionRemoveDuplicate:
			res.Summary.RemovedSourceDuplicates++
		case ActionSkippedMoveFailed:
			res.Summary.SkippedMoveFailed++
		}
	}
	res.Summary.ProcessedActions = len(res.Actions)
	res.Summary.FilesChanged = len(res.ChangedFiles)
	res.Summary.Applied = opts.Apply
	return res
}

// destination checks both halves of a move before anything is mutated and
// returns the subcategory that will receive the question.
func (m *Mover) destination(c *corpus.Corpus, target string, loc location) (*corpus.Subcategory, error) {
	fallback, ok := m.rules.Fallback(target)
	if !ok {
		return nil, fmt.Errorf("%w: no fallback subcategory for topic %s", internalerr.ErrMoveFailed, target)
	}
	tp, ok := c.Topic(target)
	if !ok {
		return nil, fmt.Errorf("%w: target topic %s not loaded", internalerr.ErrMoveFailed, target)
	}
	dest, ok := tp.Subcategory(fallback)
	if !ok {
		return nil, fmt.Errorf("%w: fallback subcategory %s missing from %s", internalerr.ErrMoveFailed, fallback, tp.File)
	}
	if dest.Shape == corpus.ShapeMissing {
		return nil, fmt.Errorf("%w: fallback subcategory %s has no question list", internalerr.ErrMoveFailed, fallback)
	}
	if loc.sub.Question(loc.index) != loc.q {
		return nil, fmt.Errorf("%w: source index %d out of range", internalerr.ErrMoveFailed, loc.index)
	}
	return dest, nil
}

// topicTexts maps topic id and normalized text to the questions holding it.
type topicTexts map[string]map[string][]*corpus.Question

func (t topicTexts) add(topic, norm string, q *corpus.Question) {
	if norm == "" {
		return
	}
	if t[topic] == nil {
		t[topic] = make(map[string][]*corpus.Question)
	}
	t[topic][norm] = append(t[topic][norm], q)
}

// other reports whether a question other than self, and not already taken
// out of the corpus in this run, carries norm in topic.
func (t topicTexts) other(topic, norm string, self *corpus.Question, gone map[*corpus.Question]struct{}) bool {
	for _, q := range t[topic][norm] {
		if q == self {
			continue
		}
		if _, out := gone[q]; out {
			continue
		}
		return true
	}
	return false
}

// index builds the (topic, subcategory, id) lookup and the normalized texts
// present in each topic. Only the first topic and subcategory registered
// under an id are addressable; within a subcategory the last duplicate id
// wins. Topics sharing a document see each other's questions.
func index(c *corpus.Corpus) (map[locKey]location, topicTexts) {
	lookup := make(map[locKey]location)
	texts := make(topicTexts)

	for _, e := range c.Entries() {
		tp, ok := c.Topic(e.Topic.ID)
		if !ok || tp != e.Topic {
			continue
		}
		texts.add(tp.ID, textnorm.Normalize(e.Question.Text()), e.Question)
		if first, ok := tp.Subcategory(e.Subcategory.ID); !ok || first != e.Subcategory {
			continue
		}
		lookup[locKey{tp.ID, e.Subcategory.ID, e.Question.ID()}] = location{
			sub:   e.Subcategory,
			index: e.Index,
			q:     e.Question,
		}
	}
	return lookup, texts
}
