package batch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/qbank/pkg/qbank/corpus"
	"github.com/cognicore/qbank/pkg/qbank/corpus/corpustest"
	"github.com/cognicore/qbank/pkg/qbank/review"
)

type fakeRules struct {
	fallbacks map[string]string
	signal    string // substring required in the question text
}

func (f fakeRules) HasSignal(topic, text string) bool {
	return f.signal == "" || strings.Contains(strings.ToLower(text), f.signal)
}

func (f fakeRules) Fallback(topic string) (string, bool) {
	fb, ok := f.fallbacks[topic]
	return fb, ok
}

var rules = fakeRules{fallbacks: map[string]string{"tgt": "tgt_general"}}

func item(id, text string, best int) review.Item {
	return review.Item{
		QuestionID:           id,
		SourceTopic:          "src",
		SourceSubcategory:    "src_a",
		SourceFile:           "data/src.json",
		Question:             text,
		SuggestedTargetTopic: "tgt",
		Scores:               review.Scores{BestOther: best},
		RecommendedAction:    review.ActionManualReview,
	}
}

func queue(items ...review.Item) *review.Queue {
	return &review.Queue{Count: len(items), Items: items}
}

func fixture(srcQuestions []map[string]any, tgtQuestions []map[string]any, nested bool) []corpustest.Topic {
	return []corpustest.Topic{
		{ID: "src", Name: "Source", Subcategories: []corpustest.Subcategory{
			{ID: "src_a", Name: "A", Nested: nested, Questions: srcQuestions},
		}},
		{ID: "tgt", Name: "Target", Subcategories: []corpustest.Subcategory{
			{ID: "tgt_other", Name: "Other", Questions: []map[string]any{}},
			{ID: "tgt_general", Name: "General", Nested: nested, Questions: tgtQuestions},
		}},
	}
}

func TestMoveToTargetApply(t *testing.T) {
	root := corpustest.Write(t, fixture(
		[]map[string]any{corpustest.Q("q1", "Moving text", "options", []string{"a", "b"})},
		[]map[string]any{corpustest.Q("t1", "Resident text")},
		false,
	)...)
	c, err := corpus.Load(root, corpustest.IndexPath)
	require.NoError(t, err)

	res := NewMover(rules).Run(c, queue(item("q1", "Moving text", 5)), Options{MinScore: 4, Apply: true})
	require.Len(t, res.Actions, 1)
	assert.Equal(t, ActionMove, res.Actions[0].Action)
	assert.Equal(t, ReasonSignalMatched, res.Actions[0].Reason)
	assert.Equal(t, Summary{ProcessedActions: 1, Moved: 1, FilesChanged: 2, Applied: true}, res.Summary)
	assert.Equal(t, []string{"data/src.json", "data/tgt.json"}, res.ChangedFiles)

	_, err = c.Save()
	require.NoError(t, err)

	reloaded, err := corpus.Load(root, corpustest.IndexPath)
	require.NoError(t, err)
	assert.Empty(t, corpustest.QuestionIDs(reloaded, "src", "src_a"))
	assert.Equal(t, []string{"t1", "q1"}, corpustest.QuestionIDs(reloaded, "tgt", "tgt_general"))

	tgt, _ := reloaded.Topic("tgt")
	sub, _ := tgt.Subcategory("tgt_general")
	moved := sub.Question(1)
	raw, ok := moved.Fields().Get("options")
	require.True(t, ok)
	assert.JSONEq(t, `["a","b"]`, string(raw))

	second := NewMover(rules).Run(reloaded, queue(item("q1", "Moving text", 5)), Options{MinScore: 4, Apply: true})
	assert.Empty(t, second.Actions)
	assert.Equal(t, 1, second.Filtered.NotFound)
}

func TestRemoveSourceDuplicate(t *testing.T) {
	c := corpustest.Load(t, fixture(
		[]map[string]any{corpustest.Q("q1", "Shared text!"), corpustest.Q("q2", "Stays")},
		[]map[string]any{corpustest.Q("t1", "shared   TEXT")},
		false,
	)...)

	res := NewMover(rules).Run(c, queue(item("q1", "Shared text!", 4)), Options{MinScore: 4, Apply: true})
	require.Len(t, res.Actions, 1)
	assert.Equal(t, ActionRemoveDuplicate, res.Actions[0].Action)
	assert.Equal(t, ReasonEquivalentExists, res.Actions[0].Reason)
	assert.Equal(t, []string{"data/src.json"}, res.ChangedFiles)

	assert.Equal(t, []string{"q2"}, corpustest.QuestionIDs(c, "src", "src_a"))
	assert.Equal(t, []string{"t1"}, corpustest.QuestionIDs(c, "tgt", "tgt_general"))

	again := NewMover(rules).Run(c, queue(item("q1", "Shared text!", 4)), Options{MinScore: 4, Apply: true})
	assert.Empty(t, again.Actions)
}

func TestSkippedMoveFailedLeavesCorpusUntouched(t *testing.T) {
	c := corpustest.Load(t, fixture(
		[]map[string]any{corpustest.Q("q1", "Moving text")},
		nil,
		false,
	)...)
	broken := fakeRules{fallbacks: map[string]string{"tgt": "tgt_absent"}}

	res := NewMover(broken).Run(c, queue(item("q1", "Moving text", 6)), Options{MinScore: 4, Apply: true})
	require.Len(t, res.Actions, 1)
	assert.Equal(t, ActionSkippedMoveFailed, res.Actions[0].Action)
	assert.Contains(t, res.Actions[0].Detail, "tgt_absent")
	assert.Equal(t, 1, res.Summary.SkippedMoveFailed)
	assert.Empty(t, res.ChangedFiles)
	assert.Empty(t, c.ChangedFiles())
	assert.Equal(t, []string{"q1"}, corpustest.QuestionIDs(c, "src", "src_a"))

	noFallback := fakeRules{}
	res = NewMover(noFallback).Run(c, queue(item("q1", "Moving text", 6)), Options{MinScore: 4, Apply: true})
	assert.Equal(t, ActionSkippedMoveFailed, res.Actions[0].Action)
}

func TestRemovalsDoNotDriftIndices(t *testing.T) {
	c := corpustest.Load(t, fixture(
		[]map[string]any{
			corpustest.Q("q0", "First mover"),
			corpustest.Q("keep", "Keeper"),
			corpustest.Q("q2", "Second mover"),
			corpustest.Q("q3", "Already there"),
		},
		[]map[string]any{corpustest.Q("t1", "Already there")},
		true,
	)...)

	res := NewMover(rules).Run(c, queue(
		item("q0", "First mover", 5),
		item("q2", "Second mover", 7),
		item("q3", "Already there", 6),
	), Options{MinScore: 4, Apply: true})

	got := []string{}
	for _, a := range res.Actions {
		got = append(got, a.QuestionID+":"+a.Action)
	}
	assert.Equal(t, []string{"q2:" + ActionMove, "q3:" + ActionRemoveDuplicate, "q0:" + ActionMove}, got)

	assert.Equal(t, []string{"keep"}, corpustest.QuestionIDs(c, "src", "src_a"))
	assert.Equal(t, []string{"t1", "q2", "q0"}, corpustest.QuestionIDs(c, "tgt", "tgt_general"))

	src, _ := c.Topic("src")
	sub, _ := src.Subcategory("src_a")
	assert.Equal(t, corpus.ShapeNested, sub.Shape)
}

func TestMembershipGrowsWithinRun(t *testing.T) {
	c := corpustest.Load(t, fixture(
		[]map[string]any{corpustest.Q("a", "Same words"), corpustest.Q("b", "same words")},
		nil,
		false,
	)...)

	res := NewMover(rules).Run(c, queue(item("b", "same words", 4), item("a", "Same words", 9)), Options{MinScore: 4, Apply: true})
	require.Len(t, res.Actions, 2)
	assert.Equal(t, "a", res.Actions[0].QuestionID)
	assert.Equal(t, ActionMove, res.Actions[0].Action)
	assert.Equal(t, "b", res.Actions[1].QuestionID)
	assert.Equal(t, ActionRemoveDuplicate, res.Actions[1].Action)

	assert.Empty(t, corpustest.QuestionIDs(c, "src", "src_a"))
	assert.Equal(t, []string{"a"}, corpustest.QuestionIDs(c, "tgt", "tgt_general"))
}

func TestFilters(t *testing.T) {
	c := corpustest.Load(t, fixture(
		[]map[string]any{corpustest.Q("q1", "procurement question"), corpustest.Q("q2", "plain question")},
		nil,
		false,
	)...)

	rejected := item("q1", "procurement question", 9)
	rejected.RecommendedAction = review.ActionRejected
	incomplete := item("q1", "procurement question", 9)
	incomplete.SuggestedTargetTopic = ""

	gated := fakeRules{fallbacks: rules.fallbacks, signal: "procurement"}
	res := NewMover(gated).Run(c, queue(
		rejected,
		incomplete,
		item("q1", "procurement question", 3),
		item("q2", "plain question", 8),
		item("ghost", "procurement ghost", 8),
	), Options{MinScore: 4, RequireSignal: true})

	assert.Empty(t, res.Actions)
	assert.Equal(t, Filtered{Incomplete: 1, LowScore: 1, NoSignal: 1, NotFound: 1, Rejected: 1}, res.Filtered)

	relaxed := NewMover(gated).Run(c, queue(item("q2", "plain question", 8)), Options{MinScore: 4})
	require.Len(t, relaxed.Actions, 1)
	assert.Equal(t, ActionMove, relaxed.Actions[0].Action)
}

func TestDryRunDoesNotMutate(t *testing.T) {
	c := corpustest.Load(t, fixture(
		[]map[string]any{corpustest.Q("q1", "Moving text"), corpustest.Q("q2", "moving text")},
		nil,
		false,
	)...)

	res := NewMover(rules).Run(c, queue(item("q1", "Moving text", 5), item("q2", "moving text", 4)), DefaultOptions())
	assert.Equal(t, []string{"q1:" + ActionMove, "q2:" + ActionRemoveDuplicate}, actionKinds(res))
	assert.False(t, res.Summary.Applied)
	assert.Empty(t, res.ChangedFiles)
	assert.Empty(t, c.ChangedFiles())
	assert.Equal(t, []string{"q1", "q2"}, corpustest.QuestionIDs(c, "src", "src_a"))
}

func actionKinds(res *Result) []string {
	out := make([]string, 0, len(res.Actions))
	for _, a := range res.Actions {
		out = append(out, a.QuestionID+":"+a.Action)
	}
	return out
}

func sharedFile(questions ...map[string]any) []corpustest.Topic {
	return []corpustest.Topic{
		{ID: "src", Name: "Source", File: "data/shared.json", Subcategories: []corpustest.Subcategory{
			{ID: "src_a", Name: "A", Questions: questions},
			{ID: "tgt_general", Name: "General", Questions: []map[string]any{}},
		}},
		{ID: "tgt", Name: "Target", File: "data/shared.json", NoFile: true},
	}
}

func TestSharedFileMoveKeepsOnlyCopy(t *testing.T) {
	c := corpustest.Load(t, sharedFile(corpustest.Q("q1", "Lone question"))...)

	res := NewMover(rules).Run(c, queue(item("q1", "Lone question", 5)), Options{MinScore: 4, Apply: true})
	assert.Equal(t, []string{"q1:" + ActionMove}, actionKinds(res))
	assert.Empty(t, corpustest.QuestionIDs(c, "src", "src_a"))
	assert.Equal(t, []string{"q1"}, corpustest.QuestionIDs(c, "tgt", "tgt_general"))
	assert.Equal(t, []string{"data/shared.json"}, res.ChangedFiles)
}

func TestSharedFileDuplicatesKeepOneCopy(t *testing.T) {
	c := corpustest.Load(t, sharedFile(
		corpustest.Q("a", "Twin question"),
		corpustest.Q("b", "twin question"),
	)...)

	res := NewMover(rules).Run(c, queue(item("a", "Twin question", 6), item("b", "twin question", 5)), Options{MinScore: 4, Apply: true})
	assert.Equal(t, []string{"a:" + ActionRemoveDuplicate, "b:" + ActionMove}, actionKinds(res))
	assert.Empty(t, corpustest.QuestionIDs(c, "src", "src_a"))
	assert.Equal(t, []string{"b"}, corpustest.QuestionIDs(c, "tgt", "tgt_general"))
}
