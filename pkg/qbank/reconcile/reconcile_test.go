package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/qbank/pkg/qbank/audit"
	"github.com/cognicore/qbank/pkg/qbank/batch"
	"github.com/cognicore/qbank/pkg/qbank/config"
	"github.com/cognicore/qbank/pkg/qbank/corpus"
	"github.com/cognicore/qbank/pkg/qbank/corpus/corpustest"
	"github.com/cognicore/qbank/pkg/qbank/review"
)

func moveAction(id string) batch.Action {
	return batch.Action{
		Action:            batch.ActionMove,
		QuestionID:        id,
		SourceTopic:       "src",
		SourceSubcategory: "src_a",
		TargetTopic:       "tgt",
	}
}

func leftovers() []corpustest.Topic {
	return []corpustest.Topic{
		{ID: "src", Name: "Source", Subcategories: []corpustest.Subcategory{
			{ID: "src_a", Name: "A", Questions: []map[string]any{
				corpustest.Q("q1", "Moved already"),
				corpustest.Q("q2", "Different text"),
				corpustest.Q("q1", "Moved already"),
			}},
		}},
		{ID: "tgt", Name: "Target", Subcategories: []corpustest.Subcategory{
			{ID: "tgt_general", Name: "General", Questions: []map[string]any{
				corpustest.Q("q1", "moved, already"),
			}},
		}},
	}
}

func TestRunRemovesLeftovers(t *testing.T) {
	c := corpustest.Load(t, leftovers()...)

	res := Run(c, []batch.Action{
		moveAction("q1"),
		moveAction("q2"),
		{Action: batch.ActionSkippedMoveFailed, QuestionID: "q1", SourceTopic: "src", SourceSubcategory: "src_a", TargetTopic: "tgt"},
	}, true)

	require.Len(t, res.Removals, 2)
	assert.Equal(t, Removal{
		QuestionID:        "q1",
		SourceTopic:       "src",
		SourceSubcategory: "src_a",
		TargetTopic:       "tgt",
		Question:          "Moved already",
	}, res.Removals[0])
	assert.Equal(t, Summary{RemovedLeftovers: 2, FilesChanged: 1, Applied: true}, res.Summary)
	assert.Equal(t, []string{"data/src.json"}, res.ChangedFiles)
	assert.Equal(t, []string{"q2"}, corpustest.QuestionIDs(c, "src", "src_a"))
}

func TestRunTwiceRemovesNothingMore(t *testing.T) {
	c := corpustest.Load(t, leftovers()...)

	first := Run(c, []batch.Action{moveAction("q1"), moveAction("q1")}, true)
	assert.Equal(t, 2, first.Summary.RemovedLeftovers)

	again := Run(c, []batch.Action{moveAction("q1"), moveAction("q1")}, true)
	assert.Equal(t, 0, again.Summary.RemovedLeftovers)
	assert.Empty(t, again.Removals)
	assert.Equal(t, []string{"q2"}, corpustest.QuestionIDs(c, "src", "src_a"))
	assert.Equal(t, []string{"q1"}, corpustest.QuestionIDs(c, "tgt", "tgt_general"))
}

func TestRunKeepsOnlyCopyInSharedFile(t *testing.T) {
	c := corpustest.Load(t,
		corpustest.Topic{ID: "src", Name: "Source", File: "data/shared.json", Subcategories: []corpustest.Subcategory{
			{ID: "src_a", Name: "A", Questions: []map[string]any{corpustest.Q("q1", "Only copy")}},
			{ID: "tgt_general", Name: "General", Questions: []map[string]any{}},
		}},
		corpustest.Topic{ID: "tgt", Name: "Target", File: "data/shared.json", NoFile: true},
	)

	res := Run(c, []batch.Action{moveAction("q1")}, true)
	assert.Empty(t, res.Removals)
	assert.Equal(t, []string{"q1"}, corpustest.QuestionIDs(c, "src", "src_a"))
}

func TestRunDryRun(t *testing.T) {
	c := corpustest.Load(t, leftovers()...)

	res := Run(c, []batch.Action{moveAction("q1"), moveAction("q1")}, false)
	assert.Equal(t, 2, res.Summary.RemovedLeftovers)
	assert.False(t, res.Summary.Applied)
	assert.Empty(t, res.ChangedFiles)
	assert.Equal(t, []string{"q1", "q2", "q1"}, corpustest.QuestionIDs(c, "src", "src_a"))
}

func TestRunIgnoresUnknownLocations(t *testing.T) {
	c := corpustest.Load(t, leftovers()...)

	bad := moveAction("q1")
	bad.SourceSubcategory = "nope"
	res := Run(c, []batch.Action{bad, {Action: batch.ActionMove, QuestionID: "q1", SourceTopic: "ghost", SourceSubcategory: "src_a", TargetTopic: "tgt"}}, true)
	assert.Empty(t, res.Removals)
	assert.Empty(t, res.ChangedFiles)
}

func TestPipelineMovesMisfiledQuestion(t *testing.T) {
	root := corpustest.Write(t,
		corpustest.Topic{ID: "general_current_affairs", Name: "General Current Affairs", Subcategories: []corpustest.Subcategory{
			{ID: "ca_national", Name: "National Events", Questions: []map[string]any{
				corpustest.Q("q1", "What is the BPP procurement threshold?", "keywords", []string{"tender", "contract"}),
				corpustest.Q("q2", "Which country hosted the 2024 Olympics?"),
			}},
		}},
		corpustest.Topic{ID: "procurement_act", Name: "Public Procurement Act", Subcategories: []corpustest.Subcategory{
			{ID: "proc_objectives_institutions", Name: "Objectives and Institutions", Questions: []map[string]any{
				corpustest.Q("p1", "Who chairs the National Council on Procurement?"),
			}},
		}},
	)

	comp, err := (&config.Loader{}).Load()
	require.NoError(t, err)

	c, err := corpus.Load(root, corpustest.IndexPath)
	require.NoError(t, err)

	report := audit.NewAuditor(comp.Tokenizer, comp.Taxonomy).Run(c, audit.Options{})
	var flagged *audit.RelevanceFlag
	for i, f := range report.RelevanceFlags {
		if f.Question.QuestionID == "q1" {
			flagged = &report.RelevanceFlags[i]
		}
	}
	require.NotNil(t, flagged)
	assert.Contains(t, flagged.Reasons, "looks_closer_to:procurement_act")
	assert.Equal(t, 4, flagged.BestOtherScore)

	q := review.Build(report.RelevanceFlags)
	require.Equal(t, 1, q.Count)
	assert.Equal(t, "q1", q.Items[0].QuestionID)

	opts := batch.DefaultOptions()
	opts.Apply = true
	res := batch.NewMover(comp.Taxonomy).Run(c, q, opts)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, batch.ActionMove, res.Actions[0].Action)

	_, err = c.Save()
	require.NoError(t, err)

	reloaded, err := corpus.Load(root, corpustest.IndexPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"q2"}, corpustest.QuestionIDs(reloaded, "general_current_affairs", "ca_national"))
	assert.Equal(t, []string{"p1", "q1"}, corpustest.QuestionIDs(reloaded, "procurement_act", "proc_objectives_institutions"))

	rec := Run(reloaded, res.Actions, true)
	assert.Equal(t, 0, rec.Summary.RemovedLeftovers)
	assert.Empty(t, rec.ChangedFiles)
}
