package review

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/qbank/pkg/qbank/audit"
)

func flag(topic, id string, own, sub, best int, target string, reasons ...string) audit.RelevanceFlag {
	f := audit.RelevanceFlag{
		Question: audit.EntrySummary{
			TopicID:       topic,
			SubcategoryID: topic + "_sub",
			QuestionID:    id,
			SourceFile:    "data/" + topic + ".json",
			Question:      "text of " + id,
		},
		OwnTopicScore:       own,
		OwnSubcategoryScore: sub,
		BestOtherScore:      best,
		Reasons:             reasons,
	}
	if target != "" {
		f.BestOtherTopic = &target
	}
	return f
}

func TestHighConfidence(t *testing.T) {
	closer := "looks_closer_to:procurement_act"
	tests := []struct {
		name string
		f    audit.RelevanceFlag
		want bool
	}{
		{"qualifies", flag("a", "q", 0, 0, 4, "procurement_act", audit.ReasonLowOverlap, closer), true},
		{"own topic overlap", flag("a", "q", 1, 0, 5, "procurement_act", closer), false},
		{"own subcategory overlap", flag("a", "q", 0, 1, 5, "procurement_act", closer), false},
		{"score too low", flag("a", "q", 0, 0, 3, "procurement_act", closer), false},
		{"no closer reason", flag("a", "q", 0, 0, 6, "procurement_act", audit.ReasonLowOverlap), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HighConfidence(tt.f))
		})
	}
}

func TestBuildOrdersItems(t *testing.T) {
	closer := "looks_closer_to:x"
	flags := []audit.RelevanceFlag{
		flag("zeta", "q1", 0, 0, 4, "x", closer),
		flag("alpha", "q2", 0, 0, 4, "x", closer),
		flag("mid", "q3", 0, 0, 7, "x", closer),
		flag("skip", "q4", 2, 0, 9, "x", closer),
	}

	q := Build(flags)
	require.Equal(t, 3, q.Count)

	ids := []string{}
	for _, it := range q.Items {
		ids = append(ids, it.QuestionID)
	}
	assert.Equal(t, []string{"q3", "q2", "q1"}, ids)

	first := q.Items[0]
	assert.Equal(t, "mid", first.SourceTopic)
	assert.Equal(t, "mid_sub", first.SourceSubcategory)
	assert.Equal(t, "data/mid.json", first.SourceFile)
	assert.Equal(t, "x", first.SuggestedTargetTopic)
	assert.Equal(t, Scores{OwnTopic: 0, OwnSubcategory: 0, BestOther: 7}, first.Scores)
	assert.Equal(t, ActionManualReview, first.RecommendedAction)
}

func TestBuildEmpty(t *testing.T) {
	q := Build(nil)
	assert.Equal(t, 0, q.Count)
	assert.NotNil(t, q.Items)
}

type scripted struct {
	decisions []Decision
	err       error
	seen      []string
}

func (s *scripted) Prompt(_ context.Context, position, total int, item Item) (Decision, error) {
	s.seen = append(s.seen, item.QuestionID)
	if len(s.decisions) == 0 {
		if s.err != nil {
			return Skip, s.err
		}
		return Skip, io.EOF
	}
	d := s.decisions[0]
	s.decisions = s.decisions[1:]
	return d, nil
}

func queueOf(ids ...string) *Queue {
	q := &Queue{}
	for _, id := range ids {
		q.Items = append(q.Items, Item{QuestionID: id, RecommendedAction: ActionManualReview})
	}
	q.Count = len(q.Items)
	return q
}

func TestReviewerRecordsDecisions(t *testing.T) {
	q := queueOf("a", "b", "c", "d")
	q.Items[1].RecommendedAction = ActionApproved

	p := &scripted{decisions: []Decision{Reject, Skip, Approve}}
	tally, err := NewReviewer(p).Review(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c", "d"}, p.seen)
	assert.Equal(t, Tally{Approved: 1, Rejected: 1, Skipped: 1}, tally)
	assert.Equal(t, ActionRejected, q.Items[0].RecommendedAction)
	assert.Equal(t, ActionApproved, q.Items[1].RecommendedAction)
	assert.Equal(t, ActionManualReview, q.Items[2].RecommendedAction)
	assert.Equal(t, ActionApproved, q.Items[3].RecommendedAction)
}

func TestReviewerStopsOnQuitAndEOF(t *testing.T) {
	q := queueOf("a", "b", "c")
	tally, err := NewReviewer(&scripted{decisions: []Decision{Approve, Quit}}).Review(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Approved)
	assert.Equal(t, ActionManualReview, q.Items[2].RecommendedAction)

	q = queueOf("a", "b")
	tally, err = NewReviewer(&scripted{decisions: []Decision{Reject}}).Review(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Rejected)
}

func TestReviewerPropagatesErrors(t *testing.T) {
	boom := errors.New("terminal gone")
	_, err := NewReviewer(&scripted{err: boom}).Review(context.Background(), queueOf("a"))
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewReviewer(&scripted{}).Review(ctx, queueOf("a"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseDecision(t *testing.T) {
	for in, want := range map[string]Decision{"a": Approve, "yes": Approve, "r": Reject, "": Skip, "q": Quit} {
		got, err := ParseDecision(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDecision("maybe")
	assert.Error(t, err)
}
