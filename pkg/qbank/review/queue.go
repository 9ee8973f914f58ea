// Package review turns relevance flags into an ordered manual-review queue
// and records reviewer decisions on it.
package review

import (
	"sort"

	"github.com/cognicore/qbank/pkg/qbank/audit"
)

// Recommended actions.
const (
	ActionManualReview = "manual_review"
	ActionApproved     = "approved"
	ActionRejected     = "rejected"
)

// minBestOther is the best_other score a flag needs to enter the queue.
const minBestOther = 4

// Scores are the relevance scores carried over from the audit.
type Scores struct {
	OwnTopic       int `json:"own_topic"`
	OwnSubcategory int `json:"own_subcategory"`
	BestOther      int `json:"best_other"`
}

// Item is one queued question.
type Item struct {
	QuestionID           string   `json:"question_id"`
	SourceTopic          string   `json:"source_topic"`
	SourceSubcategory    string   `json:"source_subcategory"`
	SourceFile           string   `json:"source_file"`
	Question             string   `json:"question"`
	SuggestedTargetTopic string   `json:"suggested_target_topic"`
	Scores               Scores   `json:"scores"`
	Reasons              []string `json:"reasons"`
	RecommendedAction    string   `json:"recommended_action"`
}

// Queue is the review queue artifact.
type Queue struct {
	RunID string `json:"run_id,omitempty"`
	Count int    `json:"count"`
	Items []Item `json:"items"`
}

// HighConfidence reports whether a flag is strong enough to queue: no overlap
// with its own topic or subcategory, best_other of at least 4, and a reason
// naming another topic.
func HighConfidence(f audit.RelevanceFlag) bool {
	return f.OwnTopicScore == 0 &&
		f.OwnSubcategoryScore == 0 &&
		f.BestOtherScore >= minBestOther &&
		f.LooksCloser()
}

// Build filters flags to high-confidence items and orders them by own
// subcategory score, own topic score, descending best_other, then source
// topic.
func Build(flags []audit.RelevanceFlag) *Queue {
	items := []Item{}
	for _, f := range flags {
		if !HighConfidence(f) {
			continue
		}
		items = append(items, Item{
			QuestionID:           f.Question.QuestionID,
			SourceTopic:          f.Question.TopicID,
			SourceSubcategory:    f.Question.SubcategoryID,
			SourceFile:           f.Question.SourceFile,
			Question:             f.Question.Question,
			SuggestedTargetTopic: f.Target(),
			Scores: Scores{
				OwnTopic:       f.OwnTopicScore,
				OwnSubcategory: f.OwnSubcategoryScore,
				BestOther:      f.BestOtherScore,
			},
			Reasons:           append([]string(nil), f.Reasons...),
			RecommendedAction: ActionManualReview,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Scores, items[j].Scores
		if a.OwnSubcategory != b.OwnSubcategory {
			return a.OwnSubcategory < b.OwnSubcategory
		}
		if a.OwnTopic != b.OwnTopic {
			return a.OwnTopic < b.OwnTopic
		}
		if a.BestOther != b.BestOther {
			return a.BestOther > b.BestOther
		}
		return items[i].SourceTopic < items[j].SourceTopic
	})

	return &Queue{Count: len(items), Items: items}
}
