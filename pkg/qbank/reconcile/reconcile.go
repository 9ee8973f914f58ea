// Package reconcile removes source copies left behind by a batch run whose
// text now also lives in the target topic.
package reconcile

import (
	"github.com/cognicore/qbank/pkg/qbank/batch"
	"github.com/cognicore/qbank/pkg/qbank/corpus"
	"github.com/cognicore/qbank/pkg/qbank/textnorm"
)

// Removal records one leftover copy that was dropped.
type Removal struct {
	QuestionID        string `json:"question_id"`
	SourceTopic       string `json:"source_topic"`
	SourceSubcategory string `json:"source_subcategory"`
	TargetTopic       string `json:"target_topic"`
	Question          string `json:"question"`
}

// Summary holds the counts of a reconcile run.
type Summary struct {
	RemovedLeftovers int  `json:"removed_leftovers"`
	FilesChanged     int  `json:"files_changed"`
	Applied          bool `json:"applied"`
}

// Result is the reconcile artifact.
type Result struct {
	RunID        string    `json:"run_id,omitempty"`
	Summary      Summary   `json:"summary"`
	ChangedFiles []string  `json:"changed_files"`
	Removals     []Removal `json:"removals"`
}

// Run sweeps the corpus for every move_to_target and remove_source_duplicate
// action: every question in the source subcategory with the action's id whose
// normalized text is also held by a question outside that subcategory in the
// target topic is removed. A question never witnesses itself, so topics that
// share a document keep their only copy, and a second run over the result
// finds nothing. With apply unset the corpus is left untouched.
func Run(c *corpus.Corpus, actions []batch.Action, apply bool) *Result {
	held := topicTexts(c)
	res := &Result{ChangedFiles: []string{}, Removals: []Removal{}}

	removed := make(map[*corpus.Subcategory]map[int]struct{})
	var order []*corpus.Subcategory

	for _, a := range actions {
		if a.Action != batch.ActionMove && a.Action != batch.ActionRemoveDuplicate {
			continue
		}
		if a.SourceTopic == "" || a.SourceSubcategory == "" || a.TargetTopic == "" || a.QuestionID == "" {
			continue
		}
		src, ok := c.Topic(a.SourceTopic)
		if !ok {
			continue
		}
		sub, ok := src.Subcategory(a.SourceSubcategory)
		if !ok {
			continue
		}

		for i := 0; i < sub.Len(); i++ {
			if _, done := removed[sub][i]; done {
				continue
			}
			q := sub.Question(i)
			if q == nil || q.ID() != a.QuestionID {
				continue
			}
			norm := textnorm.Normalize(q.Text())
			if norm == "" || !held.witnessed(a.TargetTopic, norm, sub, removed) {
				continue
			}
			if removed[sub] == nil {
				removed[sub] = make(map[int]struct{})
				order = append(order, sub)
			}
			removed[sub][i] = struct{}{}
			res.Removals = append(res.Removals, Removal{
				QuestionID:        a.QuestionID,
				SourceTopic:       a.SourceTopic,
				SourceSubcategory: a.SourceSubcategory,
				TargetTopic:       a.TargetTopic,
				Question:          q.Text(),
			})
		}
	}

	if apply {
		for _, sub := range order {
			sub.RemoveIndices(removed[sub])
		}
		res.ChangedFiles = c.ChangedFiles()
	}
	res.Summary = Summary{
		RemovedLeftovers: len(res.Removals),
		FilesChanged:     len(res.ChangedFiles),
		Applied:          apply,
	}
	return res
}

type ref struct {
	sub   *corpus.Subcategory
	index int
}

// texts maps topic id and normalized text to the questions carrying it.
type texts map[string]map[string][]ref

// witnessed reports whether norm is held in topic by a question outside sub
// that is not itself marked for removal.
func (t texts) witnessed(topic, norm string, sub *corpus.Subcategory, removed map[*corpus.Subcategory]map[int]struct{}) bool {
	for _, r := range t[topic][norm] {
		if r.sub == sub {
			continue
		}
		if _, gone := removed[r.sub][r.index]; gone {
			continue
		}
		return true
	}
	return false
}

func topicTexts(c *corpus.Corpus) texts {
	out := make(texts)
	for _, t := range c.Topics {
		if first, ok := c.Topic(t.ID); !ok || first != t {
			continue
		}
		byNorm := make(map[string][]ref)
		for _, sub := range t.Doc.Subcategories {
			for i := 0; i < sub.Len(); i++ {
				q := sub.Question(i)
				if q == nil {
					continue
				}
				norm := textnorm.Normalize(q.Text())
				byNorm[norm] = append(byNorm[norm], ref{sub: sub, index: i})
			}
		}
		out[t.ID] = byNorm
	}
	return out
}
