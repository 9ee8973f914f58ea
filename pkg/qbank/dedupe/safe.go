// Package dedupe removes duplicate question texts. The safe pass only
// touches duplicates inside one subcategory; the canonical pass drops
// cross-topic copies when the question text names the topic it belongs to.
package dedupe

import (
	"sort"

	"github.com/cognicore/qbank/pkg/qbank/audit"
	"github.com/cognicore/qbank/pkg/qbank/corpus"
	"github.com/cognicore/qbank/pkg/qbank/textnorm"
)

// CrossTopicGroup is a normalized text kept in more than one topic.
type CrossTopicGroup struct {
	NormalizedQuestion string               `json:"normalized_question"`
	Occurrences        []audit.EntrySummary `json:"occurrences"`
}

// SafeSummary holds the counts of a safe cleanup run.
type SafeSummary struct {
	ToRemoveCount    int  `json:"to_remove_count"`
	FilesChanged     int  `json:"files_changed"`
	CrossTopicGroups int  `json:"cross_topic_groups"`
	Applied          bool `json:"applied"`
}

// SafeResult is the safe cleanup artifact. ChangedFiles lists the files
// that hold removals whether or not they were applied.
type SafeResult struct {
	RunID                string               `json:"run_id,omitempty"`
	Summary              SafeSummary          `json:"summary"`
	ChangedFiles         []string             `json:"changed_files"`
	AutoRemoved          []audit.EntrySummary `json:"auto_removed"`
	CrossTopicDuplicates []CrossTopicGroup    `json:"cross_topic_duplicates"`
}

// Safe removes every question whose normalized text already appeared
// earlier in the same subcategory, keeping the first occurrence. Questions
// with empty text are always kept. Surviving texts that occur in more than
// one topic are reported, largest group first, but never removed. Each
// document is processed once even when several topics share it.
func Safe(c *corpus.Corpus, apply bool) *SafeResult {
	res := &SafeResult{
		ChangedFiles:         []string{},
		AutoRemoved:          []audit.EntrySummary{},
		CrossTopicDuplicates: []CrossTopicGroup{},
	}

	var kept []audit.EntrySummary
	seenDocs := make(map[*corpus.Document]struct{})
	files := make(map[string]struct{})

	for _, t := range c.Topics {
		if _, done := seenDocs[t.Doc]; done {
			continue
		}
		seenDocs[t.Doc] = struct{}{}

		for _, sub := range t.Doc.Subcategories {
			seen := make(map[string]struct{})
			drop := make(map[int]struct{})
			for i := 0; i < sub.Len(); i++ {
				q := sub.Question(i)
				if q == nil {
					continue
				}
				ref := audit.EntrySummary{
					TopicID:       t.ID,
					SubcategoryID: sub.ID,
					QuestionID:    q.ID(),
					SourceFile:    t.File,
					Question:      q.Text(),
				}
				norm := textnorm.Normalize(ref.Question)
				if norm == "" {
					kept = append(kept, ref)
					continue
				}
				if _, dup := seen[norm]; dup {
					drop[i] = struct{}{}
					res.AutoRemoved = append(res.AutoRemoved, ref)
					continue
				}
				seen[norm] = struct{}{}
				kept = append(kept, ref)
			}
			if len(drop) == 0 {
				continue
			}
			files[t.File] = struct{}{}
			if apply {
				sub.RemoveIndices(drop)
			}
		}
	}

	for f := range files {
		res.ChangedFiles = append(res.ChangedFiles, f)
	}
	sort.Strings(res.ChangedFiles)
	res.CrossTopicDuplicates = crossTopicGroups(kept)

	res.Summary = SafeSummary{
		ToRemoveCount:    len(res.AutoRemoved),
		FilesChanged:     len(res.ChangedFiles),
		CrossTopicGroups: len(res.CrossTopicDuplicates),
		Applied:          apply,
	}
	return res
}

func crossTopicGroups(kept []audit.EntrySummary) []CrossTopicGroup {
	var order []string
	byNorm := make(map[string][]audit.EntrySummary)
	for _, ref := range kept {
		norm := textnorm.Normalize(ref.Question)
		if norm == "" {
			continue
		}
		if _, ok := byNorm[norm]; !ok {
			order = append(order, norm)
		}
		byNorm[norm] = append(byNorm[norm], ref)
	}

	groups := []CrossTopicGroup{}
	for _, norm := range order {
		items := byNorm[norm]
		if len(items) < 2 || !spansTopics(items) {
			continue
		}
		groups = append(groups, CrossTopicGroup{NormalizedQuestion: norm, Occurrences: items})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Occurrences) > len(groups[j].Occurrences)
	})
	return groups
}

func spansTopics(items []audit.EntrySummary) bool {
	for _, it := range items[1:] {
		if it.TopicID != items[0].TopicID {
			return true
		}
	}
	return false
}
