package dedupe

import (
	"github.com/cognicore/qbank/pkg/qbank/audit"
	"github.com/cognicore/qbank/pkg/qbank/corpus"
	"github.com/cognicore/qbank/pkg/qbank/textnorm"
)

// CanonicalInferrer names the topic a question text explicitly belongs to.
type CanonicalInferrer interface {
	InferCanonical(questionText string) (topic, evidence string, ok bool)
}

// Proposal is one non-canonical copy of a cross-topic duplicate.
type Proposal struct {
	TopicID           string `json:"topic_id"`
	SubcategoryID     string `json:"subcategory_id"`
	QuestionID        string `json:"question_id"`
	SourceFile        string `json:"source_file"`
	Question          string `json:"question"`
	NormQuestion      string `json:"norm_question"`
	CanonicalTopic    string `json:"canonical_topic"`
	CanonicalEvidence string `json:"canonical_evidence"`
}

// CanonicalSummary holds the counts of a canonical dedupe run.
type CanonicalSummary struct {
	ToRemoveCount int  `json:"to_remove_count"`
	FilesChanged  int  `json:"files_changed"`
	Applied       bool `json:"applied"`
}

// CanonicalResult is the canonical dedupe artifact.
type CanonicalResult struct {
	RunID        string           `json:"run_id,omitempty"`
	Summary      CanonicalSummary `json:"summary"`
	ChangedFiles []string         `json:"changed_files"`
	Removals     []Proposal       `json:"removals"`
}

// Propose walks the exact duplicate text groups of an audit report in key
// order. The canonical topic is inferred from the first item's text; groups
// without an explicit match, or whose canonical topic holds none of the
// copies, are left alone. Every copy outside the canonical topic becomes a
// proposal, once per location.
func Propose(report *audit.Report, inf CanonicalInferrer) []Proposal {
	type locKey struct{ topic, sub, id, file string }

	out := []Proposal{}
	seen := make(map[locKey]struct{})
	for _, key := range audit.SortedKeys(report.ExactDuplicateText) {
		items := report.ExactDuplicateText[key]
		if len(items) == 0 {
			continue
		}
		canonical, evidence, ok := inf.InferCanonical(items[0].Question)
		if !ok || !containsTopic(items, canonical) {
			continue
		}
		for _, it := range items {
			if it.TopicID == canonical {
				continue
			}
			k := locKey{it.TopicID, it.SubcategoryID, it.QuestionID, it.SourceFile}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, Proposal{
				TopicID:           it.TopicID,
				SubcategoryID:     it.SubcategoryID,
				QuestionID:        it.QuestionID,
				SourceFile:        it.SourceFile,
				Question:          it.Question,
				NormQuestion:      textnorm.Normalize(it.Question),
				CanonicalTopic:    canonical,
				CanonicalEvidence: evidence,
			})
		}
	}
	return out
}

func containsTopic(items []audit.EntrySummary, topic string) bool {
	for _, it := range items {
		if it.TopicID == topic {
			return true
		}
	}
	return false
}

// Canonical proposes removals from report and, with apply set, removes the
// proposed copies still present in c. A proposal is matched by topic,
// subcategory, question id and normalized text; proposals that no longer
// match anything are kept in the artifact but change nothing.
func Canonical(c *corpus.Corpus, report *audit.Report, inf CanonicalInferrer, apply bool) *CanonicalResult {
	proposals := Propose(report, inf)
	res := &CanonicalResult{ChangedFiles: []string{}, Removals: proposals}

	if apply && len(proposals) > 0 {
		applyProposals(c, proposals)
		res.ChangedFiles = c.ChangedFiles()
	}
	res.Summary = CanonicalSummary{
		ToRemoveCount: len(proposals),
		FilesChanged:  len(res.ChangedFiles),
		Applied:       apply,
	}
	return res
}

type location struct {
	sub   *corpus.Subcategory
	index int
}

func applyProposals(c *corpus.Corpus, proposals []Proposal) {
	type key struct{ topic, sub, id, norm string }

	locations := make(map[key]location)
	for _, e := range c.Entries() {
		k := key{e.Topic.ID, e.Subcategory.ID, e.Question.ID(), textnorm.Normalize(e.Question.Text())}
		locations[k] = location{sub: e.Subcategory, index: e.Index}
	}

	removals := make(map[*corpus.Subcategory]map[int]struct{})
	var order []*corpus.Subcategory
	for _, p := range proposals {
		loc, ok := locations[key{p.TopicID, p.SubcategoryID, p.QuestionID, p.NormQuestion}]
		if !ok {
			continue
		}
		set, ok := removals[loc.sub]
		if !ok {
			set = make(map[int]struct{})
			removals[loc.sub] = set
			order = append(order, loc.sub)
		}
		set[loc.index] = struct{}{}
	}
	for _, sub := range order {
		sub.RemoveIndices(removals[sub])
	}
}
