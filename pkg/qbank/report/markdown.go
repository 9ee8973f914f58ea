// Package report renders pipeline artifacts for people: Markdown summaries
// for every stage, plus spreadsheet and HTML views of the review queue.
package report

import (
	"fmt"
	"strings"

	"github.com/cognicore/qbank/pkg/qbank/audit"
	"github.com/cognicore/qbank/pkg/qbank/batch"
	"github.com/cognicore/qbank/pkg/qbank/dedupe"
	"github.com/cognicore/qbank/pkg/qbank/expand"
	"github.com/cognicore/qbank/pkg/qbank/jsonio"
	"github.com/cognicore/qbank/pkg/qbank/reconcile"
	"github.com/cognicore/qbank/pkg/qbank/review"
)

// Listing limits for the audit summary.
const (
	maxDuplicateIDs   = 25
	maxExactGroups    = 25
	maxNearPairs      = 40
	maxRelevanceFlags = 80
	maxAnomalies      = 40
	maxCrossGroups    = 80
	maxGroupRefs      = 10

	groupSnippet    = 140
	questionSnippet = 180
	crossSnippet    = 150
)

type doc struct {
	b strings.Builder
}

func (d *doc) line(format string, args ...any) {
	if len(args) == 0 {
		d.b.WriteString(format)
	} else {
		fmt.Fprintf(&d.b, format, args...)
	}
	d.b.WriteByte('\n')
}

func (d *doc) none() { d.line("- None") }

func (d *doc) String() string { return d.b.String() }

// snippet truncates s to n characters, marking the cut with "...".
func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// WriteFile atomically writes rendered Markdown to path.
func WriteFile(path, content string) error {
	return jsonio.WriteBytes(path, []byte(content))
}

// AuditMarkdown summarizes an audit report.
func AuditMarkdown(r *audit.Report) string {
	var d doc
	s := r.Summary
	d.line("# Question Quality Audit")
	d.line("")
	d.line("## Summary")
	d.line("- Total questions scanned: **%d**", s.TotalQuestions)
	d.line("- Duplicate question IDs: **%d**", s.DuplicateIDs)
	d.line("- Exact duplicate text groups: **%d**", s.ExactDuplicateTextGroups)
	d.line("- Near duplicate pairs: **%d**", s.NearDuplicatePairs)
	d.line("- Relevance flags: **%d**", s.RelevanceFlags)
	if s.Anomalies > 0 || s.SkippedTopics > 0 {
		d.line("- Structural anomalies: **%d**", s.Anomalies)
		d.line("- Skipped topics: **%d**", s.SkippedTopics)
	}
	d.line("")

	d.line("## Top Duplicate ID Findings")
	keys := audit.SortedKeys(r.DuplicateIDs)
	if len(keys) == 0 {
		d.none()
	}
	for i, id := range keys {
		if i == maxDuplicateIDs {
			break
		}
		refs := make([]string, 0, len(r.DuplicateIDs[id]))
		for _, it := range r.DuplicateIDs[id] {
			refs = append(refs, fmt.Sprintf("%s/%s (%s)", it.TopicID, it.SubcategoryID, it.SourceFile))
		}
		d.line("- `%s` -> %s", id, strings.Join(refs, ", "))
	}
	d.line("")

	d.line("## Top Exact Duplicate Question Text Findings")
	keys = audit.SortedKeys(r.ExactDuplicateText)
	if len(keys) == 0 {
		d.none()
	}
	for i, text := range keys {
		if i == maxExactGroups {
			break
		}
		refs := make([]string, 0, len(r.ExactDuplicateText[text]))
		for _, it := range r.ExactDuplicateText[text] {
			refs = append(refs, fmt.Sprintf("%s [%s/%s]", it.QuestionID, it.TopicID, it.SubcategoryID))
		}
		d.line("- \"%s\" -> %s", snippet(text, groupSnippet), strings.Join(refs, ", "))
	}
	d.line("")

	d.line("## Top Near Duplicate Pairs")
	if len(r.NearDuplicates) == 0 {
		d.none()
	}
	for i, p := range r.NearDuplicates {
		if i == maxNearPairs {
			break
		}
		d.line("- sim=%v :: `%s` (%s/%s) <-> `%s` (%s/%s)", p.Similarity,
			p.A.QuestionID, p.A.TopicID, p.A.SubcategoryID,
			p.B.QuestionID, p.B.TopicID, p.B.SubcategoryID)
	}
	d.line("")

	d.line("## Top Relevance Flags")
	if len(r.RelevanceFlags) == 0 {
		d.none()
	}
	for i, f := range r.RelevanceFlags {
		if i == maxRelevanceFlags {
			break
		}
		best := f.Target()
		if best == "" {
			best = "none"
		}
		q := f.Question
		d.line("- `%s` [%s/%s] (own_topic=%d, own_sub=%d, best_other=%s:%d) -> %s",
			q.QuestionID, q.TopicID, q.SubcategoryID,
			f.OwnTopicScore, f.OwnSubcategoryScore, best, f.BestOtherScore,
			strings.Join(f.Reasons, ", "))
		d.line("  - %s", snippet(q.Question, questionSnippet))
	}

	if len(r.Anomalies) > 0 || len(r.SkippedTopics) > 0 {
		d.line("")
		d.line("## Structural Warnings")
		for _, sk := range r.SkippedTopics {
			d.line("- skipped topic `%s` (%s): %s", sk.Topic, sk.File, sk.Reason)
		}
		for i, a := range r.Anomalies {
			if i == maxAnomalies {
				d.line("- ... %d more", len(r.Anomalies)-maxAnomalies)
				break
			}
			loc := a.File
			if a.Subcategory != "" {
				loc += "#" + a.Subcategory
			}
			d.line("- %s at %s[%d]: %s", a.Kind, loc, a.Position, a.Detail)
		}
	}
	return d.String()
}

// QueueMarkdown lists the review queue.
func QueueMarkdown(q *review.Queue) string {
	var d doc
	d.line("# Relevance Review Queue")
	d.line("")
	d.line("- Total high-confidence manual review items: **%d**", q.Count)
	d.line("")
	for _, it := range q.Items {
		d.line("- `%s` [%s/%s] -> suggested `%s`", it.QuestionID, it.SourceTopic, it.SourceSubcategory, it.SuggestedTargetTopic)
		d.line("  - scores: own_topic=%d, own_sub=%d, best_other=%d",
			it.Scores.OwnTopic, it.Scores.OwnSubcategory, it.Scores.BestOther)
		if it.RecommendedAction != review.ActionManualReview {
			d.line("  - decision: %s", it.RecommendedAction)
		}
		d.line("  - %s", snippet(it.Question, questionSnippet))
	}
	return d.String()
}

// BatchMarkdown summarizes a batch run.
func BatchMarkdown(r *batch.Result) string {
	var d doc
	s := r.Summary
	d.line("# Relevance Queue Batch Result")
	d.line("")
	d.line("## Summary")
	d.line("- Processed actions: **%d**", s.ProcessedActions)
	d.line("- Moved to target: **%d**", s.Moved)
	d.line("- Removed source duplicates (target already had copy): **%d**", s.RemovedSourceDuplicates)
	d.line("- Moves skipped (destination unusable): **%d**", s.SkippedMoveFailed)
	d.line("- Files changed: **%d**", s.FilesChanged)
	d.line("- Applied: **%t**", s.Applied)
	d.line("")
	d.line("## Actions")
	if len(r.Actions) == 0 {
		d.none()
	}
	for _, a := range r.Actions {
		d.line("- `%s`: %s (%s/%s -> %s)", a.QuestionID, a.Action, a.SourceTopic, a.SourceSubcategory, a.TargetTopic)
		if a.Detail != "" {
			d.line("  - %s", a.Detail)
		}
	}
	return d.String()
}

// ReconcileMarkdown summarizes a reconcile run.
func ReconcileMarkdown(r *reconcile.Result) string {
	var d doc
	d.line("# Relevance Move Reconciliation")
	d.line("")
	d.line("## Summary")
	d.line("- Leftover source copies removed: **%d**", r.Summary.RemovedLeftovers)
	d.line("- Files changed: **%d**", r.Summary.FilesChanged)
	d.line("- Applied: **%t**", r.Summary.Applied)
	d.line("")
	d.line("## Removals")
	if len(r.Removals) == 0 {
		d.none()
	}
	for _, rm := range r.Removals {
		d.line("- `%s` [%s/%s] already under `%s`", rm.QuestionID, rm.SourceTopic, rm.SourceSubcategory, rm.TargetTopic)
		d.line("  - %s", snippet(rm.Question, questionSnippet))
	}
	return d.String()
}

// ExpandMarkdown summarizes an expand run.
func ExpandMarkdown(r *expand.Result) string {
	var d doc
	s := r.Summary
	d.line("# Question Bank Expansion")
	d.line("")
	d.line("## Summary")
	d.line("- Minimum per subcategory: **%d**", s.Min)
	d.line("- Subcategories expanded: **%d**", s.SubcategoriesExpanded)
	d.line("- Questions added: **%d**", s.QuestionsAdded)
	d.line("- Files changed: **%d**", s.FilesChanged)
	d.line("- Applied: **%t**", s.Applied)
	d.line("")
	d.line("## Additions")
	if len(r.Additions) == 0 {
		d.none()
	}
	for _, a := range r.Additions {
		d.line("- %s|%s|added=%d|total=%d", a.TopicID, a.SubcategoryID, a.Added, a.NewTotal)
	}
	return d.String()
}

// SafeMarkdown summarizes a safe duplicate cleanup.
func SafeMarkdown(r *dedupe.SafeResult) string {
	var d doc
	d.line("# Safe Duplicate Cleanup Proposal")
	d.line("")
	d.line("## Summary")
	d.line("- Duplicate questions removed (same topic/subcategory): **%d**", r.Summary.ToRemoveCount)
	d.line("- Topic files changed: **%d**", r.Summary.FilesChanged)
	d.line("- Cross-topic duplicate groups kept for manual review: **%d**", r.Summary.CrossTopicGroups)
	d.line("")

	d.line("## Auto-Removal List")
	if len(r.AutoRemoved) == 0 {
		d.none()
	}
	for _, it := range r.AutoRemoved {
		d.line("- `%s` [%s/%s] in `%s`", it.QuestionID, it.TopicID, it.SubcategoryID, it.SourceFile)
		d.line("  - %s", snippet(it.Question, questionSnippet))
	}
	d.line("")

	d.line("## Cross-Topic Duplicates (Manual Review)")
	if len(r.CrossTopicDuplicates) == 0 {
		d.none()
	}
	for i, g := range r.CrossTopicDuplicates {
		if i == maxCrossGroups {
			break
		}
		d.line("- occurrences=%d :: \"%s\"", len(g.Occurrences), snippet(g.NormalizedQuestion, crossSnippet))
		refs := make([]string, 0, maxGroupRefs)
		for j, o := range g.Occurrences {
			if j == maxGroupRefs {
				break
			}
			refs = append(refs, fmt.Sprintf("%s [%s/%s]", o.QuestionID, o.TopicID, o.SubcategoryID))
		}
		d.line("  - %s", strings.Join(refs, ", "))
	}
	return d.String()
}

// CanonicalMarkdown summarizes a canonical cross-topic dedupe.
func CanonicalMarkdown(r *dedupe.CanonicalResult) string {
	var d doc
	d.line("# Canonical Cross-Topic Dedupe Proposal")
	d.line("")
	d.line("## Summary")
	d.line("- Proposed removals: **%d**", r.Summary.ToRemoveCount)
	d.line("- Files changed: **%d**", r.Summary.FilesChanged)
	d.line("- Applied: **%t**", r.Summary.Applied)
	d.line("")
	d.line("## Removal List")
	if len(r.Removals) == 0 {
		d.none()
	}
	for _, p := range r.Removals {
		d.line("- `%s` [%s/%s] in `%s` -> keep under `%s` (%s)",
			p.QuestionID, p.TopicID, p.SubcategoryID, p.SourceFile, p.CanonicalTopic, p.CanonicalEvidence)
		d.line("  - %s", snippet(p.Question, questionSnippet))
	}
	return d.String()
}
