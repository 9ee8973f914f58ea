package audit

import (
	"github.com/cognicore/qbank/pkg/qbank/corpus"
	"github.com/cognicore/qbank/pkg/qbank/textnorm"
)

// Options tunes an audit run.
type Options struct {
	NearThreshold float64
}

// Summary holds the headline counts of a report.
type Summary struct {
	TotalQuestions           int `json:"total_questions"`
	DuplicateIDs             int `json:"duplicate_ids"`
	ExactDuplicateTextGroups int `json:"exact_duplicate_text_groups"`
	NearDuplicatePairs       int `json:"near_duplicate_pairs"`
	RelevanceFlags           int `json:"relevance_flags"`
	Anomalies                int `json:"anomalies"`
	SkippedTopics            int `json:"skipped_topics"`
}

// Report is the audit artifact. Map-valued groups encode with sorted keys.
type Report struct {
	RunID              string                    `json:"run_id,omitempty"`
	GeneratedAt        string                    `json:"generated_at,omitempty"`
	Summary            Summary                   `json:"summary"`
	DuplicateIDs       map[string][]EntrySummary `json:"duplicate_ids"`
	ExactDuplicateText map[string][]EntrySummary `json:"exact_duplicate_text"`
	NearDuplicates     []NearDuplicate           `json:"near_duplicates"`
	RelevanceFlags     []RelevanceFlag           `json:"relevance_flags"`
	Anomalies          []corpus.Anomaly          `json:"anomalies"`
	SkippedTopics      []corpus.Skip             `json:"skipped_topics"`
}

// Auditor runs the duplicate detector and relevance scorer.
type Auditor struct {
	Tokenizer *textnorm.Tokenizer
	Hints     HintSource
}

// NewAuditor creates an auditor. A nil tokenizer selects the default stopwords.
func NewAuditor(tok *textnorm.Tokenizer, hints HintSource) *Auditor {
	if tok == nil {
		tok = textnorm.NewDefaultTokenizer()
	}
	return &Auditor{Tokenizer: tok, Hints: hints}
}

// Run audits a loaded corpus. Structural anomalies and skipped topics are
// carried into the report as warnings; total_questions counts only object
// questions.
func (a *Auditor) Run(c *corpus.Corpus, opts Options) *Report {
	r := a.Build(NewEntries(c.Entries(), a.Tokenizer), opts)
	if len(c.Anomalies) > 0 {
		r.Anomalies = append(r.Anomalies, c.Anomalies...)
	}
	if len(c.Skipped) > 0 {
		r.SkippedTopics = append(r.SkippedTopics, c.Skipped...)
	}
	r.Summary.Anomalies = len(r.Anomalies)
	r.Summary.SkippedTopics = len(r.SkippedTopics)
	return r
}

// Build audits a prepared entry list.
func (a *Auditor) Build(entries []QEntry, opts Options) *Report {
	threshold := opts.NearThreshold
	if threshold <= 0 {
		threshold = DefaultNearThreshold
	}

	dupIDs := DuplicateIDs(entries)
	exact := ExactDuplicates(entries)
	near := NearDuplicates(entries, threshold)
	flags := Score(entries, BuildProfiles(entries, a.Tokenizer, a.Hints), a.Tokenizer)

	return &Report{
		Summary: Summary{
			TotalQuestions:           len(entries),
			DuplicateIDs:             len(dupIDs),
			ExactDuplicateTextGroups: len(exact),
			NearDuplicatePairs:       len(near),
			RelevanceFlags:           len(flags),
		},
		DuplicateIDs:       dupIDs,
		ExactDuplicateText: exact,
		NearDuplicates:     near,
		RelevanceFlags:     flags,
		Anomalies:          []corpus.Anomaly{},
		SkippedTopics:      []corpus.Skip{},
	}
}
