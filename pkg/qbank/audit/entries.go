// Package audit finds duplicate and misplaced questions in a loaded corpus.
package audit

import (
	"github.com/cognicore/qbank/pkg/qbank/corpus"
	"github.com/cognicore/qbank/pkg/qbank/textnorm"
)

// QEntry is the flattened projection of one question used by a single audit
// run.
type QEntry struct {
	TopicID         string
	TopicName       string
	SubcategoryID   string
	SubcategoryName string
	QuestionID      string
	Question        string
	Keywords        []string
	Chapter         string
	SourceFile      string
	Norm            string
	Tokens          []string
}

// EntrySummary is the compact form of a QEntry written to artifacts.
type EntrySummary struct {
	TopicID       string `json:"topic_id"`
	SubcategoryID string `json:"subcategory_id"`
	QuestionID    string `json:"question_id"`
	SourceFile    string `json:"source_file"`
	Question      string `json:"question"`
}

// Summary returns the artifact form of e.
func (e QEntry) Summary() EntrySummary {
	return EntrySummary{
		TopicID:       e.TopicID,
		SubcategoryID: e.SubcategoryID,
		QuestionID:    e.QuestionID,
		SourceFile:    e.SourceFile,
		Question:      e.Question,
	}
}

// NewEntries projects corpus entries into QEntries.
func NewEntries(entries []corpus.Entry, tok *textnorm.Tokenizer) []QEntry {
	out := make([]QEntry, 0, len(entries))
	for _, e := range entries {
		text := e.Question.Text()
		out = append(out, QEntry{
			TopicID:         e.Topic.ID,
			TopicName:       e.Topic.Name,
			SubcategoryID:   e.Subcategory.ID,
			SubcategoryName: e.Subcategory.Name,
			QuestionID:      e.Question.ID(),
			Question:        text,
			Keywords:        e.Question.Keywords(),
			Chapter:         e.Question.Chapter(),
			SourceFile:      e.Topic.File,
			Norm:            textnorm.Normalize(text),
			Tokens:          tok.Tokenize(text),
		})
	}
	return out
}
