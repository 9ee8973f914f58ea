// Package validate checks the topic index and topic documents for schema
// conformance and cross-file integrity.
package validate

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/cognicore/qbank/pkg/qbank/corpus"
	"github.com/cognicore/qbank/pkg/qbank/internalerr"
)

//go:embed schema/index.schema.json
var indexSchemaJSON string

//go:embed schema/topic.schema.json
var topicSchemaJSON string

// Options controls validation strictness.
type Options struct {
	// StrictDuplicates turns duplicate question ids into an error.
	StrictDuplicates bool
}

// TopicSummary describes one index entry after validation.
type TopicSummary struct {
	ID            string   `json:"id"`
	Subcategories int      `json:"subcategories"`
	Questions     int      `json:"questions"`
	Files         []string `json:"files"`
}

// Report is the outcome of a validation run.
type Report struct {
	Topics               []TopicSummary      `json:"topics"`
	Warnings             []string            `json:"warnings"`
	Errors               []string            `json:"errors"`
	DuplicateQuestionIDs map[string][]string `json:"duplicate_question_ids"`
}

// Passed reports whether no errors were found.
func (r *Report) Passed() bool { return len(r.Errors) == 0 }

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validator holds the compiled schemas.
type Validator struct {
	index *gojsonschema.Schema
	topic *gojsonschema.Schema
}

// New compiles the embedded schemas.
func New() (*Validator, error) {
	index, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(indexSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile index schema: %w", err)
	}
	topic, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(topicSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile topic schema: %w", err)
	}
	return &Validator{index: index, topic: topic}, nil
}

// Run validates the index at indexPath and every file it references.
// Index schema violations are errors; topic document schema violations are
// warnings because the loader tolerates them. An unreadable index is
// returned as an error wrapping internalerr.ErrIndexUnreadable.
func (v *Validator) Run(root, indexPath string, opts Options) (*Report, error) {
	data, err := os.ReadFile(resolve(root, indexPath))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrIndexUnreadable, err)
	}
	idx, _, err := corpus.ParseIndex(data)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Topics:               []TopicSummary{},
		Warnings:             []string{},
		Errors:               []string{},
		DuplicateQuestionIDs: map[string][]string{},
	}
	for _, msg := range schemaErrors(v.index, data) {
		rep.errorf("%s: %s", indexPath, msg)
	}

	if dups := repeated(topicIDs(idx)); len(dups) > 0 {
		rep.errorf("Duplicate topic ids: %s", strings.Join(dups, ", "))
	}

	occurrences := make(map[string][]string)
	var qidOrder []string
	visited := make(map[string]bool)

	for _, ref := range idx.Topics {
		tid := ref.ID
		if tid == "" {
			tid = "<missing>"
		}
		if ref.File == "" {
			rep.errorf("Topic '%s' has no data file configured", tid)
			continue
		}

		summary := TopicSummary{ID: tid, Subcategories: len(ref.Subcategories), Files: []string{ref.File}}
		present := make(map[string]*corpus.Subcategory)

		doc, err := v.loadDocument(root, ref.File, rep)
		if err == nil {
			for _, sub := range doc.Subcategories {
				if sub.ID != "" {
					present[sub.ID] = sub
				}
				summary.Questions += sub.Len()
				if visited[ref.File] {
					continue
				}
				for _, q := range sub.Questions() {
					id := q.ID()
					if id == "" {
						continue
					}
					if _, seen := occurrences[id]; !seen {
						qidOrder = append(qidOrder, id)
					}
					occurrences[id] = append(occurrences[id], ref.File+":"+sub.ID)
				}
			}
			visited[ref.File] = true
		}

		declared := make([]string, 0, len(ref.Subcategories))
		for _, s := range ref.Subcategories {
			declared = append(declared, s.ID)
		}
		if dups := repeated(declared); len(dups) > 0 {
			rep.errorf("Topic '%s' has duplicate subcategory ids: %s", tid, strings.Join(dups, ", "))
		}

		if err == nil {
			var unknown, empty []string
			for _, sid := range declared {
				if sid == "" {
					continue
				}
				sub, ok := present[sid]
				switch {
				case !ok:
					unknown = append(unknown, sid)
				case sub.Len() == 0:
					empty = append(empty, sid)
				}
			}
			if len(unknown) > 0 {
				rep.errorf("Topic '%s' references unknown subcategory ids: %s", tid, strings.Join(unknown, ", "))
			}
			if len(empty) > 0 {
				rep.warnf("Topic '%s' has subcategories with zero questions: %s", tid, strings.Join(empty, ", "))
			}
		}
		rep.Topics = append(rep.Topics, summary)
	}

	for _, id := range qidOrder {
		if refs := occurrences[id]; len(refs) > 1 {
			rep.DuplicateQuestionIDs[id] = refs
		}
	}
	if n := len(rep.DuplicateQuestionIDs); n > 0 {
		if opts.StrictDuplicates {
			rep.errorf("Found %d duplicate question IDs across source files", n)
		} else {
			rep.warnf("Found %d duplicate question IDs across source files", n)
		}
	}
	return rep, nil
}

// loadDocument reads and parses one topic file, recording failures on rep.
func (v *Validator) loadDocument(root, file string, rep *Report) (*corpus.Document, error) {
	data, err := os.ReadFile(resolve(root, file))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			rep.errorf("Topic file missing: %s", file)
		} else {
			rep.errorf("Failed reading '%s': %v", file, err)
		}
		return nil, err
	}
	doc, _, err := corpus.ParseDocument(file, data)
	if err != nil {
		rep.errorf("Failed parsing '%s': %v", file, err)
		return nil, err
	}
	for _, msg := range schemaErrors(v.topic, data) {
		rep.warnf("%s: %s", file, msg)
	}
	return doc, nil
}

func schemaErrors(schema *gojsonschema.Schema, data []byte) []string {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return []string{err.Error()}
	}
	if result.Valid() {
		return nil
	}
	out := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		out = append(out, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return out
}

func topicIDs(idx *corpus.Index) []string {
	ids := make([]string, 0, len(idx.Topics))
	for _, t := range idx.Topics {
		ids = append(ids, t.ID)
	}
	return ids
}

// repeated returns the non-empty values occurring more than once, sorted.
func repeated(values []string) []string {
	counts := make(map[string]int)
	for _, v := range values {
		if v != "" {
			counts[v]++
		}
	}
	var out []string
	for v, n := range counts {
		if n > 1 {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
