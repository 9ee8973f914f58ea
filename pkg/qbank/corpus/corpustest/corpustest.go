// Package corpustest writes small topic corpora to disk for tests.
package corpustest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/qbank/pkg/qbank/corpus"
)

// IndexPath is where Write places the topic index, relative to the root.
const IndexPath = "data/topics.json"

// Topic describes one topic and its document.
type Topic struct {
	ID            string
	Name          string
	File          string // defaults to data/<id>.json
	Subcategories []Subcategory
	NoFile        bool // declare the topic but do not write its document
}

// Subcategory describes one subcategory of a topic document.
type Subcategory struct {
	ID        string
	Name      string
	Nested    bool
	NoList    bool // omit the questions key
	Questions []map[string]any
}

// Q builds a question object with extra key/value pairs.
func Q(id, text string, kv ...any) map[string]any {
	q := map[string]any{"id": id, "question": text}
	for i := 0; i+1 < len(kv); i += 2 {
		q[kv[i].(string)] = kv[i+1]
	}
	return q
}

// Write lays out the topics under a fresh temp dir and returns the root.
func Write(t testing.TB, topics ...Topic) string {
	t.Helper()
	root := t.TempDir()

	index := map[string]any{}
	var refs []map[string]any
	for _, tp := range topics {
		file := tp.File
		if file == "" {
			file = "data/" + tp.ID + ".json"
		}
		var metas []map[string]any
		var subs []map[string]any
		for _, s := range tp.Subcategories {
			metas = append(metas, map[string]any{"id": s.ID, "name": s.Name})
			questions := s.Questions
			if questions == nil {
				questions = []map[string]any{}
			}
			var list any = questions
			if s.Nested {
				list = []map[string]any{{s.ID: questions}}
			}
			sub := map[string]any{"id": s.ID, "name": s.Name, "questions": list}
			if s.NoList {
				delete(sub, "questions")
			}
			subs = append(subs, sub)
		}
		refs = append(refs, map[string]any{
			"id":            tp.ID,
			"name":          tp.Name,
			"file":          file,
			"subcategories": metas,
		})
		if !tp.NoFile {
			writeJSON(t, filepath.Join(root, file), map[string]any{"subcategories": subs})
		}
	}
	index["topics"] = refs
	writeJSON(t, filepath.Join(root, IndexPath), index)
	return root
}

// Load writes the topics and loads them back.
func Load(t testing.TB, topics ...Topic) *corpus.Corpus {
	t.Helper()
	root := Write(t, topics...)
	c, err := corpus.Load(root, IndexPath)
	if err != nil {
		t.Fatalf("load corpus: %v", err)
	}
	return c
}

// ReadDoc decodes a written topic document for assertions.
func ReadDoc(t testing.TB, root, file string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, file))
	if err != nil {
		t.Fatalf("read %s: %v", file, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode %s: %v", file, err)
	}
	return doc
}

// QuestionIDs returns the ids of the questions stored in subcategory sub of
// a loaded corpus topic, in order.
func QuestionIDs(c *corpus.Corpus, topic, sub string) []string {
	tp, ok := c.Topic(topic)
	if !ok {
		return nil
	}
	s, ok := tp.Subcategory(sub)
	if !ok {
		return nil
	}
	ids := []string{}
	for _, q := range s.Questions() {
		ids = append(ids, q.ID())
	}
	return ids
}

func writeJSON(t testing.TB, path string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
