// Package corpus loads the topic index and topic documents into memory,
// exposes a uniform view over flat and nested question lists, and writes
// mutated documents back in their original shape.
package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/cognicore/qbank/pkg/qbank/internalerr"
	"github.com/cognicore/qbank/pkg/qbank/jsonio"
)

// Anomaly kinds.
const (
	AnomalyNonObjectTopic       = "non_object_topic"
	AnomalyDuplicateTopic       = "duplicate_topic_id"
	AnomalyNoSubcategories      = "missing_subcategories"
	AnomalyNonObjectSubcategory = "non_object_subcategory"
	AnomalyNoQuestions          = "missing_questions"
	AnomalyNonObjectQuestion    = "non_object_question"
	AnomalyUndeclaredSubcat     = "declared_subcategory_absent"
)

// Anomaly is a structural problem that was tolerated while loading.
type Anomaly struct {
	Topic       string `json:"topic_id,omitempty"`
	File        string `json:"file,omitempty"`
	Subcategory string `json:"subcategory_id,omitempty"`
	Position    int    `json:"position"`
	Kind        string `json:"kind"`
	Detail      string `json:"detail"`
}

// Skip records a topic that contributed nothing because its file could not
// be used.
type Skip struct {
	Topic  string `json:"topic_id"`
	File   string `json:"file,omitempty"`
	Reason string `json:"reason"`
}

// SubcategoryMeta is the declarative subcategory entry of the topic index.
type SubcategoryMeta struct {
	ID          string
	Name        string
	Description string
	Icon        string
}

// TopicRef is one entry of the topic index.
type TopicRef struct {
	ID            string
	Name          string
	File          string
	Subcategories []SubcategoryMeta
}

// Index is the parsed topic index.
type Index struct {
	Topics []TopicRef
}

// ParseIndex decodes the topic index document.
func ParseIndex(data []byte) (*Index, []Anomaly, error) {
	obj, ok, err := ParseObject(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", internalerr.ErrIndexUnreadable, err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: index is not a JSON object", internalerr.ErrIndexUnreadable)
	}

	idx := &Index{}
	raw, _ := obj.Get("topics")
	elems, _, err := splitArray(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: topics: %v", internalerr.ErrIndexUnreadable, err)
	}

	var anomalies []Anomaly
	for i, e := range elems {
		t, isObj, err := ParseObject(e)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: topics[%d]: %v", internalerr.ErrIndexUnreadable, i, err)
		}
		if !isObj {
			anomalies = append(anomalies, Anomaly{Position: i, Kind: AnomalyNonObjectTopic,
				Detail: fmt.Sprintf("topics[%d] is not an object", i)})
			continue
		}
		ref := TopicRef{ID: t.Scalar("id"), File: t.Scalar("file")}
		ref.Name = ref.ID
		if t.Has("name") {
			ref.Name = t.Scalar("name")
		}
		subsRaw, _ := t.Get("subcategories")
		subs, _, _ := splitArray(subsRaw)
		for _, s := range subs {
			so, isObj, err := ParseObject(s)
			if err != nil || !isObj {
				continue
			}
			ref.Subcategories = append(ref.Subcategories, SubcategoryMeta{
				ID:          so.Scalar("id"),
				Name:        so.Scalar("name"),
				Description: so.Scalar("description"),
				Icon:        so.Scalar("icon"),
			})
		}
		idx.Topics = append(idx.Topics, ref)
	}
	return idx, anomalies, nil
}

// Topic is a loaded topic with its backing document.
type Topic struct {
	TopicRef
	Doc *Document
}

// Subcategory returns the first subcategory of the topic's document with id.
func (t *Topic) Subcategory(id string) (*Subcategory, bool) {
	return t.Doc.Subcategory(id)
}

// Entry is one question together with its location.
type Entry struct {
	Topic       *Topic
	Subcategory *Subcategory
	Index       int
	Question    *Question
}

// Corpus is the in-memory working set of one pipeline run.
type Corpus struct {
	Root      string
	Index     *Index
	Topics    []*Topic // loaded topics, in index order
	Skipped   []Skip
	Anomalies []Anomaly

	byID map[string]*Topic
	docs map[string]*Document
}

// Load reads the topic index at indexPath and every topic document it
// references. Relative paths resolve against root. An unreadable index is
// fatal; unusable topic files are recorded in Skipped.
func Load(root, indexPath string) (*Corpus, error) {
	path := indexPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, indexPath)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrIndexUnreadable, err)
	}
	idx, anomalies, err := ParseIndex(data)
	if err != nil {
		return nil, err
	}

	c := New(root, idx)
	c.Anomalies = append(c.Anomalies, anomalies...)
	for _, ref := range idx.Topics {
		if ref.File == "" {
			c.Skipped = append(c.Skipped, Skip{Topic: ref.ID, Reason: "no file configured"})
			continue
		}
		doc, ok := c.docs[ref.File]
		if !ok {
			data, err := os.ReadFile(c.Path(ref.File))
			if err != nil {
				reason := err.Error()
				if errors.Is(err, fs.ErrNotExist) {
					reason = "file not found"
				}
				c.Skipped = append(c.Skipped, Skip{Topic: ref.ID, File: ref.File, Reason: reason})
				continue
			}
			parsed, docAnomalies, err := ParseDocument(ref.File, data)
			if err != nil {
				c.Skipped = append(c.Skipped, Skip{Topic: ref.ID, File: ref.File, Reason: err.Error()})
				continue
			}
			for i := range docAnomalies {
				docAnomalies[i].Topic = ref.ID
			}
			c.Anomalies = append(c.Anomalies, docAnomalies...)
			c.docs[ref.File] = parsed
			doc = parsed
		}
		c.AddTopic(&Topic{TopicRef: ref, Doc: doc})
	}
	return c, nil
}

// New creates an empty corpus for idx. Topics are added with AddTopic.
func New(root string, idx *Index) *Corpus {
	if idx == nil {
		idx = &Index{}
	}
	return &Corpus{
		Root:  root,
		Index: idx,
		byID:  make(map[string]*Topic),
		docs:  make(map[string]*Document),
	}
}

// AddTopic appends a loaded topic. The first topic registered under an id
// is the one returned by Topic; later ones are still iterated.
func (c *Corpus) AddTopic(t *Topic) {
	if _, dup := c.byID[t.ID]; dup {
		c.Anomalies = append(c.Anomalies, Anomaly{Topic: t.ID, File: t.File, Kind: AnomalyDuplicateTopic,
			Detail: fmt.Sprintf("topic id %q declared more than once", t.ID)})
	} else {
		c.byID[t.ID] = t
	}
	if t.Doc != nil {
		c.docs[t.File] = t.Doc
		for _, meta := range t.TopicRef.Subcategories {
			if meta.ID == "" {
				continue
			}
			if _, ok := t.Doc.Subcategory(meta.ID); !ok {
				c.Anomalies = append(c.Anomalies, Anomaly{Topic: t.ID, File: t.File, Subcategory: meta.ID,
					Kind: AnomalyUndeclaredSubcat, Detail: "subcategory declared in index but absent from document"})
			}
		}
	}
	c.Topics = append(c.Topics, t)
}

// Path resolves a topic file path against the corpus root.
func (c *Corpus) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Root, rel)
}

// Topic returns the loaded topic with id.
func (c *Corpus) Topic(id string) (*Topic, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// Entries returns every object question in index, document and list order.
func (c *Corpus) Entries() []Entry {
	var out []Entry
	for _, t := range c.Topics {
		for _, sub := range t.Doc.Subcategories {
			for i := 0; i < sub.Len(); i++ {
				q := sub.Question(i)
				if q == nil {
					continue
				}
				out = append(out, Entry{Topic: t, Subcategory: sub, Index: i, Question: q})
			}
		}
	}
	return out
}

// ChangedFiles lists the files of mutated documents, sorted.
func (c *Corpus) ChangedFiles() []string {
	out := []string{}
	for file, doc := range c.docs {
		if doc.dirty {
			out = append(out, file)
		}
	}
	sort.Strings(out)
	return out
}

// Save writes every mutated document and returns the written files. All
// documents are rendered before the first write so an encoding failure
// leaves the corpus on disk untouched.
func (c *Corpus) Save() ([]string, error) {
	files := c.ChangedFiles()
	rendered := make([][]byte, len(files))
	for i, file := range files {
		raw, err := c.docs[file].Marshal()
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", file, err)
		}
		data, err := jsonio.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", file, err)
		}
		rendered[i] = data
	}
	for i, file := range files {
		if err := jsonio.WriteBytes(c.Path(file), rendered[i]); err != nil {
			return files[:i], fmt.Errorf("write %s: %w", file, err)
		}
		c.docs[file].dirty = false
	}
	return files, nil
}
