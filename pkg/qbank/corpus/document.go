package corpus

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cognicore/qbank/pkg/qbank/internalerr"
)

// Shape records how a subcategory stores its question list on disk.
type Shape int

const (
	// ShapeFlat is questions: [q, q, ...].
	ShapeFlat Shape = iota
	// ShapeNested is the legacy questions: [{"<subcategory id>": [q, q, ...]}].
	ShapeNested
	// ShapeMissing means questions is absent or not a list.
	ShapeMissing
)

func (s Shape) String() string {
	switch s {
	case ShapeFlat:
		return "flat"
	case ShapeNested:
		return "nested"
	default:
		return "missing"
	}
}

// Question is one multiple-choice question. All fields are kept; the
// accessors expose the ones the pipeline reads.
type Question struct {
	obj *Object
}

// NewQuestion wraps obj.
func NewQuestion(obj *Object) *Question {
	return &Question{obj: obj}
}

// ID returns the trimmed question id.
func (q *Question) ID() string { return strings.TrimSpace(q.obj.Scalar("id")) }

// Text returns the trimmed question text.
func (q *Question) Text() string { return strings.TrimSpace(q.obj.Scalar("question")) }

// Chapter returns the trimmed chapter.
func (q *Question) Chapter() string { return strings.TrimSpace(q.obj.Scalar("chapter")) }

// Keywords returns the string and numeric items of the keywords list.
func (q *Question) Keywords() []string {
	raw, ok := q.obj.Get("keywords")
	if !ok {
		return nil
	}
	elems, isArray, err := splitArray(raw)
	if err != nil || !isArray {
		return nil
	}
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		switch k := jsonKind(e); {
		case k == '"', k == '-', k >= '0' && k <= '9':
			out = append(out, scalarText(e))
		}
	}
	return out
}

// Fields exposes the underlying object.
func (q *Question) Fields() *Object { return q.obj }

// Clone returns a deep copy of the question.
func (q *Question) Clone() *Question { return &Question{obj: q.obj.Clone()} }

// MarshalJSON implements json.Marshaler.
func (q *Question) MarshalJSON() ([]byte, error) { return q.obj.MarshalJSON() }

type slot struct {
	q   *Question       // nil for entries that are not JSON objects
	raw json.RawMessage // original bytes when q is nil
}

// Subcategory is one question partition inside a topic document.
type Subcategory struct {
	ID    string
	Name  string
	Shape Shape

	doc     *Document
	obj     *Object
	outer   []json.RawMessage // nested shape: the raw questions array
	wrapper *Object           // nested shape: questions[0]
	slots   []slot
}

// Len returns the number of entries in the effective question list,
// including entries that are not objects.
func (s *Subcategory) Len() int { return len(s.slots) }

// Question returns the question at position i, or nil when the entry is not
// a JSON object or i is out of range.
func (s *Subcategory) Question(i int) *Question {
	if i < 0 || i >= len(s.slots) {
		return nil
	}
	return s.slots[i].q
}

// Questions returns the object entries in list order.
func (s *Subcategory) Questions() []*Question {
	out := make([]*Question, 0, len(s.slots))
	for _, sl := range s.slots {
		if sl.q != nil {
			out = append(out, sl.q)
		}
	}
	return out
}

// Append adds q to the end of the question list.
func (s *Subcategory) Append(q *Question) error {
	if s.Shape == ShapeMissing {
		return fmt.Errorf("%w: subcategory %s has no question list", internalerr.ErrMoveFailed, s.ID)
	}
	s.slots = append(s.slots, slot{q: q})
	s.doc.dirty = true
	return nil
}

// RemoveIndices drops the entries at the given positions in one pass and
// returns how many were removed. Out-of-range positions are ignored.
func (s *Subcategory) RemoveIndices(indices map[int]struct{}) int {
	if len(indices) == 0 {
		return 0
	}
	kept := s.slots[:0:0]
	removed := 0
	for i, sl := range s.slots {
		if _, drop := indices[i]; drop {
			removed++
			continue
		}
		kept = append(kept, sl)
	}
	if removed > 0 {
		s.slots = kept
		s.doc.dirty = true
	}
	return removed
}

func (s *Subcategory) marshalList() (json.RawMessage, error) {
	elems := make([]json.RawMessage, len(s.slots))
	for i, sl := range s.slots {
		if sl.q == nil {
			elems[i] = sl.raw
			continue
		}
		b, err := sl.q.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		elems[i] = b
	}
	return joinArray(elems), nil
}

func (s *Subcategory) marshal() (json.RawMessage, error) {
	list, err := s.marshalList()
	if err != nil {
		return nil, err
	}
	switch s.Shape {
	case ShapeFlat:
		s.obj.SetRaw("questions", list)
	case ShapeNested:
		s.wrapper.SetRaw(s.ID, list)
		w, err := s.wrapper.MarshalJSON()
		if err != nil {
			return nil, err
		}
		outer := make([]json.RawMessage, len(s.outer))
		copy(outer, s.outer)
		outer[0] = w
		s.obj.SetRaw("questions", joinArray(outer))
	}
	return s.obj.MarshalJSON()
}

type subSlot struct {
	sub *Subcategory
	raw json.RawMessage
}

// Document is a parsed topic file.
type Document struct {
	File          string
	Subcategories []*Subcategory

	obj     *Object
	hasList bool
	slots   []subSlot
	dirty   bool
}

// Dirty reports whether the document was mutated since it was loaded or saved.
func (d *Document) Dirty() bool { return d.dirty }

// Subcategory returns the first subcategory with the given id.
func (d *Document) Subcategory(id string) (*Subcategory, bool) {
	for _, s := range d.Subcategories {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// ParseDocument decodes a topic document. Structural problems that do not
// prevent loading are returned as anomalies.
func ParseDocument(file string, data []byte) (*Document, []Anomaly, error) {
	obj, ok, err := ParseObject(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidInput, file, err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s: document is not a JSON object", internalerr.ErrInvalidInput, file)
	}

	doc := &Document{File: file, obj: obj}
	var anomalies []Anomaly

	raw, present := obj.Get("subcategories")
	elems, isArray, err := splitArray(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: subcategories: %v", internalerr.ErrInvalidInput, file, err)
	}
	if !present || !isArray {
		anomalies = append(anomalies, Anomaly{File: file, Kind: AnomalyNoSubcategories,
			Detail: "subcategories is missing or not a list"})
		return doc, anomalies, nil
	}
	doc.hasList = true

	for i, e := range elems {
		subObj, isObj, err := ParseObject(e)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: subcategories[%d]: %v", internalerr.ErrInvalidInput, file, i, err)
		}
		if !isObj {
			doc.slots = append(doc.slots, subSlot{raw: e})
			anomalies = append(anomalies, Anomaly{File: file, Position: i, Kind: AnomalyNonObjectSubcategory,
				Detail: fmt.Sprintf("subcategories[%d] is not an object", i)})
			continue
		}
		sub, subAnomalies, err := parseSubcategory(doc, subObj)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: subcategories[%d]: %v", internalerr.ErrInvalidInput, file, i, err)
		}
		anomalies = append(anomalies, subAnomalies...)
		doc.slots = append(doc.slots, subSlot{sub: sub})
		doc.Subcategories = append(doc.Subcategories, sub)
	}
	return doc, anomalies, nil
}

func parseSubcategory(doc *Document, obj *Object) (*Subcategory, []Anomaly, error) {
	sub := &Subcategory{
		ID:    obj.Scalar("id"),
		doc:   doc,
		obj:   obj,
		Shape: ShapeMissing,
	}
	sub.Name = sub.ID
	if obj.Has("name") {
		sub.Name = obj.Scalar("name")
	}

	raw, _ := obj.Get("questions")
	outer, isArray, err := splitArray(raw)
	if err != nil {
		return nil, nil, err
	}
	if !isArray {
		return sub, []Anomaly{{File: doc.File, Subcategory: sub.ID, Kind: AnomalyNoQuestions,
			Detail: "questions is missing or not a list"}}, nil
	}

	list := outer
	sub.Shape = ShapeFlat
	if len(outer) > 0 && sub.ID != "" {
		if wrapper, isObj, err := ParseObject(outer[0]); err == nil && isObj {
			if inner, ok := wrapper.Get(sub.ID); ok {
				if nested, isList, err := splitArray(inner); err == nil && isList {
					sub.Shape = ShapeNested
					sub.outer = outer
					sub.wrapper = wrapper
					list = nested
				}
			}
		}
	}

	var anomalies []Anomaly
	sub.slots = make([]slot, 0, len(list))
	for i, e := range list {
		qObj, isObj, err := ParseObject(e)
		if err != nil {
			return nil, nil, err
		}
		if !isObj {
			sub.slots = append(sub.slots, slot{raw: e})
			anomalies = append(anomalies, Anomaly{File: doc.File, Subcategory: sub.ID, Position: i,
				Kind: AnomalyNonObjectQuestion, Detail: fmt.Sprintf("questions[%d] is not an object", i)})
			continue
		}
		sub.slots = append(sub.slots, slot{q: NewQuestion(qObj)})
	}
	return sub, anomalies, nil
}

// Marshal renders the document with every subcategory's original shape.
func (d *Document) Marshal() (json.RawMessage, error) {
	if d.hasList {
		elems := make([]json.RawMessage, len(d.slots))
		for i, s := range d.slots {
			if s.sub == nil {
				elems[i] = s.raw
				continue
			}
			b, err := s.sub.marshal()
			if err != nil {
				return nil, err
			}
			elems[i] = b
		}
		d.obj.SetRaw("subcategories", joinArray(elems))
	}
	return d.obj.MarshalJSON()
}
