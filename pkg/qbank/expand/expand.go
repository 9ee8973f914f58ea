// Package expand fills underfilled subcategories with generated draft
// questions so every subcategory reaches a minimum size.
package expand

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/cognicore/qbank/pkg/qbank/corpus"
	"github.com/cognicore/qbank/pkg/qbank/textnorm"
)

// DefaultMin is the subcategory size expand fills up to.
const DefaultMin = 50

// Source marks generated questions in their "source" field.
const Source = "generated_draft"

// maxVariants bounds the search for a stem not already used in the
// subcategory.
const maxVariants = 200

// Focus is one theme a generated question tests, with the answer marked
// correct.
type Focus struct {
	Focus  string
	Answer string
}

// FocusSource supplies the themes for a topic.
type FocusSource interface {
	FocusBank(topicID string) []Focus
}

// Options tunes an expand run.
type Options struct {
	Min   int
	Apply bool
}

// Addition records the questions generated for one subcategory.
type Addition struct {
	TopicID         string   `json:"topic_id"`
	SubcategoryID   string   `json:"subcategory_id"`
	SubcategoryName string   `json:"subcategory_name"`
	File            string   `json:"file"`
	Added           int      `json:"added"`
	NewTotal        int      `json:"new_total"`
	QuestionIDs     []string `json:"question_ids"`
}

// Summary holds the counts of an expand run.
type Summary struct {
	Min                   int  `json:"min"`
	SubcategoriesExpanded int  `json:"subcategories_expanded"`
	QuestionsAdded        int  `json:"questions_added"`
	FilesChanged          int  `json:"files_changed"`
	Applied               bool `json:"applied"`
}

// Result is the expand artifact.
type Result struct {
	RunID        string     `json:"run_id,omitempty"`
	Summary      Summary    `json:"summary"`
	ChangedFiles []string   `json:"changed_files"`
	Additions    []Addition `json:"additions"`
}

// Expander generates draft questions from focus themes.
type Expander struct {
	focus FocusSource
}

// NewExpander creates an expander. A nil source uses only the
// subcategory's own themes.
func NewExpander(focus FocusSource) *Expander {
	return &Expander{focus: focus}
}

// Run appends generated questions to every subcategory holding fewer than
// opts.Min object questions. Subcategories without a question list are
// left alone. Ids continue the subcategory's <sub>_gen_NNN sequence and no
// generated text normalizes to a text already in the subcategory. Documents
// shared by several topics are expanded once, under the first topic. With
// Apply unset the corpus is left untouched and the result lists what would
// be added.
func (e *Expander) Run(c *corpus.Corpus, opts Options) (*Result, error) {
	if opts.Min <= 0 {
		opts.Min = DefaultMin
	}
	res := &Result{ChangedFiles: []string{}, Additions: []Addition{}}

	seen := make(map[*corpus.Document]struct{})
	for _, t := range c.Topics {
		if _, done := seen[t.Doc]; done {
			continue
		}
		seen[t.Doc] = struct{}{}

		var bank []Focus
		if e.focus != nil {
			bank = e.focus.FocusBank(t.ID)
		}
		for _, sub := range t.Doc.Subcategories {
			if sub.Shape == corpus.ShapeMissing {
				continue
			}
			add, err := expandSubcategory(t, sub, bank, opts)
			if err != nil {
				return nil, err
			}
			if add != nil {
				res.Additions = append(res.Additions, *add)
				res.Summary.QuestionsAdded += add.Added
			}
		}
	}

	if opts.Apply {
		res.ChangedFiles = c.ChangedFiles()
	}
	res.Summary.Min = opts.Min
	res.Summary.SubcategoriesExpanded = len(res.Additions)
	res.Summary.FilesChanged = len(res.ChangedFiles)
	res.Summary.Applied = opts.Apply
	return res, nil
}

func expandSubcategory(t *corpus.Topic, sub *corpus.Subcategory, bank []Focus, opts Options) (*Addition, error) {
	existing := sub.Questions()
	deficit := opts.Min - len(existing)
	if deficit <= 0 {
		return nil, nil
	}

	name := sub.Name
	if name == "" {
		name = sub.ID
	}
	themes := append(subcategoryThemes(name), bank...)

	ids := make([]string, 0, len(existing))
	norms := make(map[string]struct{}, len(existing)+deficit)
	for _, q := range existing {
		ids = append(ids, q.ID())
		if norm := textnorm.Normalize(q.Text()); norm != "" {
			norms[norm] = struct{}{}
		}
	}
	start := nextIndex(ids, sub.ID)

	add := &Addition{
		TopicID:         t.ID,
		SubcategoryID:   sub.ID,
		SubcategoryName: name,
		File:            t.File,
		Added:           deficit,
		NewTotal:        len(existing) + deficit,
		QuestionIDs:     make([]string, 0, deficit),
	}
	d := draft{topicID: t.ID, subID: sub.ID, subName: name}
	for i := 0; i < deficit; i++ {
		f := themes[i%len(themes)]
		id := fmt.Sprintf("%s_gen_%03d", sub.ID, start+i)
		q, err := d.unique(id, f, i*17, norms)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", id, err)
		}
		if opts.Apply {
			if err := sub.Append(q); err != nil {
				return nil, err
			}
		}
		add.QuestionIDs = append(add.QuestionIDs, id)
	}
	return add, nil
}

func subcategoryThemes(name string) []Focus {
	lc := strings.ToLower(name)
	return []Focus{
		{Focus: lc + " governance", Answer: "Apply approved " + lc + " procedures and maintain complete records."},
		{Focus: lc + " compliance", Answer: "Use lawful criteria and document each decision step transparently."},
		{Focus: lc + " risk management", Answer: "Identify control gaps early and escalate material exceptions promptly."},
	}
}

// nextIndex returns one past the highest N among ids of the form
// <subID>_gen_N, or 1.
func nextIndex(ids []string, subID string) int {
	pat := regexp.MustCompile(`^` + regexp.QuoteMeta(subID) + `_gen_(\d+)$`)
	highest := 0
	for _, id := range ids {
		m := pat.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1
}

var stems = []string{
	"A desk officer handling {sub} receives a case that requires {focus}. What should be done first",
	"During routine {sub_lc} operations, which approach best ensures {focus}",
	"A supervisor is reviewing compliance gaps in {sub}. Which action most directly strengthens {focus}",
	"When applying rules in {sub_lc}, which option aligns best with {focus} standards",
	"To improve accountability in {sub_lc}, which practice best supports {focus}",
	"A ministry unit is updating its workflow for {sub_lc}. Which choice most effectively promotes {focus}",
	"In a time-sensitive file under {sub}, which step best preserves {focus} without breaching process",
	"Which of the following is the strongest control action for {focus} in {sub_lc}",
}

var qualifiers = []string{
	"while maintaining fairness and legal compliance",
	"under standard approval and documentation controls",
	"in line with public-sector accountability expectations",
	"without bypassing established review procedures",
	"while preserving records for audit and oversight",
	"within approved timelines and governance standards",
}

var badOptions = []string{
	"Rely on informal instructions without documentary evidence.",
	"Apply rules inconsistently based on personal preference.",
	"Delay decisions until issues escalate into avoidable crises.",
	"Bypass review and approval controls to save time.",
	"Treat exceptions as routine without documented justification.",
	"Prioritize convenience over policy and legal requirements.",
	"Close cases without validating facts or required records.",
	"Ignore feedback and continue non-compliant procedures.",
}

var difficulties = []string{"easy", "medium", "hard"}

type draft struct {
	topicID, subID, subName string
}

// stem renders the question text of a variant.
func (d draft) stem(f Focus, variant int) string {
	r := strings.NewReplacer("{sub}", d.subName, "{sub_lc}", strings.ToLower(d.subName), "{focus}", f.Focus)
	qualifier := qualifiers[(variant/len(stems))%len(qualifiers)]
	return r.Replace(stems[variant%len(stems)]) + " " + qualifier + "?"
}

// unique builds the first variant from seed whose text is not in norms,
// falling back to a case-suffixed stem, and records the text in norms.
func (d draft) unique(id string, f Focus, seed int, norms map[string]struct{}) (*corpus.Question, error) {
	for extra := 0; extra < maxVariants; extra++ {
		text := d.stem(f, seed+extra)
		norm := textnorm.Normalize(text)
		if _, taken := norms[norm]; norm == "" || taken {
			continue
		}
		norms[norm] = struct{}{}
		return d.build(id, text, f, seed+extra)
	}
	text := strings.TrimSuffix(d.stem(f, seed), "?") + " (Case " + id + ")?"
	norms[textnorm.Normalize(text)] = struct{}{}
	return d.build(id, text, f, seed)
}

func (d draft) build(id, text string, f Focus, variant int) (*corpus.Question, error) {
	options := []string{f.Answer}
	for _, off := range []int{1, 3, 5, 7, 2, 4} {
		if len(options) == 4 {
			break
		}
		candidate := badOptions[(variant+off)%len(badOptions)]
		if !slices.Contains(options, candidate) {
			options = append(options, candidate)
		}
	}
	shuffle(options, d.subID+":"+id)
	correct := 0
	for i, o := range options {
		if o == f.Answer {
			correct = i
			break
		}
	}

	obj := corpus.NewObject()
	fields := []struct {
		key string
		val any
	}{
		{"id", id},
		{"question", text},
		{"options", options},
		{"correct", correct},
		{"explanation", fmt.Sprintf("This is correct because %s It strengthens compliance, consistency, and accountability in %s.",
			strings.ToLower(f.Answer), strings.ToLower(d.subName))},
		{"difficulty", difficulties[variant%len(difficulties)]},
		{"chapter", d.subName + " - Expansion Set"},
		{"keywords", []string{d.topicID, d.subID, f.Focus, "quality-expansion"}},
		{"source", Source},
	}
	for _, fld := range fields {
		if err := obj.Set(fld.key, fld.val); err != nil {
			return nil, err
		}
	}
	return corpus.NewQuestion(obj), nil
}

// shuffle permutes options deterministically for seed.
func shuffle(options []string, seed string) {
	h := fnv.New64a()
	h.Write([]byte(seed))
	sum := h.Sum64()
	rng := rand.New(rand.NewPCG(sum, sum>>1|1))
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
}
