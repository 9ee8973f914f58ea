package audit

import (
	"sort"
	"strings"

	"github.com/cognicore/qbank/pkg/qbank/textnorm"
)

// Relevance reasons.
const (
	ReasonLowOverlap    = "low_own_topic_subcategory_overlap"
	ReasonCloserPrefix  = "looks_closer_to:"
	lowOverlapTopicMax  = 1
	closerMinScore      = 3
	closerMarginOverOwn = 2
)

// HintSource supplies the hand-authored profile tokens of a topic.
type HintSource interface {
	Hints(topicID string) []string
}

type tokenSet map[string]struct{}

func (s tokenSet) overlap(tokens tokenSet) int {
	small, large := tokens, s
	if len(small) > len(large) {
		small, large = large, small
	}
	n := 0
	for t := range small {
		if _, ok := large[t]; ok {
			n++
		}
	}
	return n
}

type subKey struct{ topic, sub string }

// Profiles holds the token vocabulary of every topic and subcategory that
// contributed at least one question.
type Profiles struct {
	order  []string
	topics map[string]tokenSet
	subs   map[subKey]tokenSet
}

// BuildProfiles derives topic and subcategory profiles from entries. A topic
// profile is the tokens of its name and its subcategory names plus its
// hints; a subcategory profile is the tokens of its name. Topics are kept in
// the order they are first encountered.
func BuildProfiles(entries []QEntry, tok *textnorm.Tokenizer, hints HintSource) *Profiles {
	p := &Profiles{
		topics: make(map[string]tokenSet),
		subs:   make(map[subKey]tokenSet),
	}
	for _, e := range entries {
		ts, ok := p.topics[e.TopicID]
		if !ok {
			ts = make(tokenSet)
			p.topics[e.TopicID] = ts
			p.order = append(p.order, e.TopicID)
			if hints != nil {
				for _, h := range hints.Hints(e.TopicID) {
					ts[h] = struct{}{}
				}
			}
		}
		addTokens(ts, tok.Tokenize(e.TopicName))
		addTokens(ts, tok.Tokenize(e.SubcategoryName))

		key := subKey{e.TopicID, e.SubcategoryID}
		ss, ok := p.subs[key]
		if !ok {
			ss = make(tokenSet)
			p.subs[key] = ss
		}
		addTokens(ss, tok.Tokenize(e.SubcategoryName))
	}
	return p
}

// Topics returns the profiled topic ids in encounter order.
func (p *Profiles) Topics() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// TopicTokens returns the sorted profile tokens of a topic.
func (p *Profiles) TopicTokens(topicID string) []string {
	return sortedTokens(p.topics[topicID])
}

// SubcategoryTokens returns the sorted profile tokens of a subcategory.
func (p *Profiles) SubcategoryTokens(topicID, subID string) []string {
	return sortedTokens(p.subs[subKey{topicID, subID}])
}

func sortedTokens(s tokenSet) []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func addTokens(s tokenSet, tokens []string) {
	for _, t := range tokens {
		s[t] = struct{}{}
	}
}

// RelevanceFlag reports a question that fits its own topic poorly or
// another topic clearly better.
type RelevanceFlag struct {
	Question            EntrySummary `json:"question"`
	OwnTopicScore       int          `json:"own_topic_score"`
	OwnSubcategoryScore int          `json:"own_subcategory_score"`
	BestOtherTopic      *string      `json:"best_other_topic"`
	BestOtherScore      int          `json:"best_other_score"`
	Reasons             []string     `json:"reasons"`
}

// Target returns the best other topic, or "" when there is none.
func (f RelevanceFlag) Target() string {
	if f.BestOtherTopic == nil {
		return ""
	}
	return *f.BestOtherTopic
}

// LooksCloser reports whether any reason names another topic.
func (f RelevanceFlag) LooksCloser() bool {
	for _, r := range f.Reasons {
		if strings.HasPrefix(r, ReasonCloserPrefix) {
			return true
		}
	}
	return false
}

// Score computes relevance flags for every entry with at least one token.
// Flags are ordered weakest own fit first: ascending own subcategory score,
// then own topic score, then descending best other score.
func Score(entries []QEntry, profiles *Profiles, tok *textnorm.Tokenizer) []RelevanceFlag {
	flags := []RelevanceFlag{}
	for _, e := range entries {
		if len(e.Tokens) == 0 {
			continue
		}
		combined := make(tokenSet, len(e.Tokens))
		addTokens(combined, e.Tokens)
		addTokens(combined, tok.Tokenize(strings.Join(e.Keywords, " ")))
		addTokens(combined, tok.Tokenize(e.Chapter))

		ownTopic := combined.overlap(profiles.topics[e.TopicID])
		ownSub := combined.overlap(profiles.subs[subKey{e.TopicID, e.SubcategoryID}])

		bestTopic, bestScore := "", 0
		for _, id := range profiles.order {
			if id == e.TopicID {
				continue
			}
			if s := combined.overlap(profiles.topics[id]); s > bestScore {
				bestTopic, bestScore = id, s
			}
		}

		var reasons []string
		if ownSub == 0 && ownTopic <= lowOverlapTopicMax {
			reasons = append(reasons, ReasonLowOverlap)
		}
		if bestScore >= closerMinScore && bestScore >= ownTopic+closerMarginOverOwn {
			reasons = append(reasons, ReasonCloserPrefix+bestTopic)
		}
		if len(reasons) == 0 {
			continue
		}

		flag := RelevanceFlag{
			Question:            e.Summary(),
			OwnTopicScore:       ownTopic,
			OwnSubcategoryScore: ownSub,
			BestOtherScore:      bestScore,
			Reasons:             reasons,
		}
		if bestTopic != "" {
			t := bestTopic
			flag.BestOtherTopic = &t
		}
		flags = append(flags, flag)
	}

	sort.SliceStable(flags, func(i, j int) bool {
		a, b := flags[i], flags[j]
		if a.OwnSubcategoryScore != b.OwnSubcategoryScore {
			return a.OwnSubcategoryScore < b.OwnSubcategoryScore
		}
		if a.OwnTopicScore != b.OwnTopicScore {
			return a.OwnTopicScore < b.OwnTopicScore
		}
		return a.BestOtherScore > b.BestOtherScore
	})
	return flags
}
