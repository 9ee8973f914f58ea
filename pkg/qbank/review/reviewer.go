package review

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Decision is a reviewer's verdict on one item.
type Decision int

const (
	Skip Decision = iota
	Approve
	Reject
	Quit
)

func (d Decision) String() string {
	switch d {
	case Approve:
		return "approve"
	case Reject:
		return "reject"
	case Quit:
		return "quit"
	default:
		return "skip"
	}
}

// ParseDecision maps reviewer input to a decision. Unknown input is an error.
func ParseDecision(s string) (Decision, error) {
	switch s {
	case "a", "approve", "y", "yes":
		return Approve, nil
	case "r", "reject", "n", "no":
		return Reject, nil
	case "s", "skip", "":
		return Skip, nil
	case "q", "quit":
		return Quit, nil
	}
	return Skip, fmt.Errorf("unknown decision %q (a=approve, r=reject, s=skip, q=quit)", s)
}

// Prompter asks for a decision on an item.
type Prompter interface {
	Prompt(ctx context.Context, position, total int, item Item) (Decision, error)
}

// Tally counts the decisions taken in one review session.
type Tally struct {
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Skipped  int `json:"skipped"`
}

// Reviewer walks the pending items of a queue.
type Reviewer struct {
	prompter Prompter
}

// NewReviewer creates a reviewer backed by p.
func NewReviewer(p Prompter) *Reviewer {
	return &Reviewer{prompter: p}
}

// Review prompts for every item still marked manual_review and records the
// decision in RecommendedAction. It stops early on Quit, on io.EOF from the
// prompter, or when ctx is cancelled; decisions made so far are kept.
func (r *Reviewer) Review(ctx context.Context, q *Queue) (Tally, error) {
	var tally Tally

	pending := 0
	for _, it := range q.Items {
		if it.RecommendedAction == ActionManualReview {
			pending++
		}
	}

	position := 0
	for i := range q.Items {
		item := &q.Items[i]
		if item.RecommendedAction != ActionManualReview {
			continue
		}
		if err := ctx.Err(); err != nil {
			return tally, err
		}
		position++

		d, err := r.prompter.Prompt(ctx, position, pending, *item)
		if errors.Is(err, io.EOF) {
			return tally, nil
		}
		if err != nil {
			return tally, fmt.Errorf("prompt %s: %w", item.QuestionID, err)
		}

		switch d {
		case Approve:
			item.RecommendedAction = ActionApproved
			tally.Approved++
		case Reject:
			item.RecommendedAction = ActionRejected
			tally.Rejected++
		case Quit:
			return tally, nil
		default:
			tally.Skipped++
		}
	}
	return tally, nil
}
