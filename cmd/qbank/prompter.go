package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/cognicore/qbank/pkg/qbank/review"
)

// linePrompter asks for review decisions on an interactive terminal.
type linePrompter struct {
	rl  *readline.Instance
	out io.Writer
}

func newLinePrompter(out io.Writer) (*linePrompter, error) {
	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("decision [a/r/s/q]> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "quit",
		HistorySearchFold: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize readline: %w", err)
	}
	return &linePrompter{rl: rl, out: out}, nil
}

func (p *linePrompter) Close() error {
	return p.rl.Close()
}

func (p *linePrompter) Prompt(ctx context.Context, position, total int, item review.Item) (review.Decision, error) {
	fmt.Fprint(p.out, renderItem(position, total, item))
	return promptLoop(ctx, p.rl.Readline, p.out)
}

// renderItem formats one queue item for the reviewer.
func renderItem(position, total int, it review.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s %s\n", color.New(color.Bold).Sprintf("[%d/%d]", position, total), it.QuestionID)
	fmt.Fprintf(&b, "  from:      %s/%s (%s)\n", it.SourceTopic, it.SourceSubcategory, it.SourceFile)
	fmt.Fprintf(&b, "  suggested: %s\n", color.GreenString(it.SuggestedTargetTopic))
	fmt.Fprintf(&b, "  scores:    own_topic=%d own_sub=%d best_other=%d\n",
		it.Scores.OwnTopic, it.Scores.OwnSubcategory, it.Scores.BestOther)
	fmt.Fprintf(&b, "  %s\n", it.Question)
	return b.String()
}

// promptLoop reads lines until one parses as a decision. Ctrl-C quits the
// session; io.EOF is returned as is.
func promptLoop(ctx context.Context, readLine func() (string, error), out io.Writer) (review.Decision, error) {
	for {
		if err := ctx.Err(); err != nil {
			return review.Skip, err
		}
		line, err := readLine()
		if errors.Is(err, readline.ErrInterrupt) {
			return review.Quit, nil
		}
		if err != nil {
			return review.Skip, err
		}
		d, err := review.ParseDecision(strings.ToLower(strings.TrimSpace(line)))
		if err != nil {
			fmt.Fprintln(out, color.YellowString(err.Error()))
			continue
		}
		return d, nil
	}
}
