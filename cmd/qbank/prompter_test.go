package main

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/qbank/pkg/qbank/review"
)

// script feeds canned lines, then err.
func script(err error, lines ...string) func() (string, error) {
	return func() (string, error) {
		if len(lines) == 0 {
			return "", err
		}
		line := lines[0]
		lines = lines[1:]
		return line, nil
	}
}

func TestPromptLoop(t *testing.T) {
	tests := []struct {
		name  string
		read  func() (string, error)
		want  review.Decision
		err   error
		notes string
	}{
		{name: "approve", read: script(io.EOF, "a"), want: review.Approve},
		{name: "case and spaces", read: script(io.EOF, "  Reject "), want: review.Reject},
		{name: "blank skips", read: script(io.EOF, ""), want: review.Skip},
		{name: "retry after bad input", read: script(io.EOF, "maybe", "q"), want: review.Quit, notes: "unknown decision \"maybe\""},
		{name: "interrupt quits", read: script(readline.ErrInterrupt), want: review.Quit},
		{name: "eof passes through", read: script(io.EOF), want: review.Skip, err: io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := promptLoop(context.Background(), tt.read, &out)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			if tt.notes != "" {
				assert.Contains(t, out.String(), tt.notes)
			}
		})
	}
}

func TestPromptLoopCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := promptLoop(ctx, script(io.EOF, "a"), io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderItem(t *testing.T) {
	s := renderItem(2, 5, review.Item{
		QuestionID:           "q7",
		SourceTopic:          "general_current_affairs",
		SourceSubcategory:    "ca_national",
		SourceFile:           "data/ca.json",
		SuggestedTargetTopic: "procurement_act",
		Scores:               review.Scores{BestOther: 6},
		Question:             "What does BPP stand for?",
	})
	assert.Contains(t, s, "[2/5]")
	assert.Contains(t, s, "q7")
	assert.Contains(t, s, "general_current_affairs/ca_national (data/ca.json)")
	assert.Contains(t, s, "procurement_act")
	assert.Contains(t, s, "best_other=6")
	assert.Contains(t, s, "What does BPP stand for?")
}
