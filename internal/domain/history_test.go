package domain

import (
	"testing"
	"time"
)

func TestHistoryAppendKeepsEarlierEntries(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	h := NewHistory([]Message{NewUserMessage("hi", at)})

	next := h.Append(NewAgentMessage("hello", at.Add(time.Second)))
	if h.Len() != 1 {
		t.Errorf("expected original history untouched, got %d messages", h.Len())
	}
	if next.Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", next.Len())
	}

	msgs := next.Messages()
	if msgs[0].Sender != SenderUser || msgs[1].Sender != SenderAgent || !msgs[1].IsAgent() {
		t.Errorf("unexpected order or senders: %+v", msgs)
	}

	msgs[0].Text = "changed"
	if next.Messages()[0].Text != "hi" {
		t.Error("expected Messages to return a copy")
	}
}

func TestHistoryBranchesDoNotAlias(t *testing.T) {
	at := time.Now()
	base := NewHistory(nil).Append(NewUserMessage("a", at))

	left := base.Append(NewAgentMessage("left", at))
	right := base.Append(NewAgentMessage("right", at))

	if left.Messages()[1].Text != "left" || right.Messages()[1].Text != "right" {
		t.Errorf("appends from the same base must not share storage: %v / %v", left.Messages(), right.Messages())
	}
}

func TestNewHistoryCopiesInput(t *testing.T) {
	msgs := []Message{NewUserMessage("x", time.Now())}
	h := NewHistory(msgs)
	msgs[0].Text = "mutated"

	if h.Messages()[0].Text != "x" {
		t.Error("expected NewHistory to copy its input")
	}
}
