package session

import (
	"context"
	"strings"

	"github.com/ashureev/coursetutor/internal/domain"
)

// Send runs one message exchange. The user message is appended and the
// session marked pending before the request goes out; the reply (or a fixed
// apology on failure) is appended afterwards and pending is cleared last.
//
// Send returns ErrBlankPrompt or ErrPending when the prompt is rejected and
// ErrClosed if the session was torn down. A failed request is not an error:
// it is reported to the user through the apology message.
func (c *Controller) Send(ctx context.Context, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrBlankPrompt
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.pending {
		c.mu.Unlock()
		return ErrPending
	}
	course := c.selected
	c.history = c.history.Append(domain.NewUserMessage(prompt, c.now()))
	c.pending = true
	c.changedLocked()
	c.mu.Unlock()

	ctx, cancel := c.scope(ctx)
	defer cancel()

	reply, err := c.tutor.SendMessage(ctx, course, prompt)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	// Reselecting the same course keeps the reply; switching away drops it.
	current := course == c.selected
	speak := ""
	switch {
	case !current:
		c.logger.Debug("discarding reply for superseded course", "course", course, "error", err)
	case err != nil:
		c.logger.Warn("failed to send message", "course", course, "error", err)
		c.history = c.history.Append(domain.NewAgentMessage(ApologyText, c.now()))
	default:
		at := reply.Time
		if at.IsZero() {
			at = c.now()
		}
		c.history = c.history.Append(domain.NewAgentMessage(reply.Text, at))
		speak = reply.Text
	}
	if current {
		c.changedLocked()
	}
	c.mu.Unlock()

	if speak != "" {
		c.voice.Speak(speak)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.pending = false
	c.changedLocked()
	return nil
}
