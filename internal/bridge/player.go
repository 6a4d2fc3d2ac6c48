package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ashureev/coursetutor/internal/speech"
)

var errPlayerClosed = errors.New("browser audio closed")

// frameWriter sends one JSON frame to the browser.
type frameWriter func(ctx context.Context, v any) error

// SocketPlayer plays clips in the browser. Play hands the clip over and
// waits for the browser to acknowledge the end of playback.
type SocketPlayer struct {
	write frameWriter

	mu      sync.Mutex
	waiting map[string]chan error
	closed  bool
}

// NewSocketPlayer creates a player that writes frames with write.
func NewSocketPlayer(write frameWriter) *SocketPlayer {
	return &SocketPlayer{
		write:   write,
		waiting: make(map[string]chan error),
	}
}

// Play sends the clip and blocks until the browser reports it ended or failed.
// Canceling ctx tells the browser to stop.
func (p *SocketPlayer) Play(ctx context.Context, clip speech.Clip) error {
	done := make(chan error, 1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errPlayerClosed
	}
	p.waiting[clip.ID] = done
	p.mu.Unlock()
	defer p.forget(clip.ID)

	if err := p.write(ctx, audioFrame{
		Type:        msgAudio,
		ClipID:      clip.ID,
		ContentType: clip.ContentType,
		Audio:       clip.Audio,
	}); err != nil {
		return fmt.Errorf("send audio: %w", err)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// The socket may already be gone; the browser stops on disconnect anyway.
		_ = p.write(context.Background(), audioFrame{Type: msgAudioStop, ClipID: clip.ID})
		return ctx.Err()
	}
}

// Ended resolves the clip with id. err is nil for natural completion.
func (p *SocketPlayer) Ended(id string, err error) {
	p.mu.Lock()
	done, ok := p.waiting[id]
	p.mu.Unlock()
	if ok {
		select {
		case done <- err:
		default:
		}
	}
}

// Close fails every clip still waiting for an acknowledgment.
func (p *SocketPlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for _, done := range p.waiting {
		select {
		case done <- errPlayerClosed:
		default:
		}
	}
}

func (p *SocketPlayer) forget(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.waiting, id)
}
