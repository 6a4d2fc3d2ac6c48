package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	audioContentType = "audio/mpeg"
	cacheTimeout     = 2 * time.Second
)

// utterance tracks one Speak request from fetch through playback.
type utterance struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Controller fetches audio for text and plays it. A new Speak preempts the
// clip in flight; clips never overlap and are never queued.
type Controller struct {
	synth    Synthesizer
	player   Player
	cache    ClipCache
	logger   *slog.Logger
	onChange func()

	mu       sync.Mutex
	enabled  bool
	speaking bool
	closed   bool
	current  *utterance
	wg       sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithCache makes the controller reuse previously synthesized clips.
func WithCache(cache ClipCache) Option {
	return func(c *Controller) { c.cache = cache }
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithOnChange registers a callback fired after every change of the enabled or
// speaking flags. It runs with the controller lock held and must not block or
// call back into the controller.
func WithOnChange(fn func()) Option {
	return func(c *Controller) { c.onChange = fn }
}

// NewController creates a playback controller. enabled is the initial voice setting.
func NewController(synth Synthesizer, player Player, enabled bool, opts ...Option) *Controller {
	c := &Controller{
		synth:   synth,
		player:  player,
		logger:  slog.Default(),
		enabled: enabled,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether voice output is on.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Speaking reports whether a clip is being fetched or played.
func (c *Controller) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// SetEnabled turns voice output on or off. Turning it off stops the clip in flight.
func (c *Controller) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.enabled == enabled {
		return
	}
	c.enabled = enabled
	if !enabled {
		c.stopLocked()
	}
	c.changedLocked()
}

// Toggle flips voice output and returns the new setting.
func (c *Controller) Toggle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return c.enabled
	}
	c.enabled = !c.enabled
	if !c.enabled {
		c.stopLocked()
	}
	c.changedLocked()
	return c.enabled
}

// Speak starts speaking text in the background and returns immediately.
// It does nothing when voice is off, text is blank, or the controller is closed.
func (c *Controller) Speak(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.enabled {
		return
	}

	prev := c.current
	if prev != nil {
		prev.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	u := &utterance{cancel: cancel, done: make(chan struct{})}
	c.current = u
	if !c.speaking {
		c.speaking = true
		c.changedLocked()
	}

	c.wg.Add(1)
	go c.run(ctx, u, prev, text)
}

// Stop halts the clip in flight, if any.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.stopLocked() {
		c.changedLocked()
	}
}

// Close stops playback, cancels pending fetches and waits for them to exit.
// No callbacks fire after Close returns.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	if c.current != nil {
		c.current.cancel()
		c.current = nil
	}
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Controller) stopLocked() bool {
	if c.current == nil && !c.speaking {
		return false
	}
	if c.current != nil {
		c.current.cancel()
		c.current = nil
	}
	c.speaking = false
	return true
}

func (c *Controller) changedLocked() {
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *Controller) run(ctx context.Context, u *utterance, prev *utterance, text string) {
	defer c.wg.Done()
	defer close(u.done)
	defer u.cancel()

	audio, err := c.fetch(ctx, text)
	if err == nil {
		// The preempted clip must be silent before this one starts.
		if prev != nil {
			<-prev.done
		}
		if err = ctx.Err(); err == nil {
			err = c.player.Play(ctx, Clip{
				ID:          uuid.NewString(),
				Text:        text,
				Audio:       audio,
				ContentType: audioContentType,
			})
		}
	}

	c.finish(u, err)
}

func (c *Controller) finish(u *utterance, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != u || c.closed {
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Debug("superseded speech request failed", "error", err)
		}
		return
	}

	if err != nil {
		c.logger.Warn("speech playback failed", "error", err)
	}
	c.current = nil
	c.speaking = false
	c.changedLocked()
}

func (c *Controller) fetch(ctx context.Context, text string) ([]byte, error) {
	key := ClipKey(text)
	if c.cache != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, cacheTimeout)
		audio, ok, err := c.cache.GetClip(lookupCtx, key)
		cancel()
		switch {
		case err != nil:
			c.logger.Debug("clip cache lookup failed", "error", err)
		case ok:
			return audio, nil
		}
	}

	audio, err := c.synth.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		storeCtx, cancel := context.WithTimeout(ctx, cacheTimeout)
		if err := c.cache.PutClip(storeCtx, key, audio); err != nil {
			c.logger.Debug("clip cache store failed", "error", err)
		}
		cancel()
	}
	return audio, nil
}

// ClipKey returns the cache key for text.
func ClipKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
