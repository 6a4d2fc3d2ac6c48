package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/coursetutor/internal/backend"
	"github.com/ashureev/coursetutor/internal/domain"
	"github.com/ashureev/coursetutor/internal/speech"
)

var (
	// ErrClosed is returned by operations on a torn-down session.
	ErrClosed = errors.New("session closed")
	// ErrPending is returned by Send while another exchange is in flight.
	ErrPending = errors.New("a message is already pending")
	// ErrBlankPrompt is returned by Send for empty or whitespace-only prompts.
	ErrBlankPrompt = errors.New("prompt is blank")
)

// Controller owns the state of one chat session. All mutation goes through
// its methods; renderers read copies via Snapshot when Changes fires.
type Controller struct {
	tutor  backend.Tutor
	voice  *speech.Controller
	logger *slog.Logger
	now    func() time.Time

	root    context.Context
	cancel  context.CancelFunc
	changes chan struct{}

	mu        sync.Mutex
	closed    bool
	courses   []domain.Course
	selected  domain.Course
	selection uint64
	history   domain.History
	pending   bool
	loading   bool
	loadErr   *LoadError
}

type options struct {
	voiceEnabled bool
	cache        speech.ClipCache
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures a Controller.
type Option func(*options)

// WithVoiceEnabled sets the initial voice toggle. Voice is on by default.
func WithVoiceEnabled(enabled bool) Option {
	return func(o *options) { o.voiceEnabled = enabled }
}

// WithClipCache lets the voice reuse previously synthesized clips.
func WithClipCache(cache speech.ClipCache) Option {
	return func(o *options) { o.cache = cache }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock overrides the clock used for client-side timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a session in its initial state: no course, empty history.
// Audio produced for agent replies is played through player.
func New(tutor backend.Tutor, player speech.Player, opts ...Option) *Controller {
	o := options{
		voiceEnabled: true,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	root, cancel := context.WithCancel(context.Background())
	c := &Controller{
		tutor:   tutor,
		logger:  o.logger,
		now:     o.now,
		root:    root,
		cancel:  cancel,
		changes: make(chan struct{}, 1),
	}

	voiceOpts := []speech.Option{
		speech.WithLogger(o.logger),
		speech.WithOnChange(c.touch),
	}
	if o.cache != nil {
		voiceOpts = append(voiceOpts, speech.WithCache(o.cache))
	}
	c.voice = speech.NewController(tutor, player, o.voiceEnabled, voiceOpts...)
	return c
}

// Changes signals after state changes. Signals coalesce; read Snapshot on each.
// The channel is closed by Close.
func (c *Controller) Changes() <-chan struct{} {
	return c.changes
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	st := State{
		Courses:        append([]domain.Course(nil), c.courses...),
		SelectedCourse: c.selected,
		History:        c.history.Messages(),
		Pending:        c.pending,
		LoadingHistory: c.loading,
	}
	if c.loadErr != nil {
		e := *c.loadErr
		st.LoadError = &e
	}
	c.mu.Unlock()

	st.VoiceEnabled = c.voice.Enabled()
	st.Speaking = c.voice.Speaking()
	return st
}

// Mount loads the course list and selects the first course, if any.
// A failed load is recorded in State.LoadError rather than returned.
func (c *Controller) Mount(ctx context.Context) error {
	ctx, cancel := c.scope(ctx)
	defer cancel()

	courses, err := c.tutor.ListCourses(ctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		c.loadErr = &LoadError{Op: LoadCourses, Message: err.Error()}
		c.changedLocked()
		c.mu.Unlock()
		c.logger.Warn("failed to load courses", "error", err)
		return nil
	}
	c.courses = courses
	if c.loadErr != nil && c.loadErr.Op == LoadCourses {
		c.loadErr = nil
	}
	c.changedLocked()
	c.mu.Unlock()

	if len(courses) == 0 {
		c.logger.Info("no courses available")
		return nil
	}
	return c.SelectCourse(ctx, courses[0])
}

// SelectCourse makes course current and replaces the history with the
// server's. Only the most recent selection may write the history: a response
// for a superseded selection is dropped.
func (c *Controller) SelectCourse(ctx context.Context, course domain.Course) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.selection++
	seq := c.selection
	if course != c.selected {
		c.history = domain.History{}
	}
	c.selected = course
	c.loading = true
	c.loadErr = nil
	c.changedLocked()
	c.mu.Unlock()

	ctx, cancel := c.scope(ctx)
	defer cancel()

	msgs, err := c.tutor.History(ctx, course)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if seq != c.selection {
		c.logger.Debug("discarding history for superseded selection", "course", course)
		return nil
	}

	c.loading = false
	if err != nil {
		c.loadErr = &LoadError{Op: LoadHistory, Course: course, Message: err.Error()}
		c.changedLocked()
		c.logger.Warn("failed to load chat history", "course", course, "error", err)
		return nil
	}
	c.history = domain.NewHistory(msgs)
	c.changedLocked()
	return nil
}

// Retry re-issues the load recorded in State.LoadError. It is a no-op when
// nothing failed.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	failed := c.loadErr
	c.mu.Unlock()

	if failed == nil {
		return nil
	}
	switch failed.Op {
	case LoadCourses:
		return c.Mount(ctx)
	case LoadHistory:
		return c.SelectCourse(ctx, failed.Course)
	}
	return nil
}

// NewChat clears the local history. The backend is not told and the selected
// course is kept.
func (c *Controller) NewChat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.history.Len() == 0 {
		return
	}
	c.history = domain.History{}
	c.changedLocked()
}

// SetVoice turns spoken replies on or off.
func (c *Controller) SetVoice(enabled bool) {
	c.voice.SetEnabled(enabled)
}

// ToggleVoice flips spoken replies and returns the new setting.
func (c *Controller) ToggleVoice() bool {
	return c.voice.Toggle()
}

// Close tears the session down: in-flight requests are canceled, audio stops,
// and no state changes happen afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.voice.Close()
	close(c.changes)
}

// scope derives a context that is also canceled when the session closes.
func (c *Controller) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.root, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (c *Controller) changedLocked() {
	if !c.closed {
		c.touch()
	}
}

func (c *Controller) touch() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}
