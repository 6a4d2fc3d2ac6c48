// Package tui is a terminal front end for a chat session. It renders session
// snapshots and turns key presses into session operations.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/ashureev/coursetutor/internal/domain"
	"github.com/ashureev/coursetutor/internal/session"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Session is the part of session.Controller the screen drives.
type Session interface {
	Changes() <-chan struct{}
	Snapshot() session.State
	Mount(ctx context.Context) error
	SelectCourse(ctx context.Context, course domain.Course) error
	Send(ctx context.Context, prompt string) error
	Retry(ctx context.Context) error
	NewChat()
	ToggleVoice() bool
}

var _ Session = (*session.Controller)(nil)

type stateMsg struct{ state session.State }

type sessionClosedMsg struct{}

type opErrMsg struct{ err error }

// sendRejectedMsg hands a prompt the session refused back to the input.
type sendRejectedMsg struct {
	prompt string
	err    error
}

// chrome is the number of lines outside the transcript viewport.
const chrome = 5

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx  context.Context
	sess Session
	keys KeyMap

	input    textinput.Model
	view     viewport.Model
	spin     spinner.Model
	help     help.Model
	state    session.State
	width    int
	status   string
	rendered int
}

// New creates the chat screen for sess. ctx bounds every request the screen
// issues.
func New(ctx context.Context, sess Session) Model {
	in := textinput.New()
	in.Placeholder = "Ask the tutor"
	in.Prompt = "> "
	in.CharLimit = 0
	in.Width = 60
	in.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = badgeStyle

	return Model{
		ctx:   ctx,
		sess:  sess,
		keys:  DefaultKeyMap(),
		input: in,
		view:  viewport.New(80, 20),
		spin:  s,
		help:  help.New(),
		state: sess.Snapshot(),
		width: 80,
	}
}

// Init starts the session load and begins listening for changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick, m.mount(), waitForChange(m.sess))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-4, 10)
		m.view.Width = msg.Width
		m.view.Height = max(msg.Height-chrome, 3)
		m.help.Width = msg.Width
		m.refresh()
		return m, nil

	case stateMsg:
		m.state = msg.state
		m.refresh()
		return m, waitForChange(m.sess)

	case sessionClosedMsg:
		return m, tea.Quit

	case opErrMsg:
		m.status = describe(msg.err)
		return m, nil

	case sendRejectedMsg:
		if m.input.Value() == "" {
			m.input.SetValue(msg.prompt)
			m.input.CursorEnd()
		}
		m.status = describe(msg.err)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Send):
		prompt := m.input.Value()
		if strings.TrimSpace(prompt) == "" || !m.state.CanSend() {
			return m, nil
		}
		m.input.SetValue("")
		m.status = ""
		// Held until the next snapshot so a quick second Enter keeps its text.
		m.state.Pending = true
		return m, m.send(prompt)

	case key.Matches(msg, m.keys.NextCourse):
		return m, m.shiftCourse(1)

	case key.Matches(msg, m.keys.PrevCourse):
		return m, m.shiftCourse(-1)

	case key.Matches(msg, m.keys.NewChat):
		m.sess.NewChat()
		return m, nil

	case key.Matches(msg, m.keys.Voice):
		m.sess.ToggleVoice()
		return m, nil

	case key.Matches(msg, m.keys.Retry):
		if m.state.LoadError == nil {
			return m, nil
		}
		return m, m.op(func(ctx context.Context) error { return m.sess.Retry(ctx) })

	case key.Matches(msg, m.keys.PageUp):
		m.view.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.view.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// shiftCourse selects the course delta places from the current one, wrapping.
func (m Model) shiftCourse(delta int) tea.Cmd {
	courses := m.state.Courses
	if len(courses) < 2 {
		return nil
	}
	idx := 0
	for i, c := range courses {
		if c == m.state.SelectedCourse {
			idx = i
			break
		}
	}
	next := courses[(idx+delta+len(courses))%len(courses)]
	return m.op(func(ctx context.Context) error { return m.sess.SelectCourse(ctx, next) })
}

func (m Model) send(prompt string) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		err := sess.Send(ctx, prompt)
		switch {
		case err == nil, errors.Is(err, session.ErrClosed):
			return nil
		case errors.Is(err, session.ErrPending):
			return sendRejectedMsg{prompt: prompt, err: err}
		default:
			return opErrMsg{err: err}
		}
	}
}

func (m Model) mount() tea.Cmd {
	return m.op(func(ctx context.Context) error { return m.sess.Mount(ctx) })
}

// op runs fn off the UI loop. Progress arrives through Changes; only a
// rejected operation produces a message here.
func (m Model) op(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		if err := fn(ctx); err != nil && !errors.Is(err, session.ErrClosed) {
			return opErrMsg{err: err}
		}
		return nil
	}
}

func waitForChange(sess Session) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-sess.Changes(); !ok {
			return sessionClosedMsg{}
		}
		return stateMsg{state: sess.Snapshot()}
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, session.ErrPending):
		return "Still waiting for the last reply."
	case errors.Is(err, session.ErrBlankPrompt):
		return ""
	default:
		return err.Error()
	}
}

// refresh re-renders the transcript, following it to the bottom when it grew.
func (m *Model) refresh() {
	m.view.SetContent(renderHistory(m.state.History, m.view.Width))
	if n := len(m.state.History); n != m.rendered {
		m.rendered = n
		m.view.GotoBottom()
	}
}
