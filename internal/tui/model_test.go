package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/coursetutor/internal/domain"
	"github.com/ashureev/coursetutor/internal/session"
	tea "github.com/charmbracelet/bubbletea"
)

type fakeSession struct {
	changes chan struct{}

	mu       sync.Mutex
	state    session.State
	sent     []string
	selected []domain.Course
	newChats int
	toggles  int
	retries  int
	sendErr  error
}

func newFakeSession(st session.State) *fakeSession {
	return &fakeSession{changes: make(chan struct{}, 1), state: st}
}

func (f *fakeSession) Changes() <-chan struct{} { return f.changes }

func (f *fakeSession) Snapshot() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSession) Mount(context.Context) error { return nil }

func (f *fakeSession) SelectCourse(_ context.Context, course domain.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = append(f.selected, course)
	return nil
}

func (f *fakeSession) Send(_ context.Context, prompt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, prompt)
	return f.sendErr
}

func (f *fakeSession) Retry(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries++
	return nil
}

func (f *fakeSession) NewChat() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newChats++
}

func (f *fakeSession) ToggleVoice() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles++
	return f.toggles%2 == 1
}

func baseState() session.State {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return session.State{
		Courses:        []domain.Course{"CS 61A", "CS 186"},
		SelectedCourse: "CS 61A",
		History: []domain.Message{
			domain.NewUserMessage("where are the notes?", at),
			domain.NewAgentMessage("Try [lecture 3](https://cs61a.test/l3) first.", at),
		},
		VoiceEnabled: true,
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return nm, cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func TestViewRendersState(t *testing.T) {
	st := baseState()
	st.Pending = true
	m := New(context.Background(), newFakeSession(st))
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})

	out := m.View()
	for _, want := range []string{"CS 61A", "CS 186", "Thinking...", "voice on", "where are the notes?", "lecture 3", "<https://cs61a.test/l3>"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
	if strings.Contains(out, "[lecture 3]") {
		t.Error("expected link markup to be rendered, not shown raw")
	}
}

func TestViewShowsLoadError(t *testing.T) {
	st := baseState()
	st.LoadError = &session.LoadError{Op: session.LoadHistory, Course: "CS 61A", Message: "boom"}
	m := New(context.Background(), newFakeSession(st))

	if out := m.View(); !strings.Contains(out, "Couldn't load the history for CS 61A") {
		t.Errorf("expected history load error banner, got:\n%s", out)
	}
}

func TestEnterSendsAndClearsInput(t *testing.T) {
	sess := newFakeSession(baseState())
	m := typeText(t, New(context.Background(), sess), "what is recursion?")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.input.Value() != "" {
		t.Errorf("expected input to be cleared, got %q", m.input.Value())
	}
	if cmd == nil {
		t.Fatal("expected a send command")
	}
	if msg := cmd(); msg != nil {
		t.Fatalf("expected no error message, got %#v", msg)
	}
	if len(sess.sent) != 1 || sess.sent[0] != "what is recursion?" {
		t.Errorf("unexpected sent prompts: %v", sess.sent)
	}
}

func TestEnterIgnoredWhenBlankOrPending(t *testing.T) {
	sess := newFakeSession(baseState())
	m := typeText(t, New(context.Background(), sess), "   ")
	if _, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("expected blank prompt to be ignored")
	}

	st := baseState()
	st.Pending = true
	sess = newFakeSession(st)
	m = typeText(t, New(context.Background(), sess), "hello")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("expected prompt to be held while a reply is pending")
	}
	if m.input.Value() != "hello" {
		t.Errorf("expected input to be kept, got %q", m.input.Value())
	}
}

func TestCourseSwitchWraps(t *testing.T) {
	sess := newFakeSession(baseState())
	m := New(context.Background(), sess)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if cmd == nil {
		t.Fatal("expected a select command")
	}
	cmd()
	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	cmd()

	if len(sess.selected) != 2 || sess.selected[0] != "CS 186" || sess.selected[1] != "CS 186" {
		t.Errorf("unexpected selections: %v", sess.selected)
	}
}

func TestShortcutsReachSession(t *testing.T) {
	st := baseState()
	st.LoadError = &session.LoadError{Op: session.LoadCourses, Message: "boom"}
	sess := newFakeSession(st)
	m := New(context.Background(), sess)

	update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	if _, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR}); cmd != nil {
		cmd()
	}

	if sess.newChats != 1 || sess.toggles != 1 || sess.retries != 1 {
		t.Errorf("unexpected calls: newChats=%d toggles=%d retries=%d", sess.newChats, sess.toggles, sess.retries)
	}
}

func TestStateChangesAreFollowed(t *testing.T) {
	sess := newFakeSession(session.State{})
	m := New(context.Background(), sess)

	sess.mu.Lock()
	sess.state = baseState()
	sess.mu.Unlock()
	sess.changes <- struct{}{}

	msg := waitForChange(sess)()
	m, cmd := update(t, m, msg)
	if m.state.SelectedCourse != "CS 61A" {
		t.Errorf("expected snapshot to be applied, got %+v", m.state)
	}
	if cmd == nil {
		t.Error("expected to keep listening for changes")
	}

	close(sess.changes)
	if _, ok := waitForChange(sess)().(sessionClosedMsg); !ok {
		t.Error("expected closed session to end the program")
	}
}

func TestSecondEnterBeforeSnapshotKeepsText(t *testing.T) {
	sess := newFakeSession(baseState())
	m := typeText(t, New(context.Background(), sess), "first")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a send command")
	}

	m = typeText(t, m, "second")
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("expected the second prompt to be held while the first is in flight")
	}
	if m.input.Value() != "second" {
		t.Errorf("expected input to keep the second prompt, got %q", m.input.Value())
	}
}

func TestRejectedSendRestoresPrompt(t *testing.T) {
	sess := newFakeSession(baseState())
	sess.sendErr = session.ErrPending
	m := typeText(t, New(context.Background(), sess), "lost?")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a send command")
	}
	m, _ = update(t, m, cmd())

	if m.input.Value() != "lost?" {
		t.Errorf("expected rejected prompt back in the input, got %q", m.input.Value())
	}
	if !strings.Contains(m.View(), "Still waiting for the last reply.") {
		t.Error("expected a pending notice")
	}
}
