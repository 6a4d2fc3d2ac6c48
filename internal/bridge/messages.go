package bridge

import (
	"time"

	"github.com/ashureev/coursetutor/internal/domain"
	"github.com/ashureev/coursetutor/internal/linkify"
	"github.com/ashureev/coursetutor/internal/session"
)

// Inbound message types sent by the browser.
const (
	msgSelectCourse = "select_course"
	msgSend         = "send"
	msgNewChat      = "new_chat"
	msgVoice        = "voice"
	msgRetry        = "retry"
	msgAudioEnded   = "audio_ended"
	msgAudioError   = "audio_error"
	msgPing         = "ping"
)

// Outbound message types.
const (
	msgState     = "state"
	msgAudio     = "audio"
	msgAudioStop = "audio_stop"
	msgError     = "error"
	msgPong      = "pong"
)

// wsMessage is an intent from the browser.
type wsMessage struct {
	Type    string `json:"type"`
	Course  string `json:"course,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
	ClipID  string `json:"clip_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// renderedMessage is a history entry ready for display. Agent text is
// pre-split into link segments.
type renderedMessage struct {
	Time     time.Time         `json:"time"`
	Sender   domain.Sender     `json:"sender"`
	Text     string            `json:"text"`
	Segments []linkify.Segment `json:"segments,omitempty"`
}

// stateFrame is the full render state pushed after every change.
type stateFrame struct {
	Type           string             `json:"type"`
	Courses        []domain.Course    `json:"courses"`
	SelectedCourse domain.Course      `json:"selected_course"`
	Messages       []renderedMessage  `json:"messages"`
	Pending        bool               `json:"pending"`
	LoadingHistory bool               `json:"loading_history"`
	VoiceEnabled   bool               `json:"voice_enabled"`
	Speaking       bool               `json:"speaking"`
	LoadError      *session.LoadError `json:"load_error,omitempty"`
}

// audioFrame hands a clip to the browser. Audio is base64 in JSON.
type audioFrame struct {
	Type        string `json:"type"`
	ClipID      string `json:"clip_id"`
	ContentType string `json:"content_type,omitempty"`
	Audio       []byte `json:"audio,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func renderState(st session.State) stateFrame {
	msgs := make([]renderedMessage, 0, len(st.History))
	for _, m := range st.History {
		rm := renderedMessage{Time: m.Time, Sender: m.Sender, Text: m.Text}
		if m.IsAgent() {
			rm.Segments = linkify.Tokenize(m.Text)
		}
		msgs = append(msgs, rm)
	}

	courses := st.Courses
	if courses == nil {
		courses = []domain.Course{}
	}
	return stateFrame{
		Type:           msgState,
		Courses:        courses,
		SelectedCourse: st.SelectedCourse,
		Messages:       msgs,
		Pending:        st.Pending,
		LoadingHistory: st.LoadingHistory,
		VoiceEnabled:   st.VoiceEnabled,
		Speaking:       st.Speaking,
		LoadError:      st.LoadError,
	}
}
