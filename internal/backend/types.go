// Package backend implements the HTTP client for the CourseTutor backend API.
package backend

import (
	"time"

	"github.com/ashureev/coursetutor/internal/domain"
)

// coursesResponse is the body of GET get_classes.
type coursesResponse struct {
	Classes []string `json:"classes"`
}

// historyResponse is the body of GET chat_history.
type historyResponse struct {
	Results []wireMessage `json:"results"`
}

// wireMessage is a chat entry as the backend serializes it.
type wireMessage struct {
	Time   string `json:"time"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// SendRequest is the body of POST send_message.
type SendRequest struct {
	Course string `json:"course"`
	Prompt string `json:"prompt"`
}

// sendResponse is the body of a successful send_message call.
type sendResponse struct {
	Reply string `json:"reply"`
	Time  string `json:"time,omitempty"`
}

// TTSRequest is the body of POST tts.
type TTSRequest struct {
	Text string `json:"text"`
}

// Reply is the tutor's answer to one prompt.
type Reply struct {
	Text string
	// Time is the server-assigned timestamp, zero when the server did not send one.
	Time time.Time
}

func (w wireMessage) toDomain() domain.Message {
	sender := domain.SenderAgent
	if w.Sender == string(domain.SenderUser) {
		sender = domain.SenderUser
	}
	return domain.Message{
		Time:   parseTime(w.Time),
		Sender: sender,
		Text:   w.Text,
	}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
