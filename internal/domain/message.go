// Package domain contains core domain types for the CourseTutor client.
package domain

import (
	"time"
)

// Course identifies a course the user is enrolled in. The backend owns the set.
type Course string

// Sender identifies who authored a message.
type Sender string

const (
	// SenderUser marks messages typed by the learner.
	SenderUser Sender = "user"
	// SenderAgent marks messages produced by the tutor (or synthesized on failure).
	SenderAgent Sender = "agent"
)

// Message is a single chat entry. Messages are never mutated after creation.
type Message struct {
	Time   time.Time `json:"time"`
	Sender Sender    `json:"sender"`
	Text   string    `json:"text"`
}

// NewUserMessage creates a message authored by the learner at the given instant.
func NewUserMessage(text string, at time.Time) Message {
	return Message{Time: at, Sender: SenderUser, Text: text}
}

// NewAgentMessage creates a message authored by the tutor.
func NewAgentMessage(text string, at time.Time) Message {
	return Message{Time: at, Sender: SenderAgent, Text: text}
}

// IsAgent returns true if the tutor authored the message.
func (m Message) IsAgent() bool {
	return m.Sender == SenderAgent
}
