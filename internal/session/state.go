// Package session implements the course chat session controller: course
// selection, history loading, the optimistic message exchange, and voice.
package session

import (
	"github.com/ashureev/coursetutor/internal/domain"
)

// ApologyText is the agent message appended when a send fails.
const ApologyText = "Sorry, something went wrong. Please try again."

// LoadOp names the load that failed.
type LoadOp string

const (
	// LoadCourses is the course list request issued on mount.
	LoadCourses LoadOp = "courses"
	// LoadHistory is the chat history request issued on course selection.
	LoadHistory LoadOp = "history"
)

// LoadError describes a failed course list or history load. Retry re-issues it.
type LoadError struct {
	Op      LoadOp        `json:"op"`
	Course  domain.Course `json:"course,omitempty"`
	Message string        `json:"message"`
}

// State is a point-in-time copy of everything a renderer needs.
type State struct {
	Courses        []domain.Course  `json:"courses"`
	SelectedCourse domain.Course    `json:"selected_course"`
	History        []domain.Message `json:"history"`
	Pending        bool             `json:"pending"`
	LoadingHistory bool             `json:"loading_history"`
	VoiceEnabled   bool             `json:"voice_enabled"`
	Speaking       bool             `json:"speaking"`
	LoadError      *LoadError       `json:"load_error,omitempty"`
}

// CanSend reports whether a prompt submitted now would be accepted.
func (s State) CanSend() bool {
	return !s.Pending
}
