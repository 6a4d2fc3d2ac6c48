package backend

import (
	"context"

	"github.com/ashureev/coursetutor/internal/domain"
)

// Tutor defines the backend operations the chat session depends on.
// This interface is implemented by the HTTP client.
type Tutor interface {
	// ListCourses returns the learner's courses in server order.
	ListCourses(ctx context.Context) ([]domain.Course, error)

	// History returns the stored conversation for a course.
	History(ctx context.Context, course domain.Course) ([]domain.Message, error)

	// SendMessage submits a prompt and returns the tutor's reply.
	SendMessage(ctx context.Context, course domain.Course, prompt string) (Reply, error)

	// Synthesize returns encoded audio speaking text.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Ensure Client implements Tutor.
var _ Tutor = (*Client)(nil)
