package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ashureev/coursetutor/internal/domain"
)

const sessionCookie = "tutor_session"

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(ClientConfig{
		BaseURL: srv.URL + "/api",
		Timeout: 5 * time.Second,
		Cookies: []*http.Cookie{{Name: sessionCookie, Value: "abc123"}},
	}, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func requireCookie(t *testing.T, r *http.Request) {
	t.Helper()
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value != "abc123" {
		t.Errorf("expected session cookie on %s %s, got %v (%v)", r.Method, r.URL.Path, c, err)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(ClientConfig{}, nil); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestListCourses(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/get_classes" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		requireCookie(t, r)
		_, _ = io.WriteString(w, `{"classes":["CS 186","CS 61B"]}`)
	})

	courses, err := c.ListCourses(context.Background())
	if err != nil {
		t.Fatalf("ListCourses failed: %v", err)
	}
	if len(courses) != 2 || courses[0] != "CS 186" || courses[1] != "CS 61B" {
		t.Fatalf("unexpected courses: %v", courses)
	}
}

func TestHistoryEncodesCourse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat_history" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.RawQuery != "course=CS+186%2FA%26B" {
			t.Errorf("unexpected raw query %q", r.URL.RawQuery)
		}
		requireCookie(t, r)
		_, _ = io.WriteString(w, `{"results":[
			{"time":"2025-01-02T03:04:05Z","sender":"user","text":"hi"},
			{"time":"2025-01-02T03:04:06Z","sender":"agent","text":"hello [x](y)"}
		]}`)
	})

	msgs, err := c.History(context.Background(), domain.Course("CS 186/A&B"))
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Sender != domain.SenderUser || msgs[1].Sender != domain.SenderAgent {
		t.Errorf("unexpected senders: %v, %v", msgs[0].Sender, msgs[1].Sender)
	}
	if want := time.Date(2025, 1, 2, 3, 4, 6, 0, time.UTC); !msgs[1].Time.Equal(want) {
		t.Errorf("expected time %v, got %v", want, msgs[1].Time)
	}
}

func TestSendMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/send_message" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		requireCookie(t, r)

		var req SendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Course != "CS 186" || req.Prompt != "what is a B+ tree?" {
			t.Errorf("unexpected request body: %+v", req)
		}
		_, _ = io.WriteString(w, `{"reply":"A balanced tree.","time":"2025-01-02T03:04:05Z"}`)
	})

	reply, err := c.SendMessage(context.Background(), "CS 186", "what is a B+ tree?")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if reply.Text != "A balanced tree." {
		t.Errorf("unexpected reply %q", reply.Text)
	}
	if reply.Time.IsZero() {
		t.Error("expected server time to be parsed")
	}
}

func TestSendMessageServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.SendMessage(context.Background(), "CS 186", "hi")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", statusErr.StatusCode)
	}
}

func TestSynthesize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		requireCookie(t, r)
		var req TTSRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text != "hello" {
			t.Errorf("unexpected tts body %+v (%v)", req, err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte{0xff, 0xfb, 0x90})
	})

	audio, err := c.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(audio) != 3 {
		t.Errorf("expected 3 bytes of audio, got %d", len(audio))
	}
}

func TestSynthesizeFailureStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	if _, err := c.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for 403")
	}
}

func TestSynthesizeRejectsOversizedAudio(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte{0xff, 0xfb, 0x90, 0x00})
	})

	c.maxAudio = 4
	if audio, err := c.Synthesize(context.Background(), "hello"); err != nil || len(audio) != 4 {
		t.Fatalf("expected a clip at the limit to pass, got %d bytes (%v)", len(audio), err)
	}

	c.maxAudio = 3
	if _, err := c.Synthesize(context.Background(), "hello"); !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("expected ErrResponseTooLarge, got %v", err)
	}
}

func TestRequestHonorsContext(t *testing.T) {
	block := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.ListCourses(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
