package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/ashureev/coursetutor/internal/domain"
)

const (
	maxJSONResponseSize  = 1 << 20  // 1MB
	maxAudioResponseSize = 32 << 20 // 32MB
)

var errEmptyBaseURL = errors.New("backend base URL is empty")

// ErrResponseTooLarge is returned when a response body exceeds its size limit.
var ErrResponseTooLarge = errors.New("response too large")

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// ClientConfig holds configuration for the backend client.
type ClientConfig struct {
	// BaseURL is the API root, e.g. http://localhost:8000/api.
	BaseURL string
	// Timeout bounds each request. Zero means no client-side timeout.
	Timeout time.Duration
	// Cookies are the session credentials attached to every request.
	Cookies []*http.Cookie
	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
	// MaxAudioBytes caps a synthesized clip. Zero means 32MB.
	MaxAudioBytes int64
}

// Client talks to the CourseTutor backend over HTTP/JSON.
// The Client is safe for concurrent use.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	logger     *slog.Logger
	maxAudio   int64
}

// NewClient creates a backend client. Credentials in cfg.Cookies are placed in
// a cookie jar so they travel with every request and follow Set-Cookie updates.
func NewClient(cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errEmptyBaseURL
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse backend URL %q: %w", cfg.BaseURL, err)
	}

	maxAudio := cfg.MaxAudioBytes
	if maxAudio <= 0 {
		maxAudio = maxAudioResponseSize
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if len(cfg.Cookies) > 0 {
		jar.SetCookies(base, rootScoped(cfg.Cookies))
	}

	return &Client{
		base: base,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Jar:       jar,
			Transport: cfg.Transport,
		},
		logger:   logger,
		maxAudio: maxAudio,
	}, nil
}

// rootScoped copies cookies so that ones without a path apply to the whole host.
func rootScoped(cookies []*http.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		cc := *c
		if cc.Path == "" {
			cc.Path = "/"
		}
		out = append(out, &cc)
	}
	return out
}

// ListCourses calls GET get_classes.
func (c *Client) ListCourses(ctx context.Context) ([]domain.Course, error) {
	var resp coursesResponse
	if err := c.getJSON(ctx, "list courses", "get_classes", nil, &resp); err != nil {
		return nil, err
	}

	courses := make([]domain.Course, 0, len(resp.Classes))
	for _, name := range resp.Classes {
		courses = append(courses, domain.Course(name))
	}
	return courses, nil
}

// History calls GET chat_history for one course.
func (c *Client) History(ctx context.Context, course domain.Course) ([]domain.Message, error) {
	var resp historyResponse
	query := url.Values{"course": []string{string(course)}}
	if err := c.getJSON(ctx, "load history", "chat_history", query, &resp); err != nil {
		return nil, err
	}

	msgs := make([]domain.Message, 0, len(resp.Results))
	for _, w := range resp.Results {
		msgs = append(msgs, w.toDomain())
	}
	return msgs, nil
}

// SendMessage calls POST send_message.
func (c *Client) SendMessage(ctx context.Context, course domain.Course, prompt string) (Reply, error) {
	body, err := c.post(ctx, "send message", "send_message", SendRequest{
		Course: string(course),
		Prompt: prompt,
	}, maxJSONResponseSize)
	if err != nil {
		return Reply{}, err
	}

	var resp sendResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Reply{}, fmt.Errorf("send message: decode response: %w", err)
	}
	return Reply{Text: resp.Reply, Time: parseTime(resp.Time)}, nil
}

// Synthesize calls POST tts and returns the raw audio payload.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	audio, err := c.post(ctx, "synthesize speech", "tts", TTSRequest{Text: text}, c.maxAudio)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("synthesize speech: empty audio payload")
	}
	return audio, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.base.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(op, req, maxJSONResponseSize)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, path string, payload any, limit int64) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(op, req, limit)
}

func (c *Client) do(op string, req *http.Request, limit int64) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "op", op, "error", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%s: response exceeds %d bytes: %w", op, limit, ErrResponseTooLarge)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: snippet}
	}
	return body, nil
}
