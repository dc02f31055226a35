package video

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Fake is an in-process provisioner for tests and local development.
// Queued errors are returned by CreateSession before it starts succeeding.
type Fake struct {
	mu       sync.Mutex
	failures []error
	sessions []string
	tokens   map[string]TokenRequest
	calls    int
}

func NewFake() *Fake {
	return &Fake{tokens: make(map[string]TokenRequest)}
}

// FailNext queues errors for the following CreateSession calls.
func (f *Fake) FailNext(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, errs...)
}

func (f *Fake) CreateSession(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return "", err
	}
	id := "fake-session-" + uuid.NewString()
	f.sessions = append(f.sessions, id)
	return id, nil
}

func (f *Fake) IssueToken(_ context.Context, sessionID string, req TokenRequest) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("video: session id required")
	}
	meta, err := json.Marshal(req.Metadata)
	if err != nil {
		return "", fmt.Errorf("video: marshal connection data: %w", err)
	}
	token := fmt.Sprintf("fake-token:%s:%s:%d:%s", sessionID, req.Role, req.ExpiresAt.Unix(), meta)
	f.mu.Lock()
	f.tokens[token] = req
	f.mu.Unlock()
	return token, nil
}

// Calls reports how many CreateSession calls were made.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Sessions lists the handles handed out so far.
func (f *Fake) Sessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sessions...)
}

// Token returns the request a token was issued for.
func (f *Fake) Token(token string) (TokenRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.tokens[token]
	return req, ok
}
