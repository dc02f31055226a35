package video

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/telehealth-scheduling/pkg/logging"
)

const (
	defaultBaseURL = "https://api.opentok.com"
	defaultTimeout = 10 * time.Second
	authTokenTTL   = 5 * time.Minute
)

// Client talks to the video provider's REST API.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	logger     *logging.Logger
	now        func() time.Time
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if strings.TrimSpace(u) != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient overrides the transport.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a provider client for one project.
func NewClient(apiKey, apiSecret string, logger *logging.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

// CreateSession allocates a routed session (media relayed by the provider, no
// peer-to-peer) and returns its handle.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" || strings.TrimSpace(c.apiSecret) == "" {
		return "", fmt.Errorf("video: missing api credentials")
	}
	auth, err := c.projectToken()
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("p2p.preference", "disabled")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/session/create", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("video: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-OPENTOK-AUTH", auth)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("video: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("video: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return "", fmt.Errorf("video: status %d: %s", resp.StatusCode, msg)
	}

	var sessions []sessionResponse
	if err := json.Unmarshal(body, &sessions); err != nil {
		return "", fmt.Errorf("video: unmarshal response: %w", err)
	}
	if len(sessions) == 0 || sessions[0].SessionID == "" {
		return "", fmt.Errorf("video: response missing session id")
	}
	c.logger.Debug("video session created", "session_id", sessions[0].SessionID)
	return sessions[0].SessionID, nil
}

type joinClaims struct {
	SessionID      string `json:"session_id"`
	Role           Role   `json:"role"`
	Scope          string `json:"scope"`
	ConnectionData string `json:"connection_data,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs a join token locally; no provider round trip is needed.
func (c *Client) IssueToken(_ context.Context, sessionID string, req TokenRequest) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", fmt.Errorf("video: session id required")
	}
	if strings.TrimSpace(c.apiSecret) == "" {
		return "", fmt.Errorf("video: missing api secret")
	}
	role := req.Role
	if role == "" {
		role = RolePublisher
	}
	var data string
	if len(req.Metadata) > 0 {
		raw, err := json.Marshal(req.Metadata)
		if err != nil {
			return "", fmt.Errorf("video: marshal connection data: %w", err)
		}
		data = string(raw)
	}
	now := c.now()
	claims := joinClaims{
		SessionID:      sessionID,
		Role:           role,
		Scope:          "session.connect",
		ConnectionData: data,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.apiKey,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(req.ExpiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.apiSecret))
	if err != nil {
		return "", fmt.Errorf("video: sign token: %w", err)
	}
	return signed, nil
}

func (c *Client) projectToken() (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"iss": c.apiKey,
		"ist": "project",
		"iat": now.Unix(),
		"exp": now.Add(authTokenTTL).Unix(),
		"jti": uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.apiSecret))
	if err != nil {
		return "", fmt.Errorf("video: sign auth token: %w", err)
	}
	return signed, nil
}
