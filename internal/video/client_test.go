package video

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCreateSessionRoutedMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/session/create", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "disabled", r.PostForm.Get("p2p.preference"))

		auth := r.Header.Get("X-OPENTOK-AUTH")
		token, err := jwt.Parse(auth, func(*jwt.Token) (any, error) { return []byte("secret"), nil })
		require.NoError(t, err)
		claims := token.Claims.(jwt.MapClaims)
		assert.Equal(t, "key-1", claims["iss"])
		assert.Equal(t, "project", claims["ist"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"session_id":"sess-123"}]`))
	}))
	defer srv.Close()

	client := NewClient("key-1", "secret", nil, WithBaseURL(srv.URL))
	sessionID, err := client.CreateSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-123", sessionID)
}

func TestClientCreateSessionErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient("key-1", "secret", nil, WithBaseURL(srv.URL)).CreateSession(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer empty.Close()
	_, err = NewClient("key-1", "secret", nil, WithBaseURL(empty.URL)).CreateSession(context.Background())
	assert.ErrorContains(t, err, "missing session id")

	_, err = NewClient("", "", nil).CreateSession(context.Background())
	assert.ErrorContains(t, err, "missing api credentials")
}

func TestClientIssueToken(t *testing.T) {
	client := NewClient("key-1", "secret", nil)
	expires := time.Now().Add(90 * time.Minute).Truncate(time.Second)

	signed, err := client.IssueToken(context.Background(), "sess-123", TokenRequest{
		Role:      RolePublisher,
		ExpiresAt: expires,
		Metadata:  map[string]string{"name": "Ada Lovelace", "role": "PATIENT", "userId": "u-1"},
	})
	require.NoError(t, err)

	var claims joinClaims
	_, err = jwt.ParseWithClaims(signed, &claims, func(*jwt.Token) (any, error) { return []byte("secret"), nil })
	require.NoError(t, err)
	assert.Equal(t, "sess-123", claims.SessionID)
	assert.Equal(t, RolePublisher, claims.Role)
	assert.Equal(t, "key-1", claims.Issuer)
	assert.True(t, claims.ExpiresAt.Time.Equal(expires))

	var meta map[string]string
	require.NoError(t, json.Unmarshal([]byte(claims.ConnectionData), &meta))
	assert.Equal(t, "Ada Lovelace", meta["name"])
	assert.Equal(t, "u-1", meta["userId"])

	_, err = client.IssueToken(context.Background(), "", TokenRequest{})
	assert.Error(t, err)
}
