// Package video allocates routed video sessions with the conferencing provider
// and issues the per-participant tokens used to join them.
package video

import (
	"context"
	"errors"
	"time"
)

// Role is the capability granted by a join token.
type Role string

const (
	RolePublisher  Role = "publisher"
	RoleSubscriber Role = "subscriber"
	RoleModerator  Role = "moderator"
)

// ErrSessionProvisioning marks a session that could not be allocated.
var ErrSessionProvisioning = errors.New("video: session provisioning failed")

// TokenRequest describes a join token.
type TokenRequest struct {
	Role      Role
	ExpiresAt time.Time
	// Metadata is attached to the participant's connection.
	Metadata map[string]string
}

// Provisioner allocates sessions and issues join tokens.
type Provisioner interface {
	CreateSession(ctx context.Context) (string, error)
	IssueToken(ctx context.Context, sessionID string, req TokenRequest) (string, error)
}
