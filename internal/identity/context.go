package identity

import (
	"context"

	"github.com/google/uuid"
)

// Role is the platform role carried in the caller's token.
type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
	RoleAdmin   Role = "ADMIN"
)

// Caller is the authenticated user behind a request.
type Caller struct {
	UserID uuid.UUID
	Role   Role
}

type ctxKey string

const callerKey ctxKey = "telehealth.caller"

// WithCaller stores the caller in context.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFromContext extracts the caller if present.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey).(Caller)
	return caller, ok && caller.UserID != uuid.Nil
}
