// Package directory holds the user records the booking path depends on
// (doctor verification, display names) and doctors' weekly availability.
package directory

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
	"github.com/wolfman30/telehealth-scheduling/internal/identity"
)

// VerificationStatus tracks a doctor's credential review.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// ErrUserNotFound is returned when no user has the requested id.
var ErrUserNotFound = errors.New("directory: user not found")

// User is the subset of a platform account used for scheduling.
type User struct {
	ID                 uuid.UUID
	FirstName          string
	LastName           string
	Email              string
	Role               identity.Role
	VerificationStatus VerificationStatus
}

// FullName joins the name parts, skipping empty ones.
func (u User) FullName() string {
	return strings.TrimSpace(strings.Join([]string{u.FirstName, u.LastName}, " "))
}

// Bookable reports whether patients may book time with this user.
func (u User) Bookable() bool {
	return u.Role == identity.RoleDoctor && u.VerificationStatus == VerificationVerified
}

// Users loads user records.
type Users interface {
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
}

// Directory answers doctor eligibility questions on top of a user store.
type Directory struct {
	users Users
}

func New(users Users) *Directory {
	if users == nil {
		panic("directory: users required")
	}
	return &Directory{users: users}
}

// GetUser returns the user or ErrUserNotFound.
func (d *Directory) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return d.users.GetUser(ctx, id)
}

// EnsureBookable returns apperr.ErrDoctorUnavailable unless id is a verified doctor.
func (d *Directory) EnsureBookable(ctx context.Context, id uuid.UUID) error {
	_, err := d.BookableDoctor(ctx, id)
	return err
}

// BookableDoctor loads a verified doctor.
func (d *Directory) BookableDoctor(ctx context.Context, id uuid.UUID) (User, error) {
	user, err := d.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, apperr.ErrDoctorUnavailable
		}
		return User{}, err
	}
	if !user.Bookable() {
		return User{}, apperr.ErrDoctorUnavailable
	}
	return user, nil
}
