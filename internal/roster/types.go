package roster

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role identifies what an account is allowed to see and do.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleCoach      Role = "coach"
	RoleAthlete    Role = "athlete"
)

// ParseRole validates a wire-level role string.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleSuperAdmin:
		return RoleSuperAdmin, nil
	case RoleCoach:
		return RoleCoach, nil
	case RoleAthlete:
		return RoleAthlete, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, raw)
	}
}

// Status tracks the registration lifecycle. Transitions are forward-only:
// pending may become approved or rejected, both terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a wire-level status string.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.TrimSpace(strings.ToLower(raw))) {
	case StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, raw)
	}
}

// Account is a registered identity. SocietyIDs is a membership set, not
// ownership: an account may belong to zero, one or many societies.
type Account struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	Name              string     `json:"name"`
	Role              Role       `json:"role"`
	Status            Status     `json:"status"`
	SocietyIDs        []string   `json:"society_ids"`
	BirthYear         *int       `json:"birth_year,omitempty"`
	Category          string     `json:"category,omitempty"`
	Weight            *float64   `json:"weight,omitempty"`
	Height            *float64   `json:"height,omitempty"`
	DesignatedCoachID string     `json:"designated_coach_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// PrimarySociety returns the first membership, or empty when the account
// belongs to no society.
func (a *Account) PrimarySociety() string {
	if len(a.SocietyIDs) == 0 {
		return ""
	}
	return a.SocietyIDs[0]
}

// Society is a tenant unit accounts can hold memberships in.
type Society struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// SocietyChangeRequest records an athlete's pending migration to a new
// society. Old society and new society name are snapshots taken at request
// time.
type SocietyChangeRequest struct {
	ID             string    `json:"id"`
	AthleteID      string    `json:"athlete_id"`
	AthleteName    string    `json:"athlete_name"`
	OldSocietyID   string    `json:"old_society_id,omitempty"`
	NewSocietyID   string    `json:"new_society_id"`
	NewSocietyName string    `json:"new_society_name"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

var (
	ErrNotFound     = errors.New("roster: not found")
	ErrConflict     = errors.New("roster: conflict")
	ErrInvalidInput = errors.New("roster: invalid input")
	ErrForbidden    = errors.New("roster: forbidden")
)

// Identity is the resolved caller on whose behalf an operation runs.
type Identity struct {
	AccountID  string
	Email      string
	Role       Role
	SocietyIDs []string
}
