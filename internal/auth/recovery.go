package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"rowhub.org/internal/ids"
	"rowhub.org/internal/mail"
	"rowhub.org/internal/obs"
)

const defaultResetTTL = time.Hour

// AccountRef is the slice of an account the recovery flow needs.
type AccountRef struct {
	ID    string
	Email string
	Name  string
}

// AccountDirectory resolves accounts by email and applies new password
// hashes. The found flag keeps the recovery flow decoupled from the roster
// error taxonomy.
type AccountDirectory interface {
	Lookup(ctx context.Context, email string) (AccountRef, bool, error)
	UpdatePassword(ctx context.Context, accountID, passwordHash string) error
}

// ResetToken is a stored single-use recovery credential. Only the sha256 of
// the secret half is persisted; the full token exists only in the mail sent
// to the account owner.
type ResetToken struct {
	ID        string
	AccountID string
	TokenHash string
	ExpiresAt time.Time
	Consumed  bool
	CreatedAt time.Time
}

// ResetTokenStore persists recovery tokens.
type ResetTokenStore interface {
	Create(ctx context.Context, t *ResetToken) error
	Find(ctx context.Context, id string) (*ResetToken, error)
	MarkConsumed(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// PasswordRecovery implements the request/complete password reset flow.
type PasswordRecovery struct {
	directory AccountDirectory
	tokens    ResetTokenStore
	sender    mail.Sender
	limiter   *RecoveryLimiter
	now       func() time.Time
	ttl       time.Duration
}

// RecoveryOption configures PasswordRecovery behavior.
type RecoveryOption func(*PasswordRecovery)

// WithRecoveryClock overrides the time source (useful for tests).
func WithRecoveryClock(fn func() time.Time) RecoveryOption {
	return func(r *PasswordRecovery) {
		if fn != nil {
			r.now = fn
		}
	}
}

// WithResetTTL overrides the token lifetime.
func WithResetTTL(ttl time.Duration) RecoveryOption {
	return func(r *PasswordRecovery) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewPasswordRecovery constructs the flow.
func NewPasswordRecovery(directory AccountDirectory, tokens ResetTokenStore, sender mail.Sender, limiter *RecoveryLimiter, opts ...RecoveryOption) *PasswordRecovery {
	r := &PasswordRecovery{
		directory: directory,
		tokens:    tokens,
		sender:    sender,
		limiter:   limiter,
		now:       time.Now,
		ttl:       defaultResetTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Trigger starts recovery for email. The response is uniform whether or not
// the account exists, so the endpoint cannot be used to enumerate emails.
// Only the rate limit is surfaced to the caller.
func (r *PasswordRecovery) Trigger(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := r.limiter.Allow(email); err != nil {
		return err
	}
	account, found, err := r.directory.Lookup(ctx, email)
	if err != nil || !found {
		return nil
	}

	token, record, err := r.generateToken(account.ID)
	if err != nil {
		return nil
	}
	if err := r.tokens.Create(ctx, record); err != nil {
		return nil
	}

	msg := mail.Message{
		To:      account.Email,
		Subject: "Password reset",
		Body:    fmt.Sprintf("Hello %s,\n\nUse this token to reset your password within one hour:\n\n%s\n", account.Name, token),
	}
	if err := r.sender.Send(ctx, msg); err != nil {
		// Delivery failures stay internal; surfacing them would leak
		// account existence.
		obs.LogRequest(map[string]any{
			"event": "recovery_mail_failed",
			"error": err.Error(),
		})
	}
	return nil
}

// Complete consumes a reset token and installs the new password hash.
func (r *PasswordRecovery) Complete(ctx context.Context, token, passwordHash string) error {
	if passwordHash == "" {
		return errors.New("password hash is empty")
	}
	tokenID, secret, err := splitResetToken(token)
	if err != nil {
		return ErrInvalidToken
	}
	record, err := r.tokens.Find(ctx, tokenID)
	if err != nil {
		return ErrInvalidToken
	}
	if record.Consumed {
		return ErrInvalidToken
	}
	if r.now().After(record.ExpiresAt) {
		return ErrTokenExpired
	}
	if !secureCompareHash(record.TokenHash, secret) {
		return ErrInvalidToken
	}
	if err := r.tokens.MarkConsumed(ctx, record.ID); err != nil {
		return err
	}
	return r.directory.UpdatePassword(ctx, record.AccountID, passwordHash)
}

// Sweep deletes expired tokens and prunes idle limiter keys, reporting how
// many tokens were removed.
func (r *PasswordRecovery) Sweep(ctx context.Context) (int, error) {
	r.limiter.Prune()
	return r.tokens.DeleteExpired(ctx, r.now())
}

func (r *PasswordRecovery) generateToken(accountID string) (string, *ResetToken, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", nil, err
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)
	tokenID := ids.New()
	sum := sha256.Sum256([]byte(secret))
	now := r.now().UTC()
	rec := &ResetToken{
		ID:        tokenID,
		AccountID: accountID,
		TokenHash: hex.EncodeToString(sum[:]),
		ExpiresAt: now.Add(r.ttl),
		CreatedAt: now,
	}
	return tokenID + "." + secret, rec, nil
}

func splitResetToken(raw string) (id, secret string, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New("invalid reset token format")
	}
	return parts[0], parts[1], nil
}

func secureCompareHash(expectedHash, secret string) bool {
	sum := sha256.Sum256([]byte(secret))
	actual := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expectedHash), []byte(actual)) == 1
}
