package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"rowhub.org/internal/mail"
)

type fakeDirectory struct {
	mu        sync.Mutex
	accounts  map[string]AccountRef
	passwords map[string]string
}

func newFakeDirectory(refs ...AccountRef) *fakeDirectory {
	d := &fakeDirectory{
		accounts:  make(map[string]AccountRef),
		passwords: make(map[string]string),
	}
	for _, ref := range refs {
		d.accounts[ref.Email] = ref
	}
	return d
}

func (d *fakeDirectory) Lookup(ctx context.Context, email string) (AccountRef, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ref, ok := d.accounts[email]
	return ref, ok, nil
}

func (d *fakeDirectory) UpdatePassword(ctx context.Context, accountID, passwordHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.passwords[accountID] = passwordHash
	return nil
}

type capturingSender struct {
	mu       sync.Mutex
	messages []mail.Message
	fail     bool
}

func (s *capturingSender) Send(ctx context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp unavailable")
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *capturingSender) last(t *testing.T) mail.Message {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		t.Fatal("no mail captured")
	}
	return s.messages[len(s.messages)-1]
}

// tokenFromBody digs the "id.secret" token out of the recovery mail.
func tokenFromBody(t *testing.T, body string) string {
	t.Helper()
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.Count(line, ".") == 1 && !strings.Contains(line, " ") && line != "" {
			return line
		}
	}
	t.Fatalf("no token in mail body %q", body)
	return ""
}

func newRecoveryFixture(t *testing.T, now *time.Time) (*PasswordRecovery, *fakeDirectory, *capturingSender) {
	t.Helper()
	dir := newFakeDirectory(AccountRef{ID: "acct-1", Email: "rower@example.com", Name: "Rower"})
	sender := &capturingSender{}
	clock := func() time.Time { return *now }
	recovery := NewPasswordRecovery(dir, NewMemoryResetTokens(), sender,
		NewRecoveryLimiter(WithLimiterClock(clock)),
		WithRecoveryClock(clock))
	return recovery, dir, sender
}

func TestRecoveryRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recovery, dir, sender := newRecoveryFixture(t, &now)
	ctx := context.Background()

	if err := recovery.Trigger(ctx, "Rower@Example.com"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	msg := sender.last(t)
	if msg.To != "rower@example.com" {
		t.Fatalf("mail to = %q", msg.To)
	}
	token := tokenFromBody(t, msg.Body)

	if err := recovery.Complete(ctx, token, "new-hash"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if dir.passwords["acct-1"] != "new-hash" {
		t.Fatalf("password not updated: %v", dir.passwords)
	}

	// Single use: the same token cannot be replayed.
	if err := recovery.Complete(ctx, token, "another-hash"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("replay err = %v, want ErrInvalidToken", err)
	}
}

func TestRecoveryUniformForUnknownEmail(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recovery, _, sender := newRecoveryFixture(t, &now)

	if err := recovery.Trigger(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("trigger for unknown email must not error, got %v", err)
	}
	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.messages) != 0 {
		t.Fatalf("no mail expected for unknown email, got %d", len(sender.messages))
	}
}

func TestRecoveryMailFailureStaysInternal(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recovery, _, sender := newRecoveryFixture(t, &now)
	sender.fail = true

	if err := recovery.Trigger(context.Background(), "rower@example.com"); err != nil {
		t.Fatalf("delivery failure must not surface, got %v", err)
	}
}

func TestRecoveryRateLimit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recovery, _, _ := newRecoveryFixture(t, &now)
	ctx := context.Background()

	for i := 0; i < defaultRecoveryLimit; i++ {
		if err := recovery.Trigger(ctx, "rower@example.com"); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if err := recovery.Trigger(ctx, "rower@example.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestRecoveryTokenExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recovery, _, sender := newRecoveryFixture(t, &now)
	ctx := context.Background()

	if err := recovery.Trigger(ctx, "rower@example.com"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	token := tokenFromBody(t, sender.last(t).Body)

	now = now.Add(defaultResetTTL + time.Minute)
	if err := recovery.Complete(ctx, token, "new-hash"); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}

	removed, err := recovery.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("sweep removed %d tokens, want 1", removed)
	}
}

func TestRecoveryRejectsMalformedTokens(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recovery, _, _ := newRecoveryFixture(t, &now)
	ctx := context.Background()

	for _, token := range []string{"", "no-dot", "a.b.c", ".secret", "id."} {
		if err := recovery.Complete(ctx, token, "hash"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: err = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestRecoveryWrongSecret(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recovery, _, sender := newRecoveryFixture(t, &now)
	ctx := context.Background()

	if err := recovery.Trigger(ctx, "rower@example.com"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	token := tokenFromBody(t, sender.last(t).Body)
	id := strings.SplitN(token, ".", 2)[0]

	if err := recovery.Complete(ctx, id+".forged-secret", "hash"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken for a forged secret", err)
	}
}
