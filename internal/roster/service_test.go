package roster

import (
	"context"
	"errors"
	"testing"
	"time"
)

const bootstrapEmail = "ops@rowhub.test"

func newTestService() *Service {
	return NewService(NewMemory(),
		WithBootstrapEmail(bootstrapEmail),
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }))
}

func register(t *testing.T, svc *Service, email string, role Role, societies ...string) *Account {
	t.Helper()
	account, err := svc.Register(context.Background(), Registration{
		Email:        email,
		PasswordHash: "hash",
		Name:         "Test " + email,
		Role:         string(role),
		SocietyIDs:   societies,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return account
}

func approve(t *testing.T, svc *Service, admin Identity, id string) {
	t.Helper()
	if _, err := svc.DecideRegistration(context.Background(), admin, id, StatusApproved); err != nil {
		t.Fatalf("approve %s: %v", id, err)
	}
}

func TestBootstrapRegistration(t *testing.T) {
	svc := newTestService()

	first := register(t, svc, bootstrapEmail, RoleSuperAdmin)
	if first.Status != StatusApproved {
		t.Fatalf("bootstrap status = %s, want approved", first.Status)
	}

	// Once the store is populated the bootstrap email gets no special
	// treatment; a later registration under any address is pending.
	second := register(t, svc, "athlete@rowhub.test", RoleAthlete)
	if second.Status != StatusPending {
		t.Fatalf("regular status = %s, want pending", second.Status)
	}
}

func TestBootstrapOnlyWhileEmpty(t *testing.T) {
	svc := newTestService()
	register(t, svc, "early@rowhub.test", RoleAthlete)

	late, err := svc.Register(context.Background(), Registration{
		Email:        bootstrapEmail,
		PasswordHash: "hash",
		Name:         "Late Ops",
		Role:         string(RoleSuperAdmin),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if late.Status != StatusPending {
		t.Fatalf("late bootstrap status = %s, want pending", late.Status)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		reg  Registration
	}{
		{name: "missing email", reg: Registration{PasswordHash: "h", Name: "n", Role: "athlete"}},
		{name: "malformed email", reg: Registration{Email: "nope", PasswordHash: "h", Name: "n", Role: "athlete"}},
		{name: "missing name", reg: Registration{Email: "a@b.c", PasswordHash: "h", Role: "athlete"}},
		{name: "missing password", reg: Registration{Email: "a@b.c", Name: "n", Role: "athlete"}},
		{name: "unknown role", reg: Registration{Email: "a@b.c", PasswordHash: "h", Name: "n", Role: "admin"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tc.reg); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService()
	register(t, svc, "dup@rowhub.test", RoleAthlete)

	_, err := svc.Register(context.Background(), Registration{
		Email:        "Dup@Rowhub.Test",
		PasswordHash: "hash",
		Name:         "Duplicate",
		Role:         string(RoleAthlete),
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict for case-insensitive duplicate", err)
	}
}

func TestDecideRegistrationIsTerminal(t *testing.T) {
	svc := newTestService()
	admin := register(t, svc, bootstrapEmail, RoleSuperAdmin)
	adminID := Identity{AccountID: admin.ID, Role: admin.Role}
	target := register(t, svc, "pending@rowhub.test", RoleAthlete)
	ctx := context.Background()

	decided, err := svc.DecideRegistration(ctx, adminID, target.ID, StatusRejected)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if decided.Status != StatusRejected {
		t.Fatalf("status = %s, want rejected", decided.Status)
	}

	// A second decision on the same account is a conflict, not a silent
	// re-approval.
	if _, err := svc.DecideRegistration(ctx, adminID, target.ID, StatusApproved); !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	if _, err := svc.DecideRegistration(ctx, adminID, target.ID, StatusPending); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput for a pending decision", err)
	}
}

func TestDecideRegistrationScope(t *testing.T) {
	svc := newTestService()
	admin := register(t, svc, bootstrapEmail, RoleSuperAdmin)
	adminID := Identity{AccountID: admin.ID, Role: admin.Role}
	coach := register(t, svc, "coach@rowhub.test", RoleCoach, "soc-1")
	approve(t, svc, adminID, coach.ID)
	coachID := Identity{AccountID: coach.ID, Role: RoleCoach, SocietyIDs: []string{"soc-1"}}

	inside := register(t, svc, "inside@rowhub.test", RoleAthlete, "soc-1")
	outside := register(t, svc, "outside@rowhub.test", RoleAthlete, "soc-2")
	ctx := context.Background()

	if _, err := svc.DecideRegistration(ctx, coachID, inside.ID, StatusApproved); err != nil {
		t.Fatalf("coach approving shared-society athlete: %v", err)
	}
	if _, err := svc.DecideRegistration(ctx, coachID, outside.ID, StatusApproved); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden outside coach societies", err)
	}
}

func TestListAccountsScope(t *testing.T) {
	svc := newTestService()
	admin := register(t, svc, bootstrapEmail, RoleSuperAdmin)
	adminID := Identity{AccountID: admin.ID, Role: admin.Role}
	register(t, svc, "a1@rowhub.test", RoleAthlete, "soc-1")
	register(t, svc, "a2@rowhub.test", RoleAthlete, "soc-2")
	ctx := context.Background()

	all, err := svc.ListAccounts(ctx, adminID, nil)
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("admin sees %d accounts, want 3", len(all))
	}

	coachID := Identity{AccountID: "c", Role: RoleCoach, SocietyIDs: []string{"soc-1"}}
	scoped, err := svc.ListAccounts(ctx, coachID, nil)
	if err != nil {
		t.Fatalf("coach list: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Email != "a1@rowhub.test" {
		t.Fatalf("coach sees %d accounts, want only the shared-society athlete", len(scoped))
	}

	// A coach with no memberships sees nothing rather than everything.
	bare, err := svc.ListAccounts(ctx, Identity{AccountID: "c2", Role: RoleCoach}, nil)
	if err != nil {
		t.Fatalf("bare coach list: %v", err)
	}
	if len(bare) != 0 {
		t.Fatalf("membershipless coach sees %d accounts, want 0", len(bare))
	}

	if _, err := svc.ListAccounts(ctx, Identity{AccountID: "x", Role: RoleAthlete}, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("athlete err = %v, want ErrForbidden", err)
	}

	pending := StatusPending
	pendingOnly, err := svc.ListAccounts(ctx, adminID, &pending)
	if err != nil {
		t.Fatalf("pending list: %v", err)
	}
	if len(pendingOnly) != 2 {
		t.Fatalf("pending accounts = %d, want 2", len(pendingOnly))
	}
}

func TestSocietyChangeFlow(t *testing.T) {
	svc := newTestService()
	admin := register(t, svc, bootstrapEmail, RoleSuperAdmin)
	adminID := Identity{AccountID: admin.ID, Role: admin.Role}
	ctx := context.Background()

	oldSoc, err := svc.CreateSociety(ctx, adminID, "Canottieri Vecchia")
	if err != nil {
		t.Fatalf("create society: %v", err)
	}
	newSoc, err := svc.CreateSociety(ctx, adminID, "Canottieri Nuova")
	if err != nil {
		t.Fatalf("create society: %v", err)
	}

	athlete := register(t, svc, "mover@rowhub.test", RoleAthlete, oldSoc.ID)
	approve(t, svc, adminID, athlete.ID)
	athleteID := Identity{AccountID: athlete.ID, Role: RoleAthlete, SocietyIDs: []string{oldSoc.ID}}

	req, err := svc.RequestSocietyChange(ctx, athleteID, newSoc.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.OldSocietyID != oldSoc.ID || req.NewSocietyName != "Canottieri Nuova" {
		t.Fatalf("request snapshot = %+v", req)
	}

	// One pending request per athlete.
	if _, err := svc.RequestSocietyChange(ctx, athleteID, oldSoc.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("second request err = %v, want ErrConflict", err)
	}

	// Approval by a coach of the target society.
	targetCoach := Identity{AccountID: "c", Role: RoleCoach, SocietyIDs: []string{newSoc.ID}}
	approved, err := svc.ApproveSocietyChange(ctx, targetCoach, req.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != StatusApproved {
		t.Fatalf("status = %s, want approved", approved.Status)
	}

	// Migration is exclusive: the old membership is gone.
	moved, err := svc.GetAccount(ctx, adminID, athlete.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if len(moved.SocietyIDs) != 1 || moved.SocietyIDs[0] != newSoc.ID {
		t.Fatalf("memberships after migration = %v, want [%s]", moved.SocietyIDs, newSoc.ID)
	}

	// Re-approving the consumed request is a conflict.
	if _, err := svc.ApproveSocietyChange(ctx, adminID, req.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("replay err = %v, want ErrConflict", err)
	}
}

func TestSocietyChangeApprovalScope(t *testing.T) {
	svc := newTestService()
	admin := register(t, svc, bootstrapEmail, RoleSuperAdmin)
	adminID := Identity{AccountID: admin.ID, Role: admin.Role}
	ctx := context.Background()

	soc, err := svc.CreateSociety(ctx, adminID, "Target")
	if err != nil {
		t.Fatalf("create society: %v", err)
	}
	athlete := register(t, svc, "mover@rowhub.test", RoleAthlete)
	approve(t, svc, adminID, athlete.ID)

	req, err := svc.RequestSocietyChange(ctx, Identity{AccountID: athlete.ID, Role: RoleAthlete}, soc.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	stranger := Identity{AccountID: "c", Role: RoleCoach, SocietyIDs: []string{"elsewhere"}}
	if _, err := svc.ApproveSocietyChange(ctx, stranger, req.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden for a coach without target visibility", err)
	}
}

func TestRequestSocietyChangeOnlyAthletes(t *testing.T) {
	svc := newTestService()
	coach := Identity{AccountID: "c", Role: RoleCoach, SocietyIDs: []string{"soc-1"}}
	if _, err := svc.RequestSocietyChange(context.Background(), coach, "soc-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestSetDesignatedCoach(t *testing.T) {
	svc := newTestService()
	admin := register(t, svc, bootstrapEmail, RoleSuperAdmin)
	adminID := Identity{AccountID: admin.ID, Role: admin.Role}
	target := register(t, svc, "coach@rowhub.test", RoleCoach, "soc-1")
	designated := register(t, svc, "mentor@rowhub.test", RoleCoach, "soc-2")
	ctx := context.Background()

	updated, err := svc.SetDesignatedCoach(ctx, adminID, target.ID, designated.ID)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if updated.DesignatedCoachID != designated.ID {
		t.Fatalf("designated = %q, want %q", updated.DesignatedCoachID, designated.ID)
	}

	cleared, err := svc.SetDesignatedCoach(ctx, adminID, target.ID, "")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared.DesignatedCoachID != "" {
		t.Fatalf("designated = %q after clearing", cleared.DesignatedCoachID)
	}
}

func TestRecomputeCategories(t *testing.T) {
	svc := newTestService()
	admin := register(t, svc, bootstrapEmail, RoleSuperAdmin)
	adminID := Identity{AccountID: admin.ID, Role: admin.Role}
	ctx := context.Background()

	year := 2026
	birth := year - 15
	if _, err := svc.Register(ctx, Registration{
		Email:        "teen@rowhub.test",
		PasswordHash: "hash",
		Name:         "Teen",
		Role:         string(RoleAthlete),
		BirthYear:    &birth,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Stored categories already match the clock year.
	changed, err := svc.RecomputeCategories(ctx, adminID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if changed != 0 {
		t.Fatalf("changed = %d, want 0 on a fresh store", changed)
	}

	if _, err := svc.RecomputeCategories(ctx, Identity{AccountID: "x", Role: RoleCoach}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("coach err = %v, want ErrForbidden", err)
	}
}
