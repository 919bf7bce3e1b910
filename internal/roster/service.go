package roster

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rowhub.org/internal/ids"
)

// Service provides account, society and workflow operations on top of a
// Store, with every decision delegated to the access Engine.
type Service struct {
	store  Store
	engine *Engine
	now    func() time.Time

	// bootstrapEmail, when configured, marks the one registration that is
	// created directly approved while the account store is still empty.
	bootstrapEmail string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithBootstrapEmail sets the operator address allowed to self-approve on a
// cold start.
func WithBootstrapEmail(email string) ServiceOption {
	return func(s *Service) {
		s.bootstrapEmail = strings.TrimSpace(strings.ToLower(email))
	}
}

// NewService constructs a Service.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		engine: NewEngine(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine exposes the shared access rule set.
func (s *Service) Engine() *Engine {
	return s.engine
}

// Registration carries validated-at-the-edge input for a new account. The
// password is already hashed; the core never sees the plaintext.
type Registration struct {
	Email        string
	PasswordHash string
	Name         string
	Role         string
	SocietyIDs   []string
	BirthYear    *int
	Weight       *float64
	Height       *float64
}

// Register creates a new account in pending state. The single exception is
// the bootstrap rule: while the store is empty, a registration matching the
// configured operator email is created approved so a cold deployment can be
// administered at all.
func (s *Service) Register(ctx context.Context, reg Registration) (*Account, error) {
	email := strings.TrimSpace(strings.ToLower(reg.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	name := strings.TrimSpace(reg.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if reg.PasswordHash == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	role, err := ParseRole(reg.Role)
	if err != nil {
		return nil, err
	}

	accounts := s.store.Accounts(ctx)
	if _, err := accounts.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}

	status := StatusPending
	if s.bootstrapEmail != "" && email == s.bootstrapEmail {
		total, err := accounts.Count(ctx)
		if err != nil {
			return nil, err
		}
		if total == 0 {
			status = StatusApproved
		}
	}

	now := s.now().UTC()
	account := &Account{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: reg.PasswordHash,
		Name:         name,
		Role:         role,
		Status:       status,
		SocietyIDs:   dedupeIDs(reg.SocietyIDs),
		BirthYear:    reg.BirthYear,
		Weight:       reg.Weight,
		Height:       reg.Height,
		CreatedAt:    now,
	}
	if account.BirthYear != nil {
		account.Category = Category(*account.BirthYear, now.Year())
	}
	if err := accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// AccountByEmail looks up an account for credential verification. Callers
// must not expose the result without an access check.
func (s *Service) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	return s.store.Accounts(ctx).FindByEmail(ctx, email)
}

// Identity resolves fresh role and memberships for an authenticated account.
// Only approved accounts act on the system; a valid token for a pending or
// rejected account resolves to forbidden.
func (s *Service) Identity(ctx context.Context, accountID string) (Identity, error) {
	account, err := s.store.Accounts(ctx).Find(ctx, accountID)
	if err != nil {
		return Identity{}, err
	}
	if account.Status != StatusApproved {
		return Identity{}, fmt.Errorf("%w: account not approved", ErrForbidden)
	}
	return Identity{
		AccountID:  account.ID,
		Email:      account.Email,
		Role:       account.Role,
		SocietyIDs: account.SocietyIDs,
	}, nil
}

// Profile returns the caller's own account with the category projection
// refreshed against the current year.
func (s *Service) Profile(ctx context.Context, caller Identity) (*Account, error) {
	account, err := s.store.Accounts(ctx).Find(ctx, caller.AccountID)
	if err != nil {
		return nil, err
	}
	s.refreshCategory(account)
	return account, nil
}

// GetAccount returns a single visible account.
func (s *Service) GetAccount(ctx context.Context, caller Identity, id string) (*Account, error) {
	account, err := s.store.Accounts(ctx).Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.CanViewAccount(caller, account); err != nil {
		return nil, err
	}
	s.refreshCategory(account)
	return account, nil
}

// ListAccounts returns accounts within the caller's visibility scope,
// optionally narrowed by status.
func (s *Service) ListAccounts(ctx context.Context, caller Identity, status *Status) ([]*Account, error) {
	scope, err := s.engine.AccountListScope(caller)
	if err != nil {
		return nil, err
	}
	filter := AccountFilter{Status: status}
	if !scope.All {
		if len(scope.SocietyIDs) == 0 {
			return nil, nil
		}
		filter.SocietyIDs = scope.SocietyIDs
	}
	accounts, err := s.store.Accounts(ctx).List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		s.refreshCategory(a)
	}
	return accounts, nil
}

// DecideRegistration resolves a pending registration. The transition is a
// guarded compare-and-set: deciding an already processed account is a
// conflict, never a silent re-approval.
func (s *Service) DecideRegistration(ctx context.Context, caller Identity, targetID string, decision Status) (*Account, error) {
	if decision != StatusApproved && decision != StatusRejected {
		return nil, fmt.Errorf("%w: decision must be approved or rejected", ErrInvalidInput)
	}
	accounts := s.store.Accounts(ctx)
	target, err := accounts.Find(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.CanDecideRegistration(caller, target); err != nil {
		return nil, err
	}
	if err := accounts.UpdateStatus(ctx, targetID, StatusPending, decision); err != nil {
		return nil, err
	}
	target.Status = decision
	return target, nil
}

// CreateSociety registers a new tenant unit.
func (s *Service) CreateSociety(ctx context.Context, caller Identity, name string) (*Society, error) {
	if err := s.engine.CanCreateSociety(caller); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: society name is required", ErrInvalidInput)
	}
	society := &Society{
		ID:        ids.New(),
		Name:      name,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Societies(ctx).Create(ctx, society); err != nil {
		return nil, err
	}
	return society, nil
}

// ListSocieties returns all societies. Membership is public directory data
// for any authenticated caller.
func (s *Service) ListSocieties(ctx context.Context) ([]*Society, error) {
	return s.store.Societies(ctx).List(ctx)
}

// RequestSocietyChange records an athlete's migration request. One pending
// request per athlete: a second one is a conflict.
func (s *Service) RequestSocietyChange(ctx context.Context, caller Identity, newSocietyID string) (*SocietyChangeRequest, error) {
	if caller.Role != RoleAthlete {
		return nil, fmt.Errorf("%w: only athletes request society changes", ErrForbidden)
	}
	newSocietyID = strings.TrimSpace(newSocietyID)
	if newSocietyID == "" {
		return nil, fmt.Errorf("%w: new_society_id is required", ErrInvalidInput)
	}
	society, err := s.store.Societies(ctx).Find(ctx, newSocietyID)
	if err != nil {
		return nil, err
	}
	account, err := s.store.Accounts(ctx).Find(ctx, caller.AccountID)
	if err != nil {
		return nil, err
	}
	changes := s.store.SocietyChanges(ctx)
	pending, err := changes.HasPending(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, fmt.Errorf("%w: a pending society change already exists", ErrConflict)
	}
	req := &SocietyChangeRequest{
		ID:             ids.New(),
		AthleteID:      account.ID,
		AthleteName:    account.Name,
		OldSocietyID:   account.PrimarySociety(),
		NewSocietyID:   society.ID,
		NewSocietyName: society.Name,
		Status:         StatusPending,
		CreatedAt:      s.now().UTC(),
	}
	if err := changes.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ListSocietyChanges returns change requests within the caller's scope,
// optionally narrowed by status.
func (s *Service) ListSocietyChanges(ctx context.Context, caller Identity, status *Status) ([]*SocietyChangeRequest, error) {
	filter := SocietyChangeFilter{Status: status}
	switch caller.Role {
	case RoleSuperAdmin:
	case RoleCoach:
		if len(caller.SocietyIDs) == 0 {
			return nil, nil
		}
		filter.NewSocietyIDs = caller.SocietyIDs
	default:
		filter.AthleteID = caller.AccountID
	}
	return s.store.SocietyChanges(ctx).List(ctx, filter)
}

// ApproveSocietyChange applies a pending migration: the request becomes
// approved and the athlete's memberships are replaced with the single target
// society. Migration is exclusive, not additive.
func (s *Service) ApproveSocietyChange(ctx context.Context, caller Identity, requestID string) (*SocietyChangeRequest, error) {
	req, err := s.store.SocietyChanges(ctx).Find(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.CanApproveSocietyChange(caller, req); err != nil {
		return nil, err
	}
	return s.store.ApplySocietyChange(ctx, requestID)
}

// SetDesignatedCoach grants (or clears, with an empty coachID) the
// one-directional visibility grant on the target account.
func (s *Service) SetDesignatedCoach(ctx context.Context, caller Identity, targetID, coachID string) (*Account, error) {
	accounts := s.store.Accounts(ctx)
	target, err := accounts.Find(ctx, targetID)
	if err != nil {
		return nil, err
	}
	var designated *Account
	if coachID != "" {
		designated, err = accounts.Find(ctx, coachID)
		if err != nil {
			return nil, err
		}
	}
	if err := s.engine.CanSetDesignatedCoach(caller, target, designated); err != nil {
		return nil, err
	}
	if err := accounts.SetDesignatedCoach(ctx, targetID, coachID); err != nil {
		return nil, err
	}
	target.DesignatedCoachID = coachID
	return target, nil
}

// RecomputeCategories re-derives the category projection for every account
// with a known birth year and reports how many stored values changed. A
// second run against unchanged inputs reports zero.
func (s *Service) RecomputeCategories(ctx context.Context, caller Identity) (int, error) {
	if caller.Role != RoleSuperAdmin {
		return 0, fmt.Errorf("%w: only super admins recompute categories", ErrForbidden)
	}
	accounts := s.store.Accounts(ctx)
	all, err := accounts.List(ctx, AccountFilter{})
	if err != nil {
		return 0, err
	}
	year := s.now().UTC().Year()
	changed := 0
	for _, a := range all {
		if a.BirthYear == nil {
			continue
		}
		want := Category(*a.BirthYear, year)
		if want == a.Category {
			continue
		}
		if err := accounts.UpdateCategory(ctx, a.ID, want); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// refreshCategory recomputes the cached category projection on read; the
// stored value may be stale across a year boundary.
func (s *Service) refreshCategory(a *Account) {
	if a.BirthYear != nil {
		a.Category = Category(*a.BirthYear, s.now().UTC().Year())
	}
}

func dedupeIDs(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	var result []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
