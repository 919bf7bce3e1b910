package roster

import "context"

// Store describes persistence operations required by the roster subsystem.
type Store interface {
	Accounts(ctx context.Context) AccountStore
	Societies(ctx context.Context) SocietyStore
	SocietyChanges(ctx context.Context) SocietyChangeStore

	// ApplySocietyChange flips the request from pending to approved and
	// replaces the athlete's membership set with the singleton target
	// society, as one atomic step. A non-pending request is ErrConflict.
	ApplySocietyChange(ctx context.Context, requestID string) (*SocietyChangeRequest, error)
}

// AccountFilter narrows account listings. A non-empty SocietyIDs restricts
// results to accounts whose membership set intersects it; DesignatedCoachID
// selects accounts carrying that viewing grant.
type AccountFilter struct {
	Role              *Role
	Status            *Status
	SocietyIDs        []string
	DesignatedCoachID string
}

// AccountStore manages accounts.
type AccountStore interface {
	Create(ctx context.Context, a *Account) error
	Find(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	List(ctx context.Context, filter AccountFilter) ([]*Account, error)
	Count(ctx context.Context) (int, error)

	// UpdateStatus is a guarded compare-and-set: the write applies only
	// while the stored status still equals from, otherwise ErrConflict.
	UpdateStatus(ctx context.Context, id string, from, to Status) error

	ReplaceSocieties(ctx context.Context, id string, societyIDs []string) error
	SetDesignatedCoach(ctx context.Context, id, coachID string) error
	UpdateCategory(ctx context.Context, id, category string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// SocietyStore manages societies.
type SocietyStore interface {
	Create(ctx context.Context, s *Society) error
	Find(ctx context.Context, id string) (*Society, error)
	List(ctx context.Context) ([]*Society, error)
}

// SocietyChangeFilter narrows change-request listings.
type SocietyChangeFilter struct {
	Status        *Status
	AthleteID     string
	NewSocietyIDs []string
}

// SocietyChangeStore manages society migration requests.
type SocietyChangeStore interface {
	Create(ctx context.Context, req *SocietyChangeRequest) error
	Find(ctx context.Context, id string) (*SocietyChangeRequest, error)
	List(ctx context.Context, filter SocietyChangeFilter) ([]*SocietyChangeRequest, error)
	HasPending(ctx context.Context, athleteID string) (bool, error)
}
