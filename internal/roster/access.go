package roster

import "fmt"

// Engine decides, for a caller identity and a target, whether an operation
// is permitted and which query scope applies. Visibility is set-intersection
// over society membership: accounts can belong to several societies, so a
// single-id comparison would under- or over-share data.
type Engine struct{}

// NewEngine constructs the fixed rule set.
func NewEngine() *Engine {
	return &Engine{}
}

// AccountScope is a query-scoping predicate for account listings.
type AccountScope struct {
	All        bool
	SocietyIDs []string
}

// AccountListScope returns the listing scope for the caller, or ErrForbidden
// when the caller may not list accounts at all.
func (e *Engine) AccountListScope(caller Identity) (AccountScope, error) {
	switch caller.Role {
	case RoleSuperAdmin:
		return AccountScope{All: true}, nil
	case RoleCoach:
		return AccountScope{SocietyIDs: caller.SocietyIDs}, nil
	default:
		return AccountScope{}, fmt.Errorf("%w: role %s may not list accounts", ErrForbidden, caller.Role)
	}
}

// TestScope is a query-scoping predicate for performance-test listings.
// When All is false exactly one of OwnOnly or the coach fields applies:
// coaches see tests of subjects in the society intersection, their own
// tests, and tests of subjects whose designated coach they are.
type TestScope struct {
	All        bool
	OwnOnly    bool
	SocietyIDs []string
}

// TestListScope returns the test visibility scope for the caller.
func (e *Engine) TestListScope(caller Identity) TestScope {
	switch caller.Role {
	case RoleSuperAdmin:
		return TestScope{All: true}
	case RoleCoach:
		return TestScope{SocietyIDs: caller.SocietyIDs}
	default:
		return TestScope{OwnOnly: true}
	}
}

// CanCreateTest permits recording a test for subject: the subject itself,
// any super admin, or a coach sharing at least one society with the subject.
func (e *Engine) CanCreateTest(caller Identity, subject *Account) error {
	if caller.AccountID == subject.ID || caller.Role == RoleSuperAdmin {
		return nil
	}
	if caller.Role == RoleCoach && Intersects(caller.SocietyIDs, subject.SocietyIDs) {
		return nil
	}
	return fmt.Errorf("%w: cannot record tests for this subject", ErrForbidden)
}

// CanDecideRegistration permits approving or rejecting a pending account.
// Super admins act on anyone; coaches only on athlete or coach registrations
// whose declared societies intersect their own.
func (e *Engine) CanDecideRegistration(caller Identity, target *Account) error {
	switch caller.Role {
	case RoleSuperAdmin:
		return nil
	case RoleCoach:
		if target.Role != RoleAthlete && target.Role != RoleCoach {
			return fmt.Errorf("%w: coaches cannot decide %s registrations", ErrForbidden, target.Role)
		}
		if !Intersects(caller.SocietyIDs, target.SocietyIDs) {
			return fmt.Errorf("%w: registration outside caller societies", ErrForbidden)
		}
		return nil
	default:
		return fmt.Errorf("%w: role %s may not decide registrations", ErrForbidden, caller.Role)
	}
}

// CanCreateSociety restricts society creation to super admins.
func (e *Engine) CanCreateSociety(caller Identity) error {
	if caller.Role != RoleSuperAdmin {
		return fmt.Errorf("%w: only super admins create societies", ErrForbidden)
	}
	return nil
}

// CanSetDesignatedCoach permits granting coach visibility: super admin only,
// the target must be a coach or super admin, and the designated party (when
// set) must itself be a coach.
func (e *Engine) CanSetDesignatedCoach(caller Identity, target, designated *Account) error {
	if caller.Role != RoleSuperAdmin {
		return fmt.Errorf("%w: only super admins set designated coaches", ErrForbidden)
	}
	if target.Role != RoleCoach && target.Role != RoleSuperAdmin {
		return fmt.Errorf("%w: designated coach applies to coach or super admin accounts", ErrInvalidInput)
	}
	if designated != nil && designated.Role != RoleCoach {
		return fmt.Errorf("%w: designated party must be a coach", ErrInvalidInput)
	}
	return nil
}

// CanApproveSocietyChange permits approval by a super admin or by a coach
// with visibility over the request's target society.
func (e *Engine) CanApproveSocietyChange(caller Identity, req *SocietyChangeRequest) error {
	if caller.Role == RoleSuperAdmin {
		return nil
	}
	if caller.Role == RoleCoach && Intersects(caller.SocietyIDs, []string{req.NewSocietyID}) {
		return nil
	}
	return fmt.Errorf("%w: no visibility over the target society", ErrForbidden)
}

// CanViewAccount permits point lookups: self, super admin, or a coach with
// a membership intersection.
func (e *Engine) CanViewAccount(caller Identity, target *Account) error {
	if caller.AccountID == target.ID || caller.Role == RoleSuperAdmin {
		return nil
	}
	if caller.Role == RoleCoach && Intersects(caller.SocietyIDs, target.SocietyIDs) {
		return nil
	}
	return fmt.Errorf("%w: account not visible", ErrForbidden)
}

// CanViewStats permits reading a subject's aggregated history: self, super
// admin, a coach with a membership intersection, or the subject's designated
// coach (a one-directional grant to the designated party).
func (e *Engine) CanViewStats(caller Identity, subject *Account) error {
	if caller.AccountID == subject.ID || caller.Role == RoleSuperAdmin {
		return nil
	}
	if caller.Role == RoleCoach {
		if Intersects(caller.SocietyIDs, subject.SocietyIDs) {
			return nil
		}
		if subject.DesignatedCoachID != "" && subject.DesignatedCoachID == caller.AccountID {
			return nil
		}
	}
	return fmt.Errorf("%w: statistics not visible", ErrForbidden)
}

// Intersects reports whether two membership sets share at least one society.
func Intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
