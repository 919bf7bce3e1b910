package perf

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rowhub.org/internal/ids"
	"rowhub.org/internal/roster"
)

// Service records and queries performance tests. Visibility decisions are
// delegated to the shared access engine; subject data is resolved through the
// roster store so listings follow current memberships, not stale snapshots.
type Service struct {
	tests  Store
	roster roster.Store
	engine *roster.Engine
	now    func() time.Time
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

// NewService constructs a Service.
func NewService(tests Store, rosterStore roster.Store, engine *roster.Engine, opts ...ServiceOption) *Service {
	s := &Service{
		tests:  tests,
		roster: rosterStore,
		engine: engine,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TestInput carries client input for a new test. Derived metrics are never
// part of the input; they are recomputed here on every create.
type TestInput struct {
	SubjectID   string   `json:"subject_id"`
	Date        string   `json:"date"`
	Distance    float64  `json:"distance"`
	TimeSeconds float64  `json:"time_seconds"`
	Strokes     *int     `json:"strokes,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
	Height      *float64 `json:"height,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// Create validates input, checks the caller may record for the subject,
// computes the derived metrics and persists the test. Weight and height fall
// back to the subject's profile values when not supplied with the test.
func (s *Service) Create(ctx context.Context, caller roster.Identity, input TestInput) (*Test, error) {
	input.SubjectID = strings.TrimSpace(input.SubjectID)
	if input.SubjectID == "" {
		input.SubjectID = caller.AccountID
	}
	if input.Distance <= 0 {
		return nil, fmt.Errorf("%w: distance must be positive", roster.ErrInvalidInput)
	}
	if input.TimeSeconds <= 0 {
		return nil, fmt.Errorf("%w: time_seconds must be positive", roster.ErrInvalidInput)
	}
	input.Date = strings.TrimSpace(input.Date)
	if input.Date == "" {
		return nil, fmt.Errorf("%w: date is required", roster.ErrInvalidInput)
	}
	if _, err := time.Parse("2006-01-02", input.Date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", roster.ErrInvalidInput)
	}

	subject, err := s.roster.Accounts(ctx).Find(ctx, input.SubjectID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.CanCreateTest(caller, subject); err != nil {
		return nil, err
	}

	weight := input.Weight
	if weight == nil {
		weight = subject.Weight
	}
	height := input.Height
	if height == nil {
		height = subject.Height
	}

	split := Split500(input.Distance, input.TimeSeconds)
	watts := Watts(split)
	var perKg *float64
	if weight != nil {
		perKg = WattsPerKg(watts, *weight)
	}

	test := &Test{
		ID:          ids.New(),
		SubjectID:   subject.ID,
		SubjectName: subject.Name,
		SocietyID:   subject.PrimarySociety(),
		Date:        input.Date,
		Distance:    input.Distance,
		TimeSeconds: input.TimeSeconds,
		Split500:    split,
		Watts:       watts,
		WattsPerKg:  perKg,
		Strokes:     input.Strokes,
		Weight:      weight,
		Height:      height,
		Notes:       strings.TrimSpace(input.Notes),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.tests.Create(ctx, test); err != nil {
		return nil, err
	}
	return test, nil
}

// List returns tests within the caller's visibility scope, newest first. An
// optional subjectID narrows the listing but never widens it: a subject
// filter outside the caller's scope yields an empty result, not an error.
func (s *Service) List(ctx context.Context, caller roster.Identity, subjectID string) ([]*Test, error) {
	scope := s.engine.TestListScope(caller)
	filter := Filter{SubjectID: strings.TrimSpace(subjectID)}
	switch {
	case scope.All:
	case scope.OwnOnly:
		filter.SubjectIDs = []string{caller.AccountID}
	default:
		visible, err := s.visibleSubjects(ctx, caller, scope)
		if err != nil {
			return nil, err
		}
		filter.SubjectIDs = visible
	}
	return s.tests.List(ctx, filter)
}

// Stats aggregates a subject's full test history by distance.
func (s *Service) Stats(ctx context.Context, caller roster.Identity, subjectID string) (*SubjectStats, error) {
	subject, err := s.roster.Accounts(ctx).Find(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.CanViewStats(caller, subject); err != nil {
		return nil, err
	}
	tests, err := s.tests.ListBySubject(ctx, subject.ID)
	if err != nil {
		return nil, err
	}
	return Aggregate(subject.ID, tests), nil
}

// visibleSubjects resolves the subject-id set a coach may see: accounts
// sharing a society, accounts that designated the coach, and the coach
// itself. Returned non-nil even when empty so the filter stays restrictive.
func (s *Service) visibleSubjects(ctx context.Context, caller roster.Identity, scope roster.TestScope) ([]string, error) {
	accounts := s.roster.Accounts(ctx)
	set := map[string]struct{}{caller.AccountID: {}}
	if len(scope.SocietyIDs) > 0 {
		shared, err := accounts.List(ctx, roster.AccountFilter{SocietyIDs: scope.SocietyIDs})
		if err != nil {
			return nil, err
		}
		for _, a := range shared {
			set[a.ID] = struct{}{}
		}
	}
	designated, err := accounts.List(ctx, roster.AccountFilter{DesignatedCoachID: caller.AccountID})
	if err != nil {
		return nil, err
	}
	for _, a := range designated {
		set[a.ID] = struct{}{}
	}
	result := make([]string, 0, len(set))
	for id := range set {
		result = append(result, id)
	}
	return result, nil
}
