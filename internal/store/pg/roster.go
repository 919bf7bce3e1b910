package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"rowhub.org/internal/roster"
)

var _ roster.Store = (*Store)(nil)

func (s *Store) Accounts(ctx context.Context) roster.AccountStore             { return (*pgAccounts)(s) }
func (s *Store) Societies(ctx context.Context) roster.SocietyStore            { return (*pgSocieties)(s) }
func (s *Store) SocietyChanges(ctx context.Context) roster.SocietyChangeStore { return (*pgChanges)(s) }

// ApplySocietyChange flips the request to approved and replaces the
// athlete's memberships in one transaction. The status predicate on the
// update makes the approval a compare-and-set: a concurrent approval loses
// with a conflict instead of double-applying.
func (s *Store) ApplySocietyChange(ctx context.Context, requestID string) (*roster.SocietyChangeRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	req := &roster.SocietyChangeRequest{}
	err = tx.QueryRowContext(ctx, `
		update society_changes
		set status = $1
		where id = $2 and status = $3
		returning id, athlete_id, athlete_name, old_society_id, new_society_id, new_society_name, status, created_at
	`, roster.StatusApproved, requestID, roster.StatusPending).Scan(
		&req.ID, &req.AthleteID, &req.AthleteName, &req.OldSocietyID,
		&req.NewSocietyID, &req.NewSocietyName, &req.Status, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing request from an already decided one.
		var status roster.Status
		probeErr := tx.QueryRowContext(ctx, `select status from society_changes where id = $1`, requestID).Scan(&status)
		if errors.Is(probeErr, sql.ErrNoRows) {
			return nil, roster.ErrNotFound
		}
		if probeErr != nil {
			return nil, probeErr
		}
		return nil, fmt.Errorf("%w: request already %s", roster.ErrConflict, status)
	}
	if err != nil {
		return nil, err
	}

	memberships, err := json.Marshal([]string{req.NewSocietyID})
	if err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx, `
		update accounts set society_ids = $1 where id = $2
	`, memberships, req.AthleteID)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, roster.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return req, nil
}

// Account store -------------------------------------------------------------

type pgAccounts Store

const accountColumns = `
	id, email, password_hash, name, role, status, society_ids,
	birth_year, category, weight, height, designated_coach_id, created_at`

func (s *pgAccounts) Create(ctx context.Context, a *roster.Account) error {
	memberships, err := json.Marshal(nonNilIDs(a.SocietyIDs))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into accounts (id, email, password_hash, name, role, status, society_ids,
			birth_year, category, weight, height, designated_coach_id, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, a.ID, a.Email, a.PasswordHash, a.Name, a.Role, a.Status, memberships,
		a.BirthYear, a.Category, a.Weight, a.Height, a.DesignatedCoachID, a.CreatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return fmt.Errorf("%w: email already registered", roster.ErrConflict)
	}
	return err
}

func (s *pgAccounts) Find(ctx context.Context, id string) (*roster.Account, error) {
	row := s.db.QueryRowContext(ctx, `select`+accountColumns+` from accounts where id = $1`, id)
	return scanAccount(row)
}

func (s *pgAccounts) FindByEmail(ctx context.Context, email string) (*roster.Account, error) {
	row := s.db.QueryRowContext(ctx, `select`+accountColumns+` from accounts where email = $1`, email)
	return scanAccount(row)
}

func (s *pgAccounts) List(ctx context.Context, filter roster.AccountFilter) ([]*roster.Account, error) {
	query := `select` + accountColumns + ` from accounts where 1=1`
	var args []any
	if filter.Role != nil {
		args = append(args, *filter.Role)
		query += fmt.Sprintf(" and role = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" and status = $%d", len(args))
	}
	if len(filter.SocietyIDs) > 0 {
		args = append(args, filter.SocietyIDs)
		query += fmt.Sprintf(" and society_ids ?| $%d", len(args))
	}
	if filter.DesignatedCoachID != "" {
		args = append(args, filter.DesignatedCoachID)
		query += fmt.Sprintf(" and designated_coach_id = $%d", len(args))
	}
	query += " order by created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*roster.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *pgAccounts) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `select count(*) from accounts`).Scan(&n)
	return n, err
}

func (s *pgAccounts) UpdateStatus(ctx context.Context, id string, from, to roster.Status) error {
	res, err := s.db.ExecContext(ctx, `
		update accounts set status = $1 where id = $2 and status = $3
	`, to, id, from)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var current roster.Status
		err := s.db.QueryRowContext(ctx, `select status from accounts where id = $1`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return roster.ErrNotFound
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: account already %s", roster.ErrConflict, current)
	}
	return nil
}

func (s *pgAccounts) ReplaceSocieties(ctx context.Context, id string, societyIDs []string) error {
	memberships, err := json.Marshal(nonNilIDs(societyIDs))
	if err != nil {
		return err
	}
	return s.updateOne(ctx, `update accounts set society_ids = $1 where id = $2`, memberships, id)
}

func (s *pgAccounts) SetDesignatedCoach(ctx context.Context, id, coachID string) error {
	return s.updateOne(ctx, `update accounts set designated_coach_id = $1 where id = $2`, coachID, id)
}

func (s *pgAccounts) UpdateCategory(ctx context.Context, id, category string) error {
	return s.updateOne(ctx, `update accounts set category = $1 where id = $2`, category, id)
}

func (s *pgAccounts) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.updateOne(ctx, `update accounts set password_hash = $1 where id = $2`, passwordHash, id)
}

func (s *pgAccounts) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return roster.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*roster.Account, error) {
	a := &roster.Account{}
	var memberships []byte
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.Role, &a.Status,
		&memberships, &a.BirthYear, &a.Category, &a.Weight, &a.Height,
		&a.DesignatedCoachID, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, roster.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(memberships) > 0 {
		if err := json.Unmarshal(memberships, &a.SocietyIDs); err != nil {
			return nil, fmt.Errorf("decode society_ids: %w", err)
		}
	}
	return a, nil
}

// nonNilIDs keeps the jsonb column a [] rather than null for empty sets.
func nonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// Society store --------------------------------------------------------------

type pgSocieties Store

func (s *pgSocieties) Create(ctx context.Context, society *roster.Society) error {
	_, err := s.db.ExecContext(ctx, `
		insert into societies (id, name, created_at) values ($1, $2, $3)
	`, society.ID, society.Name, society.CreatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return fmt.Errorf("%w: society already exists", roster.ErrConflict)
	}
	return err
}

func (s *pgSocieties) Find(ctx context.Context, id string) (*roster.Society, error) {
	society := &roster.Society{}
	err := s.db.QueryRowContext(ctx, `
		select id, name, created_at from societies where id = $1
	`, id).Scan(&society.ID, &society.Name, &society.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, roster.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return society, nil
}

func (s *pgSocieties) List(ctx context.Context) ([]*roster.Society, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, created_at from societies order by created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*roster.Society
	for rows.Next() {
		society := &roster.Society{}
		if err := rows.Scan(&society.ID, &society.Name, &society.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, society)
	}
	return result, rows.Err()
}

// Society change store -------------------------------------------------------

type pgChanges Store

const changeColumns = `
	id, athlete_id, athlete_name, old_society_id, new_society_id, new_society_name, status, created_at`

func (s *pgChanges) Create(ctx context.Context, req *roster.SocietyChangeRequest) error {
	_, err := s.db.ExecContext(ctx, `
		insert into society_changes (id, athlete_id, athlete_name, old_society_id,
			new_society_id, new_society_name, status, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, req.ID, req.AthleteID, req.AthleteName, req.OldSocietyID,
		req.NewSocietyID, req.NewSocietyName, req.Status, req.CreatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return fmt.Errorf("%w: request already exists", roster.ErrConflict)
	}
	return err
}

func (s *pgChanges) Find(ctx context.Context, id string) (*roster.SocietyChangeRequest, error) {
	req := &roster.SocietyChangeRequest{}
	err := s.db.QueryRowContext(ctx, `select`+changeColumns+` from society_changes where id = $1`, id).Scan(
		&req.ID, &req.AthleteID, &req.AthleteName, &req.OldSocietyID,
		&req.NewSocietyID, &req.NewSocietyName, &req.Status, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, roster.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *pgChanges) List(ctx context.Context, filter roster.SocietyChangeFilter) ([]*roster.SocietyChangeRequest, error) {
	query := `select` + changeColumns + ` from society_changes where 1=1`
	var args []any
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" and status = $%d", len(args))
	}
	if filter.AthleteID != "" {
		args = append(args, filter.AthleteID)
		query += fmt.Sprintf(" and athlete_id = $%d", len(args))
	}
	if len(filter.NewSocietyIDs) > 0 {
		args = append(args, filter.NewSocietyIDs)
		query += fmt.Sprintf(" and new_society_id = any($%d)", len(args))
	}
	query += " order by created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*roster.SocietyChangeRequest
	for rows.Next() {
		req := &roster.SocietyChangeRequest{}
		if err := rows.Scan(&req.ID, &req.AthleteID, &req.AthleteName, &req.OldSocietyID,
			&req.NewSocietyID, &req.NewSocietyName, &req.Status, &req.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

func (s *pgChanges) HasPending(ctx context.Context, athleteID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists(select 1 from society_changes where athlete_id = $1 and status = $2)
	`, athleteID, roster.StatusPending).Scan(&exists)
	return exists, err
}
