package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"rowhub.org/internal/auth"
)

var errResetTokenNotFound = errors.New("pg: reset token not found")

var _ auth.ResetTokenStore = (*ResetTokenStore)(nil)

// ResetTokenStore persists password recovery tokens on the shared pool.
type ResetTokenStore struct {
	store *Store
}

// ResetTokens returns the recovery-token repository.
func (s *Store) ResetTokens() *ResetTokenStore { return &ResetTokenStore{store: s} }

func (r *ResetTokenStore) Create(ctx context.Context, t *auth.ResetToken) error {
	_, err := r.store.db.ExecContext(ctx, `
		insert into reset_tokens (id, account_id, token_hash, expires_at, consumed, created_at)
		values ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.AccountID, t.TokenHash, t.ExpiresAt, t.Consumed, t.CreatedAt)
	return err
}

func (r *ResetTokenStore) Find(ctx context.Context, id string) (*auth.ResetToken, error) {
	t := &auth.ResetToken{}
	err := r.store.db.QueryRowContext(ctx, `
		select id, account_id, token_hash, expires_at, consumed, created_at
		from reset_tokens where id = $1
	`, id).Scan(&t.ID, &t.AccountID, &t.TokenHash, &t.ExpiresAt, &t.Consumed, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errResetTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *ResetTokenStore) MarkConsumed(ctx context.Context, id string) error {
	res, err := r.store.db.ExecContext(ctx, `
		update reset_tokens set consumed = true where id = $1 and not consumed
	`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errResetTokenNotFound
	}
	return nil
}

func (r *ResetTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.store.db.ExecContext(ctx, `
		delete from reset_tokens where expires_at < $1 or consumed
	`, now)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
