package httpapi

import (
	"context"
	"errors"

	"rowhub.org/internal/auth"
	"rowhub.org/internal/roster"
)

// accountDirectory adapts the roster store to the recovery flow's narrow
// lookup interface.
type accountDirectory struct {
	store roster.Store
}

// NewAccountDirectory exposes roster accounts to password recovery.
func NewAccountDirectory(store roster.Store) auth.AccountDirectory {
	return accountDirectory{store: store}
}

func (d accountDirectory) Lookup(ctx context.Context, email string) (auth.AccountRef, bool, error) {
	account, err := d.store.Accounts(ctx).FindByEmail(ctx, email)
	if errors.Is(err, roster.ErrNotFound) {
		return auth.AccountRef{}, false, nil
	}
	if err != nil {
		return auth.AccountRef{}, false, err
	}
	return auth.AccountRef{
		ID:    account.ID,
		Email: account.Email,
		Name:  account.Name,
	}, true, nil
}

func (d accountDirectory) UpdatePassword(ctx context.Context, accountID, passwordHash string) error {
	return d.store.Accounts(ctx).UpdatePassword(ctx, accountID, passwordHash)
}
