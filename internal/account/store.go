package account

import "context"

// Store persists profiles keyed by id and by unique email.
//
// Create must reject a second record for an email already present with
// ErrAlreadyExists, even when two inserts race; lookups report ErrNotFound.
type Store interface {
	Create(ctx context.Context, p *Profile) error
	Find(ctx context.Context, id string) (*Profile, error)
	FindByEmail(ctx context.Context, email string) (*Profile, error)
}
