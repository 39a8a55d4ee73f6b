package accounts

import (
	"context"

	"github.com/phoenixotp/phoenix/internal/models"
)

// Repository is the local credential store.
//
// Soft-deleted rows (deleted_at set) are tombstones: they are excluded from
// every normal query and surface only through ListSoftDeleted so their
// deletion can be propagated to the remote.
type Repository interface {
	// ListActive returns non-deleted accounts whose name contains filter,
	// ordered by name.
	ListActive(ctx context.Context, filter string) ([]models.Account, error)

	// GetByID returns the full account row, including the encrypted secret.
	// Returns common.ErrNotFound when no such row exists.
	GetByID(ctx context.Context, id string) (*models.Account, error)

	// ListUnlinked returns non-deleted accounts that have never been pushed
	// to the remote (external_id is NULL).
	ListUnlinked(ctx context.Context) ([]models.Account, error)

	// ListSoftDeleted returns all tombstones.
	ListSoftDeleted(ctx context.Context) ([]models.Account, error)

	// FindByExternalID returns the account linked to the given remote id,
	// or common.ErrNotFound.
	FindByExternalID(ctx context.Context, externalID int64) (*models.Account, error)

	// NameExists reports whether a non-deleted account with this name exists.
	NameExists(ctx context.Context, name string) (bool, error)

	// Create inserts a new account. An empty ID is filled with a new uuid.
	Create(ctx context.Context, a *models.Account) error

	// Update replaces the content fields (name, secret, step, digits, colour,
	// algorithm) of an existing row. Remote-link bookkeeping is untouched.
	Update(ctx context.Context, a *models.Account) error

	// SoftDelete marks the row as a tombstone.
	SoftDelete(ctx context.Context, id string, deletedAt int64) error

	// HardDelete removes the row permanently.
	HardDelete(ctx context.Context, id string) error

	// SetRemoteLink records the remote identity, timestamp and hash on a row.
	SetRemoteLink(ctx context.Context, id string, externalID int64, updatedAt int64, hash string) error

	// PruneMissingExternalIDs deletes every linked, non-deleted row whose
	// external_id is not in keep. Returns the number of rows removed.
	PruneMissingExternalIDs(ctx context.Context, keep []int64) (int64, error)
}
