package synclogs

import (
	"context"

	"github.com/phoenixotp/phoenix/internal/models"
)

// Repository is the append-only sync diagnostics sink. Older entries stay in
// storage but are never surfaced beyond the Recent window.
type Repository interface {
	// Record appends one entry stamped with the current time.
	Record(ctx context.Context, message string, kind models.SyncLogKind) error

	// Recent returns the most recent entries, newest first.
	Recent(ctx context.Context, limit int) ([]models.SyncLog, error)
}
