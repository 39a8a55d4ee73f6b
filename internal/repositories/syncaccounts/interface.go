package syncaccounts

import (
	"context"

	"github.com/phoenixotp/phoenix/internal/models"
)

// Repository manages the singleton remote-endpoint row. Get returns a
// zero-ID SyncAccount when none is configured; callers check Configured().
type Repository interface {
	Get(ctx context.Context) (*models.SyncAccount, error)
	Create(ctx context.Context, username, password, url string) (*models.SyncAccount, error)
	Update(ctx context.Context, s *models.SyncAccount) error
	Delete(ctx context.Context, id int64) error
}
