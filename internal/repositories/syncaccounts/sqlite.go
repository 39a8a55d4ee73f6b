package syncaccounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/phoenixotp/phoenix/internal/dbx"
	"github.com/phoenixotp/phoenix/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns the first (and only) sync account row, or a zero-value
// SyncAccount when no endpoint is configured.
func (r *SQLiteRepository) Get(ctx context.Context) (*models.SyncAccount, error) {
	var s models.SyncAccount
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password, url FROM sync_accounts LIMIT 1`).
		Scan(&s.ID, &s.Username, &s.Password, &s.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.SyncAccount{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync account: %w", err)
	}
	return &s, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, username, password, url string) (*models.SyncAccount, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_accounts (username, password, url) VALUES (?, ?, ?)`,
		username, password, url)
	if err != nil {
		return nil, fmt.Errorf("failed to insert sync account: %w", err)
	}
	return r.Get(ctx)
}

func (r *SQLiteRepository) Update(ctx context.Context, s *models.SyncAccount) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_accounts SET username = ?, password = ?, url = ? WHERE id = ?`,
		s.Username, s.Password, s.URL, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update sync account: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sync account: %w", err)
	}
	return nil
}
