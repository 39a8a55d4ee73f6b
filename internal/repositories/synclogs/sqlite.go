package synclogs

import (
	"context"
	"fmt"
	"time"

	"github.com/phoenixotp/phoenix/internal/dbx"
	"github.com/phoenixotp/phoenix/internal/models"
)

// DefaultWindow is how many entries the UI shows.
const DefaultWindow = 10

type SQLiteRepository struct {
	db dbx.DBTX

	// now is a test seam for the entry timestamp.
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Record(ctx context.Context, message string, kind models.SyncLogKind) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_logs (log, log_type, timestamp) VALUES (?, ?, ?)`,
		message, int(kind), r.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert sync log: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]models.SyncLog, error) {
	if limit <= 0 {
		limit = DefaultWindow
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, log, log_type, timestamp FROM sync_logs ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select sync logs: %w", err)
	}
	defer rows.Close()

	var result []models.SyncLog
	for rows.Next() {
		var item models.SyncLog
		var kind int
		if err := rows.Scan(&item.ID, &item.Message, &kind, &item.Timestamp); err != nil {
			return nil, err
		}
		item.Kind = models.SyncLogKind(kind)
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
