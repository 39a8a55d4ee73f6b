package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/phoenixotp/phoenix/internal/common"
	"github.com/phoenixotp/phoenix/internal/dbx"
	"github.com/phoenixotp/phoenix/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const accountColumns = `id, name, secret, totp_step, otp_digits, colour, totp_algorithm,
	external_id, external_last_updated, external_hash, deleted_at`

func scanAccount(scan func(dest ...any) error) (*models.Account, error) {
	var a models.Account
	var algorithm sql.NullString
	var externalID, externalLastUpdated, deletedAt sql.NullInt64
	var externalHash sql.NullString

	err := scan(&a.ID, &a.Name, &a.Secret, &a.TotpStep, &a.OtpDigits, &a.Colour,
		&algorithm, &externalID, &externalLastUpdated, &externalHash, &deletedAt)
	if err != nil {
		return nil, err
	}

	if algorithm.Valid {
		a.Algorithm = models.ParseAlgorithm(algorithm.String)
	}
	if externalID.Valid {
		a.ExternalID = &externalID.Int64
	}
	if externalLastUpdated.Valid {
		a.ExternalLastUpdated = &externalLastUpdated.Int64
	}
	if externalHash.Valid {
		a.ExternalHash = &externalHash.String
	}
	if deletedAt.Valid {
		a.DeletedAt = &deletedAt.Int64
	}

	return &a, nil
}

func (r *SQLiteRepository) queryAccounts(ctx context.Context, query string, args ...any) ([]models.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select accounts: %w", err)
	}
	defer rows.Close()

	var result []models.Account
	for rows.Next() {
		a, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) ListActive(ctx context.Context, filter string) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE name LIKE ? AND deleted_at IS NULL ORDER BY name ASC`
	return r.queryAccounts(ctx, query, "%"+filter+"%")
}

func (r *SQLiteRepository) ListUnlinked(ctx context.Context) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE external_id IS NULL AND deleted_at IS NULL ORDER BY name ASC`
	return r.queryAccounts(ctx, query)
}

func (r *SQLiteRepository) ListSoftDeleted(ctx context.Context) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE deleted_at IS NOT NULL`
	return r.queryAccounts(ctx, query)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) FindByExternalID(ctx context.Context, externalID int64) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE external_id = ?`, externalID)
	a, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by external id: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) NameExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE name = ? AND deleted_at IS NULL`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check account name: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, a *models.Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	query := `INSERT INTO accounts (id, name, secret, totp_step, otp_digits, colour, totp_algorithm)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Name, a.Secret, a.TotpStep, a.OtpDigits, a.Colour, nullAlgorithm(a.Algorithm))
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, a *models.Account) error {
	query := `UPDATE accounts SET name = ?, secret = ?, totp_step = ?, otp_digits = ?,
		colour = ?, totp_algorithm = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		a.Name, a.Secret, a.TotpStep, a.OtpDigits, a.Colour, nullAlgorithm(a.Algorithm), a.ID)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string, deletedAt int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, deletedAt, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete account: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) HardDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) SetRemoteLink(ctx context.Context, id string, externalID int64, updatedAt int64, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET external_id = ?, external_last_updated = ?, external_hash = ? WHERE id = ?`,
		externalID, updatedAt, hash, id)
	if err != nil {
		return fmt.Errorf("failed to set remote link: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) PruneMissingExternalIDs(ctx context.Context, keep []int64) (int64, error) {
	query := `DELETE FROM accounts WHERE external_id IS NOT NULL AND deleted_at IS NULL`
	args := make([]any, 0, len(keep))

	if len(keep) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keep)), ",")
		query += ` AND external_id NOT IN (` + placeholders + `)`
		for _, id := range keep {
			args = append(args, id)
		}
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune accounts: %w", err)
	}
	return res.RowsAffected()
}

func nullAlgorithm(a models.Algorithm) any {
	if s := a.String(); s != "" {
		return s
	}
	return nil
}

func expectOneRow(res sql.Result) error {
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}
