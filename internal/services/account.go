// Package services contains the application services behind the Phoenix CLI:
// account management, code generation, sync endpoint configuration and the
// sync trigger itself.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/phoenixotp/phoenix/internal/common"
	"github.com/phoenixotp/phoenix/internal/cryptox"
	"github.com/phoenixotp/phoenix/internal/dbx"
	"github.com/phoenixotp/phoenix/internal/models"
	"github.com/phoenixotp/phoenix/internal/otp"
	"github.com/phoenixotp/phoenix/internal/otpurl"
	"github.com/phoenixotp/phoenix/internal/repositories/accounts"
	"github.com/phoenixotp/phoenix/internal/repositories/syncaccounts"
)

// AccountParams carries the user-editable fields of an account. The secret
// arrives in plaintext and is encrypted before it touches storage.
type AccountParams struct {
	Name      string
	Secret    string
	TotpStep  int
	OtpDigits int
	Colour    string
	Algorithm models.Algorithm
}

// Code is one generated one-time password together with how long it stays
// valid.
type Code struct {
	Value       string
	SecondsLeft int
}

// AccountService defines the account operations available to the CLI.
//
// All methods must honor context cancellation/timeouts.
type AccountService interface {
	List(ctx context.Context, filter string) ([]models.Account, error)
	Get(ctx context.Context, id string) (*models.Account, error)
	Create(ctx context.Context, params AccountParams) (*models.Account, error)
	Edit(ctx context.Context, id string, params AccountParams) error
	Delete(ctx context.Context, id string) error
	GenerateCode(ctx context.Context, id string) (*Code, error)
	ImportURL(ctx context.Context, rawURL string) (*models.Account, error)
	ExportURL(ctx context.Context, id string) (string, error)
}

type accountService struct {
	db     *sql.DB
	cipher *cryptox.Cipher

	// now is a test seam for code generation.
	now func() time.Time
}

func NewAccountService(db *sql.DB, cipher *cryptox.Cipher) AccountService {
	return &accountService{db: db, cipher: cipher, now: time.Now}
}

func (s *accountService) getAccountRepo() accounts.Repository {
	return accounts.NewSQLiteRepository(s.db)
}

func (s *accountService) List(ctx context.Context, filter string) ([]models.Account, error) {
	return s.getAccountRepo().ListActive(ctx, filter)
}

// Get returns a live account. Tombstones awaiting sync are treated as gone.
func (s *accountService) Get(ctx context.Context, id string) (*models.Account, error) {
	a, err := s.getAccountRepo().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.DeletedAt != nil {
		return nil, common.ErrNotFound
	}
	return a, nil
}

// Create validates the secret and the name, encrypts the secret and stores
// a new account. Unset step and digits fall back to the TOTP defaults.
func (s *accountService) Create(ctx context.Context, params AccountParams) (*models.Account, error) {
	if !otp.ValidSecret(params.Secret) {
		return nil, common.ErrInvalidSecret
	}

	repo := s.getAccountRepo()
	exists, err := repo.NameExists(ctx, params.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check name: %w", err)
	}
	if exists {
		return nil, common.ErrAccountExists
	}

	secret, err := s.cipher.EncryptString(params.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secret: %w", err)
	}

	a := &models.Account{
		Name:      params.Name,
		Secret:    secret,
		TotpStep:  params.TotpStep,
		OtpDigits: params.OtpDigits,
		Colour:    params.Colour,
		Algorithm: params.Algorithm,
	}
	if a.TotpStep <= 0 {
		a.TotpStep = otp.DefaultStep
	}
	if a.OtpDigits <= 0 {
		a.OtpDigits = otp.DefaultDigits
	}

	if err := repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return a, nil
}

// Edit replaces the content fields of an existing account. An empty secret
// keeps the stored one; anything else is validated and re-encrypted. The
// remote link is untouched, so the next sync pushes the edit.
func (s *accountService) Edit(ctx context.Context, id string, params AccountParams) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	repo := s.getAccountRepo()

	if params.Secret != "" {
		if !otp.ValidSecret(params.Secret) {
			return common.ErrInvalidSecret
		}
		secret, err := s.cipher.EncryptString(params.Secret)
		if err != nil {
			return fmt.Errorf("failed to encrypt secret: %w", err)
		}
		a.Secret = secret
	}

	if params.Name != "" && params.Name != a.Name {
		exists, err := repo.NameExists(ctx, params.Name)
		if err != nil {
			return fmt.Errorf("failed to check name: %w", err)
		}
		if exists {
			return common.ErrAccountExists
		}
		a.Name = params.Name
	}

	if params.TotpStep > 0 {
		a.TotpStep = params.TotpStep
	}
	if params.OtpDigits > 0 {
		a.OtpDigits = params.OtpDigits
	}
	if params.Colour != "" {
		a.Colour = params.Colour
	}
	a.Algorithm = params.Algorithm

	return repo.Update(ctx, a)
}

// Delete removes an account. With a sync endpoint configured the row becomes
// a tombstone so the next pass propagates the deletion; without one, or when
// the row is already a tombstone, it is removed outright.
func (s *accountService) Delete(ctx context.Context, id string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := accounts.NewSQLiteRepository(tx)
		a, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if a.DeletedAt != nil {
			return repo.HardDelete(ctx, id)
		}

		endpoint, err := syncaccounts.NewSQLiteRepository(tx).Get(ctx)
		if err != nil {
			return err
		}
		if endpoint.Configured() {
			return repo.SoftDelete(ctx, id, s.now().Unix())
		}
		return repo.HardDelete(ctx, id)
	})
}

// GenerateCode produces the current TOTP code for the account along with
// the seconds remaining in its time step.
func (s *accountService) GenerateCode(ctx context.Context, id string) (*Code, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	secret, err := s.cipher.DecryptString(a.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt secret: %w", err)
	}

	now := s.now()
	code, err := otp.GenerateTOTP(secret, a.OtpDigits, a.TotpStep, a.Algorithm, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	return &Code{
		Value:       code,
		SecondsLeft: a.TotpStep - int(now.Unix()%int64(a.TotpStep)),
	}, nil
}

// ImportURL creates an account from an otpauth:// URL.
func (s *accountService) ImportURL(ctx context.Context, rawURL string) (*models.Account, error) {
	if !otpurl.Valid(rawURL) {
		return nil, common.ErrInvalidURL
	}
	parsed := otpurl.Parse(rawURL)

	return s.Create(ctx, AccountParams{
		Name:      parsed.Name,
		Secret:    parsed.Secret,
		TotpStep:  parsed.Step,
		OtpDigits: parsed.Digits,
		Algorithm: parsed.Algorithm,
	})
}

// ExportURL renders the account as an otpauth:// URL with the secret in
// plaintext, suitable for QR display or migration to another app.
func (s *accountService) ExportURL(ctx context.Context, id string) (string, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	secret, err := s.cipher.DecryptString(a.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt secret: %w", err)
	}

	return otpurl.Export(a.Name, secret, a.TotpStep, a.OtpDigits, a.Algorithm), nil
}
