package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/phoenixotp/phoenix/internal/common"
	"github.com/phoenixotp/phoenix/internal/cryptox"
	"github.com/phoenixotp/phoenix/internal/logging"
	"github.com/phoenixotp/phoenix/internal/models"
	"github.com/phoenixotp/phoenix/internal/repositories/accounts"
	"github.com/phoenixotp/phoenix/internal/repositories/syncaccounts"
	"github.com/phoenixotp/phoenix/internal/repositories/synclogs"
	syncengine "github.com/phoenixotp/phoenix/internal/sync"
)

// SyncService owns the remote endpoint configuration and runs sync passes.
// A pass holds a lock for its duration; a second trigger while one is
// running fails fast with common.ErrSyncInProgress instead of queueing.
type SyncService interface {
	// Endpoint returns the configured endpoint, or common.ErrNoSyncConfigured.
	// The stored password stays encrypted.
	Endpoint(ctx context.Context) (*models.SyncAccount, error)

	// Configure stores (or replaces) the remote endpoint.
	Configure(ctx context.Context, username, password, url string) error

	// Remove deletes the endpoint configuration. Local accounts are kept.
	Remove(ctx context.Context) error

	// Sync runs one reconciliation pass against the configured endpoint.
	Sync(ctx context.Context) error

	// RecentLogs returns the latest sync failure entries, newest first.
	RecentLogs(ctx context.Context) ([]models.SyncLog, error)
}

type syncService struct {
	db     *sql.DB
	cipher *cryptox.Cipher
	syncer *syncengine.Syncer
	logger logging.Logger

	mu sync.Mutex

	// token holds the bearer token from the last successful pass so the
	// next pass can skip the login round trip until the token expires.
	tokenMu sync.Mutex
	token   string
}

func NewSyncService(db *sql.DB, cipher *cryptox.Cipher, client syncengine.Client, logger logging.Logger) SyncService {
	s := &syncService{db: db, cipher: cipher, logger: logger}
	s.syncer = syncengine.NewSyncer(
		accounts.NewSQLiteRepository(db),
		synclogs.NewSQLiteRepository(db),
		client,
		cipher,
		logger,
	)
	return s
}

func (s *syncService) getEndpointRepo() syncaccounts.Repository {
	return syncaccounts.NewSQLiteRepository(s.db)
}

func (s *syncService) Endpoint(ctx context.Context) (*models.SyncAccount, error) {
	endpoint, err := s.getEndpointRepo().Get(ctx)
	if err != nil {
		return nil, err
	}
	if !endpoint.Configured() {
		return nil, common.ErrNoSyncConfigured
	}
	return endpoint, nil
}

func (s *syncService) Configure(ctx context.Context, username, password, url string) error {
	encrypted, err := s.cipher.EncryptString(password)
	if err != nil {
		return fmt.Errorf("failed to encrypt password: %w", err)
	}

	repo := s.getEndpointRepo()
	existing, err := repo.Get(ctx)
	if err != nil {
		return err
	}

	s.setToken("")

	if existing.Configured() {
		existing.Username = username
		existing.Password = encrypted
		existing.URL = url
		return repo.Update(ctx, existing)
	}

	_, err = repo.Create(ctx, username, encrypted, url)
	return err
}

func (s *syncService) Remove(ctx context.Context) error {
	repo := s.getEndpointRepo()
	endpoint, err := repo.Get(ctx)
	if err != nil {
		return err
	}
	if !endpoint.Configured() {
		return common.ErrNoSyncConfigured
	}

	s.setToken("")
	return repo.Delete(ctx, endpoint.ID)
}

func (s *syncService) Sync(ctx context.Context) error {
	if !s.mu.TryLock() {
		return common.ErrSyncInProgress
	}
	defer s.mu.Unlock()

	endpoint, err := s.Endpoint(ctx)
	if err != nil {
		return err
	}

	// the wire client needs the plaintext password for login
	password, err := s.cipher.DecryptString(endpoint.Password)
	if err != nil {
		return fmt.Errorf("failed to decrypt endpoint password: %w", err)
	}
	endpoint.Password = password
	endpoint.Token = s.heldToken()

	if err := s.syncer.Run(ctx, endpoint); err != nil {
		// a failed pass may mean the held token was rejected, so the
		// next pass logs in from scratch
		s.setToken("")
		return err
	}

	s.setToken(endpoint.Token)
	return nil
}

func (s *syncService) heldToken() string {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()
	return s.token
}

func (s *syncService) setToken(token string) {
	s.tokenMu.Lock()
	s.token = token
	s.tokenMu.Unlock()
}

func (s *syncService) RecentLogs(ctx context.Context) ([]models.SyncLog, error) {
	return synclogs.NewSQLiteRepository(s.db).Recent(ctx, synclogs.DefaultWindow)
}
