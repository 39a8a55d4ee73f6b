// Package sync reconciles the local credential store with a remote sync
// server. A pass is one-shot and resumable: every step that can fail for a
// single record logs the failure and moves on, so one bad record never
// blocks the rest.
package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/phoenixotp/phoenix/internal/common"
	"github.com/phoenixotp/phoenix/internal/cryptox"
	"github.com/phoenixotp/phoenix/internal/logging"
	"github.com/phoenixotp/phoenix/internal/models"
	"github.com/phoenixotp/phoenix/internal/repositories/accounts"
	"github.com/phoenixotp/phoenix/internal/repositories/synclogs"
	"github.com/phoenixotp/phoenix/internal/syncapi"
)

// Client is the remote transport the reconciler drives. Implemented by
// syncapi.Client; narrowed to an interface so tests can script the remote.
type Client interface {
	Authenticate(ctx context.Context, endpoint *models.SyncAccount) (string, error)
	FetchManifest(ctx context.Context, endpoint *models.SyncAccount) ([]syncapi.ManifestEntry, error)
	PushRecord(ctx context.Context, endpoint *models.SyncAccount, payload syncapi.RecordPayload) (*syncapi.Record, error)
	PullRecord(ctx context.Context, endpoint *models.SyncAccount, externalID int64) (*syncapi.VerboseRecord, error)
	ReplaceRecord(ctx context.Context, endpoint *models.SyncAccount, externalID *int64, payload syncapi.RecordPayload) (*syncapi.Record, error)
	DeleteRecord(ctx context.Context, endpoint *models.SyncAccount, externalID int64) error
}

type Syncer struct {
	accounts accounts.Repository
	logs     synclogs.Repository
	client   Client
	cipher   *cryptox.Cipher
	logger   logging.Logger
}

func NewSyncer(accountRepo accounts.Repository, logRepo synclogs.Repository, client Client, cipher *cryptox.Cipher, logger logging.Logger) *Syncer {
	return &Syncer{
		accounts: accountRepo,
		logs:     logRepo,
		client:   client,
		cipher:   cipher,
		logger:   logger,
	}
}

// Run performs one full reconciliation pass against the endpoint:
// authenticate, flush tombstones, push never-synced accounts, then walk the
// remote manifest reconciling each record and prune local rows whose remote
// counterpart has disappeared.
//
// Authentication and manifest failures abort the pass. Per-record failures
// are written to the sync log and skipped.
func (s *Syncer) Run(ctx context.Context, endpoint *models.SyncAccount) error {
	token, err := s.client.Authenticate(ctx, endpoint)
	if err != nil {
		s.record(ctx, fmt.Sprintf("authentication failed: %v", err))
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	endpoint.Token = token

	if err := s.flushTombstones(ctx, endpoint); err != nil {
		return err
	}

	if err := s.pushUnlinked(ctx, endpoint); err != nil {
		return err
	}

	manifest, err := s.client.FetchManifest(ctx, endpoint)
	if err != nil {
		s.record(ctx, fmt.Sprintf("manifest fetch failed: %v", err))
		return fmt.Errorf("failed to fetch manifest: %w", err)
	}

	keep := make([]int64, 0, len(manifest))
	for _, entry := range manifest {
		keep = append(keep, entry.ID)
		if err := s.reconcile(ctx, endpoint, entry); err != nil {
			s.record(ctx, fmt.Sprintf("record %d: %v", entry.ID, err))
		}
	}

	pruned, err := s.accounts.PruneMissingExternalIDs(ctx, keep)
	if err != nil {
		return fmt.Errorf("failed to prune accounts: %w", err)
	}
	if pruned > 0 {
		s.logger.Info(ctx, "pruned accounts removed on remote", "count", pruned)
	}

	return nil
}

// flushTombstones propagates local deletions. The local tombstone is removed
// whether or not the remote delete succeeds; a record already gone on the
// remote would otherwise pin the tombstone forever.
func (s *Syncer) flushTombstones(ctx context.Context, endpoint *models.SyncAccount) error {
	tombstones, err := s.accounts.ListSoftDeleted(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tombstones: %w", err)
	}

	for _, t := range tombstones {
		if t.ExternalID != nil {
			if err := s.client.DeleteRecord(ctx, endpoint, *t.ExternalID); err != nil {
				s.record(ctx, fmt.Sprintf("remote delete of %q: %v", t.Name, err))
			}
		}
		if err := s.accounts.HardDelete(ctx, t.ID); err != nil {
			return fmt.Errorf("failed to remove tombstone: %w", err)
		}
	}

	return nil
}

// pushUnlinked creates remote records for accounts that were added locally
// and have never been synced, then stores the assigned remote identity.
func (s *Syncer) pushUnlinked(ctx context.Context, endpoint *models.SyncAccount) error {
	unlinked, err := s.accounts.ListUnlinked(ctx)
	if err != nil {
		return fmt.Errorf("failed to list unlinked accounts: %w", err)
	}

	for _, a := range unlinked {
		payload, err := s.payload(&a)
		if err != nil {
			s.record(ctx, fmt.Sprintf("push of %q: %v", a.Name, err))
			continue
		}

		rec, err := s.client.PushRecord(ctx, endpoint, payload)
		if err != nil {
			s.record(ctx, fmt.Sprintf("push of %q: %v", a.Name, err))
			continue
		}

		if err := s.accounts.SetRemoteLink(ctx, a.ID, rec.ID, rec.UpdatedAt, rec.SyncHash); err != nil {
			return fmt.Errorf("failed to link account: %w", err)
		}
	}

	return nil
}

// reconcile brings one manifest record and its local counterpart (if any)
// into agreement. Newer timestamp wins.
func (s *Syncer) reconcile(ctx context.Context, endpoint *models.SyncAccount, entry syncapi.ManifestEntry) error {
	local, err := s.accounts.FindByExternalID(ctx, entry.ID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("failed to look up account: %w", err)
	}

	var linkedAt *int64
	if local != nil {
		linkedAt = local.ExternalLastUpdated
	}

	switch Classify(linkedAt, entry.UpdatedAt) {
	case StatusLocalOutOfDate:
		return s.pull(ctx, endpoint, entry.ID, local)
	case StatusRemoteOutOfDate:
		return s.push(ctx, endpoint, local)
	default:
		return nil
	}
}

// pull overwrites (or creates) the local row from the remote record. The
// colour is a client-side attribute the remote does not carry, so an
// existing row keeps its colour across the overwrite.
func (s *Syncer) pull(ctx context.Context, endpoint *models.SyncAccount, externalID int64, local *models.Account) error {
	remote, err := s.client.PullRecord(ctx, endpoint, externalID)
	if err != nil {
		return err
	}

	secret, err := s.cipher.EncryptString(remote.Secret)
	if err != nil {
		return fmt.Errorf("failed to encrypt secret: %w", err)
	}

	if local == nil {
		a := &models.Account{
			Name:      remote.Name,
			Secret:    secret,
			TotpStep:  remote.TotpStep,
			OtpDigits: remote.OtpDigits,
			Algorithm: models.ParseAlgorithm(remote.Algorithm),
		}
		if err := s.accounts.Create(ctx, a); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		return s.accounts.SetRemoteLink(ctx, a.ID, remote.ID, remote.UpdatedAt, remote.SyncHash)
	}

	local.Name = remote.Name
	local.Secret = secret
	local.TotpStep = remote.TotpStep
	local.OtpDigits = remote.OtpDigits
	local.Algorithm = models.ParseAlgorithm(remote.Algorithm)
	if err := s.accounts.Update(ctx, local); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return s.accounts.SetRemoteLink(ctx, local.ID, remote.ID, remote.UpdatedAt, remote.SyncHash)
}

// push overwrites the remote record from the local row and refreshes the
// link with the revision the server assigned.
func (s *Syncer) push(ctx context.Context, endpoint *models.SyncAccount, local *models.Account) error {
	payload, err := s.payload(local)
	if err != nil {
		return err
	}

	rec, err := s.client.ReplaceRecord(ctx, endpoint, local.ExternalID, payload)
	if err != nil {
		return err
	}

	return s.accounts.SetRemoteLink(ctx, local.ID, rec.ID, rec.UpdatedAt, rec.SyncHash)
}

func (s *Syncer) payload(a *models.Account) (syncapi.RecordPayload, error) {
	secret, err := s.cipher.DecryptString(a.Secret)
	if err != nil {
		return syncapi.RecordPayload{}, fmt.Errorf("failed to decrypt secret: %w", err)
	}

	return syncapi.RecordPayload{
		Name:          a.Name,
		Secret:        secret,
		OtpDigits:     a.OtpDigits,
		TotpStep:      a.TotpStep,
		TotpAlgorithm: a.Algorithm.String(),
	}, nil
}

// record writes a failure to the persistent sync log. Logging must never
// break the pass, so a failing write only goes to the process log.
func (s *Syncer) record(ctx context.Context, message string) {
	s.logger.Warn(ctx, "sync", "error", message)
	if err := s.logs.Record(ctx, message, models.SyncLogError); err != nil {
		s.logger.Error(ctx, "failed to record sync log entry", "error", err)
	}
}
