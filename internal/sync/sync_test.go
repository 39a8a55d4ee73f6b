package sync

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoenixotp/phoenix/internal/common"
	"github.com/phoenixotp/phoenix/internal/cryptox"
	"github.com/phoenixotp/phoenix/internal/logging"
	"github.com/phoenixotp/phoenix/internal/models"
	"github.com/phoenixotp/phoenix/internal/repositories/accounts"
	"github.com/phoenixotp/phoenix/internal/repositories/synclogs"
	"github.com/phoenixotp/phoenix/internal/syncapi"

	_ "modernc.org/sqlite"
)

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) With(...any) logging.Logger            { return nopLogger{} }

// fakeClient scripts the remote side of a pass. Unset hooks succeed with
// empty results.
type fakeClient struct {
	authErr     error
	manifest    []syncapi.ManifestEntry
	manifestErr error
	records     map[int64]*syncapi.VerboseRecord
	pullErr     map[int64]error
	pushErr     map[string]error

	pushed   []syncapi.RecordPayload
	replaced map[int64]syncapi.RecordPayload
	deleted  []int64

	nextID    int64
	updatedAt int64
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		records:  map[int64]*syncapi.VerboseRecord{},
		pullErr:  map[int64]error{},
		pushErr:  map[string]error{},
		replaced: map[int64]syncapi.RecordPayload{},
		nextID:   100,
	}
}

func (f *fakeClient) Authenticate(_ context.Context, _ *models.SyncAccount) (string, error) {
	if f.authErr != nil {
		return "", f.authErr
	}
	return "token", nil
}

func (f *fakeClient) FetchManifest(_ context.Context, _ *models.SyncAccount) ([]syncapi.ManifestEntry, error) {
	if f.manifestErr != nil {
		return nil, f.manifestErr
	}
	return f.manifest, nil
}

func (f *fakeClient) PushRecord(_ context.Context, _ *models.SyncAccount, payload syncapi.RecordPayload) (*syncapi.Record, error) {
	if err := f.pushErr[payload.Name]; err != nil {
		return nil, err
	}
	f.pushed = append(f.pushed, payload)
	f.nextID++
	// a created record shows up in the manifest fetched later in the pass
	f.manifest = append(f.manifest, syncapi.ManifestEntry{ID: f.nextID, UpdatedAt: f.updatedAt})
	return &syncapi.Record{ID: f.nextID, SyncHash: "hash", UpdatedAt: f.updatedAt}, nil
}

func (f *fakeClient) PullRecord(_ context.Context, _ *models.SyncAccount, externalID int64) (*syncapi.VerboseRecord, error) {
	if err := f.pullErr[externalID]; err != nil {
		return nil, err
	}
	rec, ok := f.records[externalID]
	if !ok {
		return nil, syncapi.ErrMissingExternalID
	}
	return rec, nil
}

func (f *fakeClient) ReplaceRecord(_ context.Context, _ *models.SyncAccount, externalID *int64, payload syncapi.RecordPayload) (*syncapi.Record, error) {
	if externalID == nil {
		return nil, syncapi.ErrMissingExternalID
	}
	f.replaced[*externalID] = payload
	return &syncapi.Record{ID: *externalID, SyncHash: "hash2", UpdatedAt: f.updatedAt}, nil
}

func (f *fakeClient) DeleteRecord(_ context.Context, _ *models.SyncAccount, externalID int64) error {
	f.deleted = append(f.deleted, externalID)
	return nil
}

type fixture struct {
	db       *sql.DB
	accounts accounts.Repository
	logs     synclogs.Repository
	cipher   *cryptox.Cipher
	client   *fakeClient
	syncer   *Syncer
	endpoint *models.SyncAccount
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE accounts (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  secret TEXT NOT NULL,
  totp_step INTEGER NOT NULL DEFAULT 30,
  otp_digits INTEGER NOT NULL DEFAULT 6,
  colour TEXT NOT NULL DEFAULT '',
  totp_algorithm TEXT,
  external_id INTEGER,
  external_last_updated INTEGER,
  external_hash TEXT,
  deleted_at INTEGER
);
CREATE TABLE sync_logs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  log TEXT NOT NULL,
  log_type INTEGER NOT NULL,
  timestamp INTEGER NOT NULL
);
`)
	require.NoError(t, err)

	cipher, err := cryptox.NewCipherWithKey(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	f := &fixture{
		db:       db,
		accounts: accounts.NewSQLiteRepository(db),
		logs:     synclogs.NewSQLiteRepository(db),
		cipher:   cipher,
		client:   newFakeClient(),
		endpoint: &models.SyncAccount{ID: 1, Username: "u", Password: "p", URL: "http://remote"},
	}
	f.syncer = NewSyncer(f.accounts, f.logs, f.client, cipher, nopLogger{})
	return f
}

func (f *fixture) createLocal(t *testing.T, name, plainSecret string) *models.Account {
	t.Helper()
	secret, err := f.cipher.EncryptString(plainSecret)
	require.NoError(t, err)

	a := &models.Account{
		Name:      name,
		Secret:    secret,
		TotpStep:  30,
		OtpDigits: 6,
		Colour:    "1d6f42",
	}
	require.NoError(t, f.accounts.Create(context.Background(), a))
	return a
}

func (f *fixture) link(t *testing.T, a *models.Account, externalID, updatedAt int64) {
	t.Helper()
	require.NoError(t, f.accounts.SetRemoteLink(context.Background(), a.ID, externalID, updatedAt, "hash"))
}

func (f *fixture) remoteRecord(externalID, updatedAt int64, name, secret string) {
	f.client.records[externalID] = &syncapi.VerboseRecord{
		ID:        externalID,
		Name:      name,
		Secret:    secret,
		TotpStep:  30,
		OtpDigits: 6,
		SyncHash:  "hash",
		UpdatedAt: updatedAt,
	}
	f.client.manifest = append(f.client.manifest, syncapi.ManifestEntry{ID: externalID, UpdatedAt: updatedAt})
}

func TestRunPullsNewRemoteRecord(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.remoteRecord(7, 100, "github", "JBSWY3DPEHPK3PXP")

	require.NoError(t, f.syncer.Run(ctx, f.endpoint))

	a, err := f.accounts.FindByExternalID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "github", a.Name)
	require.NotNil(t, a.ExternalLastUpdated)
	assert.Equal(t, int64(100), *a.ExternalLastUpdated)

	plain, err := f.cipher.DecryptString(a.Secret)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", plain)
}

func TestRunOverwritesStaleLocal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := f.createLocal(t, "old-name", "OLDSECRET234567")
	f.link(t, a, 7, 100)
	f.remoteRecord(7, 200, "new-name", "NEWSECRET234567")

	require.NoError(t, f.syncer.Run(ctx, f.endpoint))

	got, err := f.accounts.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-name", got.Name)
	assert.Equal(t, "1d6f42", got.Colour, "colour is client-local and survives a pull")
	require.NotNil(t, got.ExternalLastUpdated)
	assert.Equal(t, int64(200), *got.ExternalLastUpdated)

	plain, err := f.cipher.DecryptString(got.Secret)
	require.NoError(t, err)
	assert.Equal(t, "NEWSECRET234567", plain)
}

func TestRunPushesNewerLocal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := f.createLocal(t, "github", "LOCALSECRET2345")
	f.link(t, a, 7, 300)
	f.client.manifest = []syncapi.ManifestEntry{{ID: 7, UpdatedAt: 100}}
	f.client.updatedAt = 300

	require.NoError(t, f.syncer.Run(ctx, f.endpoint))

	payload, ok := f.client.replaced[7]
	require.True(t, ok)
	assert.Equal(t, "github", payload.Name)
	assert.Equal(t, "LOCALSECRET2345", payload.Secret)
}

func TestRunUpToDateIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := f.createLocal(t, "github", "SECRET23456789A")
	f.link(t, a, 7, 100)
	f.client.manifest = []syncapi.ManifestEntry{{ID: 7, UpdatedAt: 100}}

	require.NoError(t, f.syncer.Run(ctx, f.endpoint))
	require.NoError(t, f.syncer.Run(ctx, f.endpoint))

	assert.Empty(t, f.client.pushed)
	assert.Empty(t, f.client.replaced)
	assert.Empty(t, f.client.deleted)

	got, err := f.accounts.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "github", got.Name)
}

func TestRunPushesUnlinkedAccounts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.createLocal(t, "fresh", "FRESHSECRET2345")
	f.client.updatedAt = 500

	require.NoError(t, f.syncer.Run(ctx, f.endpoint))

	require.Len(t, f.client.pushed, 1)
	assert.Equal(t, "fresh", f.client.pushed[0].Name)
	assert.Equal(t, "FRESHSECRET2345", f.client.pushed[0].Secret)

	// the account picked up the server-assigned identity
	a, err := f.accounts.FindByExternalID(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, "fresh", a.Name)
	require.NotNil(t, a.ExternalLastUpdated)
	assert.Equal(t, int64(500), *a.ExternalLastUpdated)
}

func TestRunFlushesTombstones(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	linked := f.createLocal(t, "linked", "SECRET23456789A")
	f.link(t, linked, 7, 100)
	require.NoError(t, f.accounts.SoftDelete(ctx, linked.ID, 400))

	unlinked := f.createLocal(t, "unlinked", "SECRET23456789B")
	require.NoError(t, f.accounts.SoftDelete(ctx, unlinked.ID, 400))

	require.NoError(t, f.syncer.Run(ctx, f.endpoint))

	// only the linked tombstone reaches the remote, both are gone locally
	assert.Equal(t, []int64{7}, f.client.deleted)
	_, err := f.accounts.GetByID(ctx, linked.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = f.accounts.GetByID(ctx, unlinked.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	left, err := f.accounts.ListSoftDeleted(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestRunPrunesRecordsGoneOnRemote(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	kept := f.createLocal(t, "kept", "SECRET23456789A")
	f.link(t, kept, 7, 100)
	gone := f.createLocal(t, "gone", "SECRET23456789B")
	f.link(t, gone, 9, 100)

	f.client.manifest = []syncapi.ManifestEntry{{ID: 7, UpdatedAt: 100}}

	require.NoError(t, f.syncer.Run(ctx, f.endpoint))

	_, err := f.accounts.GetByID(ctx, kept.ID)
	assert.NoError(t, err)
	_, err = f.accounts.GetByID(ctx, gone.ID)
	assert.Error(t, err)
}

func TestRunSkipsFailingRecordAndLogs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.remoteRecord(1, 100, "one", "SECRET23456789A")
	f.remoteRecord(2, 100, "two", "SECRET23456789B")
	f.remoteRecord(3, 100, "three", "SECRET23456789C")
	f.client.pullErr[2] = errors.New("boom")

	require.NoError(t, f.syncer.Run(ctx, f.endpoint))

	// neighbours of the failing record still arrive
	_, err := f.accounts.FindByExternalID(ctx, 1)
	assert.NoError(t, err)
	_, err = f.accounts.FindByExternalID(ctx, 3)
	assert.NoError(t, err)
	_, err = f.accounts.FindByExternalID(ctx, 2)
	assert.Error(t, err)

	entries, err := f.logs.Recent(ctx, synclogs.DefaultWindow)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "record 2")
	assert.Equal(t, models.SyncLogError, entries[0].Kind)
}

func TestRunPushFailureDoesNotBlockNeighbours(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.createLocal(t, "one", "SECRET23456789A")
	f.createLocal(t, "two", "SECRET23456789B")
	f.createLocal(t, "three", "SECRET23456789C")
	f.client.pushErr["two"] = errors.New("boom")

	require.NoError(t, f.syncer.Run(ctx, f.endpoint))

	// first and third acquire remote links, second stays unlinked for the
	// next pass
	unlinked, err := f.accounts.ListUnlinked(ctx)
	require.NoError(t, err)
	require.Len(t, unlinked, 1)
	assert.Equal(t, "two", unlinked[0].Name)
	require.Len(t, f.client.pushed, 2)

	entries, err := f.logs.Recent(ctx, synclogs.DefaultWindow)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, `"two"`)
}

func TestRunAbortsOnAuthFailure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.createLocal(t, "local", "SECRET23456789A")
	f.client.authErr = errors.New("bad credentials")

	err := f.syncer.Run(ctx, f.endpoint)
	require.Error(t, err)
	assert.Empty(t, f.client.pushed)

	entries, err := f.logs.Recent(ctx, synclogs.DefaultWindow)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "authentication failed")
}

func TestRunAbortsOnManifestFailureWithoutPruning(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := f.createLocal(t, "local", "SECRET23456789A")
	f.link(t, a, 7, 100)
	f.client.manifestErr = errors.New("offline")

	err := f.syncer.Run(ctx, f.endpoint)
	require.Error(t, err)

	// a failed manifest must never prune local rows
	_, getErr := f.accounts.GetByID(ctx, a.ID)
	assert.NoError(t, getErr)
}
