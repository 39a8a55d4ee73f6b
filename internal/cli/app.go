package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/phoenixotp/phoenix/internal/common"
	"github.com/phoenixotp/phoenix/internal/config"
	"github.com/phoenixotp/phoenix/internal/cryptox"
	"github.com/phoenixotp/phoenix/internal/logging"
	"github.com/phoenixotp/phoenix/internal/services"
	"github.com/phoenixotp/phoenix/internal/storage"
	"github.com/phoenixotp/phoenix/internal/syncapi"
)

type App struct {
	config         *config.Config
	accountService services.AccountService
	syncService    services.SyncService
	logger         logging.Logger
	reader         *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()
	logger := logging.NewSlogLogger(slog.Default())

	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	cipher, err := cryptox.NewCipher(c.DataDir)
	if err != nil {
		return nil, err
	}

	db, err := storage.InitDatabase(ctx, c.DatabasePath())
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	client := syncapi.NewClient(syncapi.Options{
		Timeout:            c.RequestTimeout,
		InsecureSkipVerify: c.InsecureTLS,
	})

	return &App{
		config:         c,
		accountService: services.NewAccountService(db, cipher),
		syncService:    services.NewSyncService(db, cipher, client, logger),
		logger:         logger,
		reader:         bufio.NewReader(os.Stdin),
	}, nil
}

// Run starts a background sync pass and then blocks in the REPL until the
// user exits.
func (a *App) Run(ctx context.Context) {
	go a.startupSync(ctx)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Phoenix CLI (type 'help' for commands)")
	runREPL(ctx, a, scanner)
}

// startupSync reconciles with the remote on launch, matching the behavior
// of saved-change triggers. Nothing configured is not an error.
func (a *App) startupSync(ctx context.Context) {
	err := a.syncService.Sync(ctx)
	switch {
	case err == nil:
		a.logger.Info(ctx, "startup sync finished")
	case errors.Is(err, common.ErrNoSyncConfigured):
	case errors.Is(err, common.ErrSyncInProgress):
	default:
		a.logger.Warn(ctx, "startup sync failed", "error", err)
	}
}

// backgroundSync propagates a local change to the remote without blocking
// the prompt. Overlap with a running pass is fine, the change rides along
// on the next one.
func (a *App) backgroundSync(ctx context.Context) {
	go func() {
		err := a.syncService.Sync(ctx)
		if err != nil && !errors.Is(err, common.ErrNoSyncConfigured) && !errors.Is(err, common.ErrSyncInProgress) {
			a.logger.Warn(ctx, "background sync failed", "error", err)
		}
	}()
}
