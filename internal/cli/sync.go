package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/phoenixotp/phoenix/internal/common"
)

func (a *App) sync(ctx context.Context) {
	err := a.syncService.Sync(ctx)
	switch {
	case err == nil:
		fmt.Println("Sync finished")
	case errors.Is(err, common.ErrSyncInProgress):
		fmt.Println("Sync already running")
	case errors.Is(err, common.ErrNoSyncConfigured):
		fmt.Println("No sync server configured, use 'syncsetup' first")
	default:
		log.Printf("error: %v", err)
	}
}

func (a *App) syncSetup(ctx context.Context) {
	url, err := GetSimpleText(a.reader, "Enter server URL")
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	username, err := GetSimpleText(a.reader, "Enter username")
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	password, err := GetPassword("Enter password")
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	if err := a.syncService.Configure(ctx, username, string(password), url); err != nil {
		log.Printf("error: %v", err)
		return
	}

	fmt.Println("Sync server configured")
	a.backgroundSync(ctx)
}

func (a *App) syncRemove(ctx context.Context) {
	err := a.syncService.Remove(ctx)
	switch {
	case err == nil:
		fmt.Println("Sync server removed, local accounts kept")
	case errors.Is(err, common.ErrNoSyncConfigured):
		fmt.Println("No sync server configured")
	default:
		log.Printf("error: %v", err)
	}
}

func (a *App) syncLog(ctx context.Context) {
	entries, err := a.syncService.RecentLogs(ctx)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	if len(entries) == 0 {
		fmt.Println("No sync failures recorded")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %s\n", time.Unix(e.Timestamp, 0).Format(time.RFC3339), e.Message)
	}
}
