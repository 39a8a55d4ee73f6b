// Package common defines shared sentinel errors used across Phoenix
// components. Callers should match these values with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Validation errors surfaced when creating or editing accounts.
	ErrAccountExists = errors.New("account name already exists")
	ErrInvalidSecret = errors.New("invalid 2FA secret")
	ErrInvalidURL    = errors.New("not a valid otpauth URL")

	// Sync coordination.
	ErrSyncInProgress   = errors.New("sync already in progress")
	ErrNoSyncConfigured = errors.New("no sync endpoint configured")
)
