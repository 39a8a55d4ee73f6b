// Package cli provides the interactive Phoenix command-line client.
//
// It wires configuration, the encrypted local store, application services
// and an interactive REPL for managing two-factor accounts: adding and
// editing them, generating codes, importing/exporting otpauth URLs and
// synchronizing with a remote server.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
