package config

import (
	"flag"
	"os"
	"time"

	"github.com/phoenixotp/phoenix/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   data directory for the database and key file
//	-t int      sync request timeout in seconds
//	-k          skip TLS certificate validation on the sync server
//
// Note: The function filters os.Args to only include the flags it knows
// about, using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-t", "-k"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "sync request timeout (in seconds)")
	fs.BoolVar(&cfg.InsecureTLS, "k", cfg.InsecureTLS, "skip TLS certificate validation")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
