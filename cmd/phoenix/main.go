package main

import (
	"context"
	"log"
	"os"

	"github.com/phoenixotp/phoenix/internal/buildinfo"
	"github.com/phoenixotp/phoenix/internal/cli"
	"github.com/phoenixotp/phoenix/internal/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
