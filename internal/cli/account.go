package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/phoenixotp/phoenix/internal/models"
	"github.com/phoenixotp/phoenix/internal/otp"
	"github.com/phoenixotp/phoenix/internal/services"
)

func (a *App) list(ctx context.Context, filter string) {
	items, err := a.accountService.List(ctx, filter)
	if err != nil {
		log.Println(err.Error())
		return
	}

	if len(items) == 0 {
		fmt.Println("No accounts")
		return
	}
	for _, item := range items {
		fmt.Printf("%s  %s\n", item.ID, item.Name)
	}
}

func (a *App) add(ctx context.Context) {
	params, err := a.accountDetails(withSecret)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	if _, err := a.accountService.Create(ctx, *params); err != nil {
		log.Printf("error: %v", err)
		return
	}

	a.backgroundSync(ctx)
}

func (a *App) edit(ctx context.Context) {
	id, err := GetSimpleText(a.reader, "Enter account id to edit")
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	params, err := a.accountDetails(withOptionalSecret)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	if err := a.accountService.Edit(ctx, id, *params); err != nil {
		log.Printf("error: %v", err)
		return
	}

	a.backgroundSync(ctx)
}

type secretMode int

const (
	withSecret secretMode = iota
	withOptionalSecret
)

func (a *App) accountDetails(mode secretMode) (*services.AccountParams, error) {
	name, err := GetSimpleText(a.reader, "Enter account name")
	if err != nil {
		return nil, err
	}

	prompt := "Enter 2FA secret"
	if mode == withOptionalSecret {
		prompt = "Enter 2FA secret (empty to keep current)"
	}
	secret, err := GetSimpleText(a.reader, prompt)
	if err != nil {
		return nil, err
	}

	digits, err := GetOptionalInt(a.reader, "Enter code digits", otp.DefaultDigits)
	if err != nil {
		return nil, err
	}

	step, err := GetOptionalInt(a.reader, "Enter time step in seconds", otp.DefaultStep)
	if err != nil {
		return nil, err
	}

	alg, err := GetSimpleText(a.reader, "Enter algorithm (SHA1/SHA256/SHA512, empty for default)")
	if err != nil {
		return nil, err
	}

	return &services.AccountParams{
		Name:      name,
		Secret:    secret,
		OtpDigits: digits,
		TotpStep:  step,
		Algorithm: models.ParseAlgorithm(alg),
	}, nil
}

func (a *App) code(ctx context.Context) {
	id, err := GetSimpleText(a.reader, "Enter account id")
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	code, err := a.accountService.GenerateCode(ctx, id)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	fmt.Printf("%s (valid for %ds)\n", code.Value, code.SecondsLeft)
}

func (a *App) delete(ctx context.Context) {
	id, err := GetSimpleText(a.reader, "Enter account id to delete")
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	if err := a.accountService.Delete(ctx, id); err != nil {
		log.Printf("error: %v", err)
		return
	}

	a.backgroundSync(ctx)
}

func (a *App) importURL(ctx context.Context) {
	raw, err := GetSimpleText(a.reader, "Enter otpauth URL")
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	account, err := a.accountService.ImportURL(ctx, raw)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	fmt.Printf("Imported %s\n", account.Name)
	a.backgroundSync(ctx)
}

func (a *App) exportURL(ctx context.Context) {
	id, err := GetSimpleText(a.reader, "Enter account id to export")
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	url, err := a.accountService.ExportURL(ctx, id)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	fmt.Println(url)
}
