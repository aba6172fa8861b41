package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strings"

	"price-target-alerts/internal/feed"
	"price-target-alerts/internal/storage"
)

// SetAlert registers a one-shot price-target alert from the CLI.
func (a *App) SetAlert(ctx context.Context, opts SetAlertOptions) error {
	chain := strings.ToLower(strings.TrimSpace(opts.Chain))
	if !feed.Supported(chain) {
		return errors.New("unsupported chain")
	}
	if opts.TargetPrice.Sign() <= 0 {
		return errors.New("target price must be greater than zero")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(opts.Email))
	if err != nil {
		return fmt.Errorf("invalid email address: %w", err)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	created, err := store.CreateAlert(ctx, storage.Alert{
		Chain:       chain,
		TargetPrice: opts.TargetPrice,
		Email:       addr.Address,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "alert %s set: notify %s when %s reaches $%s\n",
		created.ID, created.Email, created.Chain, formatDecimal(created.TargetPrice, 2))
	return nil
}
