package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"price-target-alerts/internal/alerting"
	"price-target-alerts/internal/feed"
)

// SimulateAlert dispatches a test increase notification through the real
// email channel without touching the database.
func (a *App) SimulateAlert(ctx context.Context, chain string, increasePct decimal.Decimal) error {
	if !feed.Supported(chain) {
		return errors.New("unsupported chain")
	}
	if a.Config.Monitor.OpsEmail == "" {
		return errors.New("monitor.ops_email is not configured")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("email.host is not configured")
	}

	subject, body := alerting.RenderTestAlert(chain, increasePct, time.Now().UTC())

	ctx, cancel := context.WithTimeout(ctx, a.Config.Monitor.CallTimeout)
	defer cancel()

	if err := notifier.Send(ctx, a.Config.Monitor.OpsEmail, subject, body); err != nil {
		return err
	}

	a.Logger.Info().Str("chain", chain).Str("to", a.Config.Monitor.OpsEmail).Msg("simulated notification sent")
	return nil
}
