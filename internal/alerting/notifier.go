package alerting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	gomail "gopkg.in/gomail.v2"
)

// Notifier delivers a notification to a single recipient. The engine treats
// dispatch as fire-and-forget: failures are logged by the caller, never
// retried.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EmailOptions parameterise the SMTP notifier.
type EmailOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailNotifier sends plain-text mail over SMTP.
type EmailNotifier struct {
	dialer *gomail.Dialer
	from   string
	logger zerolog.Logger
}

// NewEmailNotifier constructs an SMTP notifier.
func NewEmailNotifier(opts EmailOptions, logger zerolog.Logger) *EmailNotifier {
	port := opts.Port
	if port <= 0 {
		port = 587
	}

	return &EmailNotifier{
		dialer: gomail.NewDialer(opts.Host, port, opts.Username, opts.Password),
		from:   opts.From,
		logger: logger.With().Str("component", "email_notifier").Logger(),
	}
}

// Send dispatches one message. gomail has no context support, so the dial
// and send run on their own goroutine and the caller's deadline is honoured
// by abandoning the attempt.
func (n *EmailNotifier) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	done := make(chan error, 1)
	go func() {
		done <- n.dialer.DialAndSend(msg)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("send email: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
	}

	n.logger.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

// RenderIncreaseAlert builds the operations notification for an hourly
// price increase.
func RenderIncreaseAlert(chain string, pct decimal.Decimal) (subject, body string) {
	upper := strings.ToUpper(chain)
	subject = fmt.Sprintf("%s Price Alert", upper)
	body = fmt.Sprintf("The price of %s has increased by %s%% in the last hour.", upper, pct.StringFixed(2))
	return subject, body
}

// RenderTargetAlert builds the user notification for a reached price target.
func RenderTargetAlert(chain string, price decimal.Decimal) (subject, body string) {
	upper := strings.ToUpper(chain)
	subject = fmt.Sprintf("%s Price Alert", upper)
	body = fmt.Sprintf("%s has reached your target price of $%s.", upper, price.StringFixed(2))
	return subject, body
}

// RenderTestAlert builds the body used by the simulate-alert command.
func RenderTestAlert(chain string, pct decimal.Decimal, at time.Time) (subject, body string) {
	subject, body = RenderIncreaseAlert(chain, pct)
	body += fmt.Sprintf("\n\nSimulated notification issued at %s.", at.UTC().Format(time.RFC3339))
	return subject, body
}

var _ Notifier = (*EmailNotifier)(nil)
