package alerting

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestRenderIncreaseAlert(t *testing.T) {
	subject, body := RenderIncreaseAlert("ethereum", decimal.RequireFromString("4.236"))

	if subject != "ETHEREUM Price Alert" {
		t.Fatalf("unexpected subject: %q", subject)
	}
	if !strings.Contains(body, "increased by 4.24%") {
		t.Fatalf("body should carry the rounded percentage: %q", body)
	}
	if !strings.Contains(body, "ETHEREUM") {
		t.Fatalf("body should name the chain: %q", body)
	}
}

func TestRenderTargetAlert(t *testing.T) {
	subject, body := RenderTargetAlert("bitcoin", decimal.NewFromInt(50000))

	if subject != "BITCOIN Price Alert" {
		t.Fatalf("unexpected subject: %q", subject)
	}
	if !strings.Contains(body, "$50000.00") {
		t.Fatalf("body should carry the price: %q", body)
	}
}

func TestRenderTestAlertMarksSimulation(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_, body := RenderTestAlert("solana", decimal.NewFromInt(5), at)

	if !strings.Contains(body, "Simulated notification") {
		t.Fatalf("body should be marked as simulated: %q", body)
	}
	if !strings.Contains(body, "2025-06-01T12:00:00Z") {
		t.Fatalf("body should carry the issue time: %q", body)
	}
}

func TestNewEmailNotifierDefaultPort(t *testing.T) {
	n := NewEmailNotifier(EmailOptions{Host: "smtp.example.com", From: "alerts@example.com"}, testLogger())
	if n.dialer.Port != 587 {
		t.Fatalf("expected default port 587, got %d", n.dialer.Port)
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
