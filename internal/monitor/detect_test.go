package monitor

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"price-target-alerts/internal/storage"
)

var detectNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleAt(offset time.Duration, price string) storage.PriceSample {
	return storage.PriceSample{
		Chain:     "ethereum",
		Price:     decimal.RequireFromString(price),
		SampledAt: detectNow.Add(offset),
	}
}

func TestDetectIncreaseExactPercentages(t *testing.T) {
	history := []storage.PriceSample{
		sampleAt(-2*time.Hour, "100"),
		sampleAt(0, "104"),
	}

	pct, ok := DetectIncrease(history, detectNow)
	if !ok {
		t.Fatal("expected a signal")
	}
	if !pct.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected exactly 4, got %s", pct.String())
	}

	history[1].Price = decimal.RequireFromString("103")
	pct, ok = DetectIncrease(history, detectNow)
	if !ok {
		t.Fatal("expected a signal")
	}
	if !pct.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected exactly 3, got %s", pct.String())
	}
}

func TestDetectIncreaseNoPastSample(t *testing.T) {
	// Plenty of recent samples, but nothing at or before now-1h.
	history := []storage.PriceSample{
		sampleAt(-50*time.Minute, "100"),
		sampleAt(-30*time.Minute, "120"),
		sampleAt(-5*time.Minute, "140"),
		sampleAt(0, "160"),
	}

	if _, ok := DetectIncrease(history, detectNow); ok {
		t.Fatal("expected no signal without a past sample")
	}
}

func TestDetectIncreaseNoCurrentSample(t *testing.T) {
	history := []storage.PriceSample{
		sampleAt(time.Minute, "100"), // in the future relative to now
	}

	if _, ok := DetectIncrease(history, detectNow); ok {
		t.Fatal("expected no signal without a current sample")
	}
}

func TestDetectIncreaseEmptyHistory(t *testing.T) {
	if _, ok := DetectIncrease(nil, detectNow); ok {
		t.Fatal("expected no signal for empty history")
	}
}

func TestDetectIncreasePicksNewestEligibleSamples(t *testing.T) {
	history := []storage.PriceSample{
		sampleAt(-3*time.Hour, "50"),
		sampleAt(-90*time.Minute, "80"),
		sampleAt(-61*time.Minute, "100"), // newest at or before now-1h
		sampleAt(-10*time.Minute, "90"),
		sampleAt(-time.Minute, "110"), // newest at or before now
	}

	pct, ok := DetectIncrease(history, detectNow)
	if !ok {
		t.Fatal("expected a signal")
	}
	if !pct.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected 10 from the 100 -> 110 pair, got %s", pct.String())
	}
}

func TestDetectIncreasePastBoundaryInclusive(t *testing.T) {
	history := []storage.PriceSample{
		sampleAt(-time.Hour, "100"), // exactly now-1h qualifies as past
		sampleAt(0, "105"),
	}

	pct, ok := DetectIncrease(history, detectNow)
	if !ok {
		t.Fatal("expected a signal at the exact boundary")
	}
	if !pct.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected 5, got %s", pct.String())
	}
}

func TestDetectIncreaseGuardsNonPositivePast(t *testing.T) {
	history := []storage.PriceSample{
		sampleAt(-2*time.Hour, "0"),
		sampleAt(0, "104"),
	}

	if _, ok := DetectIncrease(history, detectNow); ok {
		t.Fatal("expected no signal for a zero past price")
	}
}

func TestDetectIncreaseNegativeChange(t *testing.T) {
	history := []storage.PriceSample{
		sampleAt(-2*time.Hour, "100"),
		sampleAt(0, "95"),
	}

	pct, ok := DetectIncrease(history, detectNow)
	if !ok {
		t.Fatal("expected a signal for a decrease too")
	}
	if !pct.Equal(decimal.NewFromInt(-5)) {
		t.Fatalf("expected -5, got %s", pct.String())
	}
}
