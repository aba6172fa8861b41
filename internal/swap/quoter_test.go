package swap

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-target-alerts/internal/feed"
)

type staticFeed struct {
	prices map[string]decimal.Decimal
	errs   map[string]error
}

func (f *staticFeed) Fetch(_ context.Context, chain string) (decimal.Decimal, error) {
	if err, ok := f.errs[chain]; ok {
		return decimal.Decimal{}, err
	}
	price, ok := f.prices[chain]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", feed.ErrUnsupportedChain, chain)
	}
	return price, nil
}

func newQuoter(f feed.PriceFeed) *Quoter {
	return New(Options{
		FeeRate:     decimal.RequireFromString("0.03"),
		SourceChain: "ethereum",
		TargetChain: "bitcoin",
	}, f, zerolog.Nop())
}

func TestQuoteExactFigures(t *testing.T) {
	q := newQuoter(&staticFeed{prices: map[string]decimal.Decimal{
		"ethereum": decimal.NewFromInt(3000),
		"bitcoin":  decimal.NewFromInt(60000),
	}})

	quote, err := q.Quote(context.Background(), decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	if !quote.FeeInSource.Equal(decimal.RequireFromString("0.03")) {
		t.Fatalf("fee in source should be 0.03, got %s", quote.FeeInSource)
	}
	if !quote.FeeInUSD.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("fee in usd should be 90, got %s", quote.FeeInUSD)
	}
	if !quote.TargetAmount.Equal(decimal.RequireFromString("0.0485")) {
		t.Fatalf("target amount should be 0.0485, got %s", quote.TargetAmount)
	}
}

func TestQuoteRejectsNonPositiveAmount(t *testing.T) {
	q := newQuoter(&staticFeed{prices: map[string]decimal.Decimal{
		"ethereum": decimal.NewFromInt(3000),
		"bitcoin":  decimal.NewFromInt(60000),
	}})

	if _, err := q.Quote(context.Background(), decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := q.Quote(context.Background(), decimal.NewFromInt(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestQuoteFailsWholeWhenSourceFeedFails(t *testing.T) {
	q := newQuoter(&staticFeed{
		prices: map[string]decimal.Decimal{"bitcoin": decimal.NewFromInt(60000)},
		errs:   map[string]error{"ethereum": fmt.Errorf("%w: status 503", feed.ErrUnavailable)},
	})

	if _, err := q.Quote(context.Background(), decimal.NewFromInt(1)); !errors.Is(err, feed.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestQuoteFailsWholeWhenTargetFeedFails(t *testing.T) {
	q := newQuoter(&staticFeed{
		prices: map[string]decimal.Decimal{"ethereum": decimal.NewFromInt(3000)},
		errs:   map[string]error{"bitcoin": fmt.Errorf("%w: timeout", feed.ErrUnavailable)},
	})

	if _, err := q.Quote(context.Background(), decimal.NewFromInt(1)); !errors.Is(err, feed.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
