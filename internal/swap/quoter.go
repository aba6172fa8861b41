package swap

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-target-alerts/internal/feed"
)

// ErrInvalidAmount marks a non-positive input amount.
var ErrInvalidAmount = errors.New("swap: amount must be greater than zero")

// Quote is the result of a cross-asset conversion. The fee is taken on the
// input amount, not the output.
type Quote struct {
	TargetAmount decimal.Decimal `json:"target_amount"`
	FeeInSource  decimal.Decimal `json:"fee_in_source"`
	FeeInUSD     decimal.Decimal `json:"fee_in_usd"`
	SourceChain  string          `json:"source_chain"`
	TargetChain  string          `json:"target_chain"`
}

// Options parameterise the quoter.
type Options struct {
	FeeRate     decimal.Decimal
	SourceChain string
	TargetChain string
}

// Quoter converts an amount of the source asset into the target asset using
// live USD prices. It holds no state beyond its configuration.
type Quoter struct {
	opts   Options
	feed   feed.PriceFeed
	logger zerolog.Logger
}

// New constructs a quoter.
func New(opts Options, priceFeed feed.PriceFeed, logger zerolog.Logger) *Quoter {
	return &Quoter{
		opts:   opts,
		feed:   priceFeed,
		logger: logger.With().Str("component", "swap_quoter").Logger(),
	}
}

// Quote converts amountIn of the source asset. Both price lookups must
// succeed; there is no partial result.
func (q *Quoter) Quote(ctx context.Context, amountIn decimal.Decimal) (Quote, error) {
	if amountIn.Sign() <= 0 {
		return Quote{}, ErrInvalidAmount
	}

	sourcePrice, err := q.feed.Fetch(ctx, q.opts.SourceChain)
	if err != nil {
		return Quote{}, fmt.Errorf("fetch %s price: %w", q.opts.SourceChain, err)
	}

	targetPrice, err := q.feed.Fetch(ctx, q.opts.TargetChain)
	if err != nil {
		return Quote{}, fmt.Errorf("fetch %s price: %w", q.opts.TargetChain, err)
	}

	if targetPrice.Sign() <= 0 {
		return Quote{}, fmt.Errorf("%w: non-positive %s price", feed.ErrUnavailable, q.opts.TargetChain)
	}

	amountUSD := amountIn.Mul(sourcePrice)
	feeInSource := amountIn.Mul(q.opts.FeeRate)
	feeInUSD := feeInSource.Mul(sourcePrice)

	targetGross := amountUSD.Div(targetPrice)
	targetAmount := targetGross.Sub(feeInUSD.Div(targetPrice))

	q.logger.Debug().
		Str("amount_in", amountIn.String()).
		Str("target_amount", targetAmount.String()).
		Str("fee_usd", feeInUSD.String()).
		Msg("swap quoted")

	return Quote{
		TargetAmount: targetAmount,
		FeeInSource:  feeInSource,
		FeeInUSD:     feeInUSD,
		SourceChain:  q.opts.SourceChain,
		TargetChain:  q.opts.TargetChain,
	}, nil
}
