package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnsupportedChain marks a chain identifier outside the provider table.
	ErrUnsupportedChain = errors.New("unsupported chain")
	// ErrUnavailable marks any upstream failure: network errors, bad status
	// codes, malformed responses, or a missing price field.
	ErrUnavailable = errors.New("price feed unavailable")
)

// PriceFeed retrieves the current USD spot price for a chain.
type PriceFeed interface {
	Fetch(ctx context.Context, chain string) (decimal.Decimal, error)
}

// coinIDs maps canonical chain identifiers to CoinGecko coin ids. The table
// is closed: anything outside it fails fast without a request.
var coinIDs = map[string]string{
	"ethereum": "ethereum",
	"polygon":  "matic-network",
	"bitcoin":  "bitcoin",
	"solana":   "solana",
}

// ProviderID resolves a chain identifier to its CoinGecko coin id.
func ProviderID(chain string) (string, error) {
	id, ok := coinIDs[strings.ToLower(chain)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedChain, chain)
	}
	return id, nil
}

// Supported reports whether a chain identifier is in the provider table.
func Supported(chain string) bool {
	_, ok := coinIDs[strings.ToLower(chain)]
	return ok
}
