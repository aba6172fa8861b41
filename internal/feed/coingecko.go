package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-target-alerts/internal/metrics"
)

const simplePricePath = "/simple/price"

// CoingeckoOptions parameterise the CoinGecko fetcher.
type CoingeckoOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	APIKey    string
}

// Coingecko fetches USD spot prices from the CoinGecko REST API.
type Coingecko struct {
	opts    CoingeckoOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewCoingecko constructs a CoinGecko price feed.
func NewCoingecko(opts CoingeckoOptions, logger zerolog.Logger) *Coingecko {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}

	return &Coingecko{
		opts:    opts,
		logger:  logger.With().Str("component", "coingecko_feed").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Fetch retrieves the current USD price for the chain.
func (c *Coingecko) Fetch(ctx context.Context, chain string) (decimal.Decimal, error) {
	coinID, err := ProviderID(chain)
	if err != nil {
		return decimal.Decimal{}, err
	}

	query := url.Values{}
	query.Set("ids", coinID)
	query.Set("vs_currencies", "usd")
	endpoint := c.baseURL + simplePricePath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	if c.opts.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.opts.APIKey)
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	metrics.FeedRequestDuration.WithLabelValues("coingecko").Observe(time.Since(started).Seconds())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	// {"<coin-id>":{"usd":<price>}}
	var body map[string]map[string]json.Number
	if err := json.Unmarshal(payload, &body); err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	raw, ok := body[coinID]["usd"]
	if !ok || raw.String() == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: price missing for %s", ErrUnavailable, coinID)
	}

	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: parse price: %v", ErrUnavailable, err)
	}

	c.logger.Debug().Str("chain", strings.ToLower(chain)).Str("price_usd", price.String()).Msg("price fetched")
	return price, nil
}

var _ PriceFeed = (*Coingecko)(nil)
