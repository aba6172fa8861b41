package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"price-target-alerts/internal/feed"
	"price-target-alerts/internal/storage"
	"price-target-alerts/internal/swap"
)

// PriceReader is the slice of the price store the API needs.
type PriceReader interface {
	ListSamplesBetween(ctx context.Context, chain string, from, to time.Time) ([]storage.PriceSample, error)
	LatestSampleBefore(ctx context.Context, chain string, cutoff time.Time) (storage.PriceSample, bool, error)
}

// RateQuoter produces cross-asset quotes.
type RateQuoter interface {
	Quote(ctx context.Context, amountIn decimal.Decimal) (swap.Quote, error)
}

// Health reports process liveness.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// HourlyPrices returns a chain's samples within the last 24 hours, oldest
// first. An empty window yields an empty array, not an error.
func HourlyPrices(prices PriceReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chain := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("chain")))
		if chain == "" {
			writeError(w, http.StatusBadRequest, "chain is required")
			return
		}

		now := time.Now().UTC()
		samples, err := prices.ListSamplesBetween(r.Context(), chain, now.Add(-24*time.Hour), now)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load price history")
			return
		}
		if samples == nil {
			samples = []storage.PriceSample{}
		}

		writeJSON(w, http.StatusOK, samples)
	}
}

// LatestPrice returns a chain's most recent sample.
func LatestPrice(prices PriceReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chain := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("chain")))
		if chain == "" {
			writeError(w, http.StatusBadRequest, "chain is required")
			return
		}

		sample, found, err := prices.LatestSampleBefore(r.Context(), chain, time.Now().UTC())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load latest price")
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "no samples for chain")
			return
		}

		writeJSON(w, http.StatusOK, sample)
	}
}

// CreateAlert registers a one-shot price-target alert.
func CreateAlert(alerts storage.AlertStore) http.HandlerFunc {
	type request struct {
		Chain       string          `json:"chain"`
		TargetPrice decimal.Decimal `json:"target_price"`
		Email       string          `json:"email"`
	}
	type response struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		chain := strings.ToLower(strings.TrimSpace(req.Chain))
		if !feed.Supported(chain) {
			writeError(w, http.StatusBadRequest, "unsupported chain")
			return
		}
		if req.TargetPrice.Sign() <= 0 {
			writeError(w, http.StatusBadRequest, "target_price must be greater than zero")
			return
		}
		addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid email address")
			return
		}

		created, err := alerts.CreateAlert(r.Context(), storage.Alert{
			Chain:       chain,
			TargetPrice: req.TargetPrice,
			Email:       addr.Address,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to create alert")
			return
		}

		writeJSON(w, http.StatusCreated, response{
			ID:      created.ID.String(),
			Message: "alert set successfully",
		})
	}
}

// SwapRate quotes a source-asset amount into the target asset.
func SwapRate(quoter RateQuoter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.URL.Query().Get("amount"))
		if raw == "" {
			writeError(w, http.StatusBadRequest, "amount is required")
			return
		}

		amount, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid amount")
			return
		}

		quote, err := quoter.Quote(r.Context(), amount)
		switch {
		case err == nil:
		case errors.Is(err, swap.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "amount must be greater than zero")
			return
		case errors.Is(err, feed.ErrUnsupportedChain):
			writeError(w, http.StatusBadRequest, "unsupported chain")
			return
		case errors.Is(err, feed.ErrUnavailable):
			writeError(w, http.StatusBadGateway, "price feed unavailable")
			return
		default:
			writeError(w, http.StatusInternalServerError, "failed to compute quote")
			return
		}

		writeJSON(w, http.StatusOK, quote)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
