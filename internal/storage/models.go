package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceSample is one immutable spot price observation. Samples are append
// only; for a given chain the writer never backfills, so timestamps are
// non-decreasing in write order.
type PriceSample struct {
	ID        int64           `json:"-"`
	Chain     string          `json:"chain"`
	Price     decimal.Decimal `json:"price"`
	SampledAt time.Time       `json:"sampled_at"`
}

// Alert is a one-shot price-target subscription. It is never updated;
// it is deleted when its condition fires.
type Alert struct {
	ID          uuid.UUID       `json:"id"`
	Chain       string          `json:"chain"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Email       string          `json:"email"`
	CreatedAt   time.Time       `json:"created_at"`
}
