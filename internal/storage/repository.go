package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertSampleSQL = `INSERT INTO price_samples (chain, price, sampled_at)
    VALUES ($1, $2, $3);`

	listSamplesBetweenSQL = `SELECT id, chain, price, sampled_at
    FROM price_samples
    WHERE chain = $1
      AND sampled_at >= $2
      AND sampled_at <= $3
    ORDER BY sampled_at;`

	latestSampleBeforeSQL = `SELECT id, chain, price, sampled_at
    FROM price_samples
    WHERE chain = $1
      AND sampled_at <= $2
    ORDER BY sampled_at DESC
    LIMIT 1;`

	listRecentSamplesSQL = `SELECT id, chain, price, sampled_at
    FROM price_samples
    WHERE ($1 = '' OR chain = $1)
    ORDER BY sampled_at DESC
    LIMIT $2;`

	insertAlertSQL = `INSERT INTO alerts (id, chain, target_price, email)
    VALUES ($1, $2, $3, $4)
    RETURNING id, chain, target_price, email, created_at;`

	listAlertsSQL = `SELECT id, chain, target_price, email, created_at
    FROM alerts
    ORDER BY created_at;`

	deleteAlertSQL = `DELETE FROM alerts WHERE id = $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// PriceStore defines operations on the spot price time series.
type PriceStore interface {
	InsertSample(ctx context.Context, sample PriceSample) error
	ListSamplesBetween(ctx context.Context, chain string, from, to time.Time) ([]PriceSample, error)
	LatestSampleBefore(ctx context.Context, chain string, cutoff time.Time) (PriceSample, bool, error)
}

// AlertStore defines operations on pending price-target alerts.
type AlertStore interface {
	CreateAlert(ctx context.Context, alert Alert) (Alert, error)
	ListAlerts(ctx context.Context) ([]Alert, error)
	DeleteAlert(ctx context.Context, id uuid.UUID) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to price samples and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertSample appends one price observation.
func (s *Store) InsertSample(ctx context.Context, sample PriceSample) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	if _, execErr := pool.Exec(ctx, insertSampleSQL,
		sample.Chain,
		sample.Price.String(),
		sample.SampledAt,
	); execErr != nil {
		return fmt.Errorf("insert price sample: %w", execErr)
	}
	return nil
}

// ListSamplesBetween lists a chain's samples within [from, to], ascending.
func (s *Store) ListSamplesBetween(ctx context.Context, chain string, from, to time.Time) ([]PriceSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSamplesBetweenSQL, chain, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list samples between: %w", queryErr)
	}
	defer rows.Close()

	return collectSamples(rows, 0)
}

// LatestSampleBefore returns the most recent sample at or before cutoff.
// The boolean is false when no such sample exists.
func (s *Store) LatestSampleBefore(ctx context.Context, chain string, cutoff time.Time) (PriceSample, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return PriceSample{}, false, err
	}

	row := pool.QueryRow(ctx, latestSampleBeforeSQL, chain, cutoff)
	sample, scanErr := scanSampleRow(row)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return PriceSample{}, false, nil
		}
		return PriceSample{}, false, scanErr
	}
	return sample, true, nil
}

// ListRecentSamples lists the newest samples, optionally filtered by chain.
func (s *Store) ListRecentSamples(ctx context.Context, chain string, limit int) ([]PriceSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSamplesSQL, chain, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent samples: %w", queryErr)
	}
	defer rows.Close()

	return collectSamples(rows, limit)
}

// CreateAlert persists a new alert, assigning an id when absent.
func (s *Store) CreateAlert(ctx context.Context, alert Alert) (Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return Alert{}, err
	}

	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.ID,
		alert.Chain,
		alert.TargetPrice.String(),
		alert.Email,
	)

	created, scanErr := scanAlertRow(row)
	if scanErr != nil {
		return Alert{}, fmt.Errorf("create alert: %w", scanErr)
	}
	return created, nil
}

// ListAlerts returns every pending alert, oldest first.
func (s *Store) ListAlerts(ctx context.Context) ([]Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAlertsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]Alert, 0)
	for rows.Next() {
		alert, scanErr := scanAlertRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, alert)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlert removes an alert by id. Deleting an already-deleted alert
// is not an error.
func (s *Store) DeleteAlert(ctx context.Context, id uuid.UUID) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertSQL, id); execErr != nil {
		return fmt.Errorf("delete alert: %w", execErr)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func collectSamples(rows pgx.Rows, sizeHint int) ([]PriceSample, error) {
	samples := make([]PriceSample, 0, sizeHint)
	for rows.Next() {
		sample, scanErr := scanSampleRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

func scanSampleRow(row rowScanner) (PriceSample, error) {
	var (
		sample   PriceSample
		priceStr string
	)
	if err := row.Scan(&sample.ID, &sample.Chain, &priceStr, &sample.SampledAt); err != nil {
		return PriceSample{}, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return PriceSample{}, fmt.Errorf("parse sample price: %w", err)
	}
	sample.Price = price
	return sample, nil
}

func scanAlertRow(row rowScanner) (Alert, error) {
	var (
		alert     Alert
		targetStr string
	)
	if err := row.Scan(&alert.ID, &alert.Chain, &targetStr, &alert.Email, &alert.CreatedAt); err != nil {
		return Alert{}, err
	}

	target, err := decimal.NewFromString(targetStr)
	if err != nil {
		return Alert{}, fmt.Errorf("parse alert target price: %w", err)
	}
	alert.TargetPrice = target
	return alert, nil
}
