package storage

import "context"

const migrationSQL = `
CREATE TABLE IF NOT EXISTS price_samples (
    id BIGSERIAL PRIMARY KEY,
    chain TEXT NOT NULL,
    price NUMERIC(30,10) NOT NULL,
    sampled_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_price_samples_chain_time
    ON price_samples (chain, sampled_at DESC);

CREATE TABLE IF NOT EXISTS alerts (
    id UUID PRIMARY KEY,
    chain TEXT NOT NULL,
    target_price NUMERIC(30,10) NOT NULL CHECK (target_price > 0),
    email TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate applies the schema. All statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, migrationSQL)
	return err
}
