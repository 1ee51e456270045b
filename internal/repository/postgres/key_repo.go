package postgres

import (
	"context"
	"errors"

	"github.com/and161185/cryptachat/internal/errs"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// KeyRepo implements KeyRepository using PostgreSQL.
type KeyRepo struct{ db *DB }

// NewKeyRepo constructs a key repository.
func NewKeyRepo(db *DB) *KeyRepo { return &KeyRepo{db: db} }

// Upsert stores publicKey as the user's only key. No history is kept.
func (r *KeyRepo) Upsert(ctx context.Context, userID uuid.UUID, publicKey string) error {
	const q = `
INSERT INTO public_keys (user_id, public_key) VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET public_key = EXCLUDED.public_key, updated_at = now()`
	_, err := r.db.Pool.Exec(ctx, q, userID, publicKey)
	if isForeignKeyViolation(err) {
		return errs.ErrNotFound
	}
	return err
}

// GetByUsername returns the current key of username.
func (r *KeyRepo) GetByUsername(ctx context.Context, username string) (string, error) {
	const q = `
SELECT pk.public_key
FROM public_keys pk
JOIN users u ON u.id = pk.user_id
WHERE u.username = $1`
	var key string
	if err := r.db.Pool.QueryRow(ctx, q, username).Scan(&key); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errs.ErrNotFound
		}
		return "", err
	}
	return key, nil
}
