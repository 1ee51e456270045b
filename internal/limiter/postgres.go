package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of a pgx pool the limiter needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PG keeps lockout state in the auth_limiter table.
type PG struct {
	q      Querier
	policy Policy
	now    func() time.Time
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(q Querier, p Policy) *PG {
	return &PG{q: q, policy: p, now: time.Now}
}

// Allow reports the remaining block time for k, or zero.
func (l *PG) Allow(ctx context.Context, k Key) (time.Duration, error) {
	const q = `SELECT blocked_until FROM auth_limiter WHERE username=$1 AND client_hash=$2`
	var blockedUntil time.Time
	err := l.q.QueryRow(ctx, q, k.Username, k.ClientHash).Scan(&blockedUntil)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return 0, nil
	case err != nil:
		return 0, err
	}
	if wait := blockedUntil.Sub(l.now()); wait > 0 {
		return wait, nil
	}
	return 0, nil
}

// Success resets counters for k.
func (l *PG) Success(ctx context.Context, k Key) error {
	const q = `
INSERT INTO auth_limiter (username, client_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 0, 'epoch', now())
ON CONFLICT (username, client_hash)
DO UPDATE SET fail_count = 0, blocked_until = 'epoch', updated_at = now()`
	_, err := l.q.Exec(ctx, q, k.Username, k.ClientHash)
	return err
}

// Failure counts a failed attempt. Failures older than the window restart the count.
func (l *PG) Failure(ctx context.Context, k Key) (time.Duration, error) {
	const q = `
INSERT INTO auth_limiter (username, client_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 1, 'epoch', now())
ON CONFLICT (username, client_hash) DO UPDATE
SET
  fail_count = CASE WHEN now() - auth_limiter.updated_at > $3::interval THEN 1 ELSE auth_limiter.fail_count + 1 END,
  updated_at = now()
RETURNING fail_count`
	var fails int
	if err := l.q.QueryRow(ctx, q, k.Username, k.ClientHash, l.policy.Window).Scan(&fails); err != nil {
		return 0, err
	}
	if !l.policy.Enabled() || fails < l.policy.MaxFails {
		return 0, nil
	}
	const upd = `UPDATE auth_limiter SET blocked_until=$3 WHERE username=$1 AND client_hash=$2`
	if _, err := l.q.Exec(ctx, upd, k.Username, k.ClientHash, l.now().Add(l.policy.BlockFor)); err != nil {
		return 0, err
	}
	return l.policy.BlockFor, nil
}
