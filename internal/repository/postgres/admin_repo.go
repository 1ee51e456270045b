package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/cryptachat/internal/errs"
	"github.com/and161185/cryptachat/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// AdminRepo implements AdminRepository using PostgreSQL.
type AdminRepo struct{ db *DB }

// NewAdminRepo constructs the privileged admin repository.
func NewAdminRepo(db *DB) *AdminRepo { return &AdminRepo{db: db} }

func (r *AdminRepo) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, username, created_at FROM users ORDER BY created_at ASC, username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *AdminRepo) ListPublicKeys(ctx context.Context) ([]model.PublicKey, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT user_id, public_key FROM public_keys ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PublicKey{}
	for rows.Next() {
		var k model.PublicKey
		if err := rows.Scan(&k.UserID, &k.PublicKey); err != nil {
			return nil, fmt.Errorf("scan public key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *AdminRepo) ListMessages(ctx context.Context) ([]model.Message, error) {
	const q = `
SELECT id, sender_id, recipient_id, sender_blob, recipient_blob, timestamp
FROM messages ORDER BY id ASC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Message{}
	for rows.Next() {
		var (
			m      model.Message
			sb, rb string
		)
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &sb, &rb, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.SenderBlob, m.RecipientBlob = model.EncryptedBlob(sb), model.EncryptedBlob(rb)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *AdminRepo) ListChatRequests(ctx context.Context) ([]model.ChatRequest, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, requester_id, requested_id, status FROM chat_requests ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ChatRequest{}
	for rows.Next() {
		var c model.ChatRequest
		if err := rows.Scan(&c.ID, &c.RequesterID, &c.RequestedID, &c.Status); err != nil {
			return nil, fmt.Errorf("scan chat request: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountReferences reports the rows a cascade delete of userID would remove.
func (r *AdminRepo) CountReferences(ctx context.Context, userID uuid.UUID) (model.CascadeResult, error) {
	const q = `
SELECT
  (SELECT count(*) FROM public_keys WHERE user_id = $1),
  (SELECT count(*) FROM messages WHERE sender_id = $1 OR recipient_id = $1),
  (SELECT count(*) FROM chat_requests WHERE requester_id = $1 OR requested_id = $1),
  (SELECT count(*) FROM users WHERE id = $1)`
	var res model.CascadeResult
	if err := r.db.Pool.QueryRow(ctx, q, userID).Scan(&res.PublicKeys, &res.Messages, &res.ChatRequests, &res.Users); err != nil {
		return model.CascadeResult{}, err
	}
	if res.Users == 0 {
		return model.CascadeResult{}, fmt.Errorf("user %s: %w", userID, errs.ErrNotFound)
	}
	return res, nil
}

// DeleteUserCascade removes every row referencing userID, the login throttle
// state for its username, and then the user itself.
// Either all deletes are visible or none.
func (r *AdminRepo) DeleteUserCascade(ctx context.Context, userID uuid.UUID) (res model.CascadeResult, err error) {
	err = r.db.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var one int
		if err := tx.QueryRow(ctx, `SELECT 1 FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(&one); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("user %s: %w", userID, errs.ErrNotFound)
			}
			return err
		}
		steps := []struct {
			sql string
			n   *int64
		}{
			{`DELETE FROM public_keys WHERE user_id=$1`, &res.PublicKeys},
			{`DELETE FROM messages WHERE sender_id=$1 OR recipient_id=$1`, &res.Messages},
			{`DELETE FROM chat_requests WHERE requester_id=$1 OR requested_id=$1`, &res.ChatRequests},
			// auth_limiter is keyed by username, not user id.
			{`DELETE FROM auth_limiter WHERE username = (SELECT username FROM users WHERE id=$1)`, nil},
			{`DELETE FROM users WHERE id=$1`, &res.Users},
		}
		for _, s := range steps {
			tag, err := tx.Exec(ctx, s.sql, userID)
			if err != nil {
				return err
			}
			if s.n != nil {
				*s.n = tag.RowsAffected()
			}
		}
		return nil
	})
	if err != nil {
		return model.CascadeResult{}, err
	}
	return res, nil
}
