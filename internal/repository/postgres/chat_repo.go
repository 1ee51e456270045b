package postgres

import (
	"context"
	"fmt"

	"github.com/and161185/cryptachat/internal/errs"
	"github.com/and161185/cryptachat/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// ChatRepo implements ChatRepository using PostgreSQL.
type ChatRepo struct{ db *DB }

// NewChatRepo constructs a chat request repository.
func NewChatRepo(db *DB) *ChatRepo { return &ChatRepo{db: db} }

// CreateRequest inserts a pending request requesterID -> requestedUsername.
// The unique (requester_id, requested_id) constraint decides races.
func (r *ChatRepo) CreateRequest(ctx context.Context, requesterID uuid.UUID, requestedUsername string) error {
	return r.db.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		requestedID, err := resolveUserID(ctx, tx, requestedUsername)
		if err != nil {
			return err
		}
		if requestedID == requesterID {
			return errs.Validation("cannot send chat request to yourself")
		}
		const ins = `INSERT INTO chat_requests (requester_id, requested_id, status) VALUES ($1, $2, $3)`
		_, err = tx.Exec(ctx, ins, requesterID, requestedID, model.StatusPending)
		switch {
		case isUniqueViolation(err):
			return errs.ErrDuplicateRequest
		case isForeignKeyViolation(err):
			return errs.ErrNotFound
		}
		return err
	})
}

// Accept flips the pending row (requester=requesterUsername, requested=accepterID) to accepted.
func (r *ChatRepo) Accept(ctx context.Context, accepterID uuid.UUID, requesterUsername string) error {
	return r.db.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		requesterID, err := resolveUserID(ctx, tx, requesterUsername)
		if err != nil {
			return err
		}
		const upd = `
UPDATE chat_requests SET status = $3
WHERE requester_id = $1 AND requested_id = $2 AND status = $4`
		tag, err := tx.Exec(ctx, upd, requesterID, accepterID, model.StatusAccepted, model.StatusPending)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNoPendingRequest
		}
		return nil
	})
}

// ListPending returns pending requests addressed to userID in insertion order.
func (r *ChatRepo) ListPending(ctx context.Context, userID uuid.UUID) ([]model.PendingRequest, error) {
	const q = `
SELECT u.username, cr.status
FROM chat_requests cr
JOIN users u ON u.id = cr.requester_id
WHERE cr.requested_id = $1 AND cr.status = $2
ORDER BY cr.id ASC`
	rows, err := r.db.Pool.Query(ctx, q, userID, model.StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.PendingRequest{}
	for rows.Next() {
		var p model.PendingRequest
		if err := rows.Scan(&p.RequesterUsername, &p.Status); err != nil {
			return nil, fmt.Errorf("scan pending request: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListContacts returns the deduplicated usernames reachable through an accepted
// request in either direction.
func (r *ChatRepo) ListContacts(ctx context.Context, userID uuid.UUID) ([]string, error) {
	const q = `
SELECT u.username
FROM chat_requests cr
JOIN users u ON u.id = cr.requested_id
WHERE cr.requester_id = $1 AND cr.status = $2
UNION
SELECT u.username
FROM chat_requests cr
JOIN users u ON u.id = cr.requester_id
WHERE cr.requested_id = $1 AND cr.status = $2
ORDER BY 1`
	rows, err := r.db.Pool.Query(ctx, q, userID, model.StatusAccepted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
