package postgres

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"

	"github.com/and161185/cryptachat/internal/errs"
	"github.com/and161185/cryptachat/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// MessageRepo implements MessageRepository using PostgreSQL.
type MessageRepo struct{ db *DB }

// NewMessageRepo constructs a message repository.
func NewMessageRepo(db *DB) *MessageRepo { return &MessageRepo{db: db} }

// pairLockKey maps an unordered user pair to an advisory lock key.
func pairLockKey(a, b uuid.UUID) int64 {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	h := fnv.New64a()
	_, _ = h.Write(a.Bytes())
	_, _ = h.Write(b.Bytes())
	return int64(h.Sum64())
}

// Append stores one envelope. Sends within a conversation are serialized by an
// advisory lock held until commit, so ids, commit order and timestamps agree and
// a poller never sees id N+1 before id N.
func (r *MessageRepo) Append(
	ctx context.Context, senderID uuid.UUID, recipientUsername string, senderBlob, recipientBlob model.EncryptedBlob,
) (msg *model.Message, err error) {
	err = r.db.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		recipientID, err := resolveUserID(ctx, tx, recipientUsername)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, pairLockKey(senderID, recipientID)); err != nil {
			return err
		}
		const ins = `
INSERT INTO messages (sender_id, recipient_id, sender_blob, recipient_blob, timestamp)
VALUES ($1, $2, $3, $4, clock_timestamp())
RETURNING id, timestamp`
		m := model.Message{
			SenderID:      senderID,
			RecipientID:   recipientID,
			SenderBlob:    senderBlob,
			RecipientBlob: recipientBlob,
		}
		if err := tx.QueryRow(ctx, ins, senderID, recipientID, string(senderBlob), string(recipientBlob)).
			Scan(&m.ID, &m.Timestamp); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("sender gone: %w", errs.ErrNotFound)
			}
			return err
		}
		msg = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Since returns the conversation between myID and partnerUsername after sinceID,
// ordered by timestamp then id.
func (r *MessageRepo) Since(ctx context.Context, myID uuid.UUID, partnerUsername string, sinceID int64) ([]model.MessageView, error) {
	partnerID, err := resolveUserID(ctx, r.db.Pool, partnerUsername)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT m.id, m.sender_id, m.recipient_id, m.timestamp, u.username,
       CASE WHEN m.sender_id = $1 THEN m.sender_blob ELSE m.recipient_blob END
FROM messages m
JOIN users u ON u.id = m.sender_id
WHERE ((m.sender_id = $1 AND m.recipient_id = $2) OR (m.sender_id = $2 AND m.recipient_id = $1))
  AND m.id > $3
ORDER BY m.timestamp ASC, m.id ASC`
	rows, err := r.db.Pool.Query(ctx, q, myID, partnerID, sinceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.MessageView{}
	for rows.Next() {
		var (
			v    model.MessageView
			blob string
		)
		if err := rows.Scan(&v.ID, &v.SenderID, &v.RecipientID, &v.Timestamp, &v.SenderUsername, &blob); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		v.EncryptedBlob = model.EncryptedBlob(blob)
		out = append(out, v)
	}
	return out, rows.Err()
}
