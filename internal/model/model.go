// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Chat request states. Accepted is terminal; there is no rejected state.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

// User represents an account stored on the server. The password hash is never exposed.
type User struct {
	ID           uuid.UUID // PK
	Username     string    // unique, case-sensitive, immutable
	PasswordHash string    // self-describing encoded hash (argon2id or bcrypt)
	CreatedAt    time.Time
}

// Identity is what a verified session token asserts.
type Identity struct {
	UserID   uuid.UUID
	Username string
}

// Tokens collects an issued session token.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time
}

// PublicKey is the single current key of a user (last write wins).
type PublicKey struct {
	UserID    uuid.UUID
	PublicKey string
}

// ChatRequest is a directed edge requester -> requested.
type ChatRequest struct {
	ID          int64
	RequesterID uuid.UUID
	RequestedID uuid.UUID
	Status      string
}

// PendingRequest is a pending request as seen by the requested party.
type PendingRequest struct {
	RequesterUsername string
	Status            string
}

// EncryptedBlob is an opaque ciphertext produced on the client side.
type EncryptedBlob string

// Message is an immutable envelope carrying one ciphertext per party.
type Message struct {
	ID            int64 // store-assigned, strictly increasing; the sync cursor
	SenderID      uuid.UUID
	RecipientID   uuid.UUID
	SenderBlob    EncryptedBlob
	RecipientBlob EncryptedBlob
	Timestamp     time.Time
}

// MessageView is a message as seen by one of its parties: only the blob
// addressed to the caller's role is exposed.
type MessageView struct {
	ID             int64
	SenderID       uuid.UUID
	RecipientID    uuid.UUID
	Timestamp      time.Time
	SenderUsername string
	EncryptedBlob  EncryptedBlob
}

// CascadeResult reports rows removed by an administrative user deletion.
type CascadeResult struct {
	PublicKeys   int64
	Messages     int64
	ChatRequests int64
	Users        int64
}
