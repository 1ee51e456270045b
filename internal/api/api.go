// Package api holds the request and response records exchanged by the HTTP and
// gRPC surfaces and the CLI.
package api

import "time"

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UploadKeyRequest struct {
	PublicKey string `json:"public_key"`
}

type GetKeyRequest struct {
	Username string `json:"username"`
}

type ChatRequestRequest struct {
	RecipientUsername string `json:"recipient_username"`
}

type AcceptChatRequest struct {
	RequesterUsername string `json:"requester_username"`
}

type SendMessageRequest struct {
	RecipientUsername string `json:"recipient_username"`
	SenderBlob        string `json:"sender_blob"`
	RecipientBlob     string `json:"recipient_blob"`
}

type GetMessagesRequest struct {
	Username string `json:"username"`
	SinceID  int64  `json:"since_id"`
}

// Empty is the request of operations without input.
type Empty struct{}

// Status is the confirmation returned by operations without a payload.
type Status struct {
	Message string `json:"message"`
}

// Error is the body of every failed call.
type Error struct {
	Message string `json:"message"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

type LoginResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
}

type KeyResponse struct {
	Username  string `json:"username"`
	PublicKey string `json:"public_key"`
}

type PendingRequest struct {
	RequesterUsername string `json:"requester_username"`
	Status            string `json:"status"`
}

type PendingRequestsResponse struct {
	PendingRequests []PendingRequest `json:"pending_requests"`
}

type ContactsResponse struct {
	Contacts []string `json:"contacts"`
}

type Message struct {
	ID             int64     `json:"id"`
	SenderID       string    `json:"sender_id"`
	RecipientID    string    `json:"recipient_id"`
	Timestamp      time.Time `json:"timestamp"`
	SenderUsername string    `json:"sender_username"`
	EncryptedBlob  string    `json:"encrypted_blob"`
}

type MessagesResponse struct {
	Messages []Message `json:"messages"`
}

// SendMessageResponse confirms a send and returns the assigned cursor.
type SendMessageResponse struct {
	Message   string    `json:"message"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}
