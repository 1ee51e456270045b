// Package convert maps domain records to wire records.
package convert

import (
	"github.com/and161185/cryptachat/internal/api"
	"github.com/and161185/cryptachat/internal/model"
)

// ToAPIMessages converts message views; a nil input yields an empty slice.
func ToAPIMessages(in []model.MessageView) []api.Message {
	out := make([]api.Message, 0, len(in))
	for _, v := range in {
		out = append(out, ToAPIMessage(v))
	}
	return out
}

// ToAPIMessage converts one message view.
func ToAPIMessage(v model.MessageView) api.Message {
	return api.Message{
		ID:             v.ID,
		SenderID:       v.SenderID.String(),
		RecipientID:    v.RecipientID.String(),
		Timestamp:      v.Timestamp.UTC(),
		SenderUsername: v.SenderUsername,
		EncryptedBlob:  string(v.EncryptedBlob),
	}
}

// ToAPIPending converts pending requests; a nil input yields an empty slice.
func ToAPIPending(in []model.PendingRequest) []api.PendingRequest {
	out := make([]api.PendingRequest, 0, len(in))
	for _, p := range in {
		out = append(out, api.PendingRequest{RequesterUsername: p.RequesterUsername, Status: p.Status})
	}
	return out
}

// ToAPIContacts never returns nil so the wire shows [] rather than null.
func ToAPIContacts(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// ToAPILogin builds the login payload.
func ToAPILogin(tok model.Tokens, u model.User) api.LoginResponse {
	return api.LoginResponse{
		Message:   "Login successful",
		Token:     tok.AccessToken,
		ExpiresAt: tok.ExpiresAt.UTC(),
		UserID:    u.ID.String(),
	}
}

// ToAPISent builds the send confirmation.
func ToAPISent(m *model.Message) api.SendMessageResponse {
	return api.SendMessageResponse{Message: "Message sent successfully.", ID: m.ID, Timestamp: m.Timestamp.UTC()}
}
