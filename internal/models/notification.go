package models

import (
	"encoding/json"
	"time"
)

// Notification types
const (
	NotificationTypeComment = "comment"
	NotificationTypeReply   = "reply"
	NotificationTypeLike    = "like"
	NotificationTypeSystem  = "system"
)

// Notification is a message addressed to the current user.
type Notification struct {
	ID          uint      `json:"id"`
	Type        string    `json:"type"`
	Content     string    `json:"content"`
	Read        bool      `json:"read"`
	SenderID    *uint     `json:"senderId,omitempty"`
	PostID      *uint     `json:"postId,omitempty"`
	CommentID   *uint     `json:"commentId,omitempty"`
	RedirectURL string    `json:"redirectUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UnmarshalJSON accepts the read flag under either "read" or "isRead".
func (n *Notification) UnmarshalJSON(data []byte) error {
	type plain Notification
	aux := struct {
		*plain
		IsRead *bool `json:"isRead"`
	}{plain: (*plain)(n)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.IsRead != nil {
		n.Read = *aux.IsRead
	}
	return nil
}
