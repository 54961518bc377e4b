package models

import "time"

// Conversation is a support thread. UserID is nil for guest conversations.
// UpdatedAt always equals CreatedAt of the newest message.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"userId"`
	UserName  *string   `json:"userName"`
	UserPhone *string   `json:"userPhone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message belongs to exactly one conversation. IsUser is false for
// operator or system replies.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Content        string    `json:"content"`
	IsUser         bool      `json:"isUser"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ConversationPreview is a conversation together with its latest message
// only. Messages holds zero or one element.
type ConversationPreview struct {
	Conversation
	Messages []*Message `json:"messages"`
}
