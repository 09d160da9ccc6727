package model

import (
	"time"
)

// Message is one chat turn reconstructed from the provider conversation.
// Messages are never persisted locally; the provider is the source of truth.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" | "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSession binds one blueprint document to its provider-side
// (file, vector store, conversation) triple. One active session per
// (document, owner) pair.
type ChatSession struct {
	ID              string    `json:"id"`
	DocumentID      string    `json:"document_id"`
	OwnerID         string    `json:"owner_id"`
	ConversationRef string    `json:"conversation_ref"`
	VectorStoreRef  string    `json:"vector_store_ref"`
	FileRef         string    `json:"file_ref,omitempty"`
	Title           string    `json:"title"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func NewChatSession(id, documentID, ownerID, title string) *ChatSession {
	now := time.Now()
	return &ChatSession{
		ID:         id,
		DocumentID: documentID,
		OwnerID:    ownerID,
		Title:      title,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// CleanupReport records the per-resource outcome of a best-effort teardown.
// The HTTP contract only exposes a boolean; the report keeps the suppression
// of individual provider failures an explicit, observable decision.
type CleanupReport struct {
	SessionID           string `json:"session_id"`
	ConversationDeleted bool   `json:"conversation_deleted"`
	VectorStoreDeleted  bool   `json:"vector_store_deleted"`
	FileDeleted         bool   `json:"file_deleted"`
	Deactivated         bool   `json:"deactivated"`
}
