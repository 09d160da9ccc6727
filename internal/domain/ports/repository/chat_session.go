package repository

import (
	"context"

	"blueprint-chat/internal/domain/model"
)

// -----------------------------
// Chat Sessions
// -----------------------------

type ChatSessionRepository interface {
	// Create inserts a new session. Returns domain.ErrAlreadyExists when an
	// active session for the same (document, owner) pair already exists.
	Create(ctx context.Context, session *model.ChatSession) error
	// FindByID scopes by owner; sessions of other owners are ErrNotFound.
	FindByID(ctx context.Context, id, ownerID string) (*model.ChatSession, error)
	FindActiveByDocument(ctx context.Context, documentID, ownerID string) (*model.ChatSession, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.ChatSession, error)
	// Deactivate flips active=false; never physically deletes.
	Deactivate(ctx context.Context, id string) error
	Touch(ctx context.Context, id string) error
}
