package repository

import (
	"context"

	"blueprint-chat/internal/domain/model"
)

type DocumentRepository interface {
	Save(ctx context.Context, doc *model.Document) error
	// FindByOwner returns ErrNotFound when the document is absent or owned by
	// a different identity.
	FindByOwner(ctx context.Context, id, ownerID string) (*model.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Document, error)
}
