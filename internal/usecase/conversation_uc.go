// File: internal/usecase/conversation_uc.go
package usecase

import (
	"context"
	"time"

	"blueprint-chat/internal/domain/model"
	"blueprint-chat/internal/domain/ports/adapter"
)

// history retrieval is a single bounded page; no cursor
const historyPageSize = 100

// Compile-time check
var _ ConversationUseCase = (*conversationUC)(nil)

type ConversationUseCase interface {
	Create(ctx context.Context, meta adapter.ConversationMeta) (string, error)
	// ListMessages projects provider conversation items into Messages:
	// message items only, first input_text/output_text block, empty string
	// when none. Non-text content (citations, attachments) is dropped.
	ListMessages(ctx context.Context, conversationRef string) ([]model.Message, error)
}

type conversationUC struct {
	conv adapter.ConversationStore
}

func NewConversationUseCase(conv adapter.ConversationStore) *conversationUC {
	return &conversationUC{conv: conv}
}

func (u *conversationUC) Create(ctx context.Context, meta adapter.ConversationMeta) (string, error) {
	return u.conv.CreateConversation(ctx, meta)
}

func (u *conversationUC) ListMessages(ctx context.Context, conversationRef string) ([]model.Message, error) {
	items, err := u.conv.ListItems(ctx, conversationRef, historyPageSize)
	if err != nil {
		return nil, err
	}
	out := make([]model.Message, 0, len(items))
	for _, it := range items {
		if it.Type != "message" {
			continue
		}
		out = append(out, projectMessage(it))
	}
	return out, nil
}

func projectMessage(it adapter.ConversationItem) model.Message {
	text := ""
	for _, c := range it.Content {
		if c.Type == "input_text" || c.Type == "output_text" {
			text = c.Text
			break
		}
	}
	return model.Message{
		ID:        it.ID,
		Role:      it.Role,
		Content:   text,
		CreatedAt: time.Unix(it.CreatedAt, 0).UTC(),
	}
}
