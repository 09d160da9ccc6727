// File: internal/usecase/session_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"blueprint-chat/internal/domain"
	"blueprint-chat/internal/domain/model"
	"blueprint-chat/internal/domain/ports/adapter"
	"blueprint-chat/internal/domain/ports/repository"
	"blueprint-chat/internal/infra/logging"
	"blueprint-chat/internal/infra/metrics"
	red "blueprint-chat/internal/infra/redis"
)

const (
	initLockTTL     = 2 * time.Minute
	maxPromptTokens = 8000
)

// Compile-time check
var _ SessionUseCase = (*sessionUC)(nil)

// SessionUseCase is the lifecycle controller: it owns the ingest -> poll ->
// conversation sequence, the idempotent-reuse lookup, and best-effort
// teardown of provider resources.
type SessionUseCase interface {
	// InitSession returns the active session for (document, owner), creating
	// it if absent. The bool is false when an existing session was reused.
	InitSession(ctx context.Context, documentID, ownerID string) (*model.ChatSession, bool, error)
	History(ctx context.Context, sessionID, ownerID string) ([]model.Message, error)
	SendMessage(ctx context.Context, sessionID, ownerID, text string) (model.Message, error)
	ListSessions(ctx context.Context, ownerID string) ([]*model.ChatSession, error)
	CleanupSession(ctx context.Context, sessionID, ownerID string) (*model.CleanupReport, error)
}

type sessionUC struct {
	sessions repository.ChatSessionRepository
	docs     repository.DocumentRepository
	ingest   IngestUseCase
	poller   IndexAwaiter
	conv     ConversationUseCase

	files     adapter.FileStore
	vectors   adapter.VectorStore
	convStore adapter.ConversationStore
	tokens    adapter.TokenCounter

	locker red.Locker
	log    *zerolog.Logger
}

func NewSessionUseCase(
	sessions repository.ChatSessionRepository,
	docs repository.DocumentRepository,
	ingest IngestUseCase,
	poller IndexAwaiter,
	conv ConversationUseCase,
	files adapter.FileStore,
	vectors adapter.VectorStore,
	convStore adapter.ConversationStore,
	tokens adapter.TokenCounter,
	locker red.Locker,
	logger *zerolog.Logger,
) *sessionUC {
	return &sessionUC{
		sessions:  sessions,
		docs:      docs,
		ingest:    ingest,
		poller:    poller,
		conv:      conv,
		files:     files,
		vectors:   vectors,
		convStore: convStore,
		tokens:    tokens,
		locker:    locker,
		log:       logger,
	}
}

func (u *sessionUC) InitSession(ctx context.Context, documentID, ownerID string) (*model.ChatSession, bool, error) {
	defer logging.TraceDuration(u.log, "SessionUC.InitSession")()

	doc, err := u.docs.FindByOwner(ctx, documentID, ownerID)
	if err != nil {
		return nil, false, err
	}

	// Serialize initializers for the same pair so only one pays for
	// ingestion; the unique index below is the hard invariant.
	if u.locker != nil {
		key := "chat:init:" + documentID + ":" + ownerID
		token, err := u.locker.TryLock(ctx, key, initLockTTL)
		if err != nil {
			return nil, false, err
		}
		defer func() { _ = u.locker.Unlock(ctx, key, token) }()
	}

	if s, err := u.sessions.FindActiveByDocument(ctx, documentID, ownerID); err == nil {
		metrics.IncSessionInit("reused")
		return s, false, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	fileRef, vsRef, err := u.ingest.Ingest(ctx, doc.SourceURL, doc.Name)
	if err != nil {
		metrics.IncSessionInit("failed")
		return nil, false, err
	}
	if err := u.poller.AwaitIndexed(ctx, vsRef, fileRef); err != nil {
		metrics.IncSessionInit("failed")
		return nil, false, err
	}
	convRef, err := u.conv.Create(ctx, adapter.ConversationMeta{
		DocumentID:   documentID,
		OwnerID:      ownerID,
		DocumentName: doc.Name,
	})
	if err != nil {
		metrics.IncSessionInit("failed")
		return nil, false, err
	}

	s := model.NewChatSession(uuid.NewString(), documentID, ownerID, "Chat - "+doc.Name)
	s.ConversationRef = convRef
	s.VectorStoreRef = vsRef
	s.FileRef = fileRef
	if err := u.sessions.Create(ctx, s); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// lost the race to a concurrent initializer; reuse its session
			// (our provider resources are orphaned, same as any late failure)
			u.log.Warn().Str("document_id", documentID).Msg("duplicate init detected, reusing winner's session")
			if existing, ferr := u.sessions.FindActiveByDocument(ctx, documentID, ownerID); ferr == nil {
				metrics.IncSessionInit("reused")
				return existing, false, nil
			}
		}
		metrics.IncSessionInit("failed")
		return nil, false, err
	}
	metrics.IncSessionInit("created")
	u.log.Info().Str("session_id", s.ID).Str("document_id", documentID).Msg("chat session created")
	return s, true, nil
}

func (u *sessionUC) History(ctx context.Context, sessionID, ownerID string) ([]model.Message, error) {
	s, err := u.activeSession(ctx, sessionID, ownerID)
	if err != nil {
		return nil, err
	}
	return u.conv.ListMessages(ctx, s.ConversationRef)
}

func (u *sessionUC) SendMessage(ctx context.Context, sessionID, ownerID, text string) (model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Message{}, domain.ErrInvalidArgument
	}
	s, err := u.activeSession(ctx, sessionID, ownerID)
	if err != nil {
		return model.Message{}, err
	}
	if u.tokens != nil {
		if n, err := u.tokens.CountTokens(text); err == nil && n > maxPromptTokens {
			return model.Message{}, fmt.Errorf("%w: message exceeds %d tokens", domain.ErrInvalidArgument, maxPromptTokens)
		}
	}

	item, err := u.convStore.Respond(ctx, s.ConversationRef, s.VectorStoreRef, text)
	if err != nil {
		return model.Message{}, err
	}
	_ = u.sessions.Touch(ctx, s.ID)
	return projectMessage(item), nil
}

func (u *sessionUC) ListSessions(ctx context.Context, ownerID string) ([]*model.ChatSession, error) {
	return u.sessions.ListByOwner(ctx, ownerID)
}

func (u *sessionUC) CleanupSession(ctx context.Context, sessionID, ownerID string) (*model.CleanupReport, error) {
	defer logging.TraceDuration(u.log, "SessionUC.CleanupSession")()

	s, err := u.sessions.FindByID(ctx, sessionID, ownerID)
	if err != nil {
		return nil, err
	}

	// Best-effort reclamation: each deletion is attempted regardless of the
	// previous one's outcome. Provider resources are billed/expired
	// independently; the local flag only gates session reuse.
	report := &model.CleanupReport{SessionID: s.ID}
	var failed []string

	if s.ConversationRef != "" {
		if err := u.convStore.DeleteConversation(ctx, s.ConversationRef); err != nil {
			u.log.Warn().Err(err).Str("session_id", s.ID).Msg("conversation delete failed")
			failed = append(failed, "conversation")
		} else {
			report.ConversationDeleted = true
		}
	}
	if s.VectorStoreRef != "" {
		if err := u.vectors.DeleteVectorStore(ctx, s.VectorStoreRef); err != nil {
			u.log.Warn().Err(err).Str("session_id", s.ID).Msg("vector store delete failed")
			failed = append(failed, "vector_store")
		} else {
			report.VectorStoreDeleted = true
		}
	}
	if s.FileRef != "" {
		if err := u.files.DeleteFile(ctx, s.FileRef); err != nil {
			u.log.Warn().Err(err).Str("session_id", s.ID).Msg("file delete failed")
			failed = append(failed, "file")
		} else {
			report.FileDeleted = true
		}
	}

	if err := u.sessions.Deactivate(ctx, s.ID); err != nil {
		return nil, err
	}
	report.Deactivated = true
	metrics.ObserveCleanup(len(failed) == 0, failed...)
	return report, nil
}

func (u *sessionUC) activeSession(ctx context.Context, sessionID, ownerID string) (*model.ChatSession, error) {
	s, err := u.sessions.FindByID(ctx, sessionID, ownerID)
	if err != nil {
		return nil, err
	}
	if !s.Active {
		return nil, domain.ErrNotFound
	}
	return s, nil
}
