// File: internal/infra/db/postgres/postgres_chat_session_repo.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"blueprint-chat/internal/domain"
	"blueprint-chat/internal/domain/model"
	"blueprint-chat/internal/domain/ports/repository"
)

var _ repository.ChatSessionRepository = (*ChatSessionRepo)(nil)

// ChatSessionRepo persists chat sessions. A partial unique index on
// (document_id, owner_id) WHERE active guards the one-active-session
// invariant even under concurrent initialization.
type ChatSessionRepo struct {
	pool *pgxpool.Pool
}

func NewChatSessionRepo(pool *pgxpool.Pool) *ChatSessionRepo {
	return &ChatSessionRepo{pool: pool}
}

const sessionColumns = `id, document_id, owner_id, conversation_ref, vector_store_ref, file_ref, title, active, created_at, updated_at`

func (r *ChatSessionRepo) Create(ctx context.Context, s *model.ChatSession) error {
	const q = `
INSERT INTO chat_sessions (id, document_id, owner_id, conversation_ref, vector_store_ref, file_ref, title, active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,$8,COALESCE($9,NOW()),COALESCE($10,NOW()));`
	_, err := r.pool.Exec(ctx, q,
		s.ID, s.DocumentID, s.OwnerID, s.ConversationRef, s.VectorStoreRef, s.FileRef,
		s.Title, s.Active, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *ChatSessionRepo) FindByID(ctx context.Context, id, ownerID string) (*model.ChatSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE id=$1 AND owner_id=$2;`
	return r.scanOne(r.pool.QueryRow(ctx, q, id, ownerID))
}

func (r *ChatSessionRepo) FindActiveByDocument(ctx context.Context, documentID, ownerID string) (*model.ChatSession, error) {
	q := `SELECT ` + sessionColumns + `
  FROM chat_sessions
 WHERE document_id=$1 AND owner_id=$2 AND active
 ORDER BY created_at DESC LIMIT 1;`
	return r.scanOne(r.pool.QueryRow(ctx, q, documentID, ownerID))
}

func (r *ChatSessionRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.ChatSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE owner_id=$1 ORDER BY created_at DESC;`
	rows, err := r.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()
	var out []*model.ChatSession
	for rows.Next() {
		s, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ChatSessionRepo) Deactivate(ctx context.Context, id string) error {
	const q = `UPDATE chat_sessions SET active=false, updated_at=NOW() WHERE id=$1;`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ChatSessionRepo) Touch(ctx context.Context, id string) error {
	const q = `UPDATE chat_sessions SET updated_at=NOW() WHERE id=$1;`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *ChatSessionRepo) scanOne(row rowScanner) (*model.ChatSession, error) {
	var s model.ChatSession
	var fileRef sql.NullString
	err := row.Scan(&s.ID, &s.DocumentID, &s.OwnerID, &s.ConversationRef, &s.VectorStoreRef,
		&fileRef, &s.Title, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if fileRef.Valid {
		s.FileRef = fileRef.String
	}
	return &s, nil
}
