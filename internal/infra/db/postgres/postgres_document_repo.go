// File: internal/infra/db/postgres/postgres_document_repo.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"blueprint-chat/internal/domain"
	"blueprint-chat/internal/domain/model"
	"blueprint-chat/internal/domain/ports/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

type DocumentRepo struct {
	pool *pgxpool.Pool
}

func NewDocumentRepo(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

func (r *DocumentRepo) Save(ctx context.Context, d *model.Document) error {
	const q = `
INSERT INTO documents (id, owner_id, name, source_url, content_type, size_bytes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,COALESCE($7,NOW()),NOW())
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  source_url = EXCLUDED.source_url,
  content_type = EXCLUDED.content_type,
  size_bytes = EXCLUDED.size_bytes,
  updated_at = NOW();`
	_, err := r.pool.Exec(ctx, q, d.ID, d.OwnerID, d.Name, d.SourceURL, d.ContentType, d.SizeBytes, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (r *DocumentRepo) FindByOwner(ctx context.Context, id, ownerID string) (*model.Document, error) {
	const q = `SELECT id, owner_id, name, source_url, content_type, size_bytes, created_at, updated_at
  FROM documents WHERE id=$1 AND owner_id=$2;`
	var d model.Document
	err := r.pool.QueryRow(ctx, q, id, ownerID).Scan(
		&d.ID, &d.OwnerID, &d.Name, &d.SourceURL, &d.ContentType, &d.SizeBytes, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &d, nil
}

func (r *DocumentRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Document, error) {
	const q = `SELECT id, owner_id, name, source_url, content_type, size_bytes, created_at, updated_at
  FROM documents WHERE owner_id=$1 ORDER BY created_at DESC;`
	rows, err := r.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()
	var out []*model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Name, &d.SourceURL, &d.ContentType, &d.SizeBytes, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
