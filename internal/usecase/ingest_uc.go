// File: internal/usecase/ingest_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"blueprint-chat/internal/domain/ports/adapter"
)

// Compile-time check
var _ IngestUseCase = (*ingestUC)(nil)

// IngestUseCase prepares a document for retrieval: download, upload to the
// provider file store, create a vector store and attach the file. It does NOT
// wait for indexing; that is the poller's job, since indexing is asynchronous
// on the provider side.
type IngestUseCase interface {
	Ingest(ctx context.Context, documentURL, documentName string) (fileRef, vectorStoreRef string, err error)
}

type ingestUC struct {
	fetcher adapter.DocumentFetcher
	files   adapter.FileStore
	vs      adapter.VectorStore
	log     *zerolog.Logger
}

func NewIngestUseCase(fetcher adapter.DocumentFetcher, files adapter.FileStore, vs adapter.VectorStore, logger *zerolog.Logger) *ingestUC {
	return &ingestUC{fetcher: fetcher, files: files, vs: vs, log: logger}
}

func (u *ingestUC) Ingest(ctx context.Context, documentURL, documentName string) (string, string, error) {
	data, err := u.fetcher.Fetch(ctx, documentURL)
	if err != nil {
		return "", "", err
	}

	fileRef, err := u.files.UploadFile(ctx, documentName, data)
	if err != nil {
		return "", "", err
	}
	u.log.Debug().Str("file_ref", fileRef).Int("bytes", len(data)).Msg("document uploaded")

	vsRef, err := u.vs.CreateVectorStore(ctx, "Chat - "+documentName)
	if err != nil {
		// the uploaded file is now orphaned on the provider side; callers do
		// not roll back, so record it for reconciliation
		u.log.Warn().Str("file_ref", fileRef).Msg("vector store creation failed, uploaded file orphaned")
		return "", "", err
	}

	if err := u.vs.AttachFile(ctx, vsRef, fileRef); err != nil {
		u.log.Warn().Str("file_ref", fileRef).Str("vector_store_ref", vsRef).Msg("attach failed, provider resources orphaned")
		return "", "", err
	}
	return fileRef, vsRef, nil
}
