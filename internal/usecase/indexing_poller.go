// File: internal/usecase/indexing_poller.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"blueprint-chat/internal/config"
	"blueprint-chat/internal/domain"
	"blueprint-chat/internal/domain/ports/adapter"
	"blueprint-chat/internal/infra/metrics"
)

// IndexAwaiter blocks until a vector store file reaches a terminal state.
type IndexAwaiter interface {
	AwaitIndexed(ctx context.Context, vectorStoreRef, fileRef string) error
}

var _ IndexAwaiter = (*IndexingPoller)(nil)

// IndexingPoller is a bounded fixed-interval poll of the provider's file
// status. A provider-reported failure is permanent for that file; the attempt
// cap is the only other way out. The sleep function is injectable so tests can
// run the full attempt budget without wall-clock delay.
type IndexingPoller struct {
	vs adapter.VectorStore

	initialDelay time.Duration
	interval     time.Duration
	maxAttempts  int

	sleep func(ctx context.Context, d time.Duration) error
	log   *zerolog.Logger
}

func NewIndexingPoller(vs adapter.VectorStore, cfg config.IngestConfig, logger *zerolog.Logger) *IndexingPoller {
	return &IndexingPoller{
		vs:           vs,
		initialDelay: cfg.PollInit0Delay,
		interval:     cfg.PollInterval,
		maxAttempts:  cfg.PollMaxAttempts,
		sleep:        sleepCtx,
		log:          logger,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *IndexingPoller) AwaitIndexed(ctx context.Context, vectorStoreRef, fileRef string) error {
	start := time.Now()
	// give the provider time to register the file before the first check
	if err := p.sleep(ctx, p.initialDelay); err != nil {
		return err
	}
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		status, lastErr, err := p.vs.FileStatus(ctx, vectorStoreRef, fileRef)
		if err != nil {
			metrics.ObserveIndexingWait(attempt, time.Since(start).Seconds(), false)
			return err
		}
		switch status {
		case adapter.IndexCompleted:
			metrics.ObserveIndexingWait(attempt, time.Since(start).Seconds(), true)
			p.log.Debug().Str("vector_store", vectorStoreRef).Int("attempts", attempt).Msg("indexing completed")
			return nil
		case adapter.IndexFailed, adapter.IndexCancelled:
			metrics.ObserveIndexingWait(attempt, time.Since(start).Seconds(), false)
			if lastErr != "" {
				return fmt.Errorf("%w: %s", domain.ErrIndexingFailed, lastErr)
			}
			return domain.ErrIndexingFailed
		}
		if attempt < p.maxAttempts {
			if err := p.sleep(ctx, p.interval); err != nil {
				return err
			}
		}
	}
	metrics.ObserveIndexingWait(p.maxAttempts, time.Since(start).Seconds(), false)
	return fmt.Errorf("%w: after %d attempts", domain.ErrIndexingTimeout, p.maxAttempts)
}
