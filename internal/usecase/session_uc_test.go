// File: internal/usecase/session_uc_test.go
package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"blueprint-chat/internal/config"
	"blueprint-chat/internal/domain"
	"blueprint-chat/internal/domain/model"
	"blueprint-chat/internal/domain/ports/adapter"
	"blueprint-chat/internal/domain/ports/repository"
)

type sessionFixture struct {
	sessions *memSessionRepo
	docs     *memDocRepo
	fp       *fakeProvider
	fetcher  *fakeFetcher
	uc       SessionUseCase
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	return newSessionFixtureWith(t, newMemSessionRepo())
}

func newSessionFixtureWith(t *testing.T, sessions repository.ChatSessionRepository) *sessionFixture {
	t.Helper()
	nop := zerolog.Nop()
	f := &sessionFixture{
		docs:    newMemDocRepo(),
		fp:      newFakeProvider(),
		fetcher: &fakeFetcher{data: []byte("%PDF-1.7 fake blueprint")},
	}
	if mem, ok := sessions.(*memSessionRepo); ok {
		f.sessions = mem
	}
	ingest := NewIngestUseCase(f.fetcher, f.fp, f.fp, &nop)
	poller := NewIndexingPoller(f.fp, config.IngestConfig{
		PollInit0Delay:  2 * time.Second,
		PollInterval:    time.Second,
		PollMaxAttempts: 60,
	}, &nop)
	poller.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	conv := NewConversationUseCase(f.fp)
	f.uc = NewSessionUseCase(sessions, f.docs, ingest, poller, conv,
		f.fp, f.fp, f.fp, &fakeTokenCounter{}, noopLocker{}, &nop)
	return f
}

func (f *sessionFixture) seedDoc(t *testing.T, id, ownerID, name string) {
	t.Helper()
	err := f.docs.Save(context.Background(), &model.Document{
		ID: id, OwnerID: ownerID, Name: name,
		SourceURL: "https://files.example/" + name,
	})
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}
}

func TestSessionUC_InitCreatesThenReuses(t *testing.T) {
	f := newSessionFixture(t)
	f.seedDoc(t, "doc-1", "owner-1", "doc-1.pdf")
	ctx := context.Background()

	s1, isNew, err := f.uc.InitSession(ctx, "doc-1", "owner-1")
	if err != nil {
		t.Fatalf("first init: %v", err)
	}
	if !isNew {
		t.Fatal("first init should create")
	}
	if s1.ConversationRef == "" || s1.VectorStoreRef == "" || s1.FileRef == "" {
		t.Fatalf("missing provider refs: %+v", s1)
	}
	if !s1.Active {
		t.Fatal("new session should be active")
	}

	s2, isNew, err := f.uc.InitSession(ctx, "doc-1", "owner-1")
	if err != nil {
		t.Fatalf("second init: %v", err)
	}
	if isNew {
		t.Fatal("second init should reuse")
	}
	if s2.ID != s1.ID {
		t.Errorf("reused session id = %s, want %s", s2.ID, s1.ID)
	}
	// the whole point of reuse: pay for ingestion once
	if f.fp.uploads != 1 {
		t.Errorf("uploads = %d, want 1", f.fp.uploads)
	}
}

func TestSessionUC_InitUnknownDocument(t *testing.T) {
	f := newSessionFixture(t)
	if _, _, err := f.uc.InitSession(context.Background(), "nope", "owner-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if f.fp.uploads != 0 {
		t.Errorf("uploads = %d, want 0", f.fp.uploads)
	}
}

func TestSessionUC_InitForeignDocument(t *testing.T) {
	f := newSessionFixture(t)
	f.seedDoc(t, "doc-1", "owner-1", "doc-1.pdf")
	if _, _, err := f.uc.InitSession(context.Background(), "doc-1", "owner-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for foreign owner", err)
	}
}

func TestSessionUC_InitIndexingFailure(t *testing.T) {
	f := newSessionFixture(t)
	f.seedDoc(t, "doc-1", "owner-1", "doc-1.pdf")
	f.fp.statusSeq = []adapter.IndexStatus{adapter.IndexPending, adapter.IndexFailed}

	_, _, err := f.uc.InitSession(context.Background(), "doc-1", "owner-1")
	if !errors.Is(err, domain.ErrIndexingFailed) {
		t.Fatalf("err = %v, want ErrIndexingFailed", err)
	}
	if f.fp.statusChecks != 2 {
		t.Errorf("status checks = %d, want 2", f.fp.statusChecks)
	}
	// nothing persisted, so a retry starts clean
	if _, err := f.sessions.FindActiveByDocument(context.Background(), "doc-1", "owner-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("session persisted despite indexing failure: %v", err)
	}
}

func TestSessionUC_InitLosesRaceReusesWinner(t *testing.T) {
	mem := newMemSessionRepo()
	repo := &racingSessionRepo{memSessionRepo: mem}
	f := newSessionFixtureWith(t, repo)
	f.seedDoc(t, "doc-1", "owner-1", "doc-1.pdf")
	ctx := context.Background()

	winner := model.NewChatSession("winner-id", "doc-1", "owner-1", "Chat - doc-1.pdf")
	winner.ConversationRef = "conv-w"
	if err := mem.Create(ctx, winner); err != nil {
		t.Fatalf("seed winner: %v", err)
	}

	s, isNew, err := f.uc.InitSession(ctx, "doc-1", "owner-1")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if isNew {
		t.Fatal("loser must report reuse, not creation")
	}
	if s.ID != "winner-id" {
		t.Errorf("session id = %s, want winner-id", s.ID)
	}
}

func TestSessionUC_FullLifecycle(t *testing.T) {
	f := newSessionFixture(t)
	f.seedDoc(t, "doc-1", "owner-1", "doc-1.pdf")
	f.fp.statusSeq = []adapter.IndexStatus{adapter.IndexPending, adapter.IndexCompleted}
	ctx := context.Background()

	s, _, err := f.uc.InitSession(ctx, "doc-1", "owner-1")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if f.fp.statusChecks != 2 {
		t.Errorf("status checks = %d, want 2", f.fp.statusChecks)
	}
	if got := f.fp.vectorStores[s.VectorStoreRef]; got != "Chat - doc-1.pdf" {
		t.Errorf("vector store name = %q", got)
	}

	reply, err := f.uc.SendMessage(ctx, s.ID, "owner-1", "what is the footing depth?")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply.Role != "assistant" || reply.Content == "" {
		t.Errorf("reply = %+v", reply)
	}

	msgs, err := f.uc.History(ctx, s.ID, "owner-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("history length = %d, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("history roles = %s, %s", msgs[0].Role, msgs[1].Role)
	}

	report, err := f.uc.CleanupSession(ctx, s.ID, "owner-1")
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if !report.ConversationDeleted || !report.VectorStoreDeleted || !report.FileDeleted || !report.Deactivated {
		t.Errorf("report = %+v, want all resources reclaimed", report)
	}

	// conversation is gone, so history must 404 rather than return stale data
	if _, err := f.uc.History(ctx, s.ID, "owner-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("history after cleanup: err = %v, want ErrNotFound", err)
	}

	// re-init is a fresh session, not a resurrection
	s2, isNew, err := f.uc.InitSession(ctx, "doc-1", "owner-1")
	if err != nil {
		t.Fatalf("re-init: %v", err)
	}
	if !isNew || s2.ID == s.ID {
		t.Errorf("re-init returned isNew=%v id=%s, want a new session", isNew, s2.ID)
	}
	if f.fp.uploads != 2 {
		t.Errorf("uploads = %d, want 2 after re-init", f.fp.uploads)
	}
}

func TestSessionUC_CleanupBestEffort(t *testing.T) {
	f := newSessionFixture(t)
	f.seedDoc(t, "doc-1", "owner-1", "doc-1.pdf")
	ctx := context.Background()

	s, _, err := f.uc.InitSession(ctx, "doc-1", "owner-1")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	f.fp.delConvErr = errors.New("provider 500")

	report, err := f.uc.CleanupSession(ctx, s.ID, "owner-1")
	if err != nil {
		t.Fatalf("cleanup must succeed despite resource failure: %v", err)
	}
	if report.ConversationDeleted {
		t.Error("conversation reported deleted despite failure")
	}
	if !report.VectorStoreDeleted || !report.FileDeleted {
		t.Errorf("remaining deletes skipped: %+v", report)
	}
	if !report.Deactivated {
		t.Error("session not deactivated")
	}
	got, err := f.sessions.FindByID(ctx, s.ID, "owner-1")
	if err != nil {
		t.Fatalf("find after cleanup: %v", err)
	}
	if got.Active {
		t.Error("session still active after cleanup")
	}
}

func TestSessionUC_CleanupForeignOwner(t *testing.T) {
	f := newSessionFixture(t)
	f.seedDoc(t, "doc-1", "owner-1", "doc-1.pdf")
	ctx := context.Background()

	s, _, err := f.uc.InitSession(ctx, "doc-1", "owner-1")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := f.uc.CleanupSession(ctx, s.ID, "owner-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(f.fp.deletedConvs) != 0 {
		t.Error("foreign owner triggered provider deletes")
	}
}

func TestSessionUC_SendMessageValidation(t *testing.T) {
	f := newSessionFixture(t)
	f.seedDoc(t, "doc-1", "owner-1", "doc-1.pdf")
	ctx := context.Background()

	s, _, err := f.uc.InitSession(ctx, "doc-1", "owner-1")
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	if _, err := f.uc.SendMessage(ctx, s.ID, "owner-1", "   \n\t "); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("blank text: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := f.uc.SendMessage(ctx, s.ID, "owner-2", "hello"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("foreign owner: err = %v, want ErrNotFound", err)
	}
	if _, err := f.uc.SendMessage(ctx, "missing", "owner-1", "hello"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown session: err = %v, want ErrNotFound", err)
	}
}

func TestSessionUC_SendMessageTokenBudget(t *testing.T) {
	nop := zerolog.Nop()
	f := newSessionFixture(t)
	f.seedDoc(t, "doc-1", "owner-1", "doc-1.pdf")
	ctx := context.Background()

	s, _, err := f.uc.InitSession(ctx, "doc-1", "owner-1")
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	// swap in a counter that reports an over-budget prompt
	ingest := NewIngestUseCase(f.fetcher, f.fp, f.fp, &nop)
	poller := NewIndexingPoller(f.fp, config.IngestConfig{PollMaxAttempts: 1}, &nop)
	poller.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	uc := NewSessionUseCase(f.sessions, f.docs, ingest, poller, NewConversationUseCase(f.fp),
		f.fp, f.fp, f.fp, &fakeTokenCounter{n: maxPromptTokens + 1}, noopLocker{}, &nop)

	if _, err := uc.SendMessage(ctx, s.ID, "owner-1", "a very long prompt"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument for oversized prompt", err)
	}
}

func TestSessionUC_ListSessionsIsolation(t *testing.T) {
	f := newSessionFixture(t)
	f.seedDoc(t, "doc-1", "owner-1", "doc-1.pdf")
	f.seedDoc(t, "doc-2", "owner-2", "doc-2.pdf")
	ctx := context.Background()

	if _, _, err := f.uc.InitSession(ctx, "doc-1", "owner-1"); err != nil {
		t.Fatalf("init owner-1: %v", err)
	}
	if _, _, err := f.uc.InitSession(ctx, "doc-2", "owner-2"); err != nil {
		t.Fatalf("init owner-2: %v", err)
	}

	got, err := f.uc.ListSessions(ctx, "owner-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].DocumentID != "doc-1" {
		t.Errorf("owner-1 sessions = %+v, want only doc-1", got)
	}
}

// racingSessionRepo simulates losing the create race: the pre-create lookup
// misses once even though a winner row exists, so Create hits the unique
// constraint and the caller must fall back to the winner's session.
type racingSessionRepo struct {
	*memSessionRepo
	lookups int
}

func (r *racingSessionRepo) FindActiveByDocument(ctx context.Context, documentID, ownerID string) (*model.ChatSession, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, domain.ErrNotFound
	}
	return r.memSessionRepo.FindActiveByDocument(ctx, documentID, ownerID)
}
