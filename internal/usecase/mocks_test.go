// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sync"
	"time"

	"blueprint-chat/internal/domain"
	"blueprint-chat/internal/domain/model"
	"blueprint-chat/internal/domain/ports/adapter"
)

// ---- in-memory repositories ----

type memSessionRepo struct {
	mu   sync.Mutex
	byID map[string]*model.ChatSession

	createErr error // simulate persistence failures
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{byID: map[string]*model.ChatSession{}}
}

func (m *memSessionRepo) Create(ctx context.Context, s *model.ChatSession) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Active && existing.DocumentID == s.DocumentID && existing.OwnerID == s.OwnerID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}

func (m *memSessionRepo) FindByID(ctx context.Context, id, ownerID string) (*model.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.byID[id]; s != nil && s.OwnerID == ownerID {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memSessionRepo) FindActiveByDocument(ctx context.Context, documentID, ownerID string) (*model.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.Active && s.DocumentID == documentID && s.OwnerID == ownerID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSessionRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ChatSession
	for _, s := range m.byID {
		if s.OwnerID == ownerID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSessionRepo) Deactivate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.byID[id]; s != nil {
		s.Active = false
		return nil
	}
	return domain.ErrNotFound
}

func (m *memSessionRepo) Touch(ctx context.Context, id string) error { return nil }

type memDocRepo struct {
	mu    sync.Mutex
	store map[string]*model.Document
}

func newMemDocRepo() *memDocRepo {
	return &memDocRepo{store: map[string]*model.Document{}}
}

func (m *memDocRepo) Save(ctx context.Context, d *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.store[d.ID] = &cp
	return nil
}

func (m *memDocRepo) FindByOwner(ctx context.Context, id, ownerID string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d := m.store[id]; d != nil && d.OwnerID == ownerID {
		cp := *d
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memDocRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Document
	for _, d := range m.store {
		if d.OwnerID == ownerID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- fake provider (file store + vector store + conversations) ----

type fakeProvider struct {
	mu sync.Mutex

	uploads        int
	uploadedName   string
	uploadedSize   int
	vectorStores   map[string]string // ref -> name
	statusSeq      []adapter.IndexStatus
	statusChecks   int
	conversations  map[string]adapter.ConversationMeta
	items          map[string][]adapter.ConversationItem
	nextID         int
	replyText      string

	uploadErr     error
	createVSErr   error
	attachErr     error
	createConvErr error
	delConvErr    error
	delVSErr      error
	delFileErr    error

	deletedConvs []string
	deletedVS    []string
	deletedFiles []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		vectorStores:  map[string]string{},
		conversations: map[string]adapter.ConversationMeta{},
		items:         map[string][]adapter.ConversationItem{},
		statusSeq:     []adapter.IndexStatus{adapter.IndexCompleted},
		replyText:     "the footing depth is 1.2m",
	}
}

func (f *fakeProvider) id(prefix string) string {
	f.nextID++
	return prefix + "-" + time.Now().Format("150405") + "-" + string(rune('a'+f.nextID%26)) + string(rune('0'+f.nextID%10))
}

func (f *fakeProvider) UploadFile(ctx context.Context, name string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads++
	f.uploadedName = name
	f.uploadedSize = len(data)
	return f.id("file"), nil
}

func (f *fakeProvider) DeleteFile(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delFileErr != nil {
		return f.delFileErr
	}
	f.deletedFiles = append(f.deletedFiles, ref)
	return nil
}

func (f *fakeProvider) CreateVectorStore(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createVSErr != nil {
		return "", f.createVSErr
	}
	ref := f.id("vs")
	f.vectorStores[ref] = name
	return ref, nil
}

func (f *fakeProvider) AttachFile(ctx context.Context, vsRef, fileRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attachErr
}

func (f *fakeProvider) FileStatus(ctx context.Context, vsRef, fileRef string) (adapter.IndexStatus, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.statusChecks
	f.statusChecks++
	if i >= len(f.statusSeq) {
		return f.statusSeq[len(f.statusSeq)-1], "", nil
	}
	st := f.statusSeq[i]
	if st == adapter.IndexFailed {
		return st, "unsupported file encoding", nil
	}
	return st, "", nil
}

func (f *fakeProvider) DeleteVectorStore(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delVSErr != nil {
		return f.delVSErr
	}
	f.deletedVS = append(f.deletedVS, ref)
	return nil
}

func (f *fakeProvider) CreateConversation(ctx context.Context, meta adapter.ConversationMeta) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createConvErr != nil {
		return "", f.createConvErr
	}
	ref := f.id("conv")
	f.conversations[ref] = meta
	return ref, nil
}

func (f *fakeProvider) ListItems(ctx context.Context, ref string, limit int) ([]adapter.ConversationItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.items[ref]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeProvider) Respond(ctx context.Context, ref, vsRef, text string) (adapter.ConversationItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().Unix()
	user := adapter.ConversationItem{
		ID: f.id("msg"), Type: "message", Role: "user", CreatedAt: now,
		Content: []adapter.ContentBlock{{Type: "input_text", Text: text}},
	}
	reply := adapter.ConversationItem{
		ID: f.id("msg"), Type: "message", Role: "assistant", CreatedAt: now,
		Content: []adapter.ContentBlock{{Type: "output_text", Text: f.replyText}},
	}
	f.items[ref] = append(f.items[ref], user, reply)
	return reply, nil
}

func (f *fakeProvider) DeleteConversation(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delConvErr != nil {
		return f.delConvErr
	}
	f.deletedConvs = append(f.deletedConvs, ref)
	return nil
}

// ---- other fakes ----

type fakeFetcher struct {
	data []byte
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.urls = append(f.urls, url)
	return f.data, nil
}

type noopLocker struct{}

func (noopLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "token", nil
}
func (noopLocker) Unlock(ctx context.Context, key, token string) error { return nil }

type fakeTokenCounter struct{ n int }

func (f *fakeTokenCounter) CountTokens(text string) (int, error) {
	if f.n > 0 {
		return f.n, nil
	}
	return len(text) / 4, nil
}
