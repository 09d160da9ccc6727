// File: internal/infra/adapters/provider/openai_provider.go
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"blueprint-chat/internal/domain"
	"blueprint-chat/internal/domain/ports/adapter"
	"blueprint-chat/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the ports
var (
	_ adapter.FileStore         = (*OpenAIProvider)(nil)
	_ adapter.VectorStore       = (*OpenAIProvider)(nil)
	_ adapter.ConversationStore = (*OpenAIProvider)(nil)
)

// OpenAIProvider implements the file, vector store and conversation ports
// against the OpenAI platform API. It deliberately declares only the response
// fields this service consumes, so upstream schema drift stays contained here.
type OpenAIProvider struct {
	apiKey string
	base   string // e.g., https://api.openai.com/v1
	model  string
	client *http.Client
}

func NewOpenAIProvider(apiKey, base, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		apiKey: apiKey,
		base:   strings.TrimRight(base, "/"),
		model:  model,
		client: &http.Client{Timeout: 90 * time.Second},
	}, nil
}

func (p *OpenAIProvider) Model() string { return p.model }

// ----- FileStore -----

func (p *OpenAIProvider) UploadFile(ctx context.Context, name string, data []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("purpose", "assistants"); err != nil {
		return "", fmt.Errorf("multipart purpose: %w", err)
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("multipart file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return "", fmt.Errorf("multipart write: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("multipart close: %w", err)
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, p.base+"/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	var out struct {
		ID string `json:"id"`
	}
	if err := p.do(req, "files.create", &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: files.create returned no id", domain.ErrProvider)
	}
	return out.ID, nil
}

func (p *OpenAIProvider) DeleteFile(ctx context.Context, fileRef string) error {
	return p.deleteResource(ctx, "/files/"+fileRef, "files.delete")
}

// ----- VectorStore -----

func (p *OpenAIProvider) CreateVectorStore(ctx context.Context, name string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := p.postJSON(ctx, "/vector_stores", "vector_stores.create",
		map[string]any{"name": name}, &out)
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: vector_stores.create returned no id", domain.ErrProvider)
	}
	return out.ID, nil
}

func (p *OpenAIProvider) AttachFile(ctx context.Context, vectorStoreRef, fileRef string) error {
	var out struct {
		ID string `json:"id"`
	}
	return p.postJSON(ctx, "/vector_stores/"+vectorStoreRef+"/files", "vector_stores.files.create",
		map[string]any{"file_id": fileRef}, &out)
}

func (p *OpenAIProvider) FileStatus(ctx context.Context, vectorStoreRef, fileRef string) (adapter.IndexStatus, string, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		p.base+"/vector_stores/"+vectorStoreRef+"/files/"+fileRef, nil)
	p.setJSONHeaders(req)

	var out struct {
		Status    string `json:"status"`
		LastError *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"last_error"`
	}
	if err := p.do(req, "vector_stores.files.retrieve", &out); err != nil {
		return "", "", err
	}
	lastErr := ""
	if out.LastError != nil {
		lastErr = out.LastError.Message
	}
	return adapter.IndexStatus(out.Status), lastErr, nil
}

func (p *OpenAIProvider) DeleteVectorStore(ctx context.Context, ref string) error {
	return p.deleteResource(ctx, "/vector_stores/"+ref, "vector_stores.delete")
}

// ----- ConversationStore -----

func (p *OpenAIProvider) CreateConversation(ctx context.Context, meta adapter.ConversationMeta) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := p.postJSON(ctx, "/conversations", "conversations.create",
		map[string]any{
			"metadata": map[string]string{
				"document_id":   meta.DocumentID,
				"owner_id":      meta.OwnerID,
				"document_name": meta.DocumentName,
			},
		}, &out)
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: conversations.create returned no id", domain.ErrProvider)
	}
	return out.ID, nil
}

// wire shape shared by items.list and responses.create output
type wireItem struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"created_at"`
	Content   []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (it wireItem) toPort() adapter.ConversationItem {
	item := adapter.ConversationItem{
		ID:        it.ID,
		Type:      it.Type,
		Role:      it.Role,
		CreatedAt: it.CreatedAt,
	}
	for _, c := range it.Content {
		item.Content = append(item.Content, adapter.ContentBlock{Type: c.Type, Text: c.Text})
	}
	return item
}

func (p *OpenAIProvider) ListItems(ctx context.Context, ref string, limit int) ([]adapter.ConversationItem, error) {
	if limit <= 0 {
		limit = 100
	}
	url := fmt.Sprintf("%s/conversations/%s/items?limit=%d&order=asc", p.base, ref, limit)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	p.setJSONHeaders(req)

	var out struct {
		Data []wireItem `json:"data"`
	}
	if err := p.do(req, "conversations.items.list", &out); err != nil {
		return nil, err
	}
	items := make([]adapter.ConversationItem, 0, len(out.Data))
	for _, it := range out.Data {
		items = append(items, it.toPort())
	}
	return items, nil
}

func (p *OpenAIProvider) Respond(ctx context.Context, ref, vectorStoreRef, text string) (adapter.ConversationItem, error) {
	payload := map[string]any{
		"model":        p.model,
		"conversation": ref,
		"input":        text,
	}
	if vectorStoreRef != "" {
		payload["tools"] = []map[string]any{
			{"type": "file_search", "vector_store_ids": []string{vectorStoreRef}},
		}
	}
	var out struct {
		CreatedAt int64      `json:"created_at"`
		Output    []wireItem `json:"output"`
		Usage     struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := p.postJSON(ctx, "/responses", "responses.create", payload, &out); err != nil {
		return adapter.ConversationItem{}, err
	}
	metrics.ObserveChatTokens(p.model, out.Usage.InputTokens, out.Usage.OutputTokens)
	for _, it := range out.Output {
		if it.Type == "message" {
			item := it.toPort()
			if item.CreatedAt == 0 {
				item.CreatedAt = out.CreatedAt
			}
			return item, nil
		}
	}
	return adapter.ConversationItem{}, fmt.Errorf("%w: responses.create returned no message output", domain.ErrProvider)
}

func (p *OpenAIProvider) DeleteConversation(ctx context.Context, ref string) error {
	return p.deleteResource(ctx, "/conversations/"+ref, "conversations.delete")
}

// ----- plumbing -----

func (p *OpenAIProvider) setJSONHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")
}

func (p *OpenAIProvider) postJSON(ctx context.Context, path, op string, payload, out any) error {
	b, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, p.base+path, bytes.NewReader(b))
	p.setJSONHeaders(req)
	return p.do(req, op, out)
}

func (p *OpenAIProvider) deleteResource(ctx context.Context, path, op string) error {
	req, _ := http.NewRequestWithContext(ctx, http.MethodDelete, p.base+path, nil)
	p.setJSONHeaders(req)
	return p.do(req, op, nil)
}

func (p *OpenAIProvider) do(req *http.Request, op string, out any) error {
	start := time.Now()
	resp, err := p.client.Do(req)
	latency := int(time.Since(start).Milliseconds())
	if err != nil {
		metrics.ObserveProviderCall(op, latency, false)
		return fmt.Errorf("%w: %s: %v", domain.ErrProvider, op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		metrics.ObserveProviderCall(op, latency, false)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: %s: http %d: %s", domain.ErrProvider, op, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	metrics.ObserveProviderCall(op, latency, true)
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", domain.ErrProvider, op, err)
	}
	return nil
}
