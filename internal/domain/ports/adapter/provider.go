package adapter

import "context"

// IndexStatus is the provider-reported state of a file inside a vector store.
type IndexStatus string

const (
	IndexPending    IndexStatus = "pending"
	IndexInProgress IndexStatus = "in_progress"
	IndexCompleted  IndexStatus = "completed"
	IndexFailed     IndexStatus = "failed"
	IndexCancelled  IndexStatus = "cancelled"
)

// Terminal reports whether the poller should stop on this status.
func (s IndexStatus) Terminal() bool {
	return s == IndexCompleted || s == IndexFailed || s == IndexCancelled
}

// ConversationMeta tags a provider conversation for later auditability.
type ConversationMeta struct {
	DocumentID   string
	OwnerID      string
	DocumentName string
}

// ContentBlock is one typed content fragment of a conversation item.
type ContentBlock struct {
	Type string // "input_text" | "output_text" | anything else (dropped)
	Text string
}

// ConversationItem is the narrow slice of a provider conversation item this
// service consumes. Tool calls and other artifacts keep their Type and are
// filtered out during projection.
type ConversationItem struct {
	ID        string
	Type      string // "message" | "tool_call" | ...
	Role      string // "user" | "assistant"
	CreatedAt int64  // unix seconds
	Content   []ContentBlock
}

// DocumentFetcher retrieves the raw bytes of a registered document.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FileStore is the provider file API.
type FileStore interface {
	UploadFile(ctx context.Context, name string, data []byte) (fileRef string, err error)
	DeleteFile(ctx context.Context, fileRef string) error
}

// VectorStore is the provider vector index API.
type VectorStore interface {
	CreateVectorStore(ctx context.Context, name string) (ref string, err error)
	AttachFile(ctx context.Context, vectorStoreRef, fileRef string) error
	// FileStatus returns the indexing status and, when failed, the provider's
	// last error message.
	FileStatus(ctx context.Context, vectorStoreRef, fileRef string) (IndexStatus, string, error)
	DeleteVectorStore(ctx context.Context, ref string) error
}

// ConversationStore is the provider conversation API.
type ConversationStore interface {
	CreateConversation(ctx context.Context, meta ConversationMeta) (ref string, err error)
	// ListItems returns up to limit items in ascending chronological order.
	ListItems(ctx context.Context, ref string, limit int) ([]ConversationItem, error)
	// Respond appends the user text to the conversation and returns the model
	// reply, grounded on the given vector store via file search.
	Respond(ctx context.Context, ref, vectorStoreRef, text string) (ConversationItem, error)
	DeleteConversation(ctx context.Context, ref string) error
}
