// File: internal/infra/adapters/provider/tiktoken_counter.go
package provider

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"blueprint-chat/internal/domain/ports/adapter"
)

var _ adapter.TokenCounter = (*TiktokenCounter)(nil)

// TiktokenCounter counts prompt tokens locally with the model's encoding.
// Falls back to a bytes/4 estimate for models tiktoken doesn't know.
type TiktokenCounter struct {
	model string

	once sync.Once
	enc  *tiktoken.Tiktoken
}

func NewTiktokenCounter(model string) *TiktokenCounter {
	return &TiktokenCounter{model: model}
}

func (c *TiktokenCounter) CountTokens(text string) (int, error) {
	c.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(c.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding("cl100k_base")
			if err != nil {
				return
			}
		}
		c.enc = enc
	})
	if c.enc == nil {
		return len(text) / 4, nil
	}
	return len(c.enc.Encode(text, nil, nil)), nil
}
