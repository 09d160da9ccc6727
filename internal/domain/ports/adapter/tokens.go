package adapter

// TokenCounter estimates prompt tokens for a piece of text
// (provider-specific counting; best-effort when exact isn't available).
type TokenCounter interface {
	CountTokens(text string) (int, error)
}
