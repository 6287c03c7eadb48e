package providerdir

import (
	"context"

	"github.com/samber/mo"
)

// Embedder is the capability a Load result must expose for an
// AliasSpec with task "embed". Output length equals input length, and
// every inner vector has exactly Dimensions() entries.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() uint32
	ModelID() string
}

// RankResult is one scored document from a Reranker.Rerank call.
type RankResult struct {
	Index uint32
	Score float32
}

// Reranker is the capability a Load result must expose for an
// AliasSpec with task "rerank". Output length equals input length, and
// every index in [0, len(docs)) appears exactly once.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []string) ([]RankResult, error)
}

// GenerateOptions carries the optional per-call generation parameters.
// Fields absent from the caller's request are mo.None, letting the
// provider apply its own defaults rather than a zero value.
type GenerateOptions struct {
	MaxTokens   mo.Option[int]
	Temperature mo.Option[float32]
	TopP        mo.Option[float32]
}

// Usage reports token accounting for a single Generate call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// GenerateResult is the outcome of a Generate call. Usage is mo.None
// when the provider does not report token accounting.
type GenerateResult struct {
	Text  string
	Usage mo.Option[Usage]
}

// Generator is the capability a Load result must expose for an
// AliasSpec with task "generate". Messages alternate user/assistant
// starting from user; an odd count ends with a user message.
type Generator interface {
	Generate(ctx context.Context, messages []string, opts GenerateOptions) (GenerateResult, error)
}
