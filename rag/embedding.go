package rag

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/cloudflow/support-agent/agent/contract"
)

// EmbeddingConfig maps to EMBEDDING_MODEL and EMBEDDING_DIMENSIONS.
type EmbeddingConfig struct {
	Model      string `envconfig:"MODEL" split_words:"true" default:"text-embedding-3-small"`
	Dimensions int    `envconfig:"DIMENSIONS" split_words:"true" default:"1536"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// OpenAIEmbedder calls the embeddings API through an injected SDK client.
type OpenAIEmbedder struct {
	api *openaisdk.Client
	cfg EmbeddingConfig
}

var _ Embedder = (*OpenAIEmbedder)(nil)

func NewOpenAIEmbedder(api *openaisdk.Client, cfg EmbeddingConfig) (*OpenAIEmbedder, error) {
	if api == nil {
		return nil, fmt.Errorf("%w: openai client is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 1536
	}
	return &OpenAIEmbedder{api: api, cfg: cfg}, nil
}

func (e *OpenAIEmbedder) Dimensions() int { return e.cfg.Dimensions }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts to embed", contractx.ErrValidation)
	}

	params := openaisdk.EmbeddingNewParams{
		Model:          e.cfg.Model,
		Input:          openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Dimensions:     openaisdk.Int(int64(e.cfg.Dimensions)),
		EncodingFormat: openaisdk.EmbeddingNewParamsEncodingFormatFloat,
	}
	resp, err := e.api.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}

	vecs := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= int64(len(texts)) {
			return nil, fmt.Errorf("embedding index %d out of range for batch of %d", item.Index, len(texts))
		}
		vecs[item.Index] = toFloat32(item.Embedding)
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return vecs, nil
}

func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}
