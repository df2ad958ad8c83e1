package rag

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	contractx "github.com/cloudflow/support-agent/agent/contract"
)

type Category string

const (
	CategoryFAQ             Category = "faq"
	CategoryDocumentation   Category = "documentation"
	CategoryPolicy          Category = "policy"
	CategoryTroubleshooting Category = "troubleshooting"
)

// Categories lists the canonical knowledge categories in stats order.
var Categories = []Category{CategoryFAQ, CategoryDocumentation, CategoryPolicy, CategoryTroubleshooting}

type Document struct {
	ID        uuid.UUID      `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Category  Category       `json:"category"`
	Embedding []float32      `json:"-"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Match pairs a document with its cosine distance to a query vector.
type Match struct {
	Document Document
	Distance float64
}

// DocumentStore is the persistence contract for the knowledge base.
// NearestActive orders by cosine distance ascending over active documents
// that carry an embedding; a non-empty category narrows the search.
type DocumentStore interface {
	Insert(ctx context.Context, doc *Document) error
	InsertBatch(ctx context.Context, docs []*Document) error
	Update(ctx context.Context, doc *Document) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (Document, error)
	List(ctx context.Context, category Category, limit int) ([]Document, error)
	CountByCategory(ctx context.Context) (map[Category]int, error)
	NearestActive(ctx context.Context, vec []float32, limit int, category Category) ([]Match, error)
}

type SearchResult struct {
	Document   Document `json:"document"`
	Similarity float64  `json:"similarity"`
}

const (
	DefaultTopK          = 5
	DefaultMinSimilarity = 0.5
)

type RetrieverOption func(*Retriever)

func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

func WithMinSimilarity(min float64) RetrieverOption {
	return func(r *Retriever) {
		r.minSim = min
	}
}

// Retriever answers similarity queries against the knowledge base.
type Retriever struct {
	embedder Embedder
	store    DocumentStore
	topK     int
	minSim   float64
}

func NewRetriever(embedder Embedder, store DocumentStore, opts ...RetrieverOption) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", contractx.ErrValidation)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: document store is required", contractx.ErrValidation)
	}
	r := &Retriever{
		embedder: embedder,
		store:    store,
		topK:     DefaultTopK,
		minSim:   DefaultMinSimilarity,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Search embeds the query and returns up to topK documents at or above the
// similarity floor. The floor applies after the topK cut, so raising topK
// cannot resurface distant documents. topK <= 0 uses the configured default;
// an empty category searches everything. Errors propagate whole: there are
// no partial results.
func (r *Retriever) Search(ctx context.Context, query string, topK int, category Category) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", contractx.ErrValidation)
	}
	if topK <= 0 {
		topK = r.topK
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := r.store.NearestActive(ctx, vec, topK, category)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		sim := math.Round((1-m.Distance)*10000) / 10000
		if sim < r.minSim {
			continue
		}
		results = append(results, SearchResult{Document: m.Document, Similarity: sim})
	}
	return results, nil
}
