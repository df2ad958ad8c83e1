package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	contractx "github.com/cloudflow/support-agent/agent/contract"
	logx "github.com/cloudflow/support-agent/pkg/logger"
)

const defaultListLimit = 100

// Manager owns knowledge base ingestion and maintenance. Retrieval lives on
// Retriever; both share the same store.
type Manager struct {
	embedder Embedder
	store    DocumentStore
	log      zerolog.Logger
}

func NewManager(embedder Embedder, store DocumentStore) (*Manager, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", contractx.ErrValidation)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: document store is required", contractx.ErrValidation)
	}
	return &Manager{
		embedder: embedder,
		store:    store,
		log:      logx.Component("knowledge"),
	}, nil
}

// DocumentInput is one document to ingest.
type DocumentInput struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Category Category       `json:"category"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AddDocument embeds title and content as a single vector and stores the
// document active.
func (m *Manager) AddDocument(ctx context.Context, in DocumentInput) (Document, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		return Document{}, fmt.Errorf("%w: document title and content are required", contractx.ErrValidation)
	}
	if in.Category == "" {
		in.Category = CategoryFAQ
	}

	vec, err := m.embedder.Embed(ctx, embedText(in.Title, in.Content))
	if err != nil {
		return Document{}, fmt.Errorf("embed document: %w", err)
	}

	doc := &Document{
		ID:        uuid.New(),
		Title:     in.Title,
		Content:   in.Content,
		Category:  in.Category,
		Embedding: vec,
		Metadata:  in.Metadata,
		IsActive:  true,
	}
	if err := m.store.Insert(ctx, doc); err != nil {
		return Document{}, fmt.Errorf("store document: %w", err)
	}

	m.log.Info().Str("document_id", doc.ID.String()).Str("category", string(doc.Category)).Msg("knowledge document added")
	return *doc, nil
}

// AddDocuments ingests a batch with one embedding call and one transaction.
func (m *Manager) AddDocuments(ctx context.Context, ins []DocumentInput) ([]Document, error) {
	if len(ins) == 0 {
		return nil, nil
	}

	texts := make([]string, len(ins))
	for i, in := range ins {
		if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
			return nil, fmt.Errorf("%w: document %d is missing title or content", contractx.ErrValidation, i)
		}
		texts[i] = embedText(in.Title, in.Content)
	}

	vecs, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}

	docs := make([]*Document, len(ins))
	for i, in := range ins {
		category := in.Category
		if category == "" {
			category = CategoryFAQ
		}
		docs[i] = &Document{
			ID:        uuid.New(),
			Title:     in.Title,
			Content:   in.Content,
			Category:  category,
			Embedding: vecs[i],
			Metadata:  in.Metadata,
			IsActive:  true,
		}
	}
	if err := m.store.InsertBatch(ctx, docs); err != nil {
		return nil, fmt.Errorf("store batch: %w", err)
	}

	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = *d
	}
	m.log.Info().Int("count", len(out)).Msg("knowledge documents added")
	return out, nil
}

// DocumentPatch updates only the non-nil fields.
type DocumentPatch struct {
	Title    *string
	Content  *string
	Category *Category
	Metadata map[string]any
}

// UpdateDocument applies the patch and re-embeds only when title or content
// changed. Category or metadata updates leave the stored vector untouched.
func (m *Manager) UpdateDocument(ctx context.Context, id uuid.UUID, patch DocumentPatch) (Document, error) {
	doc, err := m.store.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}

	if patch.Title != nil {
		doc.Title = *patch.Title
	}
	if patch.Content != nil {
		doc.Content = *patch.Content
	}
	if patch.Category != nil {
		doc.Category = *patch.Category
	}
	if patch.Metadata != nil {
		doc.Metadata = patch.Metadata
	}

	if patch.Title != nil || patch.Content != nil {
		vec, err := m.embedder.Embed(ctx, embedText(doc.Title, doc.Content))
		if err != nil {
			return Document{}, fmt.Errorf("re-embed document: %w", err)
		}
		doc.Embedding = vec
	}

	if err := m.store.Update(ctx, &doc); err != nil {
		return Document{}, fmt.Errorf("update document: %w", err)
	}
	return doc, nil
}

// DeleteDocument soft-deletes: the row stays, is_active flips off.
func (m *Manager) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	return m.store.Deactivate(ctx, id)
}

// List returns newest-first documents, optionally narrowed by category.
func (m *Manager) List(ctx context.Context, category Category, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return m.store.List(ctx, category, limit)
}

type Stats struct {
	TotalDocuments int              `json:"total_documents"`
	ByCategory     map[Category]int `json:"by_category"`
}

// Stats counts active documents. ByCategory always carries the four
// canonical categories, zero-filled.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	counts, err := m.store.CountByCategory(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{ByCategory: make(map[Category]int, len(Categories))}
	for _, c := range counts {
		stats.TotalDocuments += c
	}
	for _, cat := range Categories {
		stats.ByCategory[cat] = counts[cat]
	}
	return stats, nil
}

func embedText(title, content string) string {
	return title + "\n\n" + content
}
