package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"

	contractx "github.com/cloudflow/support-agent/agent/contract"
	"github.com/cloudflow/support-agent/rag"
)

// KnowledgeStore persists knowledge base documents and runs vector search
// through pgvector's cosine distance operator.
type KnowledgeStore struct {
	db  bun.IDB
	now func() time.Time
}

var _ rag.DocumentStore = (*KnowledgeStore)(nil)

func NewKnowledgeStore(db bun.IDB) *KnowledgeStore {
	return &KnowledgeStore{db: db, now: time.Now}
}

func (s *KnowledgeStore) Insert(ctx context.Context, doc *rag.Document) error {
	s.stampDocument(doc)
	if _, err := s.db.NewInsert().Model(knowledgeToRow(doc)).Exec(ctx); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// InsertBatch writes all documents in a single multi-row statement.
func (s *KnowledgeStore) InsertBatch(ctx context.Context, docs []*rag.Document) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]*knowledgeRow, len(docs))
	for i, doc := range docs {
		s.stampDocument(doc)
		rows[i] = knowledgeToRow(doc)
	}
	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert document batch: %w", err)
	}
	return nil
}

func (s *KnowledgeStore) Update(ctx context.Context, doc *rag.Document) error {
	doc.UpdatedAt = s.now().UTC()
	res, err := s.db.NewUpdate().
		Model(knowledgeToRow(doc)).
		Column("title", "content", "category", "embedding", "metadata", "is_active", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: knowledge document id=%s", contractx.ErrNotFound, doc.ID)
	}
	return nil
}

func (s *KnowledgeStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.NewUpdate().
		Model((*knowledgeRow)(nil)).
		Set("is_active = FALSE").
		Set("updated_at = ?", s.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("deactivate document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: knowledge document id=%s", contractx.ErrNotFound, id)
	}
	return nil
}

func (s *KnowledgeStore) Get(ctx context.Context, id uuid.UUID) (rag.Document, error) {
	row := new(knowledgeRow)
	err := s.db.NewSelect().Model(row).Where("k.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return rag.Document{}, fmt.Errorf("%w: knowledge document id=%s", contractx.ErrNotFound, id)
	}
	if err != nil {
		return rag.Document{}, fmt.Errorf("get document: %w", err)
	}
	return row.toDomain(), nil
}

// List returns active documents newest first, optionally narrowed by
// category.
func (s *KnowledgeStore) List(ctx context.Context, category rag.Category, limit int) ([]rag.Document, error) {
	var rows []knowledgeRow
	q := s.db.NewSelect().
		Model(&rows).
		Where("k.is_active = TRUE").
		OrderExpr("k.created_at DESC")
	if category != "" {
		q = q.Where("k.category = ?", category)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := make([]rag.Document, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *KnowledgeStore) CountByCategory(ctx context.Context) (map[rag.Category]int, error) {
	var counts []struct {
		Category rag.Category `bun:"category"`
		Count    int          `bun:"count"`
	}
	err := s.db.NewSelect().
		Model((*knowledgeRow)(nil)).
		ColumnExpr("k.category AS category").
		ColumnExpr("count(*) AS count").
		Where("k.is_active = TRUE").
		GroupExpr("k.category").
		Scan(ctx, &counts)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	out := make(map[rag.Category]int, len(counts))
	for _, c := range counts {
		out[c.Category] = c.Count
	}
	return out, nil
}

// NearestActive orders active, embedded documents by cosine distance to the
// query vector.
func (s *KnowledgeStore) NearestActive(ctx context.Context, vec []float32, limit int, category rag.Category) ([]rag.Match, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []knowledgeRow
	q := s.db.NewSelect().
		Model(&rows).
		ColumnExpr("k.*").
		ColumnExpr("k.embedding <=> ? AS distance", pgvector.NewVector(vec)).
		Where("k.is_active = TRUE").
		Where("k.embedding IS NOT NULL").
		OrderExpr("distance").
		Limit(limit)
	if category != "" {
		q = q.Where("k.category = ?", category)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("nearest documents: %w", err)
	}
	out := make([]rag.Match, 0, len(rows))
	for i := range rows {
		out = append(out, rag.Match{Document: rows[i].toDomain(), Distance: rows[i].Distance})
	}
	return out, nil
}

func (s *KnowledgeStore) stampDocument(doc *rag.Document) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := s.now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
}
