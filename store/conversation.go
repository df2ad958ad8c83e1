package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	memoryx "github.com/cloudflow/support-agent/agent/memory"
)

// ConversationStore persists conversations and their messages.
type ConversationStore struct {
	db  bun.IDB
	now func() time.Time
}

var _ memoryx.Store = (*ConversationStore)(nil)

func NewConversationStore(db bun.IDB) *ConversationStore {
	return &ConversationStore{db: db, now: time.Now}
}

func (s *ConversationStore) GetOrCreate(ctx context.Context, id uuid.UUID) (memoryx.Conversation, error) {
	conv, err := s.Get(ctx, id)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, memoryx.ErrConversationNotFound) {
		return memoryx.Conversation{}, err
	}

	now := s.now().UTC()
	row := &conversationRow{
		ID:        id,
		Status:    memoryx.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// Parallel turns can race on the first insert for a conversation.
	if _, err := s.db.NewInsert().Model(row).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return memoryx.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *ConversationStore) Get(ctx context.Context, id uuid.UUID) (memoryx.Conversation, error) {
	row := new(conversationRow)
	err := s.db.NewSelect().Model(row).Where("conv.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return memoryx.Conversation{}, memoryx.ErrConversationNotFound
	}
	if err != nil {
		return memoryx.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return row.toDomain(), nil
}

func (s *ConversationStore) SetStatus(ctx context.Context, id uuid.UUID, status memoryx.Status) error {
	res, err := s.db.NewUpdate().
		Model((*conversationRow)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", s.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set conversation status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return memoryx.ErrConversationNotFound
	}
	return nil
}

// Append inserts one message row. A missing id and created_at are assigned
// on the passed struct. The conversation row itself is not touched.
func (s *ConversationStore) Append(ctx context.Context, msg *memoryx.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now().UTC()
	}
	if _, err := s.db.NewInsert().Model(messageToRow(msg)).Exec(ctx); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Recent returns up to n messages ordered newest first.
func (s *ConversationStore) Recent(ctx context.Context, id uuid.UUID, n int) ([]memoryx.Message, error) {
	if n <= 0 {
		return nil, nil
	}
	var rows []messageRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("m.conversation_id = ?", id).
		OrderExpr("m.created_at DESC").
		Limit(n).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	return messagesToDomain(rows), nil
}

// All returns the full transcript oldest first.
func (s *ConversationStore) All(ctx context.Context, id uuid.UUID) ([]memoryx.Message, error) {
	var rows []messageRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("m.conversation_id = ?", id).
		OrderExpr("m.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messagesToDomain(rows), nil
}

func (s *ConversationStore) Count(ctx context.Context, id uuid.UUID) (int, error) {
	n, err := s.db.NewSelect().
		Model((*messageRow)(nil)).
		Where("m.conversation_id = ?", id).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func (s *ConversationStore) Purge(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.NewDelete().
		Model((*messageRow)(nil)).
		Where("conversation_id = ?", id).
		Exec(ctx); err != nil {
		return fmt.Errorf("purge messages: %w", err)
	}
	return nil
}

// CloseStale closes active conversations whose updated_at predates cutoff
// and reports how many rows changed.
func (s *ConversationStore) CloseStale(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.NewUpdate().
		Model((*conversationRow)(nil)).
		Set("status = ?", memoryx.StatusClosed).
		Set("updated_at = ?", s.now().UTC()).
		Where("status = ?", memoryx.StatusActive).
		Where("updated_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("close stale conversations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("close stale conversations: %w", err)
	}
	return int(n), nil
}

func messagesToDomain(rows []messageRow) []memoryx.Message {
	out := make([]memoryx.Message, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out
}
