package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	toolx "github.com/cloudflow/support-agent/agent/tool"
	"github.com/cloudflow/support-agent/support"
)

// TicketStore persists support tickets.
type TicketStore struct {
	db  bun.IDB
	now func() time.Time
}

var _ toolx.TicketStore = (*TicketStore)(nil)

func NewTicketStore(db bun.IDB) *TicketStore {
	return &TicketStore{db: db, now: time.Now}
}

// CreateTicket inserts a ticket, assigning the id and timestamps on the
// passed struct when unset.
func (s *TicketStore) CreateTicket(ctx context.Context, t *support.Ticket) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := s.now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if _, err := s.db.NewInsert().Model(ticketToRow(*t)).Exec(ctx); err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}
