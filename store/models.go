// Package store holds the Postgres persistence layer: bun row models and
// the repositories behind the memory, tool, and rag store interfaces.
// Vector similarity search runs inside Postgres through pgvector.
package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"

	contractx "github.com/cloudflow/support-agent/agent/contract"
	memoryx "github.com/cloudflow/support-agent/agent/memory"
	"github.com/cloudflow/support-agent/rag"
	"github.com/cloudflow/support-agent/support"
)

type customerRow struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	ID          uuid.UUID      `bun:"id,pk,type:uuid"`
	Email       string         `bun:"email,notnull,unique"`
	FirstName   string         `bun:"first_name,notnull"`
	LastName    string         `bun:"last_name,notnull"`
	CompanyName string         `bun:"company_name,nullzero"`
	Phone       string         `bun:"phone,nullzero"`
	IsActive    bool           `bun:"is_active,notnull,default:true"`
	Metadata    map[string]any `bun:"metadata,type:jsonb,nullzero"`
	CreatedAt   time.Time      `bun:"created_at,notnull"`
	UpdatedAt   time.Time      `bun:"updated_at,notnull"`
}

func customerToRow(c support.Customer) *customerRow {
	return &customerRow{
		ID:          c.ID,
		Email:       c.Email,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		CompanyName: c.CompanyName,
		Phone:       c.Phone,
		IsActive:    c.IsActive,
		Metadata:    c.Metadata,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (r *customerRow) toDomain() support.Customer {
	return support.Customer{
		ID:          r.ID,
		Email:       r.Email,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		CompanyName: r.CompanyName,
		Phone:       r.Phone,
		IsActive:    r.IsActive,
		Metadata:    r.Metadata,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type subscriptionRow struct {
	bun.BaseModel `bun:"table:subscriptions,alias:sub"`

	ID           uuid.UUID                  `bun:"id,pk,type:uuid"`
	CustomerID   uuid.UUID                  `bun:"customer_id,notnull,type:uuid"`
	Plan         support.Plan               `bun:"plan,notnull"`
	Status       support.SubscriptionStatus `bun:"status,notnull"`
	BillingCycle support.BillingCycle       `bun:"billing_cycle,notnull"`
	Price        string                     `bun:"price,notnull,type:numeric(10,2)"`
	StartDate    time.Time                  `bun:"start_date,notnull,type:date"`
	EndDate      *time.Time                 `bun:"end_date,type:date,nullzero"`
	TrialEndDate *time.Time                 `bun:"trial_end_date,type:date,nullzero"`
	Seats        int                        `bun:"seats,notnull,default:1"`
	Features     []string                   `bun:"features,type:jsonb,nullzero"`
	Metadata     map[string]any             `bun:"metadata,type:jsonb,nullzero"`
	CreatedAt    time.Time                  `bun:"created_at,notnull"`
	UpdatedAt    time.Time                  `bun:"updated_at,notnull"`
}

func subscriptionToRow(s support.Subscription) *subscriptionRow {
	return &subscriptionRow{
		ID:           s.ID,
		CustomerID:   s.CustomerID,
		Plan:         s.Plan,
		Status:       s.Status,
		BillingCycle: s.BillingCycle,
		Price:        s.Price,
		StartDate:    s.StartDate,
		EndDate:      s.EndDate,
		TrialEndDate: s.TrialEndDate,
		Seats:        s.Seats,
		Features:     s.Features,
		Metadata:     s.Metadata,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func (r *subscriptionRow) toDomain() support.Subscription {
	return support.Subscription{
		ID:           r.ID,
		CustomerID:   r.CustomerID,
		Plan:         r.Plan,
		Status:       r.Status,
		BillingCycle: r.BillingCycle,
		Price:        r.Price,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		TrialEndDate: r.TrialEndDate,
		Seats:        r.Seats,
		Features:     r.Features,
		Metadata:     r.Metadata,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type invoiceRow struct {
	bun.BaseModel `bun:"table:invoices,alias:inv"`

	ID             uuid.UUID             `bun:"id,pk,type:uuid"`
	CustomerID     uuid.UUID             `bun:"customer_id,notnull,type:uuid"`
	SubscriptionID *uuid.UUID            `bun:"subscription_id,type:uuid,nullzero"`
	InvoiceNumber  string                `bun:"invoice_number,notnull,unique"`
	Status         support.InvoiceStatus `bun:"status,notnull"`
	Amount         string                `bun:"amount,notnull,type:numeric(10,2)"`
	Tax            string                `bun:"tax,notnull,type:numeric(10,2)"`
	Total          string                `bun:"total,notnull,type:numeric(10,2)"`
	Currency       string                `bun:"currency,notnull,default:'USD'"`
	DueDate        time.Time             `bun:"due_date,notnull,type:date"`
	PaidDate       *time.Time            `bun:"paid_date,type:date,nullzero"`
	Description    string                `bun:"description,nullzero"`
	LineItems      []map[string]any      `bun:"line_items,type:jsonb,nullzero"`
	Metadata       map[string]any        `bun:"metadata,type:jsonb,nullzero"`
	CreatedAt      time.Time             `bun:"created_at,notnull"`
	UpdatedAt      time.Time             `bun:"updated_at,notnull"`
}

func invoiceToRow(i support.Invoice) *invoiceRow {
	return &invoiceRow{
		ID:             i.ID,
		CustomerID:     i.CustomerID,
		SubscriptionID: i.SubscriptionID,
		InvoiceNumber:  i.InvoiceNumber,
		Status:         i.Status,
		Amount:         i.Amount,
		Tax:            i.Tax,
		Total:          i.Total,
		Currency:       i.Currency,
		DueDate:        i.DueDate,
		PaidDate:       i.PaidDate,
		Description:    i.Description,
		LineItems:      i.LineItems,
		Metadata:       i.Metadata,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}

func (r *invoiceRow) toDomain() support.Invoice {
	return support.Invoice{
		ID:             r.ID,
		CustomerID:     r.CustomerID,
		SubscriptionID: r.SubscriptionID,
		InvoiceNumber:  r.InvoiceNumber,
		Status:         r.Status,
		Amount:         r.Amount,
		Tax:            r.Tax,
		Total:          r.Total,
		Currency:       r.Currency,
		DueDate:        r.DueDate,
		PaidDate:       r.PaidDate,
		Description:    r.Description,
		LineItems:      r.LineItems,
		Metadata:       r.Metadata,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type ticketRow struct {
	bun.BaseModel `bun:"table:support_tickets,alias:t"`

	ID             uuid.UUID              `bun:"id,pk,type:uuid"`
	CustomerID     uuid.UUID              `bun:"customer_id,notnull,type:uuid"`
	ConversationID *uuid.UUID             `bun:"conversation_id,type:uuid,nullzero"`
	Subject        string                 `bun:"subject,notnull"`
	Description    string                 `bun:"description,notnull"`
	Category       support.TicketCategory `bun:"category,notnull"`
	Priority       support.TicketPriority `bun:"priority,notnull"`
	Status         support.TicketStatus   `bun:"status,notnull"`
	AssignedTo     string                 `bun:"assigned_to,nullzero"`
	Resolution     string                 `bun:"resolution,nullzero"`
	ResolvedAt     *time.Time             `bun:"resolved_at,nullzero"`
	Metadata       map[string]any         `bun:"metadata,type:jsonb,nullzero"`
	CreatedAt      time.Time              `bun:"created_at,notnull"`
	UpdatedAt      time.Time              `bun:"updated_at,notnull"`
}

func ticketToRow(t support.Ticket) *ticketRow {
	return &ticketRow{
		ID:             t.ID,
		CustomerID:     t.CustomerID,
		ConversationID: t.ConversationID,
		Subject:        t.Subject,
		Description:    t.Description,
		Category:       t.Category,
		Priority:       t.Priority,
		Status:         t.Status,
		AssignedTo:     t.AssignedTo,
		Resolution:     t.Resolution,
		ResolvedAt:     t.ResolvedAt,
		Metadata:       t.Metadata,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func (r *ticketRow) toDomain() support.Ticket {
	return support.Ticket{
		ID:             r.ID,
		CustomerID:     r.CustomerID,
		ConversationID: r.ConversationID,
		Subject:        r.Subject,
		Description:    r.Description,
		Category:       r.Category,
		Priority:       r.Priority,
		Status:         r.Status,
		AssignedTo:     r.AssignedTo,
		Resolution:     r.Resolution,
		ResolvedAt:     r.ResolvedAt,
		Metadata:       r.Metadata,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type conversationRow struct {
	bun.BaseModel `bun:"table:conversations,alias:conv"`

	ID         uuid.UUID      `bun:"id,pk,type:uuid"`
	CustomerID *uuid.UUID     `bun:"customer_id,type:uuid,nullzero"`
	Title      string         `bun:"title,nullzero"`
	Status     memoryx.Status `bun:"status,notnull"`
	Metadata   map[string]any `bun:"metadata,type:jsonb,nullzero"`
	CreatedAt  time.Time      `bun:"created_at,notnull"`
	UpdatedAt  time.Time      `bun:"updated_at,notnull"`
}

func (r *conversationRow) toDomain() memoryx.Conversation {
	return memoryx.Conversation{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		Title:      r.Title,
		Status:     r.Status,
		Metadata:   r.Metadata,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type messageRow struct {
	bun.BaseModel `bun:"table:messages,alias:m"`

	ID             uuid.UUID           `bun:"id,pk,type:uuid"`
	ConversationID uuid.UUID           `bun:"conversation_id,notnull,type:uuid"`
	Role           contractx.Role      `bun:"role,notnull"`
	Content        string              `bun:"content,notnull"`
	AgentType      contractx.AgentType `bun:"agent_type,nullzero"`
	ToolCalls      []contractx.ToolUse `bun:"tool_calls,type:jsonb,nullzero"`
	Metadata       map[string]any      `bun:"metadata,type:jsonb,nullzero"`
	CreatedAt      time.Time           `bun:"created_at,notnull"`
}

func messageToRow(m *memoryx.Message) *messageRow {
	return &messageRow{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           m.Role,
		Content:        m.Content,
		AgentType:      m.AgentType,
		ToolCalls:      m.ToolCalls,
		Metadata:       m.Metadata,
		CreatedAt:      m.CreatedAt,
	}
}

func (r *messageRow) toDomain() memoryx.Message {
	return memoryx.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		Role:           r.Role,
		Content:        r.Content,
		AgentType:      r.AgentType,
		ToolCalls:      r.ToolCalls,
		Metadata:       r.Metadata,
		CreatedAt:      r.CreatedAt,
	}
}

type knowledgeRow struct {
	bun.BaseModel `bun:"table:knowledge_documents,alias:k"`

	ID        uuid.UUID        `bun:"id,pk,type:uuid"`
	Title     string           `bun:"title,notnull"`
	Content   string           `bun:"content,notnull"`
	Category  rag.Category     `bun:"category,notnull"`
	Embedding *pgvector.Vector `bun:"embedding,type:vector(1536),nullzero"`
	Metadata  map[string]any   `bun:"metadata,type:jsonb,nullzero"`
	IsActive  bool             `bun:"is_active,notnull,default:true"`
	CreatedAt time.Time        `bun:"created_at,notnull"`
	UpdatedAt time.Time        `bun:"updated_at,notnull"`

	// Populated only by the nearest-neighbor query.
	Distance float64 `bun:"distance,scanonly"`
}

func knowledgeToRow(d *rag.Document) *knowledgeRow {
	row := &knowledgeRow{
		ID:        d.ID,
		Title:     d.Title,
		Content:   d.Content,
		Category:  d.Category,
		Metadata:  d.Metadata,
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if len(d.Embedding) > 0 {
		vec := pgvector.NewVector(d.Embedding)
		row.Embedding = &vec
	}
	return row
}

func (r *knowledgeRow) toDomain() rag.Document {
	doc := rag.Document{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		Category:  r.Category,
		Metadata:  r.Metadata,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Embedding != nil {
		doc.Embedding = r.Embedding.Slice()
	}
	return doc
}
