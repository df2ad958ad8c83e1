// Package support defines the customer account domain: customers, their
// subscriptions and invoices, and the tickets escalations create. Monetary
// amounts are decimal strings ("49.00") so values round-trip the database
// without float drift.
package support

import (
	"time"

	"github.com/google/uuid"
)

// Customer represents a CloudFlow account holder.
type Customer struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	CompanyName string         `json:"company_name,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	IsActive    bool           `json:"is_active"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// FullName joins the customer's first and last name.
func (c Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

// Subscription represents a customer's plan on a billing cycle.
type Subscription struct {
	ID           uuid.UUID          `json:"id"`
	CustomerID   uuid.UUID          `json:"customer_id"`
	Plan         Plan               `json:"plan"`
	Status       SubscriptionStatus `json:"status"`
	BillingCycle BillingCycle       `json:"billing_cycle"`
	Price        string             `json:"price"`
	StartDate    time.Time          `json:"start_date"`
	EndDate      *time.Time         `json:"end_date,omitempty"`
	TrialEndDate *time.Time         `json:"trial_end_date,omitempty"`
	Seats        int                `json:"seats"`
	Features     []string           `json:"features,omitempty"`
	Metadata     map[string]any     `json:"metadata,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Invoice represents one billing document for a customer.
type Invoice struct {
	ID             uuid.UUID        `json:"id"`
	CustomerID     uuid.UUID        `json:"customer_id"`
	SubscriptionID *uuid.UUID       `json:"subscription_id,omitempty"`
	InvoiceNumber  string           `json:"invoice_number"`
	Status         InvoiceStatus    `json:"status"`
	Amount         string           `json:"amount"`
	Tax            string           `json:"tax"`
	Total          string           `json:"total"`
	Currency       string           `json:"currency"`
	DueDate        time.Time        `json:"due_date"`
	PaidDate       *time.Time       `json:"paid_date,omitempty"`
	Description    string           `json:"description,omitempty"`
	LineItems      []map[string]any `json:"line_items,omitempty"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Ticket represents a support case raised for human follow-up.
type Ticket struct {
	ID             uuid.UUID      `json:"id"`
	CustomerID     uuid.UUID      `json:"customer_id"`
	ConversationID *uuid.UUID     `json:"conversation_id,omitempty"`
	Subject        string         `json:"subject"`
	Description    string         `json:"description"`
	Category       TicketCategory `json:"category"`
	Priority       TicketPriority `json:"priority"`
	Status         TicketStatus   `json:"status"`
	AssignedTo     string         `json:"assigned_to,omitempty"`
	Resolution     string         `json:"resolution,omitempty"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
