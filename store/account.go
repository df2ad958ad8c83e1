package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	contractx "github.com/cloudflow/support-agent/agent/contract"
	toolx "github.com/cloudflow/support-agent/agent/tool"
	"github.com/cloudflow/support-agent/support"
)

// CustomerStore persists customers, subscriptions, and invoices.
type CustomerStore struct {
	db  bun.IDB
	now func() time.Time
}

var _ toolx.AccountStore = (*CustomerStore)(nil)

func NewCustomerStore(db bun.IDB) *CustomerStore {
	return &CustomerStore{db: db, now: time.Now}
}

// CustomerByEmail looks up one customer by exact email match. Callers are
// expected to lower-case and trim the address first.
func (s *CustomerStore) CustomerByEmail(ctx context.Context, email string) (support.Customer, error) {
	row := new(customerRow)
	err := s.db.NewSelect().Model(row).Where("c.email = ?", email).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return support.Customer{}, fmt.Errorf("%w: customer email=%s", contractx.ErrNotFound, email)
	}
	if err != nil {
		return support.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return row.toDomain(), nil
}

func (s *CustomerStore) SubscriptionsByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]support.Subscription, error) {
	var rows []subscriptionRow
	q := s.db.NewSelect().
		Model(&rows).
		Where("sub.customer_id = ?", customerID).
		OrderExpr("sub.created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	out := make([]support.Subscription, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *CustomerStore) InvoicesByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]support.Invoice, error) {
	var rows []invoiceRow
	q := s.db.NewSelect().
		Model(&rows).
		Where("inv.customer_id = ?", customerID).
		OrderExpr("inv.created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	out := make([]support.Invoice, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *CustomerStore) CountCustomers(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*customerRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}

// CreateCustomer inserts a customer, assigning the id and timestamps on the
// passed struct when unset.
func (s *CustomerStore) CreateCustomer(ctx context.Context, c *support.Customer) error {
	s.stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if _, err := s.db.NewInsert().Model(customerToRow(*c)).Exec(ctx); err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

func (s *CustomerStore) CreateSubscription(ctx context.Context, sub *support.Subscription) error {
	s.stamp(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if _, err := s.db.NewInsert().Model(subscriptionToRow(*sub)).Exec(ctx); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (s *CustomerStore) CreateInvoice(ctx context.Context, inv *support.Invoice) error {
	s.stamp(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if inv.Currency == "" {
		inv.Currency = "USD"
	}
	if _, err := s.db.NewInsert().Model(invoiceToRow(*inv)).Exec(ctx); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

func (s *CustomerStore) stamp(id *uuid.UUID, createdAt, updatedAt *time.Time) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	now := s.now().UTC()
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}
