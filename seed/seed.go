// Package seed loads the embedded CloudFlow demo dataset into the stores
// and the knowledge base.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	contractx "github.com/cloudflow/support-agent/agent/contract"
	logx "github.com/cloudflow/support-agent/pkg/logger"
	"github.com/cloudflow/support-agent/rag"
	"github.com/cloudflow/support-agent/support"
)

//go:embed data.yaml
var rawDataset []byte

// Accounts is the slice of the customer store the seeder writes through.
type Accounts interface {
	CountCustomers(ctx context.Context) (int, error)
	CreateCustomer(ctx context.Context, c *support.Customer) error
	CreateSubscription(ctx context.Context, sub *support.Subscription) error
	CreateInvoice(ctx context.Context, inv *support.Invoice) error
}

type Tickets interface {
	CreateTicket(ctx context.Context, t *support.Ticket) error
}

// Knowledge ingests documents in one batch and reports existing counts.
// *rag.Manager satisfies it.
type Knowledge interface {
	AddDocuments(ctx context.Context, ins []rag.DocumentInput) ([]rag.Document, error)
	Stats(ctx context.Context) (rag.Stats, error)
}

// Report counts what one Run created. Zero sections were already seeded.
type Report struct {
	Customers     int `json:"customers"`
	Subscriptions int `json:"subscriptions"`
	Invoices      int `json:"invoices"`
	Tickets       int `json:"tickets"`
	Documents     int `json:"documents"`
}

type Seeder struct {
	accounts  Accounts
	tickets   Tickets
	knowledge Knowledge
	log       zerolog.Logger
	now       func() time.Time
}

func New(accounts Accounts, tickets Tickets, knowledge Knowledge) (*Seeder, error) {
	if accounts == nil {
		return nil, fmt.Errorf("%w: account store is required", contractx.ErrValidation)
	}
	if tickets == nil {
		return nil, fmt.Errorf("%w: ticket store is required", contractx.ErrValidation)
	}
	if knowledge == nil {
		return nil, fmt.Errorf("%w: knowledge manager is required", contractx.ErrValidation)
	}
	return &Seeder{
		accounts:  accounts,
		tickets:   tickets,
		knowledge: knowledge,
		log:       logx.Component("seed"),
		now:       time.Now,
	}, nil
}

// Run seeds account data and the knowledge base. Each section is skipped
// when its store already holds rows, so reruns are safe.
func (s *Seeder) Run(ctx context.Context) (Report, error) {
	data, err := load()
	if err != nil {
		return Report{}, err
	}

	var report Report

	existing, err := s.accounts.CountCustomers(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("check existing customers: %w", err)
	}
	if existing > 0 {
		s.log.Info().Int("customers", existing).Msg("account data already present, skipping")
	} else if err := s.seedAccounts(ctx, data, &report); err != nil {
		return report, err
	}

	stats, err := s.knowledge.Stats(ctx)
	if err != nil {
		return report, fmt.Errorf("check existing documents: %w", err)
	}
	if stats.TotalDocuments > 0 {
		s.log.Info().Int("documents", stats.TotalDocuments).Msg("knowledge base already present, skipping")
	} else {
		ins := make([]rag.DocumentInput, len(data.Documents))
		for i, d := range data.Documents {
			ins[i] = rag.DocumentInput{
				Title:    d.Title,
				Content:  d.Content,
				Category: rag.Category(d.Category),
			}
		}
		docs, err := s.knowledge.AddDocuments(ctx, ins)
		if err != nil {
			return report, fmt.Errorf("seed knowledge base: %w", err)
		}
		report.Documents = len(docs)
	}

	s.log.Info().
		Int("customers", report.Customers).
		Int("subscriptions", report.Subscriptions).
		Int("invoices", report.Invoices).
		Int("tickets", report.Tickets).
		Int("documents", report.Documents).
		Msg("seeding finished")
	return report, nil
}

func (s *Seeder) seedAccounts(ctx context.Context, data dataset, report *Report) error {
	now := s.now().UTC()

	customerIDs := make(map[string]uuid.UUID, len(data.Customers))
	for _, row := range data.Customers {
		customer := &support.Customer{
			Email:       row.Email,
			FirstName:   row.FirstName,
			LastName:    row.LastName,
			CompanyName: row.CompanyName,
			Phone:       row.Phone,
			IsActive:    true,
			Metadata:    row.Metadata,
		}
		if err := s.accounts.CreateCustomer(ctx, customer); err != nil {
			return fmt.Errorf("seed customer %s: %w", row.Email, err)
		}
		customerIDs[row.Email] = customer.ID
		report.Customers++
	}

	subscriptionIDs := make(map[string]uuid.UUID, len(data.Subscriptions))
	for _, row := range data.Subscriptions {
		customerID, ok := customerIDs[row.CustomerEmail]
		if !ok {
			return fmt.Errorf("subscription references unknown customer %s", row.CustomerEmail)
		}
		start := offsetDays(now, -row.StartDaysAgo)
		sub := &support.Subscription{
			CustomerID:   customerID,
			Plan:         support.Plan(row.Plan),
			Status:       support.SubscriptionStatus(row.Status),
			BillingCycle: support.BillingCycle(row.BillingCycle),
			Price:        row.Price,
			StartDate:    start,
			Seats:        row.Seats,
			Features:     row.Features,
			// Backdate so newest-first listings mirror the start order.
			CreatedAt: start,
		}
		if row.TrialEndsInDays != nil {
			trial := offsetDays(now, *row.TrialEndsInDays)
			sub.TrialEndDate = &trial
		}
		if err := s.accounts.CreateSubscription(ctx, sub); err != nil {
			return fmt.Errorf("seed subscription for %s: %w", row.CustomerEmail, err)
		}
		subscriptionIDs[row.CustomerEmail] = sub.ID
		report.Subscriptions++
	}

	for _, row := range data.Invoices {
		customerID, ok := customerIDs[row.CustomerEmail]
		if !ok {
			return fmt.Errorf("invoice %s references unknown customer %s", row.InvoiceNumber, row.CustomerEmail)
		}
		due := offsetDays(now, -row.DueDaysAgo)
		inv := &support.Invoice{
			CustomerID:    customerID,
			InvoiceNumber: row.InvoiceNumber,
			Status:        support.InvoiceStatus(row.Status),
			Amount:        row.Amount,
			Tax:           row.Tax,
			Total:         row.Total,
			Currency:      "USD",
			DueDate:       due,
			Description:   row.Description,
			CreatedAt:     due,
		}
		if subID, ok := subscriptionIDs[row.CustomerEmail]; ok {
			id := subID
			inv.SubscriptionID = &id
		}
		if row.PaidDaysAgo != nil {
			paid := offsetDays(now, -*row.PaidDaysAgo)
			inv.PaidDate = &paid
		}
		if err := s.accounts.CreateInvoice(ctx, inv); err != nil {
			return fmt.Errorf("seed invoice %s: %w", row.InvoiceNumber, err)
		}
		report.Invoices++
	}

	for _, row := range data.Tickets {
		customerID, ok := customerIDs[row.CustomerEmail]
		if !ok {
			return fmt.Errorf("ticket %q references unknown customer %s", row.Subject, row.CustomerEmail)
		}
		ticket := &support.Ticket{
			CustomerID:  customerID,
			Subject:     row.Subject,
			Description: row.Description,
			Category:    support.TicketCategory(row.Category),
			Priority:    support.TicketPriority(row.Priority),
			Status:      support.TicketStatus(row.Status),
			AssignedTo:  row.AssignedTo,
		}
		if err := s.tickets.CreateTicket(ctx, ticket); err != nil {
			return fmt.Errorf("seed ticket %q: %w", row.Subject, err)
		}
		report.Tickets++
	}

	return nil
}

type dataset struct {
	Customers     []customerSeed     `yaml:"customers"`
	Subscriptions []subscriptionSeed `yaml:"subscriptions"`
	Invoices      []invoiceSeed      `yaml:"invoices"`
	Tickets       []ticketSeed       `yaml:"tickets"`
	Documents     []documentSeed     `yaml:"documents"`
}

type customerSeed struct {
	Email       string         `yaml:"email"`
	FirstName   string         `yaml:"first_name"`
	LastName    string         `yaml:"last_name"`
	CompanyName string         `yaml:"company_name"`
	Phone       string         `yaml:"phone"`
	Metadata    map[string]any `yaml:"metadata"`
}

type subscriptionSeed struct {
	CustomerEmail   string   `yaml:"customer_email"`
	Plan            string   `yaml:"plan"`
	Status          string   `yaml:"status"`
	BillingCycle    string   `yaml:"billing_cycle"`
	Price           string   `yaml:"price"`
	StartDaysAgo    int      `yaml:"start_days_ago"`
	TrialEndsInDays *int     `yaml:"trial_ends_in_days"`
	Seats           int      `yaml:"seats"`
	Features        []string `yaml:"features"`
}

type invoiceSeed struct {
	CustomerEmail string `yaml:"customer_email"`
	InvoiceNumber string `yaml:"invoice_number"`
	Status        string `yaml:"status"`
	Amount        string `yaml:"amount"`
	Tax           string `yaml:"tax"`
	Total         string `yaml:"total"`
	DueDaysAgo    int    `yaml:"due_days_ago"`
	PaidDaysAgo   *int   `yaml:"paid_days_ago"`
	Description   string `yaml:"description"`
}

type ticketSeed struct {
	CustomerEmail string `yaml:"customer_email"`
	Subject       string `yaml:"subject"`
	Description   string `yaml:"description"`
	Category      string `yaml:"category"`
	Priority      string `yaml:"priority"`
	Status        string `yaml:"status"`
	AssignedTo    string `yaml:"assigned_to"`
}

type documentSeed struct {
	Title    string `yaml:"title"`
	Category string `yaml:"category"`
	Content  string `yaml:"content"`
}

func load() (dataset, error) {
	var d dataset
	if err := yaml.Unmarshal(rawDataset, &d); err != nil {
		return dataset{}, fmt.Errorf("parse seed dataset: %w", err)
	}
	return d, nil
}

func offsetDays(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, days)
}
