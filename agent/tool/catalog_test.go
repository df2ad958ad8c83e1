package tool

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	contractx "github.com/cloudflow/support-agent/agent/contract"
	"github.com/cloudflow/support-agent/rag"
	"github.com/cloudflow/support-agent/support"
)

type fakeSearcher struct {
	results []rag.SearchResult
	err     error

	gotQuery    string
	gotTopK     int
	gotCategory rag.Category
}

func (f *fakeSearcher) Search(_ context.Context, query string, topK int, category rag.Category) ([]rag.SearchResult, error) {
	f.gotQuery = query
	f.gotTopK = topK
	f.gotCategory = category
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeAccountStore struct {
	customers     map[string]support.Customer
	subscriptions map[uuid.UUID][]support.Subscription
	invoices      map[uuid.UUID][]support.Invoice
	err           error
}

func (f *fakeAccountStore) CustomerByEmail(_ context.Context, email string) (support.Customer, error) {
	if f.err != nil {
		return support.Customer{}, f.err
	}
	c, ok := f.customers[email]
	if !ok {
		return support.Customer{}, fmt.Errorf("%w: customer email=%s", contractx.ErrNotFound, email)
	}
	return c, nil
}

func (f *fakeAccountStore) SubscriptionsByCustomer(_ context.Context, customerID uuid.UUID, limit int) ([]support.Subscription, error) {
	subs := f.subscriptions[customerID]
	if limit > 0 && len(subs) > limit {
		subs = subs[:limit]
	}
	return subs, nil
}

func (f *fakeAccountStore) InvoicesByCustomer(_ context.Context, customerID uuid.UUID, limit int) ([]support.Invoice, error) {
	invs := f.invoices[customerID]
	if limit > 0 && len(invs) > limit {
		invs = invs[:limit]
	}
	return invs, nil
}

type fakeTicketStore struct {
	created *support.Ticket
	err     error
}

func (f *fakeTicketStore) CreateTicket(_ context.Context, ticket *support.Ticket) error {
	if f.err != nil {
		return f.err
	}
	ticket.ID = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	ticket.CreatedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ticket.UpdatedAt = ticket.CreatedAt
	f.created = ticket
	return nil
}

func newTestCatalog(t *testing.T, searcher *fakeSearcher, accounts *fakeAccountStore, tickets *fakeTicketStore) *Catalog {
	t.Helper()
	if searcher == nil {
		searcher = &fakeSearcher{}
	}
	if accounts == nil {
		accounts = &fakeAccountStore{}
	}
	if tickets == nil {
		tickets = &fakeTicketStore{}
	}
	catalog, err := NewCatalog(searcher, accounts, tickets)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return catalog
}

func testCustomer() support.Customer {
	return support.Customer{
		ID:          uuid.MustParse("a3bb189e-8bf9-3888-9912-ace4e6543002"),
		Email:       "john.smith@techstartup.com",
		FirstName:   "John",
		LastName:    "Smith",
		CompanyName: "TechStartup Inc",
		IsActive:    true,
		CreatedAt:   time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestBuildForAgentToolSets(t *testing.T) {
	t.Parallel()

	catalog := newTestCatalog(t, nil, nil, nil)

	cases := []struct {
		agentType contractx.AgentType
		want      []string
	}{
		{contractx.AgentTypeFAQ, []string{ToolSearchKnowledgeBase}},
		{contractx.AgentTypeOrder, []string{ToolGetCustomerInfo, ToolGetSubscriptionDetails, ToolGetInvoices}},
		{contractx.AgentTypeEscalation, []string{ToolCreateSupportTicket}},
	}
	for _, tc := range cases {
		defs, executor := catalog.BuildForAgent(tc.agentType)
		if executor == nil {
			t.Fatalf("%s: executor must not be nil", tc.agentType)
		}
		if len(defs) != len(tc.want) {
			t.Fatalf("%s: expected %d tools, got %d", tc.agentType, len(tc.want), len(defs))
		}
		for i, name := range tc.want {
			if defs[i].Name != name {
				t.Fatalf("%s: tool %d = %s, want %s", tc.agentType, i, defs[i].Name, name)
			}
			if defs[i].Parameters == nil {
				t.Fatalf("%s: tool %s has no parameter schema", tc.agentType, name)
			}
		}
	}
}

func TestExecutorRejectsForeignTool(t *testing.T) {
	t.Parallel()

	catalog := newTestCatalog(t, nil, nil, nil)
	executor := catalog.NewExecutor(contractx.AgentTypeFAQ)

	_, err := executor(context.Background(), ToolGetInvoices, map[string]any{"customer_email": "x@y.com"})
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestKnowledgeSearchFormatsResults(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: []rag.SearchResult{
		{
			Document:   rag.Document{Title: "Resetting your password", Category: rag.CategoryFAQ, Content: "Use the reset link."},
			Similarity: 0.8234,
		},
		{
			Document:   rag.Document{Title: "Billing cycles", Category: rag.CategoryDocumentation, Content: "Plans bill monthly."},
			Similarity: 0.61,
		},
	}}
	catalog := newTestCatalog(t, searcher, nil, nil)
	executor := catalog.NewExecutor(contractx.AgentTypeFAQ)

	got, err := executor(context.Background(), ToolSearchKnowledgeBase, map[string]any{"query": "password reset"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "**Result 1** (Relevance: 82%)\n" +
		"Title: Resetting your password\n" +
		"Category: faq\n" +
		"Content: Use the reset link.\n" +
		"\n---\n" +
		"**Result 2** (Relevance: 61%)\n" +
		"Title: Billing cycles\n" +
		"Category: documentation\n" +
		"Content: Plans bill monthly.\n"
	if got != want {
		t.Fatalf("unexpected result:\n%q\nwant:\n%q", got, want)
	}
	if searcher.gotTopK != knowledgeSearchTopK {
		t.Fatalf("expected topK %d, got %d", knowledgeSearchTopK, searcher.gotTopK)
	}
}

func TestKnowledgeSearchEmptyResults(t *testing.T) {
	t.Parallel()

	catalog := newTestCatalog(t, &fakeSearcher{}, nil, nil)
	executor := catalog.NewExecutor(contractx.AgentTypeFAQ)

	got, err := executor(context.Background(), ToolSearchKnowledgeBase, map[string]any{"query": "anything"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "No relevant information found in the knowledge base." {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestKnowledgeSearchPropagatesRetrievalFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("embedding provider unreachable")
	catalog := newTestCatalog(t, &fakeSearcher{err: boom}, nil, nil)
	executor := catalog.NewExecutor(contractx.AgentTypeFAQ)

	_, err := executor(context.Background(), ToolSearchKnowledgeBase, map[string]any{"query": "anything"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected retrieval failure to propagate, got %v", err)
	}
}

func TestCustomerInfoCard(t *testing.T) {
	t.Parallel()

	customer := testCustomer()
	accounts := &fakeAccountStore{customers: map[string]support.Customer{customer.Email: customer}}
	catalog := newTestCatalog(t, nil, accounts, nil)
	executor := catalog.NewExecutor(contractx.AgentTypeOrder)

	got, err := executor(context.Background(), ToolGetCustomerInfo, map[string]any{
		"customer_email": " John.Smith@TechStartup.com ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "**Customer Information**\n" +
		"- Name: John Smith\n" +
		"- Email: john.smith@techstartup.com\n" +
		"- Company: TechStartup Inc\n" +
		"- Phone: N/A\n" +
		"- Account Status: Active\n" +
		"- Member Since: 2024-01-15"
	if got != want {
		t.Fatalf("unexpected card:\n%q\nwant:\n%q", got, want)
	}
}

func TestCustomerInfoNotFound(t *testing.T) {
	t.Parallel()

	catalog := newTestCatalog(t, nil, &fakeAccountStore{customers: map[string]support.Customer{}}, nil)
	executor := catalog.NewExecutor(contractx.AgentTypeOrder)

	got, err := executor(context.Background(), ToolGetCustomerInfo, map[string]any{
		"customer_email": "ghost@nowhere.dev",
	})
	if err != nil {
		t.Fatalf("expected descriptive text, got error: %v", err)
	}
	if got != "No customer found with email: ghost@nowhere.dev" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestCustomerInfoStoreFailureBecomesText(t *testing.T) {
	t.Parallel()

	catalog := newTestCatalog(t, nil, &fakeAccountStore{err: errors.New("connection refused")}, nil)
	executor := catalog.NewExecutor(contractx.AgentTypeOrder)

	got, err := executor(context.Background(), ToolGetCustomerInfo, map[string]any{
		"customer_email": "john.smith@techstartup.com",
	})
	if err != nil {
		t.Fatalf("expected descriptive text, got error: %v", err)
	}
	if got != "Error looking up customer: connection refused" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestSubscriptionDetails(t *testing.T) {
	t.Parallel()

	customer := testCustomer()
	end := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	accounts := &fakeAccountStore{
		customers: map[string]support.Customer{customer.Email: customer},
		subscriptions: map[uuid.UUID][]support.Subscription{
			customer.ID: {
				{
					Plan:         support.PlanProfessional,
					Status:       support.SubscriptionPastDue,
					BillingCycle: support.BillingMonthly,
					Price:        "49.00",
					StartDate:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
					EndDate:      &end,
					Seats:        10,
					Features:     []string{"api", "sso", "audit-log", "priority-support", "exports", "webhooks"},
				},
			},
		},
	}
	catalog := newTestCatalog(t, nil, accounts, nil)
	executor := catalog.NewExecutor(contractx.AgentTypeOrder)

	got, err := executor(context.Background(), ToolGetSubscriptionDetails, map[string]any{
		"customer_email": "john.smith@techstartup.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "**Subscriptions for John Smith**\n" +
		"\n" +
		"\n**Professional Plan**\n" +
		"- Status: Past Due\n" +
		"- Billing: Monthly at $49.00\n" +
		"- Seats: 10\n" +
		"- Start Date: 2024-01-15\n" +
		"- End Date: 2025-01-15\n" +
		"- Trial Ends: N/A\n" +
		"- Features: api, sso, audit-log, priority-support, exports"
	if got != want {
		t.Fatalf("unexpected result:\n%q\nwant:\n%q", got, want)
	}
}

func TestSubscriptionDetailsNoneFound(t *testing.T) {
	t.Parallel()

	customer := testCustomer()
	accounts := &fakeAccountStore{customers: map[string]support.Customer{customer.Email: customer}}
	catalog := newTestCatalog(t, nil, accounts, nil)
	executor := catalog.NewExecutor(contractx.AgentTypeOrder)

	got, err := executor(context.Background(), ToolGetSubscriptionDetails, map[string]any{
		"customer_email": "john.smith@techstartup.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "No subscriptions found for john.smith@techstartup.com" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestInvoiceHistoryTotals(t *testing.T) {
	t.Parallel()

	customer := testCustomer()
	paid := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	accounts := &fakeAccountStore{
		customers: map[string]support.Customer{customer.Email: customer},
		invoices: map[uuid.UUID][]support.Invoice{
			customer.ID: {
				{
					InvoiceNumber: "INV-2024-002",
					Status:        support.InvoiceOverdue,
					Total:         "53.41",
					Currency:      "USD",
					DueDate:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
				},
				{
					InvoiceNumber: "INV-2024-001",
					Status:        support.InvoicePaid,
					Total:         "49.00",
					Currency:      "USD",
					DueDate:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
					PaidDate:      &paid,
				},
			},
		},
	}
	catalog := newTestCatalog(t, nil, accounts, nil)
	executor := catalog.NewExecutor(contractx.AgentTypeOrder)

	got, err := executor(context.Background(), ToolGetInvoices, map[string]any{
		"customer_email": "john.smith@techstartup.com",
		"limit":          float64(5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "**Invoice History for John Smith**\n" +
		"\n" +
		"Total Paid: $49.00\n" +
		"Outstanding: $53.41\n" +
		"\n" +
		"\n**Invoice #INV-2024-002** ⚠️\n" +
		"- Status: Overdue\n" +
		"- Total: $53.41 USD\n" +
		"- Due Date: 2024-06-01\n" +
		"- Paid Date: N/A\n" +
		"\n**Invoice #INV-2024-001** ✓\n" +
		"- Status: Paid\n" +
		"- Total: $49.00 USD\n" +
		"- Due Date: 2024-05-01\n" +
		"- Paid Date: 2024-05-02"
	if got != want {
		t.Fatalf("unexpected result:\n%q\nwant:\n%q", got, want)
	}
}

func TestInvoicesNoneFound(t *testing.T) {
	t.Parallel()

	customer := testCustomer()
	accounts := &fakeAccountStore{customers: map[string]support.Customer{customer.Email: customer}}
	catalog := newTestCatalog(t, nil, accounts, nil)
	executor := catalog.NewExecutor(contractx.AgentTypeOrder)

	got, err := executor(context.Background(), ToolGetInvoices, map[string]any{
		"customer_email": "john.smith@techstartup.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "No invoices found for john.smith@techstartup.com" {
		t.Fatalf("unexpected result: %q", got)
	}
}
