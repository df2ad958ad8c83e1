package tool

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	contractx "github.com/cloudflow/support-agent/agent/contract"
	"github.com/cloudflow/support-agent/support"
)

// AccountStore is the customer-data contract behind the account tools.
// Lookups by email expect the address already lower-cased and trimmed; a
// miss wraps contract.ErrNotFound. List methods return newest first.
type AccountStore interface {
	CustomerByEmail(ctx context.Context, email string) (support.Customer, error)
	SubscriptionsByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]support.Subscription, error)
	InvoicesByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]support.Invoice, error)
}

const (
	dateLayout        = "2006-01-02"
	subscriptionLimit = 3
	invoiceLimit      = 5
)

// executeCustomerInfo answers get_customer_info with a profile card.
func (c *Catalog) executeCustomerInfo(ctx context.Context, args map[string]any) (string, error) {
	email := stringArg(args, "customer_email")
	if strings.TrimSpace(email) == "" {
		return "Error looking up customer: customer_email is required", nil
	}

	customer, err := c.accounts.CustomerByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, contractx.ErrNotFound) {
		return fmt.Sprintf("No customer found with email: %s", email), nil
	}
	if err != nil {
		return fmt.Sprintf("Error looking up customer: %v", err), nil
	}

	status := "Inactive"
	if customer.IsActive {
		status = "Active"
	}
	return fmt.Sprintf(
		"**Customer Information**\n"+
			"- Name: %s\n"+
			"- Email: %s\n"+
			"- Company: %s\n"+
			"- Phone: %s\n"+
			"- Account Status: %s\n"+
			"- Member Since: %s",
		customer.FullName(),
		customer.Email,
		orNA(customer.CompanyName),
		orNA(customer.Phone),
		status,
		customer.CreatedAt.Format(dateLayout),
	), nil
}

// executeSubscriptionDetails answers get_subscription_details with up to the
// three most recent subscriptions.
func (c *Catalog) executeSubscriptionDetails(ctx context.Context, args map[string]any) (string, error) {
	email := stringArg(args, "customer_email")
	if strings.TrimSpace(email) == "" {
		return "Error looking up subscription: customer_email is required", nil
	}

	customer, err := c.accounts.CustomerByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, contractx.ErrNotFound) {
		return fmt.Sprintf("No customer found with email: %s", email), nil
	}
	if err != nil {
		return fmt.Sprintf("Error looking up subscription: %v", err), nil
	}

	subs, err := c.accounts.SubscriptionsByCustomer(ctx, customer.ID, subscriptionLimit)
	if err != nil {
		return fmt.Sprintf("Error looking up subscription: %v", err), nil
	}
	if len(subs) == 0 {
		return fmt.Sprintf("No subscriptions found for %s", email), nil
	}

	parts := []string{fmt.Sprintf("**Subscriptions for %s**\n", customer.FullName())}
	for _, sub := range subs {
		parts = append(parts, fmt.Sprintf(
			"\n**%s Plan**\n"+
				"- Status: %s\n"+
				"- Billing: %s at %s\n"+
				"- Seats: %d\n"+
				"- Start Date: %s\n"+
				"- End Date: %s\n"+
				"- Trial Ends: %s",
			titleCase(string(sub.Plan)),
			titleCase(string(sub.Status)),
			titleCase(string(sub.BillingCycle)),
			dollars(sub.Price),
			sub.Seats,
			sub.StartDate.Format(dateLayout),
			dateOrNA(sub.EndDate),
			dateOrNA(sub.TrialEndDate),
		))
		if len(sub.Features) > 0 {
			feats := sub.Features
			if len(feats) > 5 {
				feats = feats[:5]
			}
			parts = append(parts, "- Features: "+strings.Join(feats, ", "))
		}
	}
	return strings.Join(parts, "\n"), nil
}

// executeInvoices answers get_invoices with paid/outstanding totals and the
// most recent invoices.
func (c *Catalog) executeInvoices(ctx context.Context, args map[string]any) (string, error) {
	email := stringArg(args, "customer_email")
	if strings.TrimSpace(email) == "" {
		return "Error looking up invoices: customer_email is required", nil
	}
	limit := intArg(args, "limit", invoiceLimit)

	customer, err := c.accounts.CustomerByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, contractx.ErrNotFound) {
		return fmt.Sprintf("No customer found with email: %s", email), nil
	}
	if err != nil {
		return fmt.Sprintf("Error looking up invoices: %v", err), nil
	}

	invoices, err := c.accounts.InvoicesByCustomer(ctx, customer.ID, limit)
	if err != nil {
		return fmt.Sprintf("Error looking up invoices: %v", err), nil
	}
	if len(invoices) == 0 {
		return fmt.Sprintf("No invoices found for %s", email), nil
	}

	var totalPaid, totalPending float64
	for _, inv := range invoices {
		switch inv.Status {
		case support.InvoicePaid:
			totalPaid += amountValue(inv.Total)
		case support.InvoicePending, support.InvoiceOverdue:
			totalPending += amountValue(inv.Total)
		}
	}

	parts := []string{
		fmt.Sprintf("**Invoice History for %s**\n", customer.FullName()),
		fmt.Sprintf("Total Paid: $%.2f", totalPaid),
		fmt.Sprintf("Outstanding: $%.2f\n", totalPending),
	}
	for _, inv := range invoices {
		parts = append(parts, fmt.Sprintf(
			"\n**Invoice #%s** %s\n"+
				"- Status: %s\n"+
				"- Total: %s %s\n"+
				"- Due Date: %s\n"+
				"- Paid Date: %s",
			inv.InvoiceNumber,
			invoiceStatusEmoji[inv.Status],
			titleCase(string(inv.Status)),
			dollars(inv.Total),
			inv.Currency,
			inv.DueDate.Format(dateLayout),
			dateOrNA(inv.PaidDate),
		))
	}
	return strings.Join(parts, "\n"), nil
}

var invoiceStatusEmoji = map[support.InvoiceStatus]string{
	support.InvoicePaid:      "✓",
	support.InvoicePending:   "⏳",
	support.InvoiceOverdue:   "⚠️",
	support.InvoiceRefunded:  "↩️",
	support.InvoiceCancelled: "✗",
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func dateOrNA(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format(dateLayout)
}

// titleCase renders snake_case enum values for display ("past_due" becomes
// "Past Due").
func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func dollars(amount string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
	if err != nil {
		return "$" + amount
	}
	return fmt.Sprintf("$%.2f", v)
}

func amountValue(amount string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
	if err != nil {
		return 0
	}
	return v
}
