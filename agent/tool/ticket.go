package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	contractx "github.com/cloudflow/support-agent/agent/contract"
	"github.com/cloudflow/support-agent/support"
)

// TicketStore persists escalation tickets. CreateTicket assigns the ticket
// id and timestamps on the passed struct.
type TicketStore interface {
	CreateTicket(ctx context.Context, ticket *support.Ticket) error
}

var (
	urgentKeywords = []string{"urgent", "critical", "emergency", "down", "outage", "not working at all"}
	highKeywords   = []string{"cannot access", "blocked", "important", "deadline", "losing data", "security"}
)

var responseTimes = map[support.TicketPriority]string{
	support.PriorityUrgent: "1 hour",
	support.PriorityHigh:   "4 hours",
	support.PriorityMedium: "24 hours",
	support.PriorityLow:    "48 hours",
}

// derivePriority is deterministic: urgent keywords beat high keywords, which
// beat the category rule; everything else is medium.
func derivePriority(description string, category support.TicketCategory) support.TicketPriority {
	lower := strings.ToLower(description)
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return support.PriorityUrgent
		}
	}
	for _, kw := range highKeywords {
		if strings.Contains(lower, kw) {
			return support.PriorityHigh
		}
	}
	if category == support.CategoryBugReport || category == support.CategoryBilling {
		return support.PriorityHigh
	}
	return support.PriorityMedium
}

func expectedResponse(priority support.TicketPriority) string {
	if t, ok := responseTimes[priority]; ok {
		return t
	}
	return "24 hours"
}

// executeCreateTicket answers create_support_ticket. Invalid categories fall
// back to "other" rather than failing; a ticket is only created for a known
// customer.
func (c *Catalog) executeCreateTicket(ctx context.Context, args map[string]any) (string, error) {
	email := stringArg(args, "customer_email")
	subject := stringArg(args, "subject")
	description := stringArg(args, "description")
	switch {
	case strings.TrimSpace(email) == "":
		return ticketError("customer_email is required"), nil
	case strings.TrimSpace(subject) == "":
		return ticketError("subject is required"), nil
	case strings.TrimSpace(description) == "":
		return ticketError("description is required"), nil
	}

	category := support.TicketCategory(stringArg(args, "category"))
	if !category.Valid() {
		category = support.CategoryOther
	}

	customer, err := c.accounts.CustomerByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, contractx.ErrNotFound) {
		return fmt.Sprintf(
			"Cannot create ticket: No customer found with email %s. Please verify the email address.",
			email,
		), nil
	}
	if err != nil {
		return ticketError(err.Error()), nil
	}

	var conversationID *uuid.UUID
	if raw := strings.TrimSpace(stringArg(args, "conversation_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return ticketError(fmt.Sprintf("invalid conversation_id: %v", err)), nil
		}
		conversationID = &id
	}

	priority := derivePriority(description, category)
	ticket := &support.Ticket{
		CustomerID:     customer.ID,
		ConversationID: conversationID,
		Subject:        subject,
		Description:    description,
		Category:       category,
		Priority:       priority,
		Status:         support.TicketOpen,
		Metadata: map[string]any{
			"created_by":        "ai_agent",
			"escalation_reason": "automated_escalation",
		},
	}
	if err := c.tickets.CreateTicket(ctx, ticket); err != nil {
		return ticketError(err.Error()), nil
	}

	return fmt.Sprintf(
		"**Support Ticket Created Successfully**\n\n"+
			"- Ticket ID: `%s`\n"+
			"- Subject: %s\n"+
			"- Category: %s\n"+
			"- Priority: %s\n"+
			"- Expected Response: Within %s\n\n"+
			"A human support specialist will review your case and reach out to you at %s. "+
			"Please save your ticket ID for reference.",
		ticket.ID,
		subject,
		titleCase(string(category)),
		titleCase(string(priority)),
		expectedResponse(priority),
		email,
	), nil
}

func ticketError(reason string) string {
	return fmt.Sprintf("Error creating support ticket: %s. Please try again or contact support directly.", reason)
}
