package support

// Plan represents a subscription tier.
type Plan string

const (
	PlanFree         Plan = "free"
	PlanStarter      Plan = "starter"
	PlanProfessional Plan = "professional"
	PlanEnterprise   Plan = "enterprise"
)

// SubscriptionStatus represents the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionPaused    SubscriptionStatus = "paused"
)

// BillingCycle represents how often a subscription bills.
type BillingCycle string

const (
	BillingMonthly BillingCycle = "monthly"
	BillingYearly  BillingCycle = "yearly"
)

// InvoiceStatus represents the payment state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoicePending   InvoiceStatus = "pending"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
	InvoiceRefunded  InvoiceStatus = "refunded"
)

// TicketCategory represents the issue class of a support ticket.
type TicketCategory string

const (
	CategoryBilling        TicketCategory = "billing"
	CategoryTechnical      TicketCategory = "technical"
	CategoryAccount        TicketCategory = "account"
	CategoryFeatureRequest TicketCategory = "feature_request"
	CategoryBugReport      TicketCategory = "bug_report"
	CategoryOther          TicketCategory = "other"
)

// TicketCategories lists every accepted category.
var TicketCategories = []TicketCategory{
	CategoryBilling,
	CategoryTechnical,
	CategoryAccount,
	CategoryFeatureRequest,
	CategoryBugReport,
	CategoryOther,
}

// Valid reports whether c is one of the accepted categories.
func (c TicketCategory) Valid() bool {
	for _, known := range TicketCategories {
		if c == known {
			return true
		}
	}
	return false
}

// TicketPriority represents how quickly a ticket must be handled.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// TicketStatus represents the workflow state of a support ticket.
type TicketStatus string

const (
	TicketOpen            TicketStatus = "open"
	TicketInProgress      TicketStatus = "in_progress"
	TicketWaitingCustomer TicketStatus = "waiting_customer"
	TicketResolved        TicketStatus = "resolved"
	TicketClosed          TicketStatus = "closed"
)
