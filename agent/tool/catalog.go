package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	contractx "github.com/cloudflow/support-agent/agent/contract"
)

const (
	ToolSearchKnowledgeBase    = "search_knowledge_base"
	ToolGetCustomerInfo        = "get_customer_info"
	ToolGetSubscriptionDetails = "get_subscription_details"
	ToolGetInvoices            = "get_invoices"
	ToolCreateSupportTicket    = "create_support_ticket"
)

// ErrUnknownTool marks a call to a tool the agent does not own. Callers skip
// these silently instead of surfacing them to the model.
var ErrUnknownTool = errors.New("unknown tool")

// Executor runs one named tool. Expected failures (not found, bad input)
// come back as descriptive result text; the error return is reserved for
// transport faults and for tools outside the agent's set.
type Executor func(ctx context.Context, tool string, args map[string]any) (string, error)

// Catalog wires every tool family to its backing collaborators and hands
// each agent the slice it is allowed to call.
type Catalog struct {
	retriever Searcher
	accounts  AccountStore
	tickets   TicketStore
}

func NewCatalog(retriever Searcher, accounts AccountStore, tickets TicketStore) (*Catalog, error) {
	if retriever == nil {
		return nil, fmt.Errorf("%w: retriever is required", contractx.ErrValidation)
	}
	if accounts == nil {
		return nil, fmt.Errorf("%w: account store is required", contractx.ErrValidation)
	}
	if tickets == nil {
		return nil, fmt.Errorf("%w: ticket store is required", contractx.ErrValidation)
	}
	return &Catalog{retriever: retriever, accounts: accounts, tickets: tickets}, nil
}

func (c *Catalog) BuildForAgent(agentType contractx.AgentType) ([]contractx.ToolDefinition, Executor) {
	return definitionsFor(agentType), c.NewExecutor(agentType)
}

func (c *Catalog) NewExecutor(agentType contractx.AgentType) Executor {
	owned := make(map[string]bool)
	for _, name := range namesFor(agentType) {
		owned[name] = true
	}
	fallback := DefaultExecutor(agentType)
	return func(ctx context.Context, tool string, args map[string]any) (string, error) {
		if !owned[tool] {
			return fallback(ctx, tool, args)
		}
		switch tool {
		case ToolSearchKnowledgeBase:
			return c.executeKnowledgeSearch(ctx, args)
		case ToolGetCustomerInfo:
			return c.executeCustomerInfo(ctx, args)
		case ToolGetSubscriptionDetails:
			return c.executeSubscriptionDetails(ctx, args)
		case ToolGetInvoices:
			return c.executeInvoices(ctx, args)
		case ToolCreateSupportTicket:
			return c.executeCreateTicket(ctx, args)
		default:
			return fallback(ctx, tool, args)
		}
	}
}

func DefaultExecutor(agentType contractx.AgentType) Executor {
	return func(_ context.Context, tool string, _ map[string]any) (string, error) {
		return "", fmt.Errorf("%w: tool=%s is unavailable for agent=%s", ErrUnknownTool, tool, agentType)
	}
}

func namesFor(agentType contractx.AgentType) []string {
	switch agentType {
	case contractx.AgentTypeFAQ:
		return []string{ToolSearchKnowledgeBase}
	case contractx.AgentTypeOrder:
		return []string{ToolGetCustomerInfo, ToolGetSubscriptionDetails, ToolGetInvoices}
	case contractx.AgentTypeEscalation:
		return []string{ToolCreateSupportTicket}
	default:
		return nil
	}
}

func definitionsFor(agentType contractx.AgentType) []contractx.ToolDefinition {
	names := namesFor(agentType)
	if len(names) == 0 {
		return nil
	}
	defs := make([]contractx.ToolDefinition, 0, len(names))
	for _, name := range names {
		defs = append(defs, definitions[name])
	}
	return defs
}

var definitions = map[string]contractx.ToolDefinition{
	ToolSearchKnowledgeBase: {
		Name: ToolSearchKnowledgeBase,
		Description: "Search the knowledge base for relevant documentation and FAQs. " +
			"Use this tool to find information about CloudFlow features, how-to guides, policies, and troubleshooting steps.",
		Parameters: mustSchema[searchKnowledgeBaseArgs](map[string]string{
			"query":    "The search query describing what information you need",
			"category": "Optional filter for document category (faq, documentation, policy, troubleshooting)",
		}),
	},
	ToolGetCustomerInfo: {
		Name: ToolGetCustomerInfo,
		Description: "Look up customer information by email address. " +
			"Use this to verify customer identity and get basic account information.",
		Parameters: mustSchema[customerEmailArgs](map[string]string{
			"customer_email": "The customer's email address",
		}),
	},
	ToolGetSubscriptionDetails: {
		Name: ToolGetSubscriptionDetails,
		Description: "Get subscription details for a customer. " +
			"Use this to check plan information, billing cycle, and subscription status.",
		Parameters: mustSchema[customerEmailArgs](map[string]string{
			"customer_email": "The customer's email address",
		}),
	},
	ToolGetInvoices: {
		Name: ToolGetInvoices,
		Description: "Get invoice history for a customer. " +
			"Use this to check billing history, payment status, and outstanding balances.",
		Parameters: mustSchema[invoiceArgs](map[string]string{
			"customer_email": "The customer's email address",
			"limit":          "Maximum number of invoices to return (default: 5)",
		}),
	},
	ToolCreateSupportTicket: {
		Name: ToolCreateSupportTicket,
		Description: "Create a support ticket for human escalation. " +
			"Use this when the customer's issue requires human intervention or cannot be resolved automatically.",
		Parameters: mustSchema[createTicketArgs](map[string]string{
			"customer_email":  "The customer's email address",
			"subject":         "Brief summary of the issue",
			"description":     "Detailed description of the problem and any troubleshooting done",
			"category":        "Issue category (billing, technical, account, feature_request, bug_report, other)",
			"conversation_id": "Optional ID of the conversation for context",
		}),
	},
}

type searchKnowledgeBaseArgs struct {
	Query    string `json:"query"`
	Category string `json:"category,omitempty"`
}

type customerEmailArgs struct {
	CustomerEmail string `json:"customer_email"`
}

type invoiceArgs struct {
	CustomerEmail string `json:"customer_email"`
	Limit         int    `json:"limit,omitempty"`
}

type createTicketArgs struct {
	CustomerEmail  string `json:"customer_email"`
	Subject        string `json:"subject"`
	Description    string `json:"description"`
	Category       string `json:"category,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

func mustSchema[T any](fieldDocs map[string]string) *jsonschema.Schema {
	s, err := jsonschema.For[T](&jsonschema.ForOptions{})
	if err != nil {
		panic(fmt.Sprintf("tool: derive schema: %v", err))
	}
	for name, doc := range fieldDocs {
		if prop, ok := s.Properties[name]; ok {
			prop.Description = doc
		}
	}
	return s
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return fallback
}
