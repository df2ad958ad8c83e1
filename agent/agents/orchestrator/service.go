package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	contractx "github.com/cloudflow/support-agent/agent/contract"
	memoryx "github.com/cloudflow/support-agent/agent/memory"
	logx "github.com/cloudflow/support-agent/pkg/logger"
	tracex "github.com/cloudflow/support-agent/pkg/trace"
	"github.com/cloudflow/support-agent/support"
)

// DefaultSweepAge bounds how old an active conversation may grow before
// Sweep closes it.
const DefaultSweepAge = 30 * 24 * time.Hour

// CustomerDirectory resolves the customer behind an email address. A miss
// wraps contract.ErrNotFound.
type CustomerDirectory interface {
	CustomerByEmail(ctx context.Context, email string) (support.Customer, error)
}

// Request is one inbound user turn.
type Request struct {
	ConversationID uuid.UUID
	CustomerEmail  string
	Message        string
	CorrelationID  string
}

// Response is the handled turn along with the routing decision that
// produced it.
type Response struct {
	Content           string              `json:"content"`
	AgentType         contractx.AgentType `json:"agent_type"`
	Route             contractx.AgentType `json:"route"`
	RoutingConfidence float64             `json:"routing_confidence"`
	RoutingReasoning  string              `json:"routing_reasoning"`
	ToolsUsed         []contractx.ToolUse `json:"tools_used,omitempty"`
	ConversationID    uuid.UUID           `json:"conversation_id"`
}

// Service drives a full support turn: persist the user message, classify
// it, hand it to the routed specialist, and return the reply together with
// the routing metadata. It also owns the conversation lifecycle operations
// (summary, close, sweep).
type Service struct {
	store     memoryx.Store
	customers CustomerDirectory
	agents    contractx.Registry
	log       zerolog.Logger

	now func() time.Time
}

func New(store memoryx.Store, customers CustomerDirectory, agents contractx.Registry) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: memory store is required", contractx.ErrValidation)
	}
	if customers == nil {
		return nil, fmt.Errorf("%w: customer directory is required", contractx.ErrValidation)
	}
	if agents == nil {
		return nil, fmt.Errorf("%w: agent registry is required", contractx.ErrValidation)
	}
	return &Service{
		store:     store,
		customers: customers,
		agents:    agents,
		log:       logx.Component("orchestrator"),
		now:       time.Now,
	}, nil
}

// HandleMessage runs one turn end to end. The routing decision itself is
// not persisted; only the user message and the specialist's reply land in
// the conversation.
func (s *Service) HandleMessage(ctx context.Context, req Request) (Response, error) {
	if req.ConversationID == uuid.Nil {
		return Response{}, fmt.Errorf("%w: conversation id is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(req.Message) == "" {
		return Response{}, fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	}

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	ctx = tracex.WithCorrelationID(ctx, correlationID)
	log := s.log.With().
		Str("correlation_id", correlationID).
		Str("conversation_id", req.ConversationID.String()).
		Logger()

	customerID := s.resolveCustomer(ctx, log, req.CustomerEmail)

	session, err := memoryx.Open(ctx, s.store, req.ConversationID)
	if err != nil {
		return Response{}, fmt.Errorf("open conversation: %w", err)
	}

	log.Info().Msg("processing message")

	if err := session.AddUserMessage(ctx, req.Message, map[string]any{"correlation_id": correlationID}); err != nil {
		return Response{}, fmt.Errorf("save user message: %w", err)
	}

	// The window is read after the user row lands, so the classifier and
	// the specialist both see the turn they are answering.
	window, err := session.Window(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("read conversation window: %w", err)
	}
	history := memoryx.ChatHistory(window)

	decision, err := s.agents.Classifier().Classify(ctx, contractx.ClassifyRequest{
		UserMessage: req.Message,
		History:     history,
	})
	if err != nil {
		return Response{}, fmt.Errorf("classify message: %w", err)
	}

	log.Info().
		Str("route", string(decision.Route)).
		Float64("confidence", decision.Confidence).
		Msg("message routed")

	route, agent := s.agentFor(log, decision.Route)

	result, err := agent.Respond(ctx, contractx.AgentRequest{
		ConversationID: req.ConversationID,
		CustomerID:     customerID,
		CustomerEmail:  req.CustomerEmail,
		UserMessage:    req.Message,
		History:        history,
		CorrelationID:  correlationID,
	})
	if err != nil {
		return Response{}, err
	}

	return Response{
		Content:           result.Content,
		AgentType:         route,
		Route:             route,
		RoutingConfidence: decision.Confidence,
		RoutingReasoning:  decision.Reasoning,
		ToolsUsed:         result.ToolsUsed,
		ConversationID:    req.ConversationID,
	}, nil
}

// resolveCustomer maps an email to a customer id. Unknown addresses and
// lookup failures leave the turn anonymous instead of blocking it.
func (s *Service) resolveCustomer(ctx context.Context, log zerolog.Logger, email string) *uuid.UUID {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	customer, err := s.customers.CustomerByEmail(ctx, email)
	if errors.Is(err, contractx.ErrNotFound) {
		log.Warn().Str("customer_email", email).Msg("no customer matches email")
		return nil
	}
	if err != nil {
		log.Warn().Err(err).Str("customer_email", email).Msg("customer lookup failed")
		return nil
	}
	return &customer.ID
}

func (s *Service) agentFor(log zerolog.Logger, route contractx.AgentType) (contractx.AgentType, contractx.Agent) {
	switch route {
	case contractx.AgentTypeFAQ:
		return route, s.agents.FAQ()
	case contractx.AgentTypeOrder:
		return route, s.agents.Order()
	case contractx.AgentTypeEscalation:
		return route, s.agents.Escalation()
	default:
		log.Warn().Str("route", string(route)).Msg("unknown route, defaulting to faq")
		return contractx.AgentTypeFAQ, s.agents.FAQ()
	}
}

// Summary reports the conversation head plus its message count.
func (s *Service) Summary(ctx context.Context, conversationID uuid.UUID) (memoryx.Summary, error) {
	return memoryx.Bind(s.store, conversationID).Summary(ctx)
}

// Close marks the conversation closed.
func (s *Service) Close(ctx context.Context, conversationID uuid.UUID) error {
	if err := s.store.SetStatus(ctx, conversationID, memoryx.StatusClosed); err != nil {
		return fmt.Errorf("close conversation: %w", err)
	}
	s.log.Info().Str("conversation_id", conversationID.String()).Msg("conversation closed")
	return nil
}

// Sweep closes active conversations whose updated_at predates the cutoff
// derived from olderThan. Zero and negative ages fall back to
// DefaultSweepAge. Returns how many conversations were closed.
func (s *Service) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = DefaultSweepAge
	}
	cutoff := s.now().Add(-olderThan)
	n, err := s.store.CloseStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep conversations: %w", err)
	}
	if n > 0 {
		s.log.Info().Int("closed", n).Time("cutoff", cutoff).Msg("stale conversations closed")
	}
	return n, nil
}
