package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	contractx "github.com/cloudflow/support-agent/agent/contract"
	logx "github.com/cloudflow/support-agent/pkg/logger"
)

// Keyword tables for the fallback classifier, checked in order: escalation
// wins over order, order over the FAQ default.
var (
	escalationKeywords = []string{
		"escalation", "human", "complex", "complaint", "frustrated",
		"angry", "urgent", "emergency", "manager", "supervisor",
	}
	orderKeywords = []string{
		"subscription", "billing", "invoice", "payment", "charge",
		"plan", "upgrade", "downgrade", "cancel", "refund",
		"account", "price", "cost", "fee", "renew",
	}
)

const (
	defaultConfidence = 0.8
	summaryMaxRunes   = 100
)

// Router classifies one user message into a specialist route with a single
// chat completion, falling back to keyword matching when the reply is
// unusable.
type Router struct {
	model        contractx.ChatModel
	systemPrompt string
	log          zerolog.Logger
}

var _ contractx.Classifier = (*Router)(nil)

func New(model contractx.ChatModel, systemPrompt string) (*Router, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: router prompt", contractx.ErrPromptMissing)
	}
	return &Router{
		model:        model,
		systemPrompt: systemPrompt,
		log:          logx.Component("router"),
	}, nil
}

// Classify never fails the turn: model or parse trouble degrades to the
// keyword fallback. Only an empty user message is an error.
func (r *Router) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.RouteDecision, error) {
	if strings.TrimSpace(req.UserMessage) == "" {
		return contractx.RouteDecision{}, fmt.Errorf("%w: user message is required", contractx.ErrValidation)
	}

	msgs := make([]contractx.ChatMessage, 0, len(req.History)+2)
	msgs = append(msgs, contractx.ChatMessage{Role: contractx.RoleSystem, Content: r.systemPrompt})
	msgs = append(msgs, req.History...)
	msgs = append(msgs, contractx.ChatMessage{Role: contractx.RoleUser, Content: req.UserMessage})

	raw, err := r.model.Invoke(ctx, msgs)
	if err != nil {
		r.log.Warn().Err(err).Msg("routing model call failed, falling back to keywords")
		return r.fallback("", req.UserMessage), nil
	}

	decision, err := parseDecision(raw, req.UserMessage)
	if err != nil {
		r.log.Debug().Err(err).Msg("routing reply not parseable, falling back to keywords")
		return r.fallback(raw, req.UserMessage), nil
	}
	return decision, nil
}

// rawDecision defers field decoding so one mistyped field cannot reject an
// otherwise valid object.
type rawDecision struct {
	Route      json.RawMessage `json:"route"`
	Confidence json.RawMessage `json:"confidence"`
	Reasoning  json.RawMessage `json:"reasoning"`
	Summary    json.RawMessage `json:"summary"`
}

// parseDecision extracts the JSON object between the first "{" and the last
// "}" and normalizes its fields.
func parseDecision(raw, userMessage string) (contractx.RouteDecision, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return contractx.RouteDecision{}, fmt.Errorf("%w: no JSON object in routing reply", contractx.ErrSchemaViolation)
	}

	var parsed rawDecision
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return contractx.RouteDecision{}, fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
	}

	decision := contractx.RouteDecision{
		Route:      normalizeRoute(stringField(parsed.Route)),
		Confidence: confidenceField(parsed.Confidence),
		Reasoning:  stringField(parsed.Reasoning),
		Summary:    stringField(parsed.Summary),
	}
	if decision.Summary == "" {
		decision.Summary = truncate(userMessage, summaryMaxRunes)
	}
	return decision, nil
}

// stringField decodes a JSON string; any other shape counts as absent.
func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// confidenceField accepts numbers and numeric strings; anything else takes
// the default, same as a missing field.
func confidenceField(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return defaultConfidence
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v
		}
	}
	return defaultConfidence
}

func normalizeRoute(route string) contractx.AgentType {
	switch contractx.AgentType(strings.ToLower(strings.TrimSpace(route))) {
	case contractx.AgentTypeOrder:
		return contractx.AgentTypeOrder
	case contractx.AgentTypeEscalation:
		return contractx.AgentTypeEscalation
	default:
		return contractx.AgentTypeFAQ
	}
}

// fallback classifies by keyword. The raw reply still participates: the
// model may have named the right route in prose.
func (r *Router) fallback(raw, userMessage string) contractx.RouteDecision {
	text := strings.ToLower(raw + " " + userMessage)

	decision := contractx.RouteDecision{
		Route:      contractx.AgentTypeFAQ,
		Confidence: 0.6,
		Reasoning:  "Default routing to FAQ",
		Summary:    truncate(userMessage, summaryMaxRunes),
	}

	switch {
	case containsAny(text, escalationKeywords):
		decision.Route = contractx.AgentTypeEscalation
		decision.Confidence = 0.7
		decision.Reasoning = "Detected escalation keywords"
	case containsAny(text, orderKeywords):
		decision.Route = contractx.AgentTypeOrder
		decision.Confidence = 0.75
		decision.Reasoning = "Detected billing/subscription keywords"
	}
	return decision
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
