package contract

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
)

type AgentType string

const (
	AgentTypeRouter     AgentType = "router"
	AgentTypeFAQ        AgentType = "faq"
	AgentTypeOrder      AgentType = "order"
	AgentTypeEscalation AgentType = "escalation"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

type ChatMessage struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall carries the model's raw JSON arguments; decoding is the
// executor's problem.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

type ModelReply struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

type ToolDefinition struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
}

type ClassifyRequest struct {
	UserMessage string        `json:"user_message"`
	History     []ChatMessage `json:"history,omitempty"`
}

type RouteDecision struct {
	Route      AgentType `json:"route"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
	Summary    string    `json:"summary"`
}

type AgentRequest struct {
	ConversationID uuid.UUID     `json:"conversation_id"`
	CustomerID     *uuid.UUID    `json:"customer_id,omitempty"`
	CustomerEmail  string        `json:"customer_email,omitempty"`
	UserMessage    string        `json:"user_message"`
	History        []ChatMessage `json:"history,omitempty"`
	CorrelationID  string        `json:"correlation_id,omitempty"`
}

type AgentResult struct {
	Content   string    `json:"content"`
	AgentType AgentType `json:"agent_type"`
	ToolsUsed []ToolUse `json:"tools_used,omitempty"`
}

type ToolUse struct {
	Name          string         `json:"name"`
	Args          map[string]any `json:"args,omitempty"`
	ResultPreview string         `json:"result_preview,omitempty"`
}
