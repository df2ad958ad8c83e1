package memory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	contractx "github.com/cloudflow/support-agent/agent/contract"
)

var ErrConversationNotFound = errors.New("conversation not found")

type Status string

const (
	StatusActive    Status = "active"
	StatusClosed    Status = "closed"
	StatusEscalated Status = "escalated"
)

// Conversation is the persisted conversation head. UpdatedAt moves on
// creation and status changes, not per appended message.
type Conversation struct {
	ID         uuid.UUID      `json:"id"`
	CustomerID *uuid.UUID     `json:"customer_id,omitempty"`
	Title      string         `json:"title,omitempty"`
	Status     Status         `json:"status"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Message is one persisted turn. AgentType is empty for user rows.
type Message struct {
	ID             uuid.UUID           `json:"id"`
	ConversationID uuid.UUID           `json:"conversation_id"`
	Role           contractx.Role      `json:"role"`
	Content        string              `json:"content"`
	AgentType      contractx.AgentType `json:"agent_type,omitempty"`
	ToolCalls      []contractx.ToolUse `json:"tool_calls,omitempty"`
	Metadata       map[string]any      `json:"metadata,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// Store is the persistence contract for conversations and their messages.
//
// Recent returns up to n messages ordered newest first; Session.Window
// reverses them into chronological order. All returns the full transcript
// oldest first. Get reports a missing row as ErrConversationNotFound.
type Store interface {
	GetOrCreate(ctx context.Context, id uuid.UUID) (Conversation, error)
	Get(ctx context.Context, id uuid.UUID) (Conversation, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
	Append(ctx context.Context, msg *Message) error
	Recent(ctx context.Context, id uuid.UUID, n int) ([]Message, error)
	All(ctx context.Context, id uuid.UUID) ([]Message, error)
	Count(ctx context.Context, id uuid.UUID) (int, error)
	Purge(ctx context.Context, id uuid.UUID) error
	CloseStale(ctx context.Context, cutoff time.Time) (int, error)
}

// ChatHistory converts stored rows to chat messages for prompt building.
// Tool rows are dropped; the model only replays user/assistant/system turns.
func ChatHistory(msgs []Message) []contractx.ChatMessage {
	out := make([]contractx.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case contractx.RoleUser, contractx.RoleAssistant, contractx.RoleSystem:
			out = append(out, contractx.ChatMessage{Role: m.Role, Content: m.Content})
		}
	}
	return out
}
