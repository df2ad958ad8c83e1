package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	contractx "github.com/cloudflow/support-agent/agent/contract"
)

// DefaultWindowSize is how many recent messages feed the model context.
const DefaultWindowSize = 15

type Option func(*Session)

func WithWindowSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.window = n
		}
	}
}

// Session gives windowed access to one conversation. It holds no message
// state itself; every read goes to the Store.
type Session struct {
	store  Store
	convID uuid.UUID
	window int
}

// Bind attaches to a conversation without touching the store. Use when the
// conversation row is known to exist.
func Bind(store Store, conversationID uuid.UUID, opts ...Option) *Session {
	s := &Session{
		store:  store,
		convID: conversationID,
		window: DefaultWindowSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Open binds and ensures the conversation row exists with status active.
func Open(ctx context.Context, store Store, conversationID uuid.UUID, opts ...Option) (*Session, error) {
	s := Bind(store, conversationID, opts...)
	if _, err := store.GetOrCreate(ctx, conversationID); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) ConversationID() uuid.UUID { return s.convID }

/* ----------------------------- Writes ----------------------------- */

func (s *Session) AddUserMessage(ctx context.Context, content string, metadata map[string]any) error {
	return s.append(ctx, &Message{
		Role:     contractx.RoleUser,
		Content:  content,
		Metadata: metadata,
	})
}

func (s *Session) AddAssistantMessage(ctx context.Context, content string, agentType contractx.AgentType, toolCalls []contractx.ToolUse, metadata map[string]any) error {
	return s.append(ctx, &Message{
		Role:      contractx.RoleAssistant,
		Content:   content,
		AgentType: agentType,
		ToolCalls: toolCalls,
		Metadata:  metadata,
	})
}

func (s *Session) AddSystemMessage(ctx context.Context, content string) error {
	return s.append(ctx, &Message{Role: contractx.RoleSystem, Content: content})
}

func (s *Session) append(ctx context.Context, msg *Message) error {
	msg.ConversationID = s.convID
	return s.store.Append(ctx, msg)
}

func (s *Session) SetStatus(ctx context.Context, status Status) error {
	return s.store.SetStatus(ctx, s.convID, status)
}

func (s *Session) Clear(ctx context.Context) error {
	return s.store.Purge(ctx, s.convID)
}

/* ----------------------------- Reads ----------------------------- */

// Window returns the last N messages in chronological order.
func (s *Session) Window(ctx context.Context) ([]Message, error) {
	msgs, err := s.store.Recent(ctx, s.convID, s.window)
	if err != nil {
		return nil, err
	}
	// Recent is newest-first; flip to oldest-first for the prompt.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// History returns the full transcript, oldest first.
func (s *Session) History(ctx context.Context) ([]Message, error) {
	return s.store.All(ctx, s.convID)
}

func (s *Session) MessageCount(ctx context.Context) (int, error) {
	return s.store.Count(ctx, s.convID)
}

type Summary struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Status         Status    `json:"status"`
	MessageCount   int       `json:"message_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (s *Session) Summary(ctx context.Context) (Summary, error) {
	conv, err := s.store.Get(ctx, s.convID)
	if err != nil {
		return Summary{}, err
	}
	count, err := s.store.Count(ctx, s.convID)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		ConversationID: conv.ID,
		Status:         conv.Status,
		MessageCount:   count,
		CreatedAt:      conv.CreatedAt,
		UpdatedAt:      conv.UpdatedAt,
	}, nil
}
