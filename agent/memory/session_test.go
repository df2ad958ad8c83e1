package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	contractx "github.com/cloudflow/support-agent/agent/contract"
)

type fakeStore struct {
	conversations map[uuid.UUID]Conversation
	messages      []Message

	gotRecentN int
	created    []uuid.UUID
	purged     []uuid.UUID
	statuses   []Status
	getErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{conversations: make(map[uuid.UUID]Conversation)}
}

func (f *fakeStore) GetOrCreate(_ context.Context, id uuid.UUID) (Conversation, error) {
	if f.getErr != nil {
		return Conversation{}, f.getErr
	}
	f.created = append(f.created, id)
	conv, ok := f.conversations[id]
	if !ok {
		conv = Conversation{ID: id, Status: StatusActive}
		f.conversations[id] = conv
	}
	return conv, nil
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (Conversation, error) {
	conv, ok := f.conversations[id]
	if !ok {
		return Conversation{}, ErrConversationNotFound
	}
	return conv, nil
}

func (f *fakeStore) SetStatus(_ context.Context, id uuid.UUID, status Status) error {
	conv, ok := f.conversations[id]
	if !ok {
		return ErrConversationNotFound
	}
	conv.Status = status
	f.conversations[id] = conv
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeStore) Append(_ context.Context, msg *Message) error {
	msg.ID = uuid.New()
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeStore) Recent(_ context.Context, id uuid.UUID, n int) ([]Message, error) {
	f.gotRecentN = n
	var mine []Message
	for _, m := range f.messages {
		if m.ConversationID == id {
			mine = append(mine, m)
		}
	}
	if n < len(mine) {
		mine = mine[len(mine)-n:]
	}
	// Newest first, per the Store contract.
	out := make([]Message, 0, len(mine))
	for i := len(mine) - 1; i >= 0; i-- {
		out = append(out, mine[i])
	}
	return out, nil
}

func (f *fakeStore) All(_ context.Context, id uuid.UUID) ([]Message, error) {
	var out []Message
	for _, m := range f.messages {
		if m.ConversationID == id {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) Count(_ context.Context, id uuid.UUID) (int, error) {
	n := 0
	for _, m := range f.messages {
		if m.ConversationID == id {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Purge(_ context.Context, id uuid.UUID) error {
	f.purged = append(f.purged, id)
	var kept []Message
	for _, m := range f.messages {
		if m.ConversationID != id {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return nil
}

func (f *fakeStore) CloseStale(context.Context, time.Time) (int, error) {
	return 0, nil
}

var testConversationID = uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")

func seedMessages(store *fakeStore, n int) {
	for i := 0; i < n; i++ {
		store.messages = append(store.messages, Message{
			ID:             uuid.New(),
			ConversationID: testConversationID,
			Role:           contractx.RoleUser,
			Content:        fmt.Sprintf("message %d", i),
		})
	}
}

func TestWindowReturnsChronologicalTail(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seedMessages(store, 20)

	session := Bind(store, testConversationID, WithWindowSize(5))
	got, err := session.Window(context.Background())
	if err != nil {
		t.Fatalf("Window: %v", err)
	}

	if len(got) != 5 {
		t.Fatalf("window holds %d messages, want 5", len(got))
	}
	for i, m := range got {
		want := fmt.Sprintf("message %d", 15+i)
		if m.Content != want {
			t.Fatalf("window[%d] = %q, want %q", i, m.Content, want)
		}
	}
}

func TestWindowUsesDefaultSize(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seedMessages(store, 3)

	session := Bind(store, testConversationID)
	if _, err := session.Window(context.Background()); err != nil {
		t.Fatalf("Window: %v", err)
	}
	if store.gotRecentN != DefaultWindowSize {
		t.Fatalf("Recent asked for %d messages, want %d", store.gotRecentN, DefaultWindowSize)
	}
}

func TestWithWindowSizeIgnoresNonPositive(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	session := Bind(store, testConversationID, WithWindowSize(0), WithWindowSize(-3))

	if _, err := session.Window(context.Background()); err != nil {
		t.Fatalf("Window: %v", err)
	}
	if store.gotRecentN != DefaultWindowSize {
		t.Fatalf("Recent asked for %d messages, want the default %d", store.gotRecentN, DefaultWindowSize)
	}
}

func TestOpenEnsuresConversationRow(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	session, err := Open(context.Background(), store, testConversationID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if session.ConversationID() != testConversationID {
		t.Fatalf("ConversationID = %s, want %s", session.ConversationID(), testConversationID)
	}
	if len(store.created) != 1 || store.created[0] != testConversationID {
		t.Fatalf("GetOrCreate calls = %v, want the bound conversation", store.created)
	}
}

func TestOpenPropagatesStoreError(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.getErr = errors.New("connection refused")

	if _, err := Open(context.Background(), store, testConversationID); !errors.Is(err, store.getErr) {
		t.Fatalf("err = %v, want the store error", err)
	}
}

func TestAddMessagesStampConversation(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	session := Bind(store, testConversationID)
	ctx := context.Background()

	if err := session.AddUserMessage(ctx, "where is my invoice?", map[string]any{"correlation_id": "corr-1"}); err != nil {
		t.Fatalf("AddUserMessage: %v", err)
	}
	tools := []contractx.ToolUse{{Name: "get_invoices", ResultPreview: "..."}}
	if err := session.AddAssistantMessage(ctx, "here it is", contractx.AgentTypeOrder, tools, nil); err != nil {
		t.Fatalf("AddAssistantMessage: %v", err)
	}
	if err := session.AddSystemMessage(ctx, "conversation escalated"); err != nil {
		t.Fatalf("AddSystemMessage: %v", err)
	}

	if len(store.messages) != 3 {
		t.Fatalf("stored %d messages, want 3", len(store.messages))
	}
	for i, m := range store.messages {
		if m.ConversationID != testConversationID {
			t.Fatalf("message %d bound to %s, want %s", i, m.ConversationID, testConversationID)
		}
	}

	user, assistant, system := store.messages[0], store.messages[1], store.messages[2]
	if user.Role != contractx.RoleUser || user.Metadata["correlation_id"] != "corr-1" {
		t.Fatalf("user row = %+v", user)
	}
	if assistant.Role != contractx.RoleAssistant || assistant.AgentType != contractx.AgentTypeOrder || len(assistant.ToolCalls) != 1 {
		t.Fatalf("assistant row = %+v", assistant)
	}
	if system.Role != contractx.RoleSystem || system.Content != "conversation escalated" {
		t.Fatalf("system row = %+v", system)
	}
}

func TestChatHistoryDropsToolRows(t *testing.T) {
	t.Parallel()

	msgs := []Message{
		{Role: contractx.RoleSystem, Content: "you are a support agent"},
		{Role: contractx.RoleUser, Content: "hi"},
		{Role: contractx.RoleTool, Content: `{"result": "raw tool payload"}`},
		{Role: contractx.RoleAssistant, Content: "hello"},
	}

	got := ChatHistory(msgs)
	if len(got) != 3 {
		t.Fatalf("history holds %d messages, want 3", len(got))
	}
	wantOrder := []contractx.Role{contractx.RoleSystem, contractx.RoleUser, contractx.RoleAssistant}
	for i, role := range wantOrder {
		if got[i].Role != role {
			t.Fatalf("history[%d].Role = %q, want %q", i, got[i].Role, role)
		}
	}
	if got[2].Content != "hello" {
		t.Fatalf("history[2].Content = %q, want the assistant reply", got[2].Content)
	}
}

func TestClearPurgesMessages(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seedMessages(store, 4)

	session := Bind(store, testConversationID)
	if err := session.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(store.purged) != 1 || store.purged[0] != testConversationID {
		t.Fatalf("purged = %v, want the bound conversation", store.purged)
	}
	if n, _ := session.MessageCount(context.Background()); n != 0 {
		t.Fatalf("count after clear = %d, want 0", n)
	}
}

func TestSetStatusDelegates(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ctx := context.Background()

	session, err := Open(ctx, store, testConversationID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := session.SetStatus(ctx, StatusClosed); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	if got := store.conversations[testConversationID].Status; got != StatusClosed {
		t.Fatalf("status = %q, want %q", got, StatusClosed)
	}
	if len(store.statuses) != 1 || store.statuses[0] != StatusClosed {
		t.Fatalf("recorded statuses = %v, want one closed transition", store.statuses)
	}
}

func TestSummaryCombinesHeadAndCount(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	updated := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	store.conversations[testConversationID] = Conversation{
		ID:        testConversationID,
		Status:    StatusEscalated,
		CreatedAt: created,
		UpdatedAt: updated,
	}
	seedMessages(store, 6)

	session := Bind(store, testConversationID)
	got, err := session.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	want := Summary{
		ConversationID: testConversationID,
		Status:         StatusEscalated,
		MessageCount:   6,
		CreatedAt:      created,
		UpdatedAt:      updated,
	}
	if got != want {
		t.Fatalf("summary = %+v, want %+v", got, want)
	}
}

func TestSummaryMissingConversation(t *testing.T) {
	t.Parallel()

	session := Bind(newFakeStore(), testConversationID)
	if _, err := session.Summary(context.Background()); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}
}
