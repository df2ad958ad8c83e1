package router

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/cloudflow/support-agent/agent/contract"
)

type fakeChatModel struct {
	reply string
	err   error

	gotMsgs []contractx.ChatMessage
}

func (f *fakeChatModel) Invoke(_ context.Context, msgs []contractx.ChatMessage) (string, error) {
	f.gotMsgs = msgs
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeChatModel) InvokeWithTools(context.Context, []contractx.ChatMessage, []contractx.ToolDefinition) (*contractx.ModelReply, error) {
	return nil, errors.New("router must not request tools")
}

func newTestRouter(t *testing.T, model *fakeChatModel) *Router {
	t.Helper()
	r, err := New(model, "classify the message")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestClassifyParsesModelReply(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{
		reply: `{"route": "order", "confidence": 0.95, "reasoning": "asks about an invoice", "summary": "invoice question"}`,
	}
	r := newTestRouter(t, model)

	history := []contractx.ChatMessage{
		{Role: contractx.RoleUser, Content: "Hi"},
		{Role: contractx.RoleAssistant, Content: "Hello! How can I help?"},
	}
	got, err := r.Classify(context.Background(), contractx.ClassifyRequest{
		UserMessage: "Where is my latest invoice?",
		History:     history,
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	want := contractx.RouteDecision{
		Route:      contractx.AgentTypeOrder,
		Confidence: 0.95,
		Reasoning:  "asks about an invoice",
		Summary:    "invoice question",
	}
	if got != want {
		t.Fatalf("decision = %+v, want %+v", got, want)
	}

	if len(model.gotMsgs) != 4 {
		t.Fatalf("model saw %d messages, want 4", len(model.gotMsgs))
	}
	if model.gotMsgs[0].Role != contractx.RoleSystem || model.gotMsgs[0].Content != "classify the message" {
		t.Fatalf("first message = %+v, want the system prompt", model.gotMsgs[0])
	}
	if model.gotMsgs[1].Content != "Hi" || model.gotMsgs[2].Content != "Hello! How can I help?" {
		t.Fatalf("history not forwarded in order: %+v", model.gotMsgs[1:3])
	}
	last := model.gotMsgs[3]
	if last.Role != contractx.RoleUser || last.Content != "Where is my latest invoice?" {
		t.Fatalf("last message = %+v, want the user turn", last)
	}
}

func TestClassifyExtractsObjectFromProse(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{
		reply: "Sure, here is the routing decision:\n```json\n{\"route\": \"escalation\", \"confidence\": 0.9, \"reasoning\": \"angry customer\", \"summary\": \"complaint\"}\n```\nLet me know if you need anything else.",
	}
	r := newTestRouter(t, model)

	got, err := r.Classify(context.Background(), contractx.ClassifyRequest{UserMessage: "This is unacceptable"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Route != contractx.AgentTypeEscalation || got.Confidence != 0.9 {
		t.Fatalf("decision = %+v, want escalation at 0.9", got)
	}
}

func TestClassifyNormalizesRoutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		route string
		want  contractx.AgentType
	}{
		{name: "canonical", route: "order", want: contractx.AgentTypeOrder},
		{name: "upper case", route: "ORDER", want: contractx.AgentTypeOrder},
		{name: "padded", route: "  Escalation  ", want: contractx.AgentTypeEscalation},
		{name: "faq", route: "faq", want: contractx.AgentTypeFAQ},
		{name: "unknown maps to faq", route: "billing", want: contractx.AgentTypeFAQ},
		{name: "empty maps to faq", route: "", want: contractx.AgentTypeFAQ},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			model := &fakeChatModel{reply: `{"route": "` + tt.route + `", "confidence": 0.9}`}
			r := newTestRouter(t, model)

			got, err := r.Classify(context.Background(), contractx.ClassifyRequest{UserMessage: "hello there"})
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got.Route != tt.want {
				t.Fatalf("route %q normalized to %q, want %q", tt.route, got.Route, tt.want)
			}
		})
	}
}

func TestClassifyToleratesMalformedFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		reply          string
		wantRoute      contractx.AgentType
		wantConfidence float64
	}{
		{
			name:           "confidence as numeric string",
			reply:          `{"route": "order", "confidence": "0.9"}`,
			wantRoute:      contractx.AgentTypeOrder,
			wantConfidence: 0.9,
		},
		{
			name:           "confidence as prose",
			reply:          `{"route": "order", "confidence": "high"}`,
			wantRoute:      contractx.AgentTypeOrder,
			wantConfidence: 0.8,
		},
		{
			name:           "confidence missing",
			reply:          `{"route": "escalation"}`,
			wantRoute:      contractx.AgentTypeEscalation,
			wantConfidence: 0.8,
		},
		{
			name:           "route as number",
			reply:          `{"route": 3, "confidence": 0.9}`,
			wantRoute:      contractx.AgentTypeFAQ,
			wantConfidence: 0.9,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			model := &fakeChatModel{reply: tt.reply}
			r := newTestRouter(t, model)

			got, err := r.Classify(context.Background(), contractx.ClassifyRequest{UserMessage: "hello there"})
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got.Route != tt.wantRoute || got.Confidence != tt.wantConfidence {
				t.Fatalf("decision = %+v, want route %q confidence %v", got, tt.wantRoute, tt.wantConfidence)
			}
		})
	}
}

func TestClassifyFillsSummaryFromUserMessage(t *testing.T) {
	t.Parallel()

	// 99 ASCII runes plus 3 two-byte runes; the cut must count runes.
	long := strings.Repeat("a", 99) + "ééé"
	model := &fakeChatModel{reply: `{"route": "faq", "confidence": 0.9}`}
	r := newTestRouter(t, model)

	got, err := r.Classify(context.Background(), contractx.ClassifyRequest{UserMessage: long})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	want := strings.Repeat("a", 99) + "é"
	if got.Summary != want {
		t.Fatalf("summary = %q (%d runes), want first 100 runes", got.Summary, len([]rune(got.Summary)))
	}
}

func TestClassifyFallsBackOnUnparsableReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		message        string
		wantRoute      contractx.AgentType
		wantConfidence float64
		wantReasoning  string
	}{
		{
			name:           "subscription cancel goes to order",
			message:        "I want to cancel my subscription",
			wantRoute:      contractx.AgentTypeOrder,
			wantConfidence: 0.75,
			wantReasoning:  "Detected billing/subscription keywords",
		},
		{
			name:           "escalation wins over order",
			message:        "I am frustrated about this invoice",
			wantRoute:      contractx.AgentTypeEscalation,
			wantConfidence: 0.7,
			wantReasoning:  "Detected escalation keywords",
		},
		{
			name:           "no keywords default to faq",
			message:        "What timezone does the dashboard use?",
			wantRoute:      contractx.AgentTypeFAQ,
			wantConfidence: 0.6,
			wantReasoning:  "Default routing to FAQ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			model := &fakeChatModel{reply: "I think this should go to the order team."}
			r := newTestRouter(t, model)

			got, err := r.Classify(context.Background(), contractx.ClassifyRequest{UserMessage: tt.message})
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got.Route != tt.wantRoute || got.Confidence != tt.wantConfidence || got.Reasoning != tt.wantReasoning {
				t.Fatalf("decision = %+v, want %s at %v (%s)", got, tt.wantRoute, tt.wantConfidence, tt.wantReasoning)
			}
			if got.Summary != tt.message {
				t.Fatalf("summary = %q, want the user message", got.Summary)
			}
		})
	}
}

func TestClassifyFallbackScansModelReplyToo(t *testing.T) {
	t.Parallel()

	// No JSON, but the reply names billing; the neutral user message alone
	// would land on faq.
	model := &fakeChatModel{reply: "This looks like a billing matter."}
	r := newTestRouter(t, model)

	got, err := r.Classify(context.Background(), contractx.ClassifyRequest{UserMessage: "Can you help me with something?"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Route != contractx.AgentTypeOrder {
		t.Fatalf("route = %q, want order from the reply text", got.Route)
	}
}

func TestClassifyFallsBackOnModelError(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{err: contractx.ErrModelInvoke}
	r := newTestRouter(t, model)

	got, err := r.Classify(context.Background(), contractx.ClassifyRequest{UserMessage: "I need to update my payment method"})
	if err != nil {
		t.Fatalf("Classify must absorb model errors, got %v", err)
	}
	if got.Route != contractx.AgentTypeOrder || got.Confidence != 0.75 {
		t.Fatalf("decision = %+v, want keyword fallback to order", got)
	}
}

func TestClassifyRejectsEmptyMessage(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &fakeChatModel{reply: "{}"})

	_, err := r.Classify(context.Background(), contractx.ClassifyRequest{UserMessage: "   "})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, "prompt"); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("nil model err = %v, want ErrValidation", err)
	}
	if _, err := New(&fakeChatModel{}, "  "); !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("blank prompt err = %v, want ErrPromptMissing", err)
	}
}
