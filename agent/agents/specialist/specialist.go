package specialist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/cloudflow/support-agent/agent/contract"
	memoryx "github.com/cloudflow/support-agent/agent/memory"
	toolx "github.com/cloudflow/support-agent/agent/tool"
	logx "github.com/cloudflow/support-agent/pkg/logger"
	tracex "github.com/cloudflow/support-agent/pkg/trace"
)

const (
	fallbackToolCallID = "tool_call_1"
	previewRunes       = 200
)

type prefixFunc func(req contractx.AgentRequest) string

// specialistImpl runs the two-phase tool loop shared by the FAQ, order, and
// escalation agents. Phase 1 offers the agent's tools; when the model calls
// any, each result is spliced into the transcript and phase 2 re-invokes the
// model without tools for the final wording.
type specialistImpl struct {
	agentType contractx.AgentType
	model     contractx.ChatModel
	prompt    string
	tools     []contractx.ToolDefinition
	execute   toolx.Executor
	store     memoryx.Store
	tracer    tracex.Tracer
	log       zerolog.Logger
	prefix    prefixFunc
	escalates bool
}

var _ contractx.Agent = (*specialistImpl)(nil)

func newSpecialist(
	agentType contractx.AgentType,
	model contractx.ChatModel,
	systemPrompt string,
	catalog *toolx.Catalog,
	store memoryx.Store,
	tracer tracex.Tracer,
) (*specialistImpl, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: system prompt for agent=%s", contractx.ErrPromptMissing, agentType)
	}
	if catalog == nil {
		return nil, fmt.Errorf("%w: tool catalog is required", contractx.ErrValidation)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: conversation store is required", contractx.ErrValidation)
	}
	if tracer == nil {
		tracer = tracex.Nop()
	}

	tools, execute := catalog.BuildForAgent(agentType)
	return &specialistImpl{
		agentType: agentType,
		model:     model,
		prompt:    systemPrompt,
		tools:     tools,
		execute:   execute,
		store:     store,
		tracer:    tracer,
		log:       logx.Component(string(agentType)),
	}, nil
}

// Respond runs the loop, persists the assistant reply, and reports the turn
// through the tracer. Model transport failures are logged and propagated;
// tool-level failures never surface here because the executor folds them
// into result text.
func (s *specialistImpl) Respond(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResult, error) {
	if strings.TrimSpace(req.UserMessage) == "" {
		return contractx.AgentResult{}, fmt.Errorf("%w: user message is empty", contractx.ErrValidation)
	}
	if req.CorrelationID != "" {
		ctx = tracex.WithCorrelationID(ctx, req.CorrelationID)
	}

	start := time.Now()
	conversationID := req.ConversationID.String()
	s.tracer.AgentCall(ctx, string(s.agentType), conversationID, len(req.UserMessage))

	result, err := s.process(ctx, req)
	if err == nil {
		session := memoryx.Bind(s.store, req.ConversationID)
		if saveErr := session.AddAssistantMessage(ctx, result.Content, s.agentType, result.ToolsUsed, turnMetadata(req)); saveErr != nil {
			err = fmt.Errorf("save assistant message: %w", saveErr)
		}
	}
	if err != nil {
		s.log.Error().
			Err(err).
			Str("correlation_id", req.CorrelationID).
			Str("conversation_id", conversationID).
			Msg("agent execution failed")
		s.tracer.AgentResult(ctx, string(s.agentType), conversationID, 0, time.Since(start), false, nil)
		return contractx.AgentResult{}, err
	}

	s.tracer.AgentResult(ctx, string(s.agentType), conversationID, len(result.Content), time.Since(start), true, toolNames(result.ToolsUsed))
	return result, nil
}

func (s *specialistImpl) process(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResult, error) {
	live := req.UserMessage
	if s.prefix != nil {
		live = s.prefix(req) + live
	}
	msgs := buildMessages(s.prompt, req.History, live)

	reply, err := s.model.InvokeWithTools(ctx, msgs, s.tools)
	if err != nil {
		return contractx.AgentResult{}, err
	}

	if len(reply.ToolCalls) == 0 {
		return contractx.AgentResult{
			Content:   reply.Content,
			AgentType: s.agentType,
		}, nil
	}

	toolsUsed := make([]contractx.ToolUse, 0, len(reply.ToolCalls))
	for _, call := range reply.ToolCalls {
		name := strings.TrimSpace(call.Name)
		args := decodeArgs(call.Arguments)
		s.injectContext(req, name, args)

		s.tracer.ToolCall(ctx, name, string(s.agentType), sortedKeys(args))
		toolStart := time.Now()
		result, err := s.execute(ctx, name, args)
		if err != nil {
			s.tracer.ToolResult(ctx, name, time.Since(toolStart), false)
			if errors.Is(err, toolx.ErrUnknownTool) {
				// A hallucinated or foreign tool name: ignore the call but
				// still let phase 2 answer from what it has.
				continue
			}
			return contractx.AgentResult{}, err
		}
		s.tracer.ToolResult(ctx, name, time.Since(toolStart), true)

		toolsUsed = append(toolsUsed, contractx.ToolUse{
			Name:          name,
			Args:          args,
			ResultPreview: truncateRunes(result, previewRunes),
		})
		msgs = append(msgs,
			contractx.ChatMessage{
				Role:      contractx.RoleAssistant,
				Content:   reply.Content,
				ToolCalls: []contractx.ToolCall{call},
			},
			contractx.ChatMessage{
				Role:       contractx.RoleTool,
				Content:    result,
				ToolCallID: callID(call),
			},
		)
	}

	final, err := s.model.Invoke(ctx, msgs)
	if err != nil {
		return contractx.AgentResult{}, err
	}

	if s.escalates {
		if err := s.store.SetStatus(ctx, req.ConversationID, memoryx.StatusEscalated); err != nil {
			return contractx.AgentResult{}, fmt.Errorf("mark conversation escalated: %w", err)
		}
	}

	return contractx.AgentResult{
		Content:   final,
		AgentType: s.agentType,
		ToolsUsed: toolsUsed,
	}, nil
}

// injectContext fills arguments the model cannot know. Ticket creation gets
// the conversation id unless the model already supplied one.
func (s *specialistImpl) injectContext(req contractx.AgentRequest, tool string, args map[string]any) {
	if tool != toolx.ToolCreateSupportTicket {
		return
	}
	if _, ok := args["conversation_id"]; !ok {
		args["conversation_id"] = req.ConversationID.String()
	}
}

func buildMessages(systemPrompt string, history []contractx.ChatMessage, userMessage string) []contractx.ChatMessage {
	msgs := make([]contractx.ChatMessage, 0, len(history)+2)
	if systemPrompt != "" {
		msgs = append(msgs, contractx.ChatMessage{Role: contractx.RoleSystem, Content: systemPrompt})
	}
	msgs = append(msgs, history...)
	msgs = append(msgs, contractx.ChatMessage{Role: contractx.RoleUser, Content: userMessage})
	return msgs
}

// decodeArgs degrades bad argument JSON to an empty map; the tool then
// answers with its usual validation text instead of failing the turn.
func decodeArgs(raw string) map[string]any {
	args := map[string]any{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}
	}
	return args
}

func callID(call contractx.ToolCall) string {
	if strings.TrimSpace(call.ID) == "" {
		return fallbackToolCallID
	}
	return call.ID
}

func turnMetadata(req contractx.AgentRequest) map[string]any {
	if req.CorrelationID == "" {
		return nil
	}
	return map[string]any{"correlation_id": req.CorrelationID}
}

func toolNames(uses []contractx.ToolUse) []string {
	if len(uses) == 0 {
		return nil
	}
	names := make([]string, 0, len(uses))
	for _, u := range uses {
		names = append(names, u.Name)
	}
	return names
}

func sortedKeys(args map[string]any) []string {
	if len(args) == 0 {
		return nil
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func orderPrefix(req contractx.AgentRequest) string {
	if strings.TrimSpace(req.CustomerEmail) == "" {
		return ""
	}
	return fmt.Sprintf("[Customer Email: %s]\n\n", req.CustomerEmail)
}

func escalationPrefix(req contractx.AgentRequest) string {
	parts := make([]string, 0, 2)
	if strings.TrimSpace(req.CustomerEmail) != "" {
		parts = append(parts, fmt.Sprintf("Customer Email: %s", req.CustomerEmail))
	}
	parts = append(parts, fmt.Sprintf("Conversation ID: %s", req.ConversationID))
	return fmt.Sprintf("[%s]\n\n", strings.Join(parts, ", "))
}
