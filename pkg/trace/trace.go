// Package tracex carries correlation IDs through context and emits
// structured start/finish events around agent and tool invocations.
package tracex

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type correlationKey struct{}

// WithCorrelationID returns a context carrying the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation ID stored in ctx, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// EnsureCorrelationID reuses the ID already in ctx or mints a new one.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if id := CorrelationID(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithCorrelationID(ctx, id), id
}

type Tracer interface {
	AgentCall(ctx context.Context, agentType, conversationID string, inputLen int)
	AgentResult(ctx context.Context, agentType, conversationID string, outputLen int, elapsed time.Duration, success bool, tools []string)
	ToolCall(ctx context.Context, tool, agentType string, argKeys []string)
	ToolResult(ctx context.Context, tool string, elapsed time.Duration, success bool)
}

// New returns a Tracer that writes to the global zerolog logger.
func New() Tracer { return logTracer{} }

// Nop returns a Tracer that discards everything.
func Nop() Tracer { return nopTracer{} }

type logTracer struct{}

func (logTracer) AgentCall(ctx context.Context, agentType, conversationID string, inputLen int) {
	log.Info().
		Str("correlation_id", CorrelationID(ctx)).
		Str("agent_type", agentType).
		Str("conversation_id", conversationID).
		Int("input_length", inputLen).
		Msg("agent call started")
}

func (logTracer) AgentResult(ctx context.Context, agentType, conversationID string, outputLen int, elapsed time.Duration, success bool, tools []string) {
	evt := log.Info()
	if !success {
		evt = log.Error()
	}
	evt.
		Str("correlation_id", CorrelationID(ctx)).
		Str("agent_type", agentType).
		Str("conversation_id", conversationID).
		Int("output_length", outputLen).
		Float64("duration_ms", durationMillis(elapsed)).
		Bool("success", success).
		Strs("tools_used", tools).
		Msg("agent call finished")
}

func (logTracer) ToolCall(ctx context.Context, tool, agentType string, argKeys []string) {
	log.Debug().
		Str("correlation_id", CorrelationID(ctx)).
		Str("tool_name", tool).
		Str("agent_type", agentType).
		Strs("input_keys", argKeys).
		Msg("tool call started")
}

func (logTracer) ToolResult(ctx context.Context, tool string, elapsed time.Duration, success bool) {
	evt := log.Debug()
	if !success {
		evt = log.Warn()
	}
	evt.
		Str("correlation_id", CorrelationID(ctx)).
		Str("tool_name", tool).
		Float64("duration_ms", durationMillis(elapsed)).
		Bool("success", success).
		Msg("tool call finished")
}

func durationMillis(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000*100) / 100
}

type nopTracer struct{}

func (nopTracer) AgentCall(context.Context, string, string, int) {}
func (nopTracer) AgentResult(context.Context, string, string, int, time.Duration, bool, []string) {
}
func (nopTracer) ToolCall(context.Context, string, string, []string)      {}
func (nopTracer) ToolResult(context.Context, string, time.Duration, bool) {}
