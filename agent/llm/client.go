package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	contractx "github.com/cloudflow/support-agent/agent/contract"
)

// NewOpenAIClient builds the shared SDK client. Returns nil when no API key
// is configured so callers can fail fast with their own error.
func NewOpenAIClient(cfg Config) *openaisdk.Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	client := openaisdk.NewClient(opts...)
	return &client
}

// Client adapts one (model, temperature) pairing of the SDK client to the
// contract.ChatModel interface. Build one per agent via Config.For.
type Client struct {
	api  *openaisdk.Client
	opts Options
}

var _ contractx.ChatModel = (*Client)(nil)

func NewClient(api *openaisdk.Client, opts Options) (*Client, error) {
	if api == nil {
		return nil, fmt.Errorf("%w: openai client is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("%w: model name is required", contractx.ErrValidation)
	}
	return &Client{api: api, opts: opts}, nil
}

func (c *Client) Invoke(ctx context.Context, msgs []contractx.ChatMessage) (string, error) {
	reply, err := c.complete(ctx, msgs, nil)
	if err != nil {
		return "", err
	}
	return reply.Content, nil
}

func (c *Client) InvokeWithTools(ctx context.Context, msgs []contractx.ChatMessage, tools []contractx.ToolDefinition) (*contractx.ModelReply, error) {
	return c.complete(ctx, msgs, tools)
}

func (c *Client) complete(ctx context.Context, msgs []contractx.ChatMessage, tools []contractx.ToolDefinition) (*contractx.ModelReply, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model:    c.opts.Model,
		Messages: toSDKMessages(msgs),
	}
	if c.opts.Temperature >= 0 {
		params.Temperature = param.NewOpt(c.opts.Temperature)
	}
	if c.opts.MaxCompletionTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(c.opts.MaxCompletionTokens)
	}
	if len(tools) > 0 {
		sdkTools, err := toSDKTools(tools)
		if err != nil {
			return nil, err
		}
		params.Tools = sdkTools
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion returned no choices", contractx.ErrModelInvoke)
	}

	msg := resp.Choices[0].Message
	reply := &contractx.ModelReply{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, contractx.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return reply, nil
}

func toSDKMessages(msgs []contractx.ChatMessage) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case contractx.RoleSystem:
			out = append(out, openaisdk.SystemMessage(m.Content))
		case contractx.RoleAssistant:
			if len(m.ToolCalls) > 0 {
				out = append(out, assistantToolCalls(m))
				continue
			}
			out = append(out, openaisdk.AssistantMessage(m.Content))
		case contractx.RoleTool:
			out = append(out, openaisdk.ToolMessage(m.Content, m.ToolCallID))
		default:
			out = append(out, openaisdk.UserMessage(m.Content))
		}
	}
	return out
}

func assistantToolCalls(m contractx.ChatMessage) openaisdk.ChatCompletionMessageParamUnion {
	calls := make([]openaisdk.ChatCompletionMessageToolCallParam, 0, len(m.ToolCalls))
	for _, tc := range m.ToolCalls {
		calls = append(calls, openaisdk.ChatCompletionMessageToolCallParam{
			ID: tc.ID,
			Function: openaisdk.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}

	assistant := &openaisdk.ChatCompletionAssistantMessageParam{ToolCalls: calls}
	if m.Content != "" {
		assistant.Content = openaisdk.ChatCompletionAssistantMessageParamContentUnion{
			OfString: param.NewOpt(m.Content),
		}
	}
	return openaisdk.ChatCompletionMessageParamUnion{OfAssistant: assistant}
}

func toSDKTools(defs []contractx.ToolDefinition) ([]openaisdk.ChatCompletionToolParam, error) {
	out := make([]openaisdk.ChatCompletionToolParam, 0, len(defs))
	for _, d := range defs {
		fn := openaisdk.FunctionDefinitionParam{Name: d.Name}
		if d.Description != "" {
			fn.Description = param.NewOpt(d.Description)
		}
		if d.Parameters != nil {
			params, err := functionParameters(d)
			if err != nil {
				return nil, err
			}
			fn.Parameters = params
		}
		out = append(out, openaisdk.ChatCompletionToolParam{Function: fn})
	}
	return out, nil
}

func functionParameters(d contractx.ToolDefinition) (openaisdk.FunctionParameters, error) {
	raw, err := json.Marshal(d.Parameters)
	if err != nil {
		return nil, fmt.Errorf("marshal schema for tool %s: %w", d.Name, err)
	}
	var params openaisdk.FunctionParameters
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("convert schema for tool %s: %w", d.Name, err)
	}
	return params, nil
}
