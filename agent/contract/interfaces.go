package contract

import "context"

type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (RouteDecision, error)
}

type Agent interface {
	Respond(ctx context.Context, req AgentRequest) (AgentResult, error)
}

type Registry interface {
	Classifier() Classifier
	FAQ() Agent
	Order() Agent
	Escalation() Agent
}

type ChatModel interface {
	Invoke(ctx context.Context, msgs []ChatMessage) (string, error)
	InvokeWithTools(ctx context.Context, msgs []ChatMessage, tools []ToolDefinition) (*ModelReply, error)
}
