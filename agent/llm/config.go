package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/cloudflow/support-agent/agent/contract"
)

// Config holds chat completion settings, with optional per-agent model and
// temperature overrides. A temperature of -1 means "inherit the default".
type Config struct {
	BaseURL             string        `envconfig:"BASE_URL" split_words:"true"`
	APIKey              string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model               string        `envconfig:"MODEL" split_words:"true" default:"gpt-4o-mini"`
	MaxCompletionTokens int64         `envconfig:"MAX_COMPLETION_TOKENS" split_words:"true" default:"2000"`
	Temperature         float64       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout             time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`

	RouterModel           string  `envconfig:"ROUTER_MODEL" split_words:"true"`
	FAQModel              string  `envconfig:"FAQ_MODEL" split_words:"true"`
	OrderModel            string  `envconfig:"ORDER_MODEL" split_words:"true"`
	EscalationModel       string  `envconfig:"ESCALATION_MODEL" split_words:"true"`
	RouterTemperature     float64 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"-1"`
	FAQTemperature        float64 `envconfig:"FAQ_TEMPERATURE" split_words:"true" default:"-1"`
	OrderTemperature      float64 `envconfig:"ORDER_TEMPERATURE" split_words:"true" default:"-1"`
	EscalationTemperature float64 `envconfig:"ESCALATION_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openai api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// Options resolves the effective model settings for one agent.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// For applies the per-agent overrides on top of the defaults.
func (c Config) For(agentType contractx.AgentType) Options {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch agentType {
	case contractx.AgentTypeRouter:
		if v := strings.TrimSpace(c.RouterModel); v != "" {
			modelName = v
		}
		if c.RouterTemperature >= 0 {
			temp = c.RouterTemperature
		}
	case contractx.AgentTypeFAQ:
		if v := strings.TrimSpace(c.FAQModel); v != "" {
			modelName = v
		}
		if c.FAQTemperature >= 0 {
			temp = c.FAQTemperature
		}
	case contractx.AgentTypeOrder:
		if v := strings.TrimSpace(c.OrderModel); v != "" {
			modelName = v
		}
		if c.OrderTemperature >= 0 {
			temp = c.OrderTemperature
		}
	case contractx.AgentTypeEscalation:
		if v := strings.TrimSpace(c.EscalationModel); v != "" {
			modelName = v
		}
		if c.EscalationTemperature >= 0 {
			temp = c.EscalationTemperature
		}
	}

	return Options{
		Model:               modelName,
		Temperature:         temp,
		MaxCompletionTokens: c.MaxCompletionTokens,
	}
}
