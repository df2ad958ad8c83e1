package specialist

import (
	"fmt"

	contractx "github.com/cloudflow/support-agent/agent/contract"
	llmx "github.com/cloudflow/support-agent/agent/llm"
	memoryx "github.com/cloudflow/support-agent/agent/memory"
	promptx "github.com/cloudflow/support-agent/agent/prompt"
	routerx "github.com/cloudflow/support-agent/agent/router"
	toolx "github.com/cloudflow/support-agent/agent/tool"
	tracex "github.com/cloudflow/support-agent/pkg/trace"
)

type registryImpl struct {
	classifier contractx.Classifier
	faq        contractx.Agent
	order      contractx.Agent
	escalation contractx.Agent
}

func (r *registryImpl) Classifier() contractx.Classifier {
	return r.classifier
}

func (r *registryImpl) FAQ() contractx.Agent {
	return r.faq
}

func (r *registryImpl) Order() contractx.Agent {
	return r.order
}

func (r *registryImpl) Escalation() contractx.Agent {
	return r.escalation
}

// NewRegistry builds the router plus the three specialists, each on its own
// model options from cfg.
func NewRegistry(
	cfg llmx.Config,
	prompts promptx.Set,
	catalog *toolx.Catalog,
	store memoryx.Store,
	tracer tracex.Tracer,
) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	api := llmx.NewOpenAIClient(cfg)

	routerModel, err := llmx.NewClient(api, cfg.For(contractx.AgentTypeRouter))
	if err != nil {
		return nil, fmt.Errorf("%w: create router model: %v", contractx.ErrModelInvoke, err)
	}
	classifier, err := routerx.New(routerModel, prompts.Router)
	if err != nil {
		return nil, err
	}

	faqModel, err := llmx.NewClient(api, cfg.For(contractx.AgentTypeFAQ))
	if err != nil {
		return nil, fmt.Errorf("%w: create faq model: %v", contractx.ErrModelInvoke, err)
	}
	faq, err := newSpecialist(contractx.AgentTypeFAQ, faqModel, specialistPrompt(prompts.FAQ, prompts.ToolRules), catalog, store, tracer)
	if err != nil {
		return nil, err
	}

	orderModel, err := llmx.NewClient(api, cfg.For(contractx.AgentTypeOrder))
	if err != nil {
		return nil, fmt.Errorf("%w: create order model: %v", contractx.ErrModelInvoke, err)
	}
	order, err := newSpecialist(contractx.AgentTypeOrder, orderModel, specialistPrompt(prompts.Order, prompts.ToolRules), catalog, store, tracer)
	if err != nil {
		return nil, err
	}
	order.prefix = orderPrefix

	escalationModel, err := llmx.NewClient(api, cfg.For(contractx.AgentTypeEscalation))
	if err != nil {
		return nil, fmt.Errorf("%w: create escalation model: %v", contractx.ErrModelInvoke, err)
	}
	escalation, err := newSpecialist(contractx.AgentTypeEscalation, escalationModel, specialistPrompt(prompts.Escalation, prompts.ToolRules), catalog, store, tracer)
	if err != nil {
		return nil, err
	}
	escalation.prefix = escalationPrefix
	escalation.escalates = true

	return &registryImpl{
		classifier: classifier,
		faq:        faq,
		order:      order,
		escalation: escalation,
	}, nil
}

// specialistPrompt appends the shared tool usage rules to an agent prompt.
func specialistPrompt(base, toolRules string) string {
	return base + "\n\n" + toolRules
}
