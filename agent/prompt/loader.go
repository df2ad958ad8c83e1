package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/faq.txt
	faqRaw string

	//go:embed template/order.txt
	orderRaw string

	//go:embed template/escalation.txt
	escalationRaw string

	//go:embed template/tool_rules.txt
	toolRulesRaw string
)

// Set holds the loaded system prompts. Specialist prompts do not include
// the shared tool rules; callers append ToolRules themselves.
type Set struct {
	Router     string
	FAQ        string
	Order      string
	Escalation string
	ToolRules  string
}

// Load returns the embedded prompts with surrounding whitespace trimmed.
// Safe to call concurrently; the embed is compile-time and trimming is cheap.
func Load() Set {
	return Set{
		Router:     strings.TrimSpace(routerRaw),
		FAQ:        strings.TrimSpace(faqRaw),
		Order:      strings.TrimSpace(orderRaw),
		Escalation: strings.TrimSpace(escalationRaw),
		ToolRules:  strings.TrimSpace(toolRulesRaw),
	}
}
