package orchestrator

import "github.com/SuperCmdLabs/SuperCmd-sub001/config"

// fallbackOrder is the policy table for provider failover. New providers are
// added here and in the llm factory; the control flow never changes.
var fallbackOrder = []config.ProviderID{
	config.ProviderAnthropic,
	config.ProviderOpenAI,
	config.ProviderGemini,
	config.ProviderBedrock,
}

// ProviderPlan computes the ordered, de-duplicated list of providers to try
// for a task: the preferred provider first, then the fixed fallback order,
// keeping only providers whose credentials are present.
func ProviderPlan(cfg *config.Config) []config.ProviderID {
	var plan []config.ProviderID
	seen := make(map[config.ProviderID]bool)
	add := func(id config.ProviderID) {
		if id == "" || seen[id] || !cfg.HasCredentials(id) {
			return
		}
		seen[id] = true
		plan = append(plan, id)
	}

	add(cfg.Preferred)
	for _, id := range fallbackOrder {
		add(id)
	}
	return plan
}
