package services

import (
	"context"
	"fmt"

	"scamdrill/config"
	"scamdrill/db"
	"scamdrill/scenario"
)

// LoadScenarioDocument returns the raw scenario document for a name. A
// stored override takes precedence silently; otherwise a single remote fetch
// is attempted.
func LoadScenarioDocument(ctx context.Context, cfg *config.Config, name string) ([]byte, error) {
	doc, err := db.GetScenarioOverride(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario override: %w", err)
	}
	if doc != nil {
		return doc, nil
	}

	if cfg.Scenario.BaseURL == "" {
		return nil, fmt.Errorf("no override stored for scenario %q and no remote source configured", name)
	}
	return scenario.Fetch(ctx, cfg.Scenario.BaseURL+"/"+name+".json")
}
