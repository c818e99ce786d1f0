package impact

import "github.com/sourcelens/audit-cli/internal/config"

// TierCOptionsFromConfig maps the impact config section onto Tier C options.
func TierCOptionsFromConfig(cfg config.ImpactConfig) TierCOptions {
	opts := DefaultTierCOptions()
	if cfg.MaxTotalImpact > 0 {
		opts.MaxTotalImpact = cfg.MaxTotalImpact
	}
	return opts
}

// TierBOptionsFromConfig maps the impact config section onto Tier B options.
func TierBOptionsFromConfig(cfg config.ImpactConfig) TierBOptions {
	opts := DefaultTierBOptions()
	if cfg.TierBTopFixes > 0 {
		opts.TopN = cfg.TierBTopFixes
	}
	if cfg.BaseRelevanceBoost > 0 {
		opts.RelevanceBoost = cfg.BaseRelevanceBoost
	}
	if cfg.MaxRelevanceScore > 0 {
		opts.RelevanceCap = cfg.MaxRelevanceScore
	}
	return opts
}
