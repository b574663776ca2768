// internal/workers/risk/route-approval/config.go
package routeapproval

import (
	"time"

	"callcenter-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// Policies is the auto-approval eligibility matrix by workflow type.
	Policies config.ApprovalConfig
	// OverrideTTL bounds how long a runtime policy override read from the
	// cache is honored before the next read.
	OverrideTTL time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	timeout := 10 * time.Second
	if wc, ok := cfg.Workers[TaskType]; ok && wc.Timeout > 0 {
		timeout = time.Duration(wc.Timeout) * time.Millisecond
	}
	return &Config{
		Timeout:     timeout,
		Policies:    cfg.Approval,
		OverrideTTL: 5 * time.Minute,
	}
}
