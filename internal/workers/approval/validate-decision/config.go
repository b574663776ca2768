// internal/workers/approval/validate-decision/config.go
package validatedecision

import (
	"time"

	"callcenter-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// MinReasoningLength rejects rubber-stamp reasoning below this many
	// characters after trimming.
	MinReasoningLength int
}

func LoadConfig(cfg *config.Config) *Config {
	timeout := 10 * time.Second
	if wc, ok := cfg.Workers[TaskType]; ok && wc.Timeout > 0 {
		timeout = time.Duration(wc.Timeout) * time.Millisecond
	}
	return &Config{
		Timeout:            timeout,
		MinReasoningLength: 1,
	}
}
