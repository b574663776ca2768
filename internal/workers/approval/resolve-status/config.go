// internal/workers/approval/resolve-status/config.go
package resolvestatus

import (
	"time"

	"callcenter-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	timeout := 10 * time.Second
	if wc, ok := cfg.Workers[TaskType]; ok && wc.Timeout > 0 {
		timeout = time.Duration(wc.Timeout) * time.Millisecond
	}
	return &Config{Timeout: timeout}
}
