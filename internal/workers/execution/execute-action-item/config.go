// internal/workers/execution/execute-action-item/config.go
package executeactionitem

import (
	"time"

	"callcenter-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	timeout := 60 * time.Second
	if wc, ok := cfg.Workers[TaskType]; ok && wc.Timeout > 0 {
		timeout = time.Duration(wc.Timeout) * time.Millisecond
	}
	return &Config{Timeout: timeout}
}
