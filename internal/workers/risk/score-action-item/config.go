// internal/workers/risk/score-action-item/config.go
package scoreactionitem

import (
	"encoding/json"
	"time"

	"callcenter-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// Thresholds keys the label/score invariant by workflow type.
	Thresholds config.RiskConfig
	// OutputSchema is the stage's registered LLM output schema.
	OutputSchema json.RawMessage
}

func LoadConfig(cfg *config.Config, schema json.RawMessage) *Config {
	timeout := 30 * time.Second
	if wc, ok := cfg.Workers[TaskType]; ok && wc.Timeout > 0 {
		timeout = time.Duration(wc.Timeout) * time.Millisecond
	}
	return &Config{
		Timeout:      timeout,
		Thresholds:   cfg.Risk,
		OutputSchema: schema,
	}
}
