// internal/workers/plan/extract-action-items/config.go
package extractactionitems

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
