// internal/workers/approval/send-notification/config.go
package sendnotification

import (
	"time"

	"callcenter-workers/internal/common/config"
)

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	// SMSPriorityThreshold gates SMS to items at or above this priority tag.
	SMSPriorityThreshold string
	Timeout              time.Duration
	ContactCacheTTL      time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	timeout := 30 * time.Second
	if wc, ok := cfg.Workers[TaskType]; ok && wc.Timeout > 0 {
		timeout = time.Duration(wc.Timeout) * time.Millisecond
	}
	return &Config{
		EmailEnabled:         cfg.Notifications.Email.Enabled,
		SMSEnabled:           cfg.Notifications.SMS.Enabled,
		FromEmail:            cfg.Notifications.Email.FromEmail,
		SMSPriorityThreshold: cfg.Notifications.SMS.PriorityThreshold,
		Timeout:              timeout,
		ContactCacheTTL:      15 * time.Minute,
	}
}
