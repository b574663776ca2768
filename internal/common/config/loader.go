// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DATABASE_POSTGRES_PASSWORD
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, ignored when absent
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile looks for .env relative to both the cwd and the module root so
// workers and tests behave the same.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders left in yaml values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "callcenter-workers"
	}
	if cfg.Camunda.BrokerAddress == "" {
		cfg.Camunda.BrokerAddress = "localhost:26500"
	}
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.TranscriptIndex == "" {
		cfg.Database.Elasticsearch.TranscriptIndex = "call-transcripts"
	}
	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "configs/stage-registry.json"
	}
	if cfg.APIs.GenAI.Timeout == 0 {
		cfg.APIs.GenAI.Timeout = 15000
	}
	if cfg.APIs.GenAI.MaxRetries == 0 {
		cfg.APIs.GenAI.MaxRetries = 2
	}
	if cfg.APIs.GenAI.MaxTokens == 0 {
		cfg.APIs.GenAI.MaxTokens = 1024
	}

	if cfg.Risk.Thresholds == nil {
		cfg.Risk.Thresholds = DefaultRiskThresholds()
	}
	if cfg.Approval.Policies == nil {
		cfg.Approval.Policies = DefaultApprovalPolicies()
	}
}

// DefaultRiskThresholds is the shipped scoring matrix; every workflow type
// must have an entry because stages refuse to guess.
func DefaultRiskThresholds() map[string]RiskThresholds {
	return map[string]RiskThresholds{
		"BORROWER":   {High: 0.7, Low: 0.3},
		"ADVISOR":    {High: 0.7, Low: 0.4},
		"SUPERVISOR": {High: 0.6, Low: 0.3},
		"LEADERSHIP": {High: 0.6, Low: 0.2},
	}
}

// DefaultApprovalPolicies is the shipped auto-approval eligibility matrix.
func DefaultApprovalPolicies() map[string]ApprovalPolicy {
	return map[string]ApprovalPolicy{
		"BORROWER":   {AutoApprovalEnabled: true, MediumAutoResolves: false},
		"ADVISOR":    {AutoApprovalEnabled: true, MediumAutoResolves: true},
		"SUPERVISOR": {AutoApprovalEnabled: false, MediumAutoResolves: false},
		"LEADERSHIP": {AutoApprovalEnabled: false, MediumAutoResolves: false},
	}
}

func validateConfig(cfg *Config) error {
	for wt, t := range cfg.Risk.Thresholds {
		if t.Low < 0 || t.High > 1 || t.Low >= t.High {
			return fmt.Errorf("risk thresholds for %s must satisfy 0 <= low < high <= 1, got low=%v high=%v", wt, t.Low, t.High)
		}
	}

	for wt := range cfg.Approval.Policies {
		if _, ok := cfg.Risk.Thresholds[wt]; !ok {
			return fmt.Errorf("approval policy configured for %s but no risk thresholds", wt)
		}
	}

	return nil
}
