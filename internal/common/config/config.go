// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct. It is built once at
// process start and passed by reference into every stage; nothing reads
// configuration through globals.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Risk          RiskConfig              `mapstructure:"risk"`
	Approval      ApprovalConfig          `mapstructure:"approval"`
	APIs          APIsConfig              `mapstructure:"apis"`
	Registry      RegistryConfig          `mapstructure:"registry"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses       []string `mapstructure:"addresses"`
	Username        string   `mapstructure:"username"`
	Password        string   `mapstructure:"password"`
	TranscriptIndex string   `mapstructure:"transcript_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Workflow Policy Configuration ---

// RiskThresholds are the score cutoffs the scorer's label/score invariant is
// checked against: HIGH requires score >= High, LOW requires score <= Low.
type RiskThresholds struct {
	High float64 `mapstructure:"high"`
	Low  float64 `mapstructure:"low"`
}

// RiskConfig holds the per-workflow-type scoring thresholds.
type RiskConfig struct {
	Thresholds map[string]RiskThresholds `mapstructure:"thresholds"` // keyed by workflow type
}

// ThresholdsFor returns the cutoffs for a workflow type, or an error when the
// matrix has no entry. A missing entry is a configuration error, not a default.
func (r RiskConfig) ThresholdsFor(workflowType string) (RiskThresholds, error) {
	t, ok := r.Thresholds[workflowType]
	if !ok {
		return RiskThresholds{}, fmt.Errorf("no risk thresholds configured for workflow type %q", workflowType)
	}
	return t, nil
}

// ApprovalPolicy is one workflow type's routing policy.
type ApprovalPolicy struct {
	AutoApprovalEnabled bool `mapstructure:"auto_approval_enabled"`
	// MediumAutoResolves controls whether MEDIUM-risk items may bypass human
	// review for this workflow type (advisor coaching yes, supervisor
	// escalations never).
	MediumAutoResolves bool `mapstructure:"medium_auto_resolves"`
}

// ApprovalConfig holds the auto-approval eligibility matrix by workflow type.
type ApprovalConfig struct {
	Policies map[string]ApprovalPolicy `mapstructure:"policies"` // keyed by workflow type
}

// PolicyFor returns the routing policy for a workflow type, or an error when
// no policy is configured.
func (a ApprovalConfig) PolicyFor(workflowType string) (ApprovalPolicy, error) {
	p, ok := a.Policies[workflowType]
	if !ok {
		return ApprovalPolicy{}, fmt.Errorf("no approval policy configured for workflow type %q", workflowType)
	}
	return p, nil
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	GenAI struct {
		BaseURL     string  `mapstructure:"base_url"`
		APIKey      string  `mapstructure:"api_key"`
		Timeout     int     `mapstructure:"timeout"` // milliseconds
		MaxRetries  int     `mapstructure:"max_retries"`
		Temperature float64 `mapstructure:"temperature"`
		MaxTokens   int     `mapstructure:"max_tokens"`
	} `mapstructure:"genai"`
}

// RegistryConfig points at the stage registry JSON carrying per-stage task
// types and LLM output schemas.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// NotificationConfig holds settings for the send-notification worker.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled           bool   `mapstructure:"enabled"`
		PriorityThreshold string `mapstructure:"priority_threshold"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}
