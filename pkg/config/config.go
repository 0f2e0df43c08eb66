package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full daemon configuration, loaded from a single YAML
// file. Missing required values are a startup failure.
type Config struct {
	DataDir string `yaml:"data_dir"`

	Log          LogConfig          `yaml:"log"`
	Blob         BlobConfig         `yaml:"blob"`
	Record       RecordConfig       `yaml:"record"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	OCR          OCRConfig          `yaml:"ocr"`
	LLM          LLMConfig          `yaml:"llm"`
	PII          PIIConfig          `yaml:"pii"`
	Retention    RetentionConfig    `yaml:"retention"`
	Worker       WorkerConfig       `yaml:"worker"`
	API          APIConfig          `yaml:"api"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	File  string `yaml:"file"`
}

type BlobConfig struct {
	// Backend selects the blob store implementation: "s3" or "fs".
	Backend         string `yaml:"backend"`
	OriginalsBucket string `yaml:"originals_bucket"`
	RedactedBucket  string `yaml:"redacted_bucket"`
	// Region applies to every AWS client, not just S3.
	Region string `yaml:"region"`
	// AccessKeyID and SecretAccessKey, when both set, override the
	// default AWS credential chain for every client.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	// RootDir applies to the fs backend.
	RootDir string `yaml:"root_dir"`
}

type RecordConfig struct {
	TableName string `yaml:"table_name"`
}

type OrchestratorConfig struct {
	PollIntervalSeconds      int `yaml:"poll_interval_seconds"`
	OCRPendingCeilingSeconds int `yaml:"ocr_pending_ceiling_seconds"`
	ExecutionBudgetSeconds   int `yaml:"execution_budget_seconds"`
}

type OCRConfig struct {
	// MaxPages of 0 means unbounded. Jobs above WarnPages log a warning.
	MaxPages  int `yaml:"max_pages"`
	WarnPages int `yaml:"warn_pages"`
}

type LLMConfig struct {
	// Provider selects the transport: "bedrock" or "anthropic".
	Provider    string  `yaml:"provider"`
	ModelID     string  `yaml:"model_id"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
	// APIKey is used by the anthropic provider only.
	APIKey string `yaml:"api_key"`
	// ExtraVariants run after the primary analysis, in order.
	ExtraVariants []string `yaml:"extra_variants"`
}

type PIIConfig struct {
	ClassifierEnabled        bool `yaml:"classifier_enabled"`
	ClassifierTimeoutSeconds int  `yaml:"classifier_timeout_seconds"`
}

type RetentionConfig struct {
	TTLDays            int `yaml:"ttl_days"`
	SweepIntervalHours int `yaml:"sweep_interval_hours"`
}

type WorkerConfig struct {
	Count int `yaml:"count"`
}

type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Default returns a configuration with all optional values filled in.
func Default() *Config {
	return &Config{
		DataDir: "/var/lib/muster",
		Log: LogConfig{
			Level: "info",
			JSON:  true,
		},
		Blob: BlobConfig{
			Backend: "s3",
		},
		Record: RecordConfig{
			TableName: "muster.db",
		},
		Orchestrator: OrchestratorConfig{
			PollIntervalSeconds:      5,
			OCRPendingCeilingSeconds: 300,
			ExecutionBudgetSeconds:   900,
		},
		OCR: OCRConfig{
			WarnPages: 50,
		},
		LLM: LLMConfig{
			Provider:    "bedrock",
			MaxTokens:   8000,
			Temperature: 0.8,
			TopP:        0.95,
		},
		PII: PIIConfig{
			ClassifierTimeoutSeconds: 120,
		},
		Retention: RetentionConfig{
			TTLDays:            90,
			SweepIntervalHours: 6,
		},
		Worker: WorkerConfig{
			Count: 4,
		},
		API: APIConfig{
			ListenAddr: ":8080",
		},
		Metrics: MetricsConfig{
			ListenAddr: ":9090",
		},
	}
}

// Load reads path and merges it over defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and closed vocabularies.
func (c *Config) Validate() error {
	switch c.Blob.Backend {
	case "s3":
		if c.Blob.OriginalsBucket == "" {
			return fmt.Errorf("blob.originals_bucket is required")
		}
		if c.Blob.RedactedBucket == "" {
			return fmt.Errorf("blob.redacted_bucket is required")
		}
	case "fs":
		if c.Blob.RootDir == "" {
			return fmt.Errorf("blob.root_dir is required for the fs backend")
		}
		if c.Blob.OriginalsBucket == "" {
			c.Blob.OriginalsBucket = "originals"
		}
		if c.Blob.RedactedBucket == "" {
			c.Blob.RedactedBucket = "redacted"
		}
	default:
		return fmt.Errorf("unknown blob.backend: %q", c.Blob.Backend)
	}

	switch c.LLM.Provider {
	case "bedrock":
	case "anthropic":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for the anthropic provider")
		}
	default:
		return fmt.Errorf("unknown llm.provider: %q", c.LLM.Provider)
	}
	if c.LLM.ModelID == "" {
		return fmt.Errorf("llm.model_id is required")
	}

	if c.Orchestrator.PollIntervalSeconds <= 0 {
		return fmt.Errorf("orchestrator.poll_interval_seconds must be positive")
	}
	if c.Orchestrator.OCRPendingCeilingSeconds <= 0 {
		return fmt.Errorf("orchestrator.ocr_pending_ceiling_seconds must be positive")
	}
	if c.Orchestrator.ExecutionBudgetSeconds <= 0 {
		return fmt.Errorf("orchestrator.execution_budget_seconds must be positive")
	}
	if c.Record.TableName == "" {
		return fmt.Errorf("record.table_name is required")
	}
	if c.Worker.Count <= 0 {
		return fmt.Errorf("worker.count must be positive")
	}
	if c.Retention.TTLDays <= 0 {
		return fmt.Errorf("retention.ttl_days must be positive")
	}
	return nil
}

// PollInterval returns the OCR poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Orchestrator.PollIntervalSeconds) * time.Second
}

// OCRPendingCeiling returns the maximum time an OCR job may stay pending.
func (c *Config) OCRPendingCeiling() time.Duration {
	return time.Duration(c.Orchestrator.OCRPendingCeilingSeconds) * time.Second
}

// ExecutionBudget returns the per-execution wall clock budget.
func (c *Config) ExecutionBudget() time.Duration {
	return time.Duration(c.Orchestrator.ExecutionBudgetSeconds) * time.Second
}

// ClassifierTimeout returns the bounded wait on the external classifier.
func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.PII.ClassifierTimeoutSeconds) * time.Second
}

// TTL returns the record retention period.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.Retention.TTLDays) * 24 * time.Hour
}
