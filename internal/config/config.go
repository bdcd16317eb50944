// Package config loads application configuration from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mfigueira/caixinha/internal/common"
)

// Config is the application configuration tree.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Memory   MemoryConfig   `mapstructure:"memory"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Fees     FeesConfig     `mapstructure:"fees"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// MemoryConfig configures the semantic memory.
type MemoryConfig struct {
	Backend        string `mapstructure:"backend"` // "chromem" or "qdrant"
	Path           string `mapstructure:"path"`
	Collection     string `mapstructure:"collection"`
	QdrantHost     string `mapstructure:"qdrant_host"`
	QdrantPort     int    `mapstructure:"qdrant_port"`
	Scope          string `mapstructure:"scope"` // "tenant" or "global"
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// LLMConfig configures the fallback classifier and embeddings.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
}

// FeesConfig holds acquirer fee percentages.
type FeesConfig struct {
	DebitPercent           float64 `mapstructure:"debit_percent"`
	CreditPercent          float64 `mapstructure:"credit_percent"`
	InstallmentBasePercent float64 `mapstructure:"installment_base_percent"`
	InstallmentStepPercent float64 `mapstructure:"installment_step_percent"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads the configuration from viper, applying defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	viper.SetDefault("database.path", filepath.Join(home, ".config", "caixinha", "caixinha.db"))
	viper.SetDefault("memory.backend", "chromem")
	viper.SetDefault("memory.path", filepath.Join(home, ".config", "caixinha", "memory"))
	viper.SetDefault("memory.collection", "caixinha_memory")
	viper.SetDefault("memory.qdrant_host", "localhost")
	viper.SetDefault("memory.qdrant_port", 6334)
	viper.SetDefault("memory.scope", "tenant")
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("fees.debit_percent", 1.99)
	viper.SetDefault("fees.credit_percent", 3.19)
	viper.SetDefault("fees.installment_base_percent", 3.79)
	viper.SetDefault("fees.installment_step_percent", 0.30)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return &cfg, nil
}
