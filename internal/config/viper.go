// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BANKFEED_STORAGE_PATH.
const EnvPrefix = "BANKFEED"

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Storage struct {
		Path string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"storage" yaml:"storage"`

	Import struct {
		BatchSize          int    `mapstructure:"batch_size" yaml:"batch_size"`
		PossibleDuplicates string `mapstructure:"possible_duplicates" yaml:"possible_duplicates"`
	} `mapstructure:"import" yaml:"import"`

	Parsers struct {
		HeaderScanRows       int     `mapstructure:"header_scan_rows" yaml:"header_scan_rows"`
		HeaderMatchThreshold float64 `mapstructure:"header_match_threshold" yaml:"header_match_threshold"`
	} `mapstructure:"parsers" yaml:"parsers"`

	Categorization struct {
		KeywordsFile        string  `mapstructure:"keywords_file" yaml:"keywords_file"`
		RecurrenceThreshold float64 `mapstructure:"recurrence_threshold" yaml:"recurrence_threshold"`
		KeywordConfidence   float64 `mapstructure:"keyword_confidence" yaml:"keyword_confidence"`
	} `mapstructure:"categorization" yaml:"categorization"`

	Transfers struct {
		DateWindowDays int  `mapstructure:"date_window_days" yaml:"date_window_days"`
		AutoLink       bool `mapstructure:"auto_link" yaml:"auto_link"`
	} `mapstructure:"transfers" yaml:"transfers"`

	CSV struct {
		Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	} `mapstructure:"csv" yaml:"csv"`
}

// InitializeConfig initializes Viper configuration with hierarchical loading
func InitializeConfig() (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.bankfeed")
	v.AddConfigPath(".bankfeed")
	v.AddConfigPath(".")

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// DefaultStoragePath is the database location when storage.path is not set.
func DefaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".bankfeed", "bankfeed.db")
	}
	return filepath.Join(home, ".bankfeed", "bankfeed.db")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("storage.path", DefaultStoragePath())

	v.SetDefault("import.batch_size", 100)
	v.SetDefault("import.possible_duplicates", "import")

	v.SetDefault("parsers.header_scan_rows", 60)
	v.SetDefault("parsers.header_match_threshold", 0.8)

	v.SetDefault("categorization.keywords_file", "")
	v.SetDefault("categorization.recurrence_threshold", 0.7)
	v.SetDefault("categorization.keyword_confidence", 0.5)

	v.SetDefault("transfers.date_window_days", 3)
	v.SetDefault("transfers.auto_link", true)

	v.SetDefault("csv.delimiter", ",")
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if config.Storage.Path == "" {
		return fmt.Errorf("storage.path must not be empty")
	}

	if config.Import.BatchSize < 1 {
		return fmt.Errorf("import.batch_size must be at least 1, got: %d", config.Import.BatchSize)
	}
	switch config.Import.PossibleDuplicates {
	case "import", "skip":
	default:
		return fmt.Errorf("import.possible_duplicates must be 'import' or 'skip', got: %s", config.Import.PossibleDuplicates)
	}

	if config.Parsers.HeaderScanRows < 1 {
		return fmt.Errorf("parsers.header_scan_rows must be at least 1, got: %d", config.Parsers.HeaderScanRows)
	}
	if err := checkUnit("parsers.header_match_threshold", config.Parsers.HeaderMatchThreshold); err != nil {
		return err
	}
	if err := checkUnit("categorization.recurrence_threshold", config.Categorization.RecurrenceThreshold); err != nil {
		return err
	}
	if err := checkUnit("categorization.keyword_confidence", config.Categorization.KeywordConfidence); err != nil {
		return err
	}

	if config.Transfers.DateWindowDays < 0 {
		return fmt.Errorf("transfers.date_window_days must not be negative, got: %d", config.Transfers.DateWindowDays)
	}

	if len([]rune(config.CSV.Delimiter)) != 1 {
		return fmt.Errorf("CSV delimiter must be a single character, got: %s", config.CSV.Delimiter)
	}
	return nil
}

func checkUnit(key string, value float64) error {
	if value <= 0.0 || value > 1.0 {
		return fmt.Errorf("%s must be greater than 0.0 and at most 1.0, got: %f", key, value)
	}
	return nil
}

// ConfigureLoggingFromConfig configures logging based on the Config struct
func ConfigureLoggingFromConfig(config *Config) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(strings.ToLower(config.Log.Level))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", config.Log.Level)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if strings.ToLower(config.Log.Format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

// Delimiter returns the configured CSV delimiter as a rune.
func (c *Config) Delimiter() rune {
	for _, r := range c.CSV.Delimiter {
		return r
	}
	return ','
}
