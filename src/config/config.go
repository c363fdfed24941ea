package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"product-filter/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from YAML file, overlaying values
// from .env and the process environment.
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// 2. Environment overrides (.env is optional)
	_ = godotenv.Load()
	config.applyEnv(os.Getenv)

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Parse decodes YAML bytes and fills defaults without validating.
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()
	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = 30
	}
	if c.Network.MaxRetries == 0 {
		c.Network.MaxRetries = 3
	}
	if c.Network.RetryDelayMs == 0 {
		c.Network.RetryDelayMs = 2000
	}
	if c.Network.ConcurrentRequests == 0 {
		c.Network.ConcurrentRequests = 8
	}
	if c.Pipeline.MinPrice == 0 {
		c.Pipeline.MinPrice = 1
	}
	if c.Pipeline.MaxPrice == 0 {
		c.Pipeline.MaxPrice = 1000000
	}
	if c.Pipeline.ResultLimit == 0 {
		c.Pipeline.ResultLimit = 1000
	}
	if c.Classifier.Endpoint == "" {
		c.Classifier.Endpoint = "https://api.openai.com/v1/chat/completions"
	}
	if c.Classifier.Model == "" {
		c.Classifier.Model = "gpt-4o-mini"
	}
	if c.Classifier.TimeoutSeconds == 0 {
		c.Classifier.TimeoutSeconds = 60
	}
	if c.Classifier.MaxTokens == 0 {
		c.Classifier.MaxTokens = 8192
	}
	if c.Cache.TTLHours == 0 {
		c.Cache.TTLHours = 72
	}
	if c.PriceUpdate.IntervalMinutes == 0 {
		c.PriceUpdate.IntervalMinutes = 360
	}
	if c.PriceUpdate.WindowDays == 0 {
		c.PriceUpdate.WindowDays = 30
	}
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.Classifier.APIKey = v
	}
	if v := getenv("OPENAI_MODEL"); v != "" {
		c.Classifier.Model = v
	}
	if v := getenv("DB_CONNECTION_STRING"); v != "" {
		c.Storage.DBConnectionString = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Addr = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("PRODUCT_FILTER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535) {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %q", c.Storage.DBType)
	}

	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache address cannot be empty when cache is enabled")
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Network.ConcurrentRequests <= 0 {
		return fmt.Errorf("concurrent requests must be greater than 0")
	}

	// Validate Sources
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source must be configured")
	}
	seen := make(map[string]bool)
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("source %d must have a name", i)
		}
		if src.Address == "" {
			return fmt.Errorf("source '%s' must have an address", src.Name)
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate source '%s'", src.Name)
		}
		seen[src.Name] = true
	}

	// Validate Categories
	if len(c.MConfig.Categories) == 0 {
		return fmt.Errorf("at least one category must be configured")
	}
	keys := make(map[string]bool)
	for i, cat := range c.MConfig.Categories {
		if cat.Key == "" {
			return fmt.Errorf("category %d must have a key", i)
		}
		if keys[cat.Key] {
			return fmt.Errorf("duplicate category '%s'", cat.Key)
		}
		keys[cat.Key] = true
		for _, q := range cat.Queries {
			if strings.TrimSpace(q.Text) == "" {
				return fmt.Errorf("category '%s' has an empty query", cat.Key)
			}
			for _, p := range q.Platforms {
				if !seen[p.Platform] {
					return fmt.Errorf("query '%s' references unknown platform '%s'", q.Text, p.Platform)
				}
			}
		}
	}

	if c.Classifier.Enabled && c.Classifier.Endpoint == "" {
		return fmt.Errorf("classifier endpoint cannot be empty")
	}
	if c.Pipeline.MinPrice > c.Pipeline.MaxPrice {
		return fmt.Errorf("pipeline min_price %d exceeds max_price %d", c.Pipeline.MinPrice, c.Pipeline.MaxPrice)
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
