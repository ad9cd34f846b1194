package config

import (
	"fmt"
	"os"

	"watchlist-trader/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// applyDefaults fills zero values that have a sensible operational default.
func (c *Config) applyDefaults() {
	if c.TickQueueSize == 0 {
		c.TickQueueSize = 1024
	}
	if c.Gateway.ConnectTimeoutSeconds == 0 {
		c.Gateway.ConnectTimeoutSeconds = 10
	}
	if c.Gateway.SubscribeTimeoutSeconds == 0 {
		c.Gateway.SubscribeTimeoutSeconds = 15
	}
	if c.Gateway.OrderTimeoutSeconds == 0 {
		c.Gateway.OrderTimeoutSeconds = 10
	}
	if c.Risk.Budget == 0 {
		c.Risk.Budget = 200
	}
	if c.Risk.LotSize == 0 {
		c.Risk.LotSize = 10
	}
	if c.Risk.FloorRisk == 0 {
		c.Risk.FloorRisk = 0.01
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Gateway configuration
	if c.Gateway.Host == "" {
		return fmt.Errorf("gateway host cannot be empty")
	}
	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("invalid gateway port number: %d", c.Gateway.Port)
	}
	if c.Gateway.ClientID < 0 {
		return fmt.Errorf("gateway client id cannot be negative")
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}

	// Validate Risk configuration
	if c.Risk.Budget <= 0 {
		return fmt.Errorf("risk budget must be greater than 0")
	}
	if c.Risk.LotSize <= 0 {
		return fmt.Errorf("lot size must be greater than 0")
	}
	if c.Risk.FloorRisk <= 0 {
		return fmt.Errorf("floor risk must be greater than 0")
	}

	if c.TickQueueSize <= 0 {
		return fmt.Errorf("tick queue size must be greater than 0")
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
