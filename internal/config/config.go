/**
 * @description
 * This file handles the configuration management for the bank-accounts service.
 * It uses the Viper library to read settings from environment variables or a .env file.
 *
 * @dependencies
 * - github.com/spf13/viper: For configuration management.
 */
package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Supported values for STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort                  string `mapstructure:"SERVER_PORT"`
	DatabaseURL                 string `mapstructure:"DATABASE_URL"`
	StoreDriver                 string `mapstructure:"STORE_DRIVER"`
	RedisURL                    string `mapstructure:"REDIS_URL"`
	RedisLockPrefix             string `mapstructure:"REDIS_LOCK_PREFIX"`
	RabbitMQURL                 string `mapstructure:"RABBITMQ_URL"`
	CustomerServiceURL          string `mapstructure:"CUSTOMER_SERVICE_URL"`
	TransactionServiceURL       string `mapstructure:"TRANSACTION_SERVICE_URL"`
	RestartTransactionsSchedule string `mapstructure:"RESTART_TRANSACTIONS_SCHEDULE"`
	RestartConcurrency          int    `mapstructure:"RESTART_CONCURRENCY"`
	CORSAllowedOrigins          string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	MovementThrottle            int    `mapstructure:"MOVEMENT_THROTTLE"`
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8085")
	viper.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	viper.SetDefault("REDIS_LOCK_PREFIX", "bankaccounts:lock")
	viper.SetDefault("CUSTOMER_SERVICE_URL", "http://localhost:8081")
	viper.SetDefault("TRANSACTION_SERVICE_URL", "http://localhost:8083")
	viper.SetDefault("RESTART_TRANSACTIONS_SCHEDULE", "0 0 1 * *")
	viper.SetDefault("RESTART_CONCURRENCY", 8)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("MOVEMENT_THROTTLE", 100)

	// Bind envs explicitly so containers pick them up reliably
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("STORE_DRIVER")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_LOCK_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("CUSTOMER_SERVICE_URL")
	_ = viper.BindEnv("TRANSACTION_SERVICE_URL")
	_ = viper.BindEnv("RESTART_TRANSACTIONS_SCHEDULE")
	_ = viper.BindEnv("RESTART_CONCURRENCY")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")
	_ = viper.BindEnv("MOVEMENT_THROTTLE")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Error reading config file: %s", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.StoreDriver = strings.ToLower(strings.TrimSpace(config.StoreDriver))
	switch config.StoreDriver {
	case StoreDriverPostgres:
		if strings.TrimSpace(config.DatabaseURL) == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", StoreDriverPostgres)
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", config.StoreDriver)
	}

	if config.RestartConcurrency <= 0 {
		return nil, fmt.Errorf("RESTART_CONCURRENCY must be positive, got %d", config.RestartConcurrency)
	}
	if config.MovementThrottle <= 0 {
		return nil, fmt.Errorf("MOVEMENT_THROTTLE must be positive, got %d", config.MovementThrottle)
	}

	return &config, nil
}
