package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the planning system.
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Decision   DecisionConfig   `mapstructure:"decision"`
	Routing    RoutingConfig    `mapstructure:"routing"`
	Session    SessionConfig    `mapstructure:"session"`
	Capability CapabilityConfig `mapstructure:"capability"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug            bool     `mapstructure:"debug"`
	LogLevel         string   `mapstructure:"log_level"`
	PlanningKeywords []string `mapstructure:"planning_keywords"`
}

// ServerConfig contains HTTP server and auth settings.
type ServerConfig struct {
	Address              string        `mapstructure:"address"`
	JWTSecret            string        `mapstructure:"jwt_secret"`
	OperatorPasswordHash string        `mapstructure:"operator_password_hash"`
	TokenTTL             time.Duration `mapstructure:"token_ttl"`
}

// Validate checks the server settings needed to serve the API.
func (c ServerConfig) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("server.jwt_secret is required")
	}
	if c.OperatorPasswordHash == "" {
		return fmt.Errorf("server.operator_password_hash is required")
	}
	return nil
}

// LLMConfig selects and configures the decider backend.
type LLMConfig struct {
	Provider string       `mapstructure:"provider"` // rules or openai
	OpenAI   OpenAIConfig `mapstructure:"openai"`
}

// OpenAIConfig configures the OpenAI-backed decider.
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Validate checks the LLM settings for the selected provider.
func (c LLMConfig) Validate() error {
	switch c.Provider {
	case "", "rules":
		return nil
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("llm.openai.api_key is required when llm.provider is openai")
		}
		return nil
	default:
		return fmt.Errorf("unknown llm.provider %q", c.Provider)
	}
}

// DecisionConfig bounds the retry behavior for transient decision failures.
type DecisionConfig struct {
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// RoutingConfig bounds the graph traversal.
type RoutingConfig struct {
	MaxReentries int `mapstructure:"max_reentries"`
	MaxSteps     int `mapstructure:"max_steps"`
}

// SessionConfig selects and configures the session store.
type SessionConfig struct {
	Store string        `mapstructure:"store"` // memory or redis
	TTL   time.Duration `mapstructure:"ttl"`
	Redis RedisConfig   `mapstructure:"redis"`
}

// RedisConfig contains redis connection settings.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Validate checks the session store settings.
func (c SessionConfig) Validate() error {
	switch c.Store {
	case "", "memory":
		return nil
	case "redis":
		if c.Redis.Host == "" || c.Redis.Port == "" {
			return fmt.Errorf("session.redis.host and session.redis.port are required when session.store is redis")
		}
		return nil
	default:
		return fmt.Errorf("unknown session.store %q", c.Store)
	}
}

// CapabilityConfig controls the capability registry.
type CapabilityConfig struct {
	SigningSecret string   `mapstructure:"signing_secret"`
	RequiredTools []string `mapstructure:"required_tools"`
}

// TelemetryConfig contains telemetry and monitoring settings.
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	MetricsPort  int    `mapstructure:"metrics_port"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// LoadConfig loads config from file, with PLANORA_* environment overrides.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.token_ttl", "24h")
	viper.SetDefault("llm.provider", "rules")
	viper.SetDefault("decision.max_retries", 3)
	viper.SetDefault("decision.retry_backoff", "500ms")
	viper.SetDefault("routing.max_reentries", 3)
	viper.SetDefault("routing.max_steps", 50)
	viper.SetDefault("session.store", "memory")
	viper.SetDefault("session.ttl", "24h")
	viper.SetDefault("session.redis.timeout", "5s")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("PLANORA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	if err := config.LLM.Validate(); err != nil {
		panic(err)
	}
	if err := config.Session.Validate(); err != nil {
		panic(err)
	}
	return &config
}
