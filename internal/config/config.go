package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rohankatakam/octonet/internal/errors"
)

const (
	DefaultGraphQLURL  = "https://api.github.com/graphql"
	DefaultRESTURL     = "https://api.github.com/"
	DefaultMaxAttempts = 10
	DefaultRetryDelay  = 2 * time.Second
	DefaultRateLimit   = 10 // requests per second
	DefaultAddr        = ":4567"
	DefaultCacheTTL    = 10 * time.Minute
)

// Config holds all configuration settings
type Config struct {
	GitHub GitHubConfig `mapstructure:"github" yaml:"github"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Neo4j  Neo4jConfig  `mapstructure:"neo4j" yaml:"neo4j"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

type GitHubConfig struct {
	Org         string        `mapstructure:"org" yaml:"org"`
	Token       string        `mapstructure:"token" yaml:"token"`
	GraphQLURL  string        `mapstructure:"graphql_url" yaml:"graphql_url"`
	RESTURL     string        `mapstructure:"rest_url" yaml:"rest_url"`
	RateLimit   float64       `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second, 0 = unlimited
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

type ServerConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"` // 0 disables the response cache
	RedisURL string        `mapstructure:"redis_url" yaml:"redis_url"` // empty keeps the cache in process
}

type Neo4jConfig struct {
	URI       string `mapstructure:"uri" yaml:"uri"`
	Username  string `mapstructure:"username" yaml:"username"`
	Password  string `mapstructure:"password" yaml:"password"`
	Database  string `mapstructure:"database" yaml:"database"`
	BatchSize int    `mapstructure:"batch_size" yaml:"batch_size"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
	File  string `mapstructure:"file" yaml:"file"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		GitHub: GitHubConfig{
			GraphQLURL:  DefaultGraphQLURL,
			RESTURL:     DefaultRESTURL,
			RateLimit:   DefaultRateLimit,
			MaxAttempts: DefaultMaxAttempts,
			RetryDelay:  DefaultRetryDelay,
		},
		Server: ServerConfig{
			Addr:     DefaultAddr,
			CacheTTL: DefaultCacheTTL,
		},
		Neo4j: Neo4jConfig{
			URI:       "bolt://localhost:7687",
			Username:  "neo4j",
			Database:  "neo4j",
			BatchSize: 500,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from file, .env files and the environment
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("github.graphql_url", cfg.GitHub.GraphQLURL)
	v.SetDefault("github.rest_url", cfg.GitHub.RESTURL)
	v.SetDefault("github.rate_limit", cfg.GitHub.RateLimit)
	v.SetDefault("github.max_attempts", cfg.GitHub.MaxAttempts)
	v.SetDefault("github.retry_delay", cfg.GitHub.RetryDelay)
	v.SetDefault("github.org", "")
	v.SetDefault("github.token", "")
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.cache_ttl", cfg.Server.CacheTTL)
	v.SetDefault("server.redis_url", "")
	v.SetDefault("neo4j.uri", cfg.Neo4j.URI)
	v.SetDefault("neo4j.username", cfg.Neo4j.Username)
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", cfg.Neo4j.Database)
	v.SetDefault("neo4j.batch_size", cfg.Neo4j.BatchSize)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.json", cfg.Log.JSON)
	v.SetDefault("log.file", "")

	// OCTONET_GITHUB_ORG, OCTONET_SERVER_ADDR, ...
	v.SetEnvPrefix("OCTONET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".octonet")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".octonet"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Validate checks the settings a build cannot run without
func (c *Config) Validate() error {
	if c.GitHub.Org == "" {
		return errors.ConfigErrorf("organization is not set: use --org, GITHUB_ORG or github.org in config")
	}
	if u, err := url.Parse(c.GitHub.GraphQLURL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.ConfigErrorf("github.graphql_url %q is not an absolute URL", c.GitHub.GraphQLURL)
	}
	if c.GitHub.MaxAttempts < 1 {
		return errors.ConfigErrorf("github.max_attempts must be at least 1, got %d", c.GitHub.MaxAttempts)
	}
	if c.GitHub.RetryDelay < 0 {
		return errors.ConfigErrorf("github.retry_delay must not be negative, got %s", c.GitHub.RetryDelay)
	}
	return nil
}

// loadEnvFiles loads .env files in order of precedence. godotenv never
// overwrites variables that are already set, so the first file wins.
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".octonet", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies the conventional (unprefixed) variables
func applyEnvOverrides(cfg *Config) {
	cfg.GitHub.Org = GetString("GITHUB_ORG", cfg.GitHub.Org)
	cfg.GitHub.GraphQLURL = GetString("GITHUB_GRAPHQL_API_URL", cfg.GitHub.GraphQLURL)
	cfg.GitHub.RESTURL = GetString("GITHUB_API_URL", cfg.GitHub.RESTURL)
	cfg.GitHub.RateLimit = GetFloat("GITHUB_RATE_LIMIT", cfg.GitHub.RateLimit)
	cfg.GitHub.MaxAttempts = GetInt("OCTONET_MAX_ATTEMPTS", cfg.GitHub.MaxAttempts)
	cfg.GitHub.RetryDelay = GetDuration("OCTONET_RETRY_DELAY", cfg.GitHub.RetryDelay)

	for _, envVar := range []string{"GH_TOKEN", "GITHUB_TOKEN"} {
		cfg.GitHub.Token = GetString(envVar, cfg.GitHub.Token)
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}

	cfg.Server.RedisURL = GetString("REDIS_URL", cfg.Server.RedisURL)

	cfg.Neo4j.URI = GetString("NEO4J_URI", cfg.Neo4j.URI)
	cfg.Neo4j.Username = GetString("NEO4J_USERNAME", cfg.Neo4j.Username)
	cfg.Neo4j.Password = GetString("NEO4J_PASSWORD", cfg.Neo4j.Password)
	cfg.Neo4j.Database = GetString("NEO4J_DATABASE", cfg.Neo4j.Database)
}
