package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535

	// MinRetentionDays and MaxRetentionDays bound jobs.retention_days
	MinRetentionDays = 1
	MaxRetentionDays = 365
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Logging  LoggingConfig  `yaml:"logging"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Insights InsightsConfig `yaml:"insights"`
	Fetchers FetchersConfig `yaml:"fetchers"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORS            CORSConfig    `yaml:"cors"`
}

// CORSConfig lists the origins allowed to call the API
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Enabled          bool             `yaml:"enabled"`
	Host             string           `yaml:"host"`
	Port             int              `yaml:"port"`
	User             string           `yaml:"user"`
	Password         string           `yaml:"password"`
	VHost            string           `yaml:"vhost"`
	Exchange         ExchangeConfig   `yaml:"exchange"`
	Queue            QueueConfig      `yaml:"queue"`
	RoutingKey       string           `yaml:"routing_key"`
	EventsRoutingKey string           `yaml:"events_routing_key"`
	Connection       ConnectionConfig `yaml:"connection"`
	Publish          PublishConfig    `yaml:"publish"`
	Consumer         ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds trigger consumer settings
type ConsumerConfig struct {
	PrefetchCount int `yaml:"prefetch_count"`
	Concurrency   int `yaml:"concurrency"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// JobsConfig controls the scheduler and the job runner
type JobsConfig struct {
	// Enabled is the global kill switch, overridden by JOBS_ENABLED
	Enabled              bool          `yaml:"enabled"`
	Timezone             string        `yaml:"timezone"`
	RetentionDays        int           `yaml:"retention_days"`
	WarmupOnStart        bool          `yaml:"warmup_on_start"`
	WarmupInitialDelay   time.Duration `yaml:"warmup_initial_delay"`
	WarmupSpacing        time.Duration `yaml:"warmup_spacing"`
	WarmupInsightsDelay  time.Duration `yaml:"warmup_insights_delay"`
	MisfireGrace         time.Duration `yaml:"misfire_grace"`
	InsightsMisfireGrace time.Duration `yaml:"insights_misfire_grace"`
	SchedulerWorkers     int           `yaml:"scheduler_workers"`
}

// InsightsConfig selects the text generator and the generation policy
type InsightsConfig struct {
	Provider      string        `yaml:"provider"` // none, openai, gemini
	Model         string        `yaml:"model"`
	OpenAIAPIKey  string        `yaml:"openai_api_key"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	GeminiAPIKey  string        `yaml:"gemini_api_key"`
	GeminiBaseURL string        `yaml:"gemini_base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	SkipUnchanged bool          `yaml:"skip_unchanged"`
	ContextTTL    time.Duration `yaml:"context_ttl"`
}

// FetchersConfig holds upstream HTTP settings
type FetchersConfig struct {
	Timeout            time.Duration `yaml:"timeout"`
	CacheTTL           time.Duration `yaml:"cache_ttl"`
	UserAgent          string        `yaml:"user_agent"`
	RateLimitPerSecond float64       `yaml:"rate_limit_per_second"`
	Cache              CacheConfig   `yaml:"cache"`
}

// CacheConfig selects the fetch cache backend
type CacheConfig struct {
	Backend string      `yaml:"backend"` // memory, redis
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds the redis cache connection
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads and parses the configuration file, then applies defaults and env overrides
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv(os.LookupEnv)
	return config, nil
}

// Default returns the configuration used for keys missing from the file
func Default() *Config {
	return &Config{
		App: AppConfig{Name: "trade-insights", Environment: "development"},
		Server: ServerConfig{
			Port:            9000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		RabbitMQ: RabbitMQConfig{
			Port:             5672,
			VHost:            "/",
			Exchange:         ExchangeConfig{Name: "trade_insights", Type: "topic", Durable: true},
			Queue:            QueueConfig{Name: "trade_insights.job_triggers", Durable: true},
			RoutingKey:       "jobs.trigger",
			EventsRoutingKey: "jobs.run.finished",
			Connection: ConnectionConfig{
				RetryAttempts: 5,
				RetryInterval: 2 * time.Second,
				Heartbeat:     10 * time.Second,
			},
			Consumer: ConsumerConfig{PrefetchCount: 4, Concurrency: 2},
		},
		Logging: LoggingConfig{Level: "info", Format: "console", Output: "stdout"},
		Jobs: JobsConfig{
			Enabled:              true,
			Timezone:             "Asia/Shanghai",
			RetentionDays:        30,
			WarmupOnStart:        true,
			WarmupInitialDelay:   2 * time.Second,
			WarmupSpacing:        2 * time.Second,
			WarmupInsightsDelay:  60 * time.Second,
			MisfireGrace:         2 * time.Minute,
			InsightsMisfireGrace: 6 * time.Hour,
			SchedulerWorkers:     4,
		},
		Insights: InsightsConfig{
			Provider:   "none",
			Model:      "gpt-4o-mini",
			Timeout:    40 * time.Second,
			ContextTTL: 6 * time.Hour,
		},
		Fetchers: FetchersConfig{
			Timeout:            12 * time.Second,
			CacheTTL:           24 * time.Hour,
			UserAgent:          "GTA dashboard",
			RateLimitPerSecond: 2,
			Cache:              CacheConfig{Backend: "memory", Redis: RedisConfig{KeyPrefix: "trade-insights:fetch:"}},
		},
	}
}

// applyEnv lets deployment environments override secrets and switches
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("JOBS_ENABLED"); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Jobs.Enabled = b
		}
	}
	if v, ok := lookup("JOB_RETENTION_DAYS"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.Jobs.RetentionDays = n
		}
	}
	if v, ok := lookup("INSIGHT_LLM_PROVIDER"); ok && strings.TrimSpace(v) != "" {
		c.Insights.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup("INSIGHT_LLM_MODEL"); ok && strings.TrimSpace(v) != "" {
		c.Insights.Model = strings.TrimSpace(v)
	}
	if v, ok := lookup("OPENAI_API_KEY"); ok {
		c.Insights.OpenAIAPIKey = strings.TrimSpace(v)
	}
	if v, ok := lookup("GEMINI_API_KEY"); ok {
		c.Insights.GeminiAPIKey = strings.TrimSpace(v)
	}
	if v, ok := lookup("DATABASE_PASSWORD"); ok {
		c.Database.Password = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok && strings.TrimSpace(v) != "" {
		c.Fetchers.Cache.Redis.Addr = strings.TrimSpace(v)
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.ValidateDatabase(); err != nil {
		return err
	}

	if c.RabbitMQ.Enabled {
		if err := c.ValidateRabbitMQ(); err != nil {
			return err
		}
	}

	if _, err := time.LoadLocation(c.Jobs.Timezone); err != nil || c.Jobs.Timezone == "" {
		return fmt.Errorf("invalid jobs timezone: %q", c.Jobs.Timezone)
	}

	if c.Jobs.RetentionDays < MinRetentionDays || c.Jobs.RetentionDays > MaxRetentionDays {
		return fmt.Errorf("invalid jobs retention_days: %d (must be between %d and %d)", c.Jobs.RetentionDays, MinRetentionDays, MaxRetentionDays)
	}

	if c.Jobs.SchedulerWorkers <= 0 {
		return fmt.Errorf("jobs scheduler_workers must be greater than 0")
	}

	switch c.Insights.Provider {
	case "", "none", "off", "openai", "gemini":
	default:
		return fmt.Errorf("unsupported insights provider: %q", c.Insights.Provider)
	}

	switch c.Fetchers.Cache.Backend {
	case "", "memory":
	case "redis":
		if c.Fetchers.Cache.Redis.Addr == "" {
			return fmt.Errorf("fetchers cache redis addr is required")
		}
	default:
		return fmt.Errorf("unsupported fetchers cache backend: %q", c.Fetchers.Cache.Backend)
	}

	return nil
}

// ValidateDatabase checks the PostgreSQL section only, used by jobctl
func (c *Config) ValidateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}

// ValidateRabbitMQ checks the RabbitMQ section
func (c *Config) ValidateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	if c.RabbitMQ.Consumer.Concurrency <= 0 {
		return fmt.Errorf("rabbitmq consumer concurrency must be greater than 0")
	}

	if c.RabbitMQ.EventsRoutingKey != "" && c.RabbitMQ.EventsRoutingKey == c.RabbitMQ.RoutingKey {
		return fmt.Errorf("rabbitmq events_routing_key must differ from routing_key")
	}

	return nil
}
