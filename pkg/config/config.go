package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server       ServerConfig
	Graph        GraphConfig
	Subscription SubscriptionConfig
	Receiver     ReceiverConfig
	Queue        QueueConfig
	Redis        RedisConfig
	Database     DatabaseConfig
	Storage      StorageConfig
	Summarizer   SummarizerConfig
	Pipeline     PipelineConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string `envconfig:"PORT" default:"8080"`
	Host            string `envconfig:"HOST" default:"0.0.0.0"`
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"10"`
}

// GraphConfig holds meeting-platform API credentials and endpoints
type GraphConfig struct {
	ClientID     string        `envconfig:"CLIENT_ID"`
	ClientSecret string        `envconfig:"CLIENT_SECRET"`
	TenantID     string        `envconfig:"TENANT_ID"`
	BaseURL      string        `envconfig:"GRAPH_BASE_URL" default:"https://graph.microsoft.com/beta"`
	LoginURL     string        `envconfig:"GRAPH_LOGIN_URL" default:"https://login.microsoftonline.com"`
	Scope        string        `envconfig:"GRAPH_SCOPE" default:"https://graph.microsoft.com/.default"`
	Timeout      time.Duration `envconfig:"GRAPH_TIMEOUT" default:"30s"`
}

// SubscriptionConfig holds webhook subscription lifecycle configuration
type SubscriptionConfig struct {
	NotificationURL   string        `envconfig:"NOTIFICATION_URL"`
	ClientState       string        `envconfig:"SUBSCRIPTION_CLIENT_STATE"`
	ExpirationWindow  time.Duration `envconfig:"SUBSCRIPTION_EXPIRATION_WINDOW" default:"70h"`
	ReconcileInterval time.Duration `envconfig:"SUBSCRIPTION_RECONCILE_INTERVAL" default:"24h"`
}

// ReceiverConfig holds notification webhook policy. An empty
// ALLOWED_TENANT_IDS list falls back to the configured TENANT_ID, so
// the receiver never runs open to all tenants.
type ReceiverConfig struct {
	AllowedTenants    []string `envconfig:"ALLOWED_TENANT_IDS"`
	VerifyClientState bool     `envconfig:"VERIFY_CLIENT_STATE" default:"false"`
}

// QueueConfig holds NATS queue configuration
type QueueConfig struct {
	Enabled bool   `envconfig:"QUEUE_ENABLED" default:"true"`
	URL     string `envconfig:"NATS_URL" default:"nats://localhost:4222"`
	Stream  string `envconfig:"NATS_STREAM" default:"TRANSCRIPTS"`
	Subject string `envconfig:"NATS_SUBJECT" default:"transcripts.notifications"`
	Durable string `envconfig:"NATS_DURABLE" default:"transcript-relay"`
}

// RedisConfig holds Redis configuration for processed-notification markers
type RedisConfig struct {
	Enabled   bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Host      string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port      string        `envconfig:"REDIS_PORT" default:"6379"`
	Password  string        `envconfig:"REDIS_PASSWORD" default:""`
	DB        int           `envconfig:"REDIS_DB" default:"0"`
	MarkerTTL time.Duration `envconfig:"REDIS_MARKER_TTL" default:"168h"`
}

// DatabaseConfig holds configuration for the pipeline run journal
type DatabaseConfig struct {
	Enabled  bool   `envconfig:"DB_ENABLED" default:"false"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"transcript_relay"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns int    `envconfig:"DB_MIN_CONNS" default:"5"`
}

// StorageConfig holds artifact archive configuration
type StorageConfig struct {
	Enabled         bool   `envconfig:"STORAGE_ENABLED" default:"false"`
	Endpoint        string `envconfig:"STORAGE_ENDPOINT" default:"localhost:9000"`
	AccessKeyID     string `envconfig:"STORAGE_ACCESS_KEY" default:"minioadmin"`
	SecretAccessKey string `envconfig:"STORAGE_SECRET_KEY" default:"minioadmin"`
	BucketName      string `envconfig:"STORAGE_BUCKET" default:"transcript-relay"`
	UseSSL          bool   `envconfig:"STORAGE_USE_SSL" default:"false"`
}

// SummarizerConfig holds summarization service configuration
type SummarizerConfig struct {
	APIKey      string        `envconfig:"SUMMARIZER_API_KEY"`
	BaseURL     string        `envconfig:"SUMMARIZER_BASE_URL" default:"https://api.openai.com"`
	Model       string        `envconfig:"SUMMARIZER_MODEL" default:"gpt-4o-mini"`
	Temperature float64       `envconfig:"SUMMARIZER_TEMPERATURE" default:"0.2"`
	TopP        float64       `envconfig:"SUMMARIZER_TOP_P" default:"0.9"`
	Seed        int           `envconfig:"SUMMARIZER_SEED" default:"42"`
	MaxTokens   int           `envconfig:"SUMMARIZER_MAX_TOKENS" default:"4096"`
	Timeout     time.Duration `envconfig:"SUMMARIZER_TIMEOUT" default:"120s"`
}

// PipelineConfig holds orchestrator configuration
type PipelineConfig struct {
	FanoutConcurrency int           `envconfig:"PIPELINE_FANOUT_CONCURRENCY" default:"4"`
	RunTimeout        time.Duration `envconfig:"PIPELINE_RUN_TIMEOUT" default:"5m"`
	TranscriptFormat  string        `envconfig:"PIPELINE_TRANSCRIPT_FORMAT" default:"text/vtt"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if len(config.Receiver.AllowedTenants) == 0 {
		config.Receiver.AllowedTenants = []string{config.Graph.TenantID}
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Graph.ClientID == "" {
		return fmt.Errorf("CLIENT_ID is required")
	}
	if c.Graph.ClientSecret == "" {
		return fmt.Errorf("CLIENT_SECRET is required")
	}
	if c.Graph.TenantID == "" {
		return fmt.Errorf("TENANT_ID is required")
	}
	if c.Subscription.NotificationURL == "" {
		return fmt.Errorf("NOTIFICATION_URL is required")
	}
	if c.Pipeline.FanoutConcurrency < 1 {
		return fmt.Errorf("PIPELINE_FANOUT_CONCURRENCY must be at least 1")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// GetTokenURL returns the OAuth2 token endpoint for the configured tenant
func (c *Config) GetTokenURL() string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.Graph.LoginURL, c.Graph.TenantID)
}
