// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Catalog       CatalogConfig           `mapstructure:"catalog"`
	Embedding     EmbeddingConfig         `mapstructure:"embedding"`
	Cache         CacheConfig             `mapstructure:"cache"`
	Engine        EngineConfig            `mapstructure:"engine"`
	Conversation  ConversationConfig      `mapstructure:"conversation"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Metrics       MetricsConfig           `mapstructure:"metrics"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Recommendation Engine Sections ---

// CatalogConfig selects where venues and events come from and how often the
// snapshot is rebuilt.
type CatalogConfig struct {
	Source          string               `mapstructure:"source"` // http | postgres | elasticsearch | static
	BaseURL         string               `mapstructure:"base_url"`
	VenuesPath      string               `mapstructure:"venues_path"`
	EventsPath      string               `mapstructure:"events_path"`
	VenueIndex      string               `mapstructure:"venue_index"`
	EventIndex      string               `mapstructure:"event_index"`
	RefreshInterval int                  `mapstructure:"refresh_interval"` // milliseconds
	FetchTimeout    int                  `mapstructure:"fetch_timeout"`    // milliseconds
	MaxItems        int                  `mapstructure:"max_items"`
	Breaker         CircuitBreakerConfig `mapstructure:"breaker"`
}

type CircuitBreakerConfig struct {
	MaxRequests         uint32 `mapstructure:"max_requests"`
	Interval            int    `mapstructure:"interval"` // milliseconds
	Timeout             int    `mapstructure:"timeout"`  // milliseconds
	ConsecutiveFailures uint32 `mapstructure:"consecutive_failures"`
}

// EmbeddingConfig selects the vector provider for the semantic retrieval path.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // openai | hashing | none
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Backend    string `mapstructure:"backend"` // redis | badger | memory | none
	TTL        int    `mapstructure:"ttl"`     // seconds
	KeyPrefix  string `mapstructure:"key_prefix"`
	BadgerPath string `mapstructure:"badger_path"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
}

// EngineConfig tunes retrieval and the per-turn orchestrator.
type EngineConfig struct {
	WorkerPoolSize    int     `mapstructure:"worker_pool_size"`
	MaxResults        int     `mapstructure:"max_results"`
	KeywordThreshold  float64 `mapstructure:"keyword_threshold"`
	SemanticThreshold float64 `mapstructure:"semantic_threshold"`
	MinConfidence     float64 `mapstructure:"min_confidence"`
	RetrievalTimeout  int     `mapstructure:"retrieval_timeout"` // milliseconds
	MaxFollowUps      int     `mapstructure:"max_follow_ups"`
}

// ConversationConfig bounds the per-session memory.
type ConversationConfig struct {
	MaxHistory       int `mapstructure:"max_history"`
	MaxSearchHistory int `mapstructure:"max_search_history"`
	IdleTimeout      int `mapstructure:"idle_timeout"`   // milliseconds, 0 disables eviction
	SweepInterval    int `mapstructure:"sweep_interval"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig configures the health/metrics listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
