package domain

// Config holds the complete Kestrel configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Screening thresholds
	Detection DetectionConfig `json:"detection"`

	// Operator authentication
	Auth AuthConfig `json:"auth"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// DetectionConfig holds the tunable thresholds of the screening rules
// and the anomaly model.
type DetectionConfig struct {
	// FrequencyThreshold is the distribution count above which the
	// abnormal-frequency rule fires, measured over FrequencyWindowDays.
	FrequencyThreshold  int `json:"frequencyThreshold"`
	FrequencyWindowDays int `json:"frequencyWindowDays"`

	// AddressShareThreshold is the minimum number of subjects sharing
	// one address (holder included) for the duplicate-address rule.
	AddressShareThreshold int `json:"addressShareThreshold"`

	// HighIncomeCutoff is the declared income above which a BPL card
	// holder triggers the income-mismatch rule.
	HighIncomeCutoff float64 `json:"highIncomeCutoff"`

	// AnomalyAlertThreshold is the model confidence above which a
	// scored transaction produces an alert.
	AnomalyAlertThreshold float64 `json:"anomalyAlertThreshold"`

	// Contamination is the expected outlier fraction used to fit the
	// anomaly model's decision offset.
	Contamination float64 `json:"contamination"`

	// MinTrainingSamples is the minimum transaction count required to
	// train the anomaly model.
	MinTrainingSamples int `json:"minTrainingSamples"`
}

// AuthConfig holds JWT settings for operator authentication.
type AuthConfig struct {
	JWTSecret      string `json:"-"`
	TokenTTLMins   int    `json:"tokenTtlMins"`
	BCryptCost     int    `json:"bcryptCost"`
	RateLimitRPS   int    `json:"rateLimitRps"`
	RateLimitBurst int    `json:"rateLimitBurst"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// Tier represents the product tier.
type Tier string

const (
	// TierCommunity is the free tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultDetectionConfig returns the stock screening thresholds.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		FrequencyThreshold:    40,
		FrequencyWindowDays:   30,
		AddressShareThreshold: 3,
		HighIncomeCutoff:      100000,
		AnomalyAlertThreshold: 0.7,
		Contamination:         0.1,
		MinTrainingSamples:    10,
	}
}

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./kestrel.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     300, // 5 minutes
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Detection: DefaultDetectionConfig(),
		Auth: AuthConfig{
			TokenTTLMins:   480,
			BCryptCost:     10,
			RateLimitRPS:   50,
			RateLimitBurst: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "kestrel",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
