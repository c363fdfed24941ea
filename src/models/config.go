package models

// MConfig Structure
type MConfig struct {
	Name              string             `yaml:"name"`
	Host              string             `yaml:"host"`
	Port              int                `yaml:"port"`
	LogLevel          string             `yaml:"log_level"`
	GrpcHost          string             `yaml:"grpc_host"`
	GrpcPort          int                `yaml:"grpc_port"`
	Storage           MStorageConfig     `yaml:"storage"`
	Cache             MCacheConfig       `yaml:"cache"`
	Network           MNetworkConfig     `yaml:"network"`
	Sources           []MSourceConfig    `yaml:"sources"`
	Classifier        MClassifierConfig  `yaml:"classifier"`
	Pipeline          MPipelineConfig    `yaml:"pipeline"`
	Anomaly           MAnomalyConfig     `yaml:"anomaly"`
	PriceUpdate       MPriceUpdateConfig `yaml:"price_update"`
	Categories        []MCategoryConfig  `yaml:"categories"`
	RulesOverridePath string             `yaml:"rules_override_path"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MCacheConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLHours int    `yaml:"ttl_hours"`
}

type MNetworkConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Proxies            []string `yaml:"proxies"`
	RequestTimeout     int      `yaml:"timeout"`
	MaxRetries         int      `yaml:"retries"`
	RetryDelayMs       int      `yaml:"retry_delay_ms"`
	ConcurrentRequests int      `yaml:"concurrent_requests"`
	RatePerSecond      float64  `yaml:"rate_per_second"`
	UserAgent          string   `yaml:"user_agent"`
}

// MSourceConfig points at one marketplace client reachable over gRPC.
type MSourceConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

type MClassifierConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Endpoint       string  `yaml:"endpoint"`
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"api_key"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxTokens      int     `yaml:"max_tokens"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
}

type MPipelineConfig struct {
	MinPrice    int64 `yaml:"min_price"`
	MaxPrice    int64 `yaml:"max_price"`
	ResultLimit int   `yaml:"result_limit"`
}

type MAnomalyConfig struct {
	Categories map[string]MAnomalyThresholds `yaml:"categories"`
}

// MAnomalyThresholds are the hand-tuned per-category detector settings.
type MAnomalyThresholds struct {
	MinPercentageDiff  float64 `yaml:"min_percentage_diff"`
	MaxSuspiciousPrice float64 `yaml:"max_suspicious_price"`
	ZScoreThreshold    float64 `yaml:"zscore_threshold"`
	IQRMultiplier      float64 `yaml:"iqr_multiplier"`
	BasePrice          float64 `yaml:"base_price"`
}

type MPriceUpdateConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalMinutes int  `yaml:"interval_minutes"`
	WindowDays      int  `yaml:"window_days"`
}
