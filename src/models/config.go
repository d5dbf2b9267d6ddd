package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	Network  MNetworkConfig `yaml:"network"`
	Session  MSessionConfig `yaml:"session"`
	Storage  MStorageConfig `yaml:"storage"`
	Poller   MPollerConfig  `yaml:"poller"`
}

type MNetworkConfig struct {
	Backend          string `yaml:"backend"` // "http" or "resty"
	Proxy            string `yaml:"proxy"`   // empty = disabled
	RequestTimeout   int    `yaml:"timeout"` // seconds
	MaxRetries       int    `yaml:"retries"`
	RetryBaseDelayMs int    `yaml:"retry_base_delay_ms"`
	UserAgent        string `yaml:"user_agent"`
}

type MSessionConfig struct {
	BaseURL   string `yaml:"base_url"`
	CookieURL string `yaml:"cookie_url"`
	CrumbURL  string `yaml:"crumb_url"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // "sqlite", "postgres" or "none"
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
}

type MPollerConfig struct {
	Symbols               []string `yaml:"symbols"`
	Datasets              []string `yaml:"datasets"`
	UpdateIntervalSeconds int      `yaml:"update_interval_seconds"`
	ConcurrentRequests    int      `yaml:"concurrent_requests"`
	RespectMarketHours    bool     `yaml:"respect_market_hours"`
}
