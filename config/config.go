package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"browser-monitor-worker/domain"
)

type Config struct {
	DataDir           string        `yaml:"data_dir"`
	DataFile          string        `yaml:"data_file"`
	MonitoredPackages []string      `yaml:"monitored_packages"`
	AddressBarIDs     []string      `yaml:"address_bar_ids"`
	SearchMarker      string        `yaml:"search_marker"`
	SearchEngineHost  string        `yaml:"search_engine_host"`
	ScrapeInterval    time.Duration `yaml:"scrape_interval"`
	ScrapeTimeout     time.Duration `yaml:"scrape_timeout"`
	ScrapeMaxRetries  int           `yaml:"scrape_max_retries"`
	ScrapeBackoff     time.Duration `yaml:"scrape_retry_backoff"`
	ScrapeUserAgent   string        `yaml:"scrape_user_agent"`
	ScrapeSeenTTL     time.Duration `yaml:"scrape_seen_ttl"`
	WatchdogInterval  time.Duration `yaml:"watchdog_interval"`
	TreeMaxDepth      int           `yaml:"tree_max_depth"`
	ListenAddress     string        `yaml:"listen_address"`

	// Optional integrations, disabled when empty
	InputQueueURL  string `yaml:"input_queue_url"`
	RedisHost      string `yaml:"redis_host"`
	RedisPort      string `yaml:"redis_port"`
	DatabaseURL    string `yaml:"database_url"`
	OpenSearchURL  string `yaml:"opensearch_url"`
	SnapshotBucket string `yaml:"snapshot_bucket"`
	SessionTable   string `yaml:"session_table"`
	AWSRegion      string `yaml:"aws_region"`
	AWSEndpointURL string `yaml:"aws_endpoint_url"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
	Debug    bool   `yaml:"debug"`
}

func Default() *Config {
	return &Config{
		DataDir:           "data",
		DataFile:          domain.DefaultDataFile,
		MonitoredPackages: append([]string(nil), domain.DefaultMonitoredPackages...),
		AddressBarIDs:     append([]string(nil), domain.DefaultAddressBarIDs...),
		SearchMarker:      domain.DefaultSearchMarker,
		SearchEngineHost:  domain.DefaultSearchEngineHost,
		ScrapeInterval:    10 * time.Second,
		ScrapeTimeout:     5 * time.Second,
		ScrapeMaxRetries:  3,
		ScrapeBackoff:     time.Second,
		ScrapeUserAgent:   domain.DefaultUserAgent,
		ScrapeSeenTTL:     time.Hour,
		WatchdogInterval:  5 * time.Minute,
		TreeMaxDepth:      10,
		ListenAddress:     "127.0.0.1:8123",
		AWSRegion:         "us-east-1",
		LogLevel:          "info",
	}
}

// Load builds the configuration from defaults, the optional CONFIG_FILE and
// the environment, in that order of precedence (lowest first).
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	var err error
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.DataFile = getEnv("DATA_FILE", cfg.DataFile)
	cfg.MonitoredPackages = getEnvList("MONITORED_PACKAGES", cfg.MonitoredPackages)
	cfg.AddressBarIDs = getEnvList("ADDRESS_BAR_IDS", cfg.AddressBarIDs)
	cfg.SearchMarker = getEnv("SEARCH_MARKER", cfg.SearchMarker)
	cfg.SearchEngineHost = getEnv("SEARCH_ENGINE_HOST", cfg.SearchEngineHost)
	cfg.ScrapeUserAgent = getEnv("SCRAPE_USER_AGENT", cfg.ScrapeUserAgent)
	cfg.ListenAddress = getEnv("LISTEN_ADDRESS", cfg.ListenAddress)
	cfg.InputQueueURL = getEnv("INPUT_QUEUE_URL", cfg.InputQueueURL)
	cfg.RedisHost = getEnv("REDIS_HOST", cfg.RedisHost)
	cfg.RedisPort = getEnv("REDIS_PORT", cfg.RedisPort)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.OpenSearchURL = getEnv("OPENSEARCH_URL", cfg.OpenSearchURL)
	cfg.SnapshotBucket = getEnv("SNAPSHOT_BUCKET", cfg.SnapshotBucket)
	cfg.SessionTable = getEnv("SESSION_TABLE", cfg.SessionTable)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.AWSEndpointURL = getEnv("AWS_ENDPOINT_URL", cfg.AWSEndpointURL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)

	if cfg.ScrapeInterval, err = getEnvDuration("SCRAPE_INTERVAL", cfg.ScrapeInterval); err != nil {
		return nil, err
	}
	if cfg.ScrapeTimeout, err = getEnvDuration("SCRAPE_TIMEOUT", cfg.ScrapeTimeout); err != nil {
		return nil, err
	}
	if cfg.ScrapeBackoff, err = getEnvDuration("SCRAPE_RETRY_BACKOFF", cfg.ScrapeBackoff); err != nil {
		return nil, err
	}
	if cfg.ScrapeSeenTTL, err = getEnvDuration("SCRAPE_SEEN_TTL", cfg.ScrapeSeenTTL); err != nil {
		return nil, err
	}
	if cfg.WatchdogInterval, err = getEnvDuration("WATCHDOG_INTERVAL", cfg.WatchdogInterval); err != nil {
		return nil, err
	}
	if cfg.ScrapeMaxRetries, err = getEnvInt("SCRAPE_MAX_RETRIES", cfg.ScrapeMaxRetries); err != nil {
		return nil, err
	}
	if cfg.TreeMaxDepth, err = getEnvInt("TREE_MAX_DEPTH", cfg.TreeMaxDepth); err != nil {
		return nil, err
	}
	if v, ok := os.LookupEnv("DEBUG"); ok {
		cfg.Debug, _ = strconv.ParseBool(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.MonitoredPackages) == 0 {
		return fmt.Errorf("MONITORED_PACKAGES must not be empty")
	}
	if c.DataFile == "" {
		return fmt.Errorf("DATA_FILE is required")
	}
	if c.ScrapeInterval <= 0 || c.ScrapeTimeout <= 0 || c.WatchdogInterval <= 0 {
		return fmt.Errorf("intervals and timeouts must be positive")
	}
	if c.ScrapeBackoff < 0 {
		return fmt.Errorf("SCRAPE_RETRY_BACKOFF must not be negative")
	}
	if c.ScrapeMaxRetries <= 0 {
		return fmt.Errorf("SCRAPE_MAX_RETRIES must be positive")
	}
	if c.TreeMaxDepth <= 0 {
		return fmt.Errorf("TREE_MAX_DEPTH must be positive")
	}
	return nil
}

// DataPath is the full path of the append-only log file.
func (c *Config) DataPath() string {
	return filepath.Join(c.DataDir, c.DataFile)
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}
