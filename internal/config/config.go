package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Addr   string
	DBPath string
	Debug  bool

	// Coordinator tuning
	StalenessWindow time.Duration
	ZScoreThreshold float64
	HistoryCap      int
	SnapshotEvery   time.Duration

	// Vulnerability platform
	WazuhAPIURL     string
	WazuhIndexerURL string
	WazuhUser       string
	WazuhPassword   string
	IndexerUser     string
	IndexerPassword string
	WazuhSkipVerify bool

	// Scanner
	ScannerHost     string
	ScannerPort     int
	ScannerUser     string
	ScannerPassword string

	// Object store
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
	S3PublicURL string
}

// Load parses command line flags and environment variables. Flags take
// precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	// Defaults and Environment Variables
	cfg.Addr = getEnv("FLEETWATCH_ADDR", ":8080")
	cfg.DBPath = getEnv("FLEETWATCH_DB", "fleetwatch.db")
	stalenessSecs := getEnvInt("FLEETWATCH_STALENESS_SECONDS", 300)
	cfg.ZScoreThreshold = getEnvFloat("FLEETWATCH_ZSCORE_THRESHOLD", 2.0)
	cfg.HistoryCap = getEnvInt("FLEETWATCH_HISTORY_CAP", 100)
	snapshotSecs := getEnvInt("FLEETWATCH_SNAPSHOT_SECONDS", 5)

	cfg.WazuhAPIURL = getEnv("FLEETWATCH_WAZUH_API", "https://localhost:55000")
	cfg.WazuhIndexerURL = getEnv("FLEETWATCH_WAZUH_INDEXER", "https://localhost:9200")
	cfg.WazuhUser = getEnv("FLEETWATCH_WAZUH_USER", "wazuh")
	cfg.WazuhPassword = getEnv("FLEETWATCH_WAZUH_PASSWORD", "wazuh")
	cfg.IndexerUser = getEnv("FLEETWATCH_INDEXER_USER", "admin")
	cfg.IndexerPassword = getEnv("FLEETWATCH_INDEXER_PASSWORD", "admin")
	cfg.WazuhSkipVerify = getEnvBool("FLEETWATCH_WAZUH_SKIP_VERIFY", true)

	cfg.ScannerHost = getEnv("FLEETWATCH_SCANNER_HOST", "localhost")
	cfg.ScannerPort = getEnvInt("FLEETWATCH_SCANNER_PORT", 9390)
	cfg.ScannerUser = getEnv("FLEETWATCH_SCANNER_USER", "admin")
	cfg.ScannerPassword = getEnv("FLEETWATCH_SCANNER_PASSWORD", "admin")

	cfg.S3Endpoint = getEnv("FLEETWATCH_S3_ENDPOINT", "localhost:9000")
	cfg.S3AccessKey = getEnv("FLEETWATCH_S3_ACCESS_KEY", "")
	cfg.S3SecretKey = getEnv("FLEETWATCH_S3_SECRET_KEY", "")
	cfg.S3Bucket = getEnv("FLEETWATCH_S3_BUCKET", "fleetwatch-reports")
	cfg.S3UseSSL = getEnvBool("FLEETWATCH_S3_SSL", false)
	cfg.S3PublicURL = getEnv("FLEETWATCH_S3_PUBLIC_URL", "")

	// Command Line Flags (Override Env)
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite database")
	flag.BoolVar(&cfg.Debug, "debug", getEnvBool("FLEETWATCH_DEBUG", false), "Enable verbose debug logging")
	flag.IntVar(&stalenessSecs, "staleness", stalenessSecs, "Node staleness window in seconds")
	flag.Float64Var(&cfg.ZScoreThreshold, "zscore", cfg.ZScoreThreshold, "Outlier z-score threshold")
	flag.IntVar(&cfg.HistoryCap, "history-cap", cfg.HistoryCap, "Per-node vector history cap")
	flag.IntVar(&snapshotSecs, "snapshot", snapshotSecs, "Websocket cluster snapshot interval in seconds")

	flag.Parse()

	cfg.StalenessWindow = time.Duration(stalenessSecs) * time.Second
	cfg.SnapshotEvery = time.Duration(snapshotSecs) * time.Second

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
