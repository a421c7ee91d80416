package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration. It is built once per run and
// passed explicitly into components; there is no process-wide cached loader.
type Config struct {
	Environment string
	AWSRegion   string
	DryRun      bool

	Storage     StorageConfig
	Notify      NotifyConfig
	Collect     CollectConfig
	Correlation CorrelationConfig
	Logging     LoggingConfig

	CronSchedule string
	MetricsAddr  string
}

// StorageConfig contains object storage and suppression source configuration
type StorageConfig struct {
	RawBucket         string
	ReportsBucket     string
	SuppressConfigURI string
	SampleDataDir     string
}

// NotifyConfig contains notification target configuration
type NotifyConfig struct {
	SNSTopicARN     string
	SlackWebhookURL string
}

// CollectConfig contains provider collection configuration
type CollectConfig struct {
	LookbackDays               int
	TargetServices             []string
	SecurityProviders          []string
	SeverityMin                string
	GuardDutySeverityThreshold float64
	GuardDutyDetectorID        string
	MaxAPIAttempts             int
}

// CorrelationConfig contains the thresholds consumed by the correlation core
type CorrelationConfig struct {
	DeltaThresholdPct         float64
	ZScoreThreshold           float64
	BufferHours               int
	HistoryWeeks              int
	ServiceDiversityThreshold int
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("APP_ENV", "dev"),
		AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
		DryRun:      getEnvAsBool("DRY_RUN", true),
		Storage: StorageConfig{
			RawBucket:         getEnv("RAW_DATA_BUCKET", ""),
			ReportsBucket:     getEnv("REPORTS_BUCKET", ""),
			SuppressConfigURI: getEnv("SUPPRESS_CONFIG_URI", ""),
			SampleDataDir:     getEnv("SAMPLE_DATA_DIR", "docs/data"),
		},
		Notify: NotifyConfig{
			SNSTopicARN:     getEnv("REPORT_TOPIC_ARN", ""),
			SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
		},
		Collect: CollectConfig{
			LookbackDays:               getEnvAsInt("COST_LOOKBACK_DAYS", 14),
			TargetServices:             getEnvAsSlice("TARGET_SERVICES", nil),
			SecurityProviders:          getEnvAsSlice("SEC_PROVIDERS", []string{"securityhub", "guardduty"}),
			SeverityMin:                strings.ToUpper(getEnv("SEVERITY_MIN", "MEDIUM")),
			GuardDutySeverityThreshold: getEnvAsFloat("GUARDDUTY_SEVERITY_THRESHOLD", 4.0),
			GuardDutyDetectorID:        getEnv("GUARDDUTY_DETECTOR_ID", ""),
			MaxAPIAttempts:             getEnvAsInt("MAX_API_ATTEMPTS", 5),
		},
		Correlation: CorrelationConfig{
			DeltaThresholdPct:         getEnvAsFloat("DELTA_THRESHOLD", 30),
			ZScoreThreshold:           getEnvAsFloat("ZSCORE_THRESHOLD", 2.0),
			BufferHours:               getEnvAsInt("MATCH_BUFFER_HOURS", 24),
			HistoryWeeks:              getEnvAsInt("HISTORY_WEEKS", 8),
			ServiceDiversityThreshold: getEnvAsInt("SERVICE_DIVERSITY_THRESHOLD", 3),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		CronSchedule: getEnv("CRON_SCHEDULE", "0 6 * * MON"),
		MetricsAddr:  getEnv("METRICS_ADDR", ""),
	}

	return cfg, nil
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean
func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}

// getEnvAsSlice retrieves a comma-separated environment variable as a slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if out == nil {
		return defaultValue
	}
	return out
}
