package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; the two credential slots and the
// settings of the selected queue backend are required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string

	// Queue storage: "postgres", "sqlite" or "memory"
	QueueBackend   string
	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	MigrationsPath string
	SQLitePath     string

	// Worker pools (one per category)
	WorkerConcurrency   int
	WorkerRateLimit     int
	QueuePollInterval   time.Duration
	JobLease            time.Duration
	MaintenanceInterval time.Duration

	// Job options applied on enqueue
	JobAttempts        int
	JobBackoff         time.Duration
	KeepCompletedCount int
	KeepCompletedAge   time.Duration

	// Outbound mail
	MailTransport          string
	MailAPIURL             string
	MailSendTimeout        time.Duration
	MailDailyLimit         int
	MailSecondaryLimit     int
	Primary                SlotConfig
	Secondary              SlotConfig
	SMTPHost               string
	SMTPPort               int
	SMTPInsecureSkipVerify bool

	// Quota counter storage: "memory" or "redis"
	QuotaBackend  string
	RedisAddr     string
	RedisDB       int
	RedisPassword string

	// Job lifecycle events (disabled when no brokers are set)
	KafkaBrokers []string
	KafkaTopic   string
}

// SlotConfig describes one outbound credential slot.
type SlotConfig struct {
	Key      string
	From     string
	SMTPUser string
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		QueueBackend:   getEnv("QUEUE_BACKEND", "postgres"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxConns:     int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:     int32(getInt("DB_MIN_CONNS", 5)),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "file://migrations"),
		SQLitePath:     getEnv("SQLITE_PATH", "mail-dispatcher.db"),

		WorkerConcurrency:   getInt("WORKER_CONCURRENCY", 2),
		WorkerRateLimit:     getInt("WORKER_RATE_LIMIT", 2),
		QueuePollInterval:   getDuration("QUEUE_POLL_INTERVAL", time.Second),
		JobLease:            getDuration("JOB_LEASE", 2*time.Minute),
		MaintenanceInterval: getDuration("MAINTENANCE_INTERVAL", time.Second),

		JobAttempts:        getInt("JOB_ATTEMPTS", 5),
		JobBackoff:         getDuration("JOB_BACKOFF", 2*time.Second),
		KeepCompletedCount: getInt("KEEP_COMPLETED_COUNT", 100),
		KeepCompletedAge:   getDuration("KEEP_COMPLETED_AGE", time.Hour),

		MailTransport:      getEnv("MAIL_TRANSPORT", "api"),
		MailAPIURL:         getEnv("MAIL_API_URL", "https://api.resend.com"),
		MailSendTimeout:    getDuration("MAIL_SEND_TIMEOUT", 60*time.Second),
		MailDailyLimit:     getInt("MAIL_DAILY_LIMIT", 100),
		MailSecondaryLimit: getInt("MAIL_SECONDARY_DAILY_LIMIT", 0),
		Primary: SlotConfig{
			Key:      os.Getenv("MAIL_PRIMARY_KEY"),
			From:     getEnv("MAIL_PRIMARY_FROM", "Notifications <no-reply@example.com>"),
			SMTPUser: os.Getenv("SMTP_USER_PRIMARY"),
		},
		Secondary: SlotConfig{
			Key:      os.Getenv("MAIL_SECONDARY_KEY"),
			From:     getEnv("MAIL_SECONDARY_FROM", "Notifications <no-reply@mail.example.com>"),
			SMTPUser: os.Getenv("SMTP_USER_SECONDARY"),
		},
		SMTPHost:               getEnv("SMTP_HOST", "localhost"),
		SMTPPort:               getInt("SMTP_PORT", 587),
		SMTPInsecureSkipVerify: getBool("SMTP_INSECURE_SKIP_VERIFY", false),

		QuotaBackend:  getEnv("QUOTA_BACKEND", "memory"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:       getInt("REDIS_DB", 0),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		KafkaBrokers: getList("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "mail-events"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.QueueBackend {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres queue backend")
		}
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown QUEUE_BACKEND %q", c.QueueBackend)
	}

	switch c.MailTransport {
	case "api", "smtp":
	default:
		return fmt.Errorf("unknown MAIL_TRANSPORT %q", c.MailTransport)
	}

	switch c.QuotaBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown QUOTA_BACKEND %q", c.QuotaBackend)
	}

	if c.Primary.Key == "" || c.Secondary.Key == "" {
		return fmt.Errorf("MAIL_PRIMARY_KEY and MAIL_SECONDARY_KEY must be configured")
	}
	if c.MailDailyLimit <= 0 {
		return fmt.Errorf("MAIL_DAILY_LIMIT must be positive")
	}
	if c.WorkerConcurrency <= 0 || c.WorkerRateLimit <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY and WORKER_RATE_LIMIT must be positive")
	}
	if c.JobAttempts <= 0 {
		return fmt.Errorf("JOB_ATTEMPTS must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
