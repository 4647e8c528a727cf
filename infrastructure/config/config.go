package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EmailTransportLog  = "log"
	EmailTransportAMQP = "amqp"
	EmailTransportSMTP = "smtp"
)

type Config struct {
	DatabaseURL    string
	AutoMigrate    bool
	ServerPort     string
	ServerHost     string
	Environment    string
	MetricsEnabled bool

	JWTSecret               string
	RefreshTokenSalt        string
	AccessTokenTTL          time.Duration
	RefreshTokenTTL         time.Duration
	RefreshTokenMaxAttempts int
	PasswordResetTTL        time.Duration
	BcryptCost              int

	ResetLinkBaseURL string
	EmailTransport   string
	EmailFrom        string
	AMQPURL          string
	EmailQueue       string
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string

	RedisURL               string
	RateLimitEnabled       bool
	RateLimitIPAttempts    int
	RateLimitIPWindow      time.Duration
	RateLimitBlockDuration time.Duration

	LogLevel               string
	LogFormat              string
	LogCorrelationIDHeader string
	LogEnableRequestLog    bool

	CORSEnabled          bool
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
}

var (
	ErrMissingDatabaseURL    = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret      = errors.New("JWT_SECRET is required")
	ErrInvalidTokenTTL       = errors.New("invalid token TTL format")
	ErrInvalidEmailTransport = errors.New("EMAIL_TRANSPORT must be one of log, amqp, smtp")
	ErrMissingSMTPHost       = errors.New("SMTP_HOST is required when EMAIL_TRANSPORT=smtp")
	ErrMissingAMQPURL        = errors.New("AMQP_URL is required when EMAIL_TRANSPORT=amqp")
)

// Load reads configuration from the environment, after merging a .env file
// when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AutoMigrate:    getEnvOrDefaultBool("DB_AUTO_MIGRATE", false),
		ServerPort:     getEnvOrDefault("SERVER_PORT", "8080"),
		ServerHost:     getEnvOrDefault("SERVER_HOST", "localhost"),
		Environment:    getEnvOrDefault("ENV", "development"),
		MetricsEnabled: getEnvOrDefaultBool("METRICS_ENABLED", true),

		JWTSecret:               os.Getenv("JWT_SECRET"),
		RefreshTokenSalt:        os.Getenv("REFRESH_TOKEN_SALT"),
		RefreshTokenMaxAttempts: getEnvOrDefaultInt("REFRESH_TOKEN_MAX_ATTEMPTS", 5),
		BcryptCost:              getEnvOrDefaultInt("BCRYPT_COST", 10),

		ResetLinkBaseURL: getEnvOrDefault("RESET_LINK_BASE_URL", "http://localhost:4200/reset"),
		EmailTransport:   strings.ToLower(getEnvOrDefault("EMAIL_TRANSPORT", EmailTransportLog)),
		EmailFrom:        getEnvOrDefault("EMAIL_FROM", "no-reply@localhost"),
		AMQPURL:          os.Getenv("AMQP_URL"),
		EmailQueue:       getEnvOrDefault("EMAIL_QUEUE", "password.reset.email"),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getEnvOrDefaultInt("SMTP_PORT", 587),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),

		RedisURL:            getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		RateLimitEnabled:    getEnvOrDefaultBool("RATE_LIMIT_ENABLED", false),
		RateLimitIPAttempts: getEnvOrDefaultInt("RATE_LIMIT_IP_ATTEMPTS", 5),

		LogLevel:               getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:              getEnvOrDefault("LOG_FORMAT", "json"),
		LogCorrelationIDHeader: getEnvOrDefault("LOG_CORRELATION_ID_HEADER", "X-Correlation-ID"),
		LogEnableRequestLog:    getEnvOrDefaultBool("LOG_ENABLE_REQUEST_LOG", true),

		CORSEnabled:          getEnvOrDefaultBool("CORS_ENABLED", true),
		CORSAllowCredentials: getEnvOrDefaultBool("CORS_ALLOW_CREDENTIALS", true),
		CORSAllowedOrigins:   parseAllowedOrigins(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:4200")),
	}

	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}

	durations := []struct {
		key    string
		def    string
		target *time.Duration
	}{
		{"JWT_ACCESS_TOKEN_TTL", "86400", &cfg.AccessTokenTTL},
		{"JWT_REFRESH_TOKEN_TTL", "86400", &cfg.RefreshTokenTTL},
		{"PASSWORD_RESET_TTL", "1200", &cfg.PasswordResetTTL},
		{"RATE_LIMIT_IP_WINDOW", "900", &cfg.RateLimitIPWindow},
		{"RATE_LIMIT_BLOCK_DURATION", "1800", &cfg.RateLimitBlockDuration},
	}
	for _, d := range durations {
		ttl, err := parseTokenTTL(getEnvOrDefault(d.key, d.def))
		if err != nil {
			return nil, ErrInvalidTokenTTL
		}
		*d.target = ttl
	}

	switch cfg.EmailTransport {
	case EmailTransportLog:
	case EmailTransportAMQP:
		if cfg.AMQPURL == "" {
			return nil, ErrMissingAMQPURL
		}
	case EmailTransportSMTP:
		if cfg.SMTPHost == "" {
			return nil, ErrMissingSMTPHost
		}
	default:
		return nil, ErrInvalidEmailTransport
	}

	return cfg, nil
}

// MailerConfig is the subset cmd/mailer needs; it does not require a
// database or signing secret.
type MailerConfig struct {
	AMQPURL      string
	EmailQueue   string
	EmailFrom    string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	LogLevel     string
	LogFormat    string
}

func LoadMailer() (*MailerConfig, error) {
	_ = godotenv.Load()

	cfg := &MailerConfig{
		AMQPURL:      os.Getenv("AMQP_URL"),
		EmailQueue:   getEnvOrDefault("EMAIL_QUEUE", "password.reset.email"),
		EmailFrom:    getEnvOrDefault("EMAIL_FROM", "no-reply@localhost"),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvOrDefaultInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:    getEnvOrDefault("LOG_FORMAT", "json"),
	}

	if cfg.AMQPURL == "" {
		return nil, ErrMissingAMQPURL
	}
	if cfg.SMTPHost == "" {
		return nil, ErrMissingSMTPHost
	}
	return cfg, nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// parseTokenTTL reads a positive number of seconds.
func parseTokenTTL(value string) (time.Duration, error) {
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if seconds <= 0 {
		return 0, ErrInvalidTokenTTL
	}
	return time.Duration(seconds) * time.Second, nil
}

func parseAllowedOrigins(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			res = append(res, trimmed)
		}
	}
	return res
}
