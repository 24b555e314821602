package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	StorageDynamo   = "dynamo"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageMemory   = "memory"
)

// OTP delivery channels accepted in OTP_DELIVERY.
const (
	DeliverySMTP = "smtp"
	DeliverySNS  = "sns"
	DeliveryLog  = "log"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string   `env:"APP_PORT" envDefault:"3000"`
	AppEnv         string   `env:"APP_ENV" envDefault:"development"`
	FrontendURL    string   `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","` // defaults to FrontendURL

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"dynamo"`
	DatabaseURL   string `env:"DATABASE_URL"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"./notes.db"`

	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`
	DynamoTables   DynamoTables

	JWTSecret         string        `env:"JWT_SECRET"`
	JWTPrivateKeyPath string        `env:"JWT_PRIVATE_KEY_PATH"`
	JWTPublicKeyPath  string        `env:"JWT_PUBLIC_KEY_PATH"`
	JWTExpiry         time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`

	OTPTTL           time.Duration `env:"OTP_TTL" envDefault:"10m"`
	OTPLength        int           `env:"OTP_LENGTH" envDefault:"6"`
	OTPSweepSchedule string        `env:"OTP_SWEEP_SCHEDULE" envDefault:"@every 1m"`
	OTPDelivery      string        `env:"OTP_DELIVERY" envDefault:"smtp"`

	SMTPScheme   string `env:"SMTP_SCHEME" envDefault:"smtps"`
	SMTPHost     string `env:"SMTP_HOST" envDefault:"localhost:465"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"Notes <noreply@example.com>"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPInsecure bool   `env:"SMTP_INSECURE_SKIP_VERIFY"`

	SNSRegion   string `env:"SNS_REGION" envDefault:"us-east-1"`
	SNSTopicARN string `env:"SNS_TOPIC_ARN"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL" envDefault:"http://localhost:3000/api/auth/google/callback"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// TrustProxyHeaders keys rate limits on X-Forwarded-For; enable only behind a proxy.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS"`
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users    string `env:"DYNAMO_TABLE_USERS" envDefault:"users"`
	UserKeys string `env:"DYNAMO_TABLE_USER_KEYS" envDefault:"user_keys"`
	OTPs     string `env:"DYNAMO_TABLE_OTPS" envDefault:"otps"`
	Notes    string `env:"DYNAMO_TABLE_NOTES" envDefault:"notes"`
}

// Load reads all configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{cfg.FrontendURL}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GoogleEnabled reports whether the Google redirect login is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

func (c *Config) validate() error {
	switch c.StorageDriver {
	case StorageDynamo, StorageSQLite, StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for storage driver %q", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.OTPDelivery {
	case DeliverySMTP, DeliveryLog:
	case DeliverySNS:
		if c.SNSTopicARN == "" {
			return fmt.Errorf("SNS_TOPIC_ARN is required for OTP_DELIVERY=sns")
		}
	default:
		return fmt.Errorf("unknown OTP_DELIVERY %q", c.OTPDelivery)
	}
	if c.OTPDelivery == DeliveryLog && c.IsProduction() {
		return fmt.Errorf("OTP_DELIVERY=log is not allowed in production")
	}
	if c.JWTSecret == "" && c.JWTPrivateKeyPath == "" {
		return fmt.Errorf("either JWT_SECRET or JWT_PRIVATE_KEY_PATH must be set")
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		return fmt.Errorf("OTP_LENGTH must be between 4 and 10, got %d", c.OTPLength)
	}
	return nil
}
