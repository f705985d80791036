package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewPlanCatalogHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Payment   PaymentConfig
	Email     EmailConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Worker    WorkerConfig

	AuthJWTSecret string
	AdminAPIKeys  []AdminAPIKey
}

// PaymentConfig carries the Yoco credentials for both modes. The active mode
// is stored in the settings table; DefaultMode is used until it is set.
// YocoWebhookSecret is the signing secret for any mode without its own.
type PaymentConfig struct {
	DefaultMode           string
	YocoBaseURL           string
	YocoLiveSecretKey     string
	YocoTestSecretKey     string
	YocoWebhookSecret     string
	YocoLiveWebhookSecret string
	YocoTestWebhookSecret string
	Timeout               time.Duration
	SuccessURL            string
	CancelURL             string
	FailureURL            string
	Currency              string
}

// WebhookSecret returns the webhook signing secret for the given mode.
func (c PaymentConfig) WebhookSecret(mode string) string {
	var secret string
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "live":
		secret = c.YocoLiveWebhookSecret
	case "test":
		secret = c.YocoTestWebhookSecret
	default:
		return ""
	}
	if secret = strings.TrimSpace(secret); secret != "" {
		return secret
	}
	return strings.TrimSpace(c.YocoWebhookSecret)
}

// SecretKey returns the Yoco secret key for the given mode.
func (c PaymentConfig) SecretKey(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "live":
		return strings.TrimSpace(c.YocoLiveSecretKey)
	case "test":
		return strings.TrimSpace(c.YocoTestSecretKey)
	default:
		return ""
	}
}

type EmailConfig struct {
	Transport string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	PostmarkServerToken  string
	PostmarkAccountToken string
	SenderEmail          string
	SupportEmail         string

	ProductName string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	VerifyRate  float64
	VerifyBurst int
}

type WorkerConfig struct {
	RunInterval        time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	ReconcileBatchSize int
	EnabledJobs        []string
}

// AdminAPIKey is a statically configured operator credential.
type AdminAPIKey struct {
	ID   string
	Role string
	Key  string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "hrledger"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "hrledger"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		Payment: PaymentConfig{
			DefaultMode:           strings.ToLower(getenv("PAYMENT_MODE_DEFAULT", "test")),
			YocoBaseURL:           strings.TrimRight(getenv("YOCO_BASE_URL", "https://payments.yoco.com"), "/"),
			YocoLiveSecretKey:     strings.TrimSpace(getenv("YOCO_LIVE_SECRET_KEY", "")),
			YocoTestSecretKey:     strings.TrimSpace(getenv("YOCO_TEST_SECRET_KEY", "")),
			YocoWebhookSecret:     strings.TrimSpace(getenv("YOCO_WEBHOOK_SECRET", "")),
			YocoLiveWebhookSecret: strings.TrimSpace(getenv("YOCO_LIVE_WEBHOOK_SECRET", "")),
			YocoTestWebhookSecret: strings.TrimSpace(getenv("YOCO_TEST_WEBHOOK_SECRET", "")),
			Timeout:               getenvDuration("YOCO_TIMEOUT", 15*time.Second),
			SuccessURL:            getenv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/billing/success"),
			CancelURL:             getenv("CHECKOUT_CANCEL_URL", "http://localhost:3000/billing"),
			FailureURL:            getenv("CHECKOUT_FAILURE_URL", "http://localhost:3000/billing/failed"),
			Currency:              strings.ToUpper(getenv("CHECKOUT_CURRENCY", "ZAR")),
		},
		Email: EmailConfig{
			Transport:            strings.ToLower(getenv("EMAIL_TRANSPORT", "noop")),
			SMTPHost:             getenv("SMTP_HOST", "localhost"),
			SMTPPort:             getenvInt("SMTP_PORT", 1025),
			SMTPUsername:         getenv("SMTP_USERNAME", ""),
			SMTPPassword:         getenv("SMTP_PASSWORD", ""),
			SMTPFrom:             getenv("SMTP_FROM", "billing@hrledger.local"),
			PostmarkServerToken:  strings.TrimSpace(getenv("POSTMARK_SERVER_TOKEN", "")),
			PostmarkAccountToken: strings.TrimSpace(getenv("POSTMARK_ACCOUNT_TOKEN", "")),
			SenderEmail:          getenv("EMAIL_SENDER", "billing@hrledger.local"),
			SupportEmail:         getenv("EMAIL_SUPPORT", "support@hrledger.local"),
			ProductName:          getenv("PRODUCT_NAME", "HR Docs"),
		},
		Redis: RedisConfig{
			Enabled:  getenvBool("REDIS_ENABLED", false),
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			VerifyRate:  getenvFloat("RATE_LIMIT_VERIFY_RATE", 1),
			VerifyBurst: getenvInt("RATE_LIMIT_VERIFY_BURST", 10),
		},
		Worker: WorkerConfig{
			RunInterval:        getenvDuration("WORKER_RUN_INTERVAL", time.Minute),
			OutboxBatchSize:    getenvInt("WORKER_OUTBOX_BATCH_SIZE", 50),
			OutboxMaxAttempts:  getenvInt("WORKER_OUTBOX_MAX_ATTEMPTS", 5),
			ReconcileBatchSize: getenvInt("WORKER_RECONCILE_BATCH_SIZE", 200),
			EnabledJobs:        parseList(getenv("WORKER_ENABLED_JOBS", "")),
		},
		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AdminAPIKeys:  parseAdminAPIKeys(getenv("ADMIN_API_KEYS", "")),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// parseAdminAPIKeys reads "id:role:key" triples separated by commas.
func parseAdminAPIKeys(raw string) []AdminAPIKey {
	out := []AdminAPIKey{}
	for _, item := range parseList(raw) {
		parts := strings.SplitN(item, ":", 3)
		if len(parts) != 3 {
			continue
		}
		key := AdminAPIKey{
			ID:   strings.TrimSpace(parts[0]),
			Role: strings.ToLower(strings.TrimSpace(parts[1])),
			Key:  strings.TrimSpace(parts[2]),
		}
		if key.ID == "" || key.Role == "" || key.Key == "" {
			continue
		}
		out = append(out, key)
	}
	return out
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
