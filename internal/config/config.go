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
	fx.Provide(NewBillingConfigHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	SnowflakeNode int64

	AuthJWTSecret string
	AuthTokenTTL  time.Duration

	// Login attempts per client address: a burst, refilled per minute.
	AuthLoginBurst     int
	AuthLoginPerMinute int

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

	Redis     RedisConfig
	SMS       SMSConfig
	WhatsApp  WhatsAppConfig
	Email     EmailConfig
	Storage   StorageConfig
	Company   CompanyConfig
	Bootstrap BootstrapConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// SMSConfig configures the MSG91 flow API.
type SMSConfig struct {
	Endpoint    string
	AuthKey     string
	SenderID    string
	FlowID      string
	CountryCode string
}

type WhatsAppConfig struct {
	Endpoint string
	Token    string
	From     string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PublicBaseURL   string
}

// CompanyConfig is printed on invoices.
type CompanyConfig struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

type BootstrapConfig struct {
	AdminUsername string
	AdminPassword string
	AdminName     string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:       getenv("APP_SERVICE", "cablebill"),
		AppVersion:    getenv("APP_VERSION", "0.1.0"),
		Environment:   getenv("ENVIRONMENT", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		SnowflakeNode: getenvInt64("SNOWFLAKE_NODE", 1),
		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AuthTokenTTL:  getenvDuration("AUTH_TOKEN_TTL", 24*time.Hour),
		OTLPEndpoint:  getenv("OTLP_ENDPOINT", "localhost:4317"),

		AuthLoginBurst:     int(getenvInt64("AUTH_LOGIN_BURST", 10)),
		AuthLoginPerMinute: int(getenvInt64("AUTH_LOGIN_PER_MINUTE", 5)),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "cablebill"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 1800)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 300)),

		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		SMS: SMSConfig{
			Endpoint:    getenv("SMS_ENDPOINT", "https://api.msg91.com/api/v5/flow/"),
			AuthKey:     strings.TrimSpace(getenv("SMS_AUTH_KEY", "")),
			SenderID:    strings.TrimSpace(getenv("SMS_SENDER_ID", "")),
			FlowID:      strings.TrimSpace(getenv("SMS_FLOW_ID", "")),
			CountryCode: getenv("SMS_COUNTRY_CODE", "91"),
		},
		WhatsApp: WhatsAppConfig{
			Endpoint: strings.TrimSpace(getenv("WHATSAPP_ENDPOINT", "")),
			Token:    strings.TrimSpace(getenv("WHATSAPP_TOKEN", "")),
			From:     strings.TrimSpace(getenv("WHATSAPP_FROM", "")),
		},
		Email: EmailConfig{
			SMTPHost:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:     int(getenvInt64("SMTP_PORT", 587)),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "billing@localhost"),
		},
		Storage: StorageConfig{
			Bucket:          strings.TrimSpace(getenv("S3_BUCKET", "")),
			Region:          getenv("S3_REGION", "ap-south-1"),
			Endpoint:        strings.TrimSpace(getenv("S3_ENDPOINT", "")),
			AccessKeyID:     getenv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getenv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getenvBool("S3_USE_PATH_STYLE", false),
			PublicBaseURL:   strings.TrimRight(getenv("S3_PUBLIC_BASE_URL", ""), "/"),
		},
		Company: CompanyConfig{
			Name:    getenv("COMPANY_NAME", "Cable Network"),
			Address: getenv("COMPANY_ADDRESS", ""),
			Phone:   getenv("COMPANY_PHONE", ""),
			Email:   getenv("COMPANY_EMAIL", ""),
		},
		Bootstrap: BootstrapConfig{
			AdminUsername: strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_USERNAME", "")),
			AdminPassword: getenv("BOOTSTRAP_ADMIN_PASSWORD", ""),
			AdminName:     getenv("BOOTSTRAP_ADMIN_NAME", "Administrator"),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
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

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
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
