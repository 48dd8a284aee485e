package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config groups the application settings, read through viper from the
// process environment (populated from .env by env.SetupEnvFile).
type Config struct {
	App       AppConfig
	DB        DBConfig
	Cache     CacheConfig
	Session   SessionConfig
	Stripe    StripeConfig
	Instagram InstagramConfig
	Mail      MailConfig
	Cron      CronConfig
	Media     MediaConfig
	Metrics   MetricsConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Env       string // dev, test, prod
	Name      string
	Host      string
	Port      string
	PublicURL string // base for checkout return urls and email links
	LogLevel  string
}

func (a AppConfig) IsDev() bool  { return a.Env == "dev" }
func (a AppConfig) IsProd() bool { return a.Env == "prod" }

// Addr returns the listen address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DSN returns the go-sql-driver/mysql data source name used by gorm.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// MigrateURL returns the connection url for golang-migrate.
func (c DBConfig) MigrateURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

type CacheConfig struct {
	Host     string
	Port     int
	Password string
}

func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type SessionConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type StripeConfig struct {
	SecretKey          string
	WebhookSecret      string
	PriceInstagramOnly string
	PricePlatformFull  string
}

type InstagramConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	GraphBaseURL string
	APIBaseURL   string
}

type MailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Sender   string
}

type CronConfig struct {
	Secret          string
	SyncInterval    time.Duration // 0 disables the scheduled content sync
	SyncDelay       time.Duration // pause between companies
	PublishInterval time.Duration

	// TokenRefreshInterval schedules renewal of Instagram tokens near expiry
	TokenRefreshInterval time.Duration
}

type MediaConfig struct {
	Enabled         bool
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string
	PublicBaseURL   string
}

type MetricsConfig struct {
	User     string
	Password string
}

type RateLimitConfig struct {
	Max        int
	Expiration time.Duration
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:       v.GetString("APP_ENV"),
			Name:      v.GetString("APP_NAME"),
			Host:      v.GetString("APP_HOST"),
			Port:      v.GetString("APP_PORT"),
			PublicURL: strings.TrimRight(v.GetString("APP_URL"), "/"),
			LogLevel:  v.GetString("LOG_LEVEL"),
		},
		DB: DBConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
		},
		Cache: CacheConfig{
			Host:     v.GetString("CACHE_HOST"),
			Port:     v.GetInt("CACHE_PORT"),
			Password: v.GetString("CACHE_PASSWORD"),
		},
		Session: SessionConfig{
			Secret: v.GetString("SESSION_SECRET"),
			Issuer: v.GetString("SESSION_ISSUER"),
			TTL:    v.GetDuration("SESSION_TTL"),
		},
		Stripe: StripeConfig{
			SecretKey:          v.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret:      v.GetString("STRIPE_WEBHOOK_SECRET"),
			PriceInstagramOnly: v.GetString("STRIPE_PRICE_INSTAGRAM_ONLY"),
			PricePlatformFull:  v.GetString("STRIPE_PRICE_PLATFORM_FULL"),
		},
		Instagram: InstagramConfig{
			ClientID:     v.GetString("INSTAGRAM_CLIENT_ID"),
			ClientSecret: v.GetString("INSTAGRAM_CLIENT_SECRET"),
			RedirectURI:  v.GetString("INSTAGRAM_REDIRECT_URI"),
			GraphBaseURL: v.GetString("INSTAGRAM_GRAPH_URL"),
			APIBaseURL:   v.GetString("INSTAGRAM_API_URL"),
		},
		Mail: MailConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetString("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			Sender:   v.GetString("SMTP_SENDER"),
		},
		Cron: CronConfig{
			Secret:          v.GetString("CRON_SECRET"),
			SyncInterval:    v.GetDuration("CONTENT_SYNC_INTERVAL"),
			SyncDelay:       v.GetDuration("CONTENT_SYNC_DELAY"),
			PublishInterval: v.GetDuration("SCHEDULED_POST_INTERVAL"),

			TokenRefreshInterval: v.GetDuration("TOKEN_REFRESH_INTERVAL"),
		},
		Media: MediaConfig{
			Enabled:         v.GetBool("S3_MIRROR_ENABLED"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			Region:          v.GetString("S3_REGION"),
			BucketName:      v.GetString("S3_BUCKET_NAME"),
			EndpointURL:     v.GetString("S3_ENDPOINT_URL"),
			PublicBaseURL:   strings.TrimRight(v.GetString("S3_PUBLIC_BASE_URL"), "/"),
		},
		Metrics: MetricsConfig{
			User:     v.GetString("METRICS_USER"),
			Password: v.GetString("METRICS_PASSWORD"),
		},
		RateLimit: RateLimitConfig{
			Max:        v.GetInt("RATE_LIMIT_MAX"),
			Expiration: v.GetDuration("RATE_LIMIT_EXPIRATION"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "prod")
	v.SetDefault("APP_NAME", "栃木プラットフォーム")
	v.SetDefault("APP_HOST", "0.0.0.0")
	v.SetDefault("APP_PORT", "4000")
	v.SetDefault("APP_URL", "http://localhost:4000")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USER", "tochigi")
	v.SetDefault("DB_NAME", "tochigi")

	v.SetDefault("CACHE_HOST", "localhost")
	v.SetDefault("CACHE_PORT", 6379)

	v.SetDefault("SESSION_ISSUER", "tochigi-platform")
	v.SetDefault("SESSION_TTL", "24h")

	v.SetDefault("INSTAGRAM_GRAPH_URL", "https://graph.instagram.com")
	v.SetDefault("INSTAGRAM_API_URL", "https://api.instagram.com")

	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("SMTP_SENDER", "noreply@tochigi-platform.com")

	v.SetDefault("CONTENT_SYNC_INTERVAL", "24h")
	v.SetDefault("CONTENT_SYNC_DELAY", "1s")
	v.SetDefault("SCHEDULED_POST_INTERVAL", "1m")
	v.SetDefault("TOKEN_REFRESH_INTERVAL", "24h")

	v.SetDefault("S3_MIRROR_ENABLED", false)
	v.SetDefault("S3_REGION", "ap-northeast-1")

	v.SetDefault("METRICS_USER", "admin")

	v.SetDefault("RATE_LIMIT_MAX", 120)
	v.SetDefault("RATE_LIMIT_EXPIRATION", "1m")
}

func (c *Config) validate() error {
	if c.App.IsProd() && c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required in production")
	}
	if c.App.IsProd() && c.Cron.Secret == "" {
		return fmt.Errorf("CRON_SECRET is required in production")
	}
	if c.Media.Enabled && (c.Media.BucketName == "" || c.Media.AccessKeyID == "" || c.Media.SecretAccessKey == "") {
		return fmt.Errorf("S3_BUCKET_NAME, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required when S3_MIRROR_ENABLED is set")
	}
	return nil
}
