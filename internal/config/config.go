package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvProduction = "production"

type Config struct {
	Env  string `envconfig:"APP_ENV"`
	Port string `envconfig:"API_PORT" default:"8080"`

	// Database
	MongoURI      string `envconfig:"MONGO_URI" required:"true"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"natours"`

	// JWT
	JWTSecret              string        `envconfig:"JWT_SECRET" required:"true"`
	JWTExpiresIn           time.Duration `envconfig:"JWT_EXPIRES_IN" default:"2160h"`
	JWTCookieExpiresInDays int           `envconfig:"JWT_COOKIE_EXPIRES_IN" default:"90"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:8080"`

	// Optional infrastructure; empty means "use the in-process fallback".
	RedisURL       string `envconfig:"REDIS_URL"`
	RabbitURL      string `envconfig:"RABBIT_URL"`
	EventsExchange string `envconfig:"EVENTS_EXCHANGE" default:"tours.events"`
	WorkerQueue    string `envconfig:"WORKER_QUEUE" default:"tours.worker.q"`

	// Stripe
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	StripeCurrency      string `envconfig:"STRIPE_CURRENCY" default:"usd"`

	// Email
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	EmailFrom    string `envconfig:"EMAIL_FROM" default:"Natours <hello@natours.io>"`

	// Images
	StaticDir          string `envconfig:"STATIC_DIR" default:"public"`
	ImageDir           string `envconfig:"IMAGE_DIR" default:"public/img"`
	PhotoFormat        string `envconfig:"PHOTO_FORMAT" default:"jpeg"`
	S3Bucket           string `envconfig:"S3_BUCKET"`
	S3Region           string `envconfig:"S3_REGION" default:"us-east-1"`
	AWSAccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`

	// Request guards
	RateLimitMax    int           `envconfig:"RATE_LIMIT_MAX" default:"100"`
	RateLimitWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1h"`
	BodyLimitBytes  int64         `envconfig:"BODY_LIMIT_BYTES" default:"10240"`
}

func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &c, nil
}

// IsProduction reports whether APP_ENV selects production. An unset or
// unknown value is treated as development.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%s", c.Port)
}

// CookieTTL is the lifetime of the session cookie.
func (c *Config) CookieTTL() time.Duration {
	return time.Duration(c.JWTCookieExpiresInDays) * 24 * time.Hour
}
