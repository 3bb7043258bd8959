package config

import (
	"errors"
	"strings"
	"time"
)

const EnvProduction = "production"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite:storefront.db"`

	// requests per second per client on POST /api/checkout
	CheckoutRateLimit float64 `env:"CHECKOUT_RATE_LIMIT" envDefault:"10"`

	Payment Payment `envPrefix:"PAYMENT_"`
	Owner   Owner   `envPrefix:"OWNER_"`
	Kafka   Kafka   `envPrefix:"KAFKA_"`
	Outbox  Outbox  `envPrefix:"OUTBOX_"`
	Sweep   Sweep   `envPrefix:"SWEEP_"`
}

type Payment struct {
	BaseApiURL         string        `env:"BASE_API_URL" envDefault:"https://api.stripe.com"`
	SecretKey          string        `env:"SECRET_KEY"`
	WebhookSecret      string        `env:"WEBHOOK_SECRET"`
	Currency           string        `env:"CURRENCY" envDefault:"usd"`
	Timeout            time.Duration `env:"TIMEOUT" envDefault:"10s"`
	SignatureTolerance time.Duration `env:"SIGNATURE_TOLERANCE" envDefault:"5m"`

	// Only for local testing: accept webhook deliveries that carry no signature header.
	AllowUnsignedWebhooks bool `env:"ALLOW_UNSIGNED_WEBHOOKS" envDefault:"false"`
}

type Owner struct {
	TokenSecret string        `env:"TOKEN_SECRET"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"720h"`
	CookieName  string        `env:"COOKIE_NAME" envDefault:"owner_token"`

	// Only behind an authenticating proxy that strips X-User-Id from client requests.
	TrustUserHeader bool `env:"TRUST_USER_HEADER" envDefault:"false"`
}

type Kafka struct {
	Brokers string `env:"BROKERS"`
	Topic   string `env:"TOPIC" envDefault:"order-fulfillment"`
}

type Outbox struct {
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	BatchSize    int           `env:"BATCH_SIZE" envDefault:"50"`
}

type Sweep struct {
	PendingTTL time.Duration `env:"PENDING_TTL" envDefault:"24h"`

	// 0 disables the in-process sweeper
	Interval time.Duration `env:"INTERVAL" envDefault:"1h"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

func (c *Config) IsProduction() bool {
	return c.Environment.Name == EnvProduction
}

// KafkaBrokers splits the comma separated broker list, dropping blanks.
func (c *Config) KafkaBrokers() []string {
	brokers := []string{}
	for _, b := range strings.Split(c.Kafka.Brokers, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (c *Config) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, errors.New("BASE_URL is required"))
	}
	if c.Owner.TokenSecret == "" {
		errs = append(errs, errors.New("OWNER_TOKEN_SECRET is required"))
	}
	if c.Sweep.PendingTTL <= c.Payment.Timeout {
		errs = append(errs, errors.New("SWEEP_PENDING_TTL must be longer than PAYMENT_TIMEOUT"))
	}
	if c.IsProduction() {
		if c.Payment.AllowUnsignedWebhooks {
			errs = append(errs, errors.New("PAYMENT_ALLOW_UNSIGNED_WEBHOOKS must not be enabled in production"))
		}
		if c.Payment.WebhookSecret == "" {
			errs = append(errs, errors.New("PAYMENT_WEBHOOK_SECRET is required in production"))
		}
	}
	return errors.Join(errs...)
}
