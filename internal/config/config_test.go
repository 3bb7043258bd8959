package config_test

import (
	"testing"
	"time"

	"storefront-checkout/internal/config"

	"github.com/caarlos0/env/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("BASE_URL", "http://localhost:8080")
	t.Setenv("OWNER_TOKEN_SECRET", "secret")

	cfg := &config.Config{}
	require.NoError(t, env.Parse(cfg))

	assert.Equal(t, "development", cfg.Environment.Name)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, "https://api.stripe.com", cfg.Payment.BaseApiURL)
	assert.Equal(t, "usd", cfg.Payment.Currency)
	assert.Equal(t, 10*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Payment.SignatureTolerance)
	assert.False(t, cfg.Payment.AllowUnsignedWebhooks)
	assert.False(t, cfg.Owner.TrustUserHeader)
	assert.Equal(t, "owner_token", cfg.Owner.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.Sweep.PendingTTL)
	assert.Equal(t, time.Hour, cfg.Sweep.Interval)
	assert.Empty(t, cfg.KafkaBrokers())
	assert.NoError(t, cfg.Validate())
}

func TestParse_Prefixes(t *testing.T) {
	t.Setenv("PAYMENT_SECRET_KEY", "sk_test_123")
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "whsec_123")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, ,kafka-2:9092")
	t.Setenv("OUTBOX_BATCH_SIZE", "10")

	cfg := &config.Config{}
	require.NoError(t, env.Parse(cfg))

	assert.Equal(t, "sk_test_123", cfg.Payment.SecretKey)
	assert.Equal(t, "whsec_123", cfg.Payment.WebhookSecret)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers())
	assert.Equal(t, 10, cfg.Outbox.BatchSize)
}

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			BaseURL: "https://shop.example.com",
			Owner:   config.Owner{TokenSecret: "secret"},
			Payment: config.Payment{WebhookSecret: "whsec_123", Timeout: 10 * time.Second},
			Sweep:   config.Sweep{PendingTTL: 24 * time.Hour},
		}
	}

	t.Run("missing base url", func(t *testing.T) {
		cfg := base()
		cfg.BaseURL = ""
		assert.ErrorContains(t, cfg.Validate(), "BASE_URL")
	})

	t.Run("unsigned webhooks allowed outside production", func(t *testing.T) {
		cfg := base()
		cfg.Payment.AllowUnsignedWebhooks = true
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unsigned webhooks rejected in production", func(t *testing.T) {
		cfg := base()
		cfg.Environment.Name = config.EnvProduction
		cfg.Payment.AllowUnsignedWebhooks = true
		assert.ErrorContains(t, cfg.Validate(), "ALLOW_UNSIGNED_WEBHOOKS")
	})

	t.Run("production requires webhook secret", func(t *testing.T) {
		cfg := base()
		cfg.Environment.Name = config.EnvProduction
		cfg.Payment.WebhookSecret = ""
		assert.ErrorContains(t, cfg.Validate(), "PAYMENT_WEBHOOK_SECRET")
	})

	t.Run("sweep ttl must outlast payment timeout", func(t *testing.T) {
		for _, ttl := range []time.Duration{0, 5 * time.Second, 10 * time.Second} {
			cfg := base()
			cfg.Sweep.PendingTTL = ttl
			assert.ErrorContains(t, cfg.Validate(), "SWEEP_PENDING_TTL", ttl.String())
		}
	})
}
