package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.App.IsDev())
	assert.Equal(t, "0.0.0.0:4000", cfg.App.Addr())
	assert.Equal(t, time.Second, cfg.Cron.SyncDelay)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "https://graph.instagram.com", cfg.Instagram.GraphBaseURL)
	assert.Equal(t, "noreply@tochigi-platform.com", cfg.Mail.Sender)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_URL", "https://tochigi.example.com/")
	t.Setenv("STRIPE_PRICE_PLATFORM_FULL", "price_full")
	t.Setenv("CONTENT_SYNC_DELAY", "250ms")
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_PASSWORD", "p")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "tochigi_db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://tochigi.example.com", cfg.App.PublicURL)
	assert.Equal(t, "price_full", cfg.Stripe.PricePlatformFull)
	assert.Equal(t, 250*time.Millisecond, cfg.Cron.SyncDelay)
	assert.Equal(t, "u:p@tcp(db:3306)/tochigi_db?charset=utf8mb4&parseTime=True&loc=Local", cfg.DB.DSN())
	assert.Equal(t, "mysql://u:p@tcp(db:3306)/tochigi_db?multiStatements=true", cfg.DB.MigrateURL())
}

func TestLoadRequiresSessionSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresCronSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("CRON_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}
