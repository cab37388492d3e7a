package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpersFallBackOnInvalidValues(t *testing.T) {
	t.Setenv("CARDSHOW_TEST_INT", "not-a-number")
	t.Setenv("CARDSHOW_TEST_BOOL", "maybe")
	t.Setenv("CARDSHOW_TEST_DURATION", "soon")

	assert.Equal(t, 42, envInt("CARDSHOW_TEST_INT", 42))
	assert.True(t, envBool("CARDSHOW_TEST_BOOL", true))
	assert.Equal(t, time.Minute, envDuration("CARDSHOW_TEST_DURATION", time.Minute))
}

func TestEnvListTrimsAndSkipsBlanks(t *testing.T) {
	t.Setenv("CARDSHOW_TEST_LIST", " https://a.example , ,https://b.example")

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, envList("CARDSHOW_TEST_LIST", nil))
	assert.Equal(t, []string{"x"}, envList("CARDSHOW_TEST_LIST_UNSET", []string{"x"}))
}

func TestSanitizedDropsSecrets(t *testing.T) {
	cfg := &Config{
		AppName:             "Cardshow",
		JWTSecret:           "secret",
		StripeSecretKey:     "sk_test",
		OpenAIAPIKey:        "sk-openai",
		S3SecretKey:         "s3",
		MarketplaceFeeBPS:   500,
		MarketplaceCurrency: "usd",
	}

	safe := cfg.Sanitized()

	assert.Equal(t, "Cardshow", safe.AppName)
	assert.Equal(t, 500, safe.MarketplaceFeeBPS)
	assert.Empty(t, safe.JWTSecret)
	assert.Empty(t, safe.StripeSecretKey)
	assert.Empty(t, safe.OpenAIAPIKey)
	assert.Empty(t, safe.S3SecretKey)
}

func TestDatabaseReadsDriverAndConnection(t *testing.T) {
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("DB_CONNECTION", "postgres://cardshow@localhost/cardshow")

	driver, conn := Database()

	assert.Equal(t, "pgx", driver)
	assert.Equal(t, "postgres://cardshow@localhost/cardshow", conn)
}
