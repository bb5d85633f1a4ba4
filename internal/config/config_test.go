package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("POKER_RUN_MAX_LIMIT", "")
	t.Setenv("ROW_STORE", "")
	t.Setenv("GOOGLE_SHEET_NAME", "")
	t.Setenv("BREVO_SMTP_PORT", "")
	t.Setenv("EMAIL_FROM_NAME", "")
	t.Setenv("KAFKA_ENABLED", "")

	cfg := Load()

	assert.Equal(t, ":4242", cfg.Server.Addr())
	assert.Equal(t, 100, cfg.Event.PokerRunLimit)
	assert.Equal(t, int64(30), cfg.Event.BaseFee)
	assert.Equal(t, int64(5), cfg.Event.PokerRunFee)
	assert.Equal(t, "America/Los_Angeles", cfg.Event.Timezone)
	assert.Equal(t, "cad", cfg.Stripe.Currency)
	assert.Equal(t, "sheets", cfg.RowStore.Driver)
	assert.Equal(t, "Sheet1", cfg.RowStore.SheetName)
	assert.Equal(t, "smtp-relay.brevo.com", cfg.Email.Brevo.Host)
	assert.Equal(t, 587, cfg.Email.Brevo.Port)
	assert.Equal(t, "Seaside Cruizers Car Show", cfg.Email.FromName)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestPokerRunLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 100},
		{"75", 75},
		{" 120 ", 120},
		{"0", 100},
		{"-5", 100},
		{"lots", 100},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, PokerRunLimit(tc.raw), "raw %q", tc.raw)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", ":9000")
	t.Setenv("POKER_RUN_MAX_LIMIT", "50")
	t.Setenv("ROW_STORE", "SQLite")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.Server.Addr())
	assert.Equal(t, 50, cfg.Event.PokerRunLimit)
	assert.Equal(t, "sqlite", cfg.RowStore.Driver)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestSheetsConfigured(t *testing.T) {
	assert.False(t, RowStoreConfig{}.SheetsConfigured())
	assert.False(t, RowStoreConfig{SpreadsheetID: "id"}.SheetsConfigured())
	assert.True(t, RowStoreConfig{SpreadsheetID: "id", KeyFile: "key.json"}.SheetsConfigured())
	assert.True(t, RowStoreConfig{SpreadsheetID: "id", ServiceEmail: "a@b", PrivateKey: "k"}.SheetsConfigured())
}
