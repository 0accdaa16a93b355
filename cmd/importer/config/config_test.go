package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-import-service/internal/parsers"
	"ledger-import-service/internal/reporter"
	"ledger-import-service/pkg/errors"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, 4, s.MaxConcurrency)
	assert.False(t, s.Strict)
	assert.Equal(t, "console", s.Output.Format)
	assert.Equal(t, "ledger_transactions", s.Ledger.TransactionsTable)
	assert.Equal(t, int32(4), s.Ledger.MaxConns)
	assert.False(t, s.HasLedger())

	ps := s.ProfileSet()
	require.NoError(t, ps.Validate())
	assert.Equal(t, parsers.DefaultProfileSet(), ps)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "importer.yaml")
	content := `
processing_date: "2025-02-01"
max_concurrency: 2
output:
  format: json
ledger:
  dsn: postgres://ledger@localhost/books
profiles:
  wallet:
    identifier: NL99WALL0000000001
  card:
    file_prefixes: [CSV_CC, CARD_]
    primary_identifier: NL11RABO0123456789
    primary_administration: Household
  bank:
    default_account: "1010"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	s, err := Load(v)
	require.NoError(t, err)

	today, err := s.Today(time.Now())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), today)
	assert.Equal(t, 2, s.MaxConcurrency)
	assert.True(t, s.HasLedger())
	assert.Equal(t, reporter.FormatJSON, s.ReportConfig().Format)

	ps := s.ProfileSet()
	assert.Equal(t, "NL99WALL0000000001", ps.Wallet.WalletIdentifier)
	assert.Equal(t, "1022", ps.Wallet.DefaultAccount)
	assert.Equal(t, []string{"CSV_CC", "CARD_"}, ps.Card.FilePrefixes)
	assert.Equal(t, "NL11RABO0123456789", ps.Card.PrimaryIdentifier)
	assert.Equal(t, "Household", ps.Card.PrimaryAdministration)
	assert.Equal(t, "1010", ps.Bank.DefaultAccount)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LEDGER_IMPORT_LEDGER_DSN", "postgres://env@localhost/books")
	t.Setenv("LEDGER_IMPORT_MAX_CONCURRENCY", "8")
	t.Setenv("LEDGER_IMPORT_PROFILES_WALLET_SPLIT_FEES", "false")

	v := newViper()
	ConfigureEnv(v)

	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env@localhost/books", s.Ledger.DSN)
	assert.Equal(t, 8, s.MaxConcurrency)
	assert.False(t, s.ProfileSet().Wallet.SplitFees)
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   interface{}
		setting string
	}{
		{name: "zero concurrency", key: "max_concurrency", value: 0, setting: "max_concurrency"},
		{name: "bad processing date", key: "processing_date", value: "sometime in May", setting: "processing_date"},
		{name: "csv output", key: "output.format", value: "csv", setting: "output.format"},
		{name: "negative list size", key: "output.max_list_items", value: -1, setting: "output.format"},
		{name: "unknown log level", key: "logging.level", value: "trace", setting: "logging"},
		{name: "negative pool size", key: "ledger.max_conns", value: -1, setting: "ledger.max_conns"},
		{name: "bank without account", key: "profiles.bank.default_account", value: " ", setting: "profiles"},
		{name: "card without prefixes", key: "profiles.card.file_prefixes", value: []string{}, setting: "profiles"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.value)

			_, err := Load(v)
			require.Error(t, err)

			importErr, ok := errors.AsImportError(err)
			require.True(t, ok)
			assert.Equal(t, errors.CategoryConfiguration, importErr.Category)
			assert.Equal(t, tt.setting, importErr.Context["setting"])
		})
	}
}

func TestToday(t *testing.T) {
	s := &Settings{}
	now := time.Date(2025, 3, 9, 23, 30, 0, 0, time.FixedZone("CET", 3600))

	today, err := s.Today(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), today)

	s.ProcessingDate = "2025-01-31"
	today, err = s.Today(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), today)
}
