// Package config loads the importer settings from viper. Every key has a
// default registered by SetDefaults, so a config file and LEDGER_IMPORT_*
// environment variables only need to carry overrides.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"ledger-import-service/internal/ledger"
	"ledger-import-service/internal/models"
	"ledger-import-service/internal/parsers"
	"ledger-import-service/internal/reporter"
	"ledger-import-service/pkg/errors"
	"ledger-import-service/pkg/logger"
)

// EnvPrefix is the prefix of environment variable overrides
const EnvPrefix = "LEDGER_IMPORT"

// Settings is the complete importer configuration
type Settings struct {
	// ProcessingDate overrides today's date in transaction numbers (YYYY-MM-DD)
	ProcessingDate string             `mapstructure:"processing_date"`
	MaxConcurrency int                `mapstructure:"max_concurrency"`
	// Strict makes an import fail when the batch has parse or validation issues
	Strict         bool               `mapstructure:"strict"`
	Output         OutputSettings     `mapstructure:"output"`
	Logging        logger.Config      `mapstructure:"logging"`
	Ledger         ledger.StoreConfig `mapstructure:"ledger"`
	Profiles       ProfileSettings    `mapstructure:"profiles"`
}

// OutputSettings controls report rendering
type OutputSettings struct {
	Format              string `mapstructure:"format"`
	Colors              bool   `mapstructure:"colors"`
	IncludeTransactions bool   `mapstructure:"include_transactions"`
	MaxListItems        int    `mapstructure:"max_list_items"`
}

// ProfileSettings holds the configurable parts of the statement formats
type ProfileSettings struct {
	Wallet WalletSettings `mapstructure:"wallet"`
	Card   CardSettings   `mapstructure:"card"`
	Bank   BankSettings   `mapstructure:"bank"`
}

type WalletSettings struct {
	Identifier            string `mapstructure:"identifier"`
	DefaultAccount        string `mapstructure:"default_account"`
	DefaultAdministration string `mapstructure:"default_administration"`
	SplitFees             bool   `mapstructure:"split_fees"`
}

type CardSettings struct {
	FilePrefixes          []string `mapstructure:"file_prefixes"`
	ExpenseAccount        string   `mapstructure:"expense_account"`
	CreditAccount         string   `mapstructure:"credit_account"`
	SettlementAccount     string   `mapstructure:"settlement_account"`
	PrimaryIdentifier     string   `mapstructure:"primary_identifier"`
	PrimaryAdministration string   `mapstructure:"primary_administration"`
	DefaultAdministration string   `mapstructure:"default_administration"`
}

type BankSettings struct {
	DefaultAccount        string `mapstructure:"default_account"`
	DefaultAdministration string `mapstructure:"default_administration"`
}

// SetDefaults registers the default of every setting on v
func SetDefaults(v *viper.Viper) {
	wallet := parsers.DefaultWalletProfile()
	card := parsers.DefaultCardProfile()
	bank := parsers.DefaultBankProfile()
	store := ledger.DefaultStoreConfig()
	log := logger.DefaultConfig()
	report := reporter.DefaultReportConfig()

	v.SetDefault("processing_date", "")
	v.SetDefault("max_concurrency", 4)
	v.SetDefault("strict", false)

	v.SetDefault("output.format", string(report.Format))
	v.SetDefault("output.colors", report.UseColors)
	v.SetDefault("output.include_transactions", report.IncludeTransactions)
	v.SetDefault("output.max_list_items", report.MaxListItems)

	v.SetDefault("logging.level", string(log.Level))
	v.SetDefault("logging.format", string(log.Format))
	v.SetDefault("logging.output", string(log.Output))
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.disable_timestamp", false)
	v.SetDefault("logging.caller_info", false)

	v.SetDefault("ledger.dsn", "")
	v.SetDefault("ledger.transactions_table", store.TransactionsTable)
	v.SetDefault("ledger.accounts_table", store.AccountsTable)
	v.SetDefault("ledger.max_conns", store.MaxConns)

	v.SetDefault("profiles.wallet.identifier", wallet.WalletIdentifier)
	v.SetDefault("profiles.wallet.default_account", wallet.DefaultAccount)
	v.SetDefault("profiles.wallet.default_administration", wallet.DefaultAdministration)
	v.SetDefault("profiles.wallet.split_fees", wallet.SplitFees)

	v.SetDefault("profiles.card.file_prefixes", card.FilePrefixes)
	v.SetDefault("profiles.card.expense_account", card.ExpenseAccount)
	v.SetDefault("profiles.card.credit_account", card.CreditAccount)
	v.SetDefault("profiles.card.settlement_account", card.SettlementAccount)
	v.SetDefault("profiles.card.primary_identifier", card.PrimaryIdentifier)
	v.SetDefault("profiles.card.primary_administration", card.PrimaryAdministration)
	v.SetDefault("profiles.card.default_administration", card.DefaultAdministration)

	v.SetDefault("profiles.bank.default_account", bank.DefaultAccount)
	v.SetDefault("profiles.bank.default_administration", bank.DefaultAdministration)
}

// ConfigureEnv makes v read LEDGER_IMPORT_* variables, with "." in keys
// replaced by "_" (LEDGER_IMPORT_LEDGER_DSN sets ledger.dsn)
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load unmarshals and validates the settings held by v
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "settings", nil, err).
			WithSuggestion("Check the types of the values in the config file")
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every setting and returns the first problem as a
// configuration error
func (s *Settings) Validate() error {
	if s.MaxConcurrency < 1 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "max_concurrency", s.MaxConcurrency, nil).
			WithSuggestion("Use at least 1")
	}

	if _, err := s.Today(time.Now()); err != nil {
		return err
	}

	if err := s.ReportConfig().Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "output.format", s.Output.Format, err).
			WithSuggestion("Valid formats: console, json")
	}

	if err := s.Logging.Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "logging", s.Logging, err)
	}

	if s.Ledger.MaxConns < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "ledger.max_conns", s.Ledger.MaxConns, nil)
	}

	if err := s.ProfileSet().Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "profiles", nil, err)
	}

	return nil
}

// Today returns the processing date: the configured override, or the UTC
// calendar date of now
func (s *Settings) Today(now time.Time) (time.Time, error) {
	if strings.TrimSpace(s.ProcessingDate) == "" {
		now = now.UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	d, err := models.ParseDate(s.ProcessingDate)
	if err != nil {
		return time.Time{}, errors.ConfigurationError(errors.CodeInvalidConfig, "processing_date", s.ProcessingDate, err).
			WithSuggestion("Use the YYYY-MM-DD format")
	}
	return d, nil
}

// HasLedger reports whether a ledger connection is configured
func (s *Settings) HasLedger() bool {
	return strings.TrimSpace(s.Ledger.DSN) != ""
}

// ProfileSet builds the statement profiles, starting from the built-in ones
func (s *Settings) ProfileSet() *parsers.ProfileSet {
	ps := parsers.DefaultProfileSet()

	ps.Wallet.WalletIdentifier = s.Profiles.Wallet.Identifier
	ps.Wallet.DefaultAccount = s.Profiles.Wallet.DefaultAccount
	ps.Wallet.DefaultAdministration = s.Profiles.Wallet.DefaultAdministration
	ps.Wallet.SplitFees = s.Profiles.Wallet.SplitFees

	ps.Card.FilePrefixes = s.Profiles.Card.FilePrefixes
	ps.Card.ExpenseAccount = s.Profiles.Card.ExpenseAccount
	ps.Card.CreditAccount = s.Profiles.Card.CreditAccount
	ps.Card.SettlementAccount = s.Profiles.Card.SettlementAccount
	ps.Card.PrimaryIdentifier = s.Profiles.Card.PrimaryIdentifier
	ps.Card.PrimaryAdministration = s.Profiles.Card.PrimaryAdministration
	ps.Card.DefaultAdministration = s.Profiles.Card.DefaultAdministration

	ps.Bank.DefaultAccount = s.Profiles.Bank.DefaultAccount
	ps.Bank.DefaultAdministration = s.Profiles.Bank.DefaultAdministration

	return ps
}

// ReportConfig builds the reporter configuration
func (s *Settings) ReportConfig() *reporter.ReportConfig {
	cfg := reporter.DefaultReportConfig()
	cfg.Format = reporter.OutputFormat(strings.ToLower(s.Output.Format))
	cfg.UseColors = s.Output.Colors
	cfg.IncludeTransactions = s.Output.IncludeTransactions
	cfg.MaxListItems = s.Output.MaxListItems
	return cfg
}
