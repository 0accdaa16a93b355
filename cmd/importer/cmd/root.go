package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledger-import-service/cmd/importer/config"
	"ledger-import-service/pkg/errors"
	"ledger-import-service/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"

	// configErr holds a config file read failure until a command runs
	configErr error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ledger-import",
	Short: "Statement import tool for the ledger",
	Long: `ledger-import turns wallet, credit card and bank statement exports into
canonical ledger transactions, checks them against previously imported data
and audits the sequence numbering of ledger accounts.

Examples:
  ledger-import import wallet.tsv CSV_CC_2025.csv CSV_A_2025.csv
  ledger-import import --dedupe --dsn postgres://ledger@localhost/books statements/*.csv
  ledger-import audit --account 1002 --administration Household --since 2025-01-01
  ledger-import profiles --output-format json`,
	Version:       getVersionString(),
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	err := rootCmd.Execute()
	return NewCLIErrorHandler(os.Stderr, viper.GetBool("verbose")).HandleError(err)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("dsn", "", "ledger Postgres connection string")
	rootCmd.PersistentFlags().StringP("output-format", "f", "console", "output format: console, json")
	rootCmd.PersistentFlags().Bool("color", true, "colorize console output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("ledger.dsn", rootCmd.PersistentFlags().Lookup("dsn"))
	viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("output-format"))
	viper.BindPFlag("output.colors", rootCmd.PersistentFlags().Lookup("color"))
}

// initConfig reads in config file and ENV variables
func initConfig() {
	v := viper.GetViper()
	config.SetDefaults(v)
	config.ConfigureEnv(v)

	if cfgFile == "" {
		return
	}

	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		configErr = errors.ConfigurationError(errors.CodeInvalidConfig, "config", cfgFile, err).
			WithSuggestion("Check that the config file exists and is valid YAML, JSON or TOML")
		return
	}

	if v.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}
}

// loadSettings validates the merged configuration and installs the logger
// it describes as the global logger
func loadSettings() (*config.Settings, logger.Logger, error) {
	if configErr != nil {
		return nil, nil, configErr
	}

	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	if viper.GetBool("verbose") {
		settings.Logging.Level = logger.DebugLevel
	}

	log, err := logger.NewLogger(&settings.Logging)
	if err != nil {
		return nil, nil, errors.ConfigurationError(errors.CodeInvalidConfig, "logging", settings.Logging, err)
	}
	logger.SetGlobalLogger(log)

	return settings, log.WithComponent("cli"), nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
