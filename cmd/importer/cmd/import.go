package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledger-import-service/cmd/importer/config"
	"ledger-import-service/internal/ledger"
	"ledger-import-service/internal/models"
	"ledger-import-service/internal/parsers"
	"ledger-import-service/internal/reconciler"
	"ledger-import-service/internal/reporter"
	"ledger-import-service/pkg/errors"
	"ledger-import-service/pkg/logger"
)

var dedupe bool

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Normalize statement files into canonical transactions",
	Long: `Import reads statement exports, detects their format and turns every row
into canonical ledger transactions. Files are processed in the order given;
row identifiers depend on that order.

Formats:
  - tab-delimited files (.tsv, .txt or a tab in the header) are wallet exports
  - comma files whose name starts with a card prefix (default CSV_CC) are card statements
  - all other comma files are bank statements

With a ledger configured, bank and wallet identifiers are resolved through the
ledger's account directory. --dedupe also drops rows whose natural key was
imported before. With --strict the command exits with an error after the
report when rows were skipped or the batch has invalid rows.

Examples:
  ledger-import import wallet.tsv CSV_A_2025.csv
  ledger-import import --date 2025-02-01 --output-format json CSV_CC_jan.csv
  LEDGER_IMPORT_LEDGER_DSN=postgres://ledger@localhost/books ledger-import import --dedupe wallet.tsv`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: validateImportArgs,
	RunE:    runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&dedupe, "dedupe", false, "drop rows already present in the ledger (requires --dsn)")
	importCmd.Flags().String("date", "", "processing date used in transaction numbers (YYYY-MM-DD, default today)")
	importCmd.Flags().Int("max-concurrency", 4, "maximum number of files read at once")
	importCmd.Flags().Bool("strict", false, "fail when rows were skipped or the batch has invalid rows")

	viper.BindPFlag("processing_date", importCmd.Flags().Lookup("date"))
	viper.BindPFlag("max_concurrency", importCmd.Flags().Lookup("max-concurrency"))
	viper.BindPFlag("strict", importCmd.Flags().Lookup("strict"))
}

func validateImportArgs(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		if err := validateFileExists(path); err != nil {
			return err
		}
	}
	return nil
}

func validateFileExists(path string) error {
	if path == "" {
		return errors.FileError(errors.CodeFileNotFound, path, nil)
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.FileError(errors.CodeFileNotFound, path, err)
	}
	if os.IsPermission(err) {
		return errors.FileError(errors.CodeFilePermission, path, err)
	}
	if err != nil {
		return errors.FileError(errors.CodeFileCorrupted, path, err)
	}

	if info.IsDir() {
		return errors.FileError(errors.CodeFileCorrupted, path, nil).
			WithSuggestion("Pass statement files, not directories")
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	settings, log, err := loadSettings()
	if err != nil {
		return err
	}
	if dedupe && !settings.HasLedger() {
		return errors.ConfigurationError(errors.CodeMissingConfig, "ledger.dsn", "", nil).
			WithSuggestion("Pass --dsn or set LEDGER_IMPORT_LEDGER_DSN to check for duplicates")
	}

	ctx := commandContext(cmd)
	var deps importDeps
	if settings.HasLedger() {
		store, err := openStore(ctx, settings, log)
		if err != nil {
			return err
		}
		defer store.Close()
		deps.directory = store
		if dedupe {
			deps.keys = store
		}
	}

	return importFiles(ctx, settings, args, deps, log, cmd.OutOrStdout())
}

// importDeps are the ledger collaborators of an import. A nil directory
// means no account lookups; a nil keys skips the duplicate filter.
type importDeps struct {
	directory ledger.AccountDirectory
	keys      ledger.KeyLookup
}

func importFiles(ctx context.Context, settings *config.Settings, paths []string, deps importDeps, log logger.Logger, out io.Writer) error {
	today, err := settings.Today(time.Now())
	if err != nil {
		return err
	}

	files, err := parsers.ReadSourceFiles(ctx, paths, settings.MaxConcurrency)
	if err != nil {
		return errors.WrapIfNeeded(err, errors.CategoryFile, errors.CodeFileCorrupted, "failed to read statement files")
	}

	var accounts models.AccountIndex
	if deps.directory != nil {
		accounts, err = loadAccountIndex(ctx, deps.directory, log)
		if err != nil {
			return err
		}
	}

	normalizer := parsers.NewNormalizer(today, accounts).WithLogger(log)
	batch, err := parsers.NewAssembler(settings.ProfileSet(), normalizer).WithLogger(log).Assemble(files)
	if err != nil {
		return err
	}

	var dup *models.DuplicateCheckResult
	if deps.keys != nil {
		filter, err := reconciler.NewDuplicateFilter(deps.keys)
		if err != nil {
			return err
		}
		dup, err = filter.WithLogger(log).Filter(ctx, batch.Transactions)
		if err != nil {
			return err
		}
	}

	summary := batch.IssueSummary()
	log.WithFields(logger.Fields{
		"batch_id":     batch.ID.String(),
		"files":        len(batch.Files),
		"transactions": len(batch.Transactions),
		"issues":       summary.Total,
	}).Info("Import completed")
	if summary.HasCategory(errors.CategoryValidation) {
		log.WithField("batch_id", batch.ID.String()).
			Warn("Working set has rows without exactly one leg or with repeated IDs")
	}

	generator, err := reporter.NewSafeReportGenerator(settings.ReportConfig(), log)
	if err != nil {
		return err
	}
	if err := generator.Generate(reporter.NewImportReport(batch, dup, today), out); err != nil {
		return err
	}

	if settings.Strict && summary.Total > 0 {
		return summary
	}
	return nil
}

// loadAccountIndex fetches the account directory of every administration
func loadAccountIndex(ctx context.Context, directory ledger.AccountDirectory, log logger.Logger) (models.AccountIndex, error) {
	var entries []models.AccountDirectoryEntry
	err := logger.TimedOperation("account directory load", log, func() error {
		var lookupErr error
		entries, lookupErr = directory.Accounts(ctx, "")
		return lookupErr
	})
	if err != nil {
		return nil, errors.CollaboratorError(errors.CodeLookupFailed, "account directory load", err)
	}
	return models.NewAccountIndex(entries), nil
}

func openStore(ctx context.Context, settings *config.Settings, log logger.Logger) (*ledger.Store, error) {
	store, err := ledger.NewStore(ctx, settings.Ledger)
	if err != nil {
		return nil, errors.CollaboratorError(errors.CodeConnectionFailed, "ledger connect", err).
			WithSuggestion("Check --dsn or LEDGER_IMPORT_LEDGER_DSN and that the database is reachable")
	}
	return store.WithLogger(log), nil
}
