package cmd

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ledger-import-service/cmd/importer/config"
	"ledger-import-service/internal/ledger"
	"ledger-import-service/internal/models"
	"ledger-import-service/internal/reconciler"
	"ledger-import-service/internal/reporter"
	"ledger-import-service/pkg/errors"
	"ledger-import-service/pkg/logger"
)

var (
	auditAccount        string
	auditAdministration string
	auditSince          string
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Report gaps in an account's sequence numbers",
	Long: `Audit reads the numeric sequence numbers of an account's ledger rows since
a date, in ascending order, and reports every place where a number is missing
or repeated. The ledger is never modified.

Examples:
  ledger-import audit --account 1002 --since 2025-01-01
  ledger-import audit --account 1002 --administration Household --since 2025-01-01 --output-format json`,
	PreRunE: validateAuditFlags,
	RunE:    runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVarP(&auditAccount, "account", "a", "", "ledger account code to audit (required)")
	auditCmd.Flags().StringVar(&auditAdministration, "administration", "", "administration the account belongs to")
	auditCmd.Flags().StringVar(&auditSince, "since", "", "first transaction date to include, YYYY-MM-DD (required)")

	auditCmd.MarkFlagRequired("account")
	auditCmd.MarkFlagRequired("since")
}

func validateAuditFlags(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(auditAccount) == "" {
		return errors.ValidationError(errors.CodeMissingField, "account", auditAccount, nil).
			WithSuggestion("Pass the ledger account code with --account")
	}
	_, err := parseSince(auditSince)
	return err
}

func parseSince(s string) (time.Time, error) {
	since, err := models.ParseDate(s)
	if err != nil {
		return time.Time{}, errors.ValidationError(errors.CodeInvalidFormat, "since", s, err).
			WithSuggestion("Use the YYYY-MM-DD format")
	}
	return since, nil
}

func runAudit(cmd *cobra.Command, args []string) error {
	settings, log, err := loadSettings()
	if err != nil {
		return err
	}
	if !settings.HasLedger() {
		return errors.ConfigurationError(errors.CodeMissingConfig, "ledger.dsn", "", nil).
			WithSuggestion("Pass --dsn or set LEDGER_IMPORT_LEDGER_DSN to audit the ledger")
	}

	since, err := parseSince(auditSince)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	store, err := openStore(ctx, settings, log)
	if err != nil {
		return err
	}
	defer store.Close()

	return auditSequence(ctx, settings, store, auditAccount, auditAdministration, since, log, cmd.OutOrStdout())
}

func auditSequence(ctx context.Context, settings *config.Settings, lookup ledger.SequenceLookup, account, administration string, since time.Time, log logger.Logger, out io.Writer) error {
	auditor, err := reconciler.NewSequenceAuditor(lookup)
	if err != nil {
		return err
	}

	report, err := auditor.WithLogger(log).Audit(ctx, account, administration, since)
	if err != nil {
		return err
	}
	if report.HasGaps() {
		log.WithFields(logger.Fields{
			"account": account,
			"gaps":    len(report.Gaps),
		}).Warn("Sequence gaps found")
	}

	generator, err := reporter.NewSafeReportGenerator(settings.ReportConfig(), log)
	if err != nil {
		return err
	}
	return generator.Generate(report, out)
}
