// Package reporter renders import and sequence audit results for the
// command line.
//
// Supported output formats:
//   - Console: human-readable sections for terminal display
//   - JSON: structured data for programmatic consumption
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(reporter.DefaultReportConfig())
//	report := reporter.NewImportReport(batch, dupResult, processingDate)
//	err = generator.GenerateImportReport(report, os.Stdout)
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"ledger-import-service/internal/models"
	"ledger-import-service/internal/parsers"
	"ledger-import-service/pkg/errors"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	IncludeTransactions bool `json:"include_transactions"`
	IncludeIssues       bool `json:"include_issues"`

	// Console formatting options
	UseColors    bool `json:"use_colors"`
	MaxListItems int  `json:"max_list_items"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:              FormatConsole,
		IncludeTransactions: true,
		IncludeIssues:       true,
		UseColors:           true,
		MaxListItems:        20,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxListItems < 0 {
		return fmt.Errorf("max list items cannot be negative, got %d", c.MaxListItems)
	}
	return nil
}

// ImportReport is everything the import command tells the user about a batch
type ImportReport struct {
	BatchID        uuid.UUID                     `json:"batch_id"`
	ProcessingDate string                        `json:"processing_date"`
	GeneratedAt    time.Time                     `json:"generated_at"`
	Files          []parsers.FileStats           `json:"files"`
	CountByKind    map[parsers.Kind]int          `json:"count_by_kind"`
	Duplicates     *DuplicateSummary             `json:"duplicates,omitempty"`
	Transactions   []models.CanonicalTransaction `json:"transactions,omitempty"`
	Issues         []*errors.ImportError         `json:"issues,omitempty"`
	IssueCounts    map[errors.ErrorCategory]int  `json:"issue_counts,omitempty"`
}

// DuplicateSummary is the part of a duplicate check shown to the user
type DuplicateSummary struct {
	Scope   string   `json:"scope"`
	Removed int      `json:"removed"`
	Keys    []string `json:"keys"`
}

// NewImportReport builds a report for batch. When dup is not nil the report
// lists the filtered working set instead of the assembled one.
func NewImportReport(batch *parsers.Batch, dup *models.DuplicateCheckResult, processingDate time.Time) *ImportReport {
	report := &ImportReport{
		BatchID:        batch.ID,
		ProcessingDate: processingDate.Format(models.DateLayout),
		GeneratedAt:    time.Now().UTC(),
		Files:          batch.Files,
		CountByKind:    batch.CountByKind(),
		Transactions:   batch.Transactions,
		Issues:         batch.Issues,
		IssueCounts:    batch.IssueSummary().ByCategory,
	}

	if dup != nil {
		keys := dup.ExistingKeys()
		sort.Strings(keys)
		report.Duplicates = &DuplicateSummary{
			Scope:   dup.Scope,
			Removed: dup.Removed,
			Keys:    keys,
		}
		report.Transactions = dup.Transactions
	}

	return report
}

// ReportGenerator renders reports in the configured format
type ReportGenerator struct {
	config *ReportConfig

	heading *color.Color
	good    *color.Color
	warn    *color.Color
	bad     *color.Color
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	rg := &ReportGenerator{
		config:  config,
		heading: color.New(color.FgCyan, color.Bold),
		good:    color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		bad:     color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{rg.heading, rg.good, rg.warn, rg.bad} {
		if config.UseColors {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return rg, nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}

// GenerateImportReport writes an import report to writer
func (rg *ReportGenerator) GenerateImportReport(report *ImportReport, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("import report cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.consoleImport(report, writer)
	case FormatJSON:
		out := *report
		if !rg.config.IncludeTransactions {
			out.Transactions = nil
		}
		if !rg.config.IncludeIssues {
			out.Issues = nil
		}
		return writeJSON(&out, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// GenerateAuditReport writes a sequence audit report to writer
func (rg *ReportGenerator) GenerateAuditReport(report *models.SequenceReport, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("sequence report cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.consoleAudit(report, writer)
	case FormatJSON:
		return writeJSON(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func writeJSON(v interface{}, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (rg *ReportGenerator) consoleImport(report *ImportReport, writer io.Writer) error {
	fmt.Fprintf(writer, "IMPORT REPORT\n")
	fmt.Fprintf(writer, "Batch:           %s\n", report.BatchID)
	fmt.Fprintf(writer, "Processing Date: %s\n", report.ProcessingDate)
	fmt.Fprintf(writer, "Generated:       %s\n\n", report.GeneratedAt.Format(time.RFC3339))

	rg.heading.Fprintf(writer, "=== FILES ===\n")
	for _, f := range report.Files {
		fmt.Fprintf(writer, "%s [%s, %s]\n", f.Name, f.Kind, f.Delimiter)
		fmt.Fprintf(writer, "  Rows:          %d\n", f.Rows)
		fmt.Fprintf(writer, "  Transactions:  %d (first id %d)\n", f.Transactions, f.FirstID)
		if f.Skipped > 0 || f.Suppressed > 0 || f.ZeroAmount > 0 {
			rg.warn.Fprintf(writer, "  Skipped short: %d, suppressed: %d, zero amount: %d\n",
				f.Skipped, f.Suppressed, f.ZeroAmount)
		}
	}
	fmt.Fprintf(writer, "\n")

	rg.heading.Fprintf(writer, "=== SUMMARY ===\n")
	for _, kind := range []parsers.Kind{parsers.KindWallet, parsers.KindCard, parsers.KindBank} {
		if n, ok := report.CountByKind[kind]; ok {
			fmt.Fprintf(writer, "%-8s %d\n", string(kind)+":", n)
		}
	}
	if report.Duplicates != nil {
		line := fmt.Sprintf("Duplicates removed: %d (scope %s)\n", report.Duplicates.Removed, report.Duplicates.Scope)
		if report.Duplicates.Removed > 0 {
			rg.warn.Fprint(writer, line)
		} else {
			rg.good.Fprint(writer, line)
		}
	}
	fmt.Fprintf(writer, "Transactions:       %d\n", len(report.Transactions))
	if line := issueCountLine(report.IssueCounts); line != "" {
		rg.bad.Fprintf(writer, "Issues:             %s\n", line)
	}
	fmt.Fprintf(writer, "\n")

	if rg.config.IncludeTransactions && len(report.Transactions) > 0 {
		rg.heading.Fprintf(writer, "=== TRANSACTIONS ===\n")
		rg.printTransactions(report.Transactions, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeIssues && len(report.Issues) > 0 {
		rg.heading.Fprintf(writer, "=== ISSUES ===\n")
		for _, issue := range report.Issues {
			rg.bad.Fprintf(writer, "  - [%s] %s\n", issue.Code, issue.Message)
		}
	}

	return nil
}

// issueCountLine renders counts as "3 (parse: 2, validation: 1)"
func issueCountLine(counts map[errors.ErrorCategory]int) string {
	total := 0
	parts := make([]string, 0, len(counts))
	for category, n := range counts {
		total += n
		parts = append(parts, fmt.Sprintf("%s: %d", category, n))
	}
	if total == 0 {
		return ""
	}
	sort.Strings(parts)
	return fmt.Sprintf("%d (%s)", total, strings.Join(parts, ", "))
}

func (rg *ReportGenerator) printTransactions(transactions []models.CanonicalTransaction, writer io.Writer) {
	limit := rg.config.MaxListItems
	for i, tx := range transactions {
		if limit > 0 && i >= limit {
			fmt.Fprintf(writer, "  ... and %d more\n", len(transactions)-limit)
			return
		}
		side, account := "D", tx.Debit
		if account == "" {
			side, account = "C", tx.Credit
		}
		fmt.Fprintf(writer, "  %6d  %s  %s %-6s %10s  %s\n",
			tx.ID,
			tx.Date.Format(models.DateLayout),
			side,
			account,
			tx.Amount.StringFixed(2),
			tx.Description)
	}
}

func (rg *ReportGenerator) consoleAudit(report *models.SequenceReport, writer io.Writer) error {
	fmt.Fprintf(writer, "SEQUENCE AUDIT\n")
	fmt.Fprintf(writer, "Account:        %s\n", report.Account)
	fmt.Fprintf(writer, "Administration: %s\n", report.Administration)
	fmt.Fprintf(writer, "Since:          %s\n\n", report.Since.Format(models.DateLayout))

	rg.heading.Fprintf(writer, "=== RANGE ===\n")
	fmt.Fprintf(writer, "First: %d\n", report.First)
	fmt.Fprintf(writer, "Last:  %d\n", report.Last)
	fmt.Fprintf(writer, "Count: %d\n\n", report.Count)

	if !report.HasGaps() {
		rg.good.Fprintf(writer, "No gaps found\n")
		return nil
	}

	rg.heading.Fprintf(writer, "=== GAPS ===\n")
	rg.bad.Fprintf(writer, "Total Gaps Found: %d\n", len(report.Gaps))
	for _, g := range report.Gaps {
		fmt.Fprintf(writer, "  expected %d, found %d (%+d) on %s: %s\n",
			g.Expected, g.Found, g.Gap, g.Date.Format(models.DateLayout), g.Description)
	}
	return nil
}
