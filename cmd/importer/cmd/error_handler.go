package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"ledger-import-service/pkg/errors"
	"ledger-import-service/pkg/logger"
)

// CLIErrorHandler turns command errors into messages and exit codes
type CLIErrorHandler struct {
	logger  logger.Logger
	out     io.Writer
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler writing to out
func NewCLIErrorHandler(out io.Writer, verbose bool) *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		out:     out,
		verbose: verbose,
	}
}

// HandleError prints err and returns the exit code for it
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Debug("Command failed")

	if summary, ok := err.(*errors.ErrorSummary); ok {
		return h.handleSummary(summary)
	}
	if importErr, ok := errors.AsImportError(err); ok {
		return h.handleImportError(importErr)
	}
	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleImportError(err *errors.ImportError) int {
	fmt.Fprintf(h.out, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		keys := make([]string, 0, len(err.Context))
		for k := range err.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintf(h.out, "\nContext:\n")
		for _, k := range keys {
			fmt.Fprintf(h.out, "  %s: %v\n", k, err.Context[k])
		}
	}

	if err.Cause != nil {
		fmt.Fprintf(h.out, "\nCause: %v\n", err.Cause)
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && len(err.StackTrace) > 0 {
		fmt.Fprintf(h.out, "\nStack trace:%+v\n", err.StackTrace)
	}

	return err.GetExitCode()
}

func (h *CLIErrorHandler) handleSummary(summary *errors.ErrorSummary) int {
	fmt.Fprintf(h.out, "Error: %s\n\n", summary.Error())
	for _, err := range summary.Errors {
		fmt.Fprintf(h.out, "  - [%s] %s\n", err.Code, err.Message)
	}
	fmt.Fprintf(h.out, "\nRun without --strict to accept the batch with these issues.\n")
	return summary.GetExitCode()
}

func (h *CLIErrorHandler) handleGenericError(err error) int {
	if os.IsNotExist(err) {
		fmt.Fprintf(h.out, "Error: File not found\n")
		fmt.Fprintf(h.out, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if os.IsPermission(err) || strings.Contains(err.Error(), "permission denied") {
		fmt.Fprintf(h.out, "Error: Permission denied\n")
		fmt.Fprintf(h.out, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	// cobra argument and flag errors end up here
	fmt.Fprintf(h.out, "Error: %v\n", err)
	fmt.Fprintf(h.out, "Run 'ledger-import --help' for usage.\n")
	return 1
}

func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check if the file exists and is readable
• Verify the file path is correct (use absolute paths if needed)
• Empty statement exports cannot be imported`

	case errors.CategoryParse:
		return `Parse error help:
• Verify the export was saved as comma or tab separated text
• Ensure the file uses UTF-8 encoding
• Use 'ledger-import profiles' to see the expected columns`

	case errors.CategoryValidation:
		return `Validation error help:
• Check that all required flags have values
• Verify dates use YYYY-MM-DD`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Verify configuration file syntax if using --config
• LEDGER_IMPORT_* environment variables override the config file`

	case errors.CategoryCollaborator:
		return `Ledger error help:
• Nothing was changed; the command can be retried
• Check that the ledger database is reachable with the configured DSN`

	case errors.CategoryPrecondition:
		return `Workflow error help:
• The operation is not allowed in the state shown above
• Approve and reject need pending suggestions`

	default:
		return `For more help:
• Use 'ledger-import --help' for general help
• Use 'ledger-import <command> --help' for command-specific help`
	}
}
