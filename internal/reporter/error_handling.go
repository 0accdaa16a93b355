package reporter

import (
	"fmt"
	"io"
	"os"

	"ledger-import-service/internal/models"
	"ledger-import-service/pkg/errors"
	"ledger-import-service/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with logging, input checks and a
// console fallback when structured output fails
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator with error handling
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report_config",
			config,
			err,
		).WithSuggestion("Check the report configuration values")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// Generate renders an *ImportReport or a *models.SequenceReport
func (srg *SafeReportGenerator) Generate(report interface{}, writer io.Writer) error {
	srg.logger.WithFields(logger.Fields{
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
		"report": fmt.Sprintf("%T", report),
	}).Debug("Starting report generation")

	if err := srg.validateInputs(report, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed: input validation")
		return err
	}

	err := srg.render(srg.ReportGenerator, report, writer)
	if err == nil {
		return nil
	}

	srg.logger.WithError(err).Warn("Primary report generation failed, attempting fallback")
	if srg.config.Format == FormatConsole {
		return srg.wrapGenerationError(err)
	}
	return srg.generateWithFormatFallback(report, writer, err)
}

func (srg *SafeReportGenerator) render(rg *ReportGenerator, report interface{}, writer io.Writer) error {
	switch r := report.(type) {
	case *ImportReport:
		return rg.GenerateImportReport(r, writer)
	case *models.SequenceReport:
		return rg.GenerateAuditReport(r, writer)
	default:
		return errors.ValidationError(
			errors.CodeInvalidFormat,
			"report_type",
			fmt.Sprintf("%T", report),
			nil,
		).WithSuggestion("Provide an import report or a sequence report")
	}
}

func (srg *SafeReportGenerator) validateInputs(report interface{}, writer io.Writer) error {
	if report == nil {
		return errors.ValidationError(
			errors.CodeMissingField,
			"report",
			nil,
			nil,
		).WithSuggestion("Provide a report to render")
	}

	if writer == nil {
		return errors.ValidationError(
			errors.CodeMissingField,
			"writer",
			nil,
			nil,
		).WithSuggestion("Provide a valid output writer")
	}

	switch report.(type) {
	case *ImportReport, *models.SequenceReport:
		return nil
	default:
		return errors.ValidationError(
			errors.CodeInvalidFormat,
			"report_type",
			fmt.Sprintf("%T", report),
			nil,
		).WithSuggestion("Provide an import report or a sequence report")
	}
}

func (srg *SafeReportGenerator) generateWithFormatFallback(report interface{}, writer io.Writer, originalErr error) error {
	fallbackConfig := *srg.config
	fallbackConfig.Format = FormatConsole

	srg.logger.WithField("fallback_format", FormatConsole).Info("Attempting format fallback")

	fallbackGenerator, err := NewReportGenerator(&fallbackConfig)
	if err != nil {
		return srg.wrapGenerationError(originalErr)
	}

	fmt.Fprintf(writer, "NOTE: Report generated in fallback format due to error with requested format\n")
	fmt.Fprintf(writer, "Original error: %v\n\n", originalErr)

	if err := srg.render(fallbackGenerator, report, writer); err != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", originalErr, err),
		)
	}

	srg.logger.Info("Report generated using format fallback")
	return nil
}

func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if importErr, ok := errors.AsImportError(err); ok {
		return importErr
	}

	return errors.InternalError(
		errors.CodeUnexpectedError,
		"report_generation",
		err,
	).WithSuggestion("Check the output destination and report format settings")
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}
