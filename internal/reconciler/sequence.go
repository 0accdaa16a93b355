package reconciler

import (
	"context"
	"strings"
	"time"

	"ledger-import-service/internal/ledger"
	"ledger-import-service/internal/models"
	"ledger-import-service/pkg/errors"
	"ledger-import-service/pkg/logger"
)

// SequenceAuditor looks for missing or repeated sequence numbers of an
// account in the ledger. It never writes to the ledger.
type SequenceAuditor struct {
	lookup ledger.SequenceLookup
	logger logger.Logger
}

// NewSequenceAuditor creates a new SequenceAuditor
func NewSequenceAuditor(lookup ledger.SequenceLookup) (*SequenceAuditor, error) {
	if lookup == nil {
		return nil, errors.ValidationError(
			errors.CodeMissingField,
			"sequence_lookup",
			nil,
			nil,
		).WithSuggestion("Provide a ledger sequence lookup")
	}

	return &SequenceAuditor{
		lookup: lookup,
		logger: logger.GetGlobalLogger().WithComponent("sequence_auditor"),
	}, nil
}

// WithLogger replaces the auditor's logger
func (a *SequenceAuditor) WithLogger(l logger.Logger) *SequenceAuditor {
	a.logger = l.WithComponent("sequence_auditor")
	return a
}

// Audit fetches the sequence of account since the given date and reports
// every place where consecutive numbers do not differ by exactly one.
func (a *SequenceAuditor) Audit(ctx context.Context, account, administration string, since time.Time) (*models.SequenceReport, error) {
	if strings.TrimSpace(account) == "" {
		return nil, errors.ValidationError(errors.CodeMissingField, "account", account, nil)
	}

	log := a.logger.WithFields(logger.Fields{
		"account":        account,
		"administration": administration,
		"since":          since.Format(models.DateLayout),
	})

	var entries []models.SequenceEntry
	err := logger.TimedOperation("sequence query", log, func() error {
		var lookupErr error
		entries, lookupErr = a.lookup.SequenceSince(ctx, account, administration, since)
		return lookupErr
	})
	if err != nil {
		return nil, errors.CollaboratorError(errors.CodeLookupFailed, "sequence audit", err).
			WithContext("account", account).
			WithContext("administration", administration)
	}

	report := FindGaps(entries)
	report.Account = account
	report.Administration = administration
	report.Since = since

	log.WithFields(logger.Fields{
		"first": report.First,
		"last":  report.Last,
		"count": report.Count,
		"gaps":  len(report.Gaps),
	}).Info("Sequence audit completed")

	return report, nil
}

// FindGaps walks entries in the given order. A gap records the number that
// was expected after the previous entry, the number found, their signed
// difference and the date and description of the entry where the break was
// seen.
func FindGaps(entries []models.SequenceEntry) *models.SequenceReport {
	report := &models.SequenceReport{
		Count: len(entries),
		Gaps:  []models.SequenceGap{},
	}
	if len(entries) == 0 {
		return report
	}

	report.First = entries[0].Number
	report.Last = entries[len(entries)-1].Number

	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if cur.Number-prev.Number == 1 {
			continue
		}
		expected := prev.Number + 1
		report.Gaps = append(report.Gaps, models.SequenceGap{
			Expected:    expected,
			Found:       cur.Number,
			Gap:         cur.Number - expected,
			Date:        cur.Date,
			Description: cur.Description,
		})
	}

	return report
}
