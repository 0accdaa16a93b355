// Package reconciler checks an imported working set against the ledger:
// DuplicateFilter drops rows whose natural key was imported before and
// SequenceAuditor reports breaks in an account's sequence numbering.
//
// Neither service retries a failed ledger call or applies partial results.
package reconciler

import (
	"context"

	"ledger-import-service/internal/ledger"
	"ledger-import-service/internal/models"
	"ledger-import-service/pkg/errors"
	"ledger-import-service/pkg/logger"
)

// DuplicateFilter removes rows whose Ref2 already exists in the ledger under
// the batch scope.
type DuplicateFilter struct {
	lookup ledger.KeyLookup
	logger logger.Logger
}

// NewDuplicateFilter creates a new DuplicateFilter
func NewDuplicateFilter(lookup ledger.KeyLookup) (*DuplicateFilter, error) {
	if lookup == nil {
		return nil, errors.ValidationError(
			errors.CodeMissingField,
			"key_lookup",
			nil,
			nil,
		).WithSuggestion("Provide a ledger key lookup")
	}

	return &DuplicateFilter{
		lookup: lookup,
		logger: logger.GetGlobalLogger().WithComponent("duplicate_filter"),
	}, nil
}

// WithLogger replaces the filter's logger
func (f *DuplicateFilter) WithLogger(l logger.Logger) *DuplicateFilter {
	f.logger = l.WithComponent("duplicate_filter")
	return f
}

// Filter returns the working set without rows already in the ledger. The
// scope is the first row's Ref1 and the keys are all non-empty Ref2 values;
// without a scope or keys the ledger is not asked and nothing is removed.
// The input slice is never modified.
func (f *DuplicateFilter) Filter(ctx context.Context, working []models.CanonicalTransaction) (*models.DuplicateCheckResult, error) {
	result := &models.DuplicateCheckResult{
		Existing:     map[string]bool{},
		Transactions: models.Clone(working),
	}
	if result.Transactions == nil {
		result.Transactions = []models.CanonicalTransaction{}
	}

	if len(working) == 0 {
		return result, nil
	}

	result.Scope = working[0].Ref1
	keys := naturalKeys(working)
	if result.Scope == "" || len(keys) == 0 {
		f.logger.WithFields(logger.Fields{
			"scope": result.Scope,
			"keys":  len(keys),
		}).Debug("No scope or keys, skipping duplicate check")
		return result, nil
	}

	var existing []string
	err := logger.TimedOperation("duplicate check", f.logger.WithField("scope", result.Scope), func() error {
		var lookupErr error
		existing, lookupErr = f.lookup.ExistingKeys(ctx, result.Scope, keys)
		return lookupErr
	})
	if err != nil {
		return nil, errors.CollaboratorError(errors.CodeLookupFailed, "duplicate check", err).
			WithContext("scope", result.Scope).
			WithContext("keys", len(keys))
	}

	for _, k := range existing {
		result.Existing[k] = true
	}

	kept := make([]models.CanonicalTransaction, 0, len(working))
	for _, tx := range working {
		if tx.Ref2 != "" && result.Existing[tx.Ref2] {
			result.Removed++
			continue
		}
		kept = append(kept, tx)
	}
	result.Transactions = kept

	f.logger.WithFields(logger.Fields{
		"scope":   result.Scope,
		"checked": len(keys),
		"removed": result.Removed,
	}).Info("Duplicate check completed")

	return result, nil
}

// naturalKeys returns the distinct non-empty Ref2 values in working order
func naturalKeys(working []models.CanonicalTransaction) []string {
	seen := make(map[string]bool, len(working))
	keys := make([]string, 0, len(working))
	for _, tx := range working {
		if tx.Ref2 == "" || seen[tx.Ref2] {
			continue
		}
		seen[tx.Ref2] = true
		keys = append(keys, tx.Ref2)
	}
	return keys
}
