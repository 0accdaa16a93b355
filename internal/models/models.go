package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "ledger-import-service/pkg/errors"
)

// DateLayout is the calendar-date layout used in natural keys, transaction
// numbers and JSON output.
const DateLayout = "2006-01-02"

// FeeIDOffset separates a fee row's identifier from its primary row.
const FeeIDOffset = 1000

// Field names one of the ledger fields the suggestion workflow may fill
type Field string

const (
	FieldDebit     Field = "debit"
	FieldCredit    Field = "credit"
	FieldReference Field = "reference"
)

// SuggestableFields lists every Field in a stable order
var SuggestableFields = []Field{FieldDebit, FieldCredit, FieldReference}

// IsValid checks if the field is one of the suggestable fields
func (f Field) IsValid() bool {
	return f == FieldDebit || f == FieldCredit || f == FieldReference
}

// CanonicalTransaction is one ledger leg produced from a statement row
type CanonicalTransaction struct {
	ID                int             `json:"id"`
	TransactionNumber string          `json:"transaction_number"`
	Date              time.Time       `json:"date"`
	Description       string          `json:"description"`
	Amount            decimal.Decimal `json:"amount"`
	Debit             string          `json:"debit"`
	Credit            string          `json:"credit"`
	ReferenceNumber   string          `json:"reference_number"`
	Ref1              string          `json:"ref1"`
	Ref2              string          `json:"ref2"`
	Ref3              string          `json:"ref3"`
	Ref4              string          `json:"ref4"`
	Administration    string          `json:"administration"`
}

// Validate checks the leg invariants: exactly one of debit or credit and a
// non-negative amount.
func (t *CanonicalTransaction) Validate() error {
	hasDebit := strings.TrimSpace(t.Debit) != ""
	hasCredit := strings.TrimSpace(t.Credit) != ""
	if hasDebit == hasCredit {
		return apperrors.ValidationError(apperrors.CodeLegInvariant, "debit/credit", t.ID, nil)
	}

	if t.Amount.IsNegative() {
		return apperrors.ValidationError(apperrors.CodeInvalidAmount, "amount", t.Amount.String(), nil)
	}

	return nil
}

// Value returns the current value of a suggestable field
func (t *CanonicalTransaction) Value(f Field) string {
	switch f {
	case FieldDebit:
		return t.Debit
	case FieldCredit:
		return t.Credit
	case FieldReference:
		return t.ReferenceNumber
	default:
		return ""
	}
}

// SetValue assigns a suggestable field
func (t *CanonicalTransaction) SetValue(f Field, value string) {
	switch f {
	case FieldDebit:
		t.Debit = value
	case FieldCredit:
		t.Credit = value
	case FieldReference:
		t.ReferenceNumber = value
	}
}

// String returns a string representation of the CanonicalTransaction
func (t *CanonicalTransaction) String() string {
	return fmt.Sprintf("CanonicalTransaction{ID: %d, Date: %s, Amount: %s, Debit: %q, Credit: %q, Ref2: %q}",
		t.ID, t.Date.Format(DateLayout), t.Amount.StringFixed(2), t.Debit, t.Credit, t.Ref2)
}

// MarshalJSON renders the amount with two decimals and the date without time
func (t CanonicalTransaction) MarshalJSON() ([]byte, error) {
	type Alias CanonicalTransaction
	return json.Marshal(&struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		Alias
	}{
		Amount: t.Amount.StringFixed(2),
		Date:   formatDate(t.Date),
		Alias:  Alias(t),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for CanonicalTransaction
func (t *CanonicalTransaction) UnmarshalJSON(data []byte) error {
	type Alias CanonicalTransaction
	aux := &struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		*Alias
	}{
		Alias: (*Alias)(t),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}
	t.Amount = amount

	t.Date = time.Time{}
	if aux.Date != "" {
		if t.Date, err = time.Parse(DateLayout, aux.Date); err != nil {
			return fmt.Errorf("invalid date format: %w", err)
		}
	}

	return nil
}

func formatDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Clone returns a deep copy of a working set. CanonicalTransaction holds no
// pointers, so a value copy per element is enough.
func Clone(txs []CanonicalTransaction) []CanonicalTransaction {
	if txs == nil {
		return nil
	}
	out := make([]CanonicalTransaction, len(txs))
	copy(out, txs)
	return out
}

// ValidateWorkingSet reports every row that breaks a leg invariant and every
// row identifier used more than once.
func ValidateWorkingSet(txs []CanonicalTransaction) []*apperrors.ImportError {
	var errs []*apperrors.ImportError
	seen := make(map[int]bool, len(txs))

	for i := range txs {
		if err := txs[i].Validate(); err != nil {
			if importErr, ok := apperrors.AsImportError(err); ok {
				errs = append(errs, importErr)
			}
		}
		if seen[txs[i].ID] {
			errs = append(errs, apperrors.ValidationError(apperrors.CodeDuplicateRowID, "id", txs[i].ID, nil))
		}
		seen[txs[i].ID] = true
	}

	return errs
}

// RawRow is one tokenized line of a statement file
type RawRow struct {
	Fields   []string
	FileName string
	Header   []string
	Line     int
}

// Field returns the trimmed field at index i, or "" when the row is shorter.
func (r RawRow) Field(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return strings.TrimSpace(r.Fields[i])
}

// DuplicateCheckResult is the outcome of a duplicate filter pass
type DuplicateCheckResult struct {
	Scope        string                 `json:"scope"`
	Existing     map[string]bool        `json:"existing"`
	Transactions []CanonicalTransaction `json:"transactions"`
	Removed      int                    `json:"removed"`
}

// ExistingKeys returns the flagged keys in no particular order
func (r *DuplicateCheckResult) ExistingKeys() []string {
	keys := make([]string, 0, len(r.Existing))
	for k := range r.Existing {
		keys = append(keys, k)
	}
	return keys
}

// SequenceEntry is one ledger row returned by a sequence query
type SequenceEntry struct {
	Number      int64     `json:"number"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
}

// SequenceGap describes a break between consecutive sequence numbers.
// Gap is Found minus Expected, so a repeated number yields -1.
type SequenceGap struct {
	Expected    int64     `json:"expected"`
	Found       int64     `json:"found"`
	Gap         int64     `json:"gap"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
}

// SequenceReport summarizes a sequence audit
type SequenceReport struct {
	Account        string        `json:"account"`
	Administration string        `json:"administration"`
	Since          time.Time     `json:"since"`
	First          int64         `json:"first"`
	Last           int64         `json:"last"`
	Count          int           `json:"count"`
	Gaps           []SequenceGap `json:"gaps"`
}

// HasGaps reports whether the audit found any break
func (r *SequenceReport) HasGaps() bool {
	return len(r.Gaps) > 0
}

// AccountDirectoryEntry maps an external identifier such as an IBAN to a
// ledger account code and administration.
type AccountDirectoryEntry struct {
	Identifier     string `json:"identifier"`
	Account        string `json:"account"`
	Administration string `json:"administration"`
}

// AccountIndex is an account directory keyed by identifier
type AccountIndex map[string]AccountDirectoryEntry

// NewAccountIndex indexes directory entries by identifier. Later entries win.
func NewAccountIndex(entries []AccountDirectoryEntry) AccountIndex {
	idx := make(AccountIndex, len(entries))
	for _, e := range entries {
		idx[strings.TrimSpace(e.Identifier)] = e
	}
	return idx
}

// Lookup finds the entry for identifier
func (idx AccountIndex) Lookup(identifier string) (AccountDirectoryEntry, bool) {
	e, ok := idx[strings.TrimSpace(identifier)]
	return e, ok
}

// ParseDate parses a statement date using the layouts the supported exports
// produce and truncates the result to a calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	formats := []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		time.RFC3339,
		"2006-01-02T15:04:05",
		"02-01-2006",
		"02/01/2006",
		"2006/01/02",
		"Jan 2, 2006",
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.Parse(format, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}
