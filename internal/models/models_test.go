package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	apperrors "ledger-import-service/pkg/errors"
)

func sampleTransaction() CanonicalTransaction {
	return CanonicalTransaction{
		ID:                3,
		TransactionNumber: "Wallet 2025-02-01",
		Date:              time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		Description:       "Coffee",
		Amount:            decimal.RequireFromString("4.50"),
		Debit:             "1022",
		Ref1:              "WALLET-01",
		Ref2:              "Coffee_120,3_2025-01-05",
		Ref3:              "120.30",
		Ref4:              "wallet.tsv",
		Administration:    "Home",
	}
}

func TestCanonicalTransaction_Validate(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*CanonicalTransaction)
		wantCode apperrors.ErrorCode
	}{
		{"valid debit", func(*CanonicalTransaction) {}, ""},
		{"valid credit", func(tx *CanonicalTransaction) { tx.Debit, tx.Credit = "", "1022" }, ""},
		{"both sides", func(tx *CanonicalTransaction) { tx.Credit = "1300" }, apperrors.CodeLegInvariant},
		{"no side", func(tx *CanonicalTransaction) { tx.Debit = "" }, apperrors.CodeLegInvariant},
		{"whitespace side", func(tx *CanonicalTransaction) { tx.Debit = "  " }, apperrors.CodeLegInvariant},
		{"negative amount", func(tx *CanonicalTransaction) { tx.Amount = decimal.NewFromInt(-1) }, apperrors.CodeInvalidAmount},
		{"zero amount", func(tx *CanonicalTransaction) { tx.Amount = decimal.Zero }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := sampleTransaction()
			tt.modify(&tx)

			err := tx.Validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}

			importErr, ok := apperrors.AsImportError(err)
			if !ok {
				t.Fatalf("Validate() = %v, want ImportError", err)
			}
			if importErr.Code != tt.wantCode {
				t.Errorf("Validate() code = %s, want %s", importErr.Code, tt.wantCode)
			}
		})
	}
}

func TestCanonicalTransaction_FieldAccess(t *testing.T) {
	tx := sampleTransaction()

	tx.SetValue(FieldCredit, "1300")
	tx.SetValue(FieldReference, "Groceries")

	if tx.Value(FieldDebit) != "1022" {
		t.Errorf("Value(debit) = %q", tx.Value(FieldDebit))
	}
	if tx.Value(FieldCredit) != "1300" {
		t.Errorf("Value(credit) = %q", tx.Value(FieldCredit))
	}
	if tx.Value(FieldReference) != "Groceries" {
		t.Errorf("Value(reference) = %q", tx.Value(FieldReference))
	}
	if tx.Value("memo") != "" {
		t.Error("unknown field should read as empty")
	}
	if Field("memo").IsValid() {
		t.Error("unknown field should not be valid")
	}
}

func TestCanonicalTransaction_JSONMarshaling(t *testing.T) {
	tx := sampleTransaction()

	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	raw := map[string]interface{}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal into map failed: %v", err)
	}
	if raw["amount"] != "4.50" {
		t.Errorf("amount = %v, want 4.50", raw["amount"])
	}
	if raw["date"] != "2025-01-05" {
		t.Errorf("date = %v, want 2025-01-05", raw["date"])
	}

	var back CanonicalTransaction
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !back.Amount.Equal(tx.Amount) || !back.Date.Equal(tx.Date) || back.Ref2 != tx.Ref2 {
		t.Errorf("round trip mismatch: %s vs %s", back.String(), tx.String())
	}
}

func TestClone(t *testing.T) {
	original := []CanonicalTransaction{sampleTransaction()}

	copied := Clone(original)
	copied[0].Debit = "9999"

	if original[0].Debit != "1022" {
		t.Error("Clone should not share backing storage with the input")
	}
	if Clone(nil) != nil {
		t.Error("Clone(nil) should be nil")
	}
}

func TestValidateWorkingSet(t *testing.T) {
	a := sampleTransaction()
	b := sampleTransaction()
	b.ID = 1003
	b.Debit, b.Credit = "", "1022"
	c := sampleTransaction()
	c.Credit = "1300"
	d := sampleTransaction()

	errs := ValidateWorkingSet([]CanonicalTransaction{a, b})
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}

	c.ID = 4
	errs = ValidateWorkingSet([]CanonicalTransaction{a, b, c, d})
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(errs))
	}
	if errs[0].Code != apperrors.CodeLegInvariant {
		t.Errorf("first error code = %s", errs[0].Code)
	}
	if errs[1].Code != apperrors.CodeDuplicateRowID {
		t.Errorf("second error code = %s", errs[1].Code)
	}
}

func TestRawRow_Field(t *testing.T) {
	row := RawRow{Fields: []string{" a ", "b"}}

	if row.Field(0) != "a" {
		t.Errorf("Field(0) = %q", row.Field(0))
	}
	if row.Field(5) != "" || row.Field(-1) != "" {
		t.Error("out of range fields should read as empty")
	}
}

func TestAccountIndex(t *testing.T) {
	idx := NewAccountIndex([]AccountDirectoryEntry{
		{Identifier: "NL01BANK0001", Account: "1002", Administration: "Home"},
		{Identifier: " NL02BANK0002 ", Account: "1003", Administration: "Shop"},
	})

	entry, ok := idx.Lookup("NL02BANK0002")
	if !ok || entry.Account != "1003" {
		t.Errorf("Lookup() = %+v, %v", entry, ok)
	}
	if _, ok := idx.Lookup("NL99UNKNOWN"); ok {
		t.Error("unknown identifier should not resolve")
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		input     string
		wantError bool
	}{
		{"2025-01-05", false},
		{"2025-01-05 10:00", false},
		{"2025-01-05 10:00:59", false},
		{"2025-01-05T10:00:00Z", false},
		{"05-01-2025", false},
		{"", true},
		{"yesterday", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.wantError {
				t.Fatalf("ParseDate() error = %v, wantError %v", err, tt.wantError)
			}
			if !tt.wantError && !got.Equal(want) {
				t.Errorf("ParseDate() = %v, want %v", got, want)
			}
		})
	}
}

func TestSequenceReport_HasGaps(t *testing.T) {
	report := &SequenceReport{}
	if report.HasGaps() {
		t.Error("empty report should have no gaps")
	}
	report.Gaps = append(report.Gaps, SequenceGap{Expected: 13, Found: 15, Gap: 2})
	if !report.HasGaps() {
		t.Error("expected gaps")
	}
}
