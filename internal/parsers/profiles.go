package parsers

import (
	"fmt"
	"strings"
)

// Kind identifies one of the supported statement formats
type Kind string

const (
	// KindWallet is the tab-delimited wallet export that reports fees separately
	KindWallet Kind = "wallet"
	// KindCard is the comma-delimited credit card statement
	KindCard Kind = "card"
	// KindBank is the comma-delimited current account statement
	KindBank Kind = "bank"
)

// Column names a semantic column of a statement row
type Column string

const (
	ColumnIdentifier  Column = "identifier"
	ColumnReference   Column = "reference"
	ColumnDate        Column = "date"
	ColumnDescription Column = "description"
	ColumnAmount      Column = "amount"
	ColumnFee         Column = "fee"
	ColumnStatus      Column = "status"
	ColumnBalance     Column = "balance"
)

// ColumnSpec locates a column. Aliases are matched case-insensitively as
// substrings of header cells; Index is used when no alias matches.
type ColumnSpec struct {
	Aliases []string `json:"aliases,omitempty"`
	Index   int      `json:"index"`
}

// ColumnMap is the resolved column position per semantic column
type ColumnMap map[Column]int

// Index returns the resolved position of c, or -1 when c is not mapped.
func (m ColumnMap) Index(c Column) int {
	if i, ok := m[c]; ok {
		return i
	}
	return -1
}

// FormatProfile is the static description of one statement format. Profiles
// are built once from configuration and shared read-only.
type FormatProfile struct {
	Kind                  Kind                  `json:"kind"`
	SourceLabel           string                `json:"source_label"`
	DefaultAccount        string                `json:"default_account"`
	DefaultAdministration string                `json:"default_administration"`
	SplitFees             bool                  `json:"split_fees"`
	MinFields             int                   `json:"min_fields"`
	Columns               map[Column]ColumnSpec `json:"columns"`

	// wallet
	WalletIdentifier string `json:"wallet_identifier,omitempty"`

	// card
	FilePrefixes          []string `json:"file_prefixes,omitempty"`
	ExpenseAccount        string   `json:"expense_account,omitempty"`
	CreditAccount         string   `json:"credit_account,omitempty"`
	SettlementAccount     string   `json:"settlement_account,omitempty"`
	PrimaryIdentifier     string   `json:"primary_identifier,omitempty"`
	PrimaryAdministration string   `json:"primary_administration,omitempty"`

	// bank
	DescriptionColumns []int `json:"description_columns,omitempty"`
}

// Validate checks if the profile is usable by the normalizer
func (p *FormatProfile) Validate() error {
	if strings.TrimSpace(p.SourceLabel) == "" {
		return fmt.Errorf("%s profile: source label cannot be empty", p.Kind)
	}

	if p.MinFields < 0 {
		return fmt.Errorf("%s profile: minimum field count cannot be negative, got %d", p.Kind, p.MinFields)
	}

	for col, cs := range p.Columns {
		if cs.Index < 0 {
			return fmt.Errorf("%s profile: column %s has negative index %d", p.Kind, col, cs.Index)
		}
	}

	switch p.Kind {
	case KindWallet, KindBank:
		if strings.TrimSpace(p.DefaultAccount) == "" {
			return fmt.Errorf("%s profile: default account cannot be empty", p.Kind)
		}
	case KindCard:
		if strings.TrimSpace(p.ExpenseAccount) == "" || strings.TrimSpace(p.CreditAccount) == "" {
			return fmt.Errorf("card profile: expense and credit accounts are required")
		}
		if len(p.FilePrefixes) == 0 {
			return fmt.Errorf("card profile: at least one file prefix is required")
		}
	default:
		return fmt.Errorf("unknown profile kind: %s", p.Kind)
	}

	return nil
}

// positional returns the fixed column map of a profile
func (p *FormatProfile) positional() ColumnMap {
	cols := make(ColumnMap, len(p.Columns))
	for col, cs := range p.Columns {
		cols[col] = cs.Index
	}
	return cols
}

// ProfileSet is the closed set of formats the resolver chooses from
type ProfileSet struct {
	Wallet *FormatProfile `json:"wallet"`
	Card   *FormatProfile `json:"card"`
	Bank   *FormatProfile `json:"bank"`
}

// Validate validates every profile in the set
func (ps *ProfileSet) Validate() error {
	for _, p := range ps.All() {
		if p == nil {
			return fmt.Errorf("profile set is incomplete")
		}
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// All returns the profiles in a stable order
func (ps *ProfileSet) All() []*FormatProfile {
	return []*FormatProfile{ps.Wallet, ps.Card, ps.Bank}
}

// Get returns the profile of the given kind
func (ps *ProfileSet) Get(kind Kind) *FormatProfile {
	switch kind {
	case KindWallet:
		return ps.Wallet
	case KindCard:
		return ps.Card
	case KindBank:
		return ps.Bank
	default:
		return nil
	}
}

// DefaultWalletProfile describes the wallet export with English and Dutch
// header names.
func DefaultWalletProfile() *FormatProfile {
	return &FormatProfile{
		Kind:                  KindWallet,
		SourceLabel:           "Wallet",
		DefaultAccount:        "1022",
		DefaultAdministration: "Default",
		SplitFees:             true,
		WalletIdentifier:      "WALLET",
		Columns: map[Column]ColumnSpec{
			ColumnDate:        {Aliases: []string{"Started Date", "Startdatum"}, Index: 2},
			ColumnDescription: {Aliases: []string{"Description", "Beschrijving"}, Index: 4},
			ColumnAmount:      {Aliases: []string{"Amount", "Bedrag"}, Index: 5},
			ColumnFee:         {Aliases: []string{"Fee", "Kosten"}, Index: 6},
			ColumnStatus:      {Aliases: []string{"State", "Status"}, Index: 8},
			ColumnBalance:     {Aliases: []string{"Balance", "Saldo"}, Index: 9},
		},
	}
}

// DefaultCardProfile describes the credit card statement export
func DefaultCardProfile() *FormatProfile {
	return &FormatProfile{
		Kind:                  KindCard,
		SourceLabel:           "Card",
		DefaultAdministration: "Default",
		MinFields:             13,
		FilePrefixes:          []string{"CSV_CC"},
		ExpenseAccount:        "4000",
		CreditAccount:         "1600",
		SettlementAccount:     "1600",
		PrimaryAdministration: "Default",
		Columns: map[Column]ColumnSpec{
			ColumnIdentifier:  {Index: 0},
			ColumnReference:   {Index: 6},
			ColumnDate:        {Index: 7},
			ColumnAmount:      {Index: 8},
			ColumnDescription: {Index: 9},
		},
	}
}

// DefaultBankProfile describes the current account statement export
func DefaultBankProfile() *FormatProfile {
	return &FormatProfile{
		Kind:                  KindBank,
		SourceLabel:           "Bank",
		DefaultAccount:        "1002",
		DefaultAdministration: "Default",
		MinFields:             20,
		DescriptionColumns:    []int{9, 19, 20, 21},
		Columns: map[Column]ColumnSpec{
			ColumnIdentifier: {Index: 0},
			ColumnReference:  {Index: 3},
			ColumnDate:       {Index: 4},
			ColumnAmount:     {Index: 6},
			ColumnBalance:    {Index: 7},
		},
	}
}

// DefaultProfileSet returns the built-in profiles
func DefaultProfileSet() *ProfileSet {
	return &ProfileSet{
		Wallet: DefaultWalletProfile(),
		Card:   DefaultCardProfile(),
		Bank:   DefaultBankProfile(),
	}
}
