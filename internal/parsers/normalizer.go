package parsers

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledger-import-service/internal/models"
	"ledger-import-service/pkg/logger"
)

const feeLabel = "fee charges"

// Outcome tells what happened to one statement row
type Outcome string

const (
	OutcomeEmitted    Outcome = "emitted"
	OutcomeShort      Outcome = "short"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeZeroAmount Outcome = "zero_amount"
)

// Normalizer converts statement rows into canonical transactions. The
// processing date is fixed at construction and used for transaction numbers.
type Normalizer struct {
	today    time.Time
	accounts models.AccountIndex
	logger   logger.Logger
}

// NewNormalizer creates a normalizer for the given processing date and
// account directory. A nil directory means every lookup falls back to the
// profile defaults.
func NewNormalizer(today time.Time, accounts models.AccountIndex) *Normalizer {
	if accounts == nil {
		accounts = models.AccountIndex{}
	}
	return &Normalizer{
		today:    today,
		accounts: accounts,
		logger:   logger.GetGlobalLogger().WithComponent("normalizer"),
	}
}

// WithLogger replaces the normalizer's logger
func (n *Normalizer) WithLogger(l logger.Logger) *Normalizer {
	n.logger = l.WithComponent("normalizer")
	return n
}

// Normalize converts one row. It returns nothing for rows that are short,
// suppressed by status or carry no amount.
func (n *Normalizer) Normalize(row models.RawRow, profile *FormatProfile, cols ColumnMap, rowID int) []models.CanonicalTransaction {
	txs, _ := n.NormalizeRow(row, profile, cols, rowID)
	return txs
}

// NormalizeRow is Normalize plus the reason a row produced nothing
func (n *Normalizer) NormalizeRow(row models.RawRow, profile *FormatProfile, cols ColumnMap, rowID int) ([]models.CanonicalTransaction, Outcome) {
	if len(row.Fields) < profile.MinFields {
		n.logger.WithFields(logger.Fields{
			"file":       row.FileName,
			"line":       row.Line,
			"fields":     len(row.Fields),
			"min_fields": profile.MinFields,
		}).Debug("Skipping short row")
		return nil, OutcomeShort
	}

	var txs []models.CanonicalTransaction
	switch profile.Kind {
	case KindWallet:
		if isSuppressedStatus(row.Field(cols.Index(ColumnStatus))) {
			return nil, OutcomeSuppressed
		}
		txs = n.normalizeWallet(row, profile, cols, rowID)
	case KindCard:
		txs = n.normalizeCard(row, profile, cols, rowID)
	case KindBank:
		txs = n.normalizeBank(row, profile, cols, rowID)
	}

	if len(txs) == 0 {
		return nil, OutcomeZeroAmount
	}
	return txs, OutcomeEmitted
}

func isSuppressedStatus(status string) bool {
	upper := strings.ToUpper(status)
	return strings.Contains(upper, "REVERTED") || strings.Contains(upper, "PENDING")
}

func (n *Normalizer) transactionNumber(profile *FormatProfile) string {
	return profile.SourceLabel + " " + n.today.Format(models.DateLayout)
}

func (n *Normalizer) parseDate(row models.RawRow, cols ColumnMap) time.Time {
	raw := row.Field(cols.Index(ColumnDate))
	d, err := models.ParseDate(raw)
	if err != nil && raw != "" {
		n.logger.WithFields(logger.Fields{
			"file":  row.FileName,
			"line":  row.Line,
			"value": raw,
		}).Debug("Unparsable date, using zero date")
	}
	return d
}

// resolveAccount looks up identifier in the account directory and falls back
// to the profile defaults.
func (n *Normalizer) resolveAccount(identifier string, profile *FormatProfile) (string, string) {
	if entry, ok := n.accounts.Lookup(identifier); ok && entry.Account != "" {
		admin := entry.Administration
		if admin == "" {
			admin = profile.DefaultAdministration
		}
		return entry.Account, admin
	}
	return profile.DefaultAccount, profile.DefaultAdministration
}

// assignSide puts the account on the debit side for outgoing money and on the
// credit side for incoming money.
func assignSide(tx *models.CanonicalTransaction, account string, outgoing bool) {
	if outgoing {
		tx.Debit = account
		return
	}
	tx.Credit = account
}

func (n *Normalizer) normalizeWallet(row models.RawRow, profile *FormatProfile, cols ColumnMap, rowID int) []models.CanonicalTransaction {
	amount := ParseAmount(row.Field(cols.Index(ColumnAmount)))
	fee := ParseAmount(row.Field(cols.Index(ColumnFee)))
	description := row.Field(cols.Index(ColumnDescription))
	rawBalance := row.Field(cols.Index(ColumnBalance))
	date := n.parseDate(row, cols)
	account, admin := n.resolveAccount(profile.WalletIdentifier, profile)

	base := models.CanonicalTransaction{
		TransactionNumber: n.transactionNumber(profile),
		Date:              date,
		Ref1:              profile.WalletIdentifier,
		Ref3:              formatBalance(rawBalance),
		Ref4:              row.FileName,
		Administration:    admin,
	}

	var txs []models.CanonicalTransaction

	if !amount.IsZero() {
		primary := base
		primary.ID = rowID
		primary.Description = description
		primary.Amount = amount.Abs()
		primary.Ref2 = naturalKey(description, rawBalance, date)
		assignSide(&primary, account, amount.IsNegative())
		txs = append(txs, primary)
	}

	if profile.SplitFees && fee.GreaterThan(decimal.Zero) {
		feeTx := base
		feeTx.ID = rowID + models.FeeIDOffset
		feeTx.Description = feeLabel
		feeTx.Amount = fee
		feeTx.Credit = account
		feeTx.Ref2 = naturalKey(feeLabel, rawBalance, date)
		txs = append(txs, feeTx)
	}

	return txs
}

// naturalKey joins the description, the balance exactly as exported (never
// rounded) and the date with underscores.
func naturalKey(description, rawBalance string, date time.Time) string {
	return strings.Join([]string{description, rawBalance, date.Format(models.DateLayout)}, "_")
}

func (n *Normalizer) normalizeCard(row models.RawRow, profile *FormatProfile, cols ColumnMap, rowID int) []models.CanonicalTransaction {
	rawAmount := row.Field(cols.Index(ColumnAmount))
	amount := ParseAmount(rawAmount).Abs()
	if amount.IsZero() {
		return nil
	}

	identifier := row.Field(cols.Index(ColumnIdentifier))
	admin := profile.DefaultAdministration
	if profile.PrimaryIdentifier != "" && identifier == profile.PrimaryIdentifier {
		admin = profile.PrimaryAdministration
	}

	tx := models.CanonicalTransaction{
		ID:                rowID,
		TransactionNumber: n.transactionNumber(profile),
		Date:              n.parseDate(row, cols),
		Description:       joinFrom(row.Fields, cols.Index(ColumnDescription)),
		Amount:            amount,
		Debit:             profile.CreditAccount,
		Ref1:              identifier,
		Ref2:              row.Field(cols.Index(ColumnReference)),
		Ref3:              profile.SettlementAccount,
		Ref4:              row.FileName,
		Administration:    admin,
	}
	if isOutgoing(rawAmount) {
		tx.Debit = profile.ExpenseAccount
	}

	return []models.CanonicalTransaction{tx}
}

// joinFrom joins the non-blank fields from index start onward
func joinFrom(fields []string, start int) string {
	if start < 0 || start >= len(fields) {
		return ""
	}
	var parts []string
	for _, f := range fields[start:] {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func (n *Normalizer) normalizeBank(row models.RawRow, profile *FormatProfile, cols ColumnMap, rowID int) []models.CanonicalTransaction {
	rawAmount := row.Field(cols.Index(ColumnAmount))
	amount := ParseAmount(strings.TrimLeft(rawAmount, "+-")).Abs()
	if amount.IsZero() {
		return nil
	}

	identifier := row.Field(cols.Index(ColumnIdentifier))
	account, admin := n.resolveAccount(identifier, profile)

	tx := models.CanonicalTransaction{
		ID:                rowID,
		TransactionNumber: n.transactionNumber(profile),
		Date:              n.parseDate(row, cols),
		Description:       bankDescription(row, profile.DescriptionColumns),
		Amount:            amount,
		Ref1:              identifier,
		Ref2:              row.Field(cols.Index(ColumnReference)),
		Ref3:              formatBalance(row.Field(cols.Index(ColumnBalance))),
		Ref4:              row.FileName,
		Administration:    admin,
	}
	assignSide(&tx, account, isOutgoing(rawAmount))

	return []models.CanonicalTransaction{tx}
}

func bankDescription(row models.RawRow, columns []int) string {
	var parts []string
	for _, idx := range columns {
		v := row.Field(idx)
		if v == "" || strings.EqualFold(v, "NA") || strings.EqualFold(v, "nan") {
			continue
		}
		parts = append(parts, v)
	}
	joined := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	return strings.ReplaceAll(joined, "Google Pay", "GPay")
}
