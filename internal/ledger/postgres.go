package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"ledger-import-service/internal/models"
	"ledger-import-service/pkg/logger"
)

// StoreConfig names the ledger tables and sizes the connection pool
type StoreConfig struct {
	DSN               string `mapstructure:"dsn"`
	TransactionsTable string `mapstructure:"transactions_table"`
	AccountsTable     string `mapstructure:"accounts_table"`
	MaxConns          int32  `mapstructure:"max_conns"`
}

// DefaultStoreConfig returns the table names used by the ledger schema
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		TransactionsTable: "ledger_transactions",
		AccountsTable:     "account_directory",
		MaxConns:          4,
	}
}

// Store implements KeyLookup, SequenceLookup and AccountDirectory on Postgres
type Store struct {
	pool         *pgxpool.Pool
	transactions string
	accounts     string
	logger       logger.Logger
}

var (
	_ KeyLookup        = (*Store)(nil)
	_ SequenceLookup   = (*Store)(nil)
	_ AccountDirectory = (*Store)(nil)
)

// NewStore opens a connection pool and checks it with a ping
func NewStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("ledger DSN is empty")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "parse ledger DSN")
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, "open ledger pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping ledger")
	}

	return NewStoreFromPool(pool, cfg), nil
}

// NewStoreFromPool wraps an existing pool
func NewStoreFromPool(pool *pgxpool.Pool, cfg StoreConfig) *Store {
	defaults := DefaultStoreConfig()
	if cfg.TransactionsTable == "" {
		cfg.TransactionsTable = defaults.TransactionsTable
	}
	if cfg.AccountsTable == "" {
		cfg.AccountsTable = defaults.AccountsTable
	}

	return &Store{
		pool:         pool,
		transactions: tableIdentifier(cfg.TransactionsTable),
		accounts:     tableIdentifier(cfg.AccountsTable),
		logger:       logger.GetGlobalLogger().WithComponent("ledger_store"),
	}
}

// tableIdentifier quotes a possibly schema-qualified table name
func tableIdentifier(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

// WithLogger replaces the store's logger
func (s *Store) WithLogger(l logger.Logger) *Store {
	s.logger = l.WithComponent("ledger_store")
	return s
}

// Close releases the pool
func (s *Store) Close() {
	s.pool.Close()
}

// ExistingKeys returns the keys of scope already present in the ledger
func (s *Store) ExistingKeys(ctx context.Context, scope string, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	query := `SELECT DISTINCT ref2 FROM ` + s.transactions + ` WHERE ref1 = $1 AND ref2 = ANY($2)`
	rows, err := s.pool.Query(ctx, query, scope, keys)
	if err != nil {
		return nil, errors.Wrapf(err, "query existing keys for %s", scope)
	}

	found, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrapf(err, "read existing keys for %s", scope)
	}

	s.logger.WithFields(logger.Fields{
		"scope":    scope,
		"keys":     len(keys),
		"existing": len(found),
	}).Debug("Looked up existing keys")

	return found, nil
}

// SequenceSince returns numeric ref2 values booked on account since the given
// date, ordered by number.
func (s *Store) SequenceSince(ctx context.Context, account, administration string, since time.Time) ([]models.SequenceEntry, error) {
	query := `SELECT ref2::bigint, trans_date, description FROM ` + s.transactions + `
		WHERE (debit = $1 OR credit = $1)
		  AND administration = $2
		  AND trans_date >= $3
		  AND ref2 ~ '^[0-9]+$'
		ORDER BY ref2::bigint`

	rows, err := s.pool.Query(ctx, query, account, administration, since)
	if err != nil {
		return nil, errors.Wrapf(err, "query sequence for %s/%s", administration, account)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.SequenceEntry, error) {
		var e models.SequenceEntry
		err := row.Scan(&e.Number, &e.Date, &e.Description)
		return e, err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "read sequence for %s/%s", administration, account)
	}

	return entries, nil
}

// Accounts lists the account directory, optionally for one administration
func (s *Store) Accounts(ctx context.Context, administration string) ([]models.AccountDirectoryEntry, error) {
	query := `SELECT identifier, account, administration FROM ` + s.accounts + `
		WHERE $1 = '' OR administration = $1
		ORDER BY identifier`

	rows, err := s.pool.Query(ctx, query, administration)
	if err != nil {
		return nil, errors.Wrap(err, "query account directory")
	}

	entries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[models.AccountDirectoryEntry])
	if err != nil {
		return nil, errors.Wrap(err, "read account directory")
	}

	return entries, nil
}
