// Package ledger holds the contracts to the ledger of previously imported
// transactions and a Postgres implementation of them.
package ledger

import (
	"context"
	"time"

	"ledger-import-service/internal/models"
)

// KeyLookup answers which natural keys a scope already contains.
//
//go:generate mockgen -destination=mocks/mock_ledger.go -source=interface.go
type KeyLookup interface {
	// ExistingKeys returns the subset of keys already stored under scope.
	ExistingKeys(ctx context.Context, scope string, keys []string) ([]string, error)
}

// SequenceLookup returns the sequence numbers recorded for an account.
type SequenceLookup interface {
	// SequenceSince returns entries dated on or after since, ordered by
	// sequence number.
	SequenceSince(ctx context.Context, account, administration string, since time.Time) ([]models.SequenceEntry, error)
}

// AccountDirectory maps external identifiers to ledger accounts.
type AccountDirectory interface {
	// Accounts lists the directory of one administration, or of all
	// administrations when administration is empty.
	Accounts(ctx context.Context, administration string) ([]models.AccountDirectoryEntry, error)
}
