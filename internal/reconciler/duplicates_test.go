package reconciler_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mock_ledger "ledger-import-service/internal/ledger/mocks"
	"ledger-import-service/internal/models"
	"ledger-import-service/internal/reconciler"
	apperrors "ledger-import-service/pkg/errors"
	"ledger-import-service/pkg/logger"
)

func tx(id int, ref1, ref2 string) models.CanonicalTransaction {
	return models.CanonicalTransaction{
		ID:     id,
		Amount: decimal.NewFromInt(int64(id)),
		Debit:  "1002",
		Ref1:   ref1,
		Ref2:   ref2,
	}
}

func newFilter(t *testing.T, lookup *mock_ledger.MockKeyLookup) *reconciler.DuplicateFilter {
	t.Helper()
	f, err := reconciler.NewDuplicateFilter(lookup)
	require.NoError(t, err)
	return f.WithLogger(logger.Discard())
}

func TestNewDuplicateFilterRequiresLookup(t *testing.T) {
	_, err := reconciler.NewDuplicateFilter(nil)
	assert.Error(t, err)
}

func TestDuplicateFilter_Filter(t *testing.T) {
	working := []models.CanonicalTransaction{
		tx(1, "NL01", "100"),
		tx(2, "NL01", "101"),
		tx(1001, "NL01", "fee charges_5_2025-01-01"),
		tx(3, "NL01", ""),
		tx(4, "NL01", "101"),
	}
	snapshot := models.Clone(working)

	tests := []struct {
		name        string
		working     []models.CanonicalTransaction
		setup       func(m *mock_ledger.MockKeyLookup)
		wantIDs     []int
		wantRemoved int
		wantErr     bool
	}{
		{
			name:    "removes rows whose key exists",
			working: working,
			setup: func(m *mock_ledger.MockKeyLookup) {
				m.EXPECT().
					ExistingKeys(gomock.Any(), "NL01", []string{"100", "101", "fee charges_5_2025-01-01"}).
					Return([]string{"101"}, nil)
			},
			wantIDs:     []int{1, 1001, 3},
			wantRemoved: 2,
		},
		{
			name:    "nothing exists",
			working: working,
			setup: func(m *mock_ledger.MockKeyLookup) {
				m.EXPECT().ExistingKeys(gomock.Any(), "NL01", gomock.Any()).Return(nil, nil)
			},
			wantIDs: []int{1, 2, 1001, 3, 4},
		},
		{
			name:    "keys unknown to the batch are ignored",
			working: working,
			setup: func(m *mock_ledger.MockKeyLookup) {
				m.EXPECT().ExistingKeys(gomock.Any(), "NL01", gomock.Any()).Return([]string{"999", "fee charges_5_2025-01-01"}, nil)
			},
			wantIDs:     []int{1, 2, 3, 4},
			wantRemoved: 1,
		},
		{
			name:    "no scope skips the lookup",
			working: []models.CanonicalTransaction{tx(1, "", "100"), tx(2, "NL01", "101")},
			setup:   func(m *mock_ledger.MockKeyLookup) {},
			wantIDs: []int{1, 2},
		},
		{
			name:    "no keys skips the lookup",
			working: []models.CanonicalTransaction{tx(1, "NL01", ""), tx(2, "NL01", "")},
			setup:   func(m *mock_ledger.MockKeyLookup) {},
			wantIDs: []int{1, 2},
		},
		{
			name:    "empty working set",
			working: nil,
			setup:   func(m *mock_ledger.MockKeyLookup) {},
			wantIDs: []int{},
		},
		{
			name:    "lookup failure",
			working: working,
			setup: func(m *mock_ledger.MockKeyLookup) {
				m.EXPECT().ExistingKeys(gomock.Any(), "NL01", gomock.Any()).Return(nil, errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			lookup := mock_ledger.NewMockKeyLookup(ctrl)
			tt.setup(lookup)

			result, err := newFilter(t, lookup).Filter(context.Background(), tt.working)

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, result)
				assert.True(t, apperrors.IsCategory(err, apperrors.CategoryCollaborator))
				assert.Contains(t, err.Error(), "duplicate check")
				assert.Contains(t, err.Error(), "connection refused")
			} else {
				require.NoError(t, err)
				ids := []int{}
				for _, tx := range result.Transactions {
					ids = append(ids, tx.ID)
				}
				assert.Equal(t, tt.wantIDs, ids)
				assert.Equal(t, tt.wantRemoved, result.Removed)
			}

			assert.Equal(t, snapshot, working, "input must not be modified")
		})
	}
}

func TestDuplicateFilter_Idempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	lookup := mock_ledger.NewMockKeyLookup(ctrl)
	lookup.EXPECT().
		ExistingKeys(gomock.Any(), "NL01", gomock.Any()).
		Return([]string{"100", "102"}, nil).
		Times(2)

	filter := newFilter(t, lookup)
	working := []models.CanonicalTransaction{
		tx(1, "NL01", "100"),
		tx(2, "NL01", "101"),
		tx(3, "NL01", "102"),
		tx(4, "NL01", "103"),
	}

	first, err := filter.Filter(context.Background(), working)
	require.NoError(t, err)
	second, err := filter.Filter(context.Background(), first.Transactions)
	require.NoError(t, err)

	assert.Equal(t, first.Transactions, second.Transactions)
	assert.Equal(t, 2, first.Removed)
	assert.Equal(t, 0, second.Removed)
	assert.ElementsMatch(t, []string{"100", "102"}, first.ExistingKeys())
}
