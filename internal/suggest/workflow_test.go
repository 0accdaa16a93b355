package suggest_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-import-service/internal/models"
	"ledger-import-service/internal/suggest"
	mock_suggest "ledger-import-service/internal/suggest/mocks"
	apperrors "ledger-import-service/pkg/errors"
	"ledger-import-service/pkg/logger"
)

func workingSet() []models.CanonicalTransaction {
	date := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	return []models.CanonicalTransaction{
		{ID: 1, Date: date, Description: "Coffee", Amount: decimal.RequireFromString("4.50"), Debit: "1022", Ref2: "Coffee_120,3_2025-01-05"},
		{ID: 2, Date: date, Description: "Cleared by hand", Amount: decimal.RequireFromString("10"), ReferenceNumber: "KEEP"},
		{ID: 3, Date: date, Description: "Salary", Amount: decimal.RequireFromString("2500"), Credit: "1002"},
	}
}

// predicted returns working with every suggestable field set, as a pattern
// matcher that knows all rows would answer
func predicted(working []models.CanonicalTransaction) []models.CanonicalTransaction {
	out := models.Clone(working)
	for i := range out {
		out[i].Debit = "4000"
		out[i].Credit = "1600"
		out[i].ReferenceNumber = "REF-" + out[i].Description
	}
	return out
}

func newWorkflow(t *testing.T, predictor suggest.Predictor) *suggest.Workflow {
	t.Helper()
	w, err := suggest.NewWorkflow(predictor, workingSet())
	require.NoError(t, err)
	return w.WithLogger(logger.Discard())
}

func TestSuggestSkipsCounterLegOfImportedRows(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	imported := []models.CanonicalTransaction{workingSet()[0]}
	answer := models.Clone(imported)
	answer[0].Credit = "4000"
	answer[0].ReferenceNumber = "INV-7"

	predictor := mock_suggest.NewMockPredictor(ctrl)
	predictor.EXPECT().Predict(gomock.Any(), imported).Return(&suggest.PredictionResult{
		Transactions: answer,
		Predictions: []suggest.Prediction{
			{RowID: 1, Field: models.FieldCredit, Value: "4000", Confidence: 0.8},
			{RowID: 1, Field: models.FieldReference, Value: "INV-7", Confidence: 0.6},
		},
	}, nil)

	w, err := suggest.NewWorkflow(predictor, imported)
	require.NoError(t, err)
	w.WithLogger(logger.Discard())

	summary, err := w.Suggest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[models.Field]int{models.FieldReference: 1}, summary.Applied)

	got := w.Working()[0]
	assert.Equal(t, "1022", got.Debit)
	assert.Empty(t, got.Credit)
	assert.Equal(t, "INV-7", got.ReferenceNumber)
	assert.False(t, w.IsPatternFilled(1, models.FieldCredit))
	assert.True(t, w.IsPatternFilled(1, models.FieldReference))
}

func TestNewWorkflowRequiresPredictor(t *testing.T) {
	_, err := suggest.NewWorkflow(nil, workingSet())
	assert.Error(t, err)
}

func TestSuggestFillsEmptyFieldsOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	predictor := mock_suggest.NewMockPredictor(ctrl)
	predictor.EXPECT().
		Predict(gomock.Any(), workingSet()).
		Return(&suggest.PredictionResult{
			Transactions:       predicted(workingSet()),
			PatternsConsidered: 42,
			FieldCounts:        map[models.Field]int{models.FieldDebit: 3, models.FieldCredit: 3, models.FieldReference: 3},
			Predictions: []suggest.Prediction{
				{RowID: 1, Field: models.FieldReference, Value: "REF-Coffee", Confidence: 0.9},
				{RowID: 2, Field: models.FieldDebit, Value: "4000", Confidence: 0.5},
			},
		}, nil)

	w := newWorkflow(t, predictor)
	summary, err := w.Suggest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, suggest.StateSuggested, w.State())
	assert.NotEqual(t, uuid.Nil, summary.CycleID)
	assert.Equal(t, w.CycleID(), summary.CycleID)
	assert.Equal(t, 42, summary.PatternsConsidered)
	assert.Equal(t, 2, summary.Predictions)
	assert.InDelta(t, 0.7, summary.MeanConfidence, 1e-9)
	assert.Equal(t, map[models.Field]int{models.FieldDebit: 1, models.FieldReference: 2}, summary.Applied)
	assert.Equal(t, 3, summary.TotalApplied())

	got := w.Working()
	// existing legs are never joined by a second one
	assert.Equal(t, "1022", got[0].Debit)
	assert.Empty(t, got[0].Credit)
	assert.Equal(t, "REF-Coffee", got[0].ReferenceNumber)

	// a row without a leg gets the first predicted leg, user values stay
	assert.Equal(t, "4000", got[1].Debit)
	assert.Empty(t, got[1].Credit)
	assert.Equal(t, "KEEP", got[1].ReferenceNumber)

	assert.Empty(t, got[2].Debit)
	assert.Equal(t, "1002", got[2].Credit)
	assert.Equal(t, "REF-Salary", got[2].ReferenceNumber)

	assert.True(t, w.IsPatternFilled(1, models.FieldReference))
	assert.False(t, w.IsPatternFilled(1, models.FieldDebit))
	assert.True(t, w.IsPatternFilled(2, models.FieldDebit))
	assert.False(t, w.IsPatternFilled(2, models.FieldReference))
	assert.False(t, w.IsPatternFilled(99, models.FieldReference))

	assert.Equal(t, []suggest.FilledField{
		{RowID: 1, Field: models.FieldReference, Value: "REF-Coffee"},
		{RowID: 2, Field: models.FieldDebit, Value: "4000"},
		{RowID: 3, Field: models.FieldReference, Value: "REF-Salary"},
	}, w.Provenance())
}

func TestSuggestIgnoresUnknownRows(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	predictor := mock_suggest.NewMockPredictor(ctrl)
	predictor.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(&suggest.PredictionResult{
		Transactions: []models.CanonicalTransaction{{ID: 99, ReferenceNumber: "ORPHAN"}},
	}, nil)

	w := newWorkflow(t, predictor)
	summary, err := w.Suggest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.TotalApplied())
	assert.Equal(t, workingSet(), w.Working())
	assert.Empty(t, w.Provenance())
}

func TestRejectRestoresSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	predictor := mock_suggest.NewMockPredictor(ctrl)
	predictor.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(&suggest.PredictionResult{
		Transactions: predicted(workingSet()),
	}, nil)

	w := newWorkflow(t, predictor)
	_, err := w.Suggest(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, workingSet(), w.Working())

	restored, err := w.Reject()
	require.NoError(t, err)

	assert.Equal(t, workingSet(), restored)
	assert.Equal(t, workingSet(), w.Working())
	assert.Equal(t, suggest.StateRejected, w.State())
	assert.Empty(t, w.Provenance())

	_, err = w.Reject()
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryPrecondition))
	assert.Contains(t, err.Error(), "reject is not allowed in state rejected")
}

func TestApproveKeepsSuggestions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	predictor := mock_suggest.NewMockPredictor(ctrl)
	predictor.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(&suggest.PredictionResult{
		Transactions: predicted(workingSet()),
	}, nil)

	w := newWorkflow(t, predictor)
	_, err := w.Suggest(context.Background())
	require.NoError(t, err)
	suggested := w.Working()

	approved, err := w.Approve()
	require.NoError(t, err)

	assert.Equal(t, suggested, approved)
	assert.Equal(t, suggest.StateApproved, w.State())
	assert.False(t, w.IsPatternFilled(1, models.FieldReference))

	_, err = w.Approve()
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryPrecondition))
	_, err = w.Reject()
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryPrecondition))
}

func TestApproveAndRejectNeedSuggestions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w := newWorkflow(t, mock_suggest.NewMockPredictor(ctrl))

	_, err := w.Approve()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "approve is not allowed in state clean")

	_, err = w.Reject()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reject is not allowed in state clean")

	assert.Equal(t, suggest.StateClean, w.State())
	assert.Equal(t, workingSet(), w.Working())
}

func TestSuggestFailureLeavesStateUntouched(t *testing.T) {
	tests := []struct {
		name     string
		result   *suggest.PredictionResult
		err      error
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "predictor error",
			err:      errors.New("pattern service unavailable"),
			wantCode: apperrors.CodePredictionFailed,
		},
		{
			name:     "no result",
			wantCode: apperrors.CodeInvalidResponse,
		},
		{
			name: "confidence above one",
			result: &suggest.PredictionResult{
				Transactions: predicted(workingSet()),
				Predictions:  []suggest.Prediction{{RowID: 1, Field: models.FieldDebit, Value: "4000", Confidence: 1.5}},
			},
			wantCode: apperrors.CodeInvalidResponse,
		},
		{
			name: "negative confidence",
			result: &suggest.PredictionResult{
				Transactions: predicted(workingSet()),
				Predictions:  []suggest.Prediction{{RowID: 1, Field: models.FieldDebit, Value: "4000", Confidence: -0.1}},
			},
			wantCode: apperrors.CodeInvalidResponse,
		},
		{
			name: "NaN confidence",
			result: &suggest.PredictionResult{
				Transactions: predicted(workingSet()),
				Predictions:  []suggest.Prediction{{RowID: 1, Field: models.FieldDebit, Value: "4000", Confidence: math.NaN()}},
			},
			wantCode: apperrors.CodeInvalidResponse,
		},
		{
			name: "unknown field",
			result: &suggest.PredictionResult{
				Transactions: predicted(workingSet()),
				Predictions:  []suggest.Prediction{{RowID: 1, Field: "memo", Value: "x", Confidence: 0.5}},
			},
			wantCode: apperrors.CodeInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			predictor := mock_suggest.NewMockPredictor(ctrl)
			predictor.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(tt.result, tt.err)

			w := newWorkflow(t, predictor)
			summary, err := w.Suggest(context.Background())

			require.Error(t, err)
			assert.Nil(t, summary)
			importErr, ok := apperrors.AsImportError(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.CategoryCollaborator, importErr.Category)
			assert.Equal(t, tt.wantCode, importErr.Code)
			assert.Contains(t, err.Error(), "suggest")

			assert.Equal(t, suggest.StateClean, w.State())
			assert.Equal(t, uuid.Nil, w.CycleID())
			assert.Equal(t, workingSet(), w.Working())
			assert.Empty(t, w.Provenance())
		})
	}
}

func TestFailedResuggestKeepsPreviousCycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	predictor := mock_suggest.NewMockPredictor(ctrl)
	gomock.InOrder(
		predictor.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(&suggest.PredictionResult{
			Transactions: predicted(workingSet()),
		}, nil),
		predictor.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout")),
	)

	w := newWorkflow(t, predictor)
	first, err := w.Suggest(context.Background())
	require.NoError(t, err)
	suggested := w.Working()

	_, err = w.Suggest(context.Background())
	require.Error(t, err)

	assert.Equal(t, suggest.StateSuggested, w.State())
	assert.Equal(t, first.CycleID, w.CycleID())
	assert.Equal(t, suggested, w.Working())

	restored, err := w.Reject()
	require.NoError(t, err)
	assert.Equal(t, workingSet(), restored)
}

func TestResuggestTakesFreshSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	predictor := mock_suggest.NewMockPredictor(ctrl)
	gomock.InOrder(
		predictor.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(&suggest.PredictionResult{
			Transactions: []models.CanonicalTransaction{{ID: 1, ReferenceNumber: "FIRST"}},
		}, nil),
		predictor.EXPECT().Predict(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, txs []models.CanonicalTransaction) (*suggest.PredictionResult, error) {
				// the second call sees the first cycle's values
				require.Equal(t, "FIRST", txs[0].ReferenceNumber)
				return &suggest.PredictionResult{
					Transactions: []models.CanonicalTransaction{{ID: 3, ReferenceNumber: "SECOND"}},
				}, nil
			}),
	)

	w := newWorkflow(t, predictor)
	first, err := w.Suggest(context.Background())
	require.NoError(t, err)
	second, err := w.Suggest(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.CycleID, second.CycleID)
	assert.False(t, w.IsPatternFilled(1, models.FieldReference))
	assert.True(t, w.IsPatternFilled(3, models.FieldReference))

	restored, err := w.Reject()
	require.NoError(t, err)
	assert.Equal(t, "FIRST", restored[0].ReferenceNumber)
	assert.Empty(t, restored[2].ReferenceNumber)
}

func TestProvenanceFollowsManualEdits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	predictor := mock_suggest.NewMockPredictor(ctrl)
	predictor.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(&suggest.PredictionResult{
		Transactions: []models.CanonicalTransaction{{ID: 1, ReferenceNumber: "REF-Coffee"}},
	}, nil)

	w := newWorkflow(t, predictor)
	_, err := w.Suggest(context.Background())
	require.NoError(t, err)
	require.True(t, w.IsPatternFilled(1, models.FieldReference))

	require.NoError(t, w.Edit(1, models.FieldReference, ""))
	assert.False(t, w.IsPatternFilled(1, models.FieldReference))

	require.NoError(t, w.Edit(1, models.FieldReference, "TYPED"))
	assert.True(t, w.IsPatternFilled(1, models.FieldReference))

	require.NoError(t, w.Edit(3, models.FieldCredit, "1003"))
	assert.False(t, w.IsPatternFilled(3, models.FieldCredit))

	assert.Error(t, w.Edit(99, models.FieldReference, "x"))
	assert.Error(t, w.Edit(1, "memo", "x"))
}

func TestPredictorCannotMutateWorkingSet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	predictor := mock_suggest.NewMockPredictor(ctrl)
	predictor.EXPECT().Predict(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, txs []models.CanonicalTransaction) (*suggest.PredictionResult, error) {
			txs[0].Description = "tampered"
			return nil, errors.New("gave up")
		})

	w := newWorkflow(t, predictor)
	_, err := w.Suggest(context.Background())
	require.Error(t, err)

	assert.Equal(t, workingSet(), w.Working())
}
