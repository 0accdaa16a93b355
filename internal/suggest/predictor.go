package suggest

import (
	"context"

	"github.com/pkg/errors"

	"ledger-import-service/internal/models"
)

// Predictor fills ledger fields from historical patterns. Implementations
// are remote and fallible; the workflow never retries them.
//
//go:generate mockgen -destination=mocks/mock_suggest.go -source=predictor.go Predictor
type Predictor interface {
	Predict(ctx context.Context, transactions []models.CanonicalTransaction) (*PredictionResult, error)
}

// Prediction is a single predicted field value
type Prediction struct {
	RowID      int          `json:"row_id"`
	Field      models.Field `json:"field"`
	Value      string       `json:"value"`
	Confidence float64      `json:"confidence"`
}

// PredictionResult is the predictor's answer for one working set
type PredictionResult struct {
	Transactions       []models.CanonicalTransaction `json:"transactions"`
	PatternsConsidered int                           `json:"patterns_considered"`
	FieldCounts        map[models.Field]int          `json:"field_counts"`
	Predictions        []Prediction                  `json:"predictions"`
}

// validate rejects results the workflow must not apply
func (r *PredictionResult) validate() error {
	if r == nil {
		return errors.New("predictor returned no result")
	}
	for _, p := range r.Predictions {
		if !p.Field.IsValid() {
			return errors.Errorf("row %d: unknown field %q", p.RowID, p.Field)
		}
		// NaN fails both comparisons
		if !(p.Confidence >= 0 && p.Confidence <= 1) {
			return errors.Errorf("row %d %s: confidence %v outside 0..1", p.RowID, p.Field, p.Confidence)
		}
	}
	return nil
}
