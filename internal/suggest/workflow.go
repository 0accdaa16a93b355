// Package suggest overlays historical-pattern predictions onto a working set
// under review and keeps the pre-suggestion snapshot so the overlay can be
// approved or rolled back as a whole.
package suggest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"ledger-import-service/internal/models"
	"ledger-import-service/pkg/errors"
	"ledger-import-service/pkg/logger"
)

// State of a suggestion cycle
type State string

const (
	StateClean     State = "clean"
	StateSuggested State = "suggested"
	StateApproved  State = "approved"
	StateRejected  State = "rejected"
)

// FilledField is a field whose current value came from a suggestion
type FilledField struct {
	RowID int          `json:"row_id"`
	Field models.Field `json:"field"`
	Value string       `json:"value"`
}

// Summary describes one Suggest call
type Summary struct {
	CycleID            uuid.UUID            `json:"cycle_id"`
	PatternsConsidered int                  `json:"patterns_considered"`
	FieldCounts        map[models.Field]int `json:"field_counts"`
	Applied            map[models.Field]int `json:"applied"`
	Predictions        int                  `json:"predictions"`
	MeanConfidence     float64              `json:"mean_confidence"`
}

// TotalApplied is the number of fields the overlay filled
func (s *Summary) TotalApplied() int {
	total := 0
	for _, n := range s.Applied {
		total += n
	}
	return total
}

// Workflow owns a working set during review together with the snapshot of
// the most recent suggestion cycle.
type Workflow struct {
	mu        sync.Mutex
	predictor Predictor
	logger    logger.Logger

	state    State
	cycleID  uuid.UUID
	working  []models.CanonicalTransaction
	snapshot []models.CanonicalTransaction
}

// NewWorkflow starts a workflow in the clean state on a copy of working
func NewWorkflow(predictor Predictor, working []models.CanonicalTransaction) (*Workflow, error) {
	if predictor == nil {
		return nil, errors.ValidationError(
			errors.CodeMissingField,
			"predictor",
			nil,
			nil,
		).WithSuggestion("Provide a pattern predictor")
	}

	return &Workflow{
		predictor: predictor,
		logger:    logger.GetGlobalLogger().WithComponent("suggestion_workflow"),
		state:     StateClean,
		working:   models.Clone(working),
	}, nil
}

// WithLogger replaces the workflow's logger
func (w *Workflow) WithLogger(l logger.Logger) *Workflow {
	w.logger = l.WithComponent("suggestion_workflow")
	return w
}

// State returns the current state
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// CycleID identifies the current or most recent suggestion cycle. It is the
// zero UUID before the first Suggest.
func (w *Workflow) CycleID() uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cycleID
}

// Working returns a copy of the working set
func (w *Workflow) Working() []models.CanonicalTransaction {
	w.mu.Lock()
	defer w.mu.Unlock()
	return models.Clone(w.working)
}

// Edit sets a field of a row by hand. Edits are allowed in every state and
// are not recorded anywhere; provenance is derived from the snapshot.
func (w *Workflow) Edit(rowID int, field models.Field, value string) error {
	if !field.IsValid() {
		return errors.ValidationError(errors.CodeMissingField, "field", field, nil)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	i := indexOf(w.working, rowID)
	if i < 0 {
		return errors.ValidationError(errors.CodeMissingField, "row_id", rowID, nil).
			WithSuggestion("Edit a row that is part of the working set")
	}
	w.working[i].SetValue(field, value)
	return nil
}

// Suggest snapshots the working set, asks the predictor for field values and
// fills the empty debit, credit and reference fields with them. A leg field
// is only filled while the row has neither a debit nor a credit account, so
// every row keeps exactly one leg. Imported rows always carry one leg, which
// means a predicted counter-leg is skipped for them and only the reference
// number can be filled; leg predictions apply to rows whose leg was cleared.
// When the predictor fails or answers with an invalid result the working
// set, snapshot and state are left as they were.
func (w *Workflow) Suggest(ctx context.Context) (*Summary, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cycleID := uuid.New()
	log := w.logger.WithFields(logger.Fields{
		"cycle_id":       cycleID.String(),
		"previous_state": string(w.state),
		"rows":           len(w.working),
	})

	snapshot := models.Clone(w.working)

	var result *PredictionResult
	err := logger.TimedOperation("predict", log, func() error {
		var predictErr error
		result, predictErr = w.predictor.Predict(ctx, models.Clone(snapshot))
		return predictErr
	})
	if err != nil {
		return nil, errors.CollaboratorError(errors.CodePredictionFailed, "suggest", err).
			WithContext("cycle_id", cycleID.String())
	}
	if err := result.validate(); err != nil {
		log.WithError(err).Warn("Discarding prediction result")
		return nil, errors.CollaboratorError(errors.CodeInvalidResponse, "suggest", err).
			WithContext("cycle_id", cycleID.String())
	}

	working := models.Clone(snapshot)
	applied := overlay(working, result.Transactions)

	w.snapshot = snapshot
	w.working = working
	w.cycleID = cycleID
	w.state = StateSuggested

	summary := &Summary{
		CycleID:            cycleID,
		PatternsConsidered: result.PatternsConsidered,
		FieldCounts:        copyCounts(result.FieldCounts),
		Applied:            applied,
		Predictions:        len(result.Predictions),
		MeanConfidence:     meanConfidence(result.Predictions),
	}

	log.WithFields(logger.Fields{
		"patterns_considered": summary.PatternsConsidered,
		"predictions":         summary.Predictions,
		"applied":             summary.TotalApplied(),
	}).Info("Suggestions applied")

	return summary, nil
}

// Approve keeps the suggested values and discards the snapshot
func (w *Workflow) Approve() ([]models.CanonicalTransaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateSuggested {
		return nil, errors.PreconditionError("approve", string(w.state))
	}

	w.snapshot = nil
	w.state = StateApproved
	w.logger.WithField("cycle_id", w.cycleID.String()).Info("Suggestions approved")

	return models.Clone(w.working), nil
}

// Reject replaces the working set with the snapshot taken by the last
// Suggest and discards it
func (w *Workflow) Reject() ([]models.CanonicalTransaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateSuggested {
		return nil, errors.PreconditionError("reject", string(w.state))
	}

	w.working = w.snapshot
	w.snapshot = nil
	w.state = StateRejected
	w.logger.WithField("cycle_id", w.cycleID.String()).Info("Suggestions rejected")

	return models.Clone(w.working), nil
}

// IsPatternFilled reports whether the field of a row was empty in the
// snapshot and holds a value now. Without a snapshot nothing is
// pattern-filled.
func (w *Workflow) IsPatternFilled(rowID int, field models.Field) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.snapshot == nil {
		return false
	}
	i := indexOf(w.working, rowID)
	if i < 0 {
		return false
	}
	return patternFilled(w.snapshot, w.working[i], field)
}

// Provenance lists every pattern-filled field in working set order
func (w *Workflow) Provenance() []FilledField {
	w.mu.Lock()
	defer w.mu.Unlock()

	filled := []FilledField{}
	if w.snapshot == nil {
		return filled
	}
	for _, tx := range w.working {
		for _, f := range models.SuggestableFields {
			if patternFilled(w.snapshot, tx, f) {
				filled = append(filled, FilledField{RowID: tx.ID, Field: f, Value: tx.Value(f)})
			}
		}
	}
	return filled
}

func patternFilled(snapshot []models.CanonicalTransaction, current models.CanonicalTransaction, field models.Field) bool {
	i := indexOf(snapshot, current.ID)
	if i < 0 {
		return false
	}
	return snapshot[i].Value(field) == "" && current.Value(field) != ""
}

// overlay copies predicted values into empty fields of working, matching
// rows by ID, and returns how many fields it filled
func overlay(working, predicted []models.CanonicalTransaction) map[models.Field]int {
	applied := make(map[models.Field]int, len(models.SuggestableFields))
	byID := make(map[int]int, len(working))
	for i, tx := range working {
		byID[tx.ID] = i
	}

	for _, p := range predicted {
		i, ok := byID[p.ID]
		if !ok {
			continue
		}
		tx := &working[i]
		for _, f := range models.SuggestableFields {
			value := p.Value(f)
			if value == "" || tx.Value(f) != "" {
				continue
			}
			if (f == models.FieldDebit || f == models.FieldCredit) && (tx.Debit != "" || tx.Credit != "") {
				continue
			}
			tx.SetValue(f, value)
			applied[f]++
		}
	}
	return applied
}

func indexOf(txs []models.CanonicalTransaction, id int) int {
	for i := range txs {
		if txs[i].ID == id {
			return i
		}
	}
	return -1
}

func copyCounts(in map[models.Field]int) map[models.Field]int {
	out := make(map[models.Field]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func meanConfidence(predictions []Prediction) float64 {
	if len(predictions) == 0 {
		return 0
	}
	var sum float64
	for _, p := range predictions {
		sum += p.Confidence
	}
	return sum / float64(len(predictions))
}
