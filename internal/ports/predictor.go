package ports

import (
	"context"

	"mtPilotBot/internal/domain"
)

// Prediction is the output of an external model consulted alongside the
// rule-based scorer.
type Prediction struct {
	Action     domain.Action
	Confidence float64 // in [0,1]
}

// Predictor is an optional collaborator backed by a learned model. The signal
// pipeline is fully functional without one; when present, a prediction may
// veto a scored decision but never creates one on its own.
type Predictor interface {
	// Predict evaluates a feature vector derived from the latest snapshot.
	Predict(ctx context.Context, features []float64) (*Prediction, error)
}
