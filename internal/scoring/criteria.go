package scoring

import (
	"fmt"
	"math"
)

// Polarity says whether a higher raw value is better (benefit) or worse (cost).
type Polarity string

const (
	Benefit Polarity = "benefit"
	Cost    Polarity = "cost"
)

// Valid reports whether p is a known polarity.
func (p Polarity) Valid() bool {
	return p == Benefit || p == Cost
}

// Criterion is one evaluated dimension. Weights need not sum to 1; the engine
// normalizes them.
type Criterion struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Weight   float64  `json:"weight"`
	Polarity Polarity `json:"polarity"`
}

// Validate checks the weight is a positive finite number and the polarity is known.
func (c Criterion) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: criterion id is required", ErrInvalidInput)
	}
	if math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) || c.Weight <= 0 {
		return fmt.Errorf("%w: criterion %q weight must be positive, got %v", ErrInvalidInput, c.ID, c.Weight)
	}
	if !c.Polarity.Valid() {
		return fmt.Errorf("%w: criterion %q has unknown polarity %q", ErrInvalidInput, c.ID, c.Polarity)
	}
	return nil
}

// Candidate is one row of the decision matrix. Scores are keyed by criterion id.
type Candidate struct {
	ID     string             `json:"candidate_id"`
	Name   string             `json:"name"`
	Scores map[string]float64 `json:"scores"`
}
