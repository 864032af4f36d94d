package scoring

import (
	"fmt"
	"math"
)

// FixedCriterion describes one of the seven criteria of the fixed weighting scheme.
type FixedCriterion struct {
	Code string
	Name string
}

// FixedCriteria is the canonical criteria list of the fixed scheme, in w1..w7 order.
var FixedCriteria = []FixedCriterion{
	{Code: "nilai_rata_rata", Name: "Nilai Rata-rata"},
	{Code: "nilai_matematika", Name: "Nilai Matematika"},
	{Code: "minat_teknologi", Name: "Minat Teknologi"},
	{Code: "minat_eksat", Name: "Minat Eksakta"},
	{Code: "analisis", Name: "Kemampuan Analisis"},
	{Code: "verbal", Name: "Kemampuan Verbal"},
	{Code: "numerik", Name: "Kemampuan Numerik"},
}

// Importance bounds for dynamic criteria weights.
const (
	MinImportance = 1
	MaxImportance = 5
)

// WeightSet holds the fractional weights of the fixed scheme.
// All weights must sum to 1.0 (±0.001 tolerance).
type WeightSet struct {
	W1 float64 `json:"w1" yaml:"w1"`
	W2 float64 `json:"w2" yaml:"w2"`
	W3 float64 `json:"w3" yaml:"w3"`
	W4 float64 `json:"w4" yaml:"w4"`
	W5 float64 `json:"w5" yaml:"w5"`
	W6 float64 `json:"w6" yaml:"w6"`
	W7 float64 `json:"w7" yaml:"w7"`
}

// DefaultWeights returns the dashboard's initial weight distribution.
func DefaultWeights() WeightSet {
	return WeightSet{
		W1: 0.15,
		W2: 0.15,
		W3: 0.15,
		W4: 0.15,
		W5: 0.15,
		W6: 0.15,
		W7: 0.10,
	}
}

// Sum returns the total of all weights.
func (w WeightSet) Sum() float64 {
	var sum float64
	for _, v := range w.AsList() {
		sum += v
	}
	return sum
}

// Validate checks that weights sum to 1.0 and each lies in [0, 1]. A zero
// weight switches its criterion off.
func (w WeightSet) Validate() error {
	for i, v := range w.AsList() {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: w%d must be in [0, 1], got %v", ErrInvalidInput, i+1, v)
		}
	}
	if math.Abs(w.Sum()-1.0) > 0.001 {
		return fmt.Errorf("%w: weights sum to %.4f, must sum to 1.0", ErrInvalidInput, w.Sum())
	}
	return nil
}

// AsList returns the weights in w1..w7 order, aligned with FixedCriteria.
func (w WeightSet) AsList() []float64 {
	return []float64{w.W1, w.W2, w.W3, w.W4, w.W5, w.W6, w.W7}
}

// WeightSetFromList is the inverse of AsList.
func WeightSetFromList(vs []float64) (WeightSet, error) {
	if len(vs) != len(FixedCriteria) {
		return WeightSet{}, fmt.Errorf("%w: expected %d weights, got %d", ErrInvalidInput, len(FixedCriteria), len(vs))
	}
	return WeightSet{W1: vs[0], W2: vs[1], W3: vs[2], W4: vs[3], W5: vs[4], W6: vs[5], W7: vs[6]}, nil
}

// ValidateImportance checks a dynamic criterion weight is an integer level in [1,5].
func ValidateImportance(weight float64) error {
	if weight != math.Trunc(weight) || weight < MinImportance || weight > MaxImportance {
		return fmt.Errorf("%w: importance must be an integer in [%d, %d], got %v", ErrInvalidInput, MinImportance, MaxImportance, weight)
	}
	return nil
}
