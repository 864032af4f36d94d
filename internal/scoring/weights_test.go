package scoring

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultWeightsSumToOne(t *testing.T) {
	w := DefaultWeights()
	if err := w.Validate(); err != nil {
		t.Errorf("default weights invalid: %v", err)
	}
	if math.Abs(w.Sum()-1.0) > 0.001 {
		t.Errorf("default weights sum to %f, expected 1.0", w.Sum())
	}
}

func TestWeightSetValidate(t *testing.T) {
	tests := []struct {
		name string
		w    WeightSet
		ok   bool
	}{
		{"defaults", DefaultWeights(), true},
		{"within tolerance", WeightSet{0.2, 0.2, 0.1, 0.1, 0.1, 0.1, 0.2005}, true},
		{"bad sum", WeightSet{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}, false},
		{"zero weight", WeightSet{0.3, 0.2, 0.1, 0.1, 0.1, 0.2, 0}, true},
		{"single criterion", WeightSet{W1: 1}, true},
		{"all zero", WeightSet{}, false},
		{"negative weight", WeightSet{0.4, 0.2, 0.1, 0.1, 0.1, 0.2, -0.1}, false},
		{"above one", WeightSet{1.2, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.w.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestWeightSetListAlignment(t *testing.T) {
	if len(DefaultWeights().AsList()) != len(FixedCriteria) {
		t.Fatalf("weights and fixed criteria out of sync")
	}
	w := WeightSet{W1: 0.1, W2: 0.2, W3: 0.3, W4: 0.1, W5: 0.1, W6: 0.1, W7: 0.1}
	back, err := WeightSetFromList(w.AsList())
	if err != nil {
		t.Fatal(err)
	}
	if back != w {
		t.Errorf("expected %+v, got %+v", w, back)
	}
	if _, err := WeightSetFromList([]float64{1}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for short list, got %v", err)
	}
}

func TestValidateImportance(t *testing.T) {
	for _, v := range []float64{1, 3, 5} {
		if err := ValidateImportance(v); err != nil {
			t.Errorf("%v: unexpected error %v", v, err)
		}
	}
	for _, v := range []float64{0, 6, 2.5, -1} {
		if err := ValidateImportance(v); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%v: expected ErrInvalidInput, got %v", v, err)
		}
	}
}
