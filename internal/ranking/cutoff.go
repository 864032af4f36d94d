package ranking

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MikeSquared-Agency/Admissions/internal/scoring"
)

// DisplayPlaces is the number of decimals preferences are shown and compared with.
const DisplayPlaces = 4

// Cutoff decides which ranked candidates pass. A zero field disables that test.
type Cutoff struct {
	TopN      int     `json:"top_n"`
	Threshold float64 `json:"threshold"`
}

// Validate rejects negative limits and thresholds outside [0,1].
func (c Cutoff) Validate() error {
	if c.TopN < 0 {
		return fmt.Errorf("%w: top_n must not be negative", scoring.ErrInvalidInput)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: threshold must be in [0, 1], got %v", scoring.ErrInvalidInput, c.Threshold)
	}
	return nil
}

// Passes reports whether r clears the cutoff. The threshold is compared
// against the preference rounded to DisplayPlaces, so a candidate shown as
// 0.6000 passes a 0.6 threshold.
func (c Cutoff) Passes(r scoring.Result) bool {
	if c.TopN > 0 && r.Rank > c.TopN {
		return false
	}
	if c.Threshold > 0 {
		pref := decimal.NewFromFloat(r.Preference).Round(DisplayPlaces)
		if pref.LessThan(decimal.NewFromFloat(c.Threshold)) {
			return false
		}
	}
	return true
}

// StatusLabel is the pass/fail label used in exports.
func StatusLabel(pass bool) string {
	if pass {
		return "Lulus"
	}
	return "Tidak Lulus"
}
