package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidInput is returned when the engine cannot rank the given input.
// Retrying with the same input yields the same error.
var ErrInvalidInput = errors.New("invalid input")

// tieEpsilon is the granularity at which two preference values are
// considered equal for ranking purposes.
const tieEpsilon = 1e-9

// Result is the engine output for a single candidate.
type Result struct {
	CandidateID string  `json:"candidate_id"`
	Name        string  `json:"name"`
	DPlus       float64 `json:"d_plus"`
	DMinus      float64 `json:"d_minus"`
	Preference  float64 `json:"preference"`
	Rank        int     `json:"rank"`
}

// MissingScore names a (candidate, criterion) pair that had no value and was
// ranked as zero.
type MissingScore struct {
	CandidateID string `json:"candidate_id"`
	CriterionID string `json:"criterion_id"`
}

// Evaluation is a ranking together with the degenerate cases absorbed while
// computing it.
type Evaluation struct {
	Results []Result `json:"results"`

	// DegenerateCriteria lists criteria whose column norm was zero.
	DegenerateCriteria []string `json:"degenerate_criteria,omitempty"`
	// DegenerateCandidates lists candidates sitting on both reference points.
	DegenerateCandidates []string       `json:"degenerate_candidates,omitempty"`
	MissingScores        []MissingScore `json:"missing_scores,omitempty"`
}

// Rank orders candidates by TOPSIS closeness to the ideal solution.
// The returned slice is sorted by rank ascending.
func Rank(criteria []Criterion, candidates []Candidate) ([]Result, error) {
	ev, err := Evaluate(criteria, candidates)
	if err != nil {
		return nil, err
	}
	return ev.Results, nil
}

// Evaluate runs vector-normalized TOPSIS over the decision matrix built from
// candidates × criteria.
//
//	w_j      = weight_j / Σ weight
//	V[i][j]  = X[i][j] / ||X[·][j]|| * w_j
//	d+ / d-  = euclidean distance to ideal / anti-ideal
//	pref     = d- / (d+ + d-)
func Evaluate(criteria []Criterion, candidates []Candidate) (*Evaluation, error) {
	if err := validate(criteria, candidates); err != nil {
		return nil, err
	}

	n, m := len(candidates), len(criteria)
	ev := &Evaluation{}

	var weightSum float64
	for _, c := range criteria {
		weightSum += c.Weight
	}

	matrix := make([][]float64, n)
	for i, cand := range candidates {
		row := make([]float64, m)
		for j, c := range criteria {
			v, ok := cand.Scores[c.ID]
			if !ok {
				ev.MissingScores = append(ev.MissingScores, MissingScore{CandidateID: cand.ID, CriterionID: c.ID})
			}
			row[j] = v
		}
		matrix[i] = row
	}

	ideal := make([]float64, m)
	anti := make([]float64, m)
	for j, c := range criteria {
		norm := columnNorm(matrix, j)
		w := c.Weight / weightSum

		for i := range matrix {
			if norm == 0 {
				matrix[i][j] = 0
				continue
			}
			matrix[i][j] = matrix[i][j] / norm * w
		}
		if norm == 0 {
			ev.DegenerateCriteria = append(ev.DegenerateCriteria, c.ID)
		}

		lo, hi := columnBounds(matrix, j)
		if c.Polarity == Cost {
			ideal[j], anti[j] = lo, hi
		} else {
			ideal[j], anti[j] = hi, lo
		}
	}

	results := make([]Result, n)
	for i, cand := range candidates {
		dPlus := distance(matrix[i], ideal)
		dMinus := distance(matrix[i], anti)

		var pref float64
		if denom := dPlus + dMinus; denom > 0 {
			pref = dMinus / denom
		} else {
			ev.DegenerateCandidates = append(ev.DegenerateCandidates, cand.ID)
		}

		results[i] = Result{
			CandidateID: cand.ID,
			Name:        cand.Name,
			DPlus:       dPlus,
			DMinus:      dMinus,
			Preference:  pref,
		}
	}

	sortResults(results)
	for i := range results {
		results[i].Rank = i + 1
	}
	ev.Results = results
	return ev, nil
}

func validate(criteria []Criterion, candidates []Candidate) error {
	if len(criteria) == 0 {
		return fmt.Errorf("%w: at least one criterion is required", ErrInvalidInput)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("%w: at least one candidate is required", ErrInvalidInput)
	}

	seen := make(map[string]bool, len(criteria))
	for _, c := range criteria {
		if err := c.Validate(); err != nil {
			return err
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: duplicate criterion %q", ErrInvalidInput, c.ID)
		}
		seen[c.ID] = true
	}

	for _, cand := range candidates {
		for id, v := range cand.Scores {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: candidate %q has non-finite score for %q", ErrInvalidInput, cand.ID, id)
			}
		}
	}
	return nil
}

// columnNorm is the euclidean norm of column j. Values are scaled by the
// column's largest magnitude first so squaring cannot overflow.
func columnNorm(matrix [][]float64, j int) float64 {
	var scale float64
	for i := range matrix {
		scale = math.Max(scale, math.Abs(matrix[i][j]))
	}
	if scale == 0 {
		return 0
	}
	var sumSq float64
	for i := range matrix {
		x := matrix[i][j] / scale
		sumSq += x * x
	}
	return scale * math.Sqrt(sumSq)
}

func columnBounds(matrix [][]float64, j int) (lo, hi float64) {
	lo, hi = matrix[0][j], matrix[0][j]
	for i := 1; i < len(matrix); i++ {
		if v := matrix[i][j]; v < lo {
			lo = v
		} else if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func distance(row, ref []float64) float64 {
	var sum float64
	for j := range row {
		d := row[j] - ref[j]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// sortResults orders by preference descending. Preferences equal at
// tieEpsilon granularity fall back to name, then candidate id.
func sortResults(results []Result) {
	sort.SliceStable(results, func(a, b int) bool {
		pa, pb := tieKey(results[a].Preference), tieKey(results[b].Preference)
		if pa != pb {
			return pa > pb
		}
		if results[a].Name != results[b].Name {
			return results[a].Name < results[b].Name
		}
		return results[a].CandidateID < results[b].CandidateID
	})
}

func tieKey(p float64) float64 {
	return math.Round(p / tieEpsilon)
}
