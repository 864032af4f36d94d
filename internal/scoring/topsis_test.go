package scoring

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
)

func benefit(id string, w float64) Criterion { return Criterion{ID: id, Weight: w, Polarity: Benefit} }
func cost(id string, w float64) Criterion    { return Criterion{ID: id, Weight: w, Polarity: Cost} }

func cand(id string, scores ...float64) Candidate {
	c := Candidate{ID: id, Name: id, Scores: map[string]float64{}}
	for j, v := range scores {
		c.Scores[fmt.Sprintf("c%d", j+1)] = v
	}
	return c
}

func resultByID(t *testing.T, results []Result, id string) Result {
	t.Helper()
	for _, r := range results {
		if r.CandidateID == id {
			return r
		}
	}
	t.Fatalf("candidate %s not in results", id)
	return Result{}
}

func TestRankSymmetricScenario(t *testing.T) {
	criteria := []Criterion{benefit("c1", 1), benefit("c2", 1)}
	candidates := []Candidate{cand("C", 5, 5), cand("B", 1, 9), cand("A", 9, 1)}

	results, err := Rank(criteria, candidates)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	wantOrder := []string{"A", "B", "C"}
	for i, r := range results {
		if r.CandidateID != wantOrder[i] {
			t.Errorf("position %d: expected %s, got %s", i, wantOrder[i], r.CandidateID)
		}
		if r.Rank != i+1 {
			t.Errorf("position %d: expected rank %d, got %d", i, i+1, r.Rank)
		}
		if math.Abs(r.Preference-0.5) > 1e-12 {
			t.Errorf("%s: expected preference 0.5, got %f", r.CandidateID, r.Preference)
		}
	}

	a := resultByID(t, results, "A")
	if math.Abs(a.DPlus-0.386694595618) > 1e-9 || math.Abs(a.DMinus-0.386694595618) > 1e-9 {
		t.Errorf("A distances: got d+=%f d-=%f", a.DPlus, a.DMinus)
	}
	c := resultByID(t, results, "C")
	if math.Abs(c.DPlus-0.273434370810) > 1e-9 || math.Abs(c.DMinus-0.273434370810) > 1e-9 {
		t.Errorf("C distances: got d+=%f d-=%f", c.DPlus, c.DMinus)
	}
}

func TestRankMixedPolarity(t *testing.T) {
	criteria := []Criterion{benefit("c1", 3), cost("c2", 2)}
	candidates := []Candidate{cand("x", 80, 10), cand("y", 60, 5), cand("z", 90, 20)}

	results, err := Rank(criteria, candidates)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	tests := []struct {
		id     string
		rank   int
		dPlus  float64
		dMinus float64
		pref   float64
	}{
		{"x", 1, 0.098020395303, 0.196040790605, 0.666666666667},
		{"y", 2, 0.133792946324, 0.261861468283, 0.661843918873},
		{"z", 3, 0.261861468283, 0.133792946324, 0.338156081127},
	}
	for _, tt := range tests {
		r := resultByID(t, results, tt.id)
		if r.Rank != tt.rank {
			t.Errorf("%s: expected rank %d, got %d", tt.id, tt.rank, r.Rank)
		}
		if math.Abs(r.DPlus-tt.dPlus) > 1e-9 {
			t.Errorf("%s: d+ got %.12f, want %.12f", tt.id, r.DPlus, tt.dPlus)
		}
		if math.Abs(r.DMinus-tt.dMinus) > 1e-9 {
			t.Errorf("%s: d- got %.12f, want %.12f", tt.id, r.DMinus, tt.dMinus)
		}
		if math.Abs(r.Preference-tt.pref) > 1e-9 {
			t.Errorf("%s: preference got %.12f, want %.12f", tt.id, r.Preference, tt.pref)
		}
	}
}

func TestRankSingleCandidate(t *testing.T) {
	results, err := Rank([]Criterion{benefit("c1", 1)}, []Candidate{cand("solo", 7)})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Preference != 0 {
		t.Errorf("expected preference 0 for single candidate, got %f", results[0].Preference)
	}
	if results[0].Rank != 1 {
		t.Errorf("expected rank 1, got %d", results[0].Rank)
	}
}

func TestPolarity(t *testing.T) {
	candidates := []Candidate{cand("mid", 5), cand("low", 2), cand("high", 9)}

	t.Run("benefit", func(t *testing.T) {
		results, err := Rank([]Criterion{benefit("c1", 1)}, candidates)
		if err != nil {
			t.Fatal(err)
		}
		if results[0].CandidateID != "high" {
			t.Errorf("expected high to rank first, got %s", results[0].CandidateID)
		}
		if results[0].Preference != 1 {
			t.Errorf("expected preference 1 for the ideal candidate, got %f", results[0].Preference)
		}
	})

	t.Run("cost", func(t *testing.T) {
		results, err := Rank([]Criterion{cost("c1", 1)}, candidates)
		if err != nil {
			t.Fatal(err)
		}
		if results[0].CandidateID != "low" {
			t.Errorf("expected low to rank first, got %s", results[0].CandidateID)
		}
		if results[2].CandidateID != "high" {
			t.Errorf("expected high to rank last, got %s", results[2].CandidateID)
		}
	})
}

func TestWeightScaleInvariance(t *testing.T) {
	candidates := []Candidate{
		cand("a", 80, 3, 12), cand("b", 65, 5, 9), cand("c", 90, 2, 15), cand("d", 72, 4, 11),
	}
	base := []Criterion{benefit("c1", 5), benefit("c2", 2), cost("c3", 3)}

	want, err := Rank(base, candidates)
	if err != nil {
		t.Fatal(err)
	}

	for _, k := range []float64{0.01, 0.2, 7, 1000} {
		scaled := make([]Criterion, len(base))
		for i, c := range base {
			c.Weight *= k
			scaled[i] = c
		}
		got, err := Rank(scaled, candidates)
		if err != nil {
			t.Fatal(err)
		}
		for i := range want {
			if got[i].CandidateID != want[i].CandidateID || got[i].Rank != want[i].Rank {
				t.Errorf("k=%v position %d: got %s, want %s", k, i, got[i].CandidateID, want[i].CandidateID)
			}
			if math.Abs(got[i].Preference-want[i].Preference) > 1e-9 {
				t.Errorf("k=%v %s: preference %f, want %f", k, got[i].CandidateID, got[i].Preference, want[i].Preference)
			}
		}
	}
}

func TestDegenerateColumn(t *testing.T) {
	candidates := []Candidate{cand("a", 80, 0), cand("b", 60, 0), cand("c", 70, 0)}

	ev, err := Evaluate([]Criterion{benefit("c1", 1), benefit("c2", 1)}, candidates)
	if err != nil {
		t.Fatalf("expected no error for zero column, got %v", err)
	}
	if !reflect.DeepEqual(ev.DegenerateCriteria, []string{"c2"}) {
		t.Errorf("expected c2 reported degenerate, got %v", ev.DegenerateCriteria)
	}

	without, err := Rank([]Criterion{benefit("c1", 1)}, candidates)
	if err != nil {
		t.Fatal(err)
	}
	for i := range without {
		if ev.Results[i].CandidateID != without[i].CandidateID {
			t.Errorf("position %d: got %s, want %s", i, ev.Results[i].CandidateID, without[i].CandidateID)
		}
		if math.Abs(ev.Results[i].Preference-without[i].Preference) > 1e-9 {
			t.Errorf("%s: preference %f, want %f", without[i].CandidateID, ev.Results[i].Preference, without[i].Preference)
		}
	}
}

func TestMissingScoresTreatedAsZero(t *testing.T) {
	criteria := []Criterion{benefit("c1", 1), benefit("c2", 1)}
	partial := Candidate{ID: "p", Name: "p", Scores: map[string]float64{"c1": 8}}
	explicit := Candidate{ID: "p", Name: "p", Scores: map[string]float64{"c1": 8, "c2": 0}}
	other := cand("o", 4, 6)

	ev, err := Evaluate(criteria, []Candidate{partial, other})
	if err != nil {
		t.Fatal(err)
	}
	if len(ev.MissingScores) != 1 || ev.MissingScores[0] != (MissingScore{CandidateID: "p", CriterionID: "c2"}) {
		t.Errorf("unexpected missing scores: %v", ev.MissingScores)
	}

	want, err := Rank(criteria, []Candidate{explicit, other})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ev.Results, want) {
		t.Errorf("missing score should rank as zero:\n got %+v\nwant %+v", ev.Results, want)
	}
}

func TestAllIdenticalCandidates(t *testing.T) {
	candidates := []Candidate{cand("b", 5, 5), cand("a", 5, 5), cand("c", 5, 5)}
	ev, err := Evaluate([]Criterion{benefit("c1", 1), benefit("c2", 1)}, candidates)
	if err != nil {
		t.Fatal(err)
	}
	if len(ev.DegenerateCandidates) != 3 {
		t.Errorf("expected 3 degenerate candidates, got %v", ev.DegenerateCandidates)
	}
	for i, want := range []string{"a", "b", "c"} {
		if ev.Results[i].CandidateID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, ev.Results[i].CandidateID)
		}
		if ev.Results[i].Preference != 0 {
			t.Errorf("%s: expected preference floor 0, got %f", want, ev.Results[i].Preference)
		}
	}
}

func TestTieBreakByNameThenID(t *testing.T) {
	candidates := []Candidate{
		{ID: "id-2", Name: "Sari", Scores: map[string]float64{"c1": 1, "c2": 9}},
		{ID: "id-1", Name: "Sari", Scores: map[string]float64{"c1": 9, "c2": 1}},
		{ID: "id-0", Name: "Budi", Scores: map[string]float64{"c1": 5, "c2": 5}},
	}
	results, err := Rank([]Criterion{benefit("c1", 1), benefit("c2", 1)}, candidates)
	if err != nil {
		t.Fatal(err)
	}
	got := []string{results[0].CandidateID, results[1].CandidateID, results[2].CandidateID}
	want := []string{"id-0", "id-1", "id-2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected order %v, got %v", want, got)
	}
}

func TestRankInvariants(t *testing.T) {
	criteria := []Criterion{benefit("c1", 4), cost("c2", 1), benefit("c3", 2.5)}
	var candidates []Candidate
	for i := 0; i < 25; i++ {
		candidates = append(candidates, cand(
			fmt.Sprintf("cand-%02d", i),
			float64((i*37)%100),
			float64((i*13)%17),
			float64((i*7)%5),
		))
	}

	first, err := Rank(criteria, candidates)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(candidates) {
		t.Fatalf("expected %d results, got %d", len(candidates), len(first))
	}

	seen := make(map[int]bool)
	for i, r := range first {
		if r.Preference < 0 || r.Preference > 1 {
			t.Errorf("%s: preference %f out of [0,1]", r.CandidateID, r.Preference)
		}
		if r.Rank != i+1 {
			t.Errorf("%s: expected rank %d at position %d, got %d", r.CandidateID, i+1, i, r.Rank)
		}
		if seen[r.Rank] {
			t.Errorf("duplicate rank %d", r.Rank)
		}
		seen[r.Rank] = true
		if i > 0 && first[i-1].Preference+tieEpsilon < r.Preference {
			t.Errorf("results not sorted by preference at %d", i)
		}
	}

	second, err := Rank(criteria, candidates)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated ranking over identical input differs")
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	candidates := []Candidate{cand("b", 2, 3), cand("a", 4, 1)}
	_, err := Rank([]Criterion{benefit("c1", 1), cost("c2", 1)}, candidates)
	if err != nil {
		t.Fatal(err)
	}
	if candidates[0].ID != "b" || candidates[0].Scores["c1"] != 2 {
		t.Errorf("input candidates were modified: %+v", candidates)
	}
}

func TestRankInvalidInput(t *testing.T) {
	ok := []Candidate{cand("a", 1)}
	tests := []struct {
		name       string
		criteria   []Criterion
		candidates []Candidate
	}{
		{"no criteria", nil, ok},
		{"no candidates", []Criterion{benefit("c1", 1)}, nil},
		{"zero weight", []Criterion{benefit("c1", 0)}, ok},
		{"negative weight", []Criterion{benefit("c1", -2)}, ok},
		{"nan weight", []Criterion{benefit("c1", math.NaN())}, ok},
		{"bad polarity", []Criterion{{ID: "c1", Weight: 1, Polarity: "neutral"}}, ok},
		{"duplicate id", []Criterion{benefit("c1", 1), cost("c1", 1)}, ok},
		{"empty id", []Criterion{benefit("", 1)}, ok},
		{"infinite score", []Criterion{benefit("c1", 1)}, []Candidate{cand("a", math.Inf(1))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Rank(tt.criteria, tt.candidates)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestNegativeScoresAccepted(t *testing.T) {
	results, err := Rank([]Criterion{benefit("c1", 1)}, []Candidate{cand("a", -3), cand("b", 4)})
	if err != nil {
		t.Fatalf("engine should not reject negative scores: %v", err)
	}
	if results[0].CandidateID != "b" {
		t.Errorf("expected b first, got %s", results[0].CandidateID)
	}
}

func TestLargeScoresDoNotOverflow(t *testing.T) {
	results, err := Rank([]Criterion{benefit("c1", 1)}, []Candidate{cand("a", 1e200), cand("b", 5e199)})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	a := resultByID(t, results, "a")
	b := resultByID(t, results, "b")
	if a.Rank != 1 || math.Abs(a.Preference-1) > 1e-12 {
		t.Errorf("a: expected rank 1 with preference 1, got rank %d pref %f", a.Rank, a.Preference)
	}
	if math.Abs(b.Preference) > 1e-12 {
		t.Errorf("b: expected preference 0, got %f", b.Preference)
	}
	if math.IsNaN(a.DMinus) || a.DMinus == 0 {
		t.Errorf("a: expected a positive distance to the anti-ideal, got %f", a.DMinus)
	}
}
