//go:build integration

package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
)

func setupTestDB(t *testing.T) *PostgresStore {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, "TRUNCATE admission_periods CASCADE")
		s.Close()
	})

	return s
}

func createDynamicPeriod(t *testing.T, s *PostgresStore, name string) (*Period, []*Criterion) {
	t.Helper()
	p := &Period{Name: name, Scheme: SchemeDynamic}
	criteria := []*Criterion{
		{Code: "math", Name: "Math", Polarity: PolarityBenefit, Weight: 5},
		{Code: "distance", Name: "Distance", Polarity: PolarityCost, Weight: 2},
	}
	if err := s.CreatePeriod(context.Background(), p, criteria); err != nil {
		t.Fatalf("CreatePeriod failed: %v", err)
	}
	return p, criteria
}

func TestCreateAndGetPeriod(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	p, criteria := createDynamicPeriod(t, s, "2026/2027")
	if p.ID == uuid.Nil {
		t.Fatal("expected non-nil period ID after create")
	}
	for i, c := range criteria {
		if c.ID == uuid.Nil {
			t.Errorf("criterion %d: expected ID", i)
		}
		if c.Position != i+1 {
			t.Errorf("criterion %d: expected position %d, got %d", i, i+1, c.Position)
		}
	}

	got, err := s.GetPeriod(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPeriod failed: %v", err)
	}
	if got == nil || got.Name != "2026/2027" || got.Scheme != SchemeDynamic {
		t.Fatalf("unexpected period: %+v", got)
	}

	listed, err := s.ListCriteria(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListCriteria failed: %v", err)
	}
	if len(listed) != 2 || listed[0].Code != "math" || listed[1].Polarity != PolarityCost {
		t.Errorf("unexpected criteria: %+v", listed)
	}

	missing, err := s.GetPeriod(ctx, uuid.New())
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing period, got %v, %v", missing, err)
	}
}

func TestDuplicatePeriodNameConflicts(t *testing.T) {
	s := setupTestDB(t)
	createDynamicPeriod(t, s, "dup")

	err := s.CreatePeriod(context.Background(), &Period{Name: "dup", Scheme: SchemeFixed}, nil)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestCandidatesRoundTrip(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	p, criteria := createDynamicPeriod(t, s, "round-trip")

	candidates := []*Candidate{
		{Name: "Sari", School: "SMA 1", Scores: map[uuid.UUID]float64{criteria[0].ID: 88, criteria[1].ID: 3}},
		{Name: "Andi", Gender: "L", Scores: map[uuid.UUID]float64{criteria[0].ID: 75}},
	}
	if err := s.CreateCandidates(ctx, p.ID, candidates); err != nil {
		t.Fatalf("CreateCandidates failed: %v", err)
	}

	listed, err := s.ListCandidates(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(listed))
	}
	if listed[0].Name != "Andi" {
		t.Errorf("expected candidates ordered by name, got %s first", listed[0].Name)
	}
	if len(listed[0].Scores) != 1 || listed[1].Scores[criteria[1].ID] != 3 {
		t.Errorf("unexpected scores: %v / %v", listed[0].Scores, listed[1].Scores)
	}

	sari := listed[1]
	sari.Scores = map[uuid.UUID]float64{criteria[0].ID: 90}
	if err := s.UpdateCandidate(ctx, sari); err != nil {
		t.Fatalf("UpdateCandidate failed: %v", err)
	}
	got, err := s.GetCandidate(ctx, sari.ID)
	if err != nil {
		t.Fatalf("GetCandidate failed: %v", err)
	}
	if len(got.Scores) != 1 || got.Scores[criteria[0].ID] != 90 {
		t.Errorf("expected score set replaced, got %v", got.Scores)
	}

	stats, err := s.GetPeriodStats(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPeriodStats failed: %v", err)
	}
	if stats.CandidateCount != 2 || stats.CriteriaCount != 2 || stats.ScoreCount != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestCreateCandidatesRejectsForeignCriterion(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	p, _ := createDynamicPeriod(t, s, "first")
	_, other := createDynamicPeriod(t, s, "second")

	err := s.CreateCandidates(ctx, p.ID, []*Candidate{
		{Name: "ok"},
		{Name: "bad", Scores: map[uuid.UUID]float64{other[0].ID: 1}},
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	listed, err := s.ListCandidates(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 0 {
		t.Errorf("expected import rolled back, found %d candidates", len(listed))
	}
}

func TestUpdateCriteriaWeightsAndDelete(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	p, criteria := createDynamicPeriod(t, s, "weights")

	err := s.UpdateCriteriaWeights(ctx, p.ID, map[uuid.UUID]float64{criteria[0].ID: 1, criteria[1].ID: 4})
	if err != nil {
		t.Fatalf("UpdateCriteriaWeights failed: %v", err)
	}
	c, err := s.GetCriterion(ctx, criteria[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if c.Weight != 4 {
		t.Errorf("expected weight 4, got %f", c.Weight)
	}

	if err := s.DeleteCriterion(ctx, criteria[1].ID); err != nil {
		t.Fatalf("DeleteCriterion failed: %v", err)
	}
	if err := s.DeleteCriterion(ctx, criteria[1].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}

	if err := s.DeletePeriod(ctx, p.ID); err != nil {
		t.Fatalf("DeletePeriod failed: %v", err)
	}
	remaining, err := s.ListCriteria(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected criteria cascade-deleted, got %d", len(remaining))
	}
}

func TestGetPeriodInputs(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	p, criteria := createDynamicPeriod(t, s, "inputs")

	if err := s.CreateCandidates(ctx, p.ID, []*Candidate{
		{Name: "Sari", Scores: map[uuid.UUID]float64{criteria[0].ID: 88, criteria[1].ID: 3}},
	}); err != nil {
		t.Fatalf("CreateCandidates failed: %v", err)
	}

	in, err := s.GetPeriodInputs(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPeriodInputs failed: %v", err)
	}
	if in.Period.Name != "inputs" || len(in.Criteria) != 2 || len(in.Candidates) != 1 {
		t.Fatalf("unexpected inputs: %+v", in)
	}
	if in.Candidates[0].Scores[criteria[1].ID] != 3 {
		t.Errorf("expected scores loaded, got %v", in.Candidates[0].Scores)
	}
	if !in.Period.UpdatedAt.After(p.UpdatedAt) {
		t.Errorf("expected import to bump updated_at past %v, got %v", p.UpdatedAt, in.Period.UpdatedAt)
	}

	missing, err := s.GetPeriodInputs(ctx, uuid.New())
	if err != nil {
		t.Fatalf("GetPeriodInputs failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown period, got %+v", missing)
	}
}

func TestZeroWeightAllowed(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	p, criteria := createDynamicPeriod(t, s, "zero-weight")

	if err := s.UpdateCriteriaWeights(ctx, p.ID, map[uuid.UUID]float64{criteria[1].ID: 0}); err != nil {
		t.Fatalf("UpdateCriteriaWeights failed: %v", err)
	}
	if err := s.UpdateCriteriaWeights(ctx, p.ID, map[uuid.UUID]float64{criteria[1].ID: -1}); err == nil {
		t.Error("expected negative weight rejected")
	}
}
