package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type WeightScheme string

const (
	SchemeFixed   WeightScheme = "fixed"
	SchemeDynamic WeightScheme = "dynamic"
)

type Polarity string

const (
	PolarityBenefit Polarity = "benefit"
	PolarityCost    Polarity = "cost"
)

type Period struct {
	ID        uuid.UUID    `json:"id"`
	Name      string       `json:"name"`
	Scheme    WeightScheme `json:"scheme"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type Criterion struct {
	ID       uuid.UUID `json:"id"`
	PeriodID uuid.UUID `json:"period_id"`
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	Polarity Polarity  `json:"polarity"`
	// Weight is a fraction in the fixed scheme and an importance level 1..5
	// in the dynamic scheme.
	Weight    float64   `json:"weight"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

type Candidate struct {
	ID       uuid.UUID `json:"id"`
	PeriodID uuid.UUID `json:"period_id"`
	Name     string    `json:"name"`
	Gender   string    `json:"gender,omitempty"`
	School   string    `json:"school,omitempty"`
	Major    string    `json:"major,omitempty"`
	Contact  string    `json:"contact,omitempty"`
	Address  string    `json:"address,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Scores holds raw values keyed by criterion id. Absent keys are unscored.
	Scores map[uuid.UUID]float64 `json:"scores"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PeriodStats struct {
	PeriodID       uuid.UUID `json:"period_id"`
	CriteriaCount  int       `json:"criteria_count"`
	CandidateCount int       `json:"candidate_count"`
	ScoreCount     int       `json:"score_count"`
}

// PeriodInputs is everything the engine reads for one period, taken from a
// single consistent snapshot.
type PeriodInputs struct {
	Period     *Period
	Criteria   []*Criterion
	Candidates []*Candidate
}

type Store interface {
	// Periods
	CreatePeriod(ctx context.Context, p *Period, criteria []*Criterion) error
	GetPeriod(ctx context.Context, id uuid.UUID) (*Period, error)
	ListPeriods(ctx context.Context) ([]*Period, error)
	DeletePeriod(ctx context.Context, id uuid.UUID) error
	GetPeriodStats(ctx context.Context, id uuid.UUID) (*PeriodStats, error)
	// GetPeriodInputs returns nil when the period does not exist.
	GetPeriodInputs(ctx context.Context, id uuid.UUID) (*PeriodInputs, error)

	// Criteria
	ListCriteria(ctx context.Context, periodID uuid.UUID) ([]*Criterion, error)
	GetCriterion(ctx context.Context, id uuid.UUID) (*Criterion, error)
	CreateCriterion(ctx context.Context, c *Criterion) error
	UpdateCriterion(ctx context.Context, c *Criterion) error
	DeleteCriterion(ctx context.Context, id uuid.UUID) error
	UpdateCriteriaWeights(ctx context.Context, periodID uuid.UUID, weights map[uuid.UUID]float64) error

	// Candidates and scores
	CreateCandidates(ctx context.Context, periodID uuid.UUID, candidates []*Candidate) error
	GetCandidate(ctx context.Context, id uuid.UUID) (*Candidate, error)
	ListCandidates(ctx context.Context, periodID uuid.UUID) ([]*Candidate, error)
	UpdateCandidate(ctx context.Context, c *Candidate) error
	DeleteCandidate(ctx context.Context, id uuid.UUID) error

	Close() error
}
