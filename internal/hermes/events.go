package hermes

import "time"

type PeriodEvent struct {
	PeriodID string `json:"period_id"`
	Name     string `json:"name,omitempty"`
	Scheme   string `json:"scheme,omitempty"`
}

type WeightsUpdatedEvent struct {
	PeriodID string             `json:"period_id"`
	Weights  map[string]float64 `json:"weights"`
}

type CriteriaChangedEvent struct {
	PeriodID    string `json:"period_id"`
	CriterionID string `json:"criterion_id"`
	Action      string `json:"action"` // created, updated, deleted
}

type CandidatesImportedEvent struct {
	PeriodID string `json:"period_id"`
	Count    int    `json:"count"`
	Source   string `json:"source"` // api, import
}

type PeriodChangedEvent struct {
	PeriodID string    `json:"period_id"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

type RankingComputedEvent struct {
	PeriodID       string    `json:"period_id"`
	CandidateCount int       `json:"candidate_count"`
	PassCount      int       `json:"pass_count"`
	DurationMs     float64   `json:"duration_ms"`
	ComputedAt     time.Time `json:"computed_at"`
}
