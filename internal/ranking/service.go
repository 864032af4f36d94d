package ranking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/MikeSquared-Agency/Admissions/internal/hermes"
	"github.com/MikeSquared-Agency/Admissions/internal/metrics"
	"github.com/MikeSquared-Agency/Admissions/internal/scoring"
	"github.com/MikeSquared-Agency/Admissions/internal/store"
)

// ErrPeriodNotFound is returned when ranking a period that does not exist.
var ErrPeriodNotFound = fmt.Errorf("period %w", store.ErrNotFound)

// computeTimeout bounds a shared computation, which outlives the request
// that started it.
const computeTimeout = 30 * time.Second

// Entry is one ranked candidate with its pass flag.
type Entry struct {
	scoring.Result
	Pass bool `json:"pass"`
}

// Ranking is the computed ranking of a period with the cutoff applied.
type Ranking struct {
	PeriodID   uuid.UUID `json:"period_id"`
	PeriodName string    `json:"period_name"`
	ComputedAt time.Time `json:"computed_at"`
	Cutoff     Cutoff    `json:"cutoff"`
	PassCount  int       `json:"pass_count"`
	Results    []Entry   `json:"results"`

	MissingScores        []scoring.MissingScore `json:"missing_scores,omitempty"`
	DegenerateCriteria   []string               `json:"degenerate_criteria,omitempty"`
	DegenerateCandidates []string               `json:"degenerate_candidates,omitempty"`
	// Frontier lists candidates no other candidate dominates on every criterion.
	Frontier []string `json:"frontier,omitempty"`
}

type Options struct {
	Cutoff       Cutoff
	CacheEnabled bool
}

// snapshot is a cached computation, independent of any cutoff.
type snapshot struct {
	period     *store.Period
	eval       *scoring.Evaluation
	frontier   []string
	computedAt time.Time
}

// Service loads a period's inputs, runs the engine and caches the result
// until the period's inputs change.
type Service struct {
	store  store.Store
	hermes hermes.Client
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	sf    singleflight.Group
	mu    sync.Mutex
	cache map[uuid.UUID]*snapshot
	gen   map[uuid.UUID]uint64
}

func NewService(s store.Store, h hermes.Client, opts Options, logger *slog.Logger) *Service {
	return &Service{
		store:  s,
		hermes: h,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		cache:  make(map[uuid.UUID]*snapshot),
		gen:    make(map[uuid.UUID]uint64),
	}
}

// DefaultCutoff returns the configured cutoff.
func (s *Service) DefaultCutoff() Cutoff {
	return s.opts.Cutoff
}

// Ranking returns the ranking of a period with cutoff applied.
func (s *Service) Ranking(ctx context.Context, periodID uuid.UUID, cutoff Cutoff) (*Ranking, error) {
	if err := cutoff.Validate(); err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx, periodID)
	if err != nil {
		return nil, err
	}

	return Apply(periodID, snap.period.Name, snap.computedAt, snap.eval, snap.frontier, cutoff), nil
}

// Apply builds the ranking view of an evaluation with cutoff applied.
func Apply(periodID uuid.UUID, periodName string, computedAt time.Time, eval *scoring.Evaluation, frontier []string, cutoff Cutoff) *Ranking {
	r := &Ranking{
		PeriodID:             periodID,
		PeriodName:           periodName,
		ComputedAt:           computedAt,
		Cutoff:               cutoff,
		Results:              make([]Entry, len(eval.Results)),
		MissingScores:        eval.MissingScores,
		DegenerateCriteria:   eval.DegenerateCriteria,
		DegenerateCandidates: eval.DegenerateCandidates,
		Frontier:             frontier,
	}
	for i, res := range eval.Results {
		pass := cutoff.Passes(res)
		if pass {
			r.PassCount++
		}
		r.Results[i] = Entry{Result: res, Pass: pass}
	}
	return r
}

func (s *Service) snapshot(ctx context.Context, periodID uuid.UUID) (*snapshot, error) {
	s.mu.Lock()
	gen := s.gen[periodID]
	cached := s.cache[periodID]
	s.mu.Unlock()

	if s.opts.CacheEnabled {
		if cached != nil {
			current, err := s.current(ctx, periodID, cached)
			if err != nil {
				return nil, err
			}
			if current {
				metrics.RankingCache.WithLabelValues("hit").Inc()
				return cached, nil
			}
			gen = s.drop(periodID, cached)
		}
		metrics.RankingCache.WithLabelValues("miss").Inc()
	}

	// Callers only share a computation that started under the generation
	// they observed.
	key := periodID.String() + "/" + strconv.FormatUint(gen, 10)
	ch := s.sf.DoChan(key, func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), computeTimeout)
		defer cancel()

		snap, err := s.compute(cctx, periodID)
		if err != nil {
			return nil, err
		}

		if s.opts.CacheEnabled {
			s.mu.Lock()
			if s.gen[periodID] == gen {
				s.cache[periodID] = snap
			}
			s.mu.Unlock()
		}
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*snapshot), nil
	}
}

// current reports whether the period is unchanged since snap was computed.
func (s *Service) current(ctx context.Context, periodID uuid.UUID, snap *snapshot) (bool, error) {
	p, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return false, fmt.Errorf("get period: %w", err)
	}
	return p != nil && p.UpdatedAt.Equal(snap.period.UpdatedAt), nil
}

// drop evicts snap if it is still the cached entry and returns the
// generation a recompute must run under.
func (s *Service) drop(periodID uuid.UUID, snap *snapshot) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache[periodID] == snap {
		delete(s.cache, periodID)
		s.gen[periodID]++
	}
	return s.gen[periodID]
}

func (s *Service) compute(ctx context.Context, periodID uuid.UUID) (*snapshot, error) {
	start := s.now()

	in, err := s.store.GetPeriodInputs(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("load period inputs: %w", err)
	}
	if in == nil {
		return nil, ErrPeriodNotFound
	}
	period, criteria, candidates := in.Period, in.Criteria, in.Candidates

	engineCriteria := ToEngineCriteria(criteria)
	engineCandidates := ToEngineCandidates(candidates)

	eval, err := scoring.Evaluate(engineCriteria, engineCandidates)
	if err != nil {
		outcome := "error"
		if errors.Is(err, scoring.ErrInvalidInput) {
			outcome = "invalid_input"
		}
		metrics.RankingComputations.WithLabelValues(outcome).Inc()
		return nil, err
	}

	snap := &snapshot{
		period:     period,
		eval:       eval,
		frontier:   scoring.ComputeFrontier(engineCriteria, engineCandidates),
		computedAt: s.now(),
	}
	elapsed := snap.computedAt.Sub(start)

	metrics.RankingComputations.WithLabelValues("ok").Inc()
	metrics.RankingDuration.Observe(elapsed.Seconds())
	metrics.RankedCandidates.Observe(float64(len(eval.Results)))

	if len(eval.DegenerateCriteria) > 0 {
		s.logger.Warn("criteria with all-zero scores ignored",
			"period_id", periodID, "criteria", eval.DegenerateCriteria)
	}
	if len(eval.MissingScores) > 0 {
		s.logger.Warn("unscored entries ranked as zero",
			"period_id", periodID, "missing", len(eval.MissingScores))
	}
	s.logger.Debug("ranking computed",
		"period_id", periodID,
		"candidates", len(eval.Results),
		"criteria", len(criteria),
		"duration_ms", elapsed.Milliseconds(),
	)

	if s.hermes != nil {
		_ = s.hermes.Publish(hermes.SubjectRankingComputed(periodID.String()), hermes.RankingComputedEvent{
			PeriodID:       periodID.String(),
			CandidateCount: len(eval.Results),
			PassCount:      s.passCount(eval.Results),
			DurationMs:     float64(elapsed.Microseconds()) / 1000,
			ComputedAt:     snap.computedAt,
		})
	}
	return snap, nil
}

func (s *Service) passCount(results []scoring.Result) int {
	n := 0
	for _, r := range results {
		if s.opts.Cutoff.Passes(r) {
			n++
		}
	}
	return n
}

// Invalidate drops the cached ranking of a period on this instance.
func (s *Service) Invalidate(periodID uuid.UUID) {
	s.mu.Lock()
	delete(s.cache, periodID)
	s.gen[periodID]++
	s.mu.Unlock()
}

// PeriodChanged invalidates the local cache and tells other instances to do the same.
func (s *Service) PeriodChanged(periodID uuid.UUID, reason string) {
	s.Invalidate(periodID)
	if s.hermes != nil {
		_ = s.hermes.Publish(hermes.SubjectPeriodChanged(periodID.String()), hermes.PeriodChangedEvent{
			PeriodID: periodID.String(),
			Reason:   reason,
			At:       s.now(),
		})
	}
}

// SetupSubscriptions listens for change notifications from other instances.
func (s *Service) SetupSubscriptions() error {
	if s.hermes == nil {
		return nil
	}
	return s.hermes.Subscribe(hermes.SubjectPeriodChangedAll, func(subject string, _ []byte) {
		id, err := uuid.Parse(hermes.PeriodIDFromSubject(subject))
		if err != nil {
			s.logger.Warn("ignoring change notification", "subject", subject, "error", err)
			return
		}
		s.Invalidate(id)
	})
}

// ToEngineCriteria maps stored criteria to engine criteria keyed by criterion id.
// Criteria weighted zero take no part in the ranking and are left out.
func ToEngineCriteria(criteria []*store.Criterion) []scoring.Criterion {
	out := make([]scoring.Criterion, 0, len(criteria))
	for _, c := range criteria {
		if c.Weight == 0 {
			continue
		}
		out = append(out, scoring.Criterion{
			ID:       c.ID.String(),
			Name:     c.Name,
			Weight:   c.Weight,
			Polarity: scoring.Polarity(c.Polarity),
		})
	}
	return out
}

// ToEngineCandidates maps stored candidates to engine candidates.
func ToEngineCandidates(candidates []*store.Candidate) []scoring.Candidate {
	out := make([]scoring.Candidate, len(candidates))
	for i, c := range candidates {
		scores := make(map[string]float64, len(c.Scores))
		for id, v := range c.Scores {
			scores[id.String()] = v
		}
		out[i] = scoring.Candidate{ID: c.ID.String(), Name: c.Name, Scores: scores}
	}
	return out
}
