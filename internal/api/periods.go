package api

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Admissions/internal/hermes"
	"github.com/MikeSquared-Agency/Admissions/internal/ranking"
	"github.com/MikeSquared-Agency/Admissions/internal/scoring"
	"github.com/MikeSquared-Agency/Admissions/internal/spreadsheet"
	"github.com/MikeSquared-Agency/Admissions/internal/store"
)

type PeriodsHandler struct {
	store   store.Store
	ranking *ranking.Service
	hermes  hermes.Client
	logger  *slog.Logger
}

func NewPeriodsHandler(s store.Store, svc *ranking.Service, h hermes.Client, logger *slog.Logger) *PeriodsHandler {
	return &PeriodsHandler{store: s, ranking: svc, hermes: h, logger: logger}
}

type CriterionInput struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Polarity string  `json:"polarity,omitempty"`
	Weight   float64 `json:"weight"`
}

type CreatePeriodRequest struct {
	Name   string `json:"name"`
	Scheme string `json:"scheme,omitempty"`
	// Weights applies to the fixed scheme. Omitted means the default distribution.
	Weights *scoring.WeightSet `json:"weights,omitempty"`
	// Criteria applies to the dynamic scheme.
	Criteria []CriterionInput `json:"criteria,omitempty"`
}

type PeriodDetail struct {
	*store.Period
	Weights  *scoring.WeightSet `json:"weights,omitempty"`
	Criteria []*store.Criterion `json:"criteria"`
	Stats    *store.PeriodStats `json:"stats,omitempty"`
}

func (h *PeriodsHandler) List(w http.ResponseWriter, r *http.Request) {
	periods, err := h.store.ListPeriods(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if periods == nil {
		periods = []*store.Period{}
	}
	writeJSON(w, http.StatusOK, periods)
}

func (h *PeriodsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePeriodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	p := &store.Period{Name: strings.TrimSpace(req.Name)}
	if p.Name == "" {
		writeError(w, h.logger, invalid("name is required"))
		return
	}
	scheme, criteria, err := req.BuildCriteria()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	p.Scheme = scheme

	if err := h.store.CreatePeriod(r.Context(), p, criteria); err != nil {
		writeError(w, h.logger, err)
		return
	}

	publish(h.hermes, hermes.SubjectPeriodCreated(p.ID.String()), hermes.PeriodEvent{
		PeriodID: p.ID.String(),
		Name:     p.Name,
		Scheme:   string(p.Scheme),
	})
	h.logger.Info("period created", "period_id", p.ID, "name", p.Name, "scheme", p.Scheme)

	if criteria == nil {
		criteria = []*store.Criterion{}
	}
	writeJSON(w, http.StatusCreated, detail(p, criteria, nil))
}

func (h *PeriodsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	p, ok := loadPeriod(w, r, h.store, h.logger, id)
	if !ok {
		return
	}
	criteria, err := h.store.ListCriteria(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	stats, err := h.store.GetPeriodStats(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if criteria == nil {
		criteria = []*store.Criterion{}
	}
	writeJSON(w, http.StatusOK, detail(p, criteria, stats))
}

func (h *PeriodsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.store.DeletePeriod(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.ranking.PeriodChanged(id, "period_deleted")
	publish(h.hermes, hermes.SubjectPeriodDeleted(id.String()), hermes.PeriodEvent{PeriodID: id.String()})
	w.WriteHeader(http.StatusNoContent)
}

// UpdateWeights replaces the seven weights of a fixed period.
func (h *PeriodsHandler) UpdateWeights(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var weights scoring.WeightSet
	if err := decodeJSON(w, r, &weights); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := weights.Validate(); err != nil {
		writeError(w, h.logger, err)
		return
	}

	p, ok := loadPeriod(w, r, h.store, h.logger, id)
	if !ok {
		return
	}
	if p.Scheme != store.SchemeFixed {
		writeMessage(w, http.StatusConflict, "weights can only be set on fixed periods; edit criteria importance instead")
		return
	}

	criteria, err := h.store.ListCriteria(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	byCode := make(map[string]*store.Criterion, len(criteria))
	for _, c := range criteria {
		byCode[c.Code] = c
	}
	values := weights.AsList()
	updates := make(map[string]float64, len(values))
	patch := make(map[uuid.UUID]float64, len(values))
	for i, fc := range scoring.FixedCriteria {
		c, ok := byCode[fc.Code]
		if !ok {
			writeMessage(w, http.StatusConflict, "period is missing fixed criterion "+fc.Code)
			return
		}
		patch[c.ID] = values[i]
		updates[fc.Code] = values[i]
	}

	if err := h.store.UpdateCriteriaWeights(r.Context(), id, patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.ranking.PeriodChanged(id, "weights_updated")
	publish(h.hermes, hermes.SubjectWeightsUpdated(id.String()), hermes.WeightsUpdatedEvent{
		PeriodID: id.String(),
		Weights:  updates,
	})
	h.logger.Info("weights updated", "period_id", id, "weights", updates)

	for _, c := range criteria {
		if v, ok := updates[c.Code]; ok {
			c.Weight = v
		}
	}
	writeJSON(w, http.StatusOK, detail(p, criteria, nil))
}

// BuildCriteria validates the scheme and criteria of the request and
// returns the criteria to store, positioned in request order. The scheme
// defaults to fixed.
func (req *CreatePeriodRequest) BuildCriteria() (store.WeightScheme, []*store.Criterion, error) {
	scheme := store.WeightScheme(req.Scheme)
	if scheme == "" {
		scheme = store.SchemeFixed
	}

	switch scheme {
	case store.SchemeFixed:
		if len(req.Criteria) > 0 {
			return "", nil, invalid("fixed periods use the standard criteria; use the dynamic scheme for custom criteria")
		}
		weights := scoring.DefaultWeights()
		if req.Weights != nil {
			weights = *req.Weights
		}
		if err := weights.Validate(); err != nil {
			return "", nil, err
		}
		return scheme, fixedCriteria(weights), nil

	case store.SchemeDynamic:
		if req.Weights != nil {
			return "", nil, invalid("weights apply to the fixed scheme only")
		}
		seen := make(map[string]bool)
		criteria := make([]*store.Criterion, 0, len(req.Criteria))
		for i, in := range req.Criteria {
			c, err := criterionFromInput(in)
			if err != nil {
				return "", nil, err
			}
			if seen[c.Code] {
				return "", nil, invalid("duplicate criterion code %q", c.Code)
			}
			seen[c.Code] = true
			c.Position = i + 1
			criteria = append(criteria, c)
		}
		return scheme, criteria, nil

	default:
		return "", nil, invalid("scheme must be fixed or dynamic, got %q", req.Scheme)
	}
}

var codePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

func criterionFromInput(in CriterionInput) (*store.Criterion, error) {
	c := &store.Criterion{
		Code:     strings.TrimSpace(in.Code),
		Name:     strings.TrimSpace(in.Name),
		Polarity: store.Polarity(in.Polarity),
		Weight:   in.Weight,
	}
	if c.Polarity == "" {
		c.Polarity = store.PolarityBenefit
	}
	if !codePattern.MatchString(c.Code) {
		return nil, invalid("criterion code %q must match [a-z0-9_]+", in.Code)
	}
	if spreadsheet.IsReservedColumn(c.Code) {
		return nil, invalid("criterion code %q is reserved for candidate details", c.Code)
	}
	if c.Name == "" {
		return nil, invalid("criterion %q needs a name", c.Code)
	}
	if !scoring.Polarity(c.Polarity).Valid() {
		return nil, invalid("criterion %q polarity must be benefit or cost, got %q", c.Code, in.Polarity)
	}
	if err := scoring.ValidateImportance(c.Weight); err != nil {
		return nil, err
	}
	return c, nil
}

func fixedCriteria(weights scoring.WeightSet) []*store.Criterion {
	values := weights.AsList()
	out := make([]*store.Criterion, len(scoring.FixedCriteria))
	for i, fc := range scoring.FixedCriteria {
		out[i] = &store.Criterion{
			Code:     fc.Code,
			Name:     fc.Name,
			Polarity: store.PolarityBenefit,
			Weight:   values[i],
			Position: i + 1,
		}
	}
	return out
}

// detail assembles the period view. Fixed periods also report w1..w7.
func detail(p *store.Period, criteria []*store.Criterion, stats *store.PeriodStats) *PeriodDetail {
	d := &PeriodDetail{Period: p, Criteria: criteria, Stats: stats}
	if p.Scheme != store.SchemeFixed {
		return d
	}
	byCode := make(map[string]float64, len(criteria))
	for _, c := range criteria {
		byCode[c.Code] = c.Weight
	}
	values := make([]float64, len(scoring.FixedCriteria))
	for i, fc := range scoring.FixedCriteria {
		values[i] = byCode[fc.Code]
	}
	if ws, err := scoring.WeightSetFromList(values); err == nil {
		d.Weights = &ws
	}
	return d
}

func publish(h hermes.Client, subject string, v interface{}) {
	if h == nil {
		return
	}
	_ = h.Publish(subject, v)
}
