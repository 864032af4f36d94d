package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/MikeSquared-Agency/Admissions/internal/hermes"
	"github.com/MikeSquared-Agency/Admissions/internal/ranking"
	"github.com/MikeSquared-Agency/Admissions/internal/store"
)

type CriteriaHandler struct {
	store   store.Store
	ranking *ranking.Service
	hermes  hermes.Client
	logger  *slog.Logger
}

func NewCriteriaHandler(s store.Store, svc *ranking.Service, h hermes.Client, logger *slog.Logger) *CriteriaHandler {
	return &CriteriaHandler{store: s, ranking: svc, hermes: h, logger: logger}
}

// UpdateCriterionRequest patches a criterion. Absent fields are unchanged.
type UpdateCriterionRequest struct {
	Code     *string  `json:"code,omitempty"`
	Name     *string  `json:"name,omitempty"`
	Polarity *string  `json:"polarity,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
	Position *int     `json:"position,omitempty"`
}

func (h *CriteriaHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, ok := loadPeriod(w, r, h.store, h.logger, id); !ok {
		return
	}
	criteria, err := h.store.ListCriteria(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if criteria == nil {
		criteria = []*store.Criterion{}
	}
	writeJSON(w, http.StatusOK, criteria)
}

func (h *CriteriaHandler) Create(w http.ResponseWriter, r *http.Request) {
	periodID, err := urlID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in CriterionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	c, err := criterionFromInput(in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	p, ok := loadPeriod(w, r, h.store, h.logger, periodID)
	if !ok {
		return
	}
	if p.Scheme == store.SchemeFixed {
		writeMessage(w, http.StatusConflict, "fixed periods have a fixed set of criteria")
		return
	}

	c.PeriodID = periodID
	if err := h.store.CreateCriterion(r.Context(), c); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.changed(c, "created")
	writeJSON(w, http.StatusCreated, c)
}

func (h *CriteriaHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req UpdateCriterionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.store.GetCriterion(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if c == nil {
		writeMessage(w, http.StatusNotFound, "criterion not found")
		return
	}
	p, ok := loadPeriod(w, r, h.store, h.logger, c.PeriodID)
	if !ok {
		return
	}
	if p.Scheme == store.SchemeFixed && (req.Code != nil || req.Polarity != nil || req.Weight != nil || req.Position != nil) {
		writeMessage(w, http.StatusConflict, "only the name of a fixed criterion can change; set weights on the period")
		return
	}

	in := CriterionInput{Code: c.Code, Name: c.Name, Polarity: string(c.Polarity), Weight: c.Weight}
	if req.Code != nil {
		in.Code = *req.Code
	}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Polarity != nil {
		in.Polarity = *req.Polarity
	}
	if req.Weight != nil {
		in.Weight = *req.Weight
	}

	var patched *store.Criterion
	if p.Scheme == store.SchemeFixed {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			writeError(w, h.logger, invalid("criterion %q needs a name", c.Code))
			return
		}
		c.Name = name
		patched = c
	} else {
		patched, err = criterionFromInput(in)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		patched.ID = c.ID
		patched.PeriodID = c.PeriodID
		patched.CreatedAt = c.CreatedAt
		patched.Position = c.Position
		if req.Position != nil {
			patched.Position = *req.Position
		}
	}

	if err := h.store.UpdateCriterion(r.Context(), patched); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.changed(patched, "updated")
	writeJSON(w, http.StatusOK, patched)
}

func (h *CriteriaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	c, err := h.store.GetCriterion(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if c == nil {
		writeMessage(w, http.StatusNotFound, "criterion not found")
		return
	}
	p, ok := loadPeriod(w, r, h.store, h.logger, c.PeriodID)
	if !ok {
		return
	}
	if p.Scheme == store.SchemeFixed {
		writeMessage(w, http.StatusConflict, "fixed periods have a fixed set of criteria")
		return
	}

	if err := h.store.DeleteCriterion(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.changed(c, "deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *CriteriaHandler) changed(c *store.Criterion, action string) {
	h.ranking.PeriodChanged(c.PeriodID, "criteria_"+action)
	publish(h.hermes, hermes.SubjectCriteriaChanged(c.PeriodID.String()), hermes.CriteriaChangedEvent{
		PeriodID:    c.PeriodID.String(),
		CriterionID: c.ID.String(),
		Action:      action,
	})
	h.logger.Info("criterion "+action, "period_id", c.PeriodID, "criterion_id", c.ID, "code", c.Code)
}
