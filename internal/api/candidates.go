package api

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Admissions/internal/hermes"
	"github.com/MikeSquared-Agency/Admissions/internal/metrics"
	"github.com/MikeSquared-Agency/Admissions/internal/ranking"
	"github.com/MikeSquared-Agency/Admissions/internal/scoring"
	"github.com/MikeSquared-Agency/Admissions/internal/spreadsheet"
	"github.com/MikeSquared-Agency/Admissions/internal/store"
)

const maxImportBytes = 10 << 20

type CandidatesHandler struct {
	store      store.Store
	ranking    *ranking.Service
	hermes     hermes.Client
	importOpts spreadsheet.Options
	logger     *slog.Logger
}

func NewCandidatesHandler(s store.Store, svc *ranking.Service, h hermes.Client, importOpts spreadsheet.Options, logger *slog.Logger) *CandidatesHandler {
	return &CandidatesHandler{store: s, ranking: svc, hermes: h, importOpts: importOpts, logger: logger}
}

// CandidateRequest creates or replaces a candidate. Score keys may be
// criterion ids or criterion codes.
type CandidateRequest struct {
	Name     string                 `json:"name"`
	Gender   string                 `json:"gender,omitempty"`
	School   string                 `json:"school,omitempty"`
	Major    string                 `json:"major,omitempty"`
	Contact  string                 `json:"contact,omitempty"`
	Address  string                 `json:"address,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Scores   map[string]float64     `json:"scores,omitempty"`
}

func (h *CandidatesHandler) List(w http.ResponseWriter, r *http.Request) {
	periodID, err := urlID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, ok := loadPeriod(w, r, h.store, h.logger, periodID); !ok {
		return
	}
	candidates, err := h.store.ListCandidates(r.Context(), periodID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if candidates == nil {
		candidates = []*store.Candidate{}
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (h *CandidatesHandler) Create(w http.ResponseWriter, r *http.Request) {
	periodID, err := urlID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req CandidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, ok := loadPeriod(w, r, h.store, h.logger, periodID); !ok {
		return
	}
	c, err := h.candidateFromRequest(r, periodID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.store.CreateCandidates(r.Context(), periodID, []*store.Candidate{c}); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.ranking.PeriodChanged(periodID, "candidate_created")
	publish(h.hermes, hermes.SubjectCandidatesImported(periodID.String()), hermes.CandidatesImportedEvent{
		PeriodID: periodID.String(),
		Count:    1,
		Source:   "api",
	})
	writeJSON(w, http.StatusCreated, c)
}

func (h *CandidatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	c, ok := h.loadCandidate(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CandidatesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req CandidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	existing, ok := h.loadCandidate(w, r, id)
	if !ok {
		return
	}
	c, err := h.candidateFromRequest(r, existing.PeriodID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	c.ID = existing.ID
	c.CreatedAt = existing.CreatedAt

	if err := h.store.UpdateCandidate(r.Context(), c); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.ranking.PeriodChanged(c.PeriodID, "candidate_updated")
	writeJSON(w, http.StatusOK, c)
}

func (h *CandidatesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	c, ok := h.loadCandidate(w, r, id)
	if !ok {
		return
	}
	if err := h.store.DeleteCandidate(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.ranking.PeriodChanged(c.PeriodID, "candidate_deleted")
	w.WriteHeader(http.StatusNoContent)
}

// Import stores every candidate of an uploaded workbook, or none of them.
func (h *CandidatesHandler) Import(w http.ResponseWriter, r *http.Request) {
	periodID, err := urlID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, ok := loadPeriod(w, r, h.store, h.logger, periodID); !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.logger, invalid("multipart field \"file\" with an xlsx workbook is required"))
		return
	}
	defer file.Close()

	criteria, err := h.store.ListCriteria(r.Context(), periodID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	candidates, err := spreadsheet.ReadCandidates(file, criteria, h.importOpts)
	if err != nil {
		if errors.Is(err, scoring.ErrInvalidInput) {
			metrics.ImportRejected.Inc()
			h.logger.Warn("import rejected", "period_id", periodID, "error", err)
		}
		writeError(w, h.logger, err)
		return
	}
	if len(candidates) == 0 {
		metrics.ImportRejected.Inc()
		writeError(w, h.logger, invalid("workbook has no candidate rows"))
		return
	}

	if err := h.store.CreateCandidates(r.Context(), periodID, candidates); err != nil {
		writeError(w, h.logger, err)
		return
	}

	metrics.CandidatesImported.Add(float64(len(candidates)))
	h.ranking.PeriodChanged(periodID, "candidates_imported")
	publish(h.hermes, hermes.SubjectCandidatesImported(periodID.String()), hermes.CandidatesImportedEvent{
		PeriodID: periodID.String(),
		Count:    len(candidates),
		Source:   "import",
	})
	h.logger.Info("candidates imported", "period_id", periodID, "count", len(candidates))

	writeJSON(w, http.StatusCreated, map[string]int{"imported": len(candidates)})
}

func (h *CandidatesHandler) Export(w http.ResponseWriter, r *http.Request) {
	periodID, err := urlID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	p, ok := loadPeriod(w, r, h.store, h.logger, periodID)
	if !ok {
		return
	}
	criteria, err := h.store.ListCriteria(r.Context(), periodID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	candidates, err := h.store.ListCandidates(r.Context(), periodID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := spreadsheet.WriteCandidates(&buf, criteria, candidates); err != nil {
		writeError(w, h.logger, err)
		return
	}
	attachment(w, "candidates", p.Name)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *CandidatesHandler) loadCandidate(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*store.Candidate, bool) {
	c, err := h.store.GetCandidate(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return nil, false
	}
	if c == nil {
		writeMessage(w, http.StatusNotFound, "candidate not found")
		return nil, false
	}
	return c, true
}

func (h *CandidatesHandler) candidateFromRequest(r *http.Request, periodID uuid.UUID, req CandidateRequest) (*store.Candidate, error) {
	c := &store.Candidate{
		PeriodID: periodID,
		Name:     strings.TrimSpace(req.Name),
		Gender:   strings.TrimSpace(req.Gender),
		School:   strings.TrimSpace(req.School),
		Major:    strings.TrimSpace(req.Major),
		Contact:  strings.TrimSpace(req.Contact),
		Address:  strings.TrimSpace(req.Address),
		Metadata: req.Metadata,
		Scores:   make(map[uuid.UUID]float64, len(req.Scores)),
	}
	if c.Name == "" {
		return nil, invalid("name is required")
	}
	if len(req.Scores) == 0 {
		return c, nil
	}

	criteria, err := h.store.ListCriteria(r.Context(), periodID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]bool, len(criteria))
	byCode := make(map[string]uuid.UUID, len(criteria))
	for _, crit := range criteria {
		byID[crit.ID] = true
		byCode[crit.Code] = crit.ID
	}

	for key, v := range req.Scores {
		id, err := uuid.Parse(key)
		if err != nil || !byID[id] {
			var ok bool
			if id, ok = byCode[key]; !ok {
				return nil, invalid("score for unknown criterion %q", key)
			}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, invalid("score for %q must be a finite number >= 0, got %v", key, v)
		}
		c.Scores[id] = v
	}
	return c, nil
}
