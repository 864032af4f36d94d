package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/MikeSquared-Agency/Admissions/internal/ranking"
	"github.com/MikeSquared-Agency/Admissions/internal/scoring"
	"github.com/MikeSquared-Agency/Admissions/internal/spreadsheet"
)

type RankingHandler struct {
	ranking *ranking.Service
	logger  *slog.Logger
}

func NewRankingHandler(svc *ranking.Service, logger *slog.Logger) *RankingHandler {
	return &RankingHandler{ranking: svc, logger: logger}
}

// RankRequest is the stateless engine input.
type RankRequest struct {
	Criteria   []scoring.Criterion `json:"criteria"`
	Candidates []scoring.Candidate `json:"candidates"`
	Cutoff     *ranking.Cutoff     `json:"cutoff,omitempty"`
}

type RankResponse struct {
	*scoring.Evaluation
	Frontier  []string `json:"frontier,omitempty"`
	Pass      []bool   `json:"pass,omitempty"`
	PassCount *int     `json:"pass_count,omitempty"`
}

func (h *RankingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	cutoff, err := h.cutoff(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	result, err := h.ranking.Ranking(r.Context(), id, cutoff)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *RankingHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	cutoff, err := h.cutoff(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	result, err := h.ranking.Ranking(r.Context(), id, cutoff)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := spreadsheet.WriteRanking(&buf, result); err != nil {
		writeError(w, h.logger, err)
		return
	}
	attachment(w, "ranking", result.PeriodName)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// Rank runs the engine over the request body without touching the store.
func (h *RankingHandler) Rank(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	eval, err := scoring.Evaluate(req.Criteria, req.Candidates)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := RankResponse{
		Evaluation: eval,
		Frontier:   scoring.ComputeFrontier(req.Criteria, req.Candidates),
	}
	if req.Cutoff != nil {
		if err := req.Cutoff.Validate(); err != nil {
			writeError(w, h.logger, err)
			return
		}
		n := 0
		resp.Pass = make([]bool, len(eval.Results))
		for i, res := range eval.Results {
			resp.Pass[i] = req.Cutoff.Passes(res)
			if resp.Pass[i] {
				n++
			}
		}
		resp.PassCount = &n
	}
	writeJSON(w, http.StatusOK, resp)
}

// cutoff reads top_n and threshold from the query, falling back to the
// configured cutoff for absent parameters.
func (h *RankingHandler) cutoff(r *http.Request) (ranking.Cutoff, error) {
	c := h.ranking.DefaultCutoff()
	q := r.URL.Query()
	if v := q.Get("top_n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, invalid("top_n must be an integer")
		}
		c.TopN = n
	}
	if v := q.Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c, invalid("threshold must be a number")
		}
		c.Threshold = f
	}
	return c, c.Validate()
}
