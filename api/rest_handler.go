package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/guileen/planlite/catalog"
	"github.com/guileen/planlite/optimizer"
	"github.com/guileen/planlite/plan"
)

// RESTHandler exposes the optimizer and the statistics store over HTTP.
// Plans travel as the JSON tree encoding of the plan package.
type RESTHandler struct {
	stats *catalog.Store
}

func NewRESTHandler(stats *catalog.Store) *RESTHandler {
	return &RESTHandler{stats: stats}
}

func (h *RESTHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/optimize", h.OptimizePlan)
	r.Post("/api/explain", h.ExplainPlan)
	r.Route("/api/stats/{table}", func(r chi.Router) {
		r.Get("/", h.GetStatistics)
		r.Put("/", h.PutStatistics)
	})
}

type OptimizeRequest struct {
	Plan  json.RawMessage `json:"plan"`
	Level string          `json:"level,omitempty"`
}

type OptimizeResponse struct {
	Plan       json.RawMessage `json:"plan"`
	Explain    string          `json:"explain"`
	CostBefore float64         `json:"cost_before"`
	CostAfter  float64         `json:"cost_after"`
}

type ExplainRequest struct {
	Plan     json.RawMessage `json:"plan"`
	Level    string          `json:"level,omitempty"`
	Optimize bool            `json:"optimize,omitempty"`
}

type ExplainResponse struct {
	Explain string  `json:"explain"`
	Cost    float64 `json:"cost"`
}

type StatisticsResponse struct {
	Table      string                   `json:"table"`
	Statistics *catalog.TableStatistics `json:"statistics"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *RESTHandler) OptimizePlan(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	p, opt, err := h.decodePlan(req.Plan, req.Level)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	optimized, err := opt.Optimize(p)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	encoded, err := plan.MarshalPlan(optimized)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, OptimizeResponse{
		Plan:       encoded,
		Explain:    plan.Explain(optimized),
		CostBefore: opt.EstimateCost(p),
		CostAfter:  opt.EstimateCost(optimized),
	})
}

func (h *RESTHandler) ExplainPlan(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	p, opt, err := h.decodePlan(req.Plan, req.Level)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if req.Optimize {
		p, err = opt.Optimize(p)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, ExplainResponse{
		Explain: plan.Explain(p),
		Cost:    opt.EstimateCost(p),
	})
}

func (h *RESTHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	stats, ok := h.stats.TableStatistics(table)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no statistics for table %q", table))
		return
	}

	writeJSON(w, http.StatusOK, StatisticsResponse{Table: table, Statistics: stats})
}

func (h *RESTHandler) PutStatistics(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	var stats catalog.TableStatistics
	if err := json.NewDecoder(r.Body).Decode(&stats); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	if err := h.stats.Put(table, &stats); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, StatisticsResponse{Table: table, Statistics: &stats})
}

// decodePlan parses the plan payload and builds an optimizer at the
// requested level. An empty level means full optimization.
func (h *RESTHandler) decodePlan(raw json.RawMessage, level string) (plan.Plan, *optimizer.Optimizer, error) {
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("missing plan")
	}
	p, err := plan.UnmarshalPlan(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid plan: %w", err)
	}
	lvl, err := optimizer.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	return p, optimizer.New(h.stats, lvl), nil
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
}
