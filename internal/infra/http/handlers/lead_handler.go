package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/James-lakeshore/generac-crm-backend/internal/entity"
	"github.com/James-lakeshore/generac-crm-backend/internal/infra/http/middleware"
	"github.com/James-lakeshore/generac-crm-backend/internal/usecase"
)

const (
	listLimit = 200
	csvLimit  = 5000
)

type LeadHandler struct {
	Repo     entity.LeadRepositoryInterface
	CreateUC *usecase.CreateLeadUseCase
	Statuses entity.StatusSet
}

func NewLeadHandler(repo entity.LeadRepositoryInterface, createUC *usecase.CreateLeadUseCase, statuses entity.StatusSet) *LeadHandler {
	return &LeadHandler{Repo: repo, CreateUC: createUC, Statuses: statuses}
}

func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": 0, "leads": []*entity.Lead{}})
		return
	}

	filter := entity.LeadFilter{
		Status: r.URL.Query().Get("status"),
		Query:  r.URL.Query().Get("q"),
		Limit:  listLimit,
	}

	leads, err := h.Repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(leads), "leads": leads})
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		writeError(w, http.StatusServiceUnavailable, "DB not connected")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	lead, err := h.Repo.FindByID(r.Context(), id)
	if errors.Is(err, entity.ErrLeadNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "lead": lead})
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateLeadInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	lead, err := h.CreateUC.Execute(r.Context(), input)
	if errors.Is(err, entity.ErrStoreUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "DB not connected")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.RecordLeadIngested(entity.SourceAPI, "created")
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "lead": lead})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *LeadHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		writeError(w, http.StatusServiceUnavailable, "DB not connected")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status required")
		return
	}
	if !h.Statuses.Contains(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	lead, err := h.Repo.UpdateStatus(r.Context(), id, req.Status)
	if errors.Is(err, entity.ErrLeadNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.RecordStatusUpdate()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "lead": lead})
}

var csvHeader = []string{"id", "name", "email", "phone", "message", "source", "status", "createdAt", "updatedAt"}

// ExportCSV streams the newest leads in a fixed column order. encoding/csv
// applies RFC-4180 quoting (wrap on comma/quote/newline, double inner quotes).
func (h *LeadHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("no data"))
		return
	}

	leads, err := h.Repo.List(r.Context(), entity.LeadFilter{Limit: csvLimit})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="leads.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	cw.Write(csvHeader)
	for _, l := range leads {
		cw.Write([]string{
			l.ID, l.Name, l.Email, l.Phone, l.Message, l.Source, l.Status,
			l.CreatedAt.UTC().Format(time.RFC3339),
			l.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	cw.Flush()
}
