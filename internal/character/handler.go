package character

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/maplewind/maplewind-api/pkg/utilities"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// List handles GET /characters?page&limit.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := utilities.Pagination(r.URL.Query(), DefaultPageSize)
	out, err := h.svc.List(r.Context(), page, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

// Get handles GET /characters/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, c)
}

// Settlements handles GET /characters/{id}/settlements.
func (h *Handler) Settlements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Settlements(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

// Settlement handles GET /settlements/{id}.
func (h *Handler) Settlement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s, err := h.svc.Settlement(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, s)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCharacterNotFound):
		utilities.WriteDetail(w, http.StatusNotFound, "Character not found")
	case errors.Is(err, ErrSettlementNotFound):
		utilities.WriteDetail(w, http.StatusNotFound, "Settlement not found")
	default:
		h.logger.Errorw("catalog request failed", "error", err)
		utilities.WriteDetail(w, http.StatusInternalServerError, "internal error")
	}
}
