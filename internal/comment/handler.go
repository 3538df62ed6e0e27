package comment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/maplewind/maplewind-api/internal/user"
	"github.com/maplewind/maplewind-api/pkg/utilities"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type createRequest struct {
	Content string `json:"content"`
}

// List handles GET /comments?page&limit. The total count goes in X-Total-Count.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := utilities.Pagination(r.URL.Query(), DefaultPageSize)
	p, err := h.svc.List(r.Context(), page, limit)
	if err != nil {
		h.logger.Errorw("list comments failed", "error", err)
		utilities.WriteDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(p.Total))
	utilities.WriteJSON(w, http.StatusOK, p.Items)
}

// Create handles POST /comments behind the auth middleware.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := user.Current(r.Context())
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		utilities.WriteDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utilities.WriteDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.svc.Create(r.Context(), u, req.Content)
	switch {
	case errors.Is(err, ErrInvalidContent):
		utilities.WriteDetail(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.Errorw("create comment failed", "user_id", u.ID, "error", err)
		utilities.WriteDetail(w, http.StatusInternalServerError, "internal error")
	default:
		utilities.WriteJSON(w, http.StatusCreated, c)
	}
}
