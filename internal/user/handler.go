package user

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/maplewind/maplewind-api/pkg/utilities"
)

// Handler exposes read endpoints for the authenticated user.
type Handler struct {
	logger *zap.SugaredLogger
}

func NewHandler(logger *zap.SugaredLogger) *Handler {
	return &Handler{logger: logger}
}

// Me returns the profile of the caller. It must sit behind the auth middleware.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := Current(r.Context())
	if !ok {
		h.logger.Warnw("me called without authenticated user", "path", r.URL.Path)
		utilities.WriteDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, u.Profile())
}
