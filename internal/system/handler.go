package system

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/maplewind/maplewind-api/pkg/utilities"
)

type News struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type TeamMessage struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

// Notices is the body of GET /system/notices.
type Notices struct {
	News    []News        `json:"news"`
	TeamMsg []TeamMessage `json:"team_msg"`
}

var DefaultNotices = Notices{
	News: []News{
		{Title: "단풍바람 오픈!", Content: "메이플스토리 결산 서비스가 시작되었습니다."},
		{Title: "새 시즌 업데이트", Content: "2026년 여름 시즌 데이터가 추가되었습니다."},
	},
	TeamMsg: []TeamMessage{
		{Author: "운영팀", Content: "항상 이용해 주셔서 감사합니다."},
	},
}

// Handler contains dependencies for the system endpoints.
type Handler struct {
	notices Notices
	logger  *zap.SugaredLogger
}

// NewHandler constructs a new Handler serving n.
func NewHandler(n Notices, logger *zap.SugaredLogger) *Handler {
	return &Handler{notices: n, logger: logger}
}

func (h *Handler) Notices(w http.ResponseWriter, r *http.Request) {
	utilities.WriteJSON(w, http.StatusOK, h.notices)
}

// Health answers plain "ok" for load balancers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
