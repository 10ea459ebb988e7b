package coach

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	coachService "github.com/zhouzirui/essay-coach/backend/internal/service/coach"
	sessionService "github.com/zhouzirui/essay-coach/backend/internal/service/session"
	"github.com/zhouzirui/essay-coach/backend/pkg/logger"
	"github.com/zhouzirui/essay-coach/backend/pkg/utils"
)

// Handler 写作辅导会话的HTTP处理器
type Handler struct {
	sessions *sessionService.Service
	log      *logger.Logger
}

// New 创建辅导会话处理器
func New(sessions *sessionService.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{sessions: sessions, log: log}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Post("/sessions/{sessionID}/messages", h.handleSendMessage)
	r.Post("/sessions/{sessionID}/restart", h.handleRestart)
}

type sendResponse struct {
	Turn  *coachService.Turn `json:"turn"`
	State coachService.State `json:"state"`
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ClientKey string `json:"clientKey"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orch, err := h.sessions.Create(r.Context(), payload.ClientKey)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, orch.State())
}

// handleGetSession 查询会话状态
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	orch, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, orch.State())
}

// handleSendMessage 发送学生消息并返回导师回复
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, state, err := h.sessions.Send(r.Context(), sessionID, payload.Text)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.log.Debug("turn completed", "session_id", sessionID, "stage", state.Stage, "advanced", turn.Advanced)
	utils.RespondJSON(w, http.StatusOK, sendResponse{Turn: turn, State: state})
}

// handleRestart 重新开始会话
func (h *Handler) handleRestart(w http.ResponseWriter, r *http.Request) {
	state, err := h.sessions.Restart(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, state)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Warn("session request failed", "status", status, "error", err)
	}
	utils.RespondError(w, status, err.Error())
}

// StatusFor 将服务层错误映射为HTTP状态码
func StatusFor(err error) int {
	switch {
	case errors.Is(err, coachService.ErrEmptyMessage),
		errors.Is(err, sessionService.ErrClientKeyRequired):
		return http.StatusBadRequest
	case errors.Is(err, sessionService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, coachService.ErrRequestPending):
		return http.StatusConflict
	case errors.Is(err, coachService.ErrStaleResponse):
		return http.StatusGone
	case errors.Is(err, coachService.ErrTutorUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
