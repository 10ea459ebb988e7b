package guidance

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
	"github.com/zhouzirui/essay-coach/backend/pkg/utils"
)

// Handler 阶段指引的HTTP处理器
type Handler struct {
	guidance essay.GuidanceStore
}

// New 创建指引处理器
func New(guidance essay.GuidanceStore) *Handler {
	return &Handler{guidance: guidance}
}

// RegisterRoutes 注册指引相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/guidance", h.handleList)
	r.Get("/guidance/{stage}", h.handleGet)
}

// handleList 按流程顺序列出所有阶段指引
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.guidance.List())
}

// handleGet 返回单个阶段的指引
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	stage, ok := essay.ParseStage(chi.URLParam(r, "stage"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "unknown stage")
		return
	}
	g, ok := h.guidance.FindByStage(stage)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "guidance not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, g)
}
