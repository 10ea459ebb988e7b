package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/essay-coach/backend/internal/handler/coach"
	"github.com/zhouzirui/essay-coach/backend/internal/handler/guidance"
	"github.com/zhouzirui/essay-coach/backend/internal/handler/stream"
	"github.com/zhouzirui/essay-coach/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/essay-coach/backend/internal/middleware"
	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
	sessionService "github.com/zhouzirui/essay-coach/backend/internal/service/session"
	"github.com/zhouzirui/essay-coach/backend/pkg/logger"
	"github.com/zhouzirui/essay-coach/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. allowedOrigins feeds the CORS
// whitelist; empty means the local development origins.
func NewRouter(guidanceStore essay.GuidanceStore, sessions *sessionService.Service, allowedOrigins []string, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	guidanceHandler := guidance.New(guidanceStore)
	coachHandler := coach.New(sessions, log)
	streamHandler := stream.New(sessions, log)
	wsHandler := ws.New(sessions, log)

	r.Route("/api", func(api chi.Router) {
		guidanceHandler.RegisterRoutes(api)
		coachHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)

		// one coaching turn delivered over SSE
		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")

			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
				if errors.Is(err, stream.ErrSessionNotFound) {
					utils.RespondError(w, http.StatusNotFound, "session not found")
					return
				}
				if errors.Is(err, utils.ErrStreamingUnsupported) {
					utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
					return
				}
				log.Warn("stream request failed", "session_id", sessionID, "error", err)
			}
		})
	})

	return r
}
