package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	coachHandler "github.com/zhouzirui/essay-coach/backend/internal/handler/coach"
	coachService "github.com/zhouzirui/essay-coach/backend/internal/service/coach"
	sessionService "github.com/zhouzirui/essay-coach/backend/internal/service/session"
	"github.com/zhouzirui/essay-coach/backend/pkg/logger"
	"github.com/zhouzirui/essay-coach/backend/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler WebSocket辅导会话处理器
type Handler struct {
	sessions     *sessionService.Service
	log          *logger.Logger
	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

// New 创建WebSocket处理器
func New(sessions *sessionService.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		sessions: sessions,
		log:      log.With("handler", "ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		pingInterval: pingInterval,
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// TextMessage 学生发送的文本
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type turnPayload struct {
	Turn  *coachService.Turn `json:"turn"`
	State coachService.State `json:"state"`
}

type errorPayload struct {
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

// connection 单个连接的状态；会话重启后 sessionID 随之更新
type connection struct {
	conn      *websocket.Conn
	sessionID string
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	orch, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	h.log.Info("websocket connected", "session_id", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	c := &connection{conn: conn, sessionID: sessionID}
	h.send(c, "connected", orch.State())

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read failed", "session_id", c.sessionID, "error", err)
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != c.sessionID {
			h.sendError(c, "session mismatch", http.StatusConflict)
			continue
		}

		h.handleMessage(ctx, c, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *connection, msg *inboundMessage) {
	switch msg.Type {
	case "message":
		h.handleTextMessage(ctx, c, msg.Data)
	case "restart":
		state, err := h.sessions.Restart(ctx, c.sessionID)
		if err != nil {
			h.sendError(c, err.Error(), http.StatusNotFound)
			return
		}
		c.sessionID = state.SessionID
		h.send(c, "state", state)
	case "state":
		orch, err := h.sessions.Get(ctx, c.sessionID)
		if err != nil {
			h.sendError(c, err.Error(), http.StatusNotFound)
			return
		}
		h.send(c, "state", orch.State())
	default:
		h.sendError(c, "unsupported message type: "+msg.Type, http.StatusBadRequest)
	}
}

func (h *Handler) handleTextMessage(ctx context.Context, c *connection, raw json.RawMessage) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		h.sendError(c, "invalid message payload", http.StatusBadRequest)
		return
	}

	turn, state, err := h.sessions.Send(ctx, c.sessionID, text.Text)
	if err != nil {
		h.sendError(c, err.Error(), coachHandler.StatusFor(err))
		return
	}
	h.send(c, "turn", turnPayload{Turn: turn, State: state})
}

func (h *Handler) send(c *connection, kind string, data interface{}) {
	msg := outgoingMessage{
		Type:      kind,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		h.log.Warn("websocket write failed", "session_id", c.sessionID, "type", kind, "error", err)
	}
}

func (h *Handler) sendError(c *connection, message string, status int) {
	h.send(c, "error", errorPayload{Message: message, Status: status})
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// WriteControl may run concurrently with WriteJSON
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
