package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
	coachService "github.com/zhouzirui/essay-coach/backend/internal/service/coach"
	sessionService "github.com/zhouzirui/essay-coach/backend/internal/service/session"
)

type stubTutor struct{}

func (stubTutor) Reply(_ context.Context, req essay.TutorRequest) (*essay.TutorResponse, error) {
	return &essay.TutorResponse{
		Response: "Good.\n```json\n{\"topic\": \"Water scarcity in the semi-arid region\"}\n```",
		Stage:    req.Stage,
	}, nil
}

type received struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

func setup(t *testing.T) (*httptest.Server, *sessionService.Service, string) {
	t.Helper()
	sessions := sessionService.NewService(sessionService.Config{Tutor: stubTutor{}})
	orch, err := sessions.Create(context.Background(), "client")
	require.NoError(t, err)

	r := chi.NewRouter()
	New(sessions, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, sessions, orch.SessionID()
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketTurn(t *testing.T) {
	srv, _, sessionID := setup(t)
	conn := dial(t, srv, sessionID)

	hello := readMessage(t, conn)
	assert.Equal(t, "connected", hello.Type)
	assert.Equal(t, sessionID, hello.SessionID)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "message",
		"data": map[string]string{"text": "Help me pick."},
	}))
	msg := readMessage(t, conn)
	require.Equal(t, "turn", msg.Type)

	var payload turnPayload
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, "Good.", payload.Turn.AssistantMessage.Text)
	assert.Equal(t, essay.StageThesis, payload.State.Stage)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "state"}))
	msg = readMessage(t, conn)
	require.Equal(t, "state", msg.Type)
	var state coachService.State
	require.NoError(t, json.Unmarshal(msg.Data, &state))
	assert.Equal(t, "Water scarcity in the semi-arid region", state.Skeleton.Topic)
}

func TestWebSocketRestartFollowsNewSession(t *testing.T) {
	srv, sessions, sessionID := setup(t)
	conn := dial(t, srv, sessionID)
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "restart"}))
	msg := readMessage(t, conn)
	require.Equal(t, "state", msg.Type)
	assert.NotEqual(t, sessionID, msg.SessionID)

	_, err := sessions.Get(context.Background(), msg.SessionID)
	assert.NoError(t, err)

	// the connection now speaks for the new session
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "state", "sessionId": sessionID}))
	assert.Equal(t, "error", readMessage(t, conn).Type)
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "state", "sessionId": msg.SessionID}))
	assert.Equal(t, "state", readMessage(t, conn).Type)
}

func TestWebSocketErrors(t *testing.T) {
	srv, _, sessionID := setup(t)
	conn := dial(t, srv, sessionID)
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "audio"}))
	msg := readMessage(t, conn)
	require.Equal(t, "error", msg.Type)
	var e errorPayload
	require.NoError(t, json.Unmarshal(msg.Data, &e))
	assert.Equal(t, http.StatusBadRequest, e.Status)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "message", "data": map[string]string{"text": "  "}}))
	msg = readMessage(t, conn)
	require.Equal(t, "error", msg.Type)
	require.NoError(t, json.Unmarshal(msg.Data, &e))
	assert.Equal(t, http.StatusBadRequest, e.Status)
}

func TestWebSocketUnknownSession(t *testing.T) {
	srv, _, _ := setup(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/missing"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
