package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
	coachService "github.com/zhouzirui/essay-coach/backend/internal/service/coach"
	sessionService "github.com/zhouzirui/essay-coach/backend/internal/service/session"
	"github.com/zhouzirui/essay-coach/backend/internal/storage"
)

type stubTutor struct {
	reply   string
	err     error
	release chan struct{}
}

func (s *stubTutor) Reply(ctx context.Context, req essay.TutorRequest) (*essay.TutorResponse, error) {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &essay.TutorResponse{Response: s.reply, Stage: req.Stage}, nil
}

func setupRouter(tutor coachService.Tutor) (*chi.Mux, *sessionService.Service) {
	sessions := sessionService.NewService(sessionService.Config{Tutor: tutor, Store: storage.NewMemory()})
	handler := New(sessions, nil)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, sessions
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createSession(t *testing.T, r http.Handler) coachService.State {
	t.Helper()
	resp := do(r, http.MethodPost, "/sessions", map[string]string{"clientKey": "browser-1"})
	require.Equal(t, http.StatusCreated, resp.Code)
	var state coachService.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	return state
}

func TestCreateSession(t *testing.T) {
	r, _ := setupRouter(&stubTutor{reply: "ok"})
	state := createSession(t, r)

	assert.NotEmpty(t, state.SessionID)
	assert.Equal(t, essay.StageTopic, state.Stage)
	require.Len(t, state.Messages, 1)
	assert.Equal(t, essay.RoleAssistant, state.Messages[0].Role)
}

func TestCreateSessionMissingClientKey(t *testing.T) {
	r, _ := setupRouter(&stubTutor{reply: "ok"})

	resp := do(r, http.MethodPost, "/sessions", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSessionNotFound(t *testing.T) {
	r, _ := setupRouter(&stubTutor{reply: "ok"})
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/sessions/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/sessions/missing/messages", map[string]string{"text": "hi"}).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/sessions/missing/restart", nil).Code)
}

func TestSendMessage(t *testing.T) {
	r, _ := setupRouter(&stubTutor{reply: "Great topic.\n```json\n{\"topic\": \"Urban mobility in large Brazilian cities\"}\n```"})
	state := createSession(t, r)

	resp := do(r, http.MethodPost, "/sessions/"+state.SessionID+"/messages", map[string]string{"text": "Help me choose."})
	require.Equal(t, http.StatusOK, resp.Code)

	var body sendResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotNil(t, body.Turn)
	assert.Equal(t, "Great topic.", body.Turn.AssistantMessage.Text)
	assert.True(t, body.Turn.Structured)
	assert.True(t, body.Turn.Advanced)
	assert.Equal(t, essay.StageThesis, body.State.Stage)
	assert.Equal(t, "Urban mobility in large Brazilian cities", body.State.Skeleton.Topic)
	assert.Len(t, body.State.Messages, 3)
}

func TestSendBlankMessage(t *testing.T) {
	r, _ := setupRouter(&stubTutor{reply: "ok"})
	state := createSession(t, r)

	resp := do(r, http.MethodPost, "/sessions/"+state.SessionID+"/messages", map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSendTutorFailure(t *testing.T) {
	r, _ := setupRouter(&stubTutor{err: errors.New("upstream down")})
	state := createSession(t, r)

	resp := do(r, http.MethodPost, "/sessions/"+state.SessionID+"/messages", map[string]string{"text": "hello there"})
	assert.Equal(t, http.StatusBadGateway, resp.Code)

	got := do(r, http.MethodGet, "/sessions/"+state.SessionID, nil)
	var after coachService.State
	require.NoError(t, json.NewDecoder(got.Body).Decode(&after))
	assert.False(t, after.Pending)
	assert.Len(t, after.Messages, 2, "the user message stays in the history")
}

func TestSendWhilePending(t *testing.T) {
	tutor := &stubTutor{reply: "ok", release: make(chan struct{})}
	r, sessions := setupRouter(tutor)
	state := createSession(t, r)
	path := "/sessions/" + state.SessionID + "/messages"

	done := make(chan int, 1)
	go func() {
		done <- do(r, http.MethodPost, path, map[string]string{"text": "first message"}).Code
	}()

	orch, err := sessions.Get(context.Background(), state.SessionID)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return orch.State().Pending }, time.Second, 5*time.Millisecond)

	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, path, map[string]string{"text": "second message"}).Code)

	close(tutor.release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestRestart(t *testing.T) {
	r, _ := setupRouter(&stubTutor{reply: "ok"})
	state := createSession(t, r)

	resp := do(r, http.MethodPost, "/sessions/"+state.SessionID+"/restart", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var restarted coachService.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&restarted))
	assert.NotEqual(t, state.SessionID, restarted.SessionID)
	assert.Equal(t, essay.StageTopic, restarted.Stage)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/sessions/"+state.SessionID, nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/sessions/"+restarted.SessionID, nil).Code)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		coachService.ErrEmptyMessage:      http.StatusBadRequest,
		sessionService.ErrSessionNotFound: http.StatusNotFound,
		coachService.ErrRequestPending:    http.StatusConflict,
		coachService.ErrStaleResponse:     http.StatusGone,
		coachService.ErrTutorUnavailable:  http.StatusBadGateway,
		errors.New("anything else"):       http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, StatusFor(err), err.Error())
	}
}
