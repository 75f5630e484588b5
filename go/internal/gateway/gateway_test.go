package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/retroboard/go/clients"
	"github.com/mcdev12/retroboard/go/internal/board"
	"github.com/mcdev12/retroboard/go/internal/dbconfig"
	"github.com/mcdev12/retroboard/go/internal/eventlog"
	"github.com/mcdev12/retroboard/go/internal/events"
	"github.com/mcdev12/retroboard/go/internal/models"
	"github.com/mcdev12/retroboard/go/internal/poller"
	"github.com/mcdev12/retroboard/go/internal/storage"
	"github.com/mcdev12/retroboard/go/internal/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type testServer struct {
	clock  *clockwork.FakeClock
	repo   *board.Repository
	app    *board.App
	timers *timer.Coordinator
	log    *eventlog.Log
	srv    *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	conn, err := storage.OpenDSN(ctx, dbconfig.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, storage.Migrate(ctx, conn, dbconfig.DriverSQLite))

	clock := clockwork.NewFakeClockAt(epoch)
	repo := board.NewRepository(conn)
	evlog := eventlog.New(eventlog.DefaultConfig(), clock)
	app := board.NewApp(repo, evlog, clock, nil)
	timers := timer.NewCoordinator(clock, repo, evlog, timer.Config{MaxDuration: 3600})
	t.Cleanup(timers.Close)

	router := NewRouter(Handlers{
		Events: NewEventsHandler(app, evlog),
		Timer:  NewTimerHandler(app, timers, 300),
		Board:  NewBoardHandler(app),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{clock: clock, repo: repo, app: app, timers: timers, log: evlog, srv: srv}
}

func (s *testServer) session(t *testing.T) *models.Session {
	t.Helper()
	session, err := s.app.CreateSession(context.Background(), board.CreateSessionRequest{Title: "Sprint 7"})
	require.NoError(t, err)
	return session
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.srv.URL+path, reader)
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func timerPath(session *models.Session) string {
	return "/api/retrospectives/" + strconv.FormatInt(session.ID, 10) + "/timer"
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestTimerControlFlow(t *testing.T) {
	s := newTestServer(t)
	session := s.session(t)

	resp, body := s.do(t, http.MethodPost, timerPath(session), TimerRequest{Action: ActionStart, Duration: 300, ClientToken: "A"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var snap models.TimerSnapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.True(t, snap.IsRunning)
	assert.Equal(t, 300, snap.RemainingSec)
	require.NotNil(t, snap.ControlledBy)
	assert.Equal(t, "A", *snap.ControlledBy)

	// another client is refused and told who holds the lease
	resp, body = s.do(t, http.MethodPost, timerPath(session), TimerRequest{Action: ActionStart, Duration: 60, ClientToken: "B"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	var conflict errorResponse
	require.NoError(t, json.Unmarshal(body, &conflict))
	require.NotNil(t, conflict.ControlledBy)
	assert.Equal(t, "A", *conflict.ControlledBy)

	s.clock.Advance(100 * time.Second)

	// token from header
	resp, body = s.do(t, http.MethodPost, timerPath(session), TimerRequest{Action: ActionPause}, ClientTokenHeader, "A")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.True(t, snap.IsPaused)
	assert.Equal(t, 200, snap.RemainingSec)

	resp, body = s.do(t, http.MethodGet, timerPath(session), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, 200, snap.RemainingSec)

	resp, _ = s.do(t, http.MethodPost, timerPath(session), TimerRequest{Action: ActionStop, ClientToken: "A"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	kinds := []events.Kind{}
	for _, ev := range s.log.Since(session.ID, 0) {
		kinds = append(kinds, ev.Type)
	}
	assert.Equal(t, []events.Kind{events.KindTimerStart, events.KindTimerPause, events.KindTimerStop}, kinds)
}

func TestTimerStartWithoutDurationUsesDefault(t *testing.T) {
	s := newTestServer(t)
	session := s.session(t)

	resp, body := s.do(t, http.MethodPost, timerPath(session), TimerRequest{Action: ActionStart, ClientToken: "A"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var snap models.TimerSnapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, 300, snap.Duration)
}

func TestTimerErrors(t *testing.T) {
	s := newTestServer(t)
	session := s.session(t)

	tests := []struct {
		name   string
		path   string
		req    TimerRequest
		status int
	}{
		{name: "unknown action", path: timerPath(session), req: TimerRequest{Action: "rewind", ClientToken: "A"}, status: http.StatusBadRequest},
		{name: "missing token", path: timerPath(session), req: TimerRequest{Action: ActionStart, Duration: 60}, status: http.StatusBadRequest},
		{name: "negative duration", path: timerPath(session), req: TimerRequest{Action: ActionStart, Duration: -5, ClientToken: "A"}, status: http.StatusBadRequest},
		{name: "over the limit", path: timerPath(session), req: TimerRequest{Action: ActionSetDuration, Duration: 7200, ClientToken: "A"}, status: http.StatusBadRequest},
		{name: "pause when idle", path: timerPath(session), req: TimerRequest{Action: ActionPause, ClientToken: "A"}, status: http.StatusForbidden},
		{name: "unknown session", path: "/api/retrospectives/999/timer", req: TimerRequest{Action: ActionStart, Duration: 60, ClientToken: "A"}, status: http.StatusNotFound},
		{name: "malformed session", path: "/api/retrospectives/not-a-session/timer", req: TimerRequest{Action: ActionStart, Duration: 60, ClientToken: "A"}, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.do(t, http.MethodPost, tt.path, tt.req)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
		})
	}
}

func TestTimerExhaustedResumeIsConflict(t *testing.T) {
	s := newTestServer(t)
	session := s.session(t)
	ctx := context.Background()

	require.NoError(t, s.repo.SaveTimer(ctx, session.ID, models.TimerState{
		Duration:   30,
		Paused:     true,
		Controller: "A",
	}))

	resp, _ := s.do(t, http.MethodPost, timerPath(session), TimerRequest{Action: ActionResume, ClientToken: "A"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestEventsEndpoint(t *testing.T) {
	s := newTestServer(t)
	session := s.session(t)
	path := "/api/events/" + session.ShareToken

	resp, body := s.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page EventsResponse
	require.NoError(t, json.Unmarshal(body, &page))
	assert.False(t, page.HasUpdates)
	assert.NotNil(t, page.Events)
	assert.Zero(t, page.LatestTimestamp)

	_, err := s.timers.Start(context.Background(), session.ID, "A", 60)
	require.NoError(t, err)
	s.clock.Advance(time.Second)
	_, err = s.timers.Stop(context.Background(), session.ID, "A")
	require.NoError(t, err)

	_, body = s.do(t, http.MethodGet, path+"?since=0", nil)
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page.Events, 2)
	assert.True(t, page.HasUpdates)
	assert.Equal(t, page.Events[1].Timestamp, page.LatestTimestamp)

	_, body = s.do(t, http.MethodGet, path+"?since="+strconv.FormatInt(page.Events[0].Timestamp, 10), nil)
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page.Events, 1)
	assert.Equal(t, events.KindTimerStop, page.Events[0].Type)

	resp, _ = s.do(t, http.MethodGet, path+"?since=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = s.do(t, http.MethodGet, "/api/events/0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = s.do(t, http.MethodGet, "/api/events/12345", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBoardRoutes(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/api/retrospectives", board.CreateSessionRequest{Title: "Q3 review"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var session models.Session
	require.NoError(t, json.Unmarshal(body, &session))
	assert.Equal(t, "Q3 review", session.Title)
	ref := strconv.FormatInt(session.ID, 10)

	resp, body = s.do(t, http.MethodGet, "/api/retrospectives/"+session.ShareToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched models.Session
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, session.ID, fetched.ID)

	resp, body = s.do(t, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "what_went_right")

	resp, body = s.do(t, http.MethodPost, "/api/feedback", board.CreateFeedbackRequest{
		SessionID: session.ID,
		Category:  "what_went_right",
		Content:   "  shipped on time ",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var item models.FeedbackItem
	require.NoError(t, json.Unmarshal(body, &item))
	assert.Equal(t, "shipped on time", item.Content)
	itemPath := "/api/feedback/" + strconv.FormatInt(item.ID, 10)

	resp, _ = s.do(t, http.MethodPost, "/api/feedback", board.CreateFeedbackRequest{SessionID: session.ID, Category: "gossip", Content: "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(t, http.MethodPut, itemPath, board.UpdateFeedbackRequest{Content: "shipped early"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	vote := VoteRequest{FeedbackItemID: item.ID, DeviceID: "device-1"}
	resp, body = s.do(t, http.MethodPost, "/api/votes", vote)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var result board.VoteResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 1, result.TotalVotes)

	resp, _ = s.do(t, http.MethodPost, "/api/votes", vote)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, "/api/votes/user?device_id=device-1&retrospective_id="+ref, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"voted_items":[`+strconv.FormatInt(item.ID, 10)+`]}`, string(body))

	resp, body = s.do(t, http.MethodDelete, "/api/votes", vote)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 0, result.TotalVotes)

	resp, body = s.do(t, http.MethodGet, "/api/retrospectives/"+ref+"/feedback", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var items []models.FeedbackItem
	require.NoError(t, json.Unmarshal(body, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "shipped early", items[0].Content)

	resp, _ = s.do(t, http.MethodDelete, itemPath, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = s.do(t, http.MethodDelete, itemPath, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = s.do(t, http.MethodPut, "/api/feedback/abc", board.UpdateFeedbackRequest{Content: "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	kinds := []events.Kind{}
	for _, ev := range s.log.Since(session.ID, 0) {
		kinds = append(kinds, ev.Type)
	}
	assert.Equal(t, []events.Kind{
		events.KindFeedbackAdded,
		events.KindFeedbackUpdated,
		events.KindFeedbackVoted,
		events.KindFeedbackVoted,
		events.KindFeedbackDeleted,
	}, kinds)

	resp, _ = s.do(t, http.MethodDelete, "/api/retrospectives/"+ref, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = s.do(t, http.MethodGet, "/api/retrospectives/"+ref, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type collected struct {
	mu    sync.Mutex
	kinds []events.Kind
}

func (c *collected) add(_ context.Context, ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kinds = append(c.kinds, ev.Type)
}

func TestPollerAgainstServer(t *testing.T) {
	s := newTestServer(t)
	session := s.session(t)
	ctx := context.Background()

	client := clients.NewRetroboardClient(s.srv.URL, "watcher")
	var timerEvents, boardEvents collected
	p := poller.New(client, session.ShareToken, poller.Handlers{
		Timer: timerEvents.add,
		Board: boardEvents.add,
	}, time.Second, s.clock)

	_, err := client.ControlTimer(ctx, session.ShareToken, clients.TimerAction{Action: ActionStart, Duration: 120})
	require.NoError(t, err)
	_, err = s.app.CreateFeedback(ctx, board.CreateFeedbackRequest{SessionID: session.ID, Category: "risks", Content: "flaky CI"})
	require.NoError(t, err)

	require.NoError(t, p.Poll(ctx))
	assert.Equal(t, []events.Kind{events.KindTimerStart}, timerEvents.kinds)
	assert.Equal(t, []events.Kind{events.KindFeedbackAdded}, boardEvents.kinds)

	// nothing new, cursor holds
	require.NoError(t, p.Poll(ctx))
	assert.Len(t, timerEvents.kinds, 1)
	status := p.Status()
	assert.True(t, status.Connected)
	assert.Equal(t, s.log.LatestTimestamp(session.ID), status.Cursor)

	_, err = client.ControlTimer(ctx, session.ShareToken, clients.TimerAction{Action: ActionStart, Duration: 60, ClientToken: "intruder"})
	var statusErr *clients.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}
