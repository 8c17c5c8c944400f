package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markestedt/winchord/config"
	"markestedt/winchord/storage"
)

type fakeHistory struct {
	events []storage.ChordEvent
	cutoff time.Time
	limit  int
	offset int
}

func (f *fakeHistory) GetChordEvents(limit, offset int) ([]storage.ChordEvent, error) {
	f.limit, f.offset = limit, offset
	return f.events, nil
}

func (f *fakeHistory) GetChordEventCount() (int, error) { return len(f.events), nil }

func (f *fakeHistory) DeleteChordEventsBefore(cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 2, nil
}

func (f *fakeHistory) GetOverallStats(days int) (*storage.OverallStats, error) {
	return &storage.OverallStats{TotalChords: len(f.events)}, nil
}

func (f *fakeHistory) GetDailyStats(days int) ([]storage.DailyStats, error) { return nil, nil }

func (f *fakeHistory) GetChordStats(days int) ([]storage.ChordStats, error) {
	return []storage.ChordStats{{Chord: "ctrl window 1", TotalChords: 1}}, nil
}

type fakeControls struct {
	mu     sync.Mutex
	paused bool
}

func (f *fakeControls) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := "listening"
	if f.paused {
		state = "paused"
	}
	return Status{State: state, Mode: "chord"}
}

func (f *fakeControls) Slots() []SlotView {
	return []SlotView{{Index: 1, Title: "Editor", Live: true}, {Index: 2}}
}

func (f *fakeControls) Pause()  { f.mu.Lock(); f.paused = true; f.mu.Unlock() }
func (f *fakeControls) Resume() { f.mu.Lock(); f.paused = false; f.mu.Unlock() }

func newTestServer(t *testing.T) (*Server, *fakeHistory, *fakeControls, http.Handler) {
	t.Helper()
	history := &fakeHistory{events: []storage.ChordEvent{{ID: 1, Chord: "ctrl window 1", Outcome: storage.OutcomeOK}}}
	controls := &fakeControls{}
	cfg := &config.Config{LogLevel: "info", Shortcuts: []config.Shortcut{{Label: "exit program", Keys: "ctrl+shift+q"}}}

	s := NewServer(history, controls, cfg, 0)
	h, err := s.Handler()
	require.NoError(t, err)
	return s, history, controls, h
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHistory(t *testing.T) {
	_, history, _, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/history?limit=10&offset=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, history.limit)
	assert.Equal(t, 5, history.offset)

	var body struct {
		Events []storage.ChordEvent `json:"events"`
		Total  int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	require.Len(t, body.Events, 1)
	assert.Equal(t, "ctrl window 1", body.Events[0].Chord)

	do(t, h, http.MethodGet, "/api/history?limit=-3&offset=x")
	assert.Equal(t, 50, history.limit)
	assert.Equal(t, 0, history.offset)
}

func TestDeleteHistory(t *testing.T) {
	_, history, _, h := newTestServer(t)

	rec := do(t, h, http.MethodDelete, "/api/history?days=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted":2`)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -3), history.cutoff, time.Minute)
}

func TestStats(t *testing.T) {
	_, _, _, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"chords"`)
	assert.Contains(t, rec.Body.String(), "ctrl window 1")
}

func TestPauseResume(t *testing.T) {
	_, _, controls, h := newTestServer(t)

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/pause").Code)

	rec := do(t, h, http.MethodPost, "/api/pause")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"paused"`)
	assert.True(t, controls.paused)

	rec = do(t, h, http.MethodPost, "/api/resume")
	assert.Contains(t, rec.Body.String(), `"status":"listening"`)
}

func TestSlotsAndConfig(t *testing.T) {
	_, _, _, h := newTestServer(t)

	var slots []SlotView
	require.NoError(t, json.Unmarshal(do(t, h, http.MethodGet, "/api/slots").Body.Bytes(), &slots))
	require.Len(t, slots, 2)
	assert.True(t, slots[0].Live)

	rec := do(t, h, http.MethodGet, "/api/config")
	assert.Contains(t, rec.Body.String(), "exit program")
}

func TestStaticIndex(t *testing.T) {
	_, _, _, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>winchord</title>")
}

func TestWebSocketBroadcast(t *testing.T) {
	s, _, _, h := newTestServer(t)
	go s.hub.Run()
	defer s.hub.Stop()

	ts := httptest.NewServer(h)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() Message {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	assert.Equal(t, MessageTypeStatus, read().Type)

	s.BroadcastChord(&storage.ChordEvent{ID: 7, Chord: "exit program", Outcome: storage.OutcomeOK})
	msg := read()
	assert.Equal(t, MessageTypeChord, msg.Type)
	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "exit program", data["chord"])
}
