package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"markestedt/winchord/config"
	"markestedt/winchord/storage"
)

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // served on localhost only
	},
}

// History is the chord history the API reads from
type History interface {
	GetChordEvents(limit, offset int) ([]storage.ChordEvent, error)
	GetChordEventCount() (int, error)
	DeleteChordEventsBefore(cutoff time.Time) (int64, error)
	GetOverallStats(days int) (*storage.OverallStats, error)
	GetDailyStats(days int) ([]storage.DailyStats, error)
	GetChordStats(days int) ([]storage.ChordStats, error)
}

// Controls is the running agent as seen by the API
type Controls interface {
	Status() Status
	Slots() []SlotView
	Pause()
	Resume()
}

// Status is the agent state shown in the dashboard
type Status struct {
	State       string `json:"status"`
	Mode        string `json:"mode"`
	AlwaysOnTop bool   `json:"alwaysOnTop"`
	Session     string `json:"session"`
}

// SlotView is one slot as shown in the dashboard
type SlotView struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	ExePath string `json:"exePath"`
	Live    bool   `json:"live"`
}

// Server represents the web server
type Server struct {
	history  History
	controls Controls
	config   *config.Config
	port     int
	hub      *Hub
	mu       sync.RWMutex
}

// NewServer creates a new web server
func NewServer(history History, controls Controls, cfg *config.Config, port int) *Server {
	return &Server{
		history:  history,
		controls: controls,
		config:   cfg,
		port:     port,
		hub:      NewHub(),
	}
}

// Handler builds the routes
func (s *Server) Handler() (http.Handler, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/slots", s.handleSlots)
	mux.HandleFunc("/api/pause", s.handlePause)
	mux.HandleFunc("/api/resume", s.handleResume)
	mux.HandleFunc("/ws", s.handleWebSocket)

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to load static files: %w", err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticFS)))

	return mux, nil
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	go s.hub.Run()
	defer s.hub.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Starting web server", "port", s.port, "url", s.URL())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// URL returns the dashboard address
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}

// GetConfig returns the current configuration (thread-safe)
func (s *Server) GetConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// UpdateConfig swaps in a reloaded configuration (thread-safe)
func (s *Server) UpdateConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

// BroadcastStatus pushes the agent state to all clients
func (s *Server) BroadcastStatus(status Status) {
	s.hub.BroadcastMessage(Message{Type: MessageTypeStatus, Data: status})
}

// BroadcastChord pushes a stored chord event to all clients
func (s *Server) BroadcastChord(e *storage.ChordEvent) {
	s.hub.BroadcastMessage(Message{
		Type: MessageTypeChord,
		Data: ChordMessage{
			ID:        e.ID,
			Chord:     e.Chord,
			Keys:      e.Keys,
			Action:    e.Action,
			Outcome:   e.Outcome,
			Error:     e.ErrorMessage,
			LatencyMs: e.LatencyMs,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// BroadcastKey pushes a live key token
func (s *Server) BroadcastKey(token string) {
	s.hub.BroadcastMessage(Message{Type: MessageTypeKey, Data: token})
}

// BroadcastGuidance pushes a guidance message
func (s *Server) BroadcastGuidance(text string) {
	s.hub.BroadcastMessage(Message{Type: MessageTypeGuidance, Data: text})
}

// BroadcastSlots pushes the slot table
func (s *Server) BroadcastSlots(slots []SlotView) {
	s.hub.BroadcastMessage(Message{Type: MessageTypeSlots, Data: slots})
}

// ChordMessage is the websocket form of a chord event
type ChordMessage struct {
	ID        int64  `json:"id"`
	Chord     string `json:"chord"`
	Keys      string `json:"keys"`
	Action    string `json:"action"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
	Timestamp string `json:"timestamp"`
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	if s.controls != nil {
		s.BroadcastStatus(s.controls.Status())
	}
}
