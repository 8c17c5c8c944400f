package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}

// intParam reads a non-negative query parameter, falling back to def
func intParam(r *http.Request, name string, def int, allowZero bool) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || (n == 0 && !allowZero) {
		return def
	}
	return n
}

// handleConfig returns the active shortcuts and settings
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := s.GetConfig()

	type shortcut struct {
		Label string `json:"label"`
		Keys  string `json:"keys"`
	}
	shortcuts := make([]shortcut, 0, len(cfg.Shortcuts))
	for _, sc := range cfg.Shortcuts {
		shortcuts = append(shortcuts, shortcut{Label: sc.Label, Keys: sc.Keys})
	}

	writeJSON(w, map[string]any{
		"logLevel":      cfg.LogLevel,
		"watch":         cfg.Watch,
		"slotCount":     cfg.Slots.Count,
		"sound":         cfg.Feedback.Sound,
		"notifications": cfg.Feedback.Notifications,
		"webPort":       cfg.Web.Port,
		"shortcuts":     shortcuts,
	})
}

// handleStats returns statistics for the specified time range
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	days := intParam(r, "days", 7, false)

	overall, err := s.history.GetOverallStats(days)
	if err != nil {
		slog.Error("Failed to get overall stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	daily, err := s.history.GetDailyStats(days)
	if err != nil {
		slog.Error("Failed to get daily stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	chords, err := s.history.GetChordStats(days)
	if err != nil {
		slog.Error("Failed to get chord stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"overall": overall,
		"daily":   daily,
		"chords":  chords,
	})
}

// handleHistory handles GET and DELETE requests for chord history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetHistory(w, r)
	case http.MethodDelete:
		s.handleDeleteHistory(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetHistory returns paginated chord history
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", 50, false)
	offset := intParam(r, "offset", 0, true)

	events, err := s.history.GetChordEvents(limit, offset)
	if err != nil {
		slog.Error("Failed to get chord events", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	total, err := s.history.GetChordEventCount()
	if err != nil {
		slog.Error("Failed to get chord event count", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"events": events,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// handleDeleteHistory prunes events older than ?days= (default 30)
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	days := intParam(r, "days", 30, true)
	cutoff := time.Now().AddDate(0, 0, -days)

	n, err := s.history.DeleteChordEventsBefore(cutoff)
	if err != nil {
		slog.Error("Failed to prune history", "error", err, "days", days)
		http.Error(w, "Failed to delete history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"status": "success", "deleted": n})
}

// handleStatus returns the current agent status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.controls.Status())
}

// handleSlots returns the slot table
func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.controls.Slots())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.controls.Pause()
	writeJSON(w, s.controls.Status())
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.controls.Resume()
	writeJSON(w, s.controls.Status())
}
