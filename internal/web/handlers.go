package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/PatrickWalther/wordle-timer-go/internal/puzzle"
)

const maxRecentLimit = 100

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte("Connected"))
}

func (s *Server) handleAPIBotStatus(w http.ResponseWriter, r *http.Request) {
	writeJSONOK(w, s.status.GetStatus())
}

func (s *Server) handleAPIBotStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeInternalError(w, "SSE not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.status.Subscribe()
	defer s.status.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-ch:
			if !ok {
				return
			}
			data, _ := json.Marshal(status)
			_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *Server) handleAPIGames(w http.ResponseWriter, r *http.Request) {
	games := []puzzle.GameSummary{}
	if s.games != nil {
		if snapshot := s.games.Snapshot(); snapshot != nil {
			games = snapshot
		}
	}
	writeJSONOK(w, games)
}

func (s *Server) handleAPICompletions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeServiceUnavailable(w, "History is disabled")
		return
	}

	day := r.URL.Query().Get("day")
	if day == "" {
		day = s.now().In(s.location).Format(time.DateOnly)
	} else if _, err := time.Parse(time.DateOnly, day); err != nil {
		writeBadRequest(w, "day must be YYYY-MM-DD")
		return
	}

	entries, err := s.store.ByDay(r.Context(), day)
	if err != nil {
		writeInternalError(w, "Failed to load completions")
		return
	}
	writeJSONOK(w, map[string]any{
		"day":         day,
		"completions": entries,
	})
}

func (s *Server) handleAPIRecentCompletions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeServiceUnavailable(w, "History is disabled")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecentLimit)
	}

	entries, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		writeInternalError(w, "Failed to load completions")
		return
	}
	writeJSONOK(w, entries)
}
