// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/tombola/internal/room"
)

// HealthHandler reports liveness plus room and connection counts.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"rooms":       s.Store.Len(),
			"connections": s.Hub.Len(),
		})
	}
}

// ListRoomsHandler returns a snapshot of every live room, ordered by code.
func (s *Server) ListRoomsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms := s.Store.Rooms()
		states := make([]room.State, 0, len(rooms))
		for _, rm := range rooms {
			states = append(states, rm.State())
		}
		writeJSON(w, http.StatusOK, states)
	}
}

// GetRoomHandler returns one room snapshot or 404.
func (s *Server) GetRoomHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.ToUpper(chi.URLParam(r, "code"))
		rm, ok := s.Store.Lookup(code)
		if !ok {
			http.Error(w, room.ErrRoomNotFound.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, rm.State())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
