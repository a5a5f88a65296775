// internal/handlers/server.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/tombola/internal/middleware"
	"github.com/jason-s-yu/tombola/internal/room"
	"github.com/jason-s-yu/tombola/internal/session"
	"github.com/sirupsen/logrus"
)

// Server holds everything the HTTP and WebSocket handlers need.
type Server struct {
	Store    *room.Store
	Hub      *Hub
	Sessions *session.Handler
	Logger   *logrus.Logger

	// OriginPatterns is passed to websocket.Accept and the CORS handler.
	OriginPatterns []string
	MessageRate    float64
	MessageBurst   int
}

// NewServer wires a store, a hub and a session handler together. The hub is
// the store's notifier, so store must have been built with hub as
// Options.Notifier; see NewRoomServer for the usual construction.
func NewServer(store *room.Store, hub *Hub, logger *logrus.Logger) *Server {
	return &Server{
		Store:          store,
		Hub:            hub,
		Sessions:       session.NewHandler(store, hub, logger),
		Logger:         logger,
		OriginPatterns: []string{"*"},
		MessageRate:    10,
		MessageBurst:   20,
	}
}

// NewRoomServer builds the hub and store and returns the wired Server.
func NewRoomServer(opts room.Options, logger *logrus.Logger) *Server {
	hub := NewHub(logger)
	opts.Notifier = hub
	opts.Logger = logger
	return NewServer(room.NewStore(opts), hub, logger)
}

// Routes returns the service router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins(),
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.LogMiddleware(s.Logger))

	r.Get("/health", s.HealthHandler())
	r.Get("/rooms", s.ListRoomsHandler())
	r.Get("/rooms/{code}", s.GetRoomHandler())
	r.Get("/ws", s.RoomWSHandler())
	return r
}

func (s *Server) corsOrigins() []string {
	out := make([]string, 0, len(s.OriginPatterns))
	for _, p := range s.OriginPatterns {
		if p == "*" {
			return []string{"https://*", "http://*"}
		}
		out = append(out, "https://"+p, "http://"+p)
	}
	return out
}

// Shutdown closes every socket and then every room.
func (s *Server) Shutdown() {
	s.Hub.CloseAll()
	s.Store.Close()
}
