package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"dysk-osobisty/internal/config"
	"dysk-osobisty/internal/database"
	"dysk-osobisty/internal/storage"
	"dysk-osobisty/internal/websocket"
)

type Server struct {
	config  *config.Config
	store   *database.Store
	storage *storage.LocalStorage
	wsHub   *websocket.Hub
}

func NewServer(cfg *config.Config, store *database.Store, storage *storage.LocalStorage, wsHub *websocket.Hub) *Server {
	return &Server{
		config:  cfg,
		store:   store,
		storage: storage,
		wsHub:   wsHub,
	}
}

// @Summary      Health check
// @Description  Returns 200 when the server and its database connection are alive.
// @Tags         health
// @Success      200  {string}  string "OK"
// @Failure      503  {string}  string "Service Unavailable"
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.GetPool().Ping(r.Context()); err != nil {
		http.Error(w, "Database unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func parsePagination(r *http.Request) (limit int, offset int) {
	limit = 100
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}

// recordActivity dopisuje wpis audytowy w ramach bieżącej transakcji.
// Błąd zapisu audytu nie wywraca operacji głównej.
func (s *Server) recordActivity(ctx context.Context, q *database.Queries, userID int64, nodeID *string, action string, details interface{}) {
	if err := q.LogActivity(ctx, userID, nodeID, action, details); err != nil {
		log.Printf("WARN: Failed to log activity %q for user %d: %v", action, userID, err)
	}
}

// publishActivity wypycha zdarzenie do podłączonych klientów WS po commicie.
func (s *Server) publishActivity(userID int64, action string, payload interface{}) {
	msg := map[string]interface{}{
		"action":  action,
		"payload": payload,
	}
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		log.Printf("WARN: Failed to marshal ws payload for action %q: %v", action, err)
		return
	}
	s.wsHub.PublishActivity(userID, msgBytes)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
