package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"chat-relay/internal/engine"
)

// Handler serves the read-only query surface backed by engine snapshots.
type Handler struct {
	eng *engine.Engine
}

func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{eng: eng}
}

// Root serves a plain status line.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("chat relay server is running"))
}

// Health is the liveness endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetMessages pages a room's history: limit newest messages before offset,
// oldest-first. An exhausted page is an empty array, never an error.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	limit := queryInt(r, "limit", engine.DefaultPageLimit)
	offset := queryInt(r, "offset", 0)

	writeJSON(w, http.StatusOK, h.eng.Messages(room, limit, offset))
}

// ListUsers returns the current connection registry snapshot.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.eng.Users())
}

// ListRooms returns the room directory in creation order.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.eng.Rooms())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}
