package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	wsWriteDeadline = 5 * time.Second
	wsReadLimit     = 1 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWatchEntities streams filtered listing snapshots over a WebSocket.
// Each frame is the full latest listing; successive changes may coalesce.
func (s *Server) handleWatchEntities(w http.ResponseWriter, r *http.Request) {
	filters, err := buildEntityFilters(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	updates, cancel, err := s.catalog.WatchEntities(r.Context(), filters)
	if err != nil {
		s.logger.Printf("watch entities error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to watch entities")
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote its own error response.
		return
	}
	defer conn.Close()
	go s.discardReads(conn, cancel)

	for entities := range updates {
		items := make([]entityResponse, 0, len(entities))
		for _, entity := range entities {
			items = append(items, toEntityResponse(entity))
		}
		if !s.writeFrame(conn, items) {
			return
		}
	}
}

// handleWatchReviews streams an entity's reviews, newest first.
func (s *Server) handleWatchReviews(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	updates, cancel, err := s.catalog.WatchReviews(r.Context(), id)
	if err != nil {
		s.respondCatalogError(w, err, "Failed to watch reviews")
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	go s.discardReads(conn, cancel)

	for reviews := range updates {
		items := make([]reviewResponse, 0, len(reviews))
		for _, review := range reviews {
			items = append(items, toReviewResponse(review))
		}
		if !s.writeFrame(conn, items) {
			return
		}
	}
}

// discardReads drains client frames so close frames are processed; any read
// error (including the peer going away) revokes the subscription.
func (s *Server) discardReads(conn *websocket.Conn, cancel func()) {
	conn.SetReadLimit(wsReadLimit)
	for {
		if _, _, err := conn.NextReader(); err != nil {
			cancel()
			return
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, payload interface{}) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
	if err := conn.WriteJSON(payload); err != nil {
		return false
	}
	return true
}
