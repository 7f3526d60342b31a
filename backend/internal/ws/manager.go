package ws

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"docsync/backend/internal/cache"
	"docsync/backend/internal/collab"
)

// upgrader allows local development origins; environments without an Origin
// header (native clients, tests) are let through.
var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" {
		return true
	}
	allowedPrefixes := []string{
		"http://localhost",
		"http://127.0.0.1",
		"https://localhost",
		"https://127.0.0.1",
	}
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(origin, p) {
			return true
		}
	}
	return false
}}

// Manager upgrades HTTP requests to WebSocket connections and hands them to
// the room coordinator.
type Manager struct {
	coord    *collab.Coordinator
	presence cache.PresenceCache
}

func NewManager(coord *collab.Coordinator, presence cache.PresenceCache) *Manager {
	return &Manager{coord: coord, presence: presence}
}

// Connect is the gin handler for the /ws route. The optional ?name= query
// sets the display name shown to other peers.
func (m *Manager) Connect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v (origin=%s)", err, c.Request.Header.Get("Origin"))
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	name := c.Query("name")

	wsConn := NewConn(conn, m.coord, m.presence, connID, name)

	// start the writer first so anything enqueued during join is flushed
	go wsConn.writeLoop()
	wsConn.readLoop(c.Request.Context())
}
