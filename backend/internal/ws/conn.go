package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"docsync/backend/internal/cache"
	"docsync/backend/internal/collab"
)

const (
	sendQueueSize = 64
	presenceTTL   = 600 * time.Second
	cursorTTL     = 60 * time.Second
)

// Conn binds one WebSocket to the room coordinator. The read loop processes
// inbound messages; the write loop drains the send queue. Outbound enqueues
// never block: a slow consumer loses messages rather than stalling the
// session that is broadcasting to it.
type Conn struct {
	ws       *websocket.Conn
	coord    *collab.Coordinator
	presence cache.PresenceCache
	connID   string
	name     string
	send     chan collab.Outbound
	docs     map[string]struct{} // documents joined; read loop only
}

func NewConn(ws *websocket.Conn, coord *collab.Coordinator, presence cache.PresenceCache, connID, name string) *Conn {
	return &Conn{
		ws:       ws,
		coord:    coord,
		presence: presence,
		connID:   connID,
		name:     name,
		send:     make(chan collab.Outbound, sendQueueSize),
		docs:     make(map[string]struct{}),
	}
}

func (c *Conn) ConnID() string { return c.connID }

// Enqueue implements collab.Peer.
func (c *Conn) Enqueue(msg collab.Outbound) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Conn) sendError(docID string, err error) {
	code := "INTERNAL"
	for _, sentinel := range []error{
		collab.ErrNotAttached,
		collab.ErrStoreUnavailable,
		collab.ErrInvalidOperation,
		collab.ErrSessionNotFound,
		collab.ErrSessionClosed,
	} {
		if errors.Is(err, sentinel) {
			code = sentinel.Error()
			break
		}
	}
	c.Enqueue(ErrorMessage{Type: "error", DocID: docID, Code: code, Content: err.Error()})
}

// readLoop runs until the socket closes, then detaches the connection from
// every session it joined. Closing mid-flight never corrupts a session:
// operations already accepted were broadcast under the session lock.
func (c *Conn) readLoop(ctx context.Context) {
	defer func() {
		bg := context.WithoutCancel(ctx)
		c.coord.ConnectionClosed(bg, c)
		if c.presence != nil {
			for docID := range c.docs {
				if err := c.presence.Remove(bg, docID, c.connID); err != nil {
					log.Printf("presence remove failed conn=%s doc=%s: %v", c.connID, docID, err)
				}
			}
		}
		close(c.send)
	}()

	for {
		var msg ClientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("read error conn=%s: %v", c.connID, err)
			}
			return
		}

		switch msg.Type {
		case TypeJoinDocument:
			if err := c.coord.JoinDocument(ctx, c, msg.DocID); err != nil {
				log.Printf("join failed conn=%s doc=%s: %v", c.connID, msg.DocID, err)
				c.sendError(msg.DocID, err)
				continue
			}
			c.docs[msg.DocID] = struct{}{}
			c.touchPresence(ctx, msg.DocID)

		case TypeSubmitEdit:
			if _, err := c.coord.SubmitEdit(ctx, c, msg.DocID, msg.Ops); err != nil {
				c.sendError(msg.DocID, err)
			}

		case TypeSetTitle:
			if err := c.coord.SetTitle(ctx, c, msg.DocID, msg.Title); err != nil {
				c.sendError(msg.DocID, err)
			}

		case TypeCursorPosition:
			c.coord.RelayCursor(c, msg.DocID, msg.Position)
			if c.presence != nil && msg.Position != nil {
				if b, err := json.Marshal(msg.Position); err == nil {
					if err := c.presence.SetCursor(ctx, msg.DocID, c.connID, b, cursorTTL); err != nil {
						log.Printf("set cursor failed conn=%s: %v", c.connID, err)
					}
				}
			}

		case TypeHeartbeat:
			c.touchPresence(ctx, msg.DocID)

		default:
			c.Enqueue(ErrorMessage{Type: "error", Code: "UNKNOWN_TYPE", Content: "unknown message type " + msg.Type})
		}
	}
}

// touchPresence refreshes this connection's room membership and pushes the
// current roster back to it.
func (c *Conn) touchPresence(ctx context.Context, docID string) {
	if c.presence == nil || docID == "" {
		return
	}
	if err := c.presence.Heartbeat(ctx, docID, c.connID, c.name, presenceTTL); err != nil {
		log.Printf("presence heartbeat failed conn=%s doc=%s: %v", c.connID, docID, err)
		return
	}
	members, err := c.presence.AliveMembers(ctx, docID)
	if err != nil {
		log.Printf("presence members failed doc=%s: %v", docID, err)
		return
	}
	out := make([]PresenceMember, len(members))
	for i, m := range members {
		out[i] = PresenceMember{ConnID: m.ConnID, Name: m.Name}
	}
	c.Enqueue(PresenceMessage{Type: "presence", DocID: docID, Members: out})
}

// writeLoop drains the send queue until it closes. The first write failure
// ends the loop and closes the socket, which fails the read loop and lets it
// run the usual teardown instead of logging every queued message against a
// dead peer.
func (c *Conn) writeLoop() {
	for msg := range c.send {
		if err := c.ws.WriteJSON(msg); err != nil {
			log.Printf("write error conn=%s: %v", c.connID, err)
			c.ws.Close()
			return
		}
	}
}
