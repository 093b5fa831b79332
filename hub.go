package mdshow

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

const (
	// documents can be megabytes of markdown
	maxMessageSize = 4 << 20
	sendBufferSize = 32
)

// Client event types.
const (
	eventJoin        = "join_presentation"
	eventLeave       = "leave_presentation"
	eventUpdate      = "update_content"
	eventChangePage  = "change_page"
	eventRequestSync = "request_sync"
)

// inboundEvent is the single frame shape clients send. Type discriminates;
// required fields are validated per type and malformed frames are dropped
// without a reply.
type inboundEvent struct {
	Type    string `json:"type"`
	FileID  string `json:"file_id"`
	Content string `json:"content"`
	Page    int    `json:"page"`
}

type joinedEvent struct {
	Type   string `json:"type"`
	FileID string `json:"file_id"`
}

type contentUpdatedEvent struct {
	Type    string   `json:"type"`
	Content string   `json:"content"`
	Slides  []*Slide `json:"slides"`
}

type pageChangedEvent struct {
	Type string `json:"type"`
	Page int    `json:"page"`
}

type syncDataEvent struct {
	Type    string   `json:"type"`
	Content string   `json:"content"`
	Slides  []*Slide `json:"slides"`
}

// Hub maps document ids to the set of connections currently viewing them
// and routes events between clients and the document store. It implements
// http.Handler for the websocket endpoint.
type Hub struct {
	store    *DocumentStore
	log      *logrus.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	rooms map[string]map[*Client]bool
}

func NewHub(store *DocumentStore, log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		store: store,
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		rooms: make(map[string]map[*Client]bool),
	}
}

// Client is one websocket connection. A client may be a member of several
// rooms over its lifetime, one per open document view; disconnecting removes
// it from all of them.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// buffered so a slow peer never blocks a room broadcast; closed
	// exactly once by the hub
	send   chan []byte
	rooms  map[string]bool
	closed bool
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	c := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		rooms: make(map[string]bool),
	}

	h.log.WithField("remote", conn.RemoteAddr().String()).Debug("client connected")

	go c.writePump()
	go c.readPump()
}

// RoomSize reports the number of connections in a room.
func (h *Hub) RoomSize(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[id])
}

// NotifyContentUpdated pushes a re-parsed document to every viewer of its
// room. Used by server side update paths such as the file watcher.
func (h *Hub) NotifyContentUpdated(fileID, content string, slides []*Slide) {
	h.fanOut(fileID, nil, contentUpdatedEvent{
		Type:    "content_updated",
		Content: content,
		Slides:  slides,
	})
}

func (h *Hub) join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[c] = true
	c.rooms[room] = true
}

func (h *Hub) leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// remove drops the client from every room it joined and closes its send
// channel, terminating the write pump.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if c.closed {
		return
	}
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	c.closed = true
	close(c.send)
}

// sendEvent queues a frame for one client, detaching the client if its
// buffer is full: a stalled peer must not hold up the rest of the room.
func (h *Hub) sendEvent(c *Client, evt interface{}) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Error("encoding event failed")
		return
	}
	h.enqueue(c, data)
}

func (h *Hub) enqueue(c *Client, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		h.log.Debug("dropping stalled client")
		h.removeLocked(c)
	}
}

// fanOut delivers an event to every member of a room, optionally excluding
// one connection. Delivery is fire and forget; an unreachable member never
// blocks or aborts delivery to the rest.
func (h *Hub) fanOut(room string, except *Client, evt interface{}) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Error("encoding event failed")
		return
	}

	h.mu.Lock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		if c != except {
			members = append(members, c)
		}
	}
	h.mu.Unlock()

	for _, c := range members {
		h.enqueue(c, data)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleEvent(data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleEvent(data []byte) {
	var evt inboundEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		c.hub.log.WithError(err).Debug("dropping malformed event")
		return
	}

	switch evt.Type {
	case eventJoin:
		if evt.FileID == "" {
			return
		}
		c.hub.join(c, evt.FileID)
		c.hub.sendEvent(c, joinedEvent{Type: "joined", FileID: evt.FileID})

	case eventLeave:
		if evt.FileID == "" {
			return
		}
		c.hub.leave(c, evt.FileID)

	case eventUpdate:
		// only the id is required: clearing a document to empty text is a
		// valid update and parses to zero slides
		if evt.FileID == "" {
			return
		}
		slides, err := c.hub.store.ReplaceContent(evt.FileID, evt.Content)
		if err != nil {
			c.hub.log.WithField("file_id", evt.FileID).Debug("update for unknown document")
			return
		}
		// The sender gets the echo too: its view must reflect the
		// canonical re-parsed slide list, not its local guess.
		c.hub.NotifyContentUpdated(evt.FileID, evt.Content, slides)

	case eventChangePage:
		if evt.FileID == "" {
			return
		}
		// No echo: the sender already advanced locally and a bounce back
		// would double step its view.
		c.hub.fanOut(evt.FileID, c, pageChangedEvent{Type: "page_changed", Page: evt.Page})

	case eventRequestSync:
		if evt.FileID == "" {
			return
		}
		snap, err := c.hub.store.Snapshot(evt.FileID)
		if err != nil {
			return
		}
		c.hub.sendEvent(c, syncDataEvent{Type: "sync_data", Content: snap.Content, Slides: snap.Slides})

	default:
		// unknown event types are ignored
	}
}
