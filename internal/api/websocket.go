package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"autoclick/internal/protocol"
	"autoclick/internal/status"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The server binds loopback only, so any origin on this machine is fine
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSManager handles WebSocket connections and broadcasting
type WSManager struct {
	server     *Server
	clients    map[*WebSocketClient]bool
	clientsMu  sync.RWMutex
	broadcast  chan protocol.Message
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	shutdown   chan struct{}
}

// WebSocketClient represents a connected GUI or tool
type WebSocketClient struct {
	manager *WSManager
	conn    *websocket.Conn
	send    chan []byte
	ip      string
}

func newWSManager(s *Server) *WSManager {
	return &WSManager{
		server:     s,
		clients:    make(map[*WebSocketClient]bool),
		broadcast:  make(chan protocol.Message),
		register:   make(chan *WebSocketClient),
		unregister: make(chan *WebSocketClient),
		shutdown:   make(chan struct{}),
	}
}

func (m *WSManager) start() {
	for {
		select {
		case client := <-m.register:
			m.clientsMu.Lock()
			m.clients[client] = true
			m.clientsMu.Unlock()
			log.Printf("WS: New client registered from %s. Total clients: %d", client.ip, len(m.clients))

		case client := <-m.unregister:
			m.clientsMu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.send)
				log.Printf("WS: Client unregistered from %s. Total clients: %d", client.ip, len(m.clients))
			}
			m.clientsMu.Unlock()

		case message := <-m.broadcast:
			m.broadcastMessage(message)

		case <-m.shutdown:
			return
		}
	}
}

func (m *WSManager) broadcastMessage(message protocol.Message) {
	jsonMsg, err := json.Marshal(message)
	if err != nil {
		log.Printf("WS: Failed to marshal broadcast message: %v", err)
		return
	}

	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()

	for client := range m.clients {
		select {
		case client.send <- jsonMsg:
		default:
			// Client is not draining its queue, drop it
			close(client.send)
			delete(m.clients, client)
		}
	}
}

func (m *WSManager) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WS: Failed to upgrade connection: %v", err)
		return
	}

	client := &WebSocketClient{
		manager: m,
		conn:    conn,
		send:    make(chan []byte, 256),
		ip:      r.RemoteAddr,
	}

	// Register client
	m.register <- client

	// Start pump goroutines
	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.manager.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WS: Read error: %v", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(50 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WebSocketClient) handleMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("WS: Invalid message format: %v", err)
		return
	}

	switch msg.Type {
	case protocol.TypeCommand:
		var payload protocol.CommandPayload
		jsonBytes, _ := json.Marshal(msg.Payload)
		if err := json.Unmarshal(jsonBytes, &payload); err != nil {
			log.Printf("WS: Invalid command payload: %v", err)
			return
		}

		log.Printf("WS: Received %s command for '%s' from %s", payload.Action, payload.ProfileID, c.ip)

		// Use a goroutine to avoid blocking the read pump
		go func() {
			switch payload.Action {
			case "start":
				c.manager.server.router.StartProfile(payload.ProfileID)
			case "stop":
				c.manager.server.router.StopProfile(payload.ProfileID)
			default:
				log.Printf("WS: Unknown command action %q", payload.Action)
			}
		}()

	case protocol.TypeStateRequest:
		// Send profiles and run state back
		cfg := c.manager.server.configMgr.Get()
		running := []string{}
		for _, id := range c.manager.server.router.RegisteredIDs() {
			if c.manager.server.router.Running(id) {
				running = append(running, id)
			}
		}
		resp := protocol.Message{
			Type: protocol.TypeStateResponse,
			Payload: protocol.StateResponsePayload{
				Profiles: cfg.Profiles,
				Running:  running,
			},
		}

		respBytes, _ := json.Marshal(resp)
		c.send <- respBytes
	}
}

// BroadcastEvent pushes one status event to all connected clients
func (m *WSManager) BroadcastEvent(ev status.Event) {
	msg := protocol.Message{
		Type: protocol.TypeEvent,
		Payload: protocol.EventPayload{
			Kind:      string(ev.Kind),
			ProfileID: ev.ProfileID,
			StepIndex: ev.StepIndex,
			Step:      ev.Step,
			Detail:    ev.Detail,
			Time:      ev.Time.UnixMilli(),
		},
	}
	select {
	case m.broadcast <- msg:
	case <-m.shutdown:
	}
}
