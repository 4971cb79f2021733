package sync

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 2 * time.Second

type Hub struct {
	mu        sync.Mutex
	clients   map[net.Conn]struct{}
	wsClients map[*websocket.Conn]struct{}
	log       *zap.Logger
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:   make(map[net.Conn]struct{}),
		wsClients: make(map[*websocket.Conn]struct{}),
		log:       log.Named("hub"),
	}
}

// Add greets conn and registers it. The greeting is written under the hub
// lock so it can never interleave with a broadcast.
func (h *Hub) Add(conn net.Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if _, err := conn.Write(h.welcomeLocked("tcp", 1, 0)); err != nil {
		return err
	}
	h.clients[conn] = struct{}{}
	return nil
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// AddWS is Add for websocket clients; gorilla connections allow one writer
// at a time, and the hub lock is that writer's token.
func (h *Hub) AddWS(ws *websocket.Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(websocket.TextMessage, h.welcomeLocked("websocket", 0, 1)); err != nil {
		return err
	}
	h.wsClients[ws] = struct{}{}
	return nil
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.wsClients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// BroadcastJSON sends v as one newline-terminated JSON line to every client.
// Clients that fail a write are dropped.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.Warn("encode broadcast", zap.Error(err))
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		w := bufio.NewWriter(c)
		if _, err := w.Write(b); err == nil {
			err = w.Flush()
		}
		if err != nil {
			h.log.Debug("drop tcp client", zap.Stringer("addr", c.RemoteAddr()), zap.Error(err))
			_ = c.Close()
			delete(h.clients, c)
		}
	}

	for ws := range h.wsClients {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			h.log.Debug("drop ws client", zap.Error(err))
			_ = ws.Close()
			delete(h.wsClients, ws)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
	for ws := range h.wsClients {
		_ = ws.Close()
		delete(h.wsClients, ws)
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
	}
}

// welcomeLocked counts the joining client (tcp/ws) in the reported stats.
func (h *Hub) welcomeLocked(transport string, tcp, ws int) []byte {
	b, _ := json.Marshal(map[string]any{
		"type":      "welcome",
		"transport": transport,
		"clients": Stats{
			TCPClients: len(h.clients) + tcp,
			WSClients:  len(h.wsClients) + ws,
		},
	})
	return append(b, '\n')
}
