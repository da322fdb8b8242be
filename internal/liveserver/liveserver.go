// Package liveserver implements the --watch websocket push (spec
// §2/§6): every class RenderAll finishes is broadcast to every connected
// client as a {class, source} JSON event. Grounded on the teacher's
// internal/network WebSocketServer/WebSocketBroadcast pair, narrowed
// from NetworkModule's ID-keyed server map down to the single server one
// javadec run needs.
package liveserver

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is one pushed {class, source} pair.
type Event struct {
	Class  string `json:"class"`
	Source string `json:"source"`
}

// Server accepts websocket connections on one address and broadcasts
// Events to every client currently connected.
type Server struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}

	http *http.Server
}

// New builds a server listening on addr once Start is called.
func New(addr string) *Server {
	s := &Server{
		clients:  make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleConn)
	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *Server) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()
	go s.drain(conn)
}

// drain discards whatever a client sends; javadec's watch clients are
// receive-only, but an unread client stays in gorilla's read loop until
// something reads from it or it errors, the same reasoning behind the
// teacher's WebSocketAccept drain loop.
func (s *Server) drain(conn *websocket.Conn) {
	defer s.remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) remove(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// Start binds addr and begins serving in the background, returning once
// the listener is up so Broadcast/Close are immediately safe to call.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("liveserver: listen %s: %w", s.http.Addr, err)
	}
	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("liveserver: serve: %v", err)
		}
	}()
	return nil
}

// Broadcast pushes ev to every connected client, dropping any whose
// write fails — mirrors WebSocketBroadcast's "keep going, report the
// last error" loop.
func (s *Server) Broadcast(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	s.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	var lastErr error
	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			lastErr = err
			s.remove(c)
		}
	}
	return lastErr
}

// Close disconnects every client and stops the listener.
func (s *Server) Close() error {
	s.mu.Lock()
	for c := range s.clients {
		c.Close()
	}
	s.clients = make(map[*websocket.Conn]struct{})
	s.mu.Unlock()
	return s.http.Close()
}
