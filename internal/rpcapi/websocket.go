package rpcapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xlnnetwork/xln/internal/server"
)

// ObserverServer streams committed ServerFrames to WebSocket clients.
// Unlike the teacher's internal/rpc.WebSocketServer there is no stream
// filtering (subscribe/unsubscribe) — the observer feed is a single
// append-only log and every connection receives every ServerFrame
// (spec.md §6/§9).
//
// Grounded on LeJamon-goXRPLd's internal/rpc/websocket.go: per-connection
// buffered send channel, ping/pong keepalive, upgrade-then-two-goroutines
// lifecycle.
type ObserverServer struct {
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*observerConn

	srv *server.Server
}

type observerConn struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc
}

// NewObserverServer creates an ObserverServer and starts relaying srv's
// committed frames to every connected client.
func NewObserverServer(srv *server.Server) *ObserverServer {
	ws := &ObserverServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*observerConn),
		srv:   srv,
	}
	go ws.relay(srv.Subscribe())
	return ws
}

func (ws *ObserverServer) relay(frames <-chan server.ServerFrame) {
	for f := range frames {
		ws.broadcast(f)
	}
}

func (ws *ObserverServer) broadcast(f server.ServerFrame) {
	data, err := json.Marshal(f)
	if err != nil {
		log.Printf("rpcapi: failed to marshal ServerFrame: %v", err)
		return
	}
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	for _, c := range ws.conns {
		select {
		case c.send <- data:
		default:
			log.Printf("rpcapi: observer connection %s too slow, dropping frame", c.id)
		}
	}
}

// ServeHTTP upgrades the request to a WebSocket and registers the
// connection for the observer feed.
func (ws *ObserverServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("rpcapi: websocket upgrade failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &observerConn{
		id:     fmt.Sprintf("obs-%d", len(ws.conns)+1),
		conn:   conn,
		send:   make(chan []byte, 256),
		ctx:    ctx,
		cancel: cancel,
	}

	ws.mu.Lock()
	ws.conns[c.id] = c
	ws.mu.Unlock()

	go ws.readLoop(c)
	go ws.writeLoop(c)
}

// readLoop discards inbound frames (the feed is one-directional) but
// keeps the read deadline and pong handler alive so dead connections
// are detected.
func (ws *ObserverServer) readLoop(c *observerConn) {
	defer ws.closeConn(c)

	c.conn.SetReadLimit(4096)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	go ws.pingLoop(c)

	for {
		c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (ws *ObserverServer) pingLoop(c *observerConn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ws *ObserverServer) writeLoop(c *observerConn) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

func (ws *ObserverServer) closeConn(c *observerConn) {
	c.cancel()
	ws.mu.Lock()
	delete(ws.conns, c.id)
	ws.mu.Unlock()
	c.conn.Close()
}

// ConnectionCount returns the number of currently connected observers.
func (ws *ObserverServer) ConnectionCount() int {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return len(ws.conns)
}
