// Package rpctest provides an in-process aria2-flavored JSON-RPC websocket
// server for tests.
package rpctest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/driftbyte/aria2ws/pkg/rpc"
)

// HandlerFunc serves one method call.
type HandlerFunc func(params json.RawMessage) (any, *rpc.Error)

// Server accepts websocket connections, answers registered methods, and can
// push notifications to every connected client.
type Server struct {
	httpSrv  *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	conns    map[*serverConn]struct{}
}

type serverConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *serverConn) write(frame *rpc.Frame) error {
	payload, err := frame.Marshal()
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// NewServer starts a server on a random local port.
func NewServer() *Server {
	s := &Server{
		handlers: make(map[string]HandlerFunc),
		conns:    make(map[*serverConn]struct{}),
	}
	s.httpSrv = httptest.NewServer(http.HandlerFunc(s.serveWS))
	return s
}

// URL returns the ws:// endpoint of the server.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.httpSrv.URL, "http")
}

// Register installs a handler for a method.
func (s *Server) Register(method string, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = handler
}

// Notify pushes a notification frame to every connected client.
func (s *Server) Notify(method string, params any) error {
	frame, err := rpc.NewNotification(method, params)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.write(frame)
	}
	return nil
}

// SendRaw pushes an arbitrary payload to every connected client, for
// exercising malformed-frame handling.
func (s *Server) SendRaw(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.writeMu.Lock()
		_ = c.conn.WriteMessage(websocket.TextMessage, payload)
		c.writeMu.Unlock()
	}
}

// DropConnections closes every live connection without stopping the server.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.conn.Close()
		delete(s.conns, c)
	}
}

// Close shuts the server down.
func (s *Server) Close() {
	s.DropConnections()
	s.httpSrv.Close()
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &serverConn{conn: conn}
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frame, err := rpc.Decode(payload)
		if err != nil || frame.ID == nil {
			continue
		}
		handler := s.lookupHandler(frame.Method)
		if handler == nil {
			_ = c.write(rpc.NewErrorResponse(*frame.ID, -32601, "Method not found"))
			continue
		}
		result, rpcErr := handler(frame.Params)
		if rpcErr != nil {
			_ = c.write(rpc.NewErrorResponse(*frame.ID, rpcErr.Code, rpcErr.Message))
			continue
		}
		resp, err := rpc.NewResponse(*frame.ID, result)
		if err != nil {
			_ = c.write(rpc.NewErrorResponse(*frame.ID, -32603, err.Error()))
			continue
		}
		_ = c.write(resp)
	}
}

func (s *Server) lookupHandler(method string) HandlerFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[method]
}
