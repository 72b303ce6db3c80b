// Package testserver runs an in-process WebSocket server that speaks enough of the
// Gremlin Server protocol for package tests.
package testserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/aixgo-dev/gremlin/pkg/protocol"
)

// Handler answers one request. Returning no response leaves the request pending.
type Handler func(req protocol.Request) []protocol.Response

// Server is a fake Gremlin Server.
type Server struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	writeMu sync.Mutex

	mu       sync.Mutex
	handler  Handler
	requests []protocol.Request
	raw      [][]byte
	mimes    []string
	conns    []*websocket.Conn
	accepted int
}

// New starts a server answering with h. It is closed when the test ends.
func New(t testing.TB, h Handler) *Server {
	t.Helper()
	s := &Server{handler: h}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// URL returns the ws:// endpoint.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/gremlin"
}

// SetHandler replaces the handler for subsequent requests.
func (s *Server) SetHandler(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Requests returns the decoded requests received so far.
func (s *Server) Requests() []protocol.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Request(nil), s.requests...)
}

// RawRequests returns the JSON payload of every request received so far.
func (s *Server) RawRequests() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.raw...)
}

// MimeTypes returns the mime type header of every request received so far.
func (s *Server) MimeTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.mimes...)
}

// Connections returns how many WebSocket connections were accepted.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Push sends an unsolicited frame on every open connection.
func (s *Server) Push(resp protocol.Response) {
	data, err := protocol.Marshal(resp)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	conns := append([]*websocket.Conn(nil), s.conns...)
	s.mu.Unlock()
	for _, c := range conns {
		_ = s.write(c, data)
	}
}

func (s *Server) write(c *websocket.Conn, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return c.WriteMessage(websocket.TextMessage, data)
}

// DropConnections closes every open connection from the server side.
func (s *Server) DropConnections() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

// Close stops the server.
func (s *Server) Close() {
	s.DropConnections()
	s.srv.Close()
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.accepted++
	s.mu.Unlock()
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		mime, payload, err := protocol.Unframe(msg)
		if err != nil {
			return
		}
		var req protocol.Request
		if err := protocol.Unmarshal(payload, &req); err != nil {
			return
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.raw = append(s.raw, payload)
		s.mimes = append(s.mimes, mime)
		h := s.handler
		s.mu.Unlock()

		if h == nil {
			continue
		}
		for _, resp := range h(req) {
			data, err := protocol.Marshal(resp)
			if err != nil {
				return
			}
			if err := s.write(conn, data); err != nil {
				return
			}
		}
	}
}

// Reply answers every request with a single successful frame carrying data.
func Reply(data any) Handler {
	return func(req protocol.Request) []protocol.Response {
		return []protocol.Response{Success(req.RequestID, data)}
	}
}

// Chunks answers every request with one partial frame per chunk, then a final frame.
func Chunks(chunks ...any) Handler {
	return func(req protocol.Request) []protocol.Response {
		out := make([]protocol.Response, 0, len(chunks))
		for i, c := range chunks {
			code := protocol.StatusPartialContent
			if i == len(chunks)-1 {
				code = protocol.StatusSuccess
			}
			out = append(out, protocol.Response{
				RequestID: req.RequestID,
				Status:    protocol.Status{Code: code},
				Result:    protocol.Result{Data: c},
			})
		}
		return out
	}
}

// Fail answers every request with the given status.
func Fail(code int, message string) Handler {
	return func(req protocol.Request) []protocol.Response {
		return []protocol.Response{{
			RequestID: req.RequestID,
			Status:    protocol.Status{Code: code, Message: message},
		}}
	}
}

// NoContent answers every request with status 204.
func NoContent() Handler {
	return func(req protocol.Request) []protocol.Response {
		return []protocol.Response{{
			RequestID: req.RequestID,
			Status:    protocol.Status{Code: protocol.StatusNoContent},
		}}
	}
}

// Success builds a final frame with data.
func Success(requestID string, data any) protocol.Response {
	return protocol.Response{
		RequestID: requestID,
		Status:    protocol.Status{Code: protocol.StatusSuccess},
		Result:    protocol.Result{Data: data},
	}
}

// List builds a g:List value.
func List(items ...any) map[string]any {
	if items == nil {
		items = []any{}
	}
	return map[string]any{"@type": "g:List", "@value": items}
}

// Int64 builds a g:Int64 value.
func Int64(n int64) map[string]any {
	return map[string]any{"@type": "g:Int64", "@value": n}
}

// Traverser builds a g:Traverser value.
func Traverser(bulk int64, value any) map[string]any {
	return map[string]any{"@type": "g:Traverser", "@value": map[string]any{"bulk": Int64(bulk), "value": value}}
}
