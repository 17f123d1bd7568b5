// Package web serves highlighted documents over a JSON-RPC websocket.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/odvcencio/genhl/highlight"
	"github.com/odvcencio/genhl/syntax"
	"github.com/odvcencio/genhl/theme"
)

//go:embed static/*
var staticFS embed.FS

// Server provides the HTTP + WebSocket highlighting service.
type Server struct {
	reg    *syntax.Registry
	theme  *theme.Theme
	root   string
	hlOpts []highlight.Option
	log    zerolog.Logger

	limit        rate.Limit
	burst        int
	maxDocuments int
	readLimit    int64
	writeTimeout time.Duration

	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  []*wsClient
}

type wsClient struct {
	conn    *websocket.Conn
	mu      sync.Mutex
	session *session
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithHighlightOptions sets the options of every document highlighter.
func WithHighlightOptions(opts ...highlight.Option) Option {
	return func(s *Server) {
		s.hlOpts = opts
	}
}

// WithRateLimit limits each connection to r requests per second with the
// given burst.
func WithRateLimit(r float64, burst int) Option {
	return func(s *Server) {
		s.limit = rate.Limit(r)
		s.burst = burst
	}
}

// WithMaxDocuments caps the documents one connection may keep open.
func WithMaxDocuments(n int) Option {
	return func(s *Server) {
		s.maxDocuments = n
	}
}

// WithReadLimit caps the size of one incoming message.
func WithReadLimit(n int64) Option {
	return func(s *Server) {
		s.readLimit = n
	}
}

// WithWriteTimeout bounds writing one response.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.writeTimeout = d
	}
}

// NewServer creates a server highlighting with definitions from reg and
// rendering with th. Files opened by path are resolved below root; an
// empty root disables opening files.
func NewServer(reg *syntax.Registry, th *theme.Theme, root string, opts ...Option) *Server {
	s := &Server{
		reg:          reg,
		theme:        th,
		root:         root,
		log:          zerolog.Nop(),
		limit:        rate.Inf,
		maxDocuments: 16,
		readLimit:    1 << 20,
		writeTimeout: 10 * time.Second,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/ws" {
		s.handleWebSocket(w, r)
		return
	}
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		http.Error(w, "static files unavailable", http.StatusInternalServerError)
		return
	}
	http.FileServer(http.FS(sub)).ServeHTTP(w, r)
}

// Run serves on addr until ctx is done, then notifies clients and shuts
// down.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("address", addr).Msg("web server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.Broadcast("shutdown", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	conn.SetReadLimit(s.readLimit)
	client := &wsClient{conn: conn, session: s.newSession()}
	s.mu.Lock()
	s.clients = append(s.clients, client)
	s.mu.Unlock()
	s.log.Debug().Str("remote", r.RemoteAddr).Msg("client connected")

	defer func() {
		conn.Close()
		client.session.closeAll()
		s.mu.Lock()
		for i, c := range s.clients {
			if c == client {
				s.clients = append(s.clients[:i], s.clients[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		s.log.Debug().Str("remote", r.RemoteAddr).Msg("client disconnected")
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var resp rpcResponse
		var req rpcRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			resp = rpcResponse{Error: &rpcError{Code: codeParseError, Message: err.Error()}}
		} else {
			resp = s.handleRPC(client.session, req)
		}
		if err := client.write(resp, s.writeTimeout); err != nil {
			s.log.Warn().Err(err).Msg("write response")
			return
		}
	}
}

func (c *wsClient) write(v any, timeout time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Broadcast sends a notification to all connected WebSocket clients.
func (s *Server) Broadcast(method string, params any) {
	s.mu.Lock()
	clients := append([]*wsClient(nil), s.clients...)
	s.mu.Unlock()

	for _, c := range clients {
		_ = c.write(map[string]any{
			"method": method,
			"params": params,
		}, s.writeTimeout)
	}
}
