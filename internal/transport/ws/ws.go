/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package ws is the WebSocket transport: one JSON-RPC message per
// frame, session/reconnect semantics, and optional JWT authentication,
// plus the health, metrics and token-issuance HTTP endpoints a
// long-running network deployment needs.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"codebuddy.dev/codebuddy/internal/dispatcher"
	"codebuddy.dev/codebuddy/internal/lspmanager"
	"codebuddy.dev/codebuddy/internal/logging"
)

const maxReadSize = 64 * 1024

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     isLocalOrigin,
}

// isLocalOrigin rejects cross-origin browser connections while still
// allowing same-host reverse proxies and clients that send no Origin at
// all (most non-browser MCP clients).
func isLocalOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	originHost := originURL.Hostname()

	requestHost := r.Host
	if i := strings.IndexByte(requestHost, ':'); i != -1 {
		requestHost = requestHost[:i]
	}
	if originHost == requestHost {
		return true
	}
	if originHost == "localhost" || originHost == "127.0.0.1" || originHost == "::1" || originHost == "[::1]" {
		return true
	}
	if strings.HasSuffix(originHost, ".localhost") {
		return true
	}
	if strings.HasPrefix(originHost, "127.") {
		parts := strings.Split(originHost, ".")
		if len(parts) == 4 && parts[0] == "127" {
			return true
		}
	}
	return false
}

// Config is the subset of internal/config.Config the transport needs.
type Config struct {
	Host      string
	Port      int
	AuthOn    bool
	JWTSecret string
	TokenTTL  time.Duration
}

// Server is the WebSocket transport server.
type Server struct {
	cfg        Config
	dispatcher *dispatcher.Dispatcher
	svc        *dispatcher.ServiceContext
	lsp        *lspmanager.Manager
	sessions   *sessionStore
	metrics    *metrics
	logger     *logging.Logger
}

// New builds a Server. lsp may be nil only in tests that don't exercise
// the open-files gauge.
func New(cfg Config, d *dispatcher.Dispatcher, svc *dispatcher.ServiceContext, lsp *lspmanager.Manager) *Server {
	return &Server{
		cfg:        cfg,
		dispatcher: d,
		svc:        svc,
		lsp:        lsp,
		sessions:   newSessionStore(),
		metrics:    newMetrics(),
		logger:     logging.Global().WithCorrelation("ws"),
	}
}

// Handler returns the http.Handler to serve: the JSON-RPC socket at
// "/", health at "/healthz", Prometheus metrics at "/metrics", and,
// only when auth is enabled, token issuance at "/auth".
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleSocket)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	if s.cfg.AuthOn {
		mux.HandleFunc("/auth", s.handleAuth)
	}
	if s.lsp != nil {
		go s.reportOpenFiles()
	}
	return mux
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// server fails to serve.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()
	go s.sweepSessions(ctx)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleAuth issues a short-lived token for a project, the minimal
// convenience a self-hosted deployment needs to bootstrap a client
// without a separate identity provider (see DESIGN.md for the boundary
// this draws against general key issuance).
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Project string `json:"project"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ttl := s.cfg.TokenTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	token, err := issueToken(body.Project, []byte(s.cfg.JWTSecret), ttl)
	if err != nil {
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// sweepSessions drops expired disconnected sessions on the same cadence
// the LSP manager uses for its own hygiene sweep.
func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sessions.sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) reportOpenFiles() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		for name, count := range s.lsp.OpenFileCounts() {
			s.metrics.openFilesPerLang.WithLabelValues(name).Set(float64(count))
		}
	}
}

// handleSocket upgrades the connection and runs its read loop. One
// Session is created (or restored via "reconnect") per connection and
// lives for the connection's lifetime plus the reconnect grace window.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warning("websocket upgrade failed: %v", err)
		return
	}
	conn.SetReadLimit(maxReadSize)
	wrapper := &connWrapper{conn: conn}

	session := &dispatcher.Session{ID: uuid.NewString()}
	switch {
	case !s.cfg.AuthOn:
		session.Authenticated = true
	case bearerFromHeader(r) != "":
		if err := verifyToken(bearerFromHeader(r), []byte(s.cfg.JWTSecret), ""); err == nil {
			session.Authenticated = true
		}
	}
	s.sessions.put(session)

	defer func() {
		s.sessions.markDisconnected(session.ID)
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		resp, closeCode := s.handleMessage(r.Context(), session, raw)
		if resp != nil {
			wrapper.writeJSON(resp)
		}
		if closeCode != 0 {
			wrapper.writeClose(closeCode, "authentication failed")
			return
		}
	}
}

// connWrapper serializes writes to one connection; gorilla/websocket
// permits only one concurrent writer.
type connWrapper struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *connWrapper) writeJSON(v any) {
	body, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteMessage(websocket.TextMessage, body)
}

func (c *connWrapper) writeClose(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}

type reconnectParams struct {
	SessionID string `json:"sessionId"`
}

// handleMessage decodes one frame, handles the "reconnect" handshake
// method locally (it has no equivalent over stdio, where a connection
// and a session are the same thing), verifies the bearer token on
// "initialize" when auth is enabled, and otherwise routes through the
// shared dispatcher. A non-zero closeCode means the caller must close
// the socket with that WS close code instead of sending resp.
func (s *Server) handleMessage(ctx context.Context, session *dispatcher.Session, raw []byte) (resp *dispatcher.Response, closeCode int) {
	var req dispatcher.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		s.logger.Warning("malformed message: %v", err)
		return nil, 0
	}

	if req.Method == "reconnect" {
		var params reconnectParams
		_ = json.Unmarshal(req.Params, &params)
		restored, ok := s.sessions.reconnect(params.SessionID)
		if !ok {
			return &dispatcher.Response{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error: &dispatcher.WireError{
					Code:    "InvalidRequest",
					Message: "session expired or unknown",
					Details: map[string]any{"sessionId": params.SessionID},
				},
			}, 0
		}
		*session = *restored
		return &dispatcher.Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]any{"sessionId": session.ID},
		}, 0
	}

	if req.Method == "initialize" {
		if s.cfg.AuthOn && !session.Authenticated {
			token := extractBearer(req.Params)
			if err := verifyToken(token, []byte(s.cfg.JWTSecret), ""); err != nil {
				s.logger.Warning("websocket auth failed for session %s: %v", session.ID, err)
				return nil, websocket.ClosePolicyViolation
			}
			session.Authenticated = true
		}
		var params struct {
			Project     string `json:"project"`
			ProjectRoot string `json:"projectRoot"`
		}
		_ = json.Unmarshal(req.Params, &params)
		session.ProjectID = params.Project
		session.ProjectRoot = params.ProjectRoot
		session.Initialized = true
		return &dispatcher.Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]any{"sessionId": session.ID},
		}, 0
	}

	if !session.Authenticated && s.cfg.AuthOn {
		return &dispatcher.Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &dispatcher.WireError{Code: "Unauthenticated", Message: "call initialize with a valid token first"},
		}, 0
	}

	ep := dispatcher.Endpoint{Session: session, Public: true}

	if req.Method == "tools/call" {
		s.metrics.toolCallsInFlight.Inc()
		defer s.metrics.toolCallsInFlight.Dec()
		var params struct {
			Name string `json:"name"`
		}
		_ = json.Unmarshal(req.Params, &params)
		timer := prometheus.NewTimer(s.metrics.toolCallSeconds.WithLabelValues(params.Name))
		defer timer.ObserveDuration()
	}

	result := s.dispatcher.HandleRequest(ctx, s.svc, ep, req)
	if result.ID == nil && result.Result == nil && result.Error == nil {
		return nil, 0
	}
	return &result, 0
}

func bearerFromHeader(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if rest, ok := strings.CutPrefix(h, "Bearer "); ok {
		return rest
	}
	return ""
}

func extractBearer(params json.RawMessage) string {
	var decoded struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(params, &decoded)
	return decoded.Token
}
