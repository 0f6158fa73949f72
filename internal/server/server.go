// Package server exposes the battalion advisor over HTTP and WebSocket.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/battalionsim/internal/config"
	"github.com/lawnchairsociety/battalionsim/internal/database"
	"github.com/lawnchairsociety/battalionsim/internal/gamedata"
	"github.com/lawnchairsociety/battalionsim/internal/logger"
	"github.com/lawnchairsociety/battalionsim/internal/namefilter"
	"github.com/lawnchairsociety/battalionsim/internal/strategy"
	"github.com/lawnchairsociety/battalionsim/internal/throttle"
)

// Server serves the advisor API. GameData is shared read-only by every
// request; the database is optional and only backs accounts and profiles.
type Server struct {
	cfg         *config.ServerConfig
	data        *gamedata.GameData
	recommender *strategy.Recommender
	db          *database.Database
	ops         map[string]operation

	conns  *ConnLimiter
	logins *LoginRateLimiter
	names  *namefilter.NameFilter

	router     *mux.Router
	httpServer *http.Server

	mu           sync.Mutex
	sessions     map[*WebSocketClient]struct{}
	closing      bool
	sessionWG    sync.WaitGroup
	shutdownOnce sync.Once
	StartTime    time.Time
}

// New builds a Server. db may be nil, in which case account and profile
// routes answer 503.
func New(cfg *config.ServerConfig, data *gamedata.GameData, db *database.Database) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfg:         cfg,
		data:        data,
		recommender: strategy.New(data, cfg.Advisor.Strategy()),
		db:          db,
		conns:       NewConnLimiter(cfg.Connections),
		logins:      NewLoginRateLimiter(cfg.RateLimit),
		names:       namefilter.New(&cfg.Usernames),
		sessions:    make(map[*WebSocketClient]struct{}),
		StartTime:   time.Now(),
	}
	s.ops = s.operations()
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, accessLogMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	api.Handle("/battalion", s.operationHandler(OpBattalion)).Methods(http.MethodPost)
	api.Handle("/simulate", s.operationHandler(OpSimulate)).Methods(http.MethodPost)
	api.Handle("/recommend/troops", s.operationHandler(OpRecommendTroops)).Methods(http.MethodPost)
	api.Handle("/recommend/enforcers", s.operationHandler(OpRecommendEnforcers)).Methods(http.MethodPost)
	api.Handle("/recommend/quick", s.operationHandler(OpQuickCounter)).Methods(http.MethodPost)

	api.Handle("/accounts", s.requireDatabase(http.HandlerFunc(s.handleCreateAccount))).Methods(http.MethodPost)
	profile := func(h http.HandlerFunc) http.Handler { return s.requireDatabase(s.withProfileAuth(h)) }
	api.Handle("/profiles/{username}", profile(s.handleGetProfile)).Methods(http.MethodGet)
	api.Handle("/profiles/{username}", profile(s.handlePutProfile)).Methods(http.MethodPut)
	api.Handle("/profiles/{username}", profile(s.handleDeleteProfile)).Methods(http.MethodDelete)
	api.Handle("/profiles/{username}/recommend/enforcers", profile(s.handleProfileEnforcers)).Methods(http.MethodPost)

	r.HandleFunc("/ws", s.handleWebSocketUpgrade).Methods(http.MethodGet)

	// Both routers need these or the subrouter falls back to mux's plain-text 404.
	for _, router := range []*mux.Router{r, api} {
		router.NotFoundHandler = http.HandlerFunc(handleNotFound)
		router.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)
	}
	return r
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, &apiError{Status: http.StatusNotFound, Message: "no such endpoint: " + r.URL.Path})
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, &apiError{Status: http.StatusMethodNotAllowed, Message: r.Method + " not allowed on " + r.URL.Path})
}

// ListenAndServe serves on the configured address until Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.HTTP.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. A graceful stop returns nil.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.HTTP.ReadTimeout(),
		WriteTimeout: s.cfg.HTTP.WriteTimeout(),
	}
	srv := s.httpServer
	s.mu.Unlock()

	logger.Info("Advisor listening", "address", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes WebSocket sessions and waits for
// in-flight work until ctx expires. Later calls are no-ops.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logins.Stop()

		s.mu.Lock()
		s.closing = true
		srv := s.httpServer
		for client := range s.sessions {
			_ = client.CloseWithReason(websocket.CloseGoingAway, "server shutting down")
		}
		s.mu.Unlock()

		if srv != nil {
			err = srv.Shutdown(ctx)
		}

		done := make(chan struct{})
		go func() {
			s.sessionWG.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}
		logger.Info("Advisor shutdown complete")
	})
	return err
}

// handleWebSocketUpgrade admits a session within the connection limits and
// origin policy, then serves it on its own goroutine.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	release, ok := s.conns.TryAcquire(ip)
	if !ok {
		logger.Warning("WebSocket connection rejected - limit exceeded", "client_ip", ip)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin, "host", r.Host, "client_ip", ip)
			}
			return allowed
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("WebSocket upgrade failed", "error", err)
		release()
		return
	}

	client := NewWebSocketClient(conn, s.cfg.WebSocket.MaxMessageSize)
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = client.CloseWithReason(websocket.CloseGoingAway, "server shutting down")
		release()
		return
	}
	s.sessions[client] = struct{}{}
	s.sessionWG.Add(1)
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.sessions, client)
			s.mu.Unlock()
			client.Close()
			release()
			s.sessionWG.Done()
		}()
		s.serveSession(client, ip)
	}()
}

// serveSession answers requests in order until the peer disconnects.
func (s *Server) serveSession(client *WebSocketClient, ip string) {
	logger.Info("WebSocket session opened", "client_ip", ip)
	served := 0
	limiter := throttle.NewTracker(s.cfg.WebSocket.Throttle())
	defer func() {
		logger.Info("WebSocket session closed", "client_ip", ip, "requests", served)
	}()

	for {
		req, err := client.ReadRequest()
		if errors.Is(err, errMalformedMessage) {
			if werr := client.WriteReply(wsReply{ID: req.ID, Type: "error", Error: err.Error()}); werr != nil {
				return
			}
			continue
		}
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("WebSocket read ended", "client_ip", ip, "error", err)
			}
			return
		}

		if check := limiter.Check(); !check.Allowed {
			logger.Warning("WebSocket request throttled", "client_ip", ip, "type", req.Type, "wait_seconds", check.WaitSeconds)
			reply := wsReply{ID: req.ID, Type: req.Type, Error: fmt.Sprintf("%s (retry in %ds)", check.Reason, check.WaitSeconds)}
			if err := client.WriteReply(reply); err != nil {
				return
			}
			continue
		}

		served++
		if err := client.WriteReply(s.dispatch(req)); err != nil {
			logger.Debug("WebSocket write failed", "client_ip", ip, "error", err)
			return
		}
	}
}

func (s *Server) dispatch(req wsRequest) wsReply {
	reply := wsReply{ID: req.ID, Type: req.Type}

	op, ok := s.ops[req.Type]
	if !ok {
		reply.Error = "unknown request type " + req.Type
		return reply
	}

	result, err := op(req.Payload)
	if err != nil {
		ae := toAPIError(err, nil)
		reply.Error = ae.Message
		reply.Stage = ae.Stage
		reply.Result = ae.Result
		return reply
	}
	reply.Result = result
	return reply
}

type ctxKey int

const requestIDKey ctxKey = iota

// requestIDMiddleware tags each request with an X-Request-ID, reusing the
// caller's when present.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrader take over the connection.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	sr.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", requestID(r))
	})
}
