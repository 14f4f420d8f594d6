// Package server hosts mosaico's RPC endpoints over plain net/http,
// h2c-capable so streaming get-data/put-data can use HTTP/2 framing
// without requiring TLS in dev.
package server

import (
	"cmp"
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"mosaico/internal/logging"
	"mosaico/internal/rpc"
)

// Config holds server configuration.
type Config struct {
	Logger  *slog.Logger
	Handler *rpc.Handlers
}

// Server hosts mosaico's RPC endpoints.
type Server struct {
	handlers *rpc.Handlers
	logger   *slog.Logger
	startTime time.Time

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	shutdown chan struct{}
	inFlight sync.WaitGroup
	draining atomic.Bool
}

// New creates a new Server.
func New(cfg Config) *Server {
	return &Server{
		handlers:  cfg.Handler,
		logger:    logging.Default(cfg.Logger).With("component", "server"),
		startTime: time.Now(),
		shutdown:  make(chan struct{}),
	}
}

// registerProbes adds liveness/readiness probe endpoints.
func (s *Server) registerProbes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.draining.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// corsMiddleware allows same-origin requests, plus loopback-on-any-port for
// local dev proxies; it never reflects an arbitrary Origin.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && isOriginAllowed(origin, r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isOriginAllowed(origin string, r *http.Request) bool {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if origin == scheme+"://"+r.Host {
		return true
	}
	reqHost, _, _ := net.SplitHostPort(r.Host)
	reqHost = cmp.Or(reqHost, r.Host)
	if !isLoopback(reqHost) {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	oHost, _, _ := net.SplitHostPort(u.Host)
	if oHost == "" {
		oHost = u.Host
	}
	return isLoopback(oHost)
}

// trackingMiddleware tracks in-flight requests so Stop can drain before
// closing the listener, and rejects new work once draining has begun.
func (s *Server) trackingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.draining.Load() {
			http.Error(w, "server is draining", http.StatusServiceUnavailable)
			return
		}
		s.inFlight.Add(1)
		defer s.inFlight.Done()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) buildMux() *http.ServeMux {
	mux := http.NewServeMux()
	s.handlers.Mount(mux)
	s.registerProbes(mux)
	return mux
}

// Handler returns the fully wrapped http.Handler, useful for tests or for
// embedding mosaico's RPC surface in another process.
func (s *Server) Handler() http.Handler {
	mux := s.buildMux()
	chained := s.trackingMiddleware(s.corsMiddleware(compressMiddleware(mux)))
	return h2c.NewHandler(chained, &http2.Server{})
}

// Serve starts the server on listener and blocks until it is stopped.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()

	s.logger.Info("server starting", "addr", listener.Addr().String())
	err := s.server.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// ServeTCP starts the server on a TCP address.
func (s *Server) ServeTCP(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Stop gracefully stops the server, draining in-flight requests first.
func (s *Server) Stop(ctx context.Context) error {
	s.draining.Store(true)
	s.inFlight.Wait()

	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	select {
	case <-s.shutdown:
	default:
		close(s.shutdown)
	}

	if srv == nil {
		return nil
	}
	s.logger.Info("server stopping")
	return srv.Shutdown(ctx)
}

// ShutdownChan is closed once Stop has been called.
func (s *Server) ShutdownChan() <-chan struct{} {
	return s.shutdown
}
