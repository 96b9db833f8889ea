package stream

import (
	"context"
	_ "embed"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/san-kum/gravsim/internal/logger"
	"github.com/san-kum/gravsim/internal/snapshot"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultFPS caps how often frames are pushed to viewers.
const DefaultFPS = 30

const shutdownTimeout = 5 * time.Second

//go:embed index.html
var indexHTML []byte

// Server exposes the latest snapshot of a run over HTTP and pushes new
// ones to websocket viewers. It only ever reads from the publisher.
type Server struct {
	pub      *snapshot.Publisher
	log      *zap.Logger
	gatherer prometheus.Gatherer
	interval time.Duration

	clients  *manager
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = logger.OrNop(l) }
}

// WithGatherer serves g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithFPS sets the push rate. Rates above 1GHz push every nanosecond.
func WithFPS(fps float64) Option {
	return func(s *Server) {
		if fps > 0 {
			s.interval = max(time.Duration(float64(time.Second)/fps), time.Nanosecond)
		}
	}
}

// WithAllowedOrigin accepts websocket upgrades from any origin. Without it
// only same-host and localhost pages may connect.
func WithAllowedOrigin(allow bool) Option {
	return func(s *Server) {
		if allow {
			s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
		}
	}
}

func NewServer(pub *snapshot.Publisher, opts ...Option) *Server {
	s := &Server{
		pub:      pub,
		log:      zap.NewNop(),
		interval: time.Second / DefaultFPS,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     sameHost,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.clients = newManager(s.log)

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	s.mux.HandleFunc("GET /ws", s.handleWS)
	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

// Viewers returns the number of connected websocket clients.
func (s *Server) Viewers() int { return s.clients.count() }

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve accepts connections on lis and pushes frames until ctx is done,
// then shuts the HTTP server down and disconnects every viewer.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info("stream server listening", zap.String("addr", lis.Addr().String()))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.pump(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.clients.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// pump forwards publisher updates to viewers, at most one frame per
// interval. Snapshots published in between are skipped.
func (s *Server) pump(ctx context.Context) {
	updates, cancel := s.pub.Subscribe()
	defer cancel()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var last *snapshot.Snapshot
	for first := true; ; first = false {
		// The first pass catches anything published before Subscribe.
		if !first {
			select {
			case <-ctx.Done():
				return
			case <-updates:
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snap := s.pub.Latest()
		if snap == last {
			continue
		}
		last = snap
		msg, err := encodeFrame(snap)
		if err != nil {
			s.log.Error("failed to encode frame", zap.Error(err))
			continue
		}
		s.clients.broadcast(msg)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	msg, err := encodeFrame(s.pub.Latest())
	if err != nil {
		s.log.Error("failed to encode frame", zap.Error(err))
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(msg)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := s.clients.add(conn)

	if msg, err := encodeFrame(s.pub.Latest()); err == nil {
		if err := c.send(msg); err != nil {
			s.clients.remove(c.id)
			return
		}
	}

	// Viewers never send anything meaningful; reading only detects the
	// close.
	go func() {
		defer s.clients.remove(c.id)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
}

func sameHost(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host, _, err := net.SplitHostPort(r.Host)
	if err != nil {
		host = r.Host
	}
	switch u.Hostname() {
	case host, "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
