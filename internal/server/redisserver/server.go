package redisserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"

	"github.com/yndnr/respkv/internal/infra/shutdown"
	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/internal/telemetry/metric"
	"github.com/yndnr/respkv/pkg/cmap"
	"github.com/yndnr/respkv/pkg/resp"
)

// Config holds the Redis server configuration.
type Config struct {
	// Addr is the TCP address ListenAndServe binds.
	Addr string
	// ReadTimeout bounds reading the rest of a frame once its first
	// bytes have arrived. Zero means no limit.
	ReadTimeout time.Duration
	// WriteTimeout bounds writing one reply. Zero means no limit.
	WriteTimeout time.Duration
	// IdleTimeout closes a connection that sends nothing between
	// requests for this long. Zero means no limit.
	IdleTimeout time.Duration
	// RateLimit is the number of commands per second allowed per client
	// IP, with bursts up to RateBurst. Zero disables rate limiting.
	RateLimit float64
	RateBurst int
	// MaxConnections caps concurrently open connections. Zero means no cap.
	MaxConnections int
	// Decoder bounds incoming frames. Nil uses the resp defaults.
	Decoder *resp.Decoder
	// TLS, when set, wraps the listener. The handshake runs on the first
	// read and is bounded by the idle timeout.
	TLS *tls.Config
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:           "127.0.0.1:6379",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxConnections: 10000,
	}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithMetrics records connection and command metrics in r.
func WithMetrics(r *metric.Registry) Option {
	return func(s *Server) {
		s.metrics = r
	}
}

// Server accepts client connections and runs a handler for each.
// A Server serves one listener and cannot be restarted.
type Server struct {
	cfg      *Config
	db       Store
	log      logger.Logger
	metrics  *metric.Registry
	limiter  *ipLimiter
	notifier *shutdown.Notifier

	mu         sync.Mutex
	ln         net.Listener
	acceptDone chan struct{} // closed when the accept loop exits

	conns  *cmap.Map[net.Conn]
	active atomic.Int64
	wg     sync.WaitGroup
}

// New creates a server that applies commands to db.
func New(cfg *Config, db Store, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Decoder == nil {
		cfg.Decoder = &resp.Decoder{}
	}

	s := &Server{
		cfg:      cfg,
		db:       db,
		log:      logger.Default(),
		notifier: shutdown.NewNotifier(),
		conns:    cmap.New[net.Conn](),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.RateLimit > 0 {
		s.limiter = newIPLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	return s
}

// ListenAndServe binds Config.Addr and serves it until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Run(ctx, ln)
}

// Run accepts connections on ln until ctx is done or accepting fails.
//
// When ctx is done Run broadcasts shutdown, closes ln and returns nil
// without waiting for open connections; call Shutdown to drain them.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.ln != nil {
		s.mu.Unlock()
		return errors.New("redisserver: server already running")
	}
	if s.notifier.Fired() {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	if s.cfg.TLS != nil {
		ln = tls.NewListener(ln, s.cfg.TLS)
	}
	s.ln = ln
	acceptDone := make(chan struct{})
	s.acceptDone = acceptDone
	s.mu.Unlock()

	s.log.Info("redis server listening", "address", ln.Addr().String())

	if s.limiter != nil && s.track() {
		go func() {
			defer s.wg.Done()
			s.pruneLimiter(s.notifier.Subscribe())
		}()
	}

	acceptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		defer close(acceptDone)
		errCh <- s.acceptLoop(acceptCtx, ln)
	}()

	select {
	case <-ctx.Done():
		s.log.Info("redis server stopping")
		s.stop()
		<-errCh
		return nil
	case err := <-errCh:
		s.stop()
		return err
	}
}

// Shutdown broadcasts shutdown and waits for connection handlers to
// finish, or for ctx to expire. Handlers blocked on a read stop at once;
// handlers mid-command complete it first. Connections still open when
// ctx expires are closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()

	// No handler can be added once the accept loop is gone.
	s.mu.Lock()
	acceptDone := s.acceptDone
	s.mu.Unlock()
	if acceptDone != nil {
		select {
		case <-acceptDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("redis server drained")
		return nil
	case <-ctx.Done():
		n := 0
		s.conns.Range(func(_ string, c net.Conn) bool {
			_ = c.Close()
			n++
			return true
		})
		s.log.Warn("redis server drain timed out, closed remaining connections", "connections", n)
		return ctx.Err()
	}
}

// Addr returns the listener address, or nil before Run.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ActiveConnections returns the number of open client connections.
func (s *Server) ActiveConnections() int {
	return int(s.active.Load())
}

func (s *Server) stop() {
	s.notifier.Fire()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		_ = s.ln.Close()
	}
}

// track registers one goroutine with the drain group. It fails once
// shutdown has fired: stop takes s.mu after firing, so every successful
// Add happens before Shutdown reaches wg.Wait.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notifier.Fired() {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		c, err := s.accept(ctx, ln)
		if err != nil {
			if s.notifier.Fired() || errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		if limit := s.cfg.MaxConnections; limit > 0 && s.active.Load() >= int64(limit) {
			s.reject(c)
			continue
		}

		if !s.track() {
			_ = c.Close()
			return nil
		}
		s.active.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.active.Add(-1)
			s.serveConn(ctx, c)
		}()
	}
}

// accept retries temporary accept failures, such as running out of file
// descriptors, with exponential backoff.
func (s *Server) accept(ctx context.Context, ln net.Listener) (net.Conn, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0

	var c net.Conn
	err := backoff.Retry(func() error {
		var err error
		c, err = ln.Accept()
		if err == nil {
			return nil
		}
		if s.notifier.Fired() || !isTemporary(err) {
			return backoff.Permanent(err)
		}
		s.log.Warn("accept failed, retrying", "error", err)
		return err
	}, backoff.WithContext(b, ctx))
	return c, err
}

func isTemporary(err error) bool {
	if errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.ENOBUFS) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (s *Server) reject(c net.Conn) {
	if s.metrics != nil {
		s.metrics.ConnectionsRejected.Inc()
	}
	s.log.Warn("max number of clients reached", "remote", c.RemoteAddr().String())

	if !s.track() {
		_ = c.Close()
		return
	}
	go func() {
		defer s.wg.Done()
		defer c.Close()
		_ = c.SetWriteDeadline(time.Now().Add(time.Second))
		_, _ = c.Write(resp.Encode(resp.Error("ERR max number of clients reached")))
	}()
}

func (s *Server) serveConn(ctx context.Context, nc net.Conn) {
	id := ulid.Make().String()
	ctx = logger.WithConnID(logger.WithLogger(ctx, s.log), id)
	log := logger.L(ctx).With("remote", nc.RemoteAddr().String())

	s.conns.Set(id, nc)
	if s.metrics != nil {
		s.metrics.ConnectionsTotal.Inc()
		s.metrics.ConnectionsActive.Inc()
	}
	defer func() {
		s.conns.Delete(id)
		if s.metrics != nil {
			s.metrics.ConnectionsActive.Dec()
		}
	}()

	c := newConn(nc, s.cfg)
	defer c.close()

	log.Debug("connection opened")

	h := &handler{
		conn:     c,
		db:       s.db,
		shutdown: s.notifier.Subscribe(),
		limiter:  s.limiter,
		metrics:  s.metrics,
		log:      log,
	}

	switch err := h.run(); {
	case err == nil:
		log.Debug("connection closed")
	case errors.Is(err, resp.ErrProtocol):
		log.Warn("connection closed on protocol error", "error", err)
	default:
		log.Debug("connection closed on error", "error", err)
	}
}

func (s *Server) pruneLimiter(l *shutdown.Listener) {
	idle := s.limiter.idleAfter()
	ticker := time.NewTicker(idle)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.limiter.prune(idle); n > 0 {
				s.log.Debug("pruned idle rate limiters", "count", n)
			}
		case <-l.Done():
			return
		}
	}
}
