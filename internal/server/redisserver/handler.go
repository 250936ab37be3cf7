package redisserver

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/yndnr/respkv/internal/infra/shutdown"
	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/internal/telemetry/metric"
	"github.com/yndnr/respkv/pkg/resp"
)

// handler drives one connection until the peer leaves, an error occurs
// or shutdown is observed between requests.
type handler struct {
	conn     *conn
	db       Store
	shutdown *shutdown.Listener
	limiter  *ipLimiter       // nil disables rate limiting
	metrics  *metric.Registry // nil disables metrics
	log      logger.Logger
}

// run is the Reading -> Dispatching -> Writing loop. A nil return means
// the connection ended normally.
func (h *handler) run() error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-h.shutdown.Done():
			h.conn.interruptRead()
		case <-stop:
		}
	}()

	for {
		if h.shutdown.Poll() {
			return nil
		}

		frame, err := h.conn.readFrame(h.shutdown)
		if err != nil {
			return h.readError(err)
		}

		reply, err := h.dispatch(frame)
		if err != nil {
			return h.protocolError(err)
		}

		if err := h.conn.writeFrame(reply); err != nil {
			return fmt.Errorf("write reply: %w", err)
		}
	}
}

func (h *handler) dispatch(frame resp.Frame) (resp.Frame, error) {
	cmd, err := ParseCommand(frame)
	if err != nil {
		return resp.Frame{}, err
	}

	if h.limiter != nil && !h.limiter.allow(h.conn.netConn.RemoteAddr()) {
		if h.metrics != nil {
			h.metrics.RateLimited.Inc()
		}
		h.log.Debug("command rate limited", "command", cmd.Name())
		return resp.Error("ERR rate limit exceeded"), nil
	}

	start := time.Now()
	reply := cmd.Apply(h.db)
	if h.metrics != nil {
		h.metrics.CommandsTotal.WithLabelValues(cmd.Name()).Inc()
		h.metrics.CommandDuration.WithLabelValues(cmd.Name()).Observe(time.Since(start).Seconds())
	}
	// Frames are rendered and clipped by the logger only when debug is on.
	h.log.Debug("command", "cmd", frame, "reply", reply)
	return reply, nil
}

// readError classifies a failed read. Peer close and shutdown end the
// connection quietly.
func (h *handler) readError(err error) error {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, errShutdown):
		return nil
	case errors.Is(err, resp.ErrProtocol):
		return h.protocolError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		h.log.Debug("connection timed out")
		return nil
	}
	return fmt.Errorf("read request: %w", err)
}

func (h *handler) protocolError(err error) error {
	if h.metrics != nil {
		h.metrics.ProtocolErrors.Inc()
	}
	// No reply: the connection is closed before anything is written.
	return err
}
