package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/scrumkit/scrumkit/internal/events"
)

type streamState int32

const (
	stateConnecting streamState = iota
	stateOpen
	stateClosed
)

func (s streamState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateOpen:
		return "open"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

var (
	errStreamClosed   = errors.New("stream closed")
	errStreamOverflow = errors.New("stream buffer full")
)

// flushWriter is the subset of gin.ResponseWriter a stream writes through.
type flushWriter interface {
	io.Writer
	Flush()
}

// streamConn is one browser subscribed to one session's events.
//
// Bus delivery only enqueues; every write happens on the request goroutine.
// A full buffer marks the connection as overflowed and the request goroutine
// tears it down, so a slow client never blocks publishers.
type streamConn struct {
	sessionID string
	w         flushWriter
	events    chan events.Event
	overflow  chan struct{}
	log       *slog.Logger

	state        atomic.Int32
	overflowOnce sync.Once
	closeOnce    sync.Once
	unsubscribe  func()
	heartbeat    *time.Ticker
}

func newStreamConn(sessionID string, w flushWriter, buffer int, log *slog.Logger) *streamConn {
	return &streamConn{
		sessionID: sessionID,
		w:         w,
		events:    make(chan events.Event, buffer),
		overflow:  make(chan struct{}),
		log:       log,
	}
}

func (s *streamConn) currentState() streamState {
	return streamState(s.state.Load())
}

// enqueue is the bus listener. It never blocks.
func (s *streamConn) enqueue(evt events.Event) error {
	if s.currentState() == stateClosed {
		return errStreamClosed
	}
	select {
	case s.events <- evt:
		return nil
	default:
		s.overflowOnce.Do(func() { close(s.overflow) })
		return errStreamOverflow
	}
}

// write sends one frame and flushes it. The first successful write opens
// the connection.
func (s *streamConn) write(frame func(io.Writer) error) error {
	if s.currentState() == stateClosed {
		return errStreamClosed
	}
	if err := frame(s.w); err != nil {
		return err
	}
	s.w.Flush()
	s.state.CompareAndSwap(int32(stateConnecting), int32(stateOpen))
	return nil
}

// close releases the subscription and the heartbeat. Safe to call more
// than once.
func (s *streamConn) close(reason string) {
	s.closeOnce.Do(func() {
		prev := streamState(s.state.Swap(int32(stateClosed)))
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		if s.heartbeat != nil {
			s.heartbeat.Stop()
		}
		s.log.Debug("event stream closed", "session", s.sessionID, "from", prev.String(), "reason", reason)
	})
}

// stream serves GET /api/retrospective/:id/events.
func (h *handlers) stream(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("id")
	if _, err := h.svc.GetSession(ctx, sessionID); err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache, no-transform")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	conn := newStreamConn(sessionID, c.Writer, h.buffer, h.log)
	defer conn.close("handler returned")

	hello := events.New(events.TypeConnected, events.ConnectedPayload{SessionID: sessionID})
	hello.Timestamp = time.Now().UnixMilli()
	if err := conn.write(func(w io.Writer) error { return events.Encode(w, hello) }); err != nil {
		h.log.Debug("event stream write failed", "session", sessionID, "error", err)
		return
	}

	conn.unsubscribe = h.bus.Subscribe(sessionID, conn.enqueue)
	conn.heartbeat = time.NewTicker(h.heartbeat)

	for {
		select {
		case <-ctx.Done():
			conn.close("client disconnected")
			return
		case <-conn.overflow:
			h.log.Warn("event stream dropped slow client", "session", sessionID)
			conn.close("buffer overflow")
			return
		case evt := <-conn.events:
			if err := conn.write(func(w io.Writer) error { return events.Encode(w, evt) }); err != nil {
				h.log.Debug("event stream write failed", "session", sessionID, "type", evt.Type, "error", err)
				conn.close("write failed")
				return
			}
		case <-conn.heartbeat.C:
			if err := conn.write(events.WriteHeartbeat); err != nil {
				h.log.Debug("event stream heartbeat failed", "session", sessionID, "error", err)
				conn.close("write failed")
				return
			}
		}
	}
}
