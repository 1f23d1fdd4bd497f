package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/scrumkit/scrumkit/internal/events"
	"github.com/scrumkit/scrumkit/internal/models"
	"github.com/scrumkit/scrumkit/internal/retro"
)

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

// waitFor polls cond until it holds or a second has passed.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// readFrame returns the next SSE frame without its trailing blank line.
func readFrame(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	var b strings.Builder
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read frame: %v (partial %q)", err, b.String())
		}
		if line == "\n" {
			if b.Len() > 0 {
				return b.String()
			}
			continue
		}
		b.WriteString(line)
	}
}

func parseEvent(t *testing.T, frame string) map[string]any {
	t.Helper()
	payload, ok := strings.CutPrefix(strings.TrimSuffix(frame, "\n"), "data: ")
	if !ok {
		t.Fatalf("frame %q is not a data frame", frame)
	}
	var evt map[string]any
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		t.Fatalf("decode %q: %v", payload, err)
	}
	return evt
}

// openStream connects to a session's event stream over a real listener.
func openStream(t *testing.T, env *testEnv, sessionID string) (*bufio.Reader, *http.Response, context.CancelFunc) {
	t.Helper()
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/retrospective/"+sessionID+"/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		resp.Body.Close()
	})
	return bufio.NewReader(resp.Body), resp, cancel
}

func TestStream_DeliversSessionEvents(t *testing.T) {
	env := newTestEnv(t, retro.Options{})
	ctx := context.Background()
	sess, err := env.svc.CreateSession(ctx, retro.NewSession{Name: "Live"})
	if err != nil {
		t.Fatal(err)
	}
	other, _ := env.svc.CreateSession(ctx, retro.NewSession{Name: "Other"})

	r, resp, _ := openStream(t, env, sess.ID)
	for header, want := range map[string]string{
		"Content-Type":      "text/event-stream",
		"Cache-Control":     "no-cache, no-transform",
		"X-Accel-Buffering": "no",
	} {
		if got := resp.Header.Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}

	hello := parseEvent(t, readFrame(t, r))
	if hello["type"] != events.TypeConnected {
		t.Fatalf("first event = %v, want connected", hello["type"])
	}
	if data := hello["data"].(map[string]any); data["sessionId"] != sess.ID {
		t.Errorf("connected sessionId = %v", data["sessionId"])
	}
	if hello["timestamp"].(float64) <= 0 {
		t.Error("connected event has no timestamp")
	}
	waitFor(t, "subscription", func() bool { return env.bus.ListenerCount(sess.ID) == 1 })

	// Changes to another session must not reach this stream.
	if _, err := env.svc.CreateItem(ctx, other.ID, retro.NewItem{Category: models.CategoryWentWell, Content: "elsewhere"}); err != nil {
		t.Fatal(err)
	}
	it, err := env.svc.CreateItem(ctx, sess.ID, retro.NewItem{Category: models.CategoryWentWell, Content: "here"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.CastVote(ctx, sess.ID, it.ID, "alice"); err != nil {
		t.Fatal(err)
	}

	added := parseEvent(t, readFrame(t, r))
	if added["type"] != events.TypeItemAdded {
		t.Fatalf("event = %v, want item:added", added["type"])
	}
	if content := added["data"].(map[string]any)["content"]; content != "here" {
		t.Errorf("item content = %v, want here", content)
	}
	voted := parseEvent(t, readFrame(t, r))
	if voted["type"] != events.TypeVoteAdded {
		t.Errorf("event = %v, want vote:added", voted["type"])
	}
}

func TestStream_DisconnectReleasesListener(t *testing.T) {
	env := newTestEnv(t, retro.Options{})
	sess, err := env.svc.CreateSession(context.Background(), retro.NewSession{Name: "Live"})
	if err != nil {
		t.Fatal(err)
	}

	r, _, cancel := openStream(t, env, sess.ID)
	readFrame(t, r)
	waitFor(t, "subscription", func() bool { return env.bus.ListenerCount(sess.ID) == 1 })

	cancel()
	waitFor(t, "listener release", func() bool { return env.bus.ListenerCount(sess.ID) == 0 })
	if n := env.bus.SessionCount(); n != 0 {
		t.Errorf("SessionCount = %d, want 0", n)
	}
}

func TestStream_Heartbeat(t *testing.T) {
	env := newTestEnv(t, retro.Options{})
	env.opts.HeartbeatInterval = 10 * time.Millisecond
	env.router = newRouter(env.opts)
	sess, err := env.svc.CreateSession(context.Background(), retro.NewSession{Name: "Live"})
	if err != nil {
		t.Fatal(err)
	}

	r, _, _ := openStream(t, env, sess.ID)
	readFrame(t, r)
	if got := readFrame(t, r); got != ": heartbeat\n" {
		t.Errorf("frame = %q, want heartbeat comment", got)
	}
}

func TestStreamConn_Lifecycle(t *testing.T) {
	bus := events.NewBus(nil)
	w := httptest.NewRecorder()
	conn := newStreamConn("s1", w, 1, discard())

	if got := conn.currentState(); got != stateConnecting {
		t.Fatalf("state = %s, want connecting", got)
	}
	if err := conn.write(events.WriteHeartbeat); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := conn.currentState(); got != stateOpen {
		t.Errorf("state after first write = %s, want open", got)
	}

	conn.unsubscribe = bus.Subscribe("s1", conn.enqueue)
	conn.heartbeat = time.NewTicker(time.Hour)
	conn.close("test")
	conn.close("again")

	if got := conn.currentState(); got != stateClosed {
		t.Errorf("state = %s, want closed", got)
	}
	if n := bus.ListenerCount("s1"); n != 0 {
		t.Errorf("ListenerCount = %d, want 0", n)
	}
	before := w.Body.Len()
	if err := conn.write(events.WriteHeartbeat); !errors.Is(err, errStreamClosed) {
		t.Errorf("write after close: err = %v, want errStreamClosed", err)
	}
	if w.Body.Len() != before {
		t.Error("bytes written after close")
	}
	if err := conn.enqueue(events.New(events.TypeItemAdded, nil)); !errors.Is(err, errStreamClosed) {
		t.Errorf("enqueue after close: err = %v, want errStreamClosed", err)
	}
}

func TestStreamConn_OverflowSignalsTeardown(t *testing.T) {
	conn := newStreamConn("s1", httptest.NewRecorder(), 1, discard())

	if err := conn.enqueue(events.New(events.TypeItemAdded, nil)); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := conn.enqueue(events.New(events.TypeItemAdded, nil)); !errors.Is(err, errStreamOverflow) {
		t.Fatalf("second enqueue: err = %v, want errStreamOverflow", err)
	}
	// A second overflow must not close the channel again.
	if err := conn.enqueue(events.New(events.TypeItemAdded, nil)); !errors.Is(err, errStreamOverflow) {
		t.Fatalf("third enqueue: err = %v, want errStreamOverflow", err)
	}
	select {
	case <-conn.overflow:
	default:
		t.Error("overflow not signalled")
	}
}

func TestStreamConn_OverflowDoesNotBlockOtherListeners(t *testing.T) {
	bus := events.NewBus(nil)
	slow := newStreamConn("s1", httptest.NewRecorder(), 1, discard())
	slow.unsubscribe = bus.Subscribe("s1", slow.enqueue)
	defer slow.close("test")

	var got int
	unsub := bus.Subscribe("s1", func(events.Event) error { got++; return nil })
	defer unsub()

	for range 5 {
		bus.Publish("s1", events.New(events.TypeItemAdded, nil))
	}
	if got != 5 {
		t.Errorf("healthy listener received %d events, want 5", got)
	}
}

func TestStreamState_String(t *testing.T) {
	tests := map[streamState]string{
		stateConnecting: "connecting",
		stateOpen:       "open",
		stateClosed:     "closed",
		streamState(9):  "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
