package livesvc

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	testutil "github.com/Shilpa0612/school-app-backend-sub003/tests"
)

type fakeConn struct {
	id      string
	failing bool

	mu        sync.Mutex
	frames    [][]byte
	pings     int
	closed    bool
	closeCode int
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("broken pipe")
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pings++
	return nil
}

func (c *fakeConn) Close(code int, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCode = code
	return nil
}

func newTestRegistry() *Registry {
	return NewRegistry(10*time.Second, 30*time.Second, testutil.NewLogger())
}

func TestRegistry_SendToEveryConnection(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	phone, browser := &fakeConn{id: "phone"}, &fakeConn{id: "browser"}
	req.NoError(r.Register("u1", phone))
	req.NoError(r.Register("u1", browser))

	req.True(r.SendIfConnected("u1", []byte(`{"kind":"notification"}`)))
	req.False(r.SendIfConnected("u2", []byte(`{}`)))
	req.Len(phone.frames, 1)
	req.Len(browser.frames, 1)
	req.Equal(2, r.Connected("u1"))

	r.Unregister("u1", "phone")
	req.Equal(1, r.Connected("u1"))
}

func TestRegistry_FailedSendDropsConnection(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	broken, ok := &fakeConn{id: "broken", failing: true}, &fakeConn{id: "ok"}
	req.NoError(r.Register("u1", broken))
	req.NoError(r.Register("u1", ok))

	req.True(r.SendIfConnected("u1", []byte(`{}`)))
	req.Equal(1, r.Connected("u1"))
	req.True(broken.closed)

	r.Unregister("u1", "ok")
	req.False(r.SendIfConnected("u1", []byte(`{}`)))
}

func TestRegistry_HeartbeatTick(t *testing.T) {
	req := require.New(t)
	start := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	core.NowFunc = func() time.Time { return start }
	defer func() { core.NowFunc = func() time.Time { return time.Now().UTC() } }()

	r := newTestRegistry()
	quiet, chatty := &fakeConn{id: "quiet"}, &fakeConn{id: "chatty"}
	req.NoError(r.Register("u1", quiet))
	req.NoError(r.Register("u2", chatty))

	// chatty answers a ping 20s later
	core.NowFunc = func() time.Time { return start.Add(20 * time.Second) }
	r.Ack("u2", "chatty")

	r.HeartbeatTick(start.Add(31 * time.Second))

	req.True(quiet.closed)
	req.Equal(websocket.CloseGoingAway, quiet.closeCode)
	req.Zero(r.Connected("u1"))
	req.False(chatty.closed)
	req.Equal(1, chatty.pings)
	req.Equal(1, r.Connected("u2"))
}

func TestRegistry_Shutdown(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	a, b := &fakeConn{id: "a"}, &fakeConn{id: "b"}
	req.NoError(r.Register("u1", a))
	req.NoError(r.Register("u2", b))

	r.Shutdown(ShutdownFrame("maintenance"))

	for _, c := range []*fakeConn{a, b} {
		req.True(c.closed)
		req.Equal(websocket.CloseServiceRestart, c.closeCode)
		req.Len(c.frames, 1)
		req.Contains(string(c.frames[0]), `"kind":"shutdown"`)
	}
	err := r.Register("u3", &fakeConn{id: "late"})
	req.ErrorIs(err, ErrShuttingDown)
	req.True(core.IsShutdown(err))
	req.False(r.SendIfConnected("u1", []byte(`{}`)))
}

func TestWSConn_RoundTrip(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	registered := make(chan *WSConn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, rq *http.Request) {
		ws, err := Upgrader.Upgrade(w, rq, nil)
		if err != nil {
			return
		}
		conn := NewWSConn(ws)
		_ = r.Register("u1", conn)
		registered <- conn
		_ = conn.ReadPump(func() { r.Ack("u1", conn.ID()) })
		r.Unregister("u1", conn.ID())
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	req.NoError(err)
	defer client.Close()

	select {
	case <-registered:
	case <-time.After(time.Second):
		req.Fail("connection was not registered")
	}

	req.True(r.SendIfConnected("u1", []byte(`{"kind":"notification"}`)))
	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	_, frame, err := client.ReadMessage()
	req.NoError(err)
	req.JSONEq(`{"kind":"notification"}`, string(frame))
}

func TestRelay_DecodeSkipsOwnFrames(t *testing.T) {
	req := require.New(t)
	r := &Relay{origin: "me", logger: testutil.NewLogger()}

	_, _, ok := r.decode(`{"origin":"me","user_id":"u1","frame":{}}`)
	req.False(ok)
	_, _, ok = r.decode(`not json`)
	req.False(ok)

	userID, frame, ok := r.decode(`{"origin":"other","user_id":"u1","frame":{"kind":"notification"}}`)
	req.True(ok)
	req.Equal("u1", userID)
	req.JSONEq(`{"kind":"notification"}`, string(frame))
}
