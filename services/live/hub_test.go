package livesvc

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	testutil "github.com/Shilpa0612/school-app-backend-sub003/tests"
)

// fakeRelay keeps presence counters in memory and records publications.
type fakeRelay struct {
	mu        sync.Mutex
	counts    map[string]int64
	published []string
	countErr  error
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{counts: make(map[string]int64)}
}

func (f *fakeRelay) Join(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[userID]++
	return nil
}

func (f *fakeRelay) Leave(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[userID]--
	return nil
}

func (f *fakeRelay) Count(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[userID], f.countErr
}

func (f *fakeRelay) Publish(_ context.Context, userID string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, userID)
	return nil
}

func (f *fakeRelay) Subscribe(ctx context.Context, _ func(string, []byte)) error {
	<-ctx.Done()
	return nil
}

func (f *fakeRelay) count(userID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[userID]
}

func TestHub_RelaysOnlyToRemotelyConnectedUsers(t *testing.T) {
	req := require.New(t)
	relay := newFakeRelay()
	hub := newHub(newTestRegistry(), relay, testutil.NewLogger())
	frame := []byte(`{"kind":"notification"}`)

	// u1 is connected here only; u2 only on another instance; u3 nowhere
	req.NoError(hub.Registry().Register("u1", &fakeConn{id: "a"}))
	relay.counts["u2"] = 1

	req.True(hub.SendIfConnected("u1", frame))
	req.False(hub.SendIfConnected("u2", frame))
	req.False(hub.SendIfConnected("u3", frame))
	req.Equal([]string{"u2"}, relay.published)

	// an unreadable counter relays anyway
	relay.countErr = errors.New("connection refused")
	req.False(hub.SendIfConnected("u3", frame))
	req.Equal([]string{"u2", "u3"}, relay.published)
}

func TestHub_PresenceFollowsRegistry(t *testing.T) {
	req := require.New(t)
	relay := newFakeRelay()
	hub := newHub(newTestRegistry(), relay, testutil.NewLogger())
	r := hub.Registry()

	req.NoError(r.Register("u1", &fakeConn{id: "phone"}))
	req.NoError(r.Register("u1", &fakeConn{id: "browser"}))
	req.NoError(r.Register("u1", &fakeConn{id: "browser"})) // re-registering is not a new connection
	req.EqualValues(2, relay.count("u1"))

	r.Unregister("u1", "phone")
	r.Unregister("u1", "phone")
	req.EqualValues(1, relay.count("u1"))

	// a failed send drops the connection once
	broken := &fakeConn{id: "tablet", failing: true}
	req.NoError(r.Register("u2", broken))
	req.False(r.SendIfConnected("u2", []byte(`{}`)))
	r.Unregister("u2", "tablet")
	req.Zero(relay.count("u2"))

	r.Shutdown(ShutdownFrame("bye"))
	req.Zero(relay.count("u1"))
}

func TestNewHub_WithoutRelay(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	hub := NewHub(r, nil, testutil.NewLogger())

	req.Nil(hub.relay)
	req.Nil(r.presence)
	req.NoError(r.Register("u1", &fakeConn{id: "a"}))
	req.True(hub.SendIfConnected("u1", []byte(`{}`)))
}
