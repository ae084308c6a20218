package livesvc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/notification"
)

const presenceTimeout = 2 * time.Second

var ErrShuttingDown = core.NewShutdownError("live registry is shutting down")

// presenceTracker counts connections of a user across instances.
type presenceTracker interface {
	Join(ctx context.Context, userID string) error
	Leave(ctx context.Context, userID string) error
}

// Conn is one open live connection. Implementations serialize their own writes.
type Conn interface {
	ID() string
	Send(frame []byte) error
	Ping() error
	Close(code int, reason string) error
}

type entry struct {
	conn     Conn
	lastSeen time.Time
}

// Registry tracks the live connections of every user on this instance.
// A user may hold several connections (phone, browser); each is tracked on its own.
type Registry struct {
	mu       sync.RWMutex
	conns    map[string]map[string]*entry // user id -> conn id
	closed   bool
	interval time.Duration
	timeout  time.Duration
	presence presenceTracker // nil on a single instance
	logger   core.Logger
}

var _ notification.LiveSender = (*Registry)(nil)

func NewRegistry(interval, timeout time.Duration, logger core.Logger) *Registry {
	if timeout <= interval {
		timeout = 2 * interval
	}
	return &Registry{
		conns:    make(map[string]map[string]*entry),
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

func (r *Registry) Register(userID string, c Conn) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrShuttingDown
	}
	userConns, ok := r.conns[userID]
	if !ok {
		userConns = make(map[string]*entry)
		r.conns[userID] = userConns
	}
	_, known := userConns[c.ID()]
	userConns[c.ID()] = &entry{conn: c, lastSeen: core.NowFunc()}
	r.mu.Unlock()

	if !known {
		r.track(userID, true)
	}
	return nil
}

func (r *Registry) Unregister(userID, connID string) {
	r.mu.Lock()
	removed := r.remove(userID, connID)
	r.mu.Unlock()

	if removed {
		r.track(userID, false)
	}
}

// remove drops a connection and reports whether it was registered; the caller holds the lock.
func (r *Registry) remove(userID, connID string) bool {
	userConns, ok := r.conns[userID]
	if !ok {
		return false
	}
	if _, ok = userConns[connID]; !ok {
		return false
	}
	delete(userConns, connID)
	if len(userConns) == 0 {
		delete(r.conns, userID)
	}
	return true
}

// track reports a connection joining or leaving to the shared presence counters.
func (r *Registry) track(userID string, join bool) {
	if r.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()

	var err error
	if join {
		err = r.presence.Join(ctx, userID)
	} else {
		err = r.presence.Leave(ctx, userID)
	}
	if err != nil {
		r.logger.Warn("updating live presence", err, map[string]interface{}{"user_id": userID, "join": join})
	}
}

// Ack marks a connection as alive.
func (r *Registry) Ack(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.conns[userID][connID]; ok {
		e.lastSeen = core.NowFunc()
	}
}

// Connected returns the number of open connections of userID.
func (r *Registry) Connected(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID])
}

func (r *Registry) snapshot(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.conns[userID]))
	for _, e := range r.conns[userID] {
		conns = append(conns, e.conn)
	}
	return conns
}

// SendIfConnected writes frame to every connection of userID and reports whether
// at least one write succeeded. Connections failing the write are dropped.
func (r *Registry) SendIfConnected(userID string, frame []byte) bool {
	delivered := false
	for _, c := range r.snapshot(userID) {
		if err := c.Send(frame); err != nil {
			r.logger.Warn("live send failed", err, map[string]interface{}{"user_id": userID, "conn_id": c.ID()})
			r.Unregister(userID, c.ID())
			_ = c.Close(websocket.CloseInternalServerErr, "send failed")
			continue
		}
		delivered = true
	}
	return delivered
}

// HeartbeatTick evicts connections silent for longer than the timeout and pings the rest.
func (r *Registry) HeartbeatTick(now time.Time) {
	type target struct {
		userID string
		conn   Conn
	}
	var stale, alive []target

	r.mu.Lock()
	for userID, userConns := range r.conns {
		for connID, e := range userConns {
			if now.Sub(e.lastSeen) > r.timeout {
				stale = append(stale, target{userID, e.conn})
				r.remove(userID, connID)
				continue
			}
			alive = append(alive, target{userID, e.conn})
		}
	}
	r.mu.Unlock()

	for _, t := range stale {
		r.track(t.userID, false)
		r.logger.Info("live connection timed out", map[string]interface{}{"user_id": t.userID, "conn_id": t.conn.ID()})
		_ = t.conn.Close(websocket.CloseGoingAway, "heartbeat timeout")
	}
	for _, t := range alive {
		if err := t.conn.Ping(); err != nil {
			r.Unregister(t.userID, t.conn.ID())
			_ = t.conn.Close(websocket.CloseGoingAway, "ping failed")
		}
	}
}

// Run drives the heartbeat until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.HeartbeatTick(core.NowFunc())
		}
	}
}

// Shutdown sends notice to every connection, closes them all and refuses new ones.
func (r *Registry) Shutdown(notice []byte) {
	r.mu.Lock()
	r.closed = true
	conns := r.conns
	r.conns = make(map[string]map[string]*entry)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for userID, userConns := range conns {
		for _, e := range userConns {
			r.track(userID, false)
			wg.Add(1)
			go func(c Conn) {
				defer wg.Done()
				_ = c.Send(notice)
				_ = c.Close(websocket.CloseServiceRestart, "server shutting down")
			}(e.conn)
		}
	}
	wg.Wait()
}

// ShutdownFrame is the notice sent to clients before the server goes away.
func ShutdownFrame(message string) []byte {
	frame, _ := json.Marshal(map[string]string{"kind": "shutdown", "message": message})
	return frame
}
