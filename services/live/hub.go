package livesvc

import (
	"context"
	"time"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/notification"
)

const relayPublishTimeout = 2 * time.Second

type relayer interface {
	presenceTracker
	Count(ctx context.Context, userID string) (int64, error)
	Publish(ctx context.Context, userID string, frame []byte) error
	Subscribe(ctx context.Context, deliver func(userID string, frame []byte)) error
}

// Hub is the LiveSender of the dispatcher: local connections first, then the
// relay when the user holds connections on another instance.
type Hub struct {
	registry *Registry
	relay    relayer
	logger   core.Logger
}

var (
	_ notification.LiveSender = (*Hub)(nil)
	_ relayer                 = (*Relay)(nil)
)

// NewHub returns a Hub; relay may be nil on a single instance.
func NewHub(registry *Registry, relay *Relay, logger core.Logger) *Hub {
	if relay == nil {
		return newHub(registry, nil, logger)
	}
	return newHub(registry, relay, logger)
}

func newHub(registry *Registry, relay relayer, logger core.Logger) *Hub {
	if relay != nil {
		registry.presence = relay
	}
	return &Hub{registry: registry, relay: relay, logger: logger}
}

func (h *Hub) Registry() *Registry { return h.registry }

func (h *Hub) SendIfConnected(userID string, frame []byte) bool {
	delivered := h.registry.SendIfConnected(userID, frame)
	if h.relay == nil {
		return delivered
	}
	ctx, cancel := context.WithTimeout(context.Background(), relayPublishTimeout)
	defer cancel()

	// an unreadable counter relays anyway
	total, err := h.relay.Count(ctx, userID)
	if err != nil {
		h.logger.Warn("reading live presence", err, map[string]interface{}{"user_id": userID})
	} else if total <= int64(h.registry.Connected(userID)) {
		return delivered
	}
	if err := h.relay.Publish(ctx, userID, frame); err != nil {
		h.logger.Warn("relaying live frame", err, map[string]interface{}{"user_id": userID})
	}
	return delivered
}

// Run drives the heartbeat and, with a relay, delivers frames from other instances.
func (h *Hub) Run(ctx context.Context) error {
	go h.registry.Run(ctx)
	if h.relay == nil {
		<-ctx.Done()
		return nil
	}
	return h.relay.Subscribe(ctx, func(userID string, frame []byte) {
		h.registry.SendIfConnected(userID, frame)
	})
}
