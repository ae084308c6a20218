package notification

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
)

// Notifier resolves an Event's audience and dispatches it.
type Notifier struct {
	audience   *Audience
	dispatcher *Dispatcher
	logger     core.Logger
}

func NewNotifier(audience *Audience, dispatcher *Dispatcher, logger core.Logger) *Notifier {
	return &Notifier{audience: audience, dispatcher: dispatcher, logger: logger}
}

func (n *Notifier) Notify(ctx context.Context, evt Event) (DispatchResult, error) {
	if evt.Priority == "" {
		evt.Priority = PriorityNormal
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = core.NowFunc()
	}
	recipients, err := n.audience.Resolve(ctx, evt.Target)
	if err != nil {
		return DispatchResult{}, errors.Wrap(err, "resolving audience")
	}

	res := n.dispatcher.Dispatch(ctx, recipients, evt.Payload())
	extras := map[string]interface{}{
		"type":             evt.Type,
		"entity_id":        evt.EntityID,
		"recipients":       len(recipients),
		"sent":             res.Sent,
		"failed":           res.Failed,
		"transport_errors": len(res.TransportErrors),
	}
	if res.Failed > 0 {
		n.logger.Warn("notification dispatched with failures", extras)
	} else {
		n.logger.Info("notification dispatched", extras)
	}
	return res, nil
}
