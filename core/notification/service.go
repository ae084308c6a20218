package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

var (
	ErrNotificationNotFound = errors.Wrap(core.ErrNotFound, "notification")
	ErrDeviceNotFound       = errors.Wrap(core.ErrNotFound, "device")
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type (
	// Store persists per-user notification records.
	Store interface {
		RecordNotification(ctx context.Context, n Notification) (Notification, error)
		// ListNotifications returns the newest records of userID first.
		ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error)
		// MarkRead returns ErrNotificationNotFound unless id belongs to userID.
		MarkRead(ctx context.Context, userID, id string) error
	}

	// DeviceStore persists push registrations.
	DeviceStore interface {
		// UpsertDevice registers token for the user, re-activating and re-assigning it if known.
		UpsertDevice(ctx context.Context, dev DeviceRegistration) (DeviceRegistration, error)
		ActiveDevices(ctx context.Context, userID string) ([]DeviceRegistration, error)
		// DeactivateDevice marks token inactive; userID may be empty when the transport reports it invalid.
		DeactivateDevice(ctx context.Context, userID, token string) error
		// PruneInactiveDevices deletes inactive registrations last updated before cutoff.
		PruneInactiveDevices(ctx context.Context, cutoff time.Time) (int64, error)
	}

	// Repository is a storage serving both the inbox and device registrations.
	Repository interface {
		Store
		DeviceStore
	}

	// Service is the user-facing side of notifications: inbox and device registration.
	Service struct {
		store   Store
		devices DeviceStore
		logger  core.Logger
	}
)

func NewService(store Store, devices DeviceStore, logger core.Logger) *Service {
	return &Service{store: store, devices: devices, logger: logger}
}

func (svc *Service) List(ctx context.Context, actor user.Actor, unreadOnly bool, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	} else if limit > maxListLimit {
		limit = maxListLimit
	}
	ns, err := svc.store.ListNotifications(ctx, actor.ID, unreadOnly, limit)
	return ns, errors.Wrap(err, "listing notifications")
}

func (svc *Service) MarkRead(ctx context.Context, actor user.Actor, id string) error {
	return errors.Wrap(svc.store.MarkRead(ctx, actor.ID, id), "marking notification read")
}

func (svc *Service) RegisterDevice(ctx context.Context, actor user.Actor, nd NewDevice) (DeviceRegistration, error) {
	now := core.NowFunc()
	dev, err := svc.devices.UpsertDevice(ctx, DeviceRegistration{
		UserID:    actor.ID,
		Token:     core.CleanString(nd.Token),
		Platform:  Platform(nd.Platform),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return dev, errors.Wrap(err, "registering device")
}

func (svc *Service) DeactivateDevice(ctx context.Context, actor user.Actor, token string) error {
	return errors.Wrap(svc.devices.DeactivateDevice(ctx, actor.ID, token), "deactivating device")
}

// PruneInactiveDevices removes registrations inactive for longer than olderThan.
func (svc *Service) PruneInactiveDevices(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := svc.devices.PruneInactiveDevices(ctx, core.NowFunc().Add(-olderThan))
	if err != nil {
		return 0, errors.Wrap(err, "pruning devices")
	}
	svc.logger.Info("inactive devices pruned", map[string]interface{}{"count": n})
	return n, nil
}

func newRecord(userID string, p Payload) Notification {
	return Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      p.Type,
		Priority:  p.Priority,
		Title:     p.Title,
		Body:      p.Body,
		EntityID:  p.EntityID,
		StudentID: p.StudentID,
		CreatedAt: p.CreatedAt,
	}
}
