package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/notification"
)

type NotificationRepository struct {
	db      *notificationTable
	devices *deviceTable
}

var _ notification.Repository = (*NotificationRepository)(nil)

// NewNotificationRepository returns a repository serving both notification records and devices.
func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db.notification, devices: db.device}
}

func (repo *NotificationRepository) RecordNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.rows = append(repo.db.rows, &n)
	return n, nil
}

func (repo *NotificationRepository) ListNotifications(_ context.Context, userID string, unreadOnly bool, limit int) ([]notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]notification.Notification, 0)
	for i := len(repo.db.rows) - 1; i >= 0; i-- {
		if n := repo.db.rows[i]; n.UserID == userID && (!unreadOnly || !n.IsRead) {
			res = append(res, *n)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (repo *NotificationRepository) MarkRead(_ context.Context, userID, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, n := range repo.db.rows {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return notification.ErrNotificationNotFound
}

func (repo *NotificationRepository) UpsertDevice(_ context.Context, dev notification.DeviceRegistration) (notification.DeviceRegistration, error) {
	repo.devices.mutex.Lock()
	defer repo.devices.mutex.Unlock()

	if cur, ok := repo.devices.table[dev.Token]; ok {
		cur.UserID = dev.UserID
		cur.Platform = dev.Platform
		cur.IsActive = true
		cur.UpdatedAt = dev.UpdatedAt
		return *cur, nil
	}
	repo.devices.table[dev.Token] = &dev
	return dev, nil
}

func (repo *NotificationRepository) ActiveDevices(_ context.Context, userID string) ([]notification.DeviceRegistration, error) {
	repo.devices.mutex.RLock()
	defer repo.devices.mutex.RUnlock()

	res := make([]notification.DeviceRegistration, 0)
	for _, d := range repo.devices.table {
		if d.UserID == userID && d.IsActive {
			res = append(res, *d)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Token < res[j].Token })
	return res, nil
}

func (repo *NotificationRepository) DeactivateDevice(_ context.Context, userID, token string) error {
	repo.devices.mutex.Lock()
	defer repo.devices.mutex.Unlock()

	d, ok := repo.devices.table[token]
	if !ok || (userID != "" && d.UserID != userID) {
		return notification.ErrDeviceNotFound
	}
	d.IsActive = false
	d.UpdatedAt = core.NowFunc()
	return nil
}

func (repo *NotificationRepository) PruneInactiveDevices(_ context.Context, cutoff time.Time) (int64, error) {
	repo.devices.mutex.Lock()
	defer repo.devices.mutex.Unlock()

	var n int64
	for token, d := range repo.devices.table {
		if !d.IsActive && d.UpdatedAt.Before(cutoff) {
			delete(repo.devices.table, token)
			n++
		}
	}
	return n, nil
}
