package boiledrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/boil"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/notification"
)

const (
	notificationColumns = "id, user_id, type, priority, title, body, entity_id, student_id, is_read, created_at"
	deviceColumns       = "token, user_id, platform, is_active, created_at, updated_at"
)

type (
	notificationRow struct {
		ID        string      `boil:"id"`
		UserID    string      `boil:"user_id"`
		Type      string      `boil:"type"`
		Priority  string      `boil:"priority"`
		Title     string      `boil:"title"`
		Body      string      `boil:"body"`
		EntityID  null.String `boil:"entity_id"`
		StudentID null.String `boil:"student_id"`
		IsRead    bool        `boil:"is_read"`
		CreatedAt time.Time   `boil:"created_at"`
	}

	deviceRow struct {
		Token     string    `boil:"token"`
		UserID    string    `boil:"user_id"`
		Platform  string    `boil:"platform"`
		IsActive  bool      `boil:"is_active"`
		CreatedAt time.Time `boil:"created_at"`
		UpdatedAt time.Time `boil:"updated_at"`
	}
)

type notificationRepository struct {
	exec boil.ContextExecutor
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

// NewNotificationRepository serves both the notification inbox and device registrations.
func NewNotificationRepository(exec boil.ContextExecutor) notification.Repository {
	return &notificationRepository{exec: exec}
}

func (repo notificationRepository) boil(n notification.Notification) notificationRow {
	return notificationRow{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      string(n.Type),
		Priority:  string(n.Priority),
		Title:     n.Title,
		Body:      n.Body,
		EntityID:  null.NewString(n.EntityID, n.EntityID != ""),
		StudentID: null.NewString(n.StudentID, n.StudentID != ""),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.UTC(),
	}
}

func (repo notificationRepository) unboil(row notificationRow) notification.Notification {
	return notification.Notification{
		ID:        row.ID,
		UserID:    row.UserID,
		Type:      notification.Type(row.Type),
		Priority:  notification.Priority(row.Priority),
		Title:     row.Title,
		Body:      row.Body,
		EntityID:  row.EntityID.String,
		StudentID: row.StudentID.String,
		IsRead:    row.IsRead,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func (repo notificationRepository) unboilDevice(row deviceRow) notification.DeviceRegistration {
	return notification.DeviceRegistration{
		UserID:    row.UserID,
		Token:     row.Token,
		Platform:  notification.Platform(row.Platform),
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func (repo notificationRepository) RecordNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	r := repo.boil(n)
	var res notificationRow
	err := queries.Raw(`
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+notificationColumns,
		r.ID, r.UserID, r.Type, r.Priority, r.Title, r.Body, r.EntityID, r.StudentID, r.IsRead, r.CreatedAt,
	).Bind(ctx, repo.exec, &res)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return repo.unboil(res), nil
}

func (repo notificationRepository) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]notification.Notification, error) {
	rows := make([]notificationRow, 0)
	err := queries.Raw(`
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR NOT is_read)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`, userID, unreadOnly, limit,
	).Bind(ctx, repo.exec, &rows)
	if err = trapNoRowsErr(err, nil); err != nil {
		return nil, errors.Wrap(err, "selecting notifications")
	}

	res := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		res = append(res, repo.unboil(row))
	}
	return res, nil
}

func (repo notificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	res, err := queries.Raw(`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID).
		ExecContext(ctx, repo.exec)
	if err = trapNoRowsErr(err, notification.ErrNotificationNotFound); err != nil {
		return err
	}
	return requireAffected(res, notification.ErrNotificationNotFound)
}

func (repo notificationRepository) UpsertDevice(ctx context.Context, dev notification.DeviceRegistration) (notification.DeviceRegistration, error) {
	var res deviceRow
	err := queries.Raw(`
		INSERT INTO device_registrations (`+deviceColumns+`)
		VALUES ($1, $2, $3, TRUE, $4, $5)
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform,
			is_active = TRUE,
			updated_at = EXCLUDED.updated_at
		RETURNING `+deviceColumns,
		dev.Token, dev.UserID, string(dev.Platform), dev.CreatedAt.UTC(), dev.UpdatedAt.UTC(),
	).Bind(ctx, repo.exec, &res)
	if err != nil {
		return notification.DeviceRegistration{}, errors.Wrap(err, "upserting device")
	}
	return repo.unboilDevice(res), nil
}

func (repo notificationRepository) ActiveDevices(ctx context.Context, userID string) ([]notification.DeviceRegistration, error) {
	rows := make([]deviceRow, 0)
	err := queries.Raw(`SELECT `+deviceColumns+` FROM device_registrations
		WHERE user_id = $1 AND is_active ORDER BY token`, userID,
	).Bind(ctx, repo.exec, &rows)
	if err = trapNoRowsErr(err, nil); err != nil {
		return nil, errors.Wrap(err, "selecting devices")
	}

	res := make([]notification.DeviceRegistration, 0, len(rows))
	for _, row := range rows {
		res = append(res, repo.unboilDevice(row))
	}
	return res, nil
}

func (repo notificationRepository) DeactivateDevice(ctx context.Context, userID, token string) error {
	res, err := queries.Raw(`
		UPDATE device_registrations SET is_active = FALSE, updated_at = $3
		WHERE token = $1 AND ($2 = '' OR user_id::text = $2)`, token, userID, core.NowFunc(),
	).ExecContext(ctx, repo.exec)
	if err != nil {
		return errors.Wrap(err, "deactivating device")
	}
	return requireAffected(res, notification.ErrDeviceNotFound)
}

func (repo notificationRepository) PruneInactiveDevices(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := queries.Raw(`DELETE FROM device_registrations WHERE NOT is_active AND updated_at < $1`, cutoff.UTC()).
		ExecContext(ctx, repo.exec)
	if err != nil {
		return 0, errors.Wrap(err, "pruning devices")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "pruning devices")
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}
