package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/Shilpa0612/school-app-backend-sub003/core/chat"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

const messageColumns = `id, thread_id, sender_id, sender_role, content, approval_status, rejection_reason,
	approver_id, approved_at, flagged_terms, version, created_at, edited_at`

type (
	threadRow struct {
		ID        string    `db:"id"`
		Title     string    `db:"title"`
		CreatedBy string    `db:"created_by"`
		CreatedAt time.Time `db:"created_at"`
	}

	messageRow struct {
		ID              string         `db:"id"`
		ThreadID        string         `db:"thread_id"`
		SenderID        string         `db:"sender_id"`
		SenderRole      string         `db:"sender_role"`
		Content         string         `db:"content"`
		ApprovalStatus  string         `db:"approval_status"`
		RejectionReason *string        `db:"rejection_reason"`
		ApproverID      *string        `db:"approver_id"`
		ApprovedAt      *time.Time     `db:"approved_at"`
		FlaggedTerms    pq.StringArray `db:"flagged_terms"`
		Version         int            `db:"version"`
		CreatedAt       time.Time      `db:"created_at"`
		EditedAt        *time.Time     `db:"edited_at"`
	}

	editRow struct {
		ID              string    `db:"id"`
		MessageID       string    `db:"message_id"`
		EditorID        string    `db:"editor_id"`
		PreviousContent string    `db:"previous_content"`
		PreviousStatus  string    `db:"previous_status"`
		Diff            string    `db:"diff"`
		EditedAt        time.Time `db:"edited_at"`
	}
)

func (row messageRow) toMessage() chat.Message {
	return chat.Message{
		ID:              row.ID,
		ThreadID:        row.ThreadID,
		SenderID:        row.SenderID,
		SenderRole:      user.Role(row.SenderRole),
		Content:         row.Content,
		ApprovalStatus:  chat.ApprovalStatus(row.ApprovalStatus),
		RejectionReason: row.RejectionReason,
		ApproverID:      row.ApproverID,
		ApprovedAt:      utcPtr(row.ApprovedAt),
		Flagged:         []string(row.FlaggedTerms),
		Version:         row.Version,
		CreatedAt:       row.CreatedAt.UTC(),
		EditedAt:        utcPtr(row.EditedAt),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func flaggedTerms(terms []string) pq.StringArray {
	if terms == nil {
		return pq.StringArray{}
	}
	return terms
}

type chatRepository struct {
	db *sqlx.DB
}

var _ chat.Repository = (*chatRepository)(nil)

func NewChatRepository(db *sqlx.DB) chat.Repository {
	return &chatRepository{db: db}
}

func (repo *chatRepository) CreateThread(ctx context.Context, th chat.Thread) (chat.Thread, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return chat.Thread{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO chat_threads (id, title, created_by, created_at) VALUES ($1, $2, $3, $4)`,
		th.ID, th.Title, th.CreatedBy, th.CreatedAt.UTC())
	if err != nil {
		return chat.Thread{}, errors.Wrap(err, "inserting thread")
	}
	for _, p := range th.Participants {
		_, err = tx.ExecContext(ctx, `INSERT INTO chat_participants (thread_id, user_id, role) VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`, th.ID, p.UserID, p.Role)
		if err != nil {
			return chat.Thread{}, errors.Wrap(err, "inserting participant")
		}
	}
	if err = tx.Commit(); err != nil {
		return chat.Thread{}, errors.Wrap(err, "committing thread")
	}
	return th, nil
}

func (repo *chatRepository) GetThread(ctx context.Context, id string) (chat.Thread, error) {
	var row threadRow
	db := repo.db
	err := sqlx.GetContext(ctx, db, &row, `SELECT id, title, created_by, created_at FROM chat_threads WHERE id = $1`, id)
	if err = trapNoRowsErr(err, chat.ErrThreadNotFound); err != nil {
		return chat.Thread{}, err
	}

	participants := make([]chat.ParticipantRef, 0)
	err = sqlx.SelectContext(ctx, db, &participants,
		`SELECT user_id, role FROM chat_participants WHERE thread_id = $1 ORDER BY user_id`, id)
	if err != nil {
		return chat.Thread{}, errors.Wrap(err, "selecting participants")
	}
	return chat.Thread{
		ID:           row.ID,
		Title:        row.Title,
		CreatedBy:    row.CreatedBy,
		Participants: participants,
		CreatedAt:    row.CreatedAt.UTC(),
	}, nil
}

func (repo *chatRepository) CreateMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if msg.Version == 0 {
		msg.Version = 1
	}
	var row messageRow
	err := sqlx.GetContext(ctx, repo.db, &row, `
		INSERT INTO chat_messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+messageColumns,
		msg.ID, msg.ThreadID, msg.SenderID, msg.SenderRole, msg.Content, msg.ApprovalStatus, msg.RejectionReason,
		msg.ApproverID, msg.ApprovedAt, flaggedTerms(msg.Flagged), msg.Version, msg.CreatedAt.UTC(), msg.EditedAt)
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
		return chat.Message{}, chat.ErrThreadNotFound
	}
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "inserting message")
	}
	return row.toMessage(), nil
}

func (repo *chatRepository) GetMessage(ctx context.Context, id string) (chat.Message, error) {
	var row messageRow
	err := sqlx.GetContext(ctx, repo.db, &row, `SELECT `+messageColumns+` FROM chat_messages WHERE id = $1`, id)
	if err = trapNoRowsErr(err, chat.ErrMessageNotFound); err != nil {
		return chat.Message{}, err
	}
	return row.toMessage(), nil
}

func (repo *chatRepository) ListThreadMessages(ctx context.Context, threadID string) ([]chat.Message, error) {
	return repo.selectMessages(ctx, `SELECT `+messageColumns+` FROM chat_messages
		WHERE thread_id = $1 ORDER BY created_at, id`, threadID)
}

func (repo *chatRepository) ListMessagesByStatus(ctx context.Context, statuses ...chat.ApprovalStatus) ([]chat.Message, error) {
	names := lo.Map(statuses, func(s chat.ApprovalStatus, _ int) string { return string(s) })
	return repo.selectMessages(ctx, `SELECT `+messageColumns+` FROM chat_messages
		WHERE approval_status = ANY($1) ORDER BY created_at, id`, pq.Array(names))
}

func (repo *chatRepository) selectMessages(ctx context.Context, q string, args ...interface{}) ([]chat.Message, error) {
	rows := make([]messageRow, 0)
	if err := sqlx.SelectContext(ctx, repo.db, &rows, q, args...); err != nil && !isNoMatch(err) {
		return nil, errors.Wrap(err, "selecting messages")
	}
	return lo.Map(rows, func(row messageRow, _ int) chat.Message { return row.toMessage() }), nil
}

// CompareAndSwap is a single conditional UPDATE; concurrent writers race on the version column.
func (repo *chatRepository) CompareAndSwap(ctx context.Context, id string, expect int, from []chat.ApprovalStatus, upd chat.Update) (chat.Message, bool, error) {
	names := lo.Map(from, func(s chat.ApprovalStatus, _ int) string { return string(s) })

	var row messageRow
	err := sqlx.GetContext(ctx, repo.db, &row, `
		UPDATE chat_messages SET
			approval_status = $1,
			rejection_reason = $2,
			approver_id = $3,
			approved_at = $4,
			content = COALESCE($5, content),
			flagged_terms = CASE WHEN $5::text IS NULL THEN flagged_terms ELSE $6::text[] END,
			edited_at = CASE WHEN $5::text IS NULL THEN edited_at ELSE $7 END,
			version = version + 1
		WHERE id = $8 AND version = $9 AND approval_status = ANY($10)
		RETURNING `+messageColumns,
		upd.ApprovalStatus, upd.RejectionReason, upd.ApproverID, upd.ApprovedAt,
		upd.Content, flaggedTerms(upd.Flagged), upd.EditedAt,
		id, expect, pq.Array(names))
	if err == nil {
		return row.toMessage(), true, nil
	}
	if !isNoMatch(err) {
		return chat.Message{}, false, errors.Wrap(err, "updating message")
	}

	// the condition failed: tell a missing row apart from a stale one
	var exists bool
	if err = sqlx.GetContext(ctx, repo.db, &exists, `SELECT EXISTS (SELECT 1 FROM chat_messages WHERE id = $1)`, id); err != nil {
		return chat.Message{}, false, errors.Wrap(trapNoRowsErr(err, chat.ErrMessageNotFound), "checking message")
	}
	if !exists {
		return chat.Message{}, false, chat.ErrMessageNotFound
	}
	return chat.Message{}, false, nil
}

func (repo *chatRepository) RecordEdit(ctx context.Context, e chat.Edit) error {
	_, err := sqlx.NamedExecContext(ctx, repo.db, `
		INSERT INTO chat_message_edits (id, message_id, editor_id, previous_content, previous_status, diff, edited_at)
		VALUES (:id, :message_id, :editor_id, :previous_content, :previous_status, :diff, :edited_at)`,
		editRow{
			ID:              e.ID,
			MessageID:       e.MessageID,
			EditorID:        e.EditorID,
			PreviousContent: e.PreviousContent,
			PreviousStatus:  string(e.PreviousStatus),
			Diff:            e.Diff,
			EditedAt:        e.EditedAt.UTC(),
		})
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
		return chat.ErrMessageNotFound
	}
	return errors.Wrap(err, "inserting message edit")
}

func (repo *chatRepository) ListEdits(ctx context.Context, messageID string) ([]chat.Edit, error) {
	rows := make([]editRow, 0)
	err := sqlx.SelectContext(ctx, repo.db, &rows, `
		SELECT id, message_id, editor_id, previous_content, previous_status, diff, edited_at
		FROM chat_message_edits WHERE message_id = $1 ORDER BY edited_at, id`, messageID)
	if err != nil && !isNoMatch(err) {
		return nil, errors.Wrap(err, "selecting message edits")
	}
	return lo.Map(rows, func(row editRow, _ int) chat.Edit {
		return chat.Edit{
			ID:              row.ID,
			MessageID:       row.MessageID,
			EditorID:        row.EditorID,
			PreviousContent: row.PreviousContent,
			PreviousStatus:  chat.ApprovalStatus(row.PreviousStatus),
			Diff:            row.Diff,
			EditedAt:        row.EditedAt.UTC(),
		}
	}), nil
}
