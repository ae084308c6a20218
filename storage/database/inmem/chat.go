package inmemdb

import (
	"context"
	"sort"

	"github.com/samber/lo"

	"github.com/Shilpa0612/school-app-backend-sub003/core/chat"
)

type chatRepository struct {
	db *chatTables
}

var _ chat.Repository = (*chatRepository)(nil)

func NewChatRepository(db *DB) chat.Repository {
	return &chatRepository{db: db.chat}
}

func (repo *chatRepository) CreateThread(_ context.Context, th chat.Thread) (chat.Thread, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	th.Participants = append([]chat.ParticipantRef(nil), th.Participants...)
	repo.db.threads[th.ID] = th
	return th, nil
}

func (repo *chatRepository) GetThread(_ context.Context, id string) (chat.Thread, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if th, ok := repo.db.threads[id]; ok {
		return th, nil
	}
	return chat.Thread{}, chat.ErrThreadNotFound
}

func (repo *chatRepository) CreateMessage(_ context.Context, msg chat.Message) (chat.Message, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.threads[msg.ThreadID]; !ok {
		return chat.Message{}, chat.ErrThreadNotFound
	}
	if msg.Version == 0 {
		msg.Version = 1
	}
	repo.db.messages[msg.ID] = &msg
	return msg, nil
}

func (repo *chatRepository) GetMessage(_ context.Context, id string) (chat.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if msg, ok := repo.db.messages[id]; ok {
		return *msg, nil
	}
	return chat.Message{}, chat.ErrMessageNotFound
}

func (repo *chatRepository) ListThreadMessages(_ context.Context, threadID string) ([]chat.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.filter(func(m *chat.Message) bool { return m.ThreadID == threadID }), nil
}

func (repo *chatRepository) ListMessagesByStatus(_ context.Context, statuses ...chat.ApprovalStatus) ([]chat.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.filter(func(m *chat.Message) bool { return lo.Contains(statuses, m.ApprovalStatus) }), nil
}

func (repo *chatRepository) CompareAndSwap(_ context.Context, id string, expect int, from []chat.ApprovalStatus, upd chat.Update) (chat.Message, bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	msg, ok := repo.db.messages[id]
	if !ok {
		return chat.Message{}, false, chat.ErrMessageNotFound
	}
	if msg.Version != expect || !lo.Contains(from, msg.ApprovalStatus) {
		return chat.Message{}, false, nil
	}

	msg.ApprovalStatus = upd.ApprovalStatus
	msg.RejectionReason = upd.RejectionReason
	msg.ApproverID = upd.ApproverID
	msg.ApprovedAt = upd.ApprovedAt
	if upd.Content != nil {
		msg.Content = *upd.Content
		msg.Flagged = upd.Flagged
		msg.EditedAt = upd.EditedAt
	}
	msg.Version++
	return *msg, true, nil
}

func (repo *chatRepository) RecordEdit(_ context.Context, e chat.Edit) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.messages[e.MessageID]; !ok {
		return chat.ErrMessageNotFound
	}
	repo.db.edits = append(repo.db.edits, e)
	return nil
}

func (repo *chatRepository) ListEdits(_ context.Context, messageID string) ([]chat.Edit, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	edits := lo.Filter(repo.db.edits, func(e chat.Edit, _ int) bool { return e.MessageID == messageID })
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].EditedAt.Before(edits[j].EditedAt) })
	return edits, nil
}

// filter returns matching messages oldest first; the caller holds the lock.
func (repo *chatRepository) filter(keep func(m *chat.Message) bool) []chat.Message {
	msgs := make([]chat.Message, 0)
	for _, m := range repo.db.messages {
		if keep(m) {
			msgs = append(msgs, *m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs
}
