package chat

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/samber/lo"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/moderation"
	"github.com/Shilpa0612/school-app-backend-sub003/core/notification"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

const previewLength = 140

var (
	// errors
	ErrThreadNotFound  = errors.Wrap(core.ErrNotFound, "thread")
	ErrMessageNotFound = errors.Wrap(core.ErrNotFound, "message")
)

type (
	Repository interface {
		CreateThread(ctx context.Context, th Thread) (Thread, error)
		GetThread(ctx context.Context, id string) (Thread, error)
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		GetMessage(ctx context.Context, id string) (Message, error)
		// ListThreadMessages returns the messages of threadID, oldest first.
		ListThreadMessages(ctx context.Context, threadID string) ([]Message, error)
		ListMessagesByStatus(ctx context.Context, statuses ...ApprovalStatus) ([]Message, error)
		// CompareAndSwap writes upd and bumps the version only if message id is still at
		// version expect with a status in from. swapped is false, with a nil error, when
		// the condition did not hold.
		CompareAndSwap(ctx context.Context, id string, expect int, from []ApprovalStatus, upd Update) (msg Message, swapped bool, err error)
		RecordEdit(ctx context.Context, e Edit) error
		ListEdits(ctx context.Context, messageID string) ([]Edit, error)
	}

	Notifier interface {
		Notify(ctx context.Context, evt notification.Event) (notification.DispatchResult, error)
	}

	Service struct {
		repo     Repository
		users    user.Repository
		notifier Notifier
		screener *moderation.Screener
		logger   core.Logger
	}
)

var _ Notifier = (*notification.Notifier)(nil)

func NewService(repo Repository, users user.Repository, notifier Notifier, screener *moderation.Screener, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(notifier, "notifier"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{repo: repo, users: users, notifier: notifier, screener: screener, logger: logger}
}

// CreateThread opens a thread between actor and the given users.
func (svc *Service) CreateThread(ctx context.Context, actor user.Actor, nt NewThread) (Thread, error) {
	ids := lo.Uniq(append([]string{actor.ID}, nt.ParticipantIDs...))
	participants := make([]ParticipantRef, 0, len(ids))
	for _, id := range ids {
		if id == actor.ID {
			participants = append(participants, ParticipantRef{UserID: actor.ID, Role: actor.Role})
			continue
		}
		usr, err := svc.users.GetUser(ctx, id)
		if err != nil {
			return Thread{}, errors.Wrap(err, "finding participant")
		}
		if !usr.IsActive {
			return Thread{}, errors.Wrap(user.ErrNotFound, "inactive participant")
		}
		participants = append(participants, ParticipantRef{UserID: usr.ID, Role: usr.Role})
	}

	th, err := svc.repo.CreateThread(ctx, Thread{
		ID:           uuid.New().String(),
		Title:        core.CleanString(nt.Title),
		CreatedBy:    actor.ID,
		Participants: participants,
		CreatedAt:    core.NowFunc(),
	})
	return th, errors.Wrap(err, "creating thread")
}

// Create posts a message. Messages from teachers and parents wait for a moderator;
// principals and admins publish directly.
func (svc *Service) Create(ctx context.Context, actor user.Actor, threadID string, nm NewMessage) (Message, error) {
	th, err := svc.repo.GetThread(ctx, threadID)
	if err != nil {
		return Message{}, errors.Wrap(err, "finding thread")
	}
	if !th.HasParticipant(actor.ID) {
		return Message{}, core.ErrForbidden
	}

	now := core.NowFunc()
	content := core.CleanString(nm.Content)
	msg := Message{
		ID:             uuid.New().String(),
		ThreadID:       th.ID,
		SenderID:       actor.ID,
		SenderRole:     actor.Role,
		Content:        content,
		ApprovalStatus: InitialStatus(actor.Role),
		Flagged:        svc.screener.Flags(content),
		Version:        1,
		CreatedAt:      now,
	}
	if msg.ApprovalStatus == StatusApproved {
		msg.ApproverID = &actor.ID
		msg.ApprovedAt = &now
	}

	msg, err = svc.repo.CreateMessage(ctx, msg)
	if err != nil {
		return Message{}, errors.Wrap(err, "creating message")
	}

	if msg.ApprovalStatus == StatusApproved {
		svc.notify(ctx, svc.newMessageEvent(th, msg, actor))
	} else {
		svc.notify(ctx, svc.pendingReviewEvent(msg, actor, false))
	}
	return msg, nil
}

// Approve publishes a pending or rejected message. Approving an approved message is a
// no-op; only the call that performs the transition notifies.
func (svc *Service) Approve(ctx context.Context, actor user.Actor, id string) (Message, error) {
	if !actor.Role.CanModerate() {
		return Message{}, core.ErrForbidden
	}
	msg, err := svc.repo.GetMessage(ctx, id)
	if err != nil {
		return Message{}, errors.Wrap(err, "finding message")
	}
	if msg.ApprovalStatus == StatusApproved {
		return msg, nil
	}
	if !CanApprove(msg.ApprovalStatus) {
		return Message{}, core.ErrInvalidState
	}

	now := core.NowFunc()
	updated, swapped, err := svc.repo.CompareAndSwap(ctx, id, msg.Version, approvableFrom, Update{
		ApprovalStatus: StatusApproved,
		ApproverID:     &actor.ID,
		ApprovedAt:     &now,
	})
	if err != nil {
		return Message{}, errors.Wrap(err, "approving message")
	}
	if !swapped {
		current, err := svc.repo.GetMessage(ctx, id)
		if err != nil {
			return Message{}, errors.Wrap(err, "finding message")
		}
		if current.ApprovalStatus == StatusApproved {
			return current, nil
		}
		return Message{}, core.ErrConflict
	}

	th, err := svc.repo.GetThread(ctx, updated.ThreadID)
	if err != nil {
		svc.logger.Error("finding thread of approved message", err, map[string]interface{}{"message_id": id})
		return updated, nil
	}
	svc.notify(ctx, svc.approvedEvent(th, updated, actor))
	return updated, nil
}

// Reject sends a pending message back to its sender with reason.
func (svc *Service) Reject(ctx context.Context, actor user.Actor, id string, rm RejectMessage) (Message, error) {
	if !actor.Role.CanModerate() {
		return Message{}, core.ErrForbidden
	}
	msg, err := svc.repo.GetMessage(ctx, id)
	if err != nil {
		return Message{}, errors.Wrap(err, "finding message")
	}
	if !CanReject(msg.ApprovalStatus) {
		return Message{}, core.ErrInvalidState
	}

	reason := core.CleanString(rm.Reason)
	updated, swapped, err := svc.repo.CompareAndSwap(ctx, id, msg.Version, []ApprovalStatus{StatusPending}, Update{
		ApprovalStatus:  StatusRejected,
		RejectionReason: &reason,
		ApproverID:      &actor.ID,
	})
	if err != nil {
		return Message{}, errors.Wrap(err, "rejecting message")
	}
	if !swapped {
		current, err := svc.repo.GetMessage(ctx, id)
		if err != nil {
			return Message{}, errors.Wrap(err, "finding message")
		}
		if !CanReject(current.ApprovalStatus) {
			return Message{}, core.ErrInvalidState
		}
		return Message{}, core.ErrConflict
	}

	svc.notify(ctx, notification.Event{
		Type:      notification.TypeMessageApproval,
		Priority:  notification.PriorityNormal,
		Title:     "Your message was not approved",
		Body:      "Reason: " + reason,
		Target:    notification.ForUsers(updated.SenderID),
		EntityID:  updated.ID,
		CreatedAt: core.NowFunc(),
	})
	return updated, nil
}

// Edit changes the content of the actor's own message and re-applies the create rule:
// a teacher or parent edit sends the message back to the moderation queue.
func (svc *Service) Edit(ctx context.Context, actor user.Actor, id string, em EditMessage) (EditResult, error) {
	msg, err := svc.repo.GetMessage(ctx, id)
	if err != nil {
		return EditResult{}, errors.Wrap(err, "finding message")
	}
	if msg.SenderID != actor.ID {
		return EditResult{}, core.ErrForbidden
	}

	now := core.NowFunc()
	content := core.CleanString(em.Content)
	outcome := EditOutcome(actor.Role, msg.ApprovalStatus)
	upd := Update{
		Content:         &content,
		ApprovalStatus:  outcome.To,
		RejectionReason: nil,
		ApproverID:      msg.ApproverID,
		ApprovedAt:      msg.ApprovedAt,
		Flagged:         svc.screener.Flags(content),
		EditedAt:        &now,
	}
	if outcome.ResetModeration {
		upd.ApproverID, upd.ApprovedAt = nil, nil
		if outcome.To == StatusApproved {
			upd.ApproverID, upd.ApprovedAt = &actor.ID, &now
		}
	}

	updated, swapped, err := svc.repo.CompareAndSwap(ctx, id, msg.Version, []ApprovalStatus{msg.ApprovalStatus}, upd)
	if err != nil {
		return EditResult{}, errors.Wrap(err, "editing message")
	}
	if !swapped {
		return EditResult{}, core.ErrConflict
	}

	err = svc.repo.RecordEdit(ctx, Edit{
		ID:              uuid.New().String(),
		MessageID:       id,
		EditorID:        actor.ID,
		PreviousContent: msg.Content,
		PreviousStatus:  msg.ApprovalStatus,
		Diff:            contentDiff(msg.Content, content),
		EditedAt:        now,
	})
	if err != nil {
		svc.logger.Error("recording message edit", err, map[string]interface{}{"message_id": id})
	}

	if outcome.To == StatusPending && msg.ApprovalStatus != StatusPending {
		svc.notify(ctx, svc.pendingReviewEvent(updated, actor, true))
	}
	return EditResult{Message: updated, RequiresReapproval: outcome.RequiresReapproval}, nil
}

// ListThread returns the messages of a thread as seen by actor. Unapproved messages
// of other senders are left out for participants; moderators see everything.
func (svc *Service) ListThread(ctx context.Context, actor user.Actor, threadID string) ([]Message, error) {
	th, err := svc.repo.GetThread(ctx, threadID)
	if err != nil {
		return nil, errors.Wrap(err, "finding thread")
	}
	if !th.HasParticipant(actor.ID) && !actor.Role.CanModerate() {
		return nil, core.ErrForbidden
	}
	msgs, err := svc.repo.ListThreadMessages(ctx, threadID)
	if err != nil {
		return nil, errors.Wrap(err, "listing messages")
	}
	return lo.Filter(msgs, func(m Message, _ int) bool { return m.VisibleTo(actor) }), nil
}

// Get returns one message. An unapproved message of someone else reads as not found.
func (svc *Service) Get(ctx context.Context, actor user.Actor, id string) (Message, error) {
	msg, err := svc.repo.GetMessage(ctx, id)
	if err != nil {
		return Message{}, errors.Wrap(err, "finding message")
	}
	if !actor.Role.CanModerate() {
		th, err := svc.repo.GetThread(ctx, msg.ThreadID)
		if err != nil {
			return Message{}, errors.Wrap(err, "finding thread")
		}
		if !th.HasParticipant(actor.ID) {
			return Message{}, core.ErrForbidden
		}
	}
	if !msg.VisibleTo(actor) {
		return Message{}, ErrMessageNotFound
	}
	return msg, nil
}

// PendingQueue lists messages awaiting review, flagged ones first, then oldest first.
func (svc *Service) PendingQueue(ctx context.Context, actor user.Actor) ([]Message, error) {
	if !actor.Role.CanModerate() {
		return nil, core.ErrForbidden
	}
	msgs, err := svc.repo.ListMessagesByStatus(ctx, StatusPending)
	if err != nil {
		return nil, errors.Wrap(err, "listing pending messages")
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		fi, fj := len(msgs[i].Flagged) > 0, len(msgs[j].Flagged) > 0
		if fi != fj {
			return fi
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs, nil
}

// History returns the edits of a message, oldest first. Only the sender and moderators may see it.
func (svc *Service) History(ctx context.Context, actor user.Actor, id string) ([]Edit, error) {
	msg, err := svc.repo.GetMessage(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "finding message")
	}
	if msg.SenderID != actor.ID && !actor.Role.CanModerate() {
		return nil, core.ErrForbidden
	}
	edits, err := svc.repo.ListEdits(ctx, id)
	return edits, errors.Wrap(err, "listing edits")
}

// notify runs after the state change is stored: a failed dispatch is logged, never returned.
func (svc *Service) notify(ctx context.Context, evt notification.Event) {
	if _, err := svc.notifier.Notify(ctx, evt); err != nil {
		svc.logger.Error("notifying", err, map[string]interface{}{"type": evt.Type, "entity_id": evt.EntityID})
	}
}

func (svc *Service) preview(content string) string {
	return core.Truncate(svc.screener.Censor(content), previewLength)
}

func (svc *Service) newMessageEvent(th Thread, msg Message, actor user.Actor) notification.Event {
	return notification.Event{
		Type:      notification.TypeMessageApproval,
		Priority:  notification.PriorityNormal,
		Title:     threadTitle(th, "New message"),
		Body:      svc.preview(msg.Content),
		Target:    notification.ForUsers(participantIDs(th)...).Excluding(actor.ID),
		EntityID:  msg.ID,
		CreatedAt: core.NowFunc(),
	}
}

// approvedEvent reaches every participant but the approver; the sender gets it as a confirmation.
func (svc *Service) approvedEvent(th Thread, msg Message, actor user.Actor) notification.Event {
	evt := svc.newMessageEvent(th, msg, actor)
	evt.Title = threadTitle(th, "Message approved")
	return evt
}

func (svc *Service) pendingReviewEvent(msg Message, actor user.Actor, edited bool) notification.Event {
	title := "Message awaiting approval"
	if edited {
		title = "Edited message awaiting approval"
	}
	prio := notification.PriorityNormal
	if len(msg.Flagged) > 0 {
		prio = notification.PriorityHigh
	}
	return notification.Event{
		Type:      notification.TypeMessageApproval,
		Priority:  prio,
		Title:     title,
		Body:      svc.preview(msg.Content),
		Target:    notification.ForRoles(user.PrivilegedRoles...).Excluding(actor.ID),
		EntityID:  msg.ID,
		CreatedAt: core.NowFunc(),
	}
}

func participantIDs(th Thread) []string {
	return lo.Map(th.Participants, func(p ParticipantRef, _ int) string { return p.UserID })
}

func threadTitle(th Thread, prefix string) string {
	if th.Title == "" {
		return prefix
	}
	return fmt.Sprintf("%s in %s", prefix, th.Title)
}

// contentDiff renders a line diff between two versions of a message.
func contentDiff(before, after string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "previous",
		ToFile:   "current",
		Context:  2,
	})
	if err != nil {
		return ""
	}
	return diff
}
