package chat

import (
	"time"

	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

// ApprovalStatus is the moderation state of a ChatMessage.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type ParticipantRef struct {
	UserID string    `json:"user_id" db:"user_id"`
	Role   user.Role `json:"role" db:"role"`
}

type Thread struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	CreatedBy    string           `json:"created_by"`
	Participants []ParticipantRef `json:"participants"`
	CreatedAt    time.Time        `json:"created_at"`
}

func (t Thread) HasParticipant(userID string) bool {
	for _, p := range t.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

type Message struct {
	ID              string         `json:"id"`
	ThreadID        string         `json:"thread_id"`
	SenderID        string         `json:"sender_id"`
	SenderRole      user.Role      `json:"sender_role"`
	Content         string         `json:"content"`
	ApprovalStatus  ApprovalStatus `json:"approval_status"`
	RejectionReason *string        `json:"rejection_reason"`
	ApproverID      *string        `json:"approver_id"`
	ApprovedAt      *time.Time     `json:"approved_at"`
	Flagged         []string       `json:"flagged_terms,omitempty"`
	Version         int            `json:"version"`
	CreatedAt       time.Time      `json:"created_at"`
	EditedAt        *time.Time     `json:"edited_at"`
}

// VisibleTo reports whether viewer may read the message content.
// Unapproved content is only shown to its sender and to moderators.
func (m Message) VisibleTo(viewer user.Actor) bool {
	return m.ApprovalStatus == StatusApproved || m.SenderID == viewer.ID || viewer.Role.CanModerate()
}

// Update is the set of columns written by a conditional status change.
// Moderation columns are always written; Content, Flagged and EditedAt only when Content is set.
type Update struct {
	Content         *string
	ApprovalStatus  ApprovalStatus
	RejectionReason *string
	ApproverID      *string
	ApprovedAt      *time.Time
	Flagged         []string
	EditedAt        *time.Time
}

// Edit records one content change, with a unified diff for moderators.
type Edit struct {
	ID              string         `json:"id"`
	MessageID       string         `json:"message_id"`
	EditorID        string         `json:"editor_id"`
	PreviousContent string         `json:"previous_content"`
	PreviousStatus  ApprovalStatus `json:"previous_status"`
	Diff            string         `json:"diff"`
	EditedAt        time.Time      `json:"edited_at"`
}

// NewMessage contains information needed to post a message.
type NewMessage struct {
	Content string `json:"content" validate:"required,nonblank,max=4000"`
}

// EditMessage contains information needed to change a message's content.
type EditMessage struct {
	Content string `json:"content" validate:"required,nonblank,max=4000"`
}

// RejectMessage carries the moderator's reason.
type RejectMessage struct {
	Reason string `json:"reason" validate:"required,nonblank,max=500"`
}

// NewThread contains information needed to open a thread.
type NewThread struct {
	Title          string   `json:"title" validate:"max=200"`
	ParticipantIDs []string `json:"participant_ids" validate:"required,min=1,dive,required"`
}

// EditResult is returned to the editor; RequiresReapproval drives client messaging.
type EditResult struct {
	Message            Message `json:"message"`
	RequiresReapproval bool    `json:"requires_reapproval"`
}
