package chat

import "github.com/Shilpa0612/school-app-backend-sub003/core/user"

// approvableFrom lists the states approve may leave.
var approvableFrom = []ApprovalStatus{StatusPending, StatusRejected}

// InitialStatus is the status of a message written by role, on create and on edit.
func InitialStatus(role user.Role) ApprovalStatus {
	if role.IsPrivileged() {
		return StatusApproved
	}
	return StatusPending
}

// CanApprove reports whether a message in from may be approved.
func CanApprove(from ApprovalStatus) bool {
	return from == StatusPending || from == StatusRejected
}

// CanReject reports whether a message in from may be rejected. Approved messages stay approved.
func CanReject(from ApprovalStatus) bool {
	return from == StatusPending
}

// EditTransition describes what an edit does to the moderation state.
type EditTransition struct {
	To ApprovalStatus
	// ResetModeration clears the approver, approval time and rejection reason.
	ResetModeration bool
	// RequiresReapproval is set when a reviewed message goes back to the queue.
	RequiresReapproval bool
}

// EditOutcome applies the create rule to an edit by role of a message currently in from.
func EditOutcome(role user.Role, from ApprovalStatus) EditTransition {
	to := InitialStatus(role)
	if to == StatusApproved {
		return EditTransition{To: to, ResetModeration: from != StatusApproved}
	}
	return EditTransition{
		To:                 StatusPending,
		ResetModeration:    true,
		RequiresReapproval: from == StatusApproved || from == StatusRejected,
	}
}
