package notification

import (
	"sort"
	"time"

	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

type Type string

const (
	TypeAnnouncement    Type = "announcement"
	TypeHomework        Type = "homework"
	TypeClasswork       Type = "classwork"
	TypeAttendance      Type = "attendance"
	TypeMessageApproval Type = "message_approval"
	TypeCalendarEvent   Type = "calendar_event"
	TypeSystem          Type = "system"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type TargetKind string

const (
	TargetSchoolWide TargetKind = "school_wide"
	TargetRoles      TargetKind = "roles"
	TargetClasses    TargetKind = "classes"
	TargetStudent    TargetKind = "student"
	TargetUsers      TargetKind = "users"
)

// Target selects the audience of an Event. Exclude is applied last, whatever the kind.
type Target struct {
	Kind      TargetKind  `json:"kind"`
	Roles     []user.Role `json:"roles,omitempty"`
	ClassIDs  []string    `json:"class_division_ids,omitempty"`
	StudentID string      `json:"student_id,omitempty"`
	UserIDs   []string    `json:"user_ids,omitempty"`
	Exclude   []string    `json:"exclude,omitempty"`
}

func SchoolWide() Target                { return Target{Kind: TargetSchoolWide} }
func ForRoles(roles ...user.Role) Target { return Target{Kind: TargetRoles, Roles: roles} }
func ForClasses(ids ...string) Target    { return Target{Kind: TargetClasses, ClassIDs: ids} }
func ForStudent(id string) Target        { return Target{Kind: TargetStudent, StudentID: id} }
func ForUsers(ids ...string) Target      { return Target{Kind: TargetUsers, UserIDs: ids} }

// Excluding returns a copy of t that never reaches ids.
func (t Target) Excluding(ids ...string) Target {
	t.Exclude = append(append([]string(nil), t.Exclude...), ids...)
	return t
}

// Event is built by a producer and handed to the Notifier; it is never stored as such.
type Event struct {
	Type      Type
	Priority  Priority
	Title     string
	Body      string
	Target    Target
	EntityID  string
	CreatedAt time.Time
}

func (e Event) Payload() Payload {
	return Payload{
		Type:      e.Type,
		Priority:  e.Priority,
		Title:     e.Title,
		Body:      e.Body,
		EntityID:  e.EntityID,
		CreatedAt: e.CreatedAt,
	}
}

// Reason ranks why a user was reached; a higher value wins on dedup.
type Reason int

const (
	ReasonOversight Reason = iota + 1 // principal/admin appended to every class or student audience
	ReasonRole
	ReasonClass
	ReasonStudent
	ReasonDirect
)

func (r Reason) String() string {
	switch r {
	case ReasonOversight:
		return "oversight"
	case ReasonRole:
		return "role"
	case ReasonClass:
		return "class"
	case ReasonStudent:
		return "student"
	case ReasonDirect:
		return "direct"
	}
	return "unknown"
}

type Recipient struct {
	UserID    string
	Role      user.Role
	StudentID string
	Reason    Reason
}

// RecipientSet is keyed by user id: a user reachable through several paths appears once.
type RecipientSet map[string]Recipient

// Add inserts r, keeping the existing entry when it carries a higher-ranked reason.
func (s RecipientSet) Add(r Recipient) {
	if cur, ok := s[r.UserID]; ok && cur.Reason >= r.Reason {
		return
	}
	s[r.UserID] = r
}

func (s RecipientSet) Remove(ids ...string) {
	for _, id := range ids {
		delete(s, id)
	}
}

// IDs returns the recipient ids in ascending order.
func (s RecipientSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Payload is what transports deliver and what gets persisted per recipient.
type Payload struct {
	Type      Type      `json:"type"`
	Priority  Priority  `json:"priority"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	EntityID  string    `json:"entity_id,omitempty"`
	StudentID string    `json:"student_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification is the persisted, per-user record of a delivered Payload.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      Type      `json:"type"`
	Priority  Priority  `json:"priority"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	EntityID  string    `json:"entity_id,omitempty"`
	StudentID string    `json:"student_id,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

type DeviceRegistration struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"-"`
	Platform  Platform  `json:"platform"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDevice contains information needed to register a push token.
type NewDevice struct {
	Token    string `json:"token" validate:"required,nonblank,max=4096"`
	Platform string `json:"platform" validate:"required,oneof=android ios"`
}

type FailureReason string

const (
	// FailurePersistence means the notification record could not be stored: the recipient counts as failed.
	FailurePersistence FailureReason = "persistence_failed"
	// FailureTransport marks a live/push/email error: logged and counted, never fatal.
	FailureTransport FailureReason = "transport_failure"
)

type Failure struct {
	UserID string        `json:"user_id"`
	Reason FailureReason `json:"reason"`
	Detail string        `json:"detail,omitempty"`
}

// DispatchResult aggregates the outcome over all recipients of one Dispatch.
type DispatchResult struct {
	Sent            int       `json:"sent"`
	Failed          int       `json:"failed"`
	Failures        []Failure `json:"failures"`
	LiveDelivered   int       `json:"live_delivered"`
	PushDelivered   int       `json:"push_delivered"`
	TransportErrors []Failure `json:"transport_errors,omitempty"`
}
