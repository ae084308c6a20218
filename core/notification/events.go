package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

const previewLength = 140

type (
	// Announcement contains information needed to publish an announcement.
	// With no roles and no classes it goes school-wide.
	Announcement struct {
		ID               string   `json:"id" validate:"required"`
		Title            string   `json:"title" validate:"required,nonblank,max=200"`
		Content          string   `json:"content" validate:"required,nonblank"`
		Priority         Priority `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
		TargetRoles      []string `json:"target_roles" validate:"omitempty,dive,oneof=teacher parent principal admin"`
		ClassDivisionIDs []string `json:"class_division_ids" validate:"omitempty,dive,required"`
	}

	Homework struct {
		ID              string    `json:"id" validate:"required"`
		ClassDivisionID string    `json:"class_division_id" validate:"required"`
		Subject         string    `json:"subject" validate:"required,nonblank,max=100"`
		Title           string    `json:"title" validate:"required,nonblank,max=200"`
		DueDate         time.Time `json:"due_date" validate:"required"`
	}

	Classwork struct {
		ID              string `json:"id" validate:"required"`
		ClassDivisionID string `json:"class_division_id" validate:"required"`
		Subject         string `json:"subject" validate:"required,nonblank,max=100"`
		Summary         string `json:"summary" validate:"required,nonblank"`
	}

	Attendance struct {
		StudentID string    `json:"student_id" validate:"required"`
		Date      time.Time `json:"date" validate:"required"`
		Status    string    `json:"status" validate:"required,oneof=present absent late excused"`
	}

	// CalendarEvent reaches the listed classes, or the whole school when none are given.
	CalendarEvent struct {
		ID               string    `json:"id" validate:"required"`
		Title            string    `json:"title" validate:"required,nonblank,max=200"`
		StartsAt         time.Time `json:"starts_at" validate:"required"`
		ClassDivisionIDs []string  `json:"class_division_ids" validate:"omitempty,dive,required"`
	}

	SystemNotice struct {
		Title    string   `json:"title" validate:"required,nonblank,max=200"`
		Body     string   `json:"body" validate:"required,nonblank"`
		Priority Priority `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
		UserIDs  []string `json:"user_ids" validate:"omitempty,dive,required"`
	}
)

// AnnouncementPublished targets roles, classes or the whole school.
// The author never receives their own announcement.
func AnnouncementPublished(actor user.Actor, a Announcement) Event {
	var target Target
	switch {
	case len(a.ClassDivisionIDs) > 0:
		target = ForClasses(a.ClassDivisionIDs...)
	case len(a.TargetRoles) > 0:
		roles := make([]user.Role, 0, len(a.TargetRoles))
		for _, name := range a.TargetRoles {
			if r, ok := user.ParseRole(name); ok {
				roles = append(roles, r)
			}
		}
		target = ForRoles(roles...)
	default:
		target = SchoolWide()
	}
	return Event{
		Type:      TypeAnnouncement,
		Priority:  priorityOr(a.Priority, PriorityNormal),
		Title:     a.Title,
		Body:      core.Truncate(a.Content, previewLength),
		Target:    target.Excluding(actor.ID),
		EntityID:  a.ID,
		CreatedAt: core.NowFunc(),
	}
}

func HomeworkAssigned(actor user.Actor, hw Homework) Event {
	return Event{
		Type:      TypeHomework,
		Priority:  PriorityNormal,
		Title:     fmt.Sprintf("New %s homework", hw.Subject),
		Body:      fmt.Sprintf("%s (due %s)", hw.Title, hw.DueDate.Format("Jan 2, 2006")),
		Target:    ForClasses(hw.ClassDivisionID).Excluding(actor.ID),
		EntityID:  hw.ID,
		CreatedAt: core.NowFunc(),
	}
}

func ClassworkPosted(actor user.Actor, cw Classwork) Event {
	return Event{
		Type:      TypeClasswork,
		Priority:  PriorityLow,
		Title:     fmt.Sprintf("%s classwork", cw.Subject),
		Body:      core.Truncate(cw.Summary, previewLength),
		Target:    ForClasses(cw.ClassDivisionID).Excluding(actor.ID),
		EntityID:  cw.ID,
		CreatedAt: core.NowFunc(),
	}
}

// AttendanceMarked reaches the student's guardians and class; absences are sent as high priority.
func AttendanceMarked(actor user.Actor, at Attendance) Event {
	status := strings.ToLower(at.Status)
	prio := PriorityNormal
	if status == "absent" || status == "late" {
		prio = PriorityHigh
	}
	return Event{
		Type:      TypeAttendance,
		Priority:  prio,
		Title:     "Attendance update",
		Body:      fmt.Sprintf("Marked %s on %s", status, at.Date.Format("Jan 2, 2006")),
		Target:    ForStudent(at.StudentID).Excluding(actor.ID),
		EntityID:  at.StudentID,
		CreatedAt: core.NowFunc(),
	}
}

func CalendarEventCreated(actor user.Actor, ce CalendarEvent) Event {
	target := SchoolWide()
	if len(ce.ClassDivisionIDs) > 0 {
		target = ForClasses(ce.ClassDivisionIDs...)
	}
	return Event{
		Type:      TypeCalendarEvent,
		Priority:  PriorityNormal,
		Title:     ce.Title,
		Body:      "Starts " + ce.StartsAt.Format("Mon Jan 2, 2006 15:04"),
		Target:    target.Excluding(actor.ID),
		EntityID:  ce.ID,
		CreatedAt: core.NowFunc(),
	}
}

// SystemNoticeIssued goes to the listed users, or the whole school when none are given.
func SystemNoticeIssued(sn SystemNotice) Event {
	target := SchoolWide()
	if len(sn.UserIDs) > 0 {
		target = ForUsers(sn.UserIDs...)
	}
	return Event{
		Type:      TypeSystem,
		Priority:  priorityOr(sn.Priority, PriorityNormal),
		Title:     sn.Title,
		Body:      sn.Body,
		Target:    target,
		CreatedAt: core.NowFunc(),
	}
}

func priorityOr(p, fallback Priority) Priority {
	if p.Valid() {
		return p
	}
	return fallback
}
