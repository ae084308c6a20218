package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Shilpa0612/school-app-backend-sub003/core/directory"
	"github.com/Shilpa0612/school-app-backend-sub003/core/notification"
)

func Test_eventApi_publish(t *testing.T) {
	e := setup(t)
	due := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	teacherToken := getToken(t, e.conf, e.teacher)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	homework := func(classID string) []byte {
		return marchallObj(t, notification.Homework{ID: "hw-1", ClassDivisionID: classID, Subject: "Maths", Title: "Fractions", DueDate: due})
	}

	runHTTPTests(t, e, []httpTest{
		// teacher, parent, principal, admin
		{name: "homework for own class", method: http.MethodPost, path: "/v1/homework", token: teacherToken, body: homework("class-a"),
			wantCode: http.StatusAccepted, wantData: marchallObj(t, notification.DispatchResult{Sent: 3, Failures: []notification.Failure{}})},
		{name: "homework for another class", method: http.MethodPost, path: "/v1/homework", token: teacherToken, body: homework("class-b"),
			wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "parents cannot post homework", method: http.MethodPost, path: "/v1/homework", token: getToken(t, e.conf, e.parent),
			body: homework("class-a"), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "attendance for own student", method: http.MethodPost, path: "/v1/attendance", token: teacherToken,
			body: marchallObj(t, notification.Attendance{StudentID: "student-a", Date: due, Status: "absent"}), wantCode: http.StatusAccepted},
		{name: "attendance for another student", method: http.MethodPost, path: "/v1/attendance", token: teacherToken,
			body: marchallObj(t, notification.Attendance{StudentID: "student-b", Date: due, Status: "absent"}),
			wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "attendance with unknown status", method: http.MethodPost, path: "/v1/attendance", token: teacherToken,
			body: marchallObj(t, notification.Attendance{StudentID: "student-a", Date: due, Status: "sick"}), wantCode: http.StatusBadRequest},
		{name: "teachers cannot announce", method: http.MethodPost, path: "/v1/announcements", token: teacherToken,
			body: marchallObj(t, notification.Announcement{ID: "a-1", Title: "Hi", Content: "Hello"}), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "system notices are admin only", method: http.MethodPost, path: "/v1/system-notices", token: getToken(t, e.conf, e.principal),
			body: marchallObj(t, notification.SystemNotice{Title: "Down", Body: "Tonight"}), wantCode: http.StatusForbidden, wantData: forbidden},
	})
}

func Test_eventApi_announcementReachesSchool(t *testing.T) {
	req := require.New(t)
	e := setup(t)

	rec := e.do(http.MethodPost, "/v1/announcements", getToken(t, e.conf, e.principal), marchallObj(t, notification.Announcement{
		ID: "ann-1", Title: "Sports day", Content: "Friday on the field", Priority: notification.PriorityHigh,
	}))
	req.Equal(http.StatusAccepted, rec.Code, rec.Body.String())

	var res notification.DispatchResult
	unmarchall(t, rec, &res)
	// everyone active but the author
	req.Equal(5, res.Sent)
	req.Empty(e.inbox(t, e.principal))
	req.Empty(e.inbox(t, e.inactive))

	ns := e.inbox(t, e.otherParent)
	req.Len(ns, 1)
	req.Equal(notification.TypeAnnouncement, ns[0].Type)
	req.Equal(notification.PriorityHigh, ns[0].Priority)
}

func Test_eventApi_roster(t *testing.T) {
	req := require.New(t)
	e := setup(t)

	rec := e.do(http.MethodGet, "/v1/classes/class-a/roster", getToken(t, e.conf, e.teacher))
	req.Equal(http.StatusOK, rec.Code, rec.Body.String())

	var roster directory.Roster
	unmarchall(t, rec, &roster)
	req.Equal([]string{e.teacher.ID}, roster.TeacherIDs)
	req.Equal([]string{e.parent.ID}, roster.GuardianIDs)

	rec = e.do(http.MethodGet, "/v1/classes/class-b/roster", getToken(t, e.conf, e.teacher))
	req.Equal(http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodGet, "/v1/classes/class-b/roster", getToken(t, e.conf, e.admin))
	req.Equal(http.StatusOK, rec.Code)
}
