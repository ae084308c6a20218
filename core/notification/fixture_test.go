package notification_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Shilpa0612/school-app-backend-sub003/core/directory"
	"github.com/Shilpa0612/school-app-backend-sub003/core/notification"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
	inmemdb "github.com/Shilpa0612/school-app-backend-sub003/storage/database/inmem"
	testutil "github.com/Shilpa0612/school-app-backend-sub003/tests"
)

// school is a small school: two classes, one student each, plus a shared guardian.
//
//	class A: teacher tA, student sA (guardians gA, gShared)
//	class B: teacher tB, student sB (guardian gShared)
type school struct {
	logger   *testutil.Logger
	users    user.Repository
	dir      *inmemdb.DirectoryRepository
	notifs   *inmemdb.NotificationRepository
	resolver *directory.Resolver
	audience *notification.Audience

	principal, admin, tA, tB, gA, gShared, inactive user.User
}

func newSchool(t *testing.T) *school {
	t.Helper()

	db := inmemdb.Open()
	s := &school{
		logger: testutil.NewLogger(),
		users:  inmemdb.NewUserRepository(db),
		dir:    inmemdb.NewDirectoryRepository(db),
		notifs: inmemdb.NewNotificationRepository(db),
	}
	s.principal = testutil.CreateUser(t, s.users, "Principal Paula", user.RolePrincipal, true)
	s.admin = testutil.CreateUser(t, s.users, "Admin Ada", user.RoleAdmin, true)
	s.tA = testutil.CreateUser(t, s.users, "Teacher Anna", user.RoleTeacher, true)
	s.tB = testutil.CreateUser(t, s.users, "Teacher Ben", user.RoleTeacher, true)
	s.gA = testutil.CreateUser(t, s.users, "Guardian Gina", user.RoleParent, true)
	s.gShared = testutil.CreateUser(t, s.users, "Guardian Sam", user.RoleParent, true)
	s.inactive = testutil.CreateUser(t, s.users, "Former Parent", user.RoleParent, false)

	s.dir.AssignTeacher(directory.TeacherClassAssignment{TeacherID: s.tA.ID, ClassDivisionID: "class-a", IsActive: true, IsPrimary: true})
	s.dir.AssignTeacher(directory.TeacherClassAssignment{TeacherID: s.tB.ID, ClassDivisionID: "class-b", IsActive: true, IsPrimary: true})
	s.dir.AddStudent(directory.Student{ID: "student-a", Name: "Alice", ClassDivisionID: "class-a"})
	s.dir.AddStudent(directory.Student{ID: "student-b", Name: "Bob", ClassDivisionID: "class-b"})
	s.dir.LinkGuardian(directory.GuardianStudentLink{GuardianID: s.gA.ID, StudentID: "student-a", Relationship: "mother", IsPrimaryGuardian: true})
	s.dir.LinkGuardian(directory.GuardianStudentLink{GuardianID: s.gShared.ID, StudentID: "student-a", Relationship: "uncle"})
	s.dir.LinkGuardian(directory.GuardianStudentLink{GuardianID: s.gShared.ID, StudentID: "student-b", Relationship: "father"})

	s.resolver = directory.NewResolver(s.dir, s.logger)
	s.audience = notification.NewAudience(s.resolver, s.users, s.logger)
	return s
}

// staleRosterStore answers ClassRoster from an outdated snapshot that still lists revoked teachers.
type staleRosterStore struct {
	*inmemdb.DirectoryRepository
	extraTeachers []string
}

func (s staleRosterStore) ClassRoster(ctx context.Context, classID string) (directory.Roster, error) {
	roster, err := s.DirectoryRepository.ClassRoster(ctx, classID)
	roster.TeacherIDs = append(roster.TeacherIDs, s.extraTeachers...)
	return roster, err
}

var errDiskFull = errors.New("disk full")

// failingStore fails to persist notifications for the listed users.
type failingStore struct {
	notification.Store
	failFor map[string]bool
}

func (s failingStore) RecordNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	if s.failFor[n.UserID] {
		return notification.Notification{}, errDiskFull
	}
	return s.Store.RecordNotification(ctx, n)
}
