package directory

import (
	"context"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

var ErrStudentNotFound = errors.Wrap(core.ErrNotFound, "student")

// Store is the read/write surface of the relationship tables.
// Implementations must answer from current rows on every call.
type Store interface {
	ActiveTeacherAssignments(ctx context.Context, teacherID string) ([]TeacherClassAssignment, error)
	HasActiveAssignment(ctx context.Context, teacherID, classID string) (bool, error)
	GuardianLinks(ctx context.Context, guardianID string) ([]GuardianStudentLink, error)
	// ClassRoster returns teachers with an active assignment to classID and guardians of its enrolled students.
	ClassRoster(ctx context.Context, classID string) (Roster, error)
	GetStudent(ctx context.Context, studentID string) (Student, error)
	StudentGuardians(ctx context.Context, studentID string) ([]GuardianStudentLink, error)
	SetAssignmentActive(ctx context.Context, teacherID, classID string, active bool) error
}

// Resolver answers "who can see what" questions from the relationship tables.
// Nothing is cached between calls: assignments and enrollment change under us and
// there is no invalidation signal.
type Resolver struct {
	store  Store
	logger core.Logger
}

func NewResolver(store Store, logger core.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// IsActiveAssignment is the only authority on whether teacherID currently teaches classID.
func (r *Resolver) IsActiveAssignment(ctx context.Context, teacherID, classID string) (bool, error) {
	ok, err := r.store.HasActiveAssignment(ctx, teacherID, classID)
	return ok, errors.Wrap(err, "checking teacher assignment")
}

// ResolveTeacherClasses returns the class divisions teacherID is actively assigned to.
func (r *Resolver) ResolveTeacherClasses(ctx context.Context, teacherID string) ([]string, error) {
	assignments, err := r.store.ActiveTeacherAssignments(ctx, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "querying teacher assignments")
	}
	classes := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if a.IsActive {
			classes = append(classes, a.ClassDivisionID)
		}
	}
	return lo.Uniq(classes), nil
}

// ResolveGuardianStudents returns the students linked to guardianID with their class divisions.
func (r *Resolver) ResolveGuardianStudents(ctx context.Context, guardianID string) ([]StudentRef, error) {
	links, err := r.store.GuardianLinks(ctx, guardianID)
	if err != nil {
		return nil, errors.Wrap(err, "querying guardian links")
	}
	refs := make([]StudentRef, 0, len(links))
	for _, link := range links {
		st, err := r.store.GetStudent(ctx, link.StudentID)
		if err != nil {
			if errors.Cause(err) == core.ErrNotFound {
				continue // link to a deleted student
			}
			return nil, errors.Wrap(err, "finding linked student")
		}
		refs = append(refs, StudentRef{StudentID: st.ID, ClassDivisionID: st.ClassDivisionID})
	}
	return lo.UniqBy(refs, func(ref StudentRef) string { return ref.StudentID }), nil
}

// ResolveClassRoster returns the teachers and guardians reachable through classID.
// Teachers are re-checked with IsActiveAssignment; rows revoked since the roster
// query ran are dropped.
func (r *Resolver) ResolveClassRoster(ctx context.Context, classID string) (Roster, error) {
	roster, err := r.store.ClassRoster(ctx, classID)
	if err != nil {
		return Roster{}, errors.Wrap(err, "querying class roster")
	}
	teachers, err := r.filterActiveTeachers(ctx, lo.Uniq(roster.TeacherIDs), classID)
	if err != nil {
		return Roster{}, err
	}
	return Roster{
		ClassDivisionID: classID,
		TeacherIDs:      teachers,
		GuardianIDs:     lo.Uniq(roster.GuardianIDs),
	}, nil
}

// ResolveStudentAudience returns the guardians of studentID and the teachers of its class.
func (r *Resolver) ResolveStudentAudience(ctx context.Context, studentID string) (StudentAudience, error) {
	st, err := r.store.GetStudent(ctx, studentID)
	if err != nil {
		return StudentAudience{}, errors.Wrap(err, "finding student")
	}
	links, err := r.store.StudentGuardians(ctx, studentID)
	if err != nil {
		return StudentAudience{}, errors.Wrap(err, "querying student guardians")
	}
	guardians := lo.Uniq(lo.Map(links, func(l GuardianStudentLink, _ int) string { return l.GuardianID }))

	roster, err := r.store.ClassRoster(ctx, st.ClassDivisionID)
	if err != nil {
		return StudentAudience{}, errors.Wrap(err, "querying class roster")
	}
	teachers, err := r.filterActiveTeachers(ctx, lo.Uniq(roster.TeacherIDs), st.ClassDivisionID)
	if err != nil {
		return StudentAudience{}, err
	}
	return StudentAudience{Student: st, GuardianIDs: guardians, TeacherIDs: teachers}, nil
}

func (r *Resolver) filterActiveTeachers(ctx context.Context, teacherIDs []string, classID string) ([]string, error) {
	active := make([]string, 0, len(teacherIDs))
	for _, id := range teacherIDs {
		ok, err := r.IsActiveAssignment(ctx, id, classID)
		if err != nil {
			return nil, err
		}
		if !ok {
			r.logger.Warn("stale authorization filtered", map[string]interface{}{"teacher_id": id, "class_division_id": classID})
			continue
		}
		active = append(active, id)
	}
	return active, nil
}

// AuthorizeClass returns core.ErrForbidden unless actor may see classID.
func (r *Resolver) AuthorizeClass(ctx context.Context, actor user.Actor, classID string) error {
	switch {
	case actor.Role.IsPrivileged():
		return nil
	case actor.Role == user.RoleTeacher:
		ok, err := r.IsActiveAssignment(ctx, actor.ID, classID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	case actor.Role == user.RoleParent:
		refs, err := r.ResolveGuardianStudents(ctx, actor.ID)
		if err != nil {
			return err
		}
		if lo.ContainsBy(refs, func(ref StudentRef) bool { return ref.ClassDivisionID == classID }) {
			return nil
		}
	}
	return core.ErrForbidden
}

// AuthorizeStudent returns core.ErrForbidden unless actor may see studentID.
func (r *Resolver) AuthorizeStudent(ctx context.Context, actor user.Actor, studentID string) error {
	st, err := r.store.GetStudent(ctx, studentID)
	if err != nil {
		return errors.Wrap(err, "finding student")
	}
	switch {
	case actor.Role.IsPrivileged():
		return nil
	case actor.Role == user.RoleTeacher:
		ok, err := r.IsActiveAssignment(ctx, actor.ID, st.ClassDivisionID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	case actor.Role == user.RoleParent:
		links, err := r.store.GuardianLinks(ctx, actor.ID)
		if err != nil {
			return errors.Wrap(err, "querying guardian links")
		}
		if lo.ContainsBy(links, func(l GuardianStudentLink) bool { return l.StudentID == studentID }) {
			return nil
		}
	}
	return core.ErrForbidden
}

// DeactivateAssignment revokes teacherID's access to classID with immediate effect.
func (r *Resolver) DeactivateAssignment(ctx context.Context, teacherID, classID string) error {
	return errors.Wrap(r.store.SetAssignmentActive(ctx, teacherID, classID, false), "deactivating assignment")
}
