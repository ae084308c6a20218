package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/directory"
)

const assignmentColumns = "teacher_id, class_division_id, assignment_type, is_active, is_primary, updated_at"

// DirectoryRepository reads the relationship tables on every call; nothing is cached.
type DirectoryRepository struct {
	db sqlx.ExtContext
}

var _ directory.Store = (*DirectoryRepository)(nil)

func NewDirectoryRepository(db sqlx.ExtContext) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// AssignTeacher creates or re-activates a teacher assignment.
func (repo *DirectoryRepository) AssignTeacher(ctx context.Context, a directory.TeacherClassAssignment) error {
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = core.NowFunc()
	}
	if a.AssignmentType == "" {
		a.AssignmentType = "class_teacher"
	}
	_, err := sqlx.NamedExecContext(ctx, repo.db, `
		INSERT INTO teacher_class_assignments (`+assignmentColumns+`)
		VALUES (:teacher_id, :class_division_id, :assignment_type, :is_active, :is_primary, :updated_at)
		ON CONFLICT (teacher_id, class_division_id) DO UPDATE SET
			assignment_type = EXCLUDED.assignment_type,
			is_active = EXCLUDED.is_active,
			is_primary = EXCLUDED.is_primary,
			updated_at = EXCLUDED.updated_at`, a)
	return errors.Wrap(err, "upserting teacher assignment")
}

func (repo *DirectoryRepository) AddStudent(ctx context.Context, st directory.Student) error {
	_, err := sqlx.NamedExecContext(ctx, repo.db, `
		INSERT INTO students (id, name, class_division_id) VALUES (:id, :name, :class_division_id)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, class_division_id = EXCLUDED.class_division_id`, st)
	return errors.Wrap(err, "upserting student")
}

func (repo *DirectoryRepository) LinkGuardian(ctx context.Context, link directory.GuardianStudentLink) error {
	_, err := sqlx.NamedExecContext(ctx, repo.db, `
		INSERT INTO guardian_student_links (guardian_id, student_id, relationship, is_primary_guardian)
		VALUES (:guardian_id, :student_id, :relationship, :is_primary_guardian)
		ON CONFLICT (guardian_id, student_id) DO UPDATE SET
			relationship = EXCLUDED.relationship,
			is_primary_guardian = EXCLUDED.is_primary_guardian`, link)
	return errors.Wrap(err, "upserting guardian link")
}

func (repo *DirectoryRepository) ActiveTeacherAssignments(ctx context.Context, teacherID string) ([]directory.TeacherClassAssignment, error) {
	res := make([]directory.TeacherClassAssignment, 0)
	err := sqlx.SelectContext(ctx, repo.db, &res, `
		SELECT `+assignmentColumns+` FROM teacher_class_assignments
		WHERE teacher_id = $1 AND is_active ORDER BY class_division_id`, teacherID)
	return res, errors.Wrap(trapNoRowsErr(err, nil), "selecting relationships")
}

func (repo *DirectoryRepository) HasActiveAssignment(ctx context.Context, teacherID, classID string) (bool, error) {
	var ok bool
	err := sqlx.GetContext(ctx, repo.db, &ok, `
		SELECT EXISTS (
			SELECT 1 FROM teacher_class_assignments
			WHERE teacher_id = $1 AND class_division_id = $2 AND is_active
		)`, teacherID, classID)
	if isNoMatch(err) {
		return false, nil
	}
	return ok, errors.Wrap(err, "checking teacher assignment")
}

func (repo *DirectoryRepository) GuardianLinks(ctx context.Context, guardianID string) ([]directory.GuardianStudentLink, error) {
	res := make([]directory.GuardianStudentLink, 0)
	err := sqlx.SelectContext(ctx, repo.db, &res, `
		SELECT guardian_id, student_id, relationship, is_primary_guardian
		FROM guardian_student_links WHERE guardian_id = $1`, guardianID)
	return res, errors.Wrap(trapNoRowsErr(err, nil), "selecting relationships")
}

func (repo *DirectoryRepository) ClassRoster(ctx context.Context, classID string) (directory.Roster, error) {
	roster := directory.Roster{ClassDivisionID: classID, TeacherIDs: []string{}, GuardianIDs: []string{}}

	err := sqlx.SelectContext(ctx, repo.db, &roster.TeacherIDs, `
		SELECT teacher_id FROM teacher_class_assignments
		WHERE class_division_id = $1 AND is_active ORDER BY teacher_id`, classID)
	if err != nil {
		return directory.Roster{}, errors.Wrap(err, "selecting class teachers")
	}

	err = sqlx.SelectContext(ctx, repo.db, &roster.GuardianIDs, `
		SELECT DISTINCT l.guardian_id FROM guardian_student_links l
		JOIN students s ON s.id = l.student_id
		WHERE s.class_division_id = $1 ORDER BY l.guardian_id`, classID)
	if err != nil {
		return directory.Roster{}, errors.Wrap(err, "selecting class guardians")
	}
	return roster, nil
}

func (repo *DirectoryRepository) GetStudent(ctx context.Context, studentID string) (directory.Student, error) {
	var st directory.Student
	err := sqlx.GetContext(ctx, repo.db, &st, `SELECT id, name, class_division_id FROM students WHERE id = $1`, studentID)
	return st, trapNoRowsErr(err, directory.ErrStudentNotFound)
}

func (repo *DirectoryRepository) StudentGuardians(ctx context.Context, studentID string) ([]directory.GuardianStudentLink, error) {
	res := make([]directory.GuardianStudentLink, 0)
	err := sqlx.SelectContext(ctx, repo.db, &res, `
		SELECT guardian_id, student_id, relationship, is_primary_guardian
		FROM guardian_student_links WHERE student_id = $1`, studentID)
	return res, errors.Wrap(trapNoRowsErr(err, nil), "selecting relationships")
}

func (repo *DirectoryRepository) SetAssignmentActive(ctx context.Context, teacherID, classID string, active bool) error {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE teacher_class_assignments SET is_active = $3, updated_at = $4
		WHERE teacher_id = $1 AND class_division_id = $2`, teacherID, classID, active, core.NowFunc())
	if isNoMatch(err) {
		return core.ErrNotFound
	} else if err != nil {
		return errors.Wrap(err, "updating teacher assignment")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "updating teacher assignment")
	} else if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
