package inmemdb

import (
	"context"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/directory"
)

// DirectoryRepository also exposes the writes used to seed relationships.
type DirectoryRepository struct {
	db *directoryTables
}

var _ directory.Store = (*DirectoryRepository)(nil)

func NewDirectoryRepository(db *DB) *DirectoryRepository {
	return &DirectoryRepository{db: db.directory}
}

func (repo *DirectoryRepository) AssignTeacher(a directory.TeacherClassAssignment) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, cur := range repo.db.assignments {
		if cur.TeacherID == a.TeacherID && cur.ClassDivisionID == a.ClassDivisionID {
			*cur = a
			return
		}
	}
	repo.db.assignments = append(repo.db.assignments, &a)
}

func (repo *DirectoryRepository) AddStudent(st directory.Student) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.students[st.ID] = st
}

func (repo *DirectoryRepository) LinkGuardian(link directory.GuardianStudentLink) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.links = append(repo.db.links, link)
}

func (repo *DirectoryRepository) ActiveTeacherAssignments(_ context.Context, teacherID string) ([]directory.TeacherClassAssignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]directory.TeacherClassAssignment, 0)
	for _, a := range repo.db.assignments {
		if a.TeacherID == teacherID && a.IsActive {
			res = append(res, *a)
		}
	}
	return res, nil
}

func (repo *DirectoryRepository) HasActiveAssignment(_ context.Context, teacherID, classID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, a := range repo.db.assignments {
		if a.TeacherID == teacherID && a.ClassDivisionID == classID && a.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (repo *DirectoryRepository) GuardianLinks(_ context.Context, guardianID string) ([]directory.GuardianStudentLink, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]directory.GuardianStudentLink, 0)
	for _, l := range repo.db.links {
		if l.GuardianID == guardianID {
			res = append(res, l)
		}
	}
	return res, nil
}

func (repo *DirectoryRepository) ClassRoster(_ context.Context, classID string) (directory.Roster, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	roster := directory.Roster{ClassDivisionID: classID, TeacherIDs: []string{}, GuardianIDs: []string{}}
	for _, a := range repo.db.assignments {
		if a.ClassDivisionID == classID && a.IsActive {
			roster.TeacherIDs = append(roster.TeacherIDs, a.TeacherID)
		}
	}
	for _, l := range repo.db.links {
		if st, ok := repo.db.students[l.StudentID]; ok && st.ClassDivisionID == classID {
			roster.GuardianIDs = append(roster.GuardianIDs, l.GuardianID)
		}
	}
	return roster, nil
}

func (repo *DirectoryRepository) GetStudent(_ context.Context, studentID string) (directory.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if st, ok := repo.db.students[studentID]; ok {
		return st, nil
	}
	return directory.Student{}, directory.ErrStudentNotFound
}

func (repo *DirectoryRepository) StudentGuardians(_ context.Context, studentID string) ([]directory.GuardianStudentLink, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]directory.GuardianStudentLink, 0)
	for _, l := range repo.db.links {
		if l.StudentID == studentID {
			res = append(res, l)
		}
	}
	return res, nil
}

func (repo *DirectoryRepository) SetAssignmentActive(_ context.Context, teacherID, classID string, active bool) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, a := range repo.db.assignments {
		if a.TeacherID == teacherID && a.ClassDivisionID == classID {
			a.IsActive = active
			a.UpdatedAt = core.NowFunc()
			return nil
		}
	}
	return core.ErrNotFound
}
