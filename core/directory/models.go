package directory

import "time"

// TeacherClassAssignment grants a teacher access to a class division while IsActive.
type TeacherClassAssignment struct {
	TeacherID       string    `json:"teacher_id" db:"teacher_id"`
	ClassDivisionID string    `json:"class_division_id" db:"class_division_id"`
	AssignmentType  string    `json:"assignment_type" db:"assignment_type"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	IsPrimary       bool      `json:"is_primary" db:"is_primary"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// GuardianStudentLink ties a parent user to a student record.
type GuardianStudentLink struct {
	GuardianID        string `json:"guardian_id" db:"guardian_id"`
	StudentID         string `json:"student_id" db:"student_id"`
	Relationship      string `json:"relationship" db:"relationship"`
	IsPrimaryGuardian bool   `json:"is_primary_guardian" db:"is_primary_guardian"`
}

type Student struct {
	ID              string `json:"id" db:"id"`
	Name            string `json:"name" db:"name"`
	ClassDivisionID string `json:"class_division_id" db:"class_division_id"`
}

type StudentRef struct {
	StudentID       string `json:"student_id" db:"student_id"`
	ClassDivisionID string `json:"class_division_id" db:"class_division_id"`
}

// Roster is the set of users reachable through a class division.
type Roster struct {
	ClassDivisionID string   `json:"class_division_id"`
	TeacherIDs      []string `json:"teacher_ids"`
	GuardianIDs     []string `json:"guardian_ids"`
}

// StudentAudience is the set of users reachable through one student.
type StudentAudience struct {
	Student     Student  `json:"student"`
	GuardianIDs []string `json:"guardian_ids"`
	TeacherIDs  []string `json:"teacher_ids"`
}
