package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/directory"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

func (cli *commandLine) assignTeacher(teacherID, classID string, primary bool) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByID(ctx, teacherID)
	if err != nil {
		return err
	}
	if usr.Role != user.RoleTeacher {
		return fmt.Errorf("%s is a %s, not a teacher", usr.Email, usr.Role)
	}

	err = cli.directory.AssignTeacher(ctx, directory.TeacherClassAssignment{
		TeacherID:       teacherID,
		ClassDivisionID: classID,
		AssignmentType:  "class_teacher",
		IsActive:        true,
		IsPrimary:       primary,
		UpdatedAt:       core.NowFunc(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.stdout, "%s assigned to %s\n", usr.Email, classID)
	return nil
}

func (cli *commandLine) addStudent(id, name, classID string) error {
	if id == "" {
		id = uuid.New().String()
	}
	st := directory.Student{ID: id, Name: core.CleanString(name), ClassDivisionID: classID}
	if err := cli.directory.AddStudent(context.Background(), st); err != nil {
		return err
	}
	fmt.Fprintf(cli.stdout, "student %s enrolled in %s with id %s\n", st.Name, classID, st.ID)
	return nil
}

func (cli *commandLine) linkGuardian(guardianID, studentID, relationship string, primary bool) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByID(ctx, guardianID)
	if err != nil {
		return err
	}
	if usr.Role != user.RoleParent {
		return fmt.Errorf("%s is a %s, not a parent", usr.Email, usr.Role)
	}
	st, err := cli.directory.GetStudent(ctx, studentID)
	if err != nil {
		return err
	}

	err = cli.directory.LinkGuardian(ctx, directory.GuardianStudentLink{
		GuardianID:        guardianID,
		StudentID:         st.ID,
		Relationship:      core.CleanString(relationship, true /* lower */),
		IsPrimaryGuardian: primary,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.stdout, "%s linked to %s as %s\n", usr.Email, st.Name, relationship)
	return nil
}

// deactivateAssignment takes effect on the next request; nothing caches assignments.
func (cli *commandLine) deactivateAssignment(teacherID, classID string) error {
	if err := cli.resolver.DeactivateAssignment(context.Background(), teacherID, classID); err != nil {
		return err
	}
	fmt.Fprintf(cli.stdout, "assignment of %s to %s deactivated\n", teacherID, classID)
	return nil
}

func (cli *commandLine) pruneDevices(olderThan time.Duration) error {
	n, err := cli.notifSvc.PruneInactiveDevices(context.Background(), olderThan)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.stdout, "%d device registration(s) deleted\n", n)
	return nil
}
