package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Shilpa0612/school-app-backend-sub003/core/directory"
	"github.com/Shilpa0612/school-app-backend-sub003/core/notification"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp    = errors.New("help provided")
	errAborted = errors.New("aborted")
)

// directoryStore is the write side of the relationship tables.
type directoryStore interface {
	AssignTeacher(ctx context.Context, a directory.TeacherClassAssignment) error
	AddStudent(ctx context.Context, st directory.Student) error
	LinkGuardian(ctx context.Context, link directory.GuardianStudentLink) error
	GetStudent(ctx context.Context, studentID string) (directory.Student, error)
}

type commandLine struct {
	db          *sql.DB
	usrSvc      *user.Service
	directory   directoryStore
	resolver    *directory.Resolver
	notifSvc    *notification.Service
	stdin       io.Reader
	stdout      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.stdout, "Usage:")
	fmt.Fprintln(cli.stdout, "  migrate COMMAND [ARGS] - run a goose command against the embedded migrations")
	fmt.Fprintln(cli.stdout, "  adduser -name NAME -email EMAIL -role ROLE - create or update a user")
	fmt.Fprintln(cli.stdout, "  addstudent -name NAME -class ID [-id ID] - enroll a student in a class division")
	fmt.Fprintln(cli.stdout, "  linkguardian -guardian ID -student ID [-relationship REL] [-primary] - link a parent to a student")
	fmt.Fprintln(cli.stdout, "  assignteacher -teacher ID -class ID [-primary] - give a teacher access to a class")
	fmt.Fprintln(cli.stdout, "  deactivateassignment -teacher ID -class ID [-yes] - revoke a teacher's access to a class")
	fmt.Fprintln(cli.stdout, "  prunedevices -older-than DURATION [-yes] - delete push registrations inactive for that long")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email, unique per account.")
	addUserRole := addUserCmd.String("role", "", "One of teacher, parent, principal, admin.")

	addStudentCmd := flag.NewFlagSet("addstudent", flag.ContinueOnError)
	addStudentID := addStudentCmd.String("id", "", "The student's ID (generated when empty).")
	addStudentName := addStudentCmd.String("name", "", "The student's full name.")
	addStudentClass := addStudentCmd.String("class", "", "The class division ID.")

	linkCmd := flag.NewFlagSet("linkguardian", flag.ContinueOnError)
	linkGuardian := linkCmd.String("guardian", "", "The parent's user ID.")
	linkStudent := linkCmd.String("student", "", "The student's ID.")
	linkRelationship := linkCmd.String("relationship", "guardian", "e.g. mother, father, guardian.")
	linkPrimary := linkCmd.Bool("primary", false, "Mark as the primary guardian.")

	assignCmd := flag.NewFlagSet("assignteacher", flag.ContinueOnError)
	assignTeacher := assignCmd.String("teacher", "", "The teacher's user ID.")
	assignClass := assignCmd.String("class", "", "The class division ID.")
	assignPrimary := assignCmd.Bool("primary", false, "Mark as the class teacher.")

	deactivateCmd := flag.NewFlagSet("deactivateassignment", flag.ContinueOnError)
	deactivateTeacher := deactivateCmd.String("teacher", "", "The teacher's user ID.")
	deactivateClass := deactivateCmd.String("class", "", "The class division ID.")
	deactivateYes := deactivateCmd.Bool("yes", false, "Do not ask for confirmation.")

	pruneCmd := flag.NewFlagSet("prunedevices", flag.ContinueOnError)
	pruneOlderThan := pruneCmd.Duration("older-than", 0, "Minimum time since a registration was deactivated, e.g. 720h.")
	pruneYes := pruneCmd.Bool("yes", false, "Do not ask for confirmation.")

	for _, fs := range []*flag.FlagSet{addUserCmd, addStudentCmd, linkCmd, assignCmd, deactivateCmd, pruneCmd} {
		fs.SetOutput(cli.stdout)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserName == "" || *addUserEmail == "" || *addUserRole == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, *addUserRole)
	case "addstudent":
		if err := addStudentCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addStudentName == "" || *addStudentClass == "" {
			addStudentCmd.Usage()
			return errHelp
		}
		return cli.addStudent(*addStudentID, *addStudentName, *addStudentClass)
	case "linkguardian":
		if err := linkCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *linkGuardian == "" || *linkStudent == "" {
			linkCmd.Usage()
			return errHelp
		}
		return cli.linkGuardian(*linkGuardian, *linkStudent, *linkRelationship, *linkPrimary)
	case "assignteacher":
		if err := assignCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *assignTeacher == "" || *assignClass == "" {
			assignCmd.Usage()
			return errHelp
		}
		return cli.assignTeacher(*assignTeacher, *assignClass, *assignPrimary)
	case "deactivateassignment":
		if err := deactivateCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *deactivateTeacher == "" || *deactivateClass == "" {
			deactivateCmd.Usage()
			return errHelp
		}
		prompt := fmt.Sprintf("Revoke %s's access to %s?", *deactivateTeacher, *deactivateClass)
		if err := cli.confirm(prompt, *deactivateYes); err != nil {
			return err
		}
		return cli.deactivateAssignment(*deactivateTeacher, *deactivateClass)
	case "prunedevices":
		if err := pruneCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *pruneOlderThan <= 0 {
			pruneCmd.Usage()
			return errHelp
		}
		prompt := fmt.Sprintf("Delete device registrations inactive for more than %v?", *pruneOlderThan)
		if err := cli.confirm(prompt, *pruneYes); err != nil {
			return err
		}
		return cli.pruneDevices(*pruneOlderThan)
	default:
		cli.printUsage()
		return errHelp
	}
}

// confirm asks on an interactive terminal; a non-interactive run must pass -yes.
func (cli *commandLine) confirm(prompt string, yes bool) error {
	if yes {
		return nil
	}
	if !isTerminalFunc(int(os.Stdin.Fd())) {
		return errors.New("not a terminal: pass -yes to confirm")
	}
	fmt.Fprint(cli.stdout, prompt+" [y/N] ")
	answer, err := bufio.NewReader(cli.stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	}
	return errAborted
}
