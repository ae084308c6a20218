package notification

import (
	"context"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/directory"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

var ErrUnknownTarget = errors.New("unknown notification target")

// universalRoles are appended to every school-wide, class and student audience.
var universalRoles = lo.Filter(user.AllRoles, func(r user.Role, _ int) bool { return r.IsAudienceUniversal() })

// Directory is the part of directory.Resolver the audience needs.
type Directory interface {
	ResolveClassRoster(ctx context.Context, classID string) (directory.Roster, error)
	ResolveStudentAudience(ctx context.Context, studentID string) (directory.StudentAudience, error)
}

var _ Directory = (*directory.Resolver)(nil)

// Audience turns a Target into a deduplicated RecipientSet from current relationship rows.
type Audience struct {
	dir    Directory
	users  user.Repository
	logger core.Logger
}

func NewAudience(dir Directory, users user.Repository, logger core.Logger) *Audience {
	return &Audience{dir: dir, users: users, logger: logger}
}

// Resolve computes the recipients of target. Only active accounts are reached.
func (a *Audience) Resolve(ctx context.Context, target Target) (RecipientSet, error) {
	set := make(RecipientSet)
	var err error

	switch target.Kind {
	case TargetSchoolWide:
		err = a.addRoles(ctx, set, user.AllRoles, ReasonRole)
	case TargetRoles:
		roles := make([]user.Role, 0, len(target.Roles))
		for _, r := range target.Roles {
			if r.Valid() {
				roles = append(roles, r)
			}
		}
		if len(roles) > 0 {
			err = a.addRoles(ctx, set, roles, ReasonRole)
		}
	case TargetClasses:
		err = a.addClasses(ctx, set, target.ClassIDs)
	case TargetStudent:
		err = a.addStudent(ctx, set, target.StudentID)
	case TargetUsers:
		err = a.addUsers(ctx, set, target.UserIDs)
	default:
		return nil, errors.Wrapf(ErrUnknownTarget, "kind %q", target.Kind)
	}
	if err != nil {
		return nil, err
	}

	switch target.Kind {
	case TargetSchoolWide, TargetClasses, TargetStudent:
		if err := a.addRoles(ctx, set, universalRoles, ReasonOversight); err != nil {
			return nil, err
		}
	}

	set.Remove(target.Exclude...)
	return set, nil
}

func (a *Audience) addRoles(ctx context.Context, set RecipientSet, roles []user.Role, reason Reason) error {
	usrs, err := a.users.UsersByRoles(ctx, roles...)
	if err != nil {
		return errors.Wrap(err, "querying users by role")
	}
	for _, u := range usrs {
		if !u.IsActive {
			continue
		}
		set.Add(Recipient{UserID: u.ID, Role: u.Role, Reason: reason})
	}
	return nil
}

func (a *Audience) addClasses(ctx context.Context, set RecipientSet, classIDs []string) error {
	for _, classID := range classIDs {
		roster, err := a.dir.ResolveClassRoster(ctx, classID)
		if err != nil {
			return err
		}
		ids := append(append([]string{}, roster.TeacherIDs...), roster.GuardianIDs...)
		if err := a.addActive(ctx, set, ids, Recipient{Reason: ReasonClass}); err != nil {
			return err
		}
	}
	return nil
}

func (a *Audience) addStudent(ctx context.Context, set RecipientSet, studentID string) error {
	aud, err := a.dir.ResolveStudentAudience(ctx, studentID)
	if err != nil {
		return err
	}
	if err := a.addActive(ctx, set, aud.GuardianIDs, Recipient{StudentID: studentID, Reason: ReasonStudent}); err != nil {
		return err
	}
	return a.addActive(ctx, set, aud.TeacherIDs, Recipient{StudentID: studentID, Reason: ReasonClass})
}

// addUsers reaches exactly the listed users.
func (a *Audience) addUsers(ctx context.Context, set RecipientSet, ids []string) error {
	return a.addActive(ctx, set, ids, Recipient{Reason: ReasonDirect})
}

// addActive adds each of ids to set as a copy of tmpl; unknown or inactive accounts are skipped.
func (a *Audience) addActive(ctx context.Context, set RecipientSet, ids []string, tmpl Recipient) error {
	for _, id := range ids {
		u, err := a.users.GetUser(ctx, id)
		if err != nil {
			if core.IsNotFound(err) {
				a.logger.Warn("notification recipient not found", map[string]interface{}{"user_id": id})
				continue
			}
			return errors.Wrap(err, "finding recipient")
		}
		if !u.IsActive {
			continue
		}
		r := tmpl
		r.UserID, r.Role = u.ID, u.Role
		set.Add(r)
	}
	return nil
}
