package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

const userColumns = "id, name, email, role, is_active, created_at"

type userRepository struct {
	db sqlx.ExtContext
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db sqlx.ExtContext) user.Repository {
	return &userRepository{db: db}
}

// CreateUser inserts usr, or updates the account already holding its email.
func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role, is_active = EXCLUDED.is_active
		RETURNING ` + userColumns

	var res user.User
	err := sqlx.GetContext(ctx, repo.db, &res, q,
		usr.ID, usr.Name, usr.Email, usr.Role, usr.IsActive, usr.CreatedAt.UTC())
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return res, nil
}

func (repo *userRepository) GetUser(ctx context.Context, id string) (user.User, error) {
	var usr user.User
	err := sqlx.GetContext(ctx, repo.db, &usr, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return usr, trapNoRowsErr(err, user.ErrNotFound)
}

func (repo *userRepository) UsersByRoles(ctx context.Context, roles ...user.Role) ([]user.User, error) {
	names := lo.Map(roles, func(r user.Role, _ int) string { return r.String() })

	users := make([]user.User, 0)
	err := sqlx.SelectContext(ctx, repo.db, &users,
		`SELECT `+userColumns+` FROM users WHERE is_active AND role = ANY($1) ORDER BY id`, pq.Array(names))
	return users, errors.Wrap(err, "querying users by roles")
}
