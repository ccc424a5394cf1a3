package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"

	"github.com/jwsummers/techmetrix/internal/db"
)

type User struct {
	ID       string  `db:"id"`
	Name     string  `db:"name"`
	Username string  `db:"username"`
	Password string  `db:"password"`
	Role     string  `db:"role"`
	IsDemo   bool    `db:"is_demo"`
	TeamID   *string `db:"team_id"`
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Get(ctx context.Context, userID string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Search(ctx context.Context, query string) ([]*User, error)
	SetTeam(ctx context.Context, userID string, teamID *string) error
	DetachTeamMembers(ctx context.Context, teamID string) error
}

type pgxUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgxUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgxUserRepository{pool: pool}
}

func scanUser(row pgx.CollectableRow) (*User, error) {
	user := &User{}
	if err := row.Scan(&user.ID, &user.Name, &user.Username, &user.Password, &user.Role, &user.IsDemo, &user.TeamID); err != nil {
		return nil, err
	}
	return user, nil
}

func (p *pgxUserRepository) Create(ctx context.Context, user *User) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("users", "id", "name", "username", "password", "role", "is_demo", "team_id"),
		im.Values(
			psql.Arg(user.ID), psql.Arg(user.Name), psql.Arg(user.Username),
			psql.Arg(user.Password), psql.Arg(user.Role), psql.Arg(user.IsDemo), psql.Arg(user.TeamID),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}

	return err
}

func (p *pgxUserRepository) Get(ctx context.Context, userID string) (*User, error) {
	return p.getBy(ctx, "id", userID)
}

func (p *pgxUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return p.getBy(ctx, "username", username)
}

func (p *pgxUserRepository) getBy(ctx context.Context, column, value string) (*User, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "name", "username", "password", "role", "is_demo", "team_id"),
		sm.From("users"),
		sm.Where(psql.Quote(column).EQ(psql.Arg(value))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	user := &User{}
	if err = e.QueryRow(ctx, sql, args...).Scan(
		&user.ID,
		&user.Name,
		&user.Username,
		&user.Password,
		&user.Role,
		&user.IsDemo,
		&user.TeamID,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// escapeLike neutralizes LIKE metacharacters so the query only ever
// matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Search matches usernames case-insensitively; an empty query matches all.
func (p *pgxUserRepository) Search(ctx context.Context, query string) ([]*User, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "name", "username", "password", "role", "is_demo", "team_id"),
		sm.From("users"),
		sm.Where(psql.Raw("username ILIKE ?", "%"+escapeLike(query)+"%")),
		sm.OrderBy("username"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, scanUser)
}

func (p *pgxUserRepository) SetTeam(ctx context.Context, userID string, teamID *string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("users"),
		um.SetCol("team_id").ToArg(teamID),
		um.Where(psql.Quote("id").EQ(psql.Arg(userID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	commandTag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DetachTeamMembers clears every member's back-reference to the team. Zero
// affected rows is fine: a team may simply have no members.
func (p *pgxUserRepository) DetachTeamMembers(ctx context.Context, teamID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("users"),
		um.SetCol("team_id").ToArg(nil),
		um.Where(psql.Quote("team_id").EQ(psql.Arg(teamID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return err
}
