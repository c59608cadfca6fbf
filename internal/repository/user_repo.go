package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/KattaManasa0402/Marine-life/internal/model"
)

// ErrDuplicate is returned when a unique user field is already taken.
var ErrDuplicate = errors.New("duplicate")

type UserRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, email, username, hashed_password, is_active, is_superuser, score,
	COALESCE((SELECT array_agg(badge ORDER BY earned_at, badge) FROM user_badges b WHERE b.user_id = users.id), '{}'),
	created_at, updated_at`

// Create inserts a new active user.
func (r *UserRepo) Create(ctx context.Context, email, username, hashedPassword string) (*model.User, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (email, username, hashed_password)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		email, username, hashedPassword)
	u, err := scanUser(row)
	if err != nil {
		return nil, uniqueViolation(err)
	}
	return u, nil
}

// FindByID returns a single user.
func (r *UserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, notFound(err)
}

// FindByEmail looks a user up by login email, case-insensitively.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	return u, notFound(err)
}

// Update applies a partial profile update. hashedPassword replaces the
// stored hash when non-nil.
func (r *UserRepo) Update(ctx context.Context, id int64, username, email, hashedPassword *string) (*model.User, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE users SET
			username = COALESCE($2, username),
			email = COALESCE($3, email),
			hashed_password = COALESCE($4, hashed_password),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, username, email, hashedPassword)
	u, err := scanUser(row)
	if err != nil {
		return nil, uniqueViolation(notFound(err))
	}
	return u, nil
}

// AddScore increments a user's score and returns the new total.
func (r *UserRepo) AddScore(ctx context.Context, id int64, points int) (int, error) {
	var score int
	err := r.db.QueryRow(ctx, `
		UPDATE users SET score = score + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING score`, id, points).Scan(&score)
	return score, notFound(err)
}

// GrantBadges awards badges the user does not yet hold and returns the ones
// that were newly granted.
func (r *UserRepo) GrantBadges(ctx context.Context, id int64, badges []string) ([]string, error) {
	if len(badges) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `
		INSERT INTO user_badges (user_id, badge)
		SELECT $1, unnest($2::text[])
		ON CONFLICT (user_id, badge) DO NOTHING
		RETURNING badge`, id, badges)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.HashedPassword, &u.IsActive, &u.IsSuperuser, &u.Score,
		&u.Badges, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
