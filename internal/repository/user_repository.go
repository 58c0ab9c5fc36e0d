package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rauth/examprep-backend/internal/model"
)

// Repository errors shared by the pgx-backed stores.
var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

const uniqueViolation = "23505"

// UserRepository handles user account data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, name, password_hash, role, premium_since, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.PremiumSince, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail retrieves a user by their unique email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

// Create inserts a new user and fills in its generated fields.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		u.Email, u.Name, u.PasswordHash, u.Role,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// ─── Profile & subscriptions ────────────────────────────────────────────────

// UpdateProfile changes a user's name and/or role in one transaction. Moving
// into or out of the premium role stamps premium_since and records a
// subscription event.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int, name *string, role *model.Role) (*model.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin profile update: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanUser(tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}

	var newRole *string
	action := ""
	if role != nil && *role != current.Role {
		v := string(*role)
		newRole = &v
		switch {
		case *role == model.RolePremium:
			action = model.SubscriptionStarted
		case current.Role == model.RolePremium:
			action = model.SubscriptionCancelled
		}
	}

	updated, err := scanUser(tx.QueryRow(ctx,
		`UPDATE users SET
			name = COALESCE($2::text, name),
			role = COALESCE($3::text, role),
			premium_since = CASE
				WHEN $4::text = 'subscribed' THEN NOW()
				WHEN $4::text = 'cancelled' THEN NULL
				ELSE premium_since END,
			updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, name, newRole, action,
	))
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if action != "" {
		if _, err := tx.Exec(ctx,
			`INSERT INTO subscription_events (user_id, action) VALUES ($1, $2)`,
			id, action,
		); err != nil {
			return nil, fmt.Errorf("record subscription event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit profile update: %w", err)
	}
	return updated, nil
}

// SubscriptionOverview counts learners per plan and lists the latest plan changes.
func (r *UserRepository) SubscriptionOverview(ctx context.Context, limit int) (*model.SubscriptionOverview, error) {
	ov := &model.SubscriptionOverview{Recent: []model.SubscriptionEvent{}}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE role = 'student'),
		        COUNT(*) FILTER (WHERE role = 'premium')
		 FROM users`,
	).Scan(&ov.Students, &ov.PremiumUsers)
	if err != nil {
		return nil, fmt.Errorf("count subscribers: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT e.user_id, u.email, u.name, e.action, e.created_at
		 FROM subscription_events e
		 JOIN users u ON u.id = e.user_id
		 ORDER BY e.created_at DESC, e.id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list subscription events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev model.SubscriptionEvent
		if err := rows.Scan(&ev.UserID, &ev.Email, &ev.Name, &ev.Action, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ov.Recent = append(ov.Recent, ev)
	}
	return ov, rows.Err()
}
