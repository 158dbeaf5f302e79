package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userService struct {
	pool *pgxpool.Pool
}

// NewUserService constructs a UserService backed by PostgreSQL.
func NewUserService(pool *pgxpool.Pool) UserService {
	return &userService{pool: pool}
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*User, error) {
	u := &User{}
	err := s.pool.QueryRow(ctx, `
		SELECT email, first_name, last_name, role, is_active, created_at
		FROM users
		WHERE email = $1 AND is_active = true`,
		strings.TrimSpace(email),
	).Scan(&u.Email, &u.FirstName, &u.LastName, &u.Role, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", email, ErrNotAuthorized)
		}
		return nil, fmt.Errorf("failed to look up user %q: %w", email, err)
	}
	return u, nil
}

func (s *userService) Authorize(ctx context.Context, approval ManagerApproval) (*User, error) {
	if strings.TrimSpace(approval.Email) == "" {
		return nil, ErrApprovalRequired
	}
	u, err := s.GetByEmail(ctx, approval.Email)
	if err != nil {
		return nil, err
	}
	if u.Role != RoleManager {
		return nil, fmt.Errorf("user %q has role %s: %w", u.Email, u.Role, ErrNotAuthorized)
	}
	return u, nil
}
