package core

import (
	"context"
	"time"
)

const (
	RoleCashier = "Cashier"
	RoleManager = "Manager"
)

// User is a cashier or manager known to the terminal. Credentials live in the
// auth service; the core only needs identity and role.
type User struct {
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// UserService provides identity lookups for cashiers and approving managers.
type UserService interface {
	// GetByEmail finds an active user by email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Authorize resolves a manager co-signature. An empty approval fails with
	// ErrApprovalRequired; an unknown, inactive or non-manager email with ErrNotAuthorized.
	Authorize(ctx context.Context, approval ManagerApproval) (*User, error)
}
