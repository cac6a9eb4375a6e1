package auth

import (
	"context"

	"github.com/rezkam/taskhub/internal/domain"
)

// Repository defines the persistence operations the auth service needs.
// Implementations must return domain.ErrNotFound for missing rows and
// domain.ErrConflict for a duplicate email.
type Repository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
}

// PasswordHasher abstracts password hashing so the identity scheme stays
// swappable. Compare returns an error when the password does not match.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}
