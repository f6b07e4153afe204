package application

import (
	"context"

	"github.com/dmehra2102/storefront/internal/user/domain"
)

type UserRepository interface {
	// Create fails with domain.ErrEmailTaken when the email is in use.
	Create(ctx context.Context, u domain.User) error
	Get(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	// Update persists name, email, role and updatedAt. The cart is untouched.
	Update(ctx context.Context, u domain.User) error
	Delete(ctx context.Context, id string) error
}

type TokenIssuer interface {
	Issue(u domain.User) (string, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Match(hash, plain string) (bool, error)
}
