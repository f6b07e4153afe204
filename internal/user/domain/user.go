package domain

import (
	"net/mail"
	"strings"
	"time"

	cart "github.com/dmehra2102/storefront/internal/cart/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

var (
	ErrUserNotFound = apperr.New(apperr.KindNotFound, "user not found")
	ErrEmailTaken   = apperr.New(apperr.KindConflict, "user already exists")
)

const (
	MinPasswordLen = 6
	// MaxPasswordLen is the bcrypt input limit in bytes.
	MaxPasswordLen = 72
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Cart         cart.Cart `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Invalid("name is required")
	}
	return nil
}

func ValidateEmail(email string) error {
	if email == "" {
		return apperr.Invalid("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperr.Invalid("email is invalid")
	}
	return nil
}

func ValidatePassword(pw string) error {
	if len(pw) < MinPasswordLen {
		return apperr.Invalid("password must be at least %d characters", MinPasswordLen)
	}
	if len(pw) > MaxPasswordLen {
		return apperr.Invalid("password must be at most %d bytes", MaxPasswordLen)
	}
	return nil
}

// Registration is the input of the sign-up flow.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r Registration) Validate() error {
	if err := ValidateName(r.Name); err != nil {
		return err
	}
	if err := ValidateEmail(NormalizeEmail(r.Email)); err != nil {
		return err
	}
	return ValidatePassword(r.Password)
}

// Patch is an administrator edit of a user; nil fields are left unchanged.
type Patch struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *Role   `json:"role"`
}

func (u *User) Apply(p Patch, now time.Time) error {
	if p.Name != nil {
		if err := ValidateName(*p.Name); err != nil {
			return err
		}
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		email := NormalizeEmail(*p.Email)
		if err := ValidateEmail(email); err != nil {
			return err
		}
		u.Email = email
	}
	if p.Role != nil {
		if !p.Role.Valid() {
			return apperr.Invalid("role must be %q or %q", RoleCustomer, RoleAdmin)
		}
		u.Role = *p.Role
	}
	u.UpdatedAt = now
	return nil
}
