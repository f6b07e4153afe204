package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmehra2102/storefront/pkg/apperr"
)

type Passwords struct {
	cost int
}

func NewPasswords(cost int) *Passwords {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Passwords{cost: cost}
}

func (p *Passwords) Hash(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), p.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperr.Invalid("password must be at most 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Match reports whether plain matches hash. Only unexpected failures return an error.
func (p *Passwords) Match(hash, plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	// nothing over the bcrypt limit was ever stored, so it cannot match
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) || errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
