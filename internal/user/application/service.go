package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/storefront/internal/user/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
)

var (
	ErrBadCredentials = apperr.New(apperr.KindUnauthorized, "invalid email or password")
	ErrDeleteSelf     = apperr.New(apperr.KindInvalid, "cannot delete your own account")
)

// Session is returned by register and login.
type Session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type Service struct {
	log    *slog.Logger
	repo   UserRepository
	tokens TokenIssuer
	hasher PasswordHasher
	now    func() time.Time
}

func NewService(log *slog.Logger, repo UserRepository, tokens TokenIssuer, hasher PasswordHasher) *Service {
	return &Service{
		log:    log,
		repo:   repo,
		tokens: tokens,
		hasher: hasher,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Register(ctx context.Context, reg domain.Registration) (Session, error) {
	if err := reg.Validate(); err != nil {
		return Session{}, err
	}
	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return Session{}, err
	}
	now := s.now()
	u := domain.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(reg.Name),
		Email:        domain.NormalizeEmail(reg.Email),
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return Session{}, err
	}
	s.log.InfoContext(ctx, "user registered", "user_id", u.ID)
	return s.session(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.repo.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return Session{}, ErrBadCredentials
		}
		return Session{}, err
	}
	ok, err := s.hasher.Match(u.PasswordHash, password)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrBadCredentials
	}
	return s.session(u)
}

func (s *Service) session(u domain.User) (Session, error) {
	tok, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: tok, User: u}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.User, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

func (s *Service) Update(ctx context.Context, id string, p domain.Patch) (domain.User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if err := u.Apply(p, s.now()); err != nil {
		return domain.User{}, err
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Delete removes a user account. Administrators cannot delete themselves.
func (s *Service) Delete(ctx context.Context, requester domain.User, id string) error {
	if requester.ID == id {
		return ErrDeleteSelf
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "user deleted", "user_id", id, "by", requester.ID)
	return nil
}

// EnsureAdmin creates the bootstrap administrator, or promotes an existing
// account with that email.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = domain.NormalizeEmail(email)
	u, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.IsAdmin() {
			return nil
		}
		role := domain.RoleAdmin
		if err := u.Apply(domain.Patch{Role: &role}, s.now()); err != nil {
			return err
		}
		s.log.InfoContext(ctx, "promoting bootstrap admin", "user_id", u.ID)
		return s.repo.Update(ctx, u)
	case errors.Is(err, domain.ErrUserNotFound):
		reg := domain.Registration{Name: "Administrator", Email: email, Password: password}
		if err := reg.Validate(); err != nil {
			return err
		}
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return err
		}
		now := s.now()
		u = domain.User{
			ID:           uuid.NewString(),
			Name:         reg.Name,
			Email:        email,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		s.log.InfoContext(ctx, "creating bootstrap admin", "user_id", u.ID)
		return s.repo.Create(ctx, u)
	default:
		return err
	}
}
