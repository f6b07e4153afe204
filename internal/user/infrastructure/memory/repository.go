package memory

import (
	"context"
	"sort"
	"sync"

	cart "github.com/dmehra2102/storefront/internal/cart/domain"
	"github.com/dmehra2102/storefront/internal/user/domain"
)

// Repository keeps users, and their carts, in process memory.
type Repository struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	byEmail map[string]string
}

func NewRepository() *Repository {
	return &Repository{
		users:   make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *Repository) Create(_ context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return domain.ErrEmailTaken
	}
	u.Cart = u.Cart.Clone()
	r.users[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *Repository) Get(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(id)
}

func (r *Repository) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return r.get(id)
}

func (r *Repository) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		u.Cart = u.Cart.Clone()
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (r *Repository) Update(_ context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[u.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if owner, taken := r.byEmail[u.Email]; taken && owner != u.ID {
		return domain.ErrEmailTaken
	}
	delete(r.byEmail, cur.Email)
	cur.Name, cur.Email, cur.Role, cur.UpdatedAt = u.Name, u.Email, u.Role, u.UpdatedAt
	r.users[u.ID] = cur
	r.byEmail[cur.Email] = cur.ID
	return nil
}

func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	delete(r.byEmail, u.Email)
	return nil
}

func (r *Repository) GetCart(_ context.Context, userID string) (cart.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u.Cart.Clone(), nil
}

func (r *Repository) SaveCart(_ context.Context, userID string, c cart.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Cart = c.Clone()
	r.users[userID] = u
	return nil
}

func (r *Repository) get(id string) (domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	u.Cart = u.Cart.Clone()
	return u, nil
}
