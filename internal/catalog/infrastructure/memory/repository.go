package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
)

type Repository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

func NewRepository() *Repository {
	return &Repository{products: make(map[string]domain.Product)}
}

func (r *Repository) Create(_ context.Context, p domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
	return nil
}

func (r *Repository) Get(_ context.Context, id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (r *Repository) GetMany(_ context.Context, ids []string) (map[string]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r *Repository) List(_ context.Context, f domain.Filter) ([]domain.Product, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kw := strings.ToLower(f.Keyword)
	var matched []domain.Product
	for _, p := range r.products {
		if kw != "" && !strings.Contains(strings.ToLower(p.Name), kw) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	start := min(f.Offset(), total)
	end := min(start+f.Limit, total)
	return matched[start:end], total, nil
}

func (r *Repository) Update(_ context.Context, p domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return domain.ErrProductNotFound
	}
	r.products[p.ID] = p
	return nil
}

func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

// ReserveAll decrements stock for every product in qty, or for none of them.
func (r *Repository) ReserveAll(_ context.Context, qty map[string]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, q := range qty {
		p, ok := r.products[id]
		if !ok {
			return domain.ErrProductNotFound
		}
		if err := p.CheckStock(q); err != nil {
			return err
		}
	}
	for id, q := range qty {
		p := r.products[id]
		p.Stock -= q
		r.products[id] = p
	}
	return nil
}
