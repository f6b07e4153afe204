package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
)

const productColumns = `id, name, description, price::text, category, stock, image_url, created_at, updated_at`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Create(ctx context.Context, p domain.Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, name, description, price, category, stock, image_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4::numeric,$5,$6,$7,$8,$9)`,
		p.ID, p.Name, p.Description, p.Price.String(), p.Category, p.Stock, p.ImageURL, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, err
}

func (r *Repository) GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *Repository) List(ctx context.Context, f domain.Filter) ([]domain.Product, int, error) {
	const where = `WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' ESCAPE '\') AND ($2 = '' OR category = $2)`

	keyword := escapeLike(f.Keyword)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products `+where, keyword, f.Category).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products `+where+`
		ORDER BY created_at DESC, id LIMIT $3 OFFSET $4`,
		keyword, f.Category, f.Limit, f.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, p domain.Product) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE products SET name=$2, description=$3, price=$4::numeric, category=$5, stock=$6, image_url=$7, updated_at=$8
		WHERE id=$1`,
		p.ID, p.Name, p.Description, p.Price.String(), p.Category, p.Stock, p.ImageURL, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Category, &p.Stock, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %s price: %w", p.ID, err)
	}
	p.Price = d
	return p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes a keyword match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
