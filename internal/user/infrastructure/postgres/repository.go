package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	cart "github.com/dmehra2102/storefront/internal/cart/domain"
	"github.com/dmehra2102/storefront/internal/user/domain"
)

const (
	userColumns     = `id, name, email, password_hash, role, cart, created_at, updated_at`
	uniqueViolation = "23505"
)

// Repository stores users with their cart as a JSONB column. It serves both
// the user and the cart contexts.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Create(ctx context.Context, u domain.User) error {
	c, err := encodeCart(u.Cart)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, cart, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), c, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (r *Repository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *Repository) Update(ctx context.Context, u domain.User) error {
	ct, err := r.pool.Exec(ctx, `UPDATE users SET name=$2, email=$3, role=$4, updated_at=$5 WHERE id=$1`,
		u.ID, u.Name, u.Email, string(u.Role), u.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *Repository) GetCart(ctx context.Context, userID string) (cart.Cart, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT cart FROM users WHERE id=$1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeCart(raw)
}

// SaveCart replaces the whole cart; concurrent writers are last-write-wins.
func (r *Repository) SaveCart(ctx context.Context, userID string, c cart.Cart) error {
	raw, err := encodeCart(c)
	if err != nil {
		return err
	}
	ct, err := r.pool.Exec(ctx, `UPDATE users SET cart=$2, updated_at=now() WHERE id=$1`, userID, raw)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *Repository) one(ctx context.Context, query string, arg any) (domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, err
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u    domain.User
		role string
		raw  []byte
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &raw, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	c, err := decodeCart(raw)
	if err != nil {
		return domain.User{}, err
	}
	u.Cart = c
	return u, nil
}

func encodeCart(c cart.Cart) ([]byte, error) {
	if c == nil {
		c = cart.Cart{}
	}
	return json.Marshal(c)
}

func decodeCart(raw []byte) (cart.Cart, error) {
	c := cart.Cart{}
	if len(raw) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
