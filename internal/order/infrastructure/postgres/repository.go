package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	catalog "github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

const orderColumns = `id, user_id, items, items_price::text, total_price::text, is_delivered, delivered_at, created_at, updated_at`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// Place decrements stock, inserts the order and its outbox event in one
// transaction. Stock rows are locked in product id order.
func (r *Repository) Place(ctx context.Context, o domain.Order, ev outbox.Event) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	items := make([]domain.LineItem, len(o.Items))
	copy(items, o.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	for _, item := range items {
		if item.Quantity < 1 {
			return catalog.ErrInvalidQuantity
		}
		ct, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1 AND stock >= $2`,
			item.ProductID, item.Quantity)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		if ct.RowsAffected() == 1 {
			continue
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, item.ProductID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return catalog.ErrProductNotFound
		}
		return catalog.ErrInsufficientStock
	}

	rawItems, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, items, items_price, total_price, is_delivered, delivered_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4::numeric,$5::numeric,$6,$7,$8,$9)`,
		o.ID, o.UserID, rawItems, o.ItemsPrice.String(), o.TotalPrice.String(), o.IsDelivered, o.DeliveredAt, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if err := insertEvent(ctx, tx, ev); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) SaveDelivery(ctx context.Context, o domain.Order, ev outbox.Event) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE orders SET is_delivered=$2, delivered_at=$3, updated_at=$4 WHERE id=$1 AND NOT is_delivered`,
		o.ID, o.IsDelivered, o.DeliveredAt, o.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("update order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		// Already delivered by a concurrent request; keep its timestamp and event.
		return false, nil
	}
	if err := insertEvent(ctx, tx, ev); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, err
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC, id`, userID)
}

func (r *Repository) List(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id`)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o                      domain.Order
		rawItems               []byte
		itemsPrice, totalPrice string
	)
	if err := row.Scan(&o.ID, &o.UserID, &rawItems, &itemsPrice, &totalPrice, &o.IsDelivered, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return domain.Order{}, err
	}
	if err := json.Unmarshal(rawItems, &o.Items); err != nil {
		return domain.Order{}, fmt.Errorf("order %s items: %w", o.ID, err)
	}
	var err error
	if o.ItemsPrice, err = decimal.NewFromString(itemsPrice); err != nil {
		return domain.Order{}, err
	}
	if o.TotalPrice, err = decimal.NewFromString(totalPrice); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func insertEvent(ctx context.Context, tx pgx.Tx, ev outbox.Event) error {
	headers, err := json.Marshal(ev.Headers)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, type, payload, headers, traceparent, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',$8)`,
		ev.ID, ev.AggregateType, ev.AggregateID, ev.Type, ev.Payload, headers, ev.Traceparent, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}

type OutboxStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewOutboxStore(log *slog.Logger, pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{log: log, pool: pool}
}

// LockBatch claims pending events and in-progress events whose lease ran out.
func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	rows, err := s.pool.Query(ctx, `
		WITH claimed AS (
			SELECT id FROM outbox
			WHERE status = 'pending' OR (status = 'in_progress' AND lease_until < now())
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT $1
		)
		UPDATE outbox o
		SET status = 'in_progress', relay_id = $2, lease_until = now() + make_interval(secs => $3)
		FROM claimed
		WHERE o.id = claimed.id
		RETURNING o.id, o.aggregate_type, o.aggregate_id, o.type, o.payload, o.headers, o.traceparent, o.created_at, o.retry_count`,
		batchSize, relayID, lease.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []outbox.Event
	for rows.Next() {
		var (
			ev      outbox.Event
			headers []byte
		)
		if err := rows.Scan(&ev.ID, &ev.AggregateType, &ev.AggregateID, &ev.Type, &ev.Payload, &headers, &ev.Traceparent, &ev.CreatedAt, &ev.RetryCount); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(headers, &ev.Headers); err != nil {
			return nil, err
		}
		ev.Status = outbox.StatusInProgress
		ev.RelayID = relayID
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []string) error {
	ct, err := s.pool.Exec(ctx, `UPDATE outbox SET status='sent', lease_until=NULL WHERE id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("no rows updated")
	}
	return nil
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbox
		SET retry_count = retry_count + 1,
		    last_error = $2,
		    status = CASE WHEN retry_count + 1 >= $3 THEN 'failed' ELSE 'pending' END,
		    relay_id = NULL,
		    lease_until = NULL
		WHERE id = $1`, id, errMsg, outbox.MaxRetries)
	return err
}
