package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/internal/platform/mongodb"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

// Stock is the conditional stock counter of the product collection.
type Stock interface {
	Reserve(ctx context.Context, productID string, qty int) error
	Release(ctx context.Context, productID string, qty int) error
}

type lineDoc struct {
	ProductID string               `bson:"productId"`
	Name      string               `bson:"name"`
	ImageURL  string               `bson:"imageUrl,omitempty"`
	Quantity  int                  `bson:"quantity"`
	Price     primitive.Decimal128 `bson:"price"`
}

type orderDoc struct {
	ID          string               `bson:"_id"`
	UserID      string               `bson:"userId"`
	Items       []lineDoc            `bson:"items"`
	ItemsPrice  primitive.Decimal128 `bson:"itemsPrice"`
	TotalPrice  primitive.Decimal128 `bson:"totalPrice"`
	IsDelivered bool                 `bson:"isDelivered"`
	DeliveredAt *time.Time           `bson:"deliveredAt,omitempty"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func dec128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDec128(d primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(d.String())
}

func toDoc(o domain.Order) (orderDoc, error) {
	doc := orderDoc{
		ID:          o.ID,
		UserID:      o.UserID,
		Items:       make([]lineDoc, 0, len(o.Items)),
		IsDelivered: o.IsDelivered,
		DeliveredAt: o.DeliveredAt,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	var err error
	for _, it := range o.Items {
		price, err := dec128(it.Price)
		if err != nil {
			return orderDoc{}, err
		}
		doc.Items = append(doc.Items, lineDoc{
			ProductID: it.ProductID,
			Name:      it.Name,
			ImageURL:  it.ImageURL,
			Quantity:  it.Quantity,
			Price:     price,
		})
	}
	if doc.ItemsPrice, err = dec128(o.ItemsPrice); err != nil {
		return orderDoc{}, err
	}
	if doc.TotalPrice, err = dec128(o.TotalPrice); err != nil {
		return orderDoc{}, err
	}
	return doc, nil
}

func (d orderDoc) order() (domain.Order, error) {
	o := domain.Order{
		ID:          d.ID,
		UserID:      d.UserID,
		Items:       make([]domain.LineItem, 0, len(d.Items)),
		IsDelivered: d.IsDelivered,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if d.DeliveredAt != nil {
		t := d.DeliveredAt.UTC()
		o.DeliveredAt = &t
	}
	for _, it := range d.Items {
		price, err := fromDec128(it.Price)
		if err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, domain.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			ImageURL:  it.ImageURL,
			Quantity:  it.Quantity,
			Price:     price,
		})
	}
	var err error
	if o.ItemsPrice, err = fromDec128(d.ItemsPrice); err != nil {
		return domain.Order{}, err
	}
	if o.TotalPrice, err = fromDec128(d.TotalPrice); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

type Repository struct {
	log    *slog.Logger
	orders *mongo.Collection
	outbox *mongo.Collection
	stock  Stock
}

func NewRepository(log *slog.Logger, db *mongo.Database, stock Stock) *Repository {
	return &Repository{
		log:    log,
		orders: db.Collection(mongodb.Orders),
		outbox: db.Collection(mongodb.Outbox),
		stock:  stock,
	}
}

// Place reserves stock line by line. When a line cannot be reserved, or the
// order cannot be stored, every reservation already taken is released.
func (r *Repository) Place(ctx context.Context, o domain.Order, ev outbox.Event) (err error) {
	doc, err := toDoc(o)
	if err != nil {
		return err
	}

	items := make([]domain.LineItem, len(o.Items))
	copy(items, o.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	var reserved []domain.LineItem
	defer func() {
		if err == nil {
			return
		}
		for _, it := range reserved {
			if rErr := r.stock.Release(context.WithoutCancel(ctx), it.ProductID, it.Quantity); rErr != nil {
				r.log.ErrorContext(ctx, "stock compensation failed",
					"order_id", o.ID, "product_id", it.ProductID, "quantity", it.Quantity, "err", rErr)
			}
		}
	}()

	for _, it := range items {
		if err = r.stock.Reserve(ctx, it.ProductID, it.Quantity); err != nil {
			return err
		}
		reserved = append(reserved, it)
	}

	if _, err = r.orders.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	if _, err = r.outbox.InsertOne(ctx, toEventDoc(ev)); err != nil {
		if _, dErr := r.orders.DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": o.ID}); dErr != nil {
			r.log.ErrorContext(ctx, "order rollback failed", "order_id", o.ID, "err", dErr)
		}
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}

// SaveDelivery flips the flag only on an undelivered order. When the outbox
// insert fails the flag is flipped back so a retry emits the event.
func (r *Repository) SaveDelivery(ctx context.Context, o domain.Order, ev outbox.Event) (bool, error) {
	var prev orderDoc
	err := r.orders.FindOneAndUpdate(ctx,
		bson.M{"_id": o.ID, "isDelivered": false},
		bson.M{"$set": bson.M{"isDelivered": o.IsDelivered, "deliveredAt": o.DeliveredAt, "updatedAt": o.UpdatedAt}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&prev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("update order: %w", err)
	}

	if _, err := r.outbox.InsertOne(ctx, toEventDoc(ev)); err != nil {
		_, uErr := r.orders.UpdateOne(context.WithoutCancel(ctx),
			bson.M{"_id": o.ID, "isDelivered": true, "deliveredAt": o.DeliveredAt},
			bson.M{"$set": bson.M{"isDelivered": false, "deliveredAt": nil, "updatedAt": prev.UpdatedAt}})
		if uErr != nil {
			r.log.ErrorContext(ctx, "delivery rollback failed", "order_id", o.ID, "err", uErr)
		}
		return false, fmt.Errorf("insert outbox: %w", err)
	}
	return true, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var doc orderDoc
	err := r.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}
	return doc.order()
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx, bson.M{"userId": userID})
}

func (r *Repository) List(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, bson.M{})
}

func (r *Repository) list(ctx context.Context, filter bson.M) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.order()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}
