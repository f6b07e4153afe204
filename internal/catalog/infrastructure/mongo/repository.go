package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/internal/platform/mongodb"
)

type productDoc struct {
	ID          string               `bson:"_id"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	Category    string               `bson:"category"`
	Stock       int                  `bson:"stock"`
	ImageURL    string               `bson:"imageUrl,omitempty"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func toDoc(p domain.Product) (productDoc, error) {
	price, err := primitive.ParseDecimal128(p.Price.String())
	if err != nil {
		return productDoc{}, fmt.Errorf("product %s price: %w", p.ID, err)
	}
	return productDoc{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       price,
		Category:    p.Category,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

func (d productDoc) product() (domain.Product, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %s price: %w", d.ID, err)
	}
	return domain.Product{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		Category:    d.Category,
		Stock:       d.Stock,
		ImageURL:    d.ImageURL,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}, nil
}

type Repository struct {
	log  *slog.Logger
	coll *mongo.Collection
}

func NewRepository(log *slog.Logger, db *mongo.Database) *Repository {
	return &Repository{log: log, coll: db.Collection(mongodb.Products)}
}

func (r *Repository) Create(ctx context.Context, p domain.Product) error {
	doc, err := toDoc(p)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Product, error) {
	var doc productDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, err
	}
	return doc.product()
}

func (r *Repository) GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		p, err := d.product()
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, nil
}

func (r *Repository) List(ctx context.Context, f domain.Filter) ([]domain.Product, int, error) {
	filter := bson.M{}
	if f.Keyword != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(f.Keyword), "$options": "i"}
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(f.Offset())).
		SetLimit(int64(f.Limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	products := make([]domain.Product, 0, len(docs))
	for _, d := range docs {
		p, err := d.product()
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, int(total), nil
}

func (r *Repository) Update(ctx context.Context, p domain.Product) error {
	doc, err := toDoc(p)
	if err != nil {
		return err
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, doc)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// Reserve decrements stock by qty only when at least qty units are left.
func (r *Repository) Reserve(ctx context.Context, id string, qty int) error {
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}, "$currentDate": bson.M{"updatedAt": true}})
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProductNotFound
	}
	return domain.ErrInsufficientStock
}

// Release gives back stock taken by Reserve.
func (r *Repository) Release(ctx context.Context, id string, qty int) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"stock": qty}})
	return err
}
