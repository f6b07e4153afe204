package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	cart "github.com/dmehra2102/storefront/internal/cart/domain"
	"github.com/dmehra2102/storefront/internal/platform/mongodb"
	"github.com/dmehra2102/storefront/internal/user/domain"
)

type entryDoc struct {
	ProductID string `bson:"productId"`
	Quantity  int    `bson:"quantity"`
}

type userDoc struct {
	ID           string     `bson:"_id"`
	Name         string     `bson:"name"`
	Email        string     `bson:"email"`
	PasswordHash string     `bson:"passwordHash"`
	Role         string     `bson:"role"`
	Cart         []entryDoc `bson:"cart"`
	CreatedAt    time.Time  `bson:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt"`
}

func toDoc(u domain.User) userDoc {
	return userDoc{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Cart:         toEntryDocs(u.Cart),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d userDoc) user() domain.User {
	return domain.User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         domain.Role(d.Role),
		Cart:         fromEntryDocs(d.Cart),
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

func toEntryDocs(c cart.Cart) []entryDoc {
	out := make([]entryDoc, 0, len(c))
	for _, e := range c {
		out = append(out, entryDoc{ProductID: e.ProductID, Quantity: e.Quantity})
	}
	return out
}

func fromEntryDocs(docs []entryDoc) cart.Cart {
	out := make(cart.Cart, 0, len(docs))
	for _, d := range docs {
		out = append(out, cart.Entry{ProductID: d.ProductID, Quantity: d.Quantity})
	}
	return out
}

// Repository stores users with their embedded cart. It serves both the user
// and the cart contexts.
type Repository struct {
	log  *slog.Logger
	coll *mongo.Collection
}

func NewRepository(log *slog.Logger, db *mongo.Database) *Repository {
	return &Repository{log: log, coll: db.Collection(mongodb.Users)}
}

func (r *Repository) Create(ctx context.Context, u domain.User) error {
	_, err := r.coll.InsertOne(ctx, toDoc(u))
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.User, error) {
	return r.one(ctx, bson.M{"_id": id})
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.one(ctx, bson.M{"email": email})
}

func (r *Repository) List(ctx context.Context) ([]domain.User, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.user())
	}
	return users, nil
}

func (r *Repository) Update(ctx context.Context, u domain.User) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": bson.M{
		"name":      u.Name,
		"email":     u.Email,
		"role":      string(u.Role),
		"updatedAt": u.UpdatedAt,
	}})
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *Repository) GetCart(ctx context.Context, userID string) (cart.Cart, error) {
	var doc struct {
		Cart []entryDoc `bson:"cart"`
	}
	opts := options.FindOne().SetProjection(bson.M{"cart": 1})
	err := r.coll.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromEntryDocs(doc.Cart), nil
}

// SaveCart replaces the whole cart; concurrent writers are last-write-wins.
func (r *Repository) SaveCart(ctx context.Context, userID string, c cart.Cart) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{
		"cart":      toEntryDocs(c),
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *Repository) one(ctx context.Context, filter bson.M) (domain.User, error) {
	var doc userDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return doc.user(), nil
}
