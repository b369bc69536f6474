package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const cartCollection = "cart_lines"

// cartLineDocument is the stored shape of a cart line.
type cartLineDocument struct {
	ID        string               `bson:"_id"`
	UserID    string               `bson:"user_id"`
	ProductID string               `bson:"product_id"`
	Quantity  int                  `bson:"quantity"`
	UnitPrice primitive.Decimal128 `bson:"unit_price"`
	CreatedAt time.Time            `bson:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at"`
}

func (d *cartLineDocument) toModel() (*model.CartLine, error) {
	price, err := decimal.NewFromString(d.UnitPrice.String())
	if err != nil {
		return nil, fmt.Errorf("invalid unit price on line %s: %w", d.ID, err)
	}
	return &model.CartLine{
		ID:        d.ID,
		UserID:    d.UserID,
		ProductID: d.ProductID,
		Quantity:  d.Quantity,
		UnitPrice: price,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

// cartRepository implements CartRepository on a MongoDB collection with a
// unique (user_id, product_id) index.
type cartRepository struct {
	collection *mongo.Collection
	logger     zerolog.Logger
	now        func() time.Time
}

// NewCartRepository creates a new MongoDB-backed cart repository.
func NewCartRepository(db *mongo.Database, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		collection: db.Collection(cartCollection),
		logger:     logger.With().Str("repository", "cart").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// EnsureCartIndexes creates the uniqueness constraint the cart upsert relies on.
// It must run before the cart repository serves traffic.
func EnsureCartIndexes(ctx context.Context, db *mongo.Database, logger zerolog.Logger) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "product_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("ux_cart_user_product"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("ix_cart_user_created"),
		},
	}

	names, err := db.Collection(cartCollection).Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create cart indexes")
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}

	logger.Info().Strs("indexes", names).Msg("cart indexes ensured")
	return nil
}

// AddQuantity performs a single findAndModify upsert: $inc on an existing
// line, insert with quantity=delta and the given unit price otherwise.
func (r *cartRepository) AddQuantity(ctx context.Context, userID, productID string, delta int, unitPrice decimal.Decimal) (*model.CartLine, error) {
	price, err := primitive.ParseDecimal128(unitPrice.String())
	if err != nil {
		return nil, fmt.Errorf("invalid unit price %s: %w", unitPrice, err)
	}

	filter := bson.M{"user_id": userID, "product_id": productID}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc cartLineDocument
	// Two concurrent upserts of a new line can both miss and race on insert;
	// the loser gets a duplicate key error and the retry increments instead.
	for attempt := 0; attempt < 2; attempt++ {
		now := r.now()
		update := bson.M{
			"$inc": bson.M{"quantity": delta},
			"$set": bson.M{"updated_at": now},
			"$setOnInsert": bson.M{
				"_id":        uuid.NewString(),
				"unit_price": price,
				"created_at": now,
			},
		}

		err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
		if err == nil || !mongo.IsDuplicateKeyError(err) {
			break
		}
		r.logger.Debug().
			Str("user_id", userID).
			Str("product_id", productID).
			Msg("concurrent insert of cart line, retrying as increment")
	}
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("user_id", userID).
			Str("product_id", productID).
			Msg("failed to upsert cart line")
		return nil, fmt.Errorf("failed to upsert cart line: %w", err)
	}

	return doc.toModel()
}

// SetQuantity overwrites the quantity of a line owned by userID.
func (r *cartRepository) SetQuantity(ctx context.Context, userID, lineID string, quantity int) (*model.CartLine, error) {
	filter := bson.M{"_id": lineID, "user_id": userID}
	update := bson.M{"$set": bson.M{"quantity": quantity, "updated_at": r.now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc cartLineDocument
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.Debug().Str("user_id", userID).Str("line_id", lineID).Msg("cart line not found")
			return nil, model.ErrLineNotFound
		}
		r.logger.Error().Err(err).Str("line_id", lineID).Msg("failed to update cart line")
		return nil, fmt.Errorf("failed to update cart line: %w", err)
	}

	return doc.toModel()
}

// Delete removes a line owned by userID.
func (r *cartRepository) Delete(ctx context.Context, userID, lineID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": lineID, "user_id": userID})
	if err != nil {
		r.logger.Error().Err(err).Str("line_id", lineID).Msg("failed to delete cart line")
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	if result.DeletedCount > 0 {
		return nil
	}

	// Nothing of ours was deleted: either already gone, or someone else's line.
	others, err := r.collection.CountDocuments(ctx, bson.M{"_id": lineID}, options.Count().SetLimit(1))
	if err != nil {
		r.logger.Error().Err(err).Str("line_id", lineID).Msg("failed to check cart line owner")
		return fmt.Errorf("failed to check cart line owner: %w", err)
	}
	if others > 0 {
		r.logger.Warn().Str("user_id", userID).Str("line_id", lineID).Msg("attempt to delete another user's cart line")
		return model.ErrLineNotFound
	}

	return nil
}

// DeleteAll removes every line of userID.
func (r *cartRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to clear cart")
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}

	r.logger.Debug().
		Str("user_id", userID).
		Int64("deleted", result.DeletedCount).
		Msg("cart cleared")

	return result.DeletedCount, nil
}

// ListByUser returns the user's lines in insertion order.
func (r *cartRepository) ListByUser(ctx context.Context, userID string) ([]model.CartLine, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to query cart lines")
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}

	var docs []cartLineDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to decode cart lines")
		return nil, fmt.Errorf("failed to decode cart lines: %w", err)
	}

	lines := make([]model.CartLine, 0, len(docs))
	for i := range docs {
		line, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}

	return lines, nil
}

// FindByProduct returns the user's line for productID, or nil when absent.
func (r *cartRepository) FindByProduct(ctx context.Context, userID, productID string) (*model.CartLine, error) {
	var doc cartLineDocument
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID, "product_id": productID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID).Str("product_id", productID).Msg("failed to query cart line")
		return nil, fmt.Errorf("failed to query cart line: %w", err)
	}

	return doc.toModel()
}

// CountLines returns the number of distinct lines in the cart.
func (r *cartRepository) CountLines(ctx context.Context, userID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to count cart lines")
		return 0, fmt.Errorf("failed to count cart lines: %w", err)
	}
	return count, nil
}

// CountItems returns the sum of quantities in the cart.
func (r *cartRepository) CountItems(ctx context.Context, userID string) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "user_id", Value: userID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$quantity"}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to count cart items")
		return 0, fmt.Errorf("failed to count cart items: %w", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Total int `bson:"total"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, fmt.Errorf("failed to decode cart item count: %w", err)
	}
	if len(result) == 0 {
		return 0, nil
	}

	return result[0].Total, nil
}
