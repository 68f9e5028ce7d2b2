package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/craftly/studio-api/internal/core/domain"
	"github.com/craftly/studio-api/internal/core/ports"
)

// GenerationRepository is the durable log of generation attempts.
type GenerationRepository struct {
	col *mongo.Collection
}

func NewGenerationRepository(db *mongo.Database) *GenerationRepository {
	return &GenerationRepository{col: db.Collection(collectionGenerations)}
}

// Create inserts a new record. Status is forced to processing: records enter
// the log only after a successful credit check, already in flight.
func (r *GenerationRepository) Create(ctx context.Context, g *domain.Generation) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	g.Status = domain.StatusProcessing
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	if _, err := r.col.InsertOne(ctx, g); err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

// MarkCompleted transitions a processing record to completed with its
// result. The status filter makes the transition single-shot: a record that
// already reached a terminal status is never rewritten.
func (r *GenerationRepository) MarkCompleted(ctx context.Context, id string, variants []string, imageID, imageURL string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{
		"status":       domain.StatusCompleted,
		"completed_at": at,
	}
	if len(variants) > 0 {
		set["result_variants"] = variants
	}
	if imageID != "" {
		set["result_media_id"] = imageID
		set["result_image_url"] = imageURL
	}

	res, err := r.col.UpdateOne(ctx,
		bson.M{"id": id, "status": domain.StatusProcessing},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrGenerationNotFound
	}
	return nil
}

// MarkFailed transitions a processing record to failed, keeping the upstream
// error detail for inspection.
func (r *GenerationRepository) MarkFailed(ctx context.Context, id string, errorMessage string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"id": id, "status": domain.StatusProcessing},
		bson.M{"$set": bson.M{
			"status":        domain.StatusFailed,
			"error_message": errorMessage,
			"completed_at":  at,
		}},
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrGenerationNotFound
	}
	return nil
}

// FindByID retrieves a record scoped to its owner. A record owned by a
// different user is indistinguishable from a missing one.
func (r *GenerationRepository) FindByID(ctx context.Context, userID, id string) (*domain.Generation, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var g domain.Generation
	err := r.col.FindOne(ctx, bson.M{"id": id, "user_id": userID}).Decode(&g)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrGenerationNotFound
		}
		return nil, fmt.Errorf("find generation: %w", err)
	}
	return &g, nil
}

// List returns one page of the user's records, newest first, plus the total
// count matching the filter.
func (r *GenerationRepository) List(ctx context.Context, filter ports.ListGenerationsFilter) ([]*domain.Generation, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := bson.M{"user_id": filter.UserID}
	if filter.Kind != "" {
		query["type"] = filter.Kind
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count generations: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((filter.Page - 1) * filter.Limit)).
		SetLimit(int64(filter.Limit))

	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list generations: %w", err)
	}
	defer cur.Close(ctx)

	var items []*domain.Generation
	for cur.Next(ctx) {
		var g domain.Generation
		if err := cur.Decode(&g); err != nil {
			return nil, 0, fmt.Errorf("list generations: decode: %w", err)
		}
		items = append(items, &g)
	}
	if err := cur.Err(); err != nil {
		return nil, 0, fmt.Errorf("list generations: cursor: %w", err)
	}
	return items, total, nil
}

// EnsureIndexes creates the indexes the listing and ownership queries need.
func (r *GenerationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
