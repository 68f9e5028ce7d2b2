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
)

// AccountRepository mutates the credit fields on user documents. The rest of
// the user document belongs to the identity subsystem and is never touched.
type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(collectionUsers)}
}

// FindByUserID returns the credit projection of a user document.
func (r *AccountRepository) FindByUserID(ctx context.Context, userID string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var account domain.Account
	err := r.col.FindOne(ctx, bson.M{"id": userID}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	// Older documents predate the credit fields; treat them as a fresh
	// default plan.
	if account.CreditsLimit <= 0 {
		account.CreditsLimit = domain.DefaultCreditsLimit
	}
	return &account, nil
}

// DeductCredits performs the conditional decrement: balance and usage
// counter move together in one write, and only while the persisted balance
// still covers the cost.
func (r *AccountRepository) DeductCredits(ctx context.Context, userID string, cost int, reason string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"id": userID, "ai_credits": bson.M{"$gte": cost}}
	update := bson.M{"$inc": bson.M{
		"ai_credits":         -cost,
		"ai_usage." + reason: cost,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var account domain.Account
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&account)
	if err == nil {
		return account.Credits, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("deduct credits: %w", err)
	}

	// The guard rejected the write: find out whether the account is missing
	// or merely short of credits.
	n, countErr := r.col.CountDocuments(ctx, bson.M{"id": userID})
	if countErr != nil {
		return 0, fmt.Errorf("deduct credits: %w", countErr)
	}
	if n == 0 {
		return 0, domain.ErrAccountNotFound
	}
	return 0, domain.ErrInsufficientCredits
}

// SetCredits writes newBalance only when the persisted balance still equals
// expected. Reports whether the write was applied.
func (r *AccountRepository) SetCredits(ctx context.Context, userID string, expected, newBalance int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"id": userID, "ai_credits": expected},
		bson.M{"$set": bson.M{"ai_credits": newBalance}},
	)
	if err != nil {
		return false, fmt.Errorf("set credits: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// ResetCredits restores the balance to the plan limit server-side and stamps
// last_reset. Accounts without an explicit limit reset to the default plan.
func (r *AccountRepository) ResetCredits(ctx context.Context, userID string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"ai_credits":            bson.M{"$ifNull": bson.A{"$ai_credits_limit", domain.DefaultCreditsLimit}},
			"ai_credits_last_reset": at,
		}}},
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"id": userID}, pipeline)
	if err != nil {
		return fmt.Errorf("reset credits: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// ListUserIDs returns every account id, for the monthly sweep.
func (r *AccountRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"id": 1}))
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("list accounts: decode: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: cursor: %w", err)
	}
	return ids, nil
}

// EnsureIndexes creates the indexes the credit queries rely on.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "ai_credits_last_reset", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
