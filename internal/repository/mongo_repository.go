package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	postsCollection    = "scheduled_posts"
	accountsCollection = "connected_accounts"
	logsCollection     = "audit_logs"
)

// EnsureMongoIndexes creates the indexes the repositories rely on. Audit logs
// get a TTL index so the server expires them after retention.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database, retention time.Duration) error {
	_, err := db.Collection(postsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduled_time", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create post indexes: %w", err)
	}

	_, err = db.Collection(accountsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "platform", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create account indexes: %w", err)
	}

	_, err = db.Collection(logsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create log indexes: %w", err)
	}
	return ensureLogTTL(ctx, db, retention)
}

// Server codes for an index that exists with different options.
const (
	codeIndexOptionsConflict  = 85
	codeIndexKeySpecsConflict = 86
)

// ensureLogTTL creates the expiry index on audit logs, or retunes it with
// collMod when it already exists with another retention.
func ensureLogTTL(ctx context.Context, db *mongo.Database, retention time.Duration) error {
	keys := bson.D{{Key: "created_at", Value: 1}}
	seconds := int32(retention / time.Second)

	_, err := db.Collection(logsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetExpireAfterSeconds(seconds),
	})
	if err == nil {
		return nil
	}
	var cmdErr mongo.CommandError
	if !errors.As(err, &cmdErr) || (cmdErr.Code != codeIndexOptionsConflict && cmdErr.Code != codeIndexKeySpecsConflict) {
		return fmt.Errorf("create log ttl index: %w", err)
	}

	slog.Info("updating audit log retention", "expire_after_seconds", seconds)
	err = db.RunCommand(ctx, bson.D{
		{Key: "collMod", Value: logsCollection},
		{Key: "index", Value: bson.D{
			{Key: "keyPattern", Value: keys},
			{Key: "expireAfterSeconds", Value: seconds},
		}},
	}).Err()
	if err != nil {
		return fmt.Errorf("update log ttl index: %w", err)
	}
	return nil
}

type mongoPostRepository struct {
	c *mongo.Collection
}

func NewMongoPostRepository(db *mongo.Database) PostRepository {
	return &mongoPostRepository{c: db.Collection(postsCollection)}
}

func dueFilter(now time.Time) bson.M {
	return bson.M{
		"status":         models.PostStatusPending,
		"scheduled_time": bson.M{"$lte": now},
	}
}

func claimFilter(id string) bson.M {
	return bson.M{"_id": id, "status": models.PostStatusPending}
}

func ownedPostFilter(ownerID, id string) bson.M {
	return bson.M{"_id": id, "owner_id": ownerID}
}

func (r *mongoPostRepository) Create(ctx context.Context, post *models.ScheduledPost) error {
	doc := *post
	doc.Hashtags = nonNil(doc.Hashtags)
	doc.MediaRefs = nonNil(doc.MediaRefs)
	doc.PublishResults = nonNil(doc.PublishResults)
	if _, err := r.c.InsertOne(ctx, doc); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *mongoPostRepository) GetByID(ctx context.Context, id string) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &post, nil
}

func (r *mongoPostRepository) ListByOwner(ctx context.Context, ownerID string, filter PostFilter) ([]*models.ScheduledPost, int64, error) {
	query := bson.M{"owner_id": ownerID}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	total, err := r.c.CountDocuments(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_time", Value: -1}}).
		SetSkip(int64(filter.offset())).
		SetLimit(int64(filter.limit()))
	posts, err := r.find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *mongoPostRepository) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	opts := options.Find().SetSort(bson.D{{Key: "scheduled_time", Value: 1}})
	return r.find(ctx, dueFilter(now), opts)
}

func (r *mongoPostRepository) Claim(ctx context.Context, id string) (bool, error) {
	update := bson.M{"$set": bson.M{"status": models.PostStatusProcessing, "updated_at": time.Now()}}
	res, err := r.c.UpdateOne(ctx, claimFilter(id), update)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *mongoPostRepository) Complete(ctx context.Context, id string, status models.PostStatus, results []models.PublishResult) error {
	if !models.PostStatusProcessing.CanTransitionTo(status) {
		return fmt.Errorf("cannot complete post with status %q", status)
	}
	update := bson.M{"$set": bson.M{
		"status":          status,
		"publish_results": nonNil(results),
		"updated_at":      time.Now(),
	}}
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id, "status": models.PostStatusProcessing}, update)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if res.MatchedCount != 1 {
		return ErrConflict
	}
	return nil
}

func (r *mongoPostRepository) Cancel(ctx context.Context, ownerID, id string) error {
	filter := ownedPostFilter(ownerID, id)
	filter["status"] = models.PostStatusPending
	update := bson.M{"$set": bson.M{"status": models.PostStatusCancelled, "updated_at": time.Now()}}

	res, err := r.c.UpdateOne(ctx, filter, update)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	return r.explainNoop(ctx, ownerID, id)
}

func (r *mongoPostRepository) Remove(ctx context.Context, ownerID, id string) error {
	filter := ownedPostFilter(ownerID, id)
	filter["status"] = bson.M{"$nin": []models.PostStatus{models.PostStatusPublished, models.PostStatusProcessing}}

	res, err := r.c.DeleteOne(ctx, filter)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if res.DeletedCount == 1 {
		return nil
	}
	return r.explainNoop(ctx, ownerID, id)
}

func (r *mongoPostRepository) CountStaleProcessing(ctx context.Context, before time.Time) (int64, error) {
	n, err := r.c.CountDocuments(ctx, bson.M{
		"status":     models.PostStatusProcessing,
		"updated_at": bson.M{"$lt": before},
	})
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return n, nil
}

func (r *mongoPostRepository) explainNoop(ctx context.Context, ownerID, id string) error {
	n, err := r.c.CountDocuments(ctx, ownedPostFilter(ownerID, id))
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func (r *mongoPostRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.ScheduledPost, error) {
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	var posts []*models.ScheduledPost
	if err := cur.All(ctx, &posts); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

type mongoSocialAccountRepository struct {
	c *mongo.Collection
}

func NewMongoSocialAccountRepository(db *mongo.Database) SocialAccountRepository {
	return &mongoSocialAccountRepository{c: db.Collection(accountsCollection)}
}

func activeAccountFilter(ownerID string, platform models.Platform) bson.M {
	return bson.M{"owner_id": ownerID, "platform": platform, "is_active": true}
}

func deactivateUpdate(now time.Time) bson.M {
	return bson.M{
		"$set":   bson.M{"is_active": false, "access_token": "", "updated_at": now},
		"$unset": bson.M{"refresh_token": "", "token_expires_at": ""},
	}
}

func (r *mongoSocialAccountRepository) Upsert(ctx context.Context, acc *models.ConnectedAccount) error {
	set := bson.M{
		"platform_user_id": acc.PlatformUserID,
		"username":         acc.Username,
		"access_token":     acc.AccessToken,
		"refresh_token":    acc.RefreshToken,
		"token_expires_at": acc.TokenExpiresAt,
		"is_active":        acc.IsActive,
		"updated_at":       acc.UpdatedAt,
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"_id": acc.ID, "created_at": acc.CreatedAt},
	}
	filter := bson.M{"owner_id": acc.OwnerID, "platform": acc.Platform}
	if _, err := r.c.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *mongoSocialAccountRepository) GetActive(ctx context.Context, ownerID string, platform models.Platform) (*models.ConnectedAccount, error) {
	var acc models.ConnectedAccount
	if err := r.c.FindOne(ctx, activeAccountFilter(ownerID, platform)).Decode(&acc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &acc, nil
}

func (r *mongoSocialAccountRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.ConnectedAccount, error) {
	opts := options.Find().SetSort(bson.D{{Key: "platform", Value: 1}})
	return r.find(ctx, bson.M{"owner_id": ownerID}, opts)
}

func (r *mongoSocialAccountRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.ConnectedAccount, error) {
	filter := bson.M{
		"is_active":        true,
		"token_expires_at": bson.M{"$ne": nil, "$lte": before},
	}
	opts := options.Find().SetSort(bson.D{{Key: "token_expires_at", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *mongoSocialAccountRepository) Deactivate(ctx context.Context, ownerID string, platform models.Platform) error {
	res, err := r.c.UpdateOne(ctx, activeAccountFilter(ownerID, platform), deactivateUpdate(time.Now()))
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoSocialAccountRepository) DeactivateByPlatformUser(ctx context.Context, platforms []models.Platform, platformUserID string) (int64, error) {
	filter := bson.M{
		"platform":         bson.M{"$in": platforms},
		"platform_user_id": platformUserID,
		"is_active":        true,
	}
	res, err := r.c.UpdateMany(ctx, filter, deactivateUpdate(time.Now()))
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *mongoSocialAccountRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.ConnectedAccount, error) {
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	var accounts []*models.ConnectedAccount
	if err := cur.All(ctx, &accounts); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return accounts, nil
}

type mongoLogRepository struct {
	c *mongo.Collection
}

func NewMongoLogRepository(db *mongo.Database) LogRepository {
	return &mongoLogRepository{c: db.Collection(logsCollection)}
}

func (r *mongoLogRepository) Create(ctx context.Context, entry *models.LogEntry) error {
	if _, err := r.c.InsertOne(ctx, entry); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *mongoLogRepository) ListByOwner(ctx context.Context, ownerID string, filter LogFilter) ([]*models.LogEntry, int64, error) {
	query := bson.M{"owner_id": ownerID}
	if filter.Type != "" {
		query["type"] = filter.Type
	}

	total, err := r.c.CountDocuments(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(filter.offset())).
		SetLimit(int64(filter.limit()))
	cur, err := r.c.Find(ctx, query, opts)
	if err != nil {
		slog.Info(err.Error())
		return nil, 0, err
	}
	var entries []*models.LogEntry
	if err := cur.All(ctx, &entries); err != nil {
		slog.Info(err.Error())
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *mongoLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.c.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return res.DeletedCount, nil
}
