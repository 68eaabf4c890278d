package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
)

const (
	usersCollection         = "users"
	subscriptionsCollection = "subscriptions"
	videosCollection        = "videos"
	playlistsCollection     = "playlists"
)

// EnsureMongoIndexes creates the unique indexes the repositories rely on for
// conflict detection.
func EnsureMongoIndexes(ctx context.Context, database *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	if _, err := database.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
	}); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	if _, err := database.Collection(subscriptionsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "subscriber", Value: 1}, {Key: "channel", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "channel", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create subscription indexes: %w", err)
	}

	if _, err := database.Collection(videosCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create video indexes: %w", err)
	}

	if _, err := database.Collection(playlistsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "name", Value: 1}},
		Options: unique,
	}); err != nil {
		return fmt.Errorf("create playlist indexes: %w", err)
	}

	return nil
}

// MongoUserRepository provides MongoDB-backed persistence for users.
type MongoUserRepository struct {
	users  *mongo.Collection
	videos *mongo.Collection
}

// NewMongoUserRepository constructs a user repository backed by MongoDB.
func NewMongoUserRepository(database *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{
		users:  database.Collection(usersCollection),
		videos: database.Collection(videosCollection),
	}
}

// Create persists a new user document.
func (r *MongoUserRepository) Create(ctx context.Context, user models.User) error {
	user.RefreshToken = ""
	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if isMongoDuplicate(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByID fetches a user by id.
func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}}, "find user by id")
}

// FindByUsernameOrEmail fetches the user matching either non-empty argument.
func (r *MongoUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error) {
	filter := credentialFilter(username, email)
	if filter == nil {
		return models.User{}, ErrNotFound
	}
	return r.findOne(ctx, filter, "find user by credential")
}

// UpdateProfile applies the non-nil patch fields with a single find-and-update.
func (r *MongoUserRepository) UpdateProfile(ctx context.Context, id string, patch models.UserPatch, updatedAt time.Time) (models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	err := r.users.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: profileSet(patch, updatedAt)}},
		opts,
	).Decode(&user)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return models.User{}, ErrNotFound
		case isMongoDuplicate(err):
			return models.User{}, ErrConflict
		}
		return models.User{}, fmt.Errorf("update user profile: %w", err)
	}
	return user, nil
}

// UpdatePassword stores a new password hash.
func (r *MongoUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	res, err := r.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "password", Value: passwordHash},
			{Key: "updatedAt", Value: updatedAt},
		}}},
	)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ChannelProfile runs the channel aggregation pipeline.
func (r *MongoUserRepository) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	cursor, err := r.users.Aggregate(ctx, channelProfilePipeline(username, viewerID))
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("aggregate channel profile: %w", err)
	}

	var profiles []models.ChannelProfile
	if err := cursor.All(ctx, &profiles); err != nil {
		return models.ChannelProfile{}, fmt.Errorf("decode channel profile: %w", err)
	}
	if len(profiles) == 0 {
		return models.ChannelProfile{}, ErrNotFound
	}
	return profiles[0], nil
}

type watchHistoryResult struct {
	WatchHistory []string       `bson:"watchHistory"`
	Videos       []models.Video `bson:"history"`
}

// WatchHistory runs the nested owner lookup pipeline. $lookup does not keep
// the order of the local array, so results are reordered by watchHistory.
func (r *MongoUserRepository) WatchHistory(ctx context.Context, userID string) ([]models.Video, error) {
	cursor, err := r.users.Aggregate(ctx, watchHistoryPipeline(userID))
	if err != nil {
		return nil, fmt.Errorf("aggregate watch history: %w", err)
	}

	var results []watchHistoryResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode watch history: %w", err)
	}
	if len(results) == 0 {
		return []models.Video{}, nil
	}

	return orderHistory(results[0].WatchHistory, results[0].Videos), nil
}

// AddToWatchHistory appends videoID to the user's watchHistory array.
func (r *MongoUserRepository) AddToWatchHistory(ctx context.Context, userID, videoID string, watchedAt time.Time) error {
	count, err := r.videos.CountDocuments(ctx, bson.D{{Key: "_id", Value: videoID}})
	if err != nil {
		return fmt.Errorf("count video: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}

	res, err := r.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{
			{Key: "$push", Value: bson.D{{Key: "watchHistory", Value: videoID}}},
			{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: watchedAt}}},
		},
	)
	if err != nil {
		return fmt.Errorf("push watch history: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRefreshToken returns the stored refresh token.
func (r *MongoUserRepository) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	var doc struct {
		RefreshToken string `bson:"refreshToken"`
	}
	err := r.users.FindOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		options.FindOne().SetProjection(bson.D{{Key: "refreshToken", Value: 1}}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", auth.ErrSessionNotFound
		}
		return "", fmt.Errorf("find refresh token: %w", err)
	}
	return doc.RefreshToken, nil
}

// SetRefreshToken overwrites the stored refresh token.
func (r *MongoUserRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	res, err := r.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "refreshToken", Value: token}}}},
	)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SwapRefreshToken replaces current with next in one conditional update.
func (r *MongoUserRepository) SwapRefreshToken(ctx context.Context, userID, current, next string) error {
	res, err := r.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}, {Key: "refreshToken", Value: current}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "refreshToken", Value: next}}}},
	)
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

// ClearRefreshToken removes the refresh token field.
func (r *MongoUserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	_, err := r.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$unset", Value: bson.D{{Key: "refreshToken", Value: ""}}}},
	)
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.D, op string) (models.User, error) {
	var user models.User
	if err := r.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// MongoSubscriptionRepository provides MongoDB-backed persistence for subscriptions.
type MongoSubscriptionRepository struct {
	subscriptions *mongo.Collection
}

// NewMongoSubscriptionRepository constructs a subscription repository backed by MongoDB.
func NewMongoSubscriptionRepository(database *mongo.Database) *MongoSubscriptionRepository {
	return &MongoSubscriptionRepository{subscriptions: database.Collection(subscriptionsCollection)}
}

// Subscribe inserts a subscription document.
func (r *MongoSubscriptionRepository) Subscribe(ctx context.Context, sub models.Subscription) error {
	if _, err := r.subscriptions.InsertOne(ctx, sub); err != nil {
		if isMongoDuplicate(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// Unsubscribe deletes a subscription document.
func (r *MongoSubscriptionRepository) Unsubscribe(ctx context.Context, subscriberID, channelID string) error {
	res, err := r.subscriptions.DeleteOne(ctx, bson.D{
		{Key: "subscriber", Value: subscriberID},
		{Key: "channel", Value: channelID},
	})
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoVideoRepository provides MongoDB-backed persistence for videos.
type MongoVideoRepository struct {
	videos *mongo.Collection
}

// NewMongoVideoRepository constructs a video repository backed by MongoDB.
func NewMongoVideoRepository(database *mongo.Database) *MongoVideoRepository {
	return &MongoVideoRepository{videos: database.Collection(videosCollection)}
}

// Create inserts a video document.
func (r *MongoVideoRepository) Create(ctx context.Context, video models.Video) error {
	video.Owner = nil
	if _, err := r.videos.InsertOne(ctx, video); err != nil {
		if isMongoDuplicate(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

// FindByID fetches a video by id.
func (r *MongoVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	var video models.Video
	if err := r.videos.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&video); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("find video: %w", err)
	}
	return video, nil
}

// MongoPlaylistRepository provides MongoDB-backed persistence for playlists.
type MongoPlaylistRepository struct {
	playlists *mongo.Collection
}

// NewMongoPlaylistRepository constructs a playlist repository backed by MongoDB.
func NewMongoPlaylistRepository(database *mongo.Database) *MongoPlaylistRepository {
	return &MongoPlaylistRepository{playlists: database.Collection(playlistsCollection)}
}

// Create inserts a playlist document.
func (r *MongoPlaylistRepository) Create(ctx context.Context, playlist models.Playlist) error {
	if playlist.Videos == nil {
		playlist.Videos = []string{}
	}
	if _, err := r.playlists.InsertOne(ctx, playlist); err != nil {
		if isMongoDuplicate(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert playlist: %w", err)
	}
	return nil
}

// ListByOwner returns the owner's playlists, newest first.
func (r *MongoPlaylistRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.playlists.Find(ctx, bson.D{{Key: "owner", Value: ownerID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find playlists: %w", err)
	}

	playlists := []models.Playlist{}
	if err := cursor.All(ctx, &playlists); err != nil {
		return nil, fmt.Errorf("decode playlists: %w", err)
	}
	return playlists, nil
}

var _ UserRepository = (*MongoUserRepository)(nil)
var _ SubscriptionRepository = (*MongoSubscriptionRepository)(nil)
var _ VideoRepository = (*MongoVideoRepository)(nil)
var _ PlaylistRepository = (*MongoPlaylistRepository)(nil)
