package repositories

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vidtube/backend/internal/models"
)

// channelProfilePipeline joins subscriptions twice (as channel and as
// subscriber), projects the array sizes and flags whether viewerID is among
// the channel's subscribers.
func channelProfilePipeline(username, viewerID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "username", Value: username}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: subscriptionsCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "channel"},
			{Key: "as", Value: "subscribers"},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: subscriptionsCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "subscriber"},
			{Key: "as", Value: "subscribedTo"},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "subscriberCount", Value: bson.D{{Key: "$size", Value: "$subscribers"}}},
			{Key: "subscribedToCount", Value: bson.D{{Key: "$size", Value: "$subscribedTo"}}},
			{Key: "isSubscribed", Value: bson.D{{Key: "$cond", Value: bson.D{
				{Key: "if", Value: bson.D{{Key: "$in", Value: bson.A{viewerID, "$subscribers.subscriber"}}}},
				{Key: "then", Value: true},
				{Key: "else", Value: false},
			}}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "username", Value: 1},
			{Key: "fullName", Value: 1},
			{Key: "email", Value: 1},
			{Key: "avatar", Value: 1},
			{Key: "coverImage", Value: 1},
			{Key: "subscriberCount", Value: 1},
			{Key: "subscribedToCount", Value: 1},
			{Key: "isSubscribed", Value: 1},
		}}},
	}
}

// watchHistoryPipeline resolves the user's watchHistory ids to videos and
// each video's owner to a single {fullName, username, avatar} object.
func watchHistoryPipeline(userID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: userID}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: videosCollection},
			{Key: "localField", Value: "watchHistory"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "history"},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$lookup", Value: bson.D{
					{Key: "from", Value: usersCollection},
					{Key: "localField", Value: "owner"},
					{Key: "foreignField", Value: "_id"},
					{Key: "as", Value: "ownerProfile"},
					{Key: "pipeline", Value: bson.A{
						bson.D{{Key: "$project", Value: bson.D{
							{Key: "_id", Value: 0},
							{Key: "fullName", Value: 1},
							{Key: "username", Value: 1},
							{Key: "avatar", Value: 1},
						}}},
					}},
				}}},
				bson.D{{Key: "$addFields", Value: bson.D{
					{Key: "ownerProfile", Value: bson.D{{Key: "$first", Value: "$ownerProfile"}}},
				}}},
			}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "watchHistory", Value: 1},
			{Key: "history", Value: 1},
		}}},
	}
}

// orderHistory arranges videos in the order of ids, repeating re-watched
// entries and dropping ids whose video no longer exists.
func orderHistory(ids []string, videos []models.Video) []models.Video {
	byID := make(map[string]models.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}

	ordered := make([]models.Video, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			ordered = append(ordered, v)
		}
	}
	return ordered
}

func credentialFilter(username, email string) bson.D {
	var clauses bson.A
	if username != "" {
		clauses = append(clauses, bson.D{{Key: "username", Value: username}})
	}
	if email != "" {
		clauses = append(clauses, bson.D{{Key: "email", Value: email}})
	}
	if len(clauses) == 0 {
		return nil
	}
	return bson.D{{Key: "$or", Value: clauses}}
}

func profileSet(patch models.UserPatch, updatedAt time.Time) bson.D {
	set := bson.D{}
	if patch.FullName != nil {
		set = append(set, bson.E{Key: "fullName", Value: *patch.FullName})
	}
	if patch.Email != nil {
		set = append(set, bson.E{Key: "email", Value: *patch.Email})
	}
	if patch.Avatar != nil {
		set = append(set, bson.E{Key: "avatar", Value: *patch.Avatar})
	}
	if patch.CoverImage != nil {
		set = append(set, bson.E{Key: "coverImage", Value: *patch.CoverImage})
	}
	return append(set, bson.E{Key: "updatedAt", Value: updatedAt})
}
