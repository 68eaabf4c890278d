package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vidtube/backend/internal/models"
)

func field(t *testing.T, doc bson.D, key string) any {
	t.Helper()
	for _, e := range doc {
		if e.Key == key {
			return e.Value
		}
	}
	t.Fatalf("key %q not found in %v", key, doc)
	return nil
}

func subdoc(t *testing.T, doc bson.D, key string) bson.D {
	t.Helper()
	d, ok := field(t, doc, key).(bson.D)
	require.True(t, ok, "expected %q to be a document", key)
	return d
}

func TestChannelProfilePipelineShape(t *testing.T) {
	pipeline := channelProfilePipeline("alice", "viewer-1")
	require.Len(t, pipeline, 5)

	var stages []string
	for _, stage := range pipeline {
		stages = append(stages, stage[0].Key)
	}
	assert.Equal(t, []string{"$match", "$lookup", "$lookup", "$addFields", "$project"}, stages)

	assert.Equal(t, "alice", field(t, subdoc(t, pipeline[0], "$match"), "username"))
	assert.Equal(t, "channel", field(t, subdoc(t, pipeline[1], "$lookup"), "foreignField"))
	assert.Equal(t, "subscriber", field(t, subdoc(t, pipeline[2], "$lookup"), "foreignField"))

	addFields := subdoc(t, pipeline[3], "$addFields")
	cond := subdoc(t, subdoc(t, addFields, "isSubscribed"), "$cond")
	in, ok := field(t, subdoc(t, cond, "if"), "$in").(bson.A)
	require.True(t, ok)
	assert.Equal(t, bson.A{"viewer-1", "$subscribers.subscriber"}, in)

	_, err := bson.Marshal(pipeline[3])
	assert.NoError(t, err)
}

func TestWatchHistoryPipelineProjectsOwner(t *testing.T) {
	pipeline := watchHistoryPipeline("u-1")
	require.Len(t, pipeline, 3)

	lookup := subdoc(t, pipeline[1], "$lookup")
	assert.Equal(t, "videos", field(t, lookup, "from"))
	assert.Equal(t, "watchHistory", field(t, lookup, "localField"))

	inner, ok := field(t, lookup, "pipeline").(bson.A)
	require.True(t, ok)
	require.Len(t, inner, 2)

	ownerLookup := subdoc(t, inner[0].(bson.D), "$lookup")
	assert.Equal(t, "users", field(t, ownerLookup, "from"))

	ownerPipeline := field(t, ownerLookup, "pipeline").(bson.A)
	projection := subdoc(t, ownerPipeline[0].(bson.D), "$project")
	var keys []string
	for _, e := range projection {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"_id", "fullName", "username", "avatar"}, keys)

	first := subdoc(t, subdoc(t, inner[1].(bson.D), "$addFields"), "ownerProfile")
	assert.Equal(t, "$ownerProfile", field(t, first, "$first"))
}

func TestOrderHistory(t *testing.T) {
	videos := []models.Video{{ID: "a"}, {ID: "b"}}
	ordered := orderHistory([]string{"b", "missing", "a", "b"}, videos)

	var ids []string
	for _, v := range ordered {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"b", "a", "b"}, ids)
}

func TestCredentialFilter(t *testing.T) {
	assert.Nil(t, credentialFilter("", ""))

	filter := credentialFilter("alice", "")
	require.Len(t, filter, 1)
	assert.Equal(t, "$or", filter[0].Key)
	assert.Len(t, filter[0].Value.(bson.A), 1)

	assert.Len(t, credentialFilter("alice", "a@example.com")[0].Value.(bson.A), 2)
}

func TestProfileSetOnlyPatchedFields(t *testing.T) {
	name := "New Name"
	now := time.Now().UTC()
	set := profileSet(models.UserPatch{FullName: &name}, now)

	assert.Equal(t, bson.D{
		{Key: "fullName", Value: name},
		{Key: "updatedAt", Value: now},
	}, set)
}
