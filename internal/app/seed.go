package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// devPassword is shared by every development account.
const devPassword = "password123"

// seedStores are the repositories the development dataset is written through.
type seedStores struct {
	users     repositories.UserRepository
	subs      repositories.SubscriptionRepository
	videos    repositories.VideoRepository
	playlists repositories.PlaylistRepository
}

type seedReport struct {
	created int
	skipped int
}

func (r *seedReport) record(err error) error {
	switch {
	case err == nil:
		r.created++
	case errors.Is(err, repositories.ErrConflict):
		r.skipped++
	default:
		return err
	}
	return nil
}

const (
	aliceID = "00000000-0000-4000-8000-000000000001"
	bobID   = "00000000-0000-4000-8000-000000000002"
	carolID = "00000000-0000-4000-8000-000000000003"

	introVideoID = "20000000-0000-4000-8000-000000000001"
	vlogVideoID  = "20000000-0000-4000-8000-000000000002"
)

// seedDev writes the development dataset that seeds/dev_seed.sql carries for
// PostgreSQL. Records that already exist are skipped, so it can run repeatedly.
func seedDev(ctx context.Context, st seedStores, mediaBaseURL string, now time.Time) (seedReport, error) {
	var report seedReport
	mediaBaseURL = strings.TrimSuffix(mediaBaseURL, "/")

	hash, err := auth.HashPassword(devPassword)
	if err != nil {
		return report, fmt.Errorf("hash seed password: %w", err)
	}

	people := []struct{ id, username, fullName string }{
		{aliceID, "alice", "Alice Example"},
		{bobID, "bob", "Bob Example"},
		{carolID, "carol", "Carol Example"},
	}
	for _, p := range people {
		err := st.users.Create(ctx, models.User{
			ID:        p.id,
			Username:  p.username,
			Email:     p.username + "@example.com",
			FullName:  p.fullName,
			Avatar:    mediaBaseURL + "/" + p.username + ".png",
			Password:  hash,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err := report.record(err); err != nil {
			return report, fmt.Errorf("seed user %s: %w", p.username, err)
		}
	}

	follows := []struct{ id, subscriber, channel string }{
		{"10000000-0000-4000-8000-000000000001", bobID, aliceID},
		{"10000000-0000-4000-8000-000000000002", carolID, aliceID},
		{"10000000-0000-4000-8000-000000000003", aliceID, bobID},
	}
	for _, f := range follows {
		err := st.subs.Subscribe(ctx, models.Subscription{ID: f.id, Subscriber: f.subscriber, Channel: f.channel, CreatedAt: now})
		if err := report.record(err); err != nil {
			return report, fmt.Errorf("seed subscription %s: %w", f.id, err)
		}
	}

	videos := []models.Video{
		{
			ID:          introVideoID,
			OwnerID:     aliceID,
			VideoFile:   mediaBaseURL + "/intro.mp4",
			Thumbnail:   mediaBaseURL + "/intro.jpg",
			Title:       "Channel intro",
			Description: "Welcome to the channel",
			Duration:    42.5,
			Views:       10,
			IsPublished: true,
		},
		{
			ID:          vlogVideoID,
			OwnerID:     bobID,
			VideoFile:   mediaBaseURL + "/vlog.mp4",
			Thumbnail:   mediaBaseURL + "/vlog.jpg",
			Title:       "First vlog",
			Duration:    318,
			Views:       3,
			IsPublished: true,
		},
	}
	for _, v := range videos {
		v.CreatedAt, v.UpdatedAt = now, now
		if err := report.record(st.videos.Create(ctx, v)); err != nil {
			return report, fmt.Errorf("seed video %s: %w", v.ID, err)
		}
	}

	history, err := st.users.WatchHistory(ctx, aliceID)
	if err != nil {
		return report, fmt.Errorf("load seed watch history: %w", err)
	}
	if len(history) == 0 {
		for i, videoID := range []string{vlogVideoID, introVideoID} {
			if err := st.users.AddToWatchHistory(ctx, aliceID, videoID, now.Add(time.Duration(i)*time.Second)); err != nil {
				return report, fmt.Errorf("seed watch history: %w", err)
			}
			report.created++
		}
	} else {
		report.skipped += len(history)
	}

	err = st.playlists.Create(ctx, models.Playlist{
		ID:          "30000000-0000-4000-8000-000000000001",
		OwnerID:     aliceID,
		Name:        "Favourites",
		Description: "Videos worth rewatching",
		Videos:      []string{vlogVideoID},
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err := report.record(err); err != nil {
		return report, fmt.Errorf("seed playlist: %w", err)
	}

	return report, nil
}
