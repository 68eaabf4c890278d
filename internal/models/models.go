package models

import "time"

// User represents an account within the VidTube platform.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	FullName     string    `json:"fullName" bson:"fullName"`
	Avatar       string    `json:"avatar" bson:"avatar"`
	CoverImage   string    `json:"coverImage" bson:"coverImage"`
	Password     string    `json:"-" bson:"password"`
	RefreshToken string    `json:"-" bson:"refreshToken,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Sanitized returns a copy of the user without credential material.
func (u User) Sanitized() User {
	u.Password = ""
	u.RefreshToken = ""
	return u
}

// UserPatch describes a partial update. Nil fields are left untouched.
type UserPatch struct {
	FullName   *string
	Email      *string
	Avatar     *string
	CoverImage *string
}

// ChannelProfile is the public view of a user's channel with derived
// subscription figures computed relative to the viewer.
type ChannelProfile struct {
	ID                string `json:"id" bson:"_id"`
	Username          string `json:"username" bson:"username"`
	FullName          string `json:"fullName" bson:"fullName"`
	Email             string `json:"email" bson:"email"`
	Avatar            string `json:"avatar" bson:"avatar"`
	CoverImage        string `json:"coverImage" bson:"coverImage"`
	SubscriberCount   int64  `json:"subscriberCount" bson:"subscriberCount"`
	SubscribedToCount int64  `json:"subscribedToCount" bson:"subscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed" bson:"isSubscribed"`
}

// Video is a published upload owned by a user.
type Video struct {
	ID          string      `json:"id" bson:"_id"`
	OwnerID     string      `json:"-" bson:"owner"`
	Owner       *VideoOwner `json:"owner" bson:"ownerProfile,omitempty"`
	VideoFile   string      `json:"videoFile" bson:"videoFile"`
	Thumbnail   string      `json:"thumbnail" bson:"thumbnail"`
	Title       string      `json:"title" bson:"title"`
	Description string      `json:"description" bson:"description"`
	Duration    float64     `json:"duration" bson:"duration"`
	Views       int64       `json:"views" bson:"views"`
	IsPublished bool        `json:"isPublished" bson:"isPublished"`
	CreatedAt   time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// VideoOwner is the minimal public projection of a video's uploader.
type VideoOwner struct {
	FullName string `json:"fullName" bson:"fullName"`
	Username string `json:"username" bson:"username"`
	Avatar   string `json:"avatar" bson:"avatar"`
}

// Playlist is a named, ordered list of videos curated by its owner.
type Playlist struct {
	ID          string    `json:"id" bson:"_id"`
	OwnerID     string    `json:"owner" bson:"owner"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	Videos      []string  `json:"videos" bson:"videos"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Subscription records that Subscriber follows Channel.
type Subscription struct {
	ID         string    `json:"id" bson:"_id"`
	Subscriber string    `json:"subscriber" bson:"subscriber"`
	Channel    string    `json:"channel" bson:"channel"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
