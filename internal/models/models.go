package models

import "time"

// User represents an account within the Cliptide platform. Username and email
// are globally unique; username is stored lowercase.
type User struct {
	ID            string
	Username      string
	Email         string
	FullName      string
	PasswordHash  string
	AvatarURL     string
	CoverImageURL string
	// RefreshToken holds the single currently valid refresh token, or nil when
	// the user has no active session.
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public returns the outward-facing projection of the user, excluding the
// password hash and stored refresh token.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FullName:      u.FullName,
		AvatarURL:     u.AvatarURL,
		CoverImageURL: u.CoverImageURL,
		CreatedAt:     u.CreatedAt,
	}
}

// OwnerSummary returns the minimal projection joined into watch history rows.
func (u User) OwnerSummary() OwnerSummary {
	return OwnerSummary{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
	}
}

// PublicUser is the serializable view of a user returned by the API.
type PublicUser struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage"`
	CreatedAt     time.Time `json:"createdAt"`
}

// OwnerSummary is the minimal view of a video owner.
type OwnerSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatar"`
}

// Subscription is a directed edge: subscriber follows channel.
type Subscription struct {
	SubscriberID string
	ChannelID    string
	CreatedAt    time.Time
}

// Video is an activity record owned by a user. The identity layer treats
// videos as read-only data to be joined into projections.
type Video struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Thumbnail   string
	CreatedAt   time.Time
}

// WatchEvent records that a user watched a video at a point in time.
type WatchEvent struct {
	UserID    string
	VideoID   string
	WatchedAt time.Time
}

// SessionTokens groups the signed bearer credentials issued to an
// authenticated user.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// ChannelProfile is the personalized aggregation returned for a channel page.
type ChannelProfile struct {
	PublicUser
	SubscriberCount      int64 `json:"subscriberCount"`
	SubscribedToCount    int64 `json:"subscribedToCount"`
	IsSubscribedByViewer bool  `json:"isSubscribed"`
}

// WatchHistoryEntry joins a watched video with its owner's public summary.
type WatchHistoryEntry struct {
	VideoID   string       `json:"videoId"`
	Title     string       `json:"title"`
	Thumbnail string       `json:"thumbnail"`
	WatchedAt time.Time    `json:"watchedAt"`
	Owner     OwnerSummary `json:"owner"`
}
