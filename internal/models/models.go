package models

import (
	"time"

	"photofeed-client/internal/network"
)

// Size holds a photo's pixel dimensions, used for aspect-ratio layout.
type Size struct {
	Width  float64
	Height float64
}

// Photo is a single feed entry. ID is stable across re-fetches and is
// the join key used when a like toggle result is applied to the list.
type Photo struct {
	ID              string
	Size            Size
	CreatedAt       *time.Time
	Description     string
	ThumbImageURL   string
	LargeImageURL   string
	RegularImageURL string
	IsLiked         bool
}

// NewPhoto builds a Photo from its decoded API representation.
func NewPhoto(result network.PhotoResult) Photo {
	photo := Photo{
		ID:              result.ID,
		Size:            Size{Width: result.Width, Height: result.Height},
		ThumbImageURL:   result.URLs.Thumb,
		LargeImageURL:   result.URLs.Full,
		RegularImageURL: result.URLs.Regular,
		IsLiked:         result.LikedByUser,
	}
	if result.Description != nil {
		photo.Description = *result.Description
	}
	if result.CreatedAt != nil {
		if createdAt, err := time.Parse(time.RFC3339, *result.CreatedAt); err == nil {
			photo.CreatedAt = &createdAt
		}
	}
	return photo
}

// Profile is the current user's profile.
type Profile struct {
	Username  string
	Name      string
	LoginName string
	Bio       string
}

// NewProfile builds a Profile from its decoded API representation.
// Name joins first and last names, a missing last name is treated as
// empty; LoginName is the username prefixed with "@".
func NewProfile(result network.ProfileResult) Profile {
	lastName := ""
	if result.LastName != nil {
		lastName = *result.LastName
	}
	bio := ""
	if result.Bio != nil {
		bio = *result.Bio
	}
	return Profile{
		Username:  result.Username,
		Name:      result.FirstName + " " + lastName,
		LoginName: "@" + result.Username,
		Bio:       bio,
	}
}
