package models

import "time"

// Favorite links the current user to a post. PostID is the identity key.
type Favorite struct {
	ID        uint      `json:"id"`
	PostID    uint      `json:"postId"`
	Post      *Post     `json:"post,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FavoriteInput is the payload for POST /user/favorites.
type FavoriteInput struct {
	PostID uint `json:"postId"`
}
