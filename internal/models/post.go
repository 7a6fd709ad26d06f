package models

import "time"

// Post status values.
const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
)

// Post is a blog article as returned by the API.
type Post struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Summary   string    `json:"summary,omitempty"`
	Cover     string    `json:"cover,omitempty"`
	Status    string    `json:"status"`
	UserID    uint      `json:"userId"`
	User      *User     `json:"user,omitempty"`
	Tags      []Tag     `json:"tags,omitempty"`
	ViewCount uint      `json:"viewCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostPage is one page of a post listing or search.
type PostPage struct {
	Data  []Post `json:"data"`
	Total int    `json:"total"`
	Page  int    `json:"page,omitempty"`
	Size  int    `json:"size,omitempty"`
}

// PostInput is the create/update payload.
type PostInput struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Summary string   `json:"summary,omitempty"`
	Cover   string   `json:"cover,omitempty"`
	Status  string   `json:"status,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// PostQuery holds listing parameters. Zero values select the defaults
// page=1, pageSize=10, status=published; other values are sent as given.
type PostQuery struct {
	Page     int
	PageSize int
	Status   string
	Tag      string
}

// SearchQuery holds search parameters with the same defaulting as PostQuery.
type SearchQuery struct {
	Keyword  string
	Page     int
	PageSize int
}

// Tag is a post tag; Count is set by the popular-tags endpoint.
type Tag struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count,omitempty"`
}

// ArchiveEntry groups posts by publication month.
type ArchiveEntry struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Count int    `json:"count"`
	Posts []Post `json:"posts,omitempty"`
}
