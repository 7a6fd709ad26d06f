package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"blogdesk/internal/models"
)

// listOf decodes either a bare JSON array or an object wrapping it in "data".
type listOf[T any] struct {
	Items []T
	Total int
}

func (l *listOf[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		if err := json.Unmarshal(b, &l.Items); err != nil {
			return err
		}
		l.Total = len(l.Items)
		return nil
	}
	var wrapped struct {
		Data  []T  `json:"data"`
		Total *int `json:"total"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	l.Items = wrapped.Data
	l.Total = len(wrapped.Data)
	if wrapped.Total != nil {
		l.Total = *wrapped.Total
	}
	return nil
}

func idPath(prefix string, id uint) string {
	return prefix + "/" + strconv.FormatUint(uint64(id), 10)
}

// Login calls POST /auth/login.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error) {
	var out models.AuthResponse
	err := c.do(ctx, request{method: http.MethodPost, route: "/auth/login", path: "/auth/login", body: creds, public: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register calls POST /auth/register.
func (c *Client) Register(ctx context.Context, in models.RegisterInput) (*models.AuthResponse, error) {
	var out models.AuthResponse
	err := c.do(ctx, request{method: http.MethodPost, route: "/auth/register", path: "/auth/register", body: in, public: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PostQueryValues encodes q, applying the defaults page=1, pageSize=10 and
// status=published to zero values. Non-zero values are sent unchanged.
func PostQueryValues(q models.PostQuery) url.Values {
	page, size, status := q.Page, q.PageSize, q.Status
	if page == 0 {
		page = 1
	}
	if size == 0 {
		size = 10
	}
	if status == "" {
		status = models.PostStatusPublished
	}
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("pageSize", strconv.Itoa(size))
	v.Set("status", status)
	if q.Tag != "" {
		v.Set("tag", q.Tag)
	}
	return v
}

// SearchQueryValues encodes q with the same defaulting as PostQueryValues.
func SearchQueryValues(q models.SearchQuery) url.Values {
	page, size := q.Page, q.PageSize
	if page == 0 {
		page = 1
	}
	if size == 0 {
		size = 10
	}
	v := url.Values{}
	v.Set("keyword", q.Keyword)
	v.Set("page", strconv.Itoa(page))
	v.Set("pageSize", strconv.Itoa(size))
	return v
}

// ListPosts calls GET /posts.
func (c *Client) ListPosts(ctx context.Context, q models.PostQuery) (*models.PostPage, error) {
	var out listOf[models.Post]
	err := c.do(ctx, request{method: http.MethodGet, route: "/posts", path: "/posts", query: PostQueryValues(q)}, &out)
	if err != nil {
		return nil, err
	}
	return &models.PostPage{Data: out.Items, Total: out.Total}, nil
}

// GetPost calls GET /posts/:id.
func (c *Client) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var out models.Post
	if err := c.do(ctx, request{method: http.MethodGet, route: "/posts/:id", path: idPath("/posts", id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePost calls POST /posts.
func (c *Client) CreatePost(ctx context.Context, in models.PostInput) (*models.Post, error) {
	var out models.Post
	if err := c.do(ctx, request{method: http.MethodPost, route: "/posts", path: "/posts", body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePost calls PUT /posts/:id.
func (c *Client) UpdatePost(ctx context.Context, id uint, in models.PostInput) (*models.Post, error) {
	var out models.Post
	if err := c.do(ctx, request{method: http.MethodPut, route: "/posts/:id", path: idPath("/posts", id), body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePost calls DELETE /posts/:id.
func (c *Client) DeletePost(ctx context.Context, id uint) error {
	return c.do(ctx, request{method: http.MethodDelete, route: "/posts/:id", path: idPath("/posts", id)}, nil)
}

// SearchPosts calls GET /posts/search.
func (c *Client) SearchPosts(ctx context.Context, q models.SearchQuery) (*models.PostPage, error) {
	var out listOf[models.Post]
	err := c.do(ctx, request{method: http.MethodGet, route: "/posts/search", path: "/posts/search", query: SearchQueryValues(q)}, &out)
	if err != nil {
		return nil, err
	}
	return &models.PostPage{Data: out.Items, Total: out.Total}, nil
}

// Archives calls GET /posts/archives.
func (c *Client) Archives(ctx context.Context) ([]models.ArchiveEntry, error) {
	var out listOf[models.ArchiveEntry]
	if err := c.do(ctx, request{method: http.MethodGet, route: "/posts/archives", path: "/posts/archives"}, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetProfile calls GET /user/profile.
func (c *Client) GetProfile(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, request{method: http.MethodGet, route: "/user/profile", path: "/user/profile"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile calls PUT /user/profile.
func (c *Client) UpdateProfile(ctx context.Context, in models.ProfileInput) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, request{method: http.MethodPut, route: "/user/profile", path: "/user/profile", body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword calls PUT /user/password.
func (c *Client) ChangePassword(ctx context.Context, in models.PasswordChange) error {
	return c.do(ctx, request{method: http.MethodPut, route: "/user/password", path: "/user/password", body: in}, nil)
}

// ListFavorites calls GET /user/favorites.
func (c *Client) ListFavorites(ctx context.Context) ([]models.Favorite, error) {
	var out listOf[models.Favorite]
	if err := c.do(ctx, request{method: http.MethodGet, route: "/user/favorites", path: "/user/favorites"}, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// AddFavorite calls POST /user/favorites.
func (c *Client) AddFavorite(ctx context.Context, postID uint) (*models.Favorite, error) {
	var out models.Favorite
	body := models.FavoriteInput{PostID: postID}
	if err := c.do(ctx, request{method: http.MethodPost, route: "/user/favorites", path: "/user/favorites", body: body}, &out); err != nil {
		return nil, err
	}
	if out.PostID == 0 {
		out.PostID = postID
	}
	return &out, nil
}

// RemoveFavorite calls DELETE /user/favorites/:id, where id is the post ID.
func (c *Client) RemoveFavorite(ctx context.Context, postID uint) error {
	return c.do(ctx, request{method: http.MethodDelete, route: "/user/favorites/:id", path: idPath("/user/favorites", postID)}, nil)
}

// ListNotifications calls GET /user/notifications.
func (c *Client) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	var out listOf[models.Notification]
	if err := c.do(ctx, request{method: http.MethodGet, route: "/user/notifications", path: "/user/notifications"}, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// MarkNotificationRead calls PUT /user/notifications/:id/read.
func (c *Client) MarkNotificationRead(ctx context.Context, id uint) error {
	path := idPath("/user/notifications", id) + "/read"
	return c.do(ctx, request{method: http.MethodPut, route: "/user/notifications/:id/read", path: path}, nil)
}

// MarkAllNotificationsRead calls PUT /user/notifications/read-all.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPut, route: "/user/notifications/read-all", path: "/user/notifications/read-all"}, nil)
}

// PopularTags calls GET /tags/popular.
func (c *Client) PopularTags(ctx context.Context) ([]models.Tag, error) {
	var out listOf[models.Tag]
	if err := c.do(ctx, request{method: http.MethodGet, route: "/tags/popular", path: "/tags/popular"}, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}
