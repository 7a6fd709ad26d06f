package store

import (
	"context"

	"blogdesk/internal/models"
	"blogdesk/internal/observability"
)

const resourcePosts = "posts"

var postsLog = observability.NewStoreLogger(resourcePosts)

// Posts returns the cached post listing.
func (s *Store) Posts() Collection[models.Post] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.posts.snapshot()
}

// CurrentPost returns a copy of the post loaded by FetchPost, or nil.
func (s *Store) CurrentPost() *models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentPost == nil {
		return nil
	}
	cp := *s.currentPost
	return &cp
}

// PostLoading reports whether a FetchPost call is in flight.
func (s *Store) PostLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.postSeq.loading()
}

// FetchPosts replaces the cached listing with one page from the server.
// Query values are passed through unvalidated.
func (s *Store) FetchPosts(ctx context.Context, q models.PostQuery) error {
	seq, done := s.start(&s.posts.sequence)
	defer done()

	page, err := s.client.ListPosts(ctx, q)
	if err == nil {
		s.apply(ctx, postsLog, resourcePosts, models.ActionFetchPosts, &s.posts.sequence, seq, func() {
			s.posts.replace(page.Data, page.Total)
		})
	}
	return s.finish(ctx, postsLog, resourcePosts, models.ActionFetchPosts, err)
}

// FetchPost loads a single post into CurrentPost.
func (s *Store) FetchPost(ctx context.Context, id uint) error {
	s.mu.Lock()
	seq := s.postSeq.begin()
	s.postFetching[id]++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.postSeq.end()
		if s.postFetching[id]--; s.postFetching[id] <= 0 {
			delete(s.postFetching, id)
		}
		s.mu.Unlock()
	}()

	post, err := s.client.GetPost(ctx, id)
	if err == nil {
		s.apply(ctx, postsLog, resourcePosts, models.ActionFetchPost, &s.postSeq, seq, func() {
			s.currentPost = post
		})
	}
	return s.finish(ctx, postsLog, resourcePosts, models.ActionFetchPost, err)
}

// CreatePost creates a post and appends it to the cached listing.
func (s *Store) CreatePost(ctx context.Context, in models.PostInput) (uint, error) {
	_, done := s.start(&s.posts.sequence)
	defer done()

	post, err := s.client.CreatePost(ctx, in)
	if err != nil {
		return 0, s.finish(ctx, postsLog, resourcePosts, models.ActionCreatePost, err)
	}
	s.mutate(&s.posts.sequence, func() {
		s.posts.items = append(s.posts.items, *post)
		s.posts.total++
	})
	return post.ID, s.finish(ctx, postsLog, resourcePosts, models.ActionCreatePost, nil)
}

// UpdatePost saves a post and patches every cached copy of it.
func (s *Store) UpdatePost(ctx context.Context, id uint, in models.PostInput) (models.Post, error) {
	_, done := s.start(&s.posts.sequence)
	defer done()

	post, err := s.client.UpdatePost(ctx, id, in)
	if err != nil {
		return models.Post{}, s.finish(ctx, postsLog, resourcePosts, models.ActionUpdatePost, err)
	}
	if post.ID == 0 {
		post.ID = id
	}
	s.mutate(&s.posts.sequence, func() {
		replacePost(s.posts.items, *post)
		replacePost(s.search.items, *post)
		if s.supersedePost(post.ID) {
			cp := *post
			s.currentPost = &cp
		}
	})
	return *post, s.finish(ctx, postsLog, resourcePosts, models.ActionUpdatePost, nil)
}

// DeletePost deletes a post on the server, then drops it from the caches.
func (s *Store) DeletePost(ctx context.Context, id uint) error {
	_, done := s.start(&s.posts.sequence)
	defer done()

	err := s.client.DeletePost(ctx, id)
	if err == nil {
		s.mutate(&s.posts.sequence, func() {
			s.posts.items, s.posts.total = removePost(s.posts.items, s.posts.total, id)
			s.search.items, s.search.total = removePost(s.search.items, s.search.total, id)
			if s.supersedePost(id) && s.currentPost != nil && s.currentPost.ID == id {
				s.currentPost = nil
			}
		})
	}
	return s.finish(ctx, postsLog, resourcePosts, models.ActionDeletePost, err)
}

// supersedePost discards in-flight responses that could carry an older
// copy of post id: every search, and any FetchPost of id. It reports
// whether id is, or is about to become, the current post. mu must be held.
func (s *Store) supersedePost(id uint) bool {
	s.search.supersede()
	fetching := s.postFetching[id] > 0
	if fetching {
		s.postSeq.supersede()
	}
	return fetching || (s.currentPost != nil && s.currentPost.ID == id)
}

func replacePost(items []models.Post, post models.Post) {
	for i := range items {
		if items[i].ID == post.ID {
			items[i] = post
		}
	}
}

func removePost(items []models.Post, total int, id uint) ([]models.Post, int) {
	kept := items[:0:0]
	for _, p := range items {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if removed := len(items) - len(kept); removed > 0 && total >= removed {
		total -= removed
	}
	return kept, total
}
