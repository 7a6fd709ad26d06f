package store

import (
	"context"

	"blogdesk/internal/models"
	"blogdesk/internal/observability"
)

const resourceFavorites = "favorites"

var favoritesLog = observability.NewStoreLogger(resourceFavorites)

// favoriteSet keeps index in step with items, keyed by post ID.
type favoriteSet struct {
	collection[models.Favorite]
	index map[uint]struct{}
}

func (f *favoriteSet) replace(items []models.Favorite) {
	f.index = make(map[uint]struct{}, len(items))
	kept := make([]models.Favorite, 0, len(items))
	for _, fav := range items {
		if _, dup := f.index[fav.PostID]; dup {
			continue
		}
		f.index[fav.PostID] = struct{}{}
		kept = append(kept, fav)
	}
	f.collection.replace(kept, len(kept))
}

func (f *favoriteSet) add(fav models.Favorite) {
	if _, ok := f.index[fav.PostID]; ok {
		return
	}
	f.index[fav.PostID] = struct{}{}
	f.items = append(f.items, fav)
	f.total++
}

func (f *favoriteSet) remove(postID uint) {
	if _, ok := f.index[postID]; !ok {
		return
	}
	delete(f.index, postID)
	kept := f.items[:0:0]
	for _, fav := range f.items {
		if fav.PostID != postID {
			kept = append(kept, fav)
		}
	}
	f.items = kept
	f.total = len(kept)
}

func (f *favoriteSet) reset() {
	f.collection.reset()
	f.index = make(map[uint]struct{})
}

// Favorites returns the cached favorites of the signed-in user.
func (s *Store) Favorites() Collection[models.Favorite] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.favorites.snapshot()
}

// IsFavorited reports whether postID is in the cached favorites.
func (s *Store) IsFavorited(postID uint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.favorites.index[postID]
	return ok
}

// FetchFavorites replaces the cached favorites.
func (s *Store) FetchFavorites(ctx context.Context) error {
	seq, done := s.start(&s.favorites.sequence)
	defer done()

	items, err := s.client.ListFavorites(ctx)
	if err == nil {
		s.apply(ctx, favoritesLog, resourceFavorites, models.ActionFetchFavorites, &s.favorites.sequence, seq, func() {
			s.favorites.replace(items)
		})
	}
	return s.finish(ctx, favoritesLog, resourceFavorites, models.ActionFetchFavorites, err)
}

// AddFavorite favorites postID and, once the server confirms, adds it to
// the cache.
func (s *Store) AddFavorite(ctx context.Context, postID uint) error {
	token := s.Token()
	_, done := s.start(&s.favorites.sequence)
	defer done()

	fav, err := s.client.AddFavorite(ctx, postID)
	if err == nil {
		s.mutateUserCache(token, &s.favorites.sequence, func() {
			if fav.Post == nil {
				fav.Post = s.cachedPost(postID)
			}
			s.favorites.add(*fav)
		})
	}
	return s.finish(ctx, favoritesLog, resourceFavorites, models.ActionAddFavorite, err)
}

// RemoveFavorite unfavorites postID. The cache is only touched after the
// server confirms.
func (s *Store) RemoveFavorite(ctx context.Context, postID uint) error {
	token := s.Token()
	_, done := s.start(&s.favorites.sequence)
	defer done()

	err := s.client.RemoveFavorite(ctx, postID)
	if err == nil {
		s.mutateUserCache(token, &s.favorites.sequence, func() {
			s.favorites.remove(postID)
		})
	}
	return s.finish(ctx, favoritesLog, resourceFavorites, models.ActionRemoveFavorite, err)
}

// ToggleFavorite adds or removes postID depending on its cached state.
func (s *Store) ToggleFavorite(ctx context.Context, postID uint) error {
	if s.IsFavorited(postID) {
		return s.RemoveFavorite(ctx, postID)
	}
	return s.AddFavorite(ctx, postID)
}

// cachedPost must be called with mu held.
func (s *Store) cachedPost(id uint) *models.Post {
	if s.currentPost != nil && s.currentPost.ID == id {
		cp := *s.currentPost
		return &cp
	}
	for _, p := range s.posts.items {
		if p.ID == id {
			cp := p
			return &cp
		}
	}
	return nil
}
