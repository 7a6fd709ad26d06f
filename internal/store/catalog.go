package store

import (
	"context"

	"blogdesk/internal/models"
	"blogdesk/internal/observability"
)

const (
	resourceSearch   = "search"
	resourceArchives = "archives"
	resourceTags     = "tags"
)

var (
	searchLog   = observability.NewStoreLogger(resourceSearch)
	archivesLog = observability.NewStoreLogger(resourceArchives)
	tagsLog     = observability.NewStoreLogger(resourceTags)
)

// SearchResults returns the cached results of the last applied search and
// its keyword.
func (s *Store) SearchResults() (Collection[models.Post], string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.search.snapshot(), s.searchKeyword
}

// SearchPosts runs a keyword search and returns the total hit count.
func (s *Store) SearchPosts(ctx context.Context, q models.SearchQuery) (int, error) {
	seq, done := s.start(&s.search.sequence)
	defer done()

	page, err := s.client.SearchPosts(ctx, q)
	if err != nil {
		return 0, s.finish(ctx, searchLog, resourceSearch, models.ActionSearchPosts, err)
	}
	s.apply(ctx, searchLog, resourceSearch, models.ActionSearchPosts, &s.search.sequence, seq, func() {
		s.search.replace(page.Data, page.Total)
		s.searchKeyword = q.Keyword
	})
	return page.Total, s.finish(ctx, searchLog, resourceSearch, models.ActionSearchPosts, nil)
}

func (s *Store) Archives() Collection[models.ArchiveEntry] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.archives.snapshot()
}

// FetchArchives replaces the cached archive months.
func (s *Store) FetchArchives(ctx context.Context) error {
	seq, done := s.start(&s.archives.sequence)
	defer done()

	items, err := s.client.Archives(ctx)
	if err == nil {
		s.apply(ctx, archivesLog, resourceArchives, models.ActionFetchArchives, &s.archives.sequence, seq, func() {
			s.archives.replace(items, len(items))
		})
	}
	return s.finish(ctx, archivesLog, resourceArchives, models.ActionFetchArchives, err)
}

func (s *Store) PopularTags() Collection[models.Tag] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tags.snapshot()
}

// FetchPopularTags replaces the cached popular tags.
func (s *Store) FetchPopularTags(ctx context.Context) error {
	seq, done := s.start(&s.tags.sequence)
	defer done()

	items, err := s.client.PopularTags(ctx)
	if err == nil {
		s.apply(ctx, tagsLog, resourceTags, models.ActionFetchPopularTags, &s.tags.sequence, seq, func() {
			s.tags.replace(items, len(items))
		})
	}
	return s.finish(ctx, tagsLog, resourceTags, models.ActionFetchPopularTags, err)
}
