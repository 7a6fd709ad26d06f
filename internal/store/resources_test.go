package store

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogdesk/internal/api"
	"blogdesk/internal/models"
	"blogdesk/internal/storage"
)

func TestFetchPostsLastIssuedWins(t *testing.T) {
	first := make(chan struct{})
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			close(first)
			<-release
			writeJSON(w, http.StatusOK, models.PostPage{Data: []models.Post{fakePost(1)}, Total: 1})
		default:
			writeJSON(w, http.StatusOK, models.PostPage{Data: []models.Post{fakePost(2), fakePost(3)}, Total: 2})
		}
	})
	f := newFixture(t, mux, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		slowErr = f.store.FetchPosts(ctx, models.PostQuery{Page: 1})
	}()
	<-first
	assert.True(t, f.store.Posts().Loading)

	require.NoError(t, f.store.FetchPosts(ctx, models.PostQuery{Page: 2}))
	assert.True(t, f.store.Posts().Loading, "older call is still in flight")

	close(release)
	wg.Wait()
	require.NoError(t, slowErr)

	posts := f.store.Posts()
	assert.False(t, posts.Loading)
	assert.Equal(t, 2, posts.Total)
	require.Len(t, posts.Items, 2)
	assert.Equal(t, uint(2), posts.Items[0].ID)
}

func TestFetchFailureLeavesCacheAndResetsLoading(t *testing.T) {
	fail := false
	var mu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tags/popular", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			writeError(w, http.StatusServiceUnavailable, "tag service down")
			return
		}
		writeJSON(w, http.StatusOK, []models.Tag{{ID: 1, Name: "go", Count: 9}})
	})
	f := newFixture(t, mux, nil)
	ctx := context.Background()

	require.NoError(t, f.store.FetchPopularTags(ctx))
	mu.Lock()
	fail = true
	mu.Unlock()

	err := f.store.FetchPopularTags(ctx)
	require.Error(t, err)
	assert.Equal(t, models.Result{Message: "tag service down"}, models.ResultOf(err))

	tags := f.store.PopularTags()
	assert.False(t, tags.Loading)
	require.Len(t, tags.Items, 1)
	assert.Equal(t, "go", tags.Items[0].Name)
}

func TestPostLifecycle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.PostPage{Data: []models.Post{fakePost(1), fakePost(2)}, Total: 12})
	})
	mux.HandleFunc("GET /posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "2" {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeJSON(w, http.StatusOK, fakePost(2))
	})
	mux.HandleFunc("POST /posts", func(w http.ResponseWriter, r *http.Request) {
		p := fakePost(13)
		writeJSON(w, http.StatusCreated, p)
	})
	mux.HandleFunc("PUT /posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		p := fakePost(2)
		p.Title = "edited"
		writeJSON(w, http.StatusOK, p)
	})
	mux.HandleFunc("DELETE /posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	f := newFixture(t, mux, nil)
	ctx := context.Background()
	seedSession(t, f, "t1", fakeUser(1, models.RoleAdmin))

	require.NoError(t, f.store.FetchPosts(ctx, models.PostQuery{}))
	require.NoError(t, f.store.FetchPost(ctx, 2))
	require.NotNil(t, f.store.CurrentPost())
	assert.False(t, f.store.PostLoading())

	err := f.store.FetchPost(ctx, 99)
	require.Error(t, err)
	assert.Equal(t, "post not found", models.ResultOf(err).Message)
	assert.Equal(t, uint(2), f.store.CurrentPost().ID, "failed fetch keeps the current post")

	id, err := f.store.CreatePost(ctx, models.PostInput{Title: "new", Content: "body"})
	require.NoError(t, err)
	assert.Equal(t, uint(13), id)
	posts := f.store.Posts()
	assert.Equal(t, 13, posts.Total)
	assert.Len(t, posts.Items, 3)

	updated, err := f.store.UpdatePost(ctx, 2, models.PostInput{Title: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Title)
	assert.Equal(t, "edited", f.store.CurrentPost().Title)
	assert.Equal(t, "edited", f.store.Posts().Items[1].Title)

	require.NoError(t, f.store.DeletePost(ctx, 2))
	posts = f.store.Posts()
	assert.Equal(t, 12, posts.Total)
	assert.Len(t, posts.Items, 2)
	assert.Nil(t, f.store.CurrentPost())
	for _, p := range posts.Items {
		assert.NotEqual(t, uint(2), p.ID)
	}
}

func TestMutationSupersedesEarlierFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		writeJSON(w, http.StatusOK, models.PostPage{Data: []models.Post{fakePost(1)}, Total: 1})
	})
	mux.HandleFunc("POST /posts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, fakePost(2))
	})
	f := newFixture(t, mux, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- f.store.FetchPosts(ctx, models.PostQuery{}) }()
	<-started

	_, err := f.store.CreatePost(ctx, models.PostInput{Title: "t"})
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-done)

	posts := f.store.Posts()
	require.Len(t, posts.Items, 1)
	assert.Equal(t, uint(2), posts.Items[0].ID, "fetch issued before the create is discarded")
}

func TestDeleteDiscardsEarlierPostFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		writeJSON(w, http.StatusOK, fakePost(7))
	})
	mux.HandleFunc("DELETE /posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	f := newFixture(t, mux, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- f.store.FetchPost(ctx, 7) }()
	<-started

	require.NoError(t, f.store.DeletePost(ctx, 7))
	close(release)
	require.NoError(t, <-done)

	assert.Nil(t, f.store.CurrentPost(), "a deleted post is not restored by an older fetch")
	assert.False(t, f.store.PostLoading())
}

func TestUpdateWinsOverEarlierPostFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		p := fakePost(7)
		p.Title = "before"
		writeJSON(w, http.StatusOK, p)
	})
	mux.HandleFunc("PUT /posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		p := fakePost(7)
		p.Title = "after"
		writeJSON(w, http.StatusOK, p)
	})
	f := newFixture(t, mux, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- f.store.FetchPost(ctx, 7) }()
	<-started

	_, err := f.store.UpdatePost(ctx, 7, models.PostInput{Title: "after"})
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-done)

	cur := f.store.CurrentPost()
	require.NotNil(t, cur)
	assert.Equal(t, "after", cur.Title)
}

func TestUnrelatedPostFetchSurvivesDelete(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		writeJSON(w, http.StatusOK, fakePost(8))
	})
	mux.HandleFunc("DELETE /posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	f := newFixture(t, mux, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- f.store.FetchPost(ctx, 8) }()
	<-started

	require.NoError(t, f.store.DeletePost(ctx, 7))
	close(release)
	require.NoError(t, <-done)

	cur := f.store.CurrentPost()
	require.NotNil(t, cur)
	assert.Equal(t, uint(8), cur.ID)
}

func TestDeleteDiscardsEarlierSearch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts/search", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		writeJSON(w, http.StatusOK, models.PostPage{Data: []models.Post{fakePost(7)}, Total: 1})
	})
	mux.HandleFunc("DELETE /posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	f := newFixture(t, mux, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := f.store.SearchPosts(ctx, models.SearchQuery{Keyword: "x"})
		done <- err
	}()
	<-started

	require.NoError(t, f.store.DeletePost(ctx, 7))
	close(release)
	require.NoError(t, <-done)

	results, _ := f.store.SearchResults()
	assert.Empty(t, results.Items)
	assert.False(t, results.Loading)
}

func TestFavorites(t *testing.T) {
	var mu sync.Mutex
	failDelete := false

	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/favorites", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []models.Favorite{
			{ID: 1, PostID: 5},
			{ID: 2, PostID: 6},
			{ID: 3, PostID: 5},
		}})
	})
	mux.HandleFunc("POST /user/favorites", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, models.Favorite{ID: 9, PostID: 7})
	})
	mux.HandleFunc("DELETE /user/favorites/{id}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if failDelete {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	f := newFixture(t, mux, nil)
	ctx := context.Background()
	seedSession(t, f, "t1", fakeUser(1, models.RoleUser))

	require.NoError(t, f.store.FetchFavorites(ctx))
	favs := f.store.Favorites()
	assert.Len(t, favs.Items, 2, "duplicate post IDs collapse")
	assert.True(t, f.store.IsFavorited(5))
	assert.True(t, f.store.IsFavorited(6))
	assert.False(t, f.store.IsFavorited(7))

	require.NoError(t, f.store.AddFavorite(ctx, 7))
	assert.True(t, f.store.IsFavorited(7))
	assert.Equal(t, 3, f.store.Favorites().Total)

	require.NoError(t, f.store.ToggleFavorite(ctx, 6))
	assert.False(t, f.store.IsFavorited(6))
	assert.Len(t, f.store.Favorites().Items, 2)

	mu.Lock()
	failDelete = true
	mu.Unlock()
	before := f.store.Favorites()

	err := f.store.RemoveFavorite(ctx, 5)
	require.Error(t, err)
	assert.Equal(t, models.Result{Success: false, Message: "Failed to remove favorite"}, models.ResultOf(err))
	assert.Equal(t, before, f.store.Favorites())
	assert.True(t, f.store.IsFavorited(5))
}

func TestFavoriteConfirmedAfterLogoutIsDropped(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /user/favorites", func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		writeJSON(w, http.StatusCreated, models.Favorite{ID: 9, PostID: 7})
	})
	f := newFixture(t, mux, nil)
	ctx := context.Background()
	seedSession(t, f, "t1", fakeUser(1, models.RoleUser))

	errc := make(chan error, 1)
	go func() { errc <- f.store.AddFavorite(ctx, 7) }()
	<-arrived

	f.store.Logout(ctx)
	close(release)
	require.NoError(t, <-errc)

	assert.False(t, f.store.IsFavorited(7))
	assert.Empty(t, f.store.Favorites().Items)
	assert.False(t, f.store.Favorites().Loading)
}

func TestNotificationUnreadInvariant(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/notifications", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":1,"type":"comment","content":"a","read":false},
			{"id":2,"type":"like","content":"b","isRead":true},
			{"id":3,"type":"reply","content":"c","isRead":false},
			{"id":4,"type":"system","content":"d"}
		]`))
	})
	mux.HandleFunc("PUT /user/notifications/{id}/read", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PUT /user/notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	f := newFixture(t, mux, nil)
	ctx := context.Background()
	seedSession(t, f, "t1", fakeUser(1, models.RoleUser))

	check := func() {
		t.Helper()
		unread := 0
		for _, n := range f.store.Notifications().Items {
			if !n.Read {
				unread++
			}
		}
		assert.Equal(t, unread, f.store.UnreadNotificationsCount())
		assert.Equal(t, unread > 0, f.store.HasUnreadNotifications())
	}

	require.NoError(t, f.store.FetchNotifications(ctx))
	assert.Equal(t, 3, f.store.UnreadNotificationsCount())
	check()

	require.NoError(t, f.store.MarkNotificationRead(ctx, 1))
	assert.Equal(t, 2, f.store.UnreadNotificationsCount())
	check()

	require.NoError(t, f.store.MarkNotificationRead(ctx, 1))
	require.NoError(t, f.store.MarkNotificationRead(ctx, 2))
	assert.Equal(t, 2, f.store.UnreadNotificationsCount(), "already-read items do not change the count")
	check()

	for range 2 {
		require.NoError(t, f.store.MarkAllNotificationsRead(ctx))
		assert.Zero(t, f.store.UnreadNotificationsCount())
		check()
	}
}

func TestSearchAndArchives(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gopher", r.URL.Query().Get("keyword"))
		writeJSON(w, http.StatusOK, models.PostPage{Data: []models.Post{fakePost(4)}, Total: 31})
	})
	mux.HandleFunc("GET /posts/archives", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.ArchiveEntry{
			{Year: 2026, Month: 9, Count: 3},
			{Year: 2026, Month: 8, Count: 1},
		})
	})
	f := newFixture(t, mux, nil)
	ctx := context.Background()

	total, err := f.store.SearchPosts(ctx, models.SearchQuery{Keyword: "gopher"})
	require.NoError(t, err)
	assert.Equal(t, 31, total)
	results, keyword := f.store.SearchResults()
	assert.Equal(t, "gopher", keyword)
	assert.Len(t, results.Items, 1)

	require.NoError(t, f.store.FetchArchives(ctx))
	archives := f.store.Archives()
	assert.Equal(t, 2, archives.Total)
	assert.Equal(t, 9, archives.Items[0].Month)
}

func TestThemeRoundTrip(t *testing.T) {
	f := newFixture(t, http.NewServeMux(), nil)
	ctx := context.Background()
	require.NoError(t, f.store.Init(ctx))
	assert.Equal(t, models.ThemeLight, f.store.Theme())

	var seen []models.Theme
	f.store.OnThemeChange(func(th models.Theme) { seen = append(seen, th) })

	f.store.SetTheme(ctx, models.ThemeDark)
	assert.True(t, f.store.IsDarkMode())

	reloaded := New(Deps{Client: api.New(f.store.client.BaseURL()), Storage: f.storage})
	require.NoError(t, reloaded.Init(ctx))
	assert.Equal(t, models.ThemeDark, reloaded.Theme())

	assert.Equal(t, models.ThemeLight, f.store.ToggleTheme(ctx))
	f.store.SetTheme(ctx, models.Theme("sepia"))
	assert.Equal(t, []models.Theme{models.ThemeDark, models.ThemeLight, models.ThemeLight}, seen)
}

func TestThemeStorageFailureStillApplies(t *testing.T) {
	st := &flakyStorage{Storage: storage.NewMemory()}
	st.setFailing(true)
	f := newFixture(t, http.NewServeMux(), st)

	f.store.SetTheme(context.Background(), models.ThemeDark)
	assert.True(t, f.store.IsDarkMode())
}

func TestLoadingFlagResetOnCancel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts/archives", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	f := newFixture(t, mux, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := f.store.FetchArchives(ctx)
	require.Error(t, err)
	assert.Equal(t, models.KindNetwork, models.KindOf(err))
	assert.False(t, f.store.Archives().Loading)
}
