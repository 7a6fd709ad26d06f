// Package store holds the client-side application state: the session, the
// cached server collections and the theme preference. A Store is built once
// per process, rehydrated with Init and torn down with Close.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"blogdesk/internal/api"
	"blogdesk/internal/models"
	"blogdesk/internal/observability"
	"blogdesk/internal/storage"
)

// LoginPath is where the 401 interceptor sends the user.
const LoginPath = "/login"

// Navigator moves the UI to another location.
type Navigator interface {
	Redirect(ctx context.Context, path string)
}

// Deps are the collaborators of a Store.
type Deps struct {
	Client    *api.Client
	Storage   storage.Storage
	Navigator Navigator
	Locale    string
	// Now defaults to time.Now; token expiry is checked against it.
	Now func() time.Time
}

// Store is the application state shared by the shell and the CLI.
//
// All fields below mu are guarded by it. mu is never held across an API
// call or a storage operation. persistMu orders writes to durable storage
// so they land in the same order as the state changes they mirror.
type Store struct {
	client  *api.Client
	storage storage.Storage
	locale  string
	now     func() time.Time

	persistMu sync.Mutex

	mu             sync.RWMutex
	nav            Navigator
	session        session
	theme          models.Theme
	themeListeners []func(models.Theme)
	posts          collection[models.Post]
	postSeq        sequence
	postFetching   map[uint]int
	currentPost    *models.Post
	favorites      favoriteSet
	notifications  notificationList
	search         collection[models.Post]
	searchKeyword  string
	archives       collection[models.ArchiveEntry]
	tags           collection[models.Tag]
}

// New wires a Store to its client: the store becomes the client's token
// source, and the client's 401 and success hooks drive the session.
func New(deps Deps) *Store {
	s := &Store{
		client:  deps.Client,
		storage: deps.Storage,
		nav:     deps.Navigator,
		locale:  deps.Locale,
		now:     deps.Now,
		theme:   models.ThemeLight,
	}
	if s.storage == nil {
		s.storage = storage.NewMemory()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if !models.SupportedLocale(s.locale) {
		s.locale = models.DefaultLocale
	}
	s.favorites.index = make(map[uint]struct{})
	s.postFetching = make(map[uint]int)

	s.client.SetTokenSource(s)
	s.client.OnUnauthorized(s.handleUnauthorized)
	s.client.OnAuthenticated(s.markVerified)
	return s
}

// Init rehydrates the session and theme from durable storage. A read
// failure leaves the affected state at its default and is returned after
// the rest of the state has been loaded.
func (s *Store) Init(ctx context.Context) error {
	return errors.Join(s.rehydrateSession(ctx), s.rehydrateTheme(ctx))
}

// Close releases durable storage.
func (s *Store) Close() error {
	s.mu.Lock()
	s.themeListeners = nil
	s.mu.Unlock()
	return s.storage.Close()
}

// finish records the outcome of action and converts err into the error the
// caller sees, substituting the localized fallback when the server sent no
// usable message.
func (s *Store) finish(ctx context.Context, log *observability.StoreLogger, resource, action string, err error) error {
	observability.RecordAction(resource, action, err)
	if err == nil {
		log.LogSuccess(ctx, action)
		return nil
	}
	log.LogFailure(ctx, action, err)

	fallback := models.FallbackMessage(s.locale, action)
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.WithFallback(fallback)
	}
	return models.NewUnhandledError(fallback, err)
}

// apply runs fn under the write lock if seq is still the newest response
// for seq's owner. A superseded response is logged, counted and dropped.
func (s *Store) apply(ctx context.Context, log *observability.StoreLogger, resource, action string, q *sequence, seq uint64, fn func()) {
	s.mu.Lock()
	applied := q.accept(seq)
	if applied {
		fn()
	}
	current := q.applied
	s.mu.Unlock()

	if !applied {
		observability.StaleResponses.WithLabelValues(resource).Inc()
		log.LogStale(ctx, action, seq, current)
	}
}

// start registers an in-flight call on q. The returned func releases it and
// must run on every path, typically deferred.
func (s *Store) start(q *sequence) (uint64, func()) {
	s.mu.Lock()
	seq := q.begin()
	s.mu.Unlock()
	return seq, func() {
		s.mu.Lock()
		q.end()
		s.mu.Unlock()
	}
}

// mutate applies a server-confirmed local change to q's state.
func (s *Store) mutate(q *sequence, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.supersede()
	fn()
}

// mutateUserCache is mutate for caches owned by the session of token. The
// change is dropped if the session ended or changed during the call.
func (s *Store) mutateUserCache(token string, q *sequence, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.token != token {
		return
	}
	q.supersede()
	fn()
}

func (s *Store) persist(ctx context.Context, log *observability.StoreLogger, key, value string) {
	if err := s.storage.Set(ctx, key, value); err != nil {
		observability.StorageErrors.WithLabelValues("set").Inc()
		log.LogStorageError(ctx, "set", key, err)
	}
}

func (s *Store) forget(ctx context.Context, log *observability.StoreLogger, key string) {
	if err := s.storage.Remove(ctx, key); err != nil {
		observability.StorageErrors.WithLabelValues("remove").Inc()
		log.LogStorageError(ctx, "remove", key, err)
	}
}
