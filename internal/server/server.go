// Package server is the navigation shell: a local Fiber app whose GET routes
// are the application's views, gated by the route guard, and whose /api
// routes run store actions.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"blogdesk/internal/config"
	"blogdesk/internal/models"
	"blogdesk/internal/observability"
	"blogdesk/internal/router"
	"blogdesk/internal/store"
)

// shellMetrics registers the Fiber collectors on the default registry,
// which allows a single instance per process.
var shellMetrics = sync.OnceValue(func() *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New("blogdesk-shell")
})

// Server holds the shell's dependencies.
type Server struct {
	config   *config.Config
	store    *store.Store
	router   *router.Router
	app      *fiber.App
	prom     *fiberprometheus.FiberPrometheus
	validate *validator.Validate
	theme    atomic.Value
}

// NewServer builds the shell around an initialized store and router.
func NewServer(cfg *config.Config, st *store.Store, rt *router.Router) *Server {
	s := &Server{
		config:   cfg,
		store:    st,
		router:   rt,
		prom:     shellMetrics(),
		validate: newValidator(),
	}
	s.theme.Store(st.Theme())
	st.OnThemeChange(func(t models.Theme) { s.theme.Store(t) })

	app := fiber.New(fiber.Config{
		AppName:               "blogdesk",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return s
}

// App returns the Fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(TracingMiddleware())
	app.Use(ContextMiddleware())
	app.Use(s.prom.Middleware)
	app.Use(StructuredLogger())
	app.Use(s.themeHeader())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	s.prom.RegisterAt(app, "/metrics")
	app.Get("/health", s.Health)

	api := app.Group("/api")
	api.Get("/session", s.GetSession)
	api.Post("/login", s.Login)
	api.Post("/register", s.Register)
	api.Post("/logout", s.Logout)
	api.Put("/theme", s.SetTheme)
	api.Post("/theme/toggle", s.ToggleTheme)
	api.Get("/navigation", s.Navigation)
	api.Post("/navigation/back", s.NavigateBack)

	protected := api.Group("", s.SessionRequired())
	protected.Post("/session/revalidate", s.Revalidate)
	protected.Put("/profile", s.UpdateProfile)
	protected.Put("/password", s.ChangePassword)

	posts := protected.Group("/posts")
	posts.Post("/", s.CreatePost)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	favorites := protected.Group("/favorites")
	favorites.Post("/:postId/toggle", s.ToggleFavorite)
	favorites.Post("/:postId", s.AddFavorite)
	favorites.Delete("/:postId", s.RemoveFavorite)

	// Specific read-all before generic /:id/read
	notifications := protected.Group("/notifications")
	notifications.Put("/read-all", s.MarkAllNotificationsRead)
	notifications.Put("/:id/read", s.MarkNotificationRead)

	// Views. The guard resolves every request against the route table.
	guard := s.Guard()
	app.Get("/", guard, s.HomeView)
	app.Get("/login", guard, s.AuthView)
	app.Get("/register", guard, s.AuthView)
	app.Get("/posts/:id", guard, s.PostView)
	app.Get("/user", guard)
	app.Get("/user/profile", guard, s.ProfileView)
	app.Get("/user/posts", guard, s.UserPostsView)
	app.Get("/user/comments", guard, s.StaticView)
	app.Get("/user/favorites", guard, s.FavoritesView)
	app.Get("/user/notifications", guard, s.NotificationsView)
	app.Get("/user/settings", guard, s.ProfileView)
	app.Get("/search", guard, s.SearchView)
	app.Get("/archive", guard, s.ArchiveView)
	app.Get("/tags", guard, s.TagsView)
	app.Get("/admin", guard, s.DashboardView)
	app.Get("/admin/posts", guard, s.AdminPostsView)
	app.Get("/admin/posts/create", guard, s.StaticView)
	app.Get("/admin/posts/edit/:id", guard, s.PostView)
	app.Get("/*", guard, s.NotFoundView)
}

// Health reports liveness and the configured backend.
func (s *Server) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
		"api":    s.config.APIBaseURL,
	})
}

// Run serves on the configured port until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := ":" + s.config.Port
	errCh := make(chan error, 1)
	go func() {
		observability.Logger.Info("shell listening", "addr", addr)
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	observability.Logger.Info("shutting down shell")
	if err := s.app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.Result{Message: fe.Message})
	}
	return respondError(c, err)
}
