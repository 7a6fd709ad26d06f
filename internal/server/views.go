package server

import (
	"github.com/gofiber/fiber/v2"

	"blogdesk/internal/models"
	"blogdesk/internal/router"
)

// render writes a view: the matched route, its data and the shell state
// every view shows.
func (s *Server) render(c *fiber.Ctx, data fiber.Map) error {
	m, _ := c.Locals(localsRoute).(router.Match)
	return c.JSON(fiber.Map{
		"route":   m.Name,
		"title":   m.Title(),
		"params":  m.Params,
		"session": s.store.Session(),
		"unread":  s.store.UnreadNotificationsCount(),
		"theme":   s.store.Theme(),
		"data":    data,
	})
}

// viewError renders a failed store action. A 401 has already cleared the
// session and moved the router, so the view follows it.
func (s *Server) viewError(c *fiber.Ctx, err error) error {
	if models.IsAuth(err) {
		return c.Redirect(router.LoginRedirect(c.OriginalURL()), fiber.StatusFound)
	}
	return respondError(c, err)
}

func postQuery(c *fiber.Ctx) models.PostQuery {
	return models.PostQuery{
		Page:     c.QueryInt("page"),
		PageSize: c.QueryInt("pageSize"),
		Status:   c.Query("status"),
		Tag:      c.Query("tag"),
	}
}

func (s *Server) HomeView(c *fiber.Ctx) error {
	if err := s.store.FetchPosts(c.UserContext(), postQuery(c)); err != nil {
		return s.viewError(c, err)
	}
	return s.render(c, fiber.Map{"posts": s.store.Posts()})
}

func (s *Server) AuthView(c *fiber.Ctx) error {
	return s.render(c, fiber.Map{"redirect": router.SafeRedirect(c.Query("redirect"))})
}

func (s *Server) StaticView(c *fiber.Ctx) error {
	return s.render(c, fiber.Map{})
}

// PostView serves both the public detail page and the admin editor.
func (s *Server) PostView(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.store.FetchPost(c.UserContext(), id); err != nil {
		return s.viewError(c, err)
	}
	return s.render(c, fiber.Map{
		"post":      s.store.CurrentPost(),
		"favorited": s.store.IsFavorited(id),
	})
}

func (s *Server) ProfileView(c *fiber.Ctx) error {
	return s.render(c, fiber.Map{"user": s.store.CurrentUser()})
}

// UserPostsView lists the signed-in user's posts from the current page.
func (s *Server) UserPostsView(c *fiber.Ctx) error {
	if err := s.store.FetchPosts(c.UserContext(), postQuery(c)); err != nil {
		return s.viewError(c, err)
	}
	user := s.store.CurrentUser()
	var mine []models.Post
	for _, p := range s.store.Posts().Items {
		if user != nil && p.UserID == user.ID {
			mine = append(mine, p)
		}
	}
	return s.render(c, fiber.Map{"posts": mine})
}

func (s *Server) FavoritesView(c *fiber.Ctx) error {
	if err := s.store.FetchFavorites(c.UserContext()); err != nil {
		return s.viewError(c, err)
	}
	return s.render(c, fiber.Map{"favorites": s.store.Favorites()})
}

func (s *Server) NotificationsView(c *fiber.Ctx) error {
	if err := s.store.FetchNotifications(c.UserContext()); err != nil {
		return s.viewError(c, err)
	}
	return s.render(c, fiber.Map{"notifications": s.store.Notifications()})
}

func (s *Server) SearchView(c *fiber.Ctx) error {
	q := models.SearchQuery{
		Keyword:  c.Query("keyword"),
		Page:     c.QueryInt("page"),
		PageSize: c.QueryInt("pageSize"),
	}
	if q.Keyword == "" {
		return s.render(c, fiber.Map{"results": nil, "keyword": ""})
	}
	if _, err := s.store.SearchPosts(c.UserContext(), q); err != nil {
		return s.viewError(c, err)
	}
	results, keyword := s.store.SearchResults()
	return s.render(c, fiber.Map{"results": results, "keyword": keyword})
}

func (s *Server) ArchiveView(c *fiber.Ctx) error {
	if err := s.store.FetchArchives(c.UserContext()); err != nil {
		return s.viewError(c, err)
	}
	return s.render(c, fiber.Map{"archives": s.store.Archives()})
}

func (s *Server) TagsView(c *fiber.Ctx) error {
	if err := s.store.FetchPopularTags(c.UserContext()); err != nil {
		return s.viewError(c, err)
	}
	return s.render(c, fiber.Map{"tags": s.store.PopularTags()})
}

func (s *Server) DashboardView(c *fiber.Ctx) error {
	if err := s.store.FetchPosts(c.UserContext(), models.PostQuery{}); err != nil {
		return s.viewError(c, err)
	}
	return s.render(c, fiber.Map{
		"posts":  s.store.Posts().Total,
		"admin":  s.store.IsAdmin(),
		"unread": s.store.UnreadNotificationsCount(),
	})
}

func (s *Server) AdminPostsView(c *fiber.Ctx) error {
	if err := s.store.FetchPosts(c.UserContext(), postQuery(c)); err != nil {
		return s.viewError(c, err)
	}
	return s.render(c, fiber.Map{"posts": s.store.Posts()})
}

func (s *Server) NotFoundView(c *fiber.Ctx) error {
	c.Status(fiber.StatusNotFound)
	return s.render(c, fiber.Map{})
}
