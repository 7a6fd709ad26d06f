package server

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"blogdesk/internal/models"
	"blogdesk/internal/router"
)

type loginForm struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type registerForm struct {
	Username string `json:"username" form:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
}

type postForm struct {
	Title   string   `json:"title" form:"title" validate:"required,max=200"`
	Content string   `json:"content" form:"content" validate:"required"`
	Summary string   `json:"summary" form:"summary" validate:"max=500"`
	Cover   string   `json:"cover" form:"cover" validate:"omitempty,url"`
	Status  string   `json:"status" form:"status" validate:"omitempty,oneof=draft published"`
	Tags    []string `json:"tags" form:"tags" validate:"dive,required,max=32"`
}

func (f postForm) input() models.PostInput {
	return models.PostInput{
		Title:   f.Title,
		Content: f.Content,
		Summary: f.Summary,
		Cover:   f.Cover,
		Status:  f.Status,
		Tags:    f.Tags,
	}
}

type profileForm struct {
	Avatar  string `json:"avatar" form:"avatar" validate:"omitempty,url"`
	Bio     string `json:"bio" form:"bio" validate:"max=500"`
	Website string `json:"website" form:"website" validate:"omitempty,url"`
	Github  string `json:"github" form:"github"`
	Twitter string `json:"twitter" form:"twitter"`
}

type passwordForm struct {
	OldPassword string `json:"oldPassword" form:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" form:"newPassword" validate:"required,min=6,nefield=OldPassword"`
}

type themeForm struct {
	Theme string `json:"theme" form:"theme" validate:"required,oneof=light dark"`
}

// GetSession returns the current session and theme.
func (s *Server) GetSession(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"session": s.store.Session(),
		"theme":   s.store.Theme(),
		"unread":  s.store.UnreadNotificationsCount(),
	})
}

// Login signs in and tells the client where to go next.
func (s *Server) Login(c *fiber.Ctx) error {
	var form loginForm
	if err := s.bind(c, &form); err != nil {
		return nil
	}
	creds := models.Credentials{Username: form.Username, Password: form.Password}
	if err := s.store.Login(c.UserContext(), creds); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.Map{
		"user":     s.store.CurrentUser(),
		"redirect": router.SafeRedirect(c.Query("redirect")),
	})
}

func (s *Server) Register(c *fiber.Ctx) error {
	var form registerForm
	if err := s.bind(c, &form); err != nil {
		return nil
	}
	in := models.RegisterInput{Username: form.Username, Email: form.Email, Password: form.Password}
	if err := s.store.Register(c.UserContext(), in); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.Map{"user": s.store.CurrentUser(), "redirect": router.PathHome})
}

// Navigation returns the router's current location and history.
func (s *Server) Navigation(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"current": s.router.Current(),
		"history": s.router.History(),
	})
}

// NavigateBack returns to the previous location, re-running the guard.
func (s *Server) NavigateBack(c *fiber.Ctx) error {
	m, d, err := s.router.Back(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusLoopDetected, err.Error())
	}
	return respondOK(c, fiber.Map{
		"location": m.FullPath,
		"route":    m.Name,
		"outcome":  d.Outcome.String(),
	})
}

func (s *Server) Logout(c *fiber.Ctx) error {
	s.store.Logout(c.UserContext())
	return respondOK(c, fiber.Map{"redirect": router.PathHome})
}

func (s *Server) Revalidate(c *fiber.Ctx) error {
	if err := s.store.Revalidate(c.UserContext()); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.Map{"session": s.store.Session()})
}

func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var form profileForm
	if err := s.bind(c, &form); err != nil {
		return nil
	}
	in := models.ProfileInput{
		Avatar:  form.Avatar,
		Bio:     form.Bio,
		Website: form.Website,
		Github:  form.Github,
		Twitter: form.Twitter,
	}
	if err := s.store.UpdateProfile(c.UserContext(), in); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.Map{"user": s.store.CurrentUser()})
}

func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var form passwordForm
	if err := s.bind(c, &form); err != nil {
		return nil
	}
	if err := s.store.ChangePassword(c.UserContext(), form.OldPassword, form.NewPassword); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, nil)
}

func (s *Server) CreatePost(c *fiber.Ctx) error {
	var form postForm
	if err := s.bind(c, &form); err != nil {
		return nil
	}
	id, err := s.store.CreatePost(c.UserContext(), form.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "id": id})
}

func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var form postForm
	if err := s.bind(c, &form); err != nil {
		return nil
	}
	post, err := s.store.UpdatePost(c.UserContext(), id, form.input())
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.Map{"post": post})
}

func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.store.DeletePost(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, nil)
}

func (s *Server) AddFavorite(c *fiber.Ctx) error {
	return s.favoriteAction(c, s.store.AddFavorite)
}

func (s *Server) RemoveFavorite(c *fiber.Ctx) error {
	return s.favoriteAction(c, s.store.RemoveFavorite)
}

func (s *Server) ToggleFavorite(c *fiber.Ctx) error {
	return s.favoriteAction(c, s.store.ToggleFavorite)
}

func (s *Server) favoriteAction(c *fiber.Ctx, action func(ctx context.Context, postID uint) error) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}
	if err := action(c.UserContext(), postID); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.Map{"favorited": s.store.IsFavorited(postID)})
}

func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.store.MarkNotificationRead(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.Map{"unread": s.store.UnreadNotificationsCount()})
}

func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	if err := s.store.MarkAllNotificationsRead(c.UserContext()); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.Map{"unread": s.store.UnreadNotificationsCount()})
}

func (s *Server) SetTheme(c *fiber.Ctx) error {
	var form themeForm
	if err := s.bind(c, &form); err != nil {
		return nil
	}
	s.store.SetTheme(c.UserContext(), models.Theme(form.Theme))
	return respondOK(c, fiber.Map{"theme": s.store.Theme()})
}

func (s *Server) ToggleTheme(c *fiber.Ctx) error {
	return respondOK(c, fiber.Map{"theme": s.store.ToggleTheme(c.UserContext())})
}
