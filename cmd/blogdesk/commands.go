package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"blogdesk/internal/models"
	"blogdesk/internal/observability"
	"blogdesk/internal/server"
)

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// result prints the outcome of a store action and returns its error.
func (a *app) result(err error) error {
	if perr := a.printJSON(models.ResultOf(err)); perr != nil {
		return perr
	}
	return err
}

func cmdServe(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("serve")
	port := fs.String("port", a.cfg.Port, "listen port (overrides PORT)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a.cfg.Port = *port

	// A rehydrated session stays unverified until the backend accepts it.
	if a.store.IsAuthenticated() {
		if err := a.store.Revalidate(ctx); err != nil {
			observability.Logger.WarnContext(ctx, "session revalidation failed", "error", err)
		}
	}

	srv := server.NewServer(a.cfg, a.store, a.router)
	return srv.Run(ctx)
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login")
	var creds models.Credentials
	fs.StringVarP(&creds.Username, "username", "u", "", "account username")
	fs.StringVarP(&creds.Password, "password", "p", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if creds.Username == "" || creds.Password == "" {
		return fmt.Errorf("--username and --password are required")
	}
	return a.result(a.store.Login(ctx, creds))
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("register")
	var in models.RegisterInput
	fs.StringVarP(&in.Username, "username", "u", "", "account username")
	fs.StringVarP(&in.Email, "email", "e", "", "account email")
	fs.StringVarP(&in.Password, "password", "p", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return fmt.Errorf("--username, --email and --password are required")
	}
	return a.result(a.store.Register(ctx, in))
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	a.store.Logout(ctx)
	return a.result(nil)
}

func cmdWhoami(ctx context.Context, a *app, _ []string) error {
	if !a.store.IsAuthenticated() {
		return a.printJSON(a.store.Session())
	}
	if err := a.store.Revalidate(ctx); err != nil {
		return a.result(err)
	}
	return a.printJSON(a.store.Session())
}

func cmdPosts(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("posts")
	var q models.PostQuery
	fs.IntVar(&q.Page, "page", 1, "page number")
	fs.IntVar(&q.PageSize, "page-size", 10, "posts per page")
	fs.StringVar(&q.Status, "status", "published", "post status")
	fs.StringVar(&q.Tag, "tag", "", "filter by tag")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.store.FetchPosts(ctx, q); err != nil {
		return a.result(err)
	}
	return a.printJSON(a.store.Posts())
}

func cmdNotifications(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("notifications")
	read := fs.Uint("read", 0, "mark the notification with this id as read")
	markAll := fs.Bool("mark-all", false, "mark every notification as read")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !a.store.IsAuthenticated() {
		return fmt.Errorf("not signed in (run blogdesk login)")
	}

	switch {
	case *markAll:
		return a.result(a.store.MarkAllNotificationsRead(ctx))
	case *read != 0:
		return a.result(a.store.MarkNotificationRead(ctx, *read))
	}

	if err := a.store.FetchNotifications(ctx); err != nil {
		return a.result(err)
	}
	return a.printJSON(struct {
		Notifications []models.Notification `json:"notifications"`
		Unread        int                   `json:"unread"`
	}{a.store.Notifications().Items, a.store.UnreadNotificationsCount()})
}

func cmdTheme(ctx context.Context, a *app, args []string) error {
	var theme models.Theme
	switch {
	case len(args) == 0:
		theme = a.store.Theme()
	case args[0] == "toggle":
		theme = a.store.ToggleTheme(ctx)
	case args[0] == string(models.ThemeLight), args[0] == string(models.ThemeDark):
		a.store.SetTheme(ctx, models.Theme(args[0]))
		theme = a.store.Theme()
	default:
		return fmt.Errorf("unknown theme %q (want light, dark or toggle)", args[0])
	}
	return a.printJSON(map[string]models.Theme{"theme": theme})
}
