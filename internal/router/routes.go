// Package router holds the application's route table, the navigation guard
// and the Router that tracks the current location.
package router

import (
	"net/url"
	"strings"
)

// Meta is per-route navigation metadata. A flag set on a parent applies to
// every child.
type Meta struct {
	RequiresAuth bool   `json:"requiresAuth,omitempty"`
	Guest        bool   `json:"guest,omitempty"`
	Title        string `json:"title,omitempty"`
}

// Route is one record of the route table. Child paths are relative to the
// parent; an empty child path matches the parent path itself.
type Route struct {
	Path     string
	Name     string
	Meta     Meta
	Redirect string
	Children []Route
}

// Route names.
const (
	NameHome              = "Home"
	NameLogin             = "Login"
	NameRegister          = "Register"
	NamePostDetail        = "PostDetail"
	NameUserProfile       = "UserProfile"
	NameUserPosts         = "UserPosts"
	NameUserComments      = "UserComments"
	NameUserFavorites     = "UserFavorites"
	NameUserNotifications = "UserNotifications"
	NameUserSettings      = "UserSettings"
	NameSearch            = "Search"
	NameArchive           = "Archive"
	NameTags              = "Tags"
	NameDashboard         = "Dashboard"
	NameAdminPosts        = "AdminPosts"
	NameCreatePost        = "CreatePost"
	NameEditPost          = "EditPost"
	NameNotFound          = "NotFound"
)

// Well-known locations.
const (
	PathHome  = "/"
	PathLogin = "/login"
)

// DefaultRoutes returns the application's views.
func DefaultRoutes() []Route {
	return []Route{
		{Path: "/", Name: NameHome},
		{Path: "/login", Name: NameLogin, Meta: Meta{Guest: true}},
		{Path: "/register", Name: NameRegister, Meta: Meta{Guest: true}},
		{Path: "/posts/:id", Name: NamePostDetail},
		{
			Path: "/user",
			Meta: Meta{RequiresAuth: true},
			Children: []Route{
				{Path: "profile", Name: NameUserProfile, Meta: Meta{Title: "Profile"}},
				{Path: "posts", Name: NameUserPosts, Meta: Meta{Title: "My posts"}},
				{Path: "comments", Name: NameUserComments, Meta: Meta{Title: "My comments"}},
				{Path: "favorites", Name: NameUserFavorites, Meta: Meta{Title: "Favorites"}},
				{Path: "notifications", Name: NameUserNotifications, Meta: Meta{Title: "Notifications"}},
				{Path: "settings", Name: NameUserSettings, Meta: Meta{Title: "Settings"}},
				{Path: "", Redirect: "/user/profile"},
			},
		},
		{Path: "/search", Name: NameSearch},
		{Path: "/archive", Name: NameArchive},
		{Path: "/tags", Name: NameTags},
		{
			Path: "/admin",
			Meta: Meta{RequiresAuth: true},
			Children: []Route{
				{Path: "", Name: NameDashboard},
				{Path: "posts", Name: NameAdminPosts},
				{Path: "posts/create", Name: NameCreatePost},
				{Path: "posts/edit/:id", Name: NameEditPost},
			},
		},
		{Path: "*", Name: NameNotFound},
	}
}

// Match is a resolved navigation target.
type Match struct {
	Name     string            `json:"name"`
	Path     string            `json:"path"`
	FullPath string            `json:"fullPath"`
	Query    url.Values        `json:"query,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
	Redirect string            `json:"-"`
	// Matched lists the metadata of every record from the root to the leaf.
	Matched []Meta `json:"-"`
}

// RequiresAuth reports whether any matched record requires a session.
func (m Match) RequiresAuth() bool {
	for _, meta := range m.Matched {
		if meta.RequiresAuth {
			return true
		}
	}
	return false
}

// GuestOnly reports whether any matched record is for signed-out users.
func (m Match) GuestOnly() bool {
	for _, meta := range m.Matched {
		if meta.Guest {
			return true
		}
	}
	return false
}

// Title returns the innermost non-empty title.
func (m Match) Title() string {
	for i := len(m.Matched) - 1; i >= 0; i-- {
		if m.Matched[i].Title != "" {
			return m.Matched[i].Title
		}
	}
	return ""
}

type entry struct {
	segments []string
	name     string
	redirect string
	matched  []Meta
}

// Table resolves paths against a flattened route list. Earlier routes win.
type Table struct {
	entries []entry
}

// NewTable flattens routes; only leaf records become match targets.
func NewTable(routes []Route) *Table {
	t := &Table{}
	t.add(routes, "", nil)
	return t
}

func (t *Table) add(routes []Route, prefix string, parents []Meta) {
	for _, r := range routes {
		full := joinPath(prefix, r.Path)
		chain := append(append([]Meta(nil), parents...), r.Meta)
		if len(r.Children) > 0 {
			t.add(r.Children, full, chain)
			continue
		}
		t.entries = append(t.entries, entry{
			segments: splitPath(full),
			name:     r.Name,
			redirect: r.Redirect,
			matched:  chain,
		})
	}
}

// Resolve matches fullPath, which may carry a query string.
func (t *Table) Resolve(fullPath string) (Match, bool) {
	path, rawQuery, _ := strings.Cut(fullPath, "?")
	if path == "" {
		path = "/"
	}
	query, _ := url.ParseQuery(rawQuery)
	segments := splitPath(path)

	for _, e := range t.entries {
		params, ok := matchSegments(e.segments, segments)
		if !ok {
			continue
		}
		return Match{
			Name:     e.name,
			Path:     path,
			FullPath: fullPath,
			Query:    query,
			Params:   params,
			Redirect: e.redirect,
			Matched:  e.matched,
		}, true
	}
	return Match{Path: path, FullPath: fullPath, Query: query}, false
}

func matchSegments(pattern, segments []string) (map[string]string, bool) {
	var params map[string]string
	for i, p := range pattern {
		if p == "*" {
			return params, true
		}
		if i >= len(segments) {
			return nil, false
		}
		if strings.HasPrefix(p, ":") {
			if params == nil {
				params = make(map[string]string)
			}
			v, err := url.PathUnescape(segments[i])
			if err != nil {
				return nil, false
			}
			params[p[1:]] = v
			continue
		}
		if p != segments[i] {
			return nil, false
		}
	}
	return params, len(pattern) == len(segments)
}

func joinPath(prefix, p string) string {
	if p == "" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	if strings.HasPrefix(p, "/") || p == "*" {
		return p
	}
	return strings.TrimRight(prefix, "/") + "/" + p
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
