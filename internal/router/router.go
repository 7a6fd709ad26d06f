package router

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"blogdesk/internal/observability"
)

// maxRedirects bounds chained route and guard redirects.
const maxRedirects = 5

// Session is the part of the session the guard reads.
type Session interface {
	IsAuthenticated() bool
}

// Router tracks the current location and applies the guard on every
// navigation. It implements the navigator used by the 401 interceptor.
type Router struct {
	table *Table

	mu      sync.RWMutex
	session Session
	current Match
	history []string
}

// New returns a Router positioned at "/". Bind must be called before
// guarded routes can be entered.
func New(table *Table) *Router {
	home, _ := table.Resolve(PathHome)
	return &Router{table: table, current: home, history: []string{PathHome}}
}

// Bind sets the session consulted by the guard.
func (r *Router) Bind(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = s
}

// Table returns the route table.
func (r *Router) Table() *Table { return r.table }

func (r *Router) authenticated() bool {
	r.mu.RLock()
	s := r.session
	r.mu.RUnlock()
	return s != nil && s.IsAuthenticated()
}

// Resolve runs route redirects and the guard for fullPath without moving.
// It returns the final match and the last guard decision that redirected,
// or an Allowed decision when none did.
func (r *Router) Resolve(fullPath string) (Match, Decision, error) {
	decision := Decision{Outcome: Allowed}
	target := fullPath
	for range maxRedirects {
		m, _ := r.table.Resolve(target)
		if m.Redirect != "" {
			target = m.Redirect
			continue
		}
		d := Guard(m, r.authenticated())
		if d.Outcome == Allowed {
			return m, decision, nil
		}
		decision = d
		target = d.Location
	}
	return Match{}, decision, fmt.Errorf("too many redirects navigating to %q", fullPath)
}

// Push navigates to fullPath, following redirects, and records the final
// location in the history.
func (r *Router) Push(ctx context.Context, fullPath string) (Match, Decision, error) {
	m, d, err := r.Resolve(fullPath)
	if err != nil {
		return Match{}, d, err
	}

	r.mu.Lock()
	r.current = m
	r.history = append(r.history, m.FullPath)
	r.mu.Unlock()

	if d.Outcome != Allowed {
		observability.Logger.InfoContext(ctx, "navigation redirected",
			slog.String("from", fullPath),
			slog.String("to", m.FullPath),
			slog.String("outcome", d.Outcome.String()),
		)
	}
	return m, d, nil
}

// Redirect implements store.Navigator.
func (r *Router) Redirect(ctx context.Context, path string) {
	if _, _, err := r.Push(ctx, path); err != nil {
		observability.Logger.WarnContext(ctx, "redirect failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// Back returns to the previous location, if any.
func (r *Router) Back(ctx context.Context) (Match, Decision, error) {
	r.mu.Lock()
	if len(r.history) < 2 {
		cur := r.current
		r.mu.Unlock()
		return cur, Decision{Outcome: Allowed}, nil
	}
	prev := r.history[len(r.history)-2]
	r.history = r.history[:len(r.history)-2]
	r.mu.Unlock()
	return r.Push(ctx, prev)
}

// Current returns the current location.
func (r *Router) Current() Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// History returns the visited locations, oldest first.
func (r *Router) History() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.history)
}
