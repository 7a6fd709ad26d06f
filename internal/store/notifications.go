package store

import (
	"context"

	"blogdesk/internal/models"
	"blogdesk/internal/observability"
)

const resourceNotifications = "notifications"

var notificationsLog = observability.NewStoreLogger(resourceNotifications)

// notificationList keeps unread equal to the number of items with
// Read == false after every method.
type notificationList struct {
	collection[models.Notification]
	unread int
}

func (n *notificationList) replace(items []models.Notification) {
	n.collection.replace(items, len(items))
	n.unread = 0
	for _, item := range items {
		if !item.Read {
			n.unread++
		}
	}
}

func (n *notificationList) markRead(id uint) {
	for i := range n.items {
		if n.items[i].ID == id && !n.items[i].Read {
			n.items[i].Read = true
			n.unread--
		}
	}
}

func (n *notificationList) markAllRead() {
	for i := range n.items {
		n.items[i].Read = true
	}
	n.unread = 0
}

func (n *notificationList) reset() {
	n.collection.reset()
	n.unread = 0
}

// Notifications returns the cached notifications.
func (s *Store) Notifications() Collection[models.Notification] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notifications.snapshot()
}

func (s *Store) UnreadNotificationsCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notifications.unread
}

func (s *Store) HasUnreadNotifications() bool {
	return s.UnreadNotificationsCount() > 0
}

// FetchNotifications replaces the cached notifications.
func (s *Store) FetchNotifications(ctx context.Context) error {
	seq, done := s.start(&s.notifications.sequence)
	defer done()

	items, err := s.client.ListNotifications(ctx)
	if err == nil {
		s.apply(ctx, notificationsLog, resourceNotifications, models.ActionFetchNotifications, &s.notifications.sequence, seq, func() {
			s.notifications.replace(items)
		})
	}
	return s.finish(ctx, notificationsLog, resourceNotifications, models.ActionFetchNotifications, err)
}

// MarkNotificationRead marks one notification read after the server
// confirms.
func (s *Store) MarkNotificationRead(ctx context.Context, id uint) error {
	token := s.Token()
	_, done := s.start(&s.notifications.sequence)
	defer done()

	err := s.client.MarkNotificationRead(ctx, id)
	if err == nil {
		s.mutateUserCache(token, &s.notifications.sequence, func() {
			s.notifications.markRead(id)
		})
	}
	return s.finish(ctx, notificationsLog, resourceNotifications, models.ActionMarkRead, err)
}

// MarkAllNotificationsRead marks every cached notification read. Calling
// it again leaves the unread count at zero.
func (s *Store) MarkAllNotificationsRead(ctx context.Context) error {
	token := s.Token()
	_, done := s.start(&s.notifications.sequence)
	defer done()

	err := s.client.MarkAllNotificationsRead(ctx)
	if err == nil {
		s.mutateUserCache(token, &s.notifications.sequence, func() {
			s.notifications.markAllRead()
		})
	}
	return s.finish(ctx, notificationsLog, resourceNotifications, models.ActionMarkAllRead, err)
}
