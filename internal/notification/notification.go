// Package notification exposes the per-user notification feed. The feed is
// read-only to this client; an external process creates the records.
package notification

import (
	"context"
	"sort"

	"github.com/Therealpare/Bookstore/internal/gateway"
)

const notificationsPath = "notifications"

// UserPath is the gateway path of one user's notification collection.
func UserPath(userID string) string {
	return notificationsPath + "/" + userID
}

// Notification is a single feed entry.
type Notification struct {
	ID        string `json:"-"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	CreatedAt int64  `json:"createdAt"`
}

// List is a one-shot read of the user's notifications, newest first. The
// result is never nil.
func List(ctx context.Context, gw gateway.Gateway, userID string) ([]Notification, error) {
	records := map[string]Notification{}
	if _, err := gw.Read(ctx, UserPath(userID), &records); err != nil {
		return nil, err
	}

	out := make([]Notification, 0, len(records))
	for id, n := range records {
		n.ID = id
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Watch returns a live subscription to the user's notification feed.
func Watch(ctx context.Context, gw gateway.Gateway, userID string) (*gateway.Subscription, error) {
	return gw.Subscribe(ctx, UserPath(userID))
}
