// Package webhook notifies external endpoints about matching runs.
package webhook

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/sydlexius/autotagger/internal/event"
)

// ErrNotFound is returned when a webhook id does not exist.
var ErrNotFound = errors.New("webhook not found")

// Webhook represents a configured webhook endpoint.
type Webhook struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Type      string    `json:"type"`
	Events    []string  `json:"events"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Webhook types.
const (
	TypeGeneric = "generic"
	TypeDiscord = "discord"
	TypeSlack   = "slack"
	TypeGotify  = "gotify"
)

// Subscribable lists the event types a webhook may subscribe to.
func Subscribable() []event.Type {
	return []event.Type{event.MatchCompleted, event.MatchReviewNeeded, event.ProviderFailed}
}

// Validate checks the fields a caller supplies and fills in the default type.
func (w *Webhook) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("name is required")
	}
	u, err := url.Parse(w.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) URL")
	}
	switch w.Type {
	case "":
		w.Type = TypeGeneric
	case TypeGeneric, TypeDiscord, TypeSlack, TypeGotify:
	default:
		return fmt.Errorf("unknown webhook type %q", w.Type)
	}
	if len(w.Events) == 0 {
		return fmt.Errorf("at least one event is required")
	}
	for _, e := range w.Events {
		if !slices.Contains(Subscribable(), event.Type(e)) {
			return fmt.Errorf("unknown event %q", e)
		}
	}
	return nil
}
