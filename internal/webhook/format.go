package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sydlexius/autotagger/internal/event"
)

const title = "autotagger"

// formatPayload returns the request body and content-type for a webhook delivery.
func formatPayload(w *Webhook, e event.Event) ([]byte, string) {
	switch w.Type {
	case TypeDiscord:
		return formatDiscord(e)
	case TypeSlack:
		return formatSlack(e)
	case TypeGotify:
		return formatGotify(e)
	default:
		return formatGeneric(e)
	}
}

func formatGeneric(e event.Event) ([]byte, string) {
	payload := map[string]any{
		"event":     string(e.Type),
		"run_id":    e.RunID,
		"timestamp": e.Timestamp,
		"data":      e.Data,
	}
	body, _ := json.Marshal(payload)
	return body, "application/json"
}

func formatDiscord(e event.Event) ([]byte, string) {
	payload := map[string]any{
		"embeds": []map[string]any{
			{
				"title":       fmt.Sprintf("%s: %s", title, e.Type),
				"description": describe(e),
				"color":       color(e.Type),
				"timestamp":   e.Timestamp.UTC().Format(time.RFC3339),
			},
		},
	}
	body, _ := json.Marshal(payload)
	return body, "application/json"
}

func formatSlack(e event.Event) ([]byte, string) {
	payload := map[string]any{
		"text": fmt.Sprintf("*%s: %s*\n%s", title, e.Type, describe(e)),
	}
	body, _ := json.Marshal(payload)
	return body, "application/json"
}

func formatGotify(e event.Event) ([]byte, string) {
	priority := 4
	if e.Type == event.ProviderFailed {
		priority = 6
	}
	payload := map[string]any{
		"title":    fmt.Sprintf("%s: %s", title, e.Type),
		"message":  describe(e),
		"priority": priority,
	}
	body, _ := json.Marshal(payload)
	return body, "application/json"
}

// color picks the Discord embed color: red for failures, amber for reviews.
func color(t event.Type) int {
	switch t {
	case event.ProviderFailed:
		return 0xE74C3C
	case event.MatchReviewNeeded:
		return 0xF1C40F
	default:
		return 0x3498DB
	}
}

// describe renders the human-readable line used by chat integrations.
func describe(e event.Event) string {
	if msg, ok := e.Data["message"].(string); ok {
		return msg
	}

	switch e.Type {
	case event.MatchCompleted, event.MatchReviewNeeded:
		var parts []string
		parts = append(parts, fmt.Sprintf("Run %s finished with status %v", e.RunID, e.Data["status"]))
		if rec, ok := e.Data["recommendation"].(string); ok && rec != "" {
			parts = append(parts, "recommendation "+rec)
		}
		if src, ok := e.Data["best_source"].(string); ok {
			best := fmt.Sprintf("best %s:%v", src, e.Data["best_id"])
			if dist, ok := e.Data["best_distance"].(float64); ok {
				best += fmt.Sprintf(" at distance %.3f", dist)
			}
			parts = append(parts, best)
		}
		if e.Type == event.MatchReviewNeeded {
			parts = append(parts, "needs review")
		}
		return strings.Join(parts, ", ")
	case event.ProviderFailed:
		return fmt.Sprintf("Provider %v failed during run %s (%v): %v", e.Data["provider"], e.RunID, e.Data["kind"], e.Data["error"])
	}

	if e.Data == nil {
		return string(e.Type)
	}
	b, _ := json.Marshal(e.Data)
	return string(b)
}
