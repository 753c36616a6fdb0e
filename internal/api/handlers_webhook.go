package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sydlexius/autotagger/internal/webhook"
)

type webhookRequest struct {
	Name    string   `json:"name"`
	URL     string   `json:"url"`
	Type    string   `json:"type"`
	Events  []string `json:"events"`
	Enabled *bool    `json:"enabled"`
}

func (r *Router) handleListWebhooks(w http.ResponseWriter, req *http.Request) {
	hooks, err := r.webhooks.List(req.Context())
	if err != nil {
		r.logger.Error("listing webhooks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list webhooks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"webhooks": hooks})
}

// handleCreateWebhook registers an endpoint. Webhooks start enabled unless
// the body says otherwise.
func (r *Router) handleCreateWebhook(w http.ResponseWriter, req *http.Request) {
	var body webhookRequest
	if err := decodeJSON(w, req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	hook := &webhook.Webhook{
		Name:    strings.TrimSpace(body.Name),
		URL:     strings.TrimSpace(body.URL),
		Type:    body.Type,
		Events:  body.Events,
		Enabled: body.Enabled == nil || *body.Enabled,
	}
	if err := hook.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := r.webhooks.Create(req.Context(), hook); err != nil {
		r.logger.Error("creating webhook", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create webhook")
		return
	}
	r.logger.Info("webhook created", "id", hook.ID, "name", hook.Name)
	writeJSON(w, http.StatusCreated, hook)
}

func (r *Router) handleUpdateWebhook(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decodeJSON(w, req, &body); err != nil || body.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}
	id := req.PathValue("id")
	if err := r.webhooks.SetEnabled(req.Context(), id, *body.Enabled); err != nil {
		r.writeWebhookError(w, "updating webhook", err)
		return
	}
	hook, err := r.webhooks.GetByID(req.Context(), id)
	if err != nil {
		r.writeWebhookError(w, "reading webhook", err)
		return
	}
	writeJSON(w, http.StatusOK, hook)
}

func (r *Router) handleDeleteWebhook(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	if err := r.webhooks.Delete(req.Context(), id); err != nil {
		r.writeWebhookError(w, "deleting webhook", err)
		return
	}
	r.logger.Info("webhook deleted", "id", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleTestWebhook sends a sample notification and reports the outcome.
func (r *Router) handleTestWebhook(w http.ResponseWriter, req *http.Request) {
	hook, err := r.webhooks.GetByID(req.Context(), req.PathValue("id"))
	if err != nil {
		r.writeWebhookError(w, "reading webhook", err)
		return
	}
	ctx, cancel := context.WithTimeout(req.Context(), r.testTimeout)
	defer cancel()
	if err := r.webhookSender.Test(ctx, hook); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) writeWebhookError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, webhook.ErrNotFound) {
		writeError(w, http.StatusNotFound, "webhook not found")
		return
	}
	r.logger.Error(op, "error", err)
	writeError(w, http.StatusInternalServerError, "webhook storage error")
}
