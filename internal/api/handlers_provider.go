package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/sydlexius/autotagger/internal/provider"
)

// providerView is one entry of GET /providers.
type providerView struct {
	provider.ProviderKeyStatus
	Enabled bool `json:"enabled"`
}

// handleListProviders returns the status of all providers and their credential configuration.
func (r *Router) handleListProviders(w http.ResponseWriter, req *http.Request) {
	statuses, err := r.providerSettings.ListProviderKeyStatuses(req.Context())
	if err != nil {
		r.logger.Error("listing provider statuses", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list providers")
		return
	}
	views := make([]providerView, 0, len(statuses))
	for _, s := range statuses {
		views = append(views, providerView{
			ProviderKeyStatus: s,
			Enabled:           r.providerRegistry.Get(s.Name) != nil,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": views})
}

// handleSetProviderKey stores a sealed credential for a provider. OAuth
// providers take "client_id:client_secret".
func (r *Router) handleSetProviderKey(w http.ResponseWriter, req *http.Request) {
	name, ok := keyedProvider(w, req)
	if !ok {
		return
	}
	var body struct {
		APIKey string `json:"api_key"`
	}
	if err := decodeJSON(w, req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	apiKey := strings.TrimSpace(body.APIKey)
	if apiKey == "" {
		writeError(w, http.StatusBadRequest, "api_key is required")
		return
	}

	if err := r.providerSettings.SetAPIKey(req.Context(), name, apiKey); err != nil {
		r.logger.Error("setting provider API key", "provider", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save API key")
		return
	}
	r.logger.Info("provider credential saved", "provider", name)
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// handleDeleteProviderKey removes the credential for a provider.
func (r *Router) handleDeleteProviderKey(w http.ResponseWriter, req *http.Request) {
	name, ok := keyedProvider(w, req)
	if !ok {
		return
	}
	if err := r.providerSettings.DeleteAPIKey(req.Context(), name); err != nil {
		r.logger.Error("deleting provider API key", "provider", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete API key")
		return
	}
	r.logger.Info("provider credential deleted", "provider", name)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleTestProvider checks connectivity to a provider. A body with an
// api_key tests that credential without saving it; otherwise the stored
// credential is tested and its status recorded.
func (r *Router) handleTestProvider(w http.ResponseWriter, req *http.Request) {
	name, ok := provider.ParseSourceName(req.PathValue("name"))
	p := r.providerRegistry.Get(name)
	if !ok || p == nil {
		writeError(w, http.StatusNotFound, "unknown or disabled provider")
		return
	}
	testable, ok := p.(provider.TestableProvider)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "provider does not support connection testing"})
		return
	}

	var body struct {
		APIKey string `json:"api_key"`
	}
	if req.ContentLength != 0 {
		if err := decodeJSON(w, req, &body); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	ctx, cancel := context.WithTimeout(req.Context(), r.testTimeout)
	defer cancel()
	override := strings.TrimSpace(body.APIKey)
	if override != "" {
		ctx = provider.WithAPIKeyOverride(ctx, name, override)
	}

	err := testable.TestConnection(ctx)
	if override == "" && p.RequiresAuth() {
		r.recordKeyStatus(req.Context(), name, err)
	}
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// recordKeyStatus persists the outcome of testing a stored credential.
func (r *Router) recordKeyStatus(ctx context.Context, name provider.SourceName, testErr error) {
	status := provider.KeyStatusFromTest(testErr)
	if status == "" {
		return
	}
	if err := r.providerSettings.SetKeyStatus(ctx, name, status); err != nil {
		r.logger.Warn("recording key status", "provider", name, "error", err)
	}
}

// keyedProvider resolves the {name} path value to a provider that takes credentials.
func keyedProvider(w http.ResponseWriter, req *http.Request) (provider.SourceName, bool) {
	name, ok := provider.ParseSourceName(req.PathValue("name"))
	if !ok || name == provider.SourceMusicBrainzPseudo {
		writeError(w, http.StatusNotFound, "unknown provider")
		return "", false
	}
	if !provider.ProviderRequiresKey(name) {
		writeError(w, http.StatusBadRequest, "provider does not use credentials")
		return "", false
	}
	return name, true
}
