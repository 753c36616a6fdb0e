package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sydlexius/autotagger/internal/provider"
	"github.com/sydlexius/autotagger/internal/webhook"
)

func TestWebhooks_Lifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/webhooks",
		`{"name":"discord","url":"https://discord.example/hook","type":"discord","events":["match.review_needed"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var created webhook.Webhook
	decode(t, w, &created)
	if created.ID == "" || !created.Enabled || created.Type != webhook.TypeDiscord {
		t.Fatalf("unexpected webhook %+v", created)
	}

	w = env.do(t, http.MethodGet, "/api/v1/webhooks", "")
	var list struct {
		Webhooks []webhook.Webhook `json:"webhooks"`
	}
	decode(t, w, &list)
	if len(list.Webhooks) != 1 || list.Webhooks[0].ID != created.ID {
		t.Fatalf("list = %+v", list.Webhooks)
	}

	w = env.do(t, http.MethodPatch, "/api/v1/webhooks/"+created.ID, `{"enabled":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d: %s", w.Code, w.Body.String())
	}
	var updated webhook.Webhook
	decode(t, w, &updated)
	if updated.Enabled {
		t.Error("webhook should be disabled")
	}

	w = env.do(t, http.MethodDelete, "/api/v1/webhooks/"+created.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = env.do(t, http.MethodDelete, "/api/v1/webhooks/"+created.ID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestWebhooks_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"name":`},
		{"unknown field", `{"name":"x","url":"https://a.example","events":["match.completed"],"secret":"y"}`},
		{"missing url", `{"name":"x","events":["match.completed"]}`},
		{"unknown event", `{"name":"x","url":"https://a.example","events":["library.scanned"]}`},
		{"unknown type", `{"name":"x","url":"https://a.example","type":"teams","events":["match.completed"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/webhooks", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestWebhooks_UpdateRequiresEnabled(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPatch, "/api/v1/webhooks/whatever", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	w = env.do(t, http.MethodPatch, "/api/v1/webhooks/whatever", `{"enabled":true}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestWebhooks_Test(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/v1/webhooks",
		`{"name":"generic","url":"https://hooks.example/x","events":["match.completed"]}`)
	var created webhook.Webhook
	decode(t, w, &created)

	var got *webhook.Webhook
	env.sender.testFn = func(_ context.Context, hook *webhook.Webhook) error {
		got = hook
		return nil
	}
	w = env.do(t, http.MethodPost, "/api/v1/webhooks/"+created.ID+"/test", "")
	var resp map[string]string
	decode(t, w, &resp)
	if resp["status"] != "ok" {
		t.Errorf("response = %v", resp)
	}
	if got == nil || got.URL != "https://hooks.example/x" {
		t.Errorf("sender received %+v", got)
	}

	env.sender.testFn = func(context.Context, *webhook.Webhook) error { return errors.New("unexpected status 500") }
	w = env.do(t, http.MethodPost, "/api/v1/webhooks/"+created.ID+"/test", "")
	decode(t, w, &resp)
	if resp["status"] != "error" || resp["error"] != "unexpected status 500" {
		t.Errorf("response = %v", resp)
	}

	w = env.do(t, http.MethodPost, "/api/v1/webhooks/missing/test", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestMaintenance_StatusAndOptimize(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/maintenance", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var st map[string]any
	decode(t, w, &st)
	if st["last_optimize_at"] != nil {
		t.Errorf("no optimize has run yet: %v", st)
	}

	w = env.do(t, http.MethodPost, "/api/v1/maintenance/optimize?vacuum=true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("optimize status = %d: %s", w.Code, w.Body.String())
	}
	st = nil
	decode(t, w, &st)
	if st["last_optimize_at"] == nil {
		t.Errorf("optimize should be recorded: %v", st)
	}

	w = env.do(t, http.MethodPost, "/api/v1/maintenance/optimize?vacuum=maybe", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestOptionalRoutesAbsent(t *testing.T) {
	env := newTestEnv(t)
	r := NewRouter(RouterDeps{
		Matcher:          env.matcher,
		ProviderSettings: env.settings,
		ProviderRegistry: provider.NewRegistry(),
		Logger:           slog.New(slog.DiscardHandler),
	})
	for _, path := range []string{"/api/v1/webhooks", "/api/v1/maintenance"} {
		w := httptest.NewRecorder()
		r.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, w.Code)
		}
	}
}
