package webhook

import (
	"context"
	"errors"
	"testing"

	"github.com/sydlexius/autotagger/internal/database"
)

func setupTestDB(t *testing.T) *Service {
	t.Helper()
	db, err := database.OpenAndMigrate(context.Background(), database.MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewService(db)
}

func TestCreate(t *testing.T) {
	svc := setupTestDB(t)
	ctx := context.Background()

	w := &Webhook{
		Name:    "test hook",
		URL:     "https://example.com/hook",
		Events:  []string{"match.completed", "provider.failed"},
		Enabled: true,
	}
	if err := svc.Create(ctx, w); err != nil {
		t.Fatal(err)
	}
	if w.ID == "" {
		t.Error("expected ID to be set")
	}
	if w.Type != TypeGeneric {
		t.Errorf("type = %q, want generic default", w.Type)
	}
}

func TestCreate_ValidationErrors(t *testing.T) {
	svc := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name string
		hook Webhook
	}{
		{"missing name", Webhook{URL: "https://example.com", Events: []string{"match.completed"}}},
		{"missing url", Webhook{Name: "x", Events: []string{"match.completed"}}},
		{"relative url", Webhook{Name: "x", URL: "/hook", Events: []string{"match.completed"}}},
		{"bad scheme", Webhook{Name: "x", URL: "ftp://example.com", Events: []string{"match.completed"}}},
		{"bad type", Webhook{Name: "x", URL: "https://example.com", Type: "teams", Events: []string{"match.completed"}}},
		{"no events", Webhook{Name: "x", URL: "https://example.com"}},
		{"unknown event", Webhook{Name: "x", URL: "https://example.com", Events: []string{"scan.completed"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.Create(ctx, &tt.hook); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGetByID(t *testing.T) {
	svc := setupTestDB(t)
	ctx := context.Background()

	w := &Webhook{
		Name:    "get test",
		URL:     "https://example.com/hook",
		Type:    TypeDiscord,
		Events:  []string{"match.review_needed"},
		Enabled: true,
	}
	if err := svc.Create(ctx, w); err != nil {
		t.Fatal(err)
	}

	got, err := svc.GetByID(ctx, w.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "get test" || got.Type != TypeDiscord || !got.Enabled {
		t.Errorf("unexpected webhook %+v", got)
	}
	if len(got.Events) != 1 || got.Events[0] != "match.review_needed" {
		t.Errorf("events = %v", got.Events)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to round-trip")
	}

	if _, err := svc.GetByID(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListByEvent(t *testing.T) {
	svc := setupTestDB(t)
	ctx := context.Background()

	hooks := []*Webhook{
		{Name: "b completed", URL: "https://example.com/1", Events: []string{"match.completed"}, Enabled: true},
		{Name: "a both", URL: "https://example.com/2", Events: []string{"match.completed", "provider.failed"}, Enabled: true},
		{Name: "c disabled", URL: "https://example.com/3", Events: []string{"match.completed"}, Enabled: false},
		{Name: "d failures", URL: "https://example.com/4", Events: []string{"provider.failed"}, Enabled: true},
	}
	for _, w := range hooks {
		if err := svc.Create(ctx, w); err != nil {
			t.Fatal(err)
		}
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 || all[0].Name != "a both" {
		t.Errorf("List should return all hooks ordered by name, got %d starting with %q", len(all), all[0].Name)
	}

	matched, err := svc.ListByEvent(ctx, "match.completed")
	if err != nil {
		t.Fatal(err)
	}
	if len(matched) != 2 {
		t.Errorf("expected 2 enabled subscribers, got %d", len(matched))
	}
}

func TestSetEnabledAndDelete(t *testing.T) {
	svc := setupTestDB(t)
	ctx := context.Background()

	w := &Webhook{Name: "toggle", URL: "https://example.com/hook", Events: []string{"match.completed"}, Enabled: true}
	if err := svc.Create(ctx, w); err != nil {
		t.Fatal(err)
	}

	if err := svc.SetEnabled(ctx, w.ID, false); err != nil {
		t.Fatal(err)
	}
	matched, _ := svc.ListByEvent(ctx, "match.completed")
	if len(matched) != 0 {
		t.Error("disabled hook should not receive events")
	}

	if err := svc.Delete(ctx, w.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, w.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
	if err := svc.SetEnabled(ctx, w.ID, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetEnabled on deleted hook: expected ErrNotFound, got %v", err)
	}
}
