package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/amy/portal-client/internal/core/domain"
)

type stubNews struct {
	items     []domain.NewsItem
	refreshed int
}

func (s *stubNews) Items() []domain.NewsItem      { return s.items }
func (s *stubNews) Refresh(context.Context) error { s.refreshed++; return nil }
func (s *stubNews) Loading() bool                 { return false }
func (s *stubNews) Err() error                    { return nil }

type stubProfiles struct {
	profiles map[string]domain.PublicProfile
}

func (s *stubProfiles) Profile(_ context.Context, id string) (domain.PublicProfile, bool, error) {
	p, ok := s.profiles[id]
	return p, ok, nil
}

func TestNewsHandler_List(t *testing.T) {
	news := &stubNews{items: []domain.NewsItem{}}
	h := NewNewsHandler(news)

	c, rec := newTestContext(http.MethodGet, "/v1/news", "")
	if err := h.List(c); err != nil {
		t.Fatalf("List: %v", err)
	}
	if news.refreshed != 0 {
		t.Error("expected no refresh without the query flag")
	}
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(resp["items"]) != "[]" {
		t.Errorf("expected empty array, got %s", resp["items"])
	}

	c, _ = newTestContext(http.MethodGet, "/v1/news?refresh=true", "")
	if err := h.List(c); err != nil {
		t.Fatalf("List: %v", err)
	}
	if news.refreshed != 1 {
		t.Errorf("expected one refresh, got %d", news.refreshed)
	}
}

func TestProfileHandler_Get(t *testing.T) {
	h := NewProfileHandler(&stubProfiles{profiles: map[string]domain.PublicProfile{
		"42": {ID: "42", Username: "Steve"},
	}})

	c, rec := newTestContext(http.MethodGet, "/v1/profiles/42", "")
	c.SetParamNames("id")
	c.SetParamValues("42")
	if err := h.Get(c); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = newTestContext(http.MethodGet, "/v1/profiles/7", "")
	c.SetParamNames("id")
	c.SetParamValues("7")
	if err := h.Get(c); err == nil {
		t.Fatal("expected not found error")
	}
}
