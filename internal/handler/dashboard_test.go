package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yourorg/staffdesk/internal/dashboard"
)

func TestDashboardComputesForTenant(t *testing.T) {
	fx := newHandlerFixture()
	fx.seed(t, "alice", "Jane")
	fx.seed(t, "alice", "John")
	fx.seed(t, "bob", "Carol")

	w := httptest.NewRecorder()
	fx.dashboard.ServeHTTP(w, authedRequest(t, http.MethodGet, "/", nil, "alice"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var m dashboard.Metrics
	decodeBody(t, w, &m)
	if m.TotalEmployees != 2 {
		t.Fatalf("expected 2 total employees for alice, got %d", m.TotalEmployees)
	}
	if len(m.RecentEmployeeList) != 2 {
		t.Fatalf("expected 2 recent employees, got %d", len(m.RecentEmployeeList))
	}
}

func TestDashboardEmptyTenant(t *testing.T) {
	fx := newHandlerFixture()
	fx.seed(t, "bob", "Carol")

	w := httptest.NewRecorder()
	fx.dashboard.ServeHTTP(w, authedRequest(t, http.MethodGet, "/", nil, "alice"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for an empty tenant, got %d", w.Code)
	}
	var m dashboard.Metrics
	decodeBody(t, w, &m)
	if m.TotalEmployees != 0 || m.GrowthPercentage != 0 {
		t.Fatalf("expected zeroed metrics, got %+v", m)
	}
	if m.MaxMonthlyCount != 1 {
		t.Fatalf("expected max monthly floor of 1, got %d", m.MaxMonthlyCount)
	}
}

func TestDashboardServesFromCache(t *testing.T) {
	fx := newHandlerFixture()
	fx.seed(t, "alice", "Jane")

	first := httptest.NewRecorder()
	fx.dashboard.ServeHTTP(first, authedRequest(t, http.MethodGet, "/", nil, "alice"))
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}

	// A record added behind the cache's back is not visible until the TTL
	// expires or a mutation endpoint invalidates the entry.
	fx.seed(t, "alice", "John")

	second := httptest.NewRecorder()
	fx.dashboard.ServeHTTP(second, authedRequest(t, http.MethodGet, "/", nil, "alice"))
	var m dashboard.Metrics
	decodeBody(t, second, &m)
	if m.TotalEmployees != 1 {
		t.Fatalf("expected cached total of 1, got %d", m.TotalEmployees)
	}

	fx.cache.Invalidate("dashboard:alice")
	third := httptest.NewRecorder()
	fx.dashboard.ServeHTTP(third, authedRequest(t, http.MethodGet, "/", nil, "alice"))
	decodeBody(t, third, &m)
	if m.TotalEmployees != 2 {
		t.Fatalf("expected fresh total of 2 after invalidation, got %d", m.TotalEmployees)
	}
}

func TestDashboardWithoutIdentityIsUnauthorized(t *testing.T) {
	fx := newHandlerFixture()

	w := httptest.NewRecorder()
	fx.dashboard.ServeHTTP(w, authedRequest(t, http.MethodGet, "/", nil, ""))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestDashboardCacheIsPerTenant(t *testing.T) {
	fx := newHandlerFixture()
	fx.seed(t, "alice", "Jane")

	// Warm alice's cache, then serve bob
	fx.dashboard.ServeHTTP(httptest.NewRecorder(), authedRequest(t, http.MethodGet, "/", nil, "alice"))

	w := httptest.NewRecorder()
	fx.dashboard.ServeHTTP(w, authedRequest(t, http.MethodGet, "/", nil, "bob"))

	var m dashboard.Metrics
	decodeBody(t, w, &m)
	if m.TotalEmployees != 0 {
		t.Fatalf("bob received alice's cached dashboard: %+v", m)
	}

	if _, ok := fx.cache.Get("dashboard:bob"); !ok {
		t.Fatalf("expected bob's entry to be cached separately")
	}
	if _, ok := fx.cache.Get("dashboard:alice"); !ok {
		t.Fatalf("alice's entry should still be cached")
	}
}
