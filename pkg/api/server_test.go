package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProtectedRoutesRequireSession(t *testing.T) {
	f := newFixture(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPost, "/api/auth/logout"},
		{http.MethodGet, "/api/conversations"},
		{http.MethodPost, "/api/conversations"},
		{http.MethodGet, "/api/conversations/1"},
		{http.MethodDelete, "/api/conversations/1"},
		{http.MethodPost, "/api/conversations/1/messages"},
		{http.MethodPost, "/api/audio"},
		{http.MethodGet, "/api/audio"},
		{http.MethodPost, "/api/audio/analyze"},
		{http.MethodGet, "/api/usage"},
		{http.MethodPost, "/api/billing/checkout"},
		{http.MethodGet, "/api/admin/users/1/usage"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestExpiredSessionRejected(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	req.AddCookie(&http.Cookie{Name: "mixmentor_session", Value: "never-issued"})
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNonNumericConversationID(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/abc", nil)
	req.AddCookie(f.login(t, 7))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	// The {id:[0-9]+} pattern never matches, so the router 404s
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
