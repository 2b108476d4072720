package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mixmentor/mixmentor/pkg/accounts"
	"github.com/mixmentor/mixmentor/pkg/contextkeys"
	"github.com/mixmentor/mixmentor/pkg/httputil"
	"github.com/mixmentor/mixmentor/pkg/middleware"
)

// stateCookieName holds the OAuth state between the redirect and the callback
const stateCookieName = "mixmentor_oauth_state"

// handleLogin starts the login flow by redirecting to the identity provider
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   s.deps.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, s.deps.Auth.LoginURL(state), http.StatusFound)
}

// handleCallback finishes the login flow: the state cookie must match the
// state parameter before the authorization code is exchanged.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		httputil.WriteBadRequest(w, "invalid login state")
		return
	}

	user, token, err := s.deps.Auth.HandleCallback(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.deps.Logger.WithError(err).Warn("login callback failed")
		httputil.WriteUnauthorized(w, "login failed")
		return
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.SessionsCreatedTotal.Inc()
	}
	s.deps.Logger.WithField("user_id", user.ID).Info("user logged in")

	// Clear the state cookie and set the session
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.deps.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, s.sessionCookie(token, int(s.deps.SessionTTL.Seconds())))

	http.Redirect(w, r, s.deps.LoginRedirectURL, http.StatusFound)
}

// handleMe returns the logged-in user
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		httputil.WriteUnauthorized(w, "not logged in")
		return
	}
	httputil.WriteSuccess(w, user)
}

// handleLogout revokes the session and clears the cookie
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := contextkeys.GetSessionToken(r.Context()); token != "" {
		if err := s.deps.Sessions.Delete(r.Context(), token); err != nil {
			s.deps.Logger.WithError(err).Error("failed to revoke session")
		}
	}

	http.SetCookie(w, s.sessionCookie("", -1))
	httputil.WriteNoContent(w)
}

func (s *Server) sessionCookie(token string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     accounts.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.deps.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}
