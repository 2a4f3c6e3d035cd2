package middlewares

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"
	"github.com/go-chi/render"
	"github.com/mbolis/surveydesk/admin"
	"github.com/mbolis/surveydesk/app"
	"github.com/mbolis/surveydesk/httpx"
	"github.com/mbolis/surveydesk/log"
)

const LoginPath = "/surveys/login/"

// Authenticated accepts a bearer token, or the token cookies set at login, and
// stores the caller's admin.Principal in the request context.
func Authenticated(app app.App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(CookieAuth(app), oauth.Authorize(app.TokenSecret, nil), principal).Handler(next)
	}
}

// Require answers 403 unless the caller holds capability c.
func Require(c admin.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := httpx.PrincipalFrom(r.Context())
			if !ok || !p.Can(c) {
				httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "auth.capability."+string(c))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func principal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := httpx.PrincipalFromClaims(r.Context())
		if err != nil {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "auth.claims")
			return
		}
		next.ServeHTTP(w, r.WithContext(httpx.WithPrincipal(r.Context(), p)))
	})
}

// CookieAuth turns the token cookies into an Authorization header. When the access
// token is missing or expired it rotates the refresh token; when that fails too,
// browsers are sent to the login page and API clients get 401.
func CookieAuth(app app.App) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("authorization") != "" {
				h.ServeHTTP(w, r)
				return
			}

			token, err := r.Cookie(httpx.AccessCookie)
			if err == nil {
				r.Header.Set("authorization", "Bearer "+token.Value)
				buf := httpx.NewResponseBuffer()
				h.ServeHTTP(buf, r)
				if buf.Status() != http.StatusUnauthorized {
					if err := buf.Flush(w); err != nil {
						log.Debugf("auth.cookie.flush: %s", err)
					}
					return
				}
			}

			refreshToken, err := r.Cookie(httpx.RefreshCookie)
			if errors.Is(err, http.ErrNoCookie) {
				deny(w, r, "auth.no_token")
				return
			}

			resp, err := httpx.RefreshGrant(r.Context(), app.BearerServer, refreshToken.Value)
			if err != nil {
				httpx.LogInternalError(w, "auth.refresh.request", err)
				return
			}
			tokens, err := httpx.DecodeTokens(resp)
			if err != nil {
				httpx.ClearTokenCookies(w)
				deny(w, r, "auth.refresh")
				return
			}
			httpx.SetTokenCookies(w, tokens)

			r.Header.Set("authorization", "Bearer "+tokens.AccessToken)
			h.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, code string) {
	if !Browser(r) {
		httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, code)
		return
	}
	log.Debugf("%s: redirect to login", code)
	status := http.StatusSeeOther
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		status = http.StatusFound
	}
	http.Redirect(w, r, LoginPath+"?next="+url.QueryEscape(r.RequestURI), status)
}

// Browser reports whether the request comes from a page rather than an API client:
// it asks for HTML or posts a form.
func Browser(r *http.Request) bool {
	if render.GetAcceptedContentType(r) == render.ContentTypeHTML {
		return true
	}
	return r.Method != http.MethodGet && render.GetRequestContentType(r) == render.ContentTypeForm
}
