package routes

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/ajg/form"
	"github.com/go-chi/render"
	"github.com/mbolis/surveydesk/admin"
	"github.com/mbolis/surveydesk/app"
	"github.com/mbolis/surveydesk/httpx"
	"github.com/mbolis/surveydesk/log"
	"github.com/mbolis/surveydesk/model"
	"github.com/mbolis/surveydesk/routes/middlewares"
	"github.com/mbolis/surveydesk/store"
)

var reRefresh = regexp.MustCompile(`(?i)^refresh\s+(.*)`)

type credentials struct {
	Username  string `json:"username" form:"username"`
	Password  string `json:"password" form:"password"`
	Password1 string `json:"password1" form:"password1"`
	Password2 string `json:"password2" form:"password2"`
	Next      string `json:"next" form:"next"`
}

// decodeCredentials reads a JSON body or a form post. Forms may carry extra fields.
func decodeCredentials(r *http.Request, creds *credentials) error {
	if render.GetRequestContentType(r) == render.ContentTypeForm {
		dec := form.NewDecoder(r.Body)
		dec.IgnoreUnknownKeys(true)
		return dec.Decode(creds)
	}
	return render.DecodeJSON(r.Body, creds)
}

// LoginPage tells clients where to post credentials and echoes the page they came from.
func LoginPage(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{
			"login":    middlewares.LoginPath,
			"register": "/surveys/register/",
			"next":     safeNext(r.URL.Query().Get("next")),
		})
	}
}

func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds := credentials{}
		if user, pass, ok := r.BasicAuth(); ok {
			creds.Username, creds.Password = user, pass
		} else if err := decodeCredentials(r, &creds); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if creds.Next == "" {
			creds.Next = r.URL.Query().Get("next")
		}

		resp, err := httpx.PasswordGrant(r.Context(), app.BearerServer, creds.Username, creds.Password)
		if err != nil {
			httpx.LogInternalError(w, "login.grant", err)
			return
		}
		tokens, err := httpx.DecodeTokens(resp)
		if err != nil {
			log.Debugf("login.grant: %s", err)
			resp.Flush(w)
			return
		}

		log.WithFields(log.Fields{"user": creds.Username}).Info("logged in")
		httpx.SetTokenCookies(w, tokens)
		if middlewares.Browser(r) {
			http.Redirect(w, r, safeNext(creds.Next), http.StatusSeeOther)
			return
		}
		resp.Flush(w)
	}
}

func Register(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds := credentials{}
		if err := decodeCredentials(r, &creds); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		creds.Username = strings.TrimSpace(creds.Username)

		if err := admin.ValidateRegistration(creds.Username, creds.Password1, creds.Password2); err != nil {
			fail(w, r, "register.validate", err, nil)
			return
		}

		user := model.User{Username: creds.Username}
		err := store.CreateUser(r.Context(), app.DB, &user, creds.Password1)
		if errors.Is(err, store.ErrConflict) {
			httpx.LogJSON(w, r, http.StatusConflict, "register.username", httpx.ErrorBody{
				Error: "A user with that username already exists.",
			})
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.insert_user", err)
			return
		}
		log.WithFields(log.Fields{"user": user.Username, "id": user.ID}).Info("registered")

		resp, err := httpx.PasswordGrant(r.Context(), app.BearerServer, user.Username, creds.Password1)
		if err != nil {
			httpx.LogInternalError(w, "register.grant", err)
			return
		}
		tokens, err := httpx.DecodeTokens(resp)
		if err != nil {
			httpx.LogInternalError(w, "register.grant", err)
			return
		}

		httpx.SetTokenCookies(w, tokens)
		if middlewares.Browser(r) {
			http.Redirect(w, r, "/surveys/", http.StatusSeeOther)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, tokens)
	}
}

func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var token string
		if match := reRefresh.FindStringSubmatch(r.Header.Get("authorization")); len(match) > 0 {
			token = match[1]
		} else if c, err := r.Cookie(httpx.RefreshCookie); err == nil {
			token = c.Value
		}
		if token == "" {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}

		resp, err := httpx.RefreshGrant(r.Context(), app.BearerServer, token)
		if err != nil {
			httpx.LogInternalError(w, "refresh.grant", err)
			return
		}
		if tokens, err := httpx.DecodeTokens(resp); err == nil {
			httpx.SetTokenCookies(w, tokens)
		}
		resp.Flush(w)
	}
}

// Logout revokes the caller's refresh tokens and clears the cookies.
func Logout(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p, ok := httpx.PrincipalFrom(r.Context()); ok {
			if err := store.RevokeTokens(r.Context(), app.DB, p.Username); err != nil {
				httpx.LogInternalError(w, "db.revoke_tokens", err)
				return
			}
			log.WithFields(log.Fields{"user": p.Username}).Info("logged out")
		}
		httpx.ClearTokenCookies(w)
		http.Redirect(w, r, middlewares.LoginPath, http.StatusSeeOther)
	}
}

// safeNext only follows local paths.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/surveys/"
	}
	return next
}
