package routes

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mbolis/surveydesk/app"
	"github.com/mbolis/surveydesk/config"
	"github.com/mbolis/surveydesk/database"
	"github.com/mbolis/surveydesk/httpx"
	"github.com/mbolis/surveydesk/model"
	"github.com/mbolis/surveydesk/store"
	"github.com/stretchr/testify/require"
)

const password = "correct horse"

type testServer struct {
	t       *testing.T
	db      *sql.DB
	app     app.App
	handler http.Handler
	users   map[string]model.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newCachedTestServer(t, nil)
}

// newCachedTestServer builds the answer cache, if any, over the test database.
func newCachedTestServer(t *testing.T, withCache func(db *sql.DB) app.Cache) *testServer {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "routes.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.TokenSecret = "routes-secret"
	require.NoError(t, cfg.Validate())

	var answerCache app.Cache
	if withCache != nil {
		answerCache = withCache(db)
	}
	a := app.New(db, httpx.NewBearerServer(db, cfg), cfg, answerCache)
	s := &testServer{t: t, db: db, app: a, handler: Wire(a), users: map[string]model.User{}}

	for _, u := range []model.User{
		{Username: "alice"},
		{Username: "bob"},
		{Username: "staff", IsStaff: true},
		{Username: "root", IsStaff: true, IsSuperuser: true},
	} {
		require.NoError(t, store.CreateUser(context.Background(), db, &u, password))
		s.users[u.Username] = u
	}
	return s
}

func (s *testServer) token(username string) string {
	s.t.Helper()
	resp, err := httpx.PasswordGrant(context.Background(), s.app.BearerServer, username, password)
	require.NoError(s.t, err)
	tokens, err := httpx.DecodeTokens(resp)
	require.NoError(s.t, err)
	return tokens.AccessToken
}

func (s *testServer) survey(title string) model.Survey {
	s.t.Helper()
	sv := model.Survey{Title: title, StartDate: time.Now().Add(-time.Hour), EndDate: time.Now().Add(time.Hour)}
	require.NoError(s.t, store.CreateSurvey(context.Background(), s.db, &sv))
	return sv
}

func (s *testServer) question(q model.Question) model.Question {
	s.t.Helper()
	require.NoError(s.t, store.CreateQuestion(context.Background(), s.db, &q))
	return q
}

type call struct {
	method  string
	path    string
	body    io.Reader
	token   string
	headers map[string]string
	cookies []*http.Cookie
	basic   []string
}

func (s *testServer) do(c call) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(c.method, c.path, c.body)
	if c.token != "" {
		req.Header.Set("authorization", "Bearer "+c.token)
	}
	if len(c.basic) == 2 {
		req.SetBasicAuth(c.basic[0], c.basic[1])
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) sendJSON(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(data)
	}
	return s.do(call{
		method:  method,
		path:    path,
		body:    r,
		token:   token,
		headers: map[string]string{"content-type": "application/json", "accept": "application/json"},
	})
}

func (s *testServer) form(path string, values url.Values, c call) *httptest.ResponseRecorder {
	s.t.Helper()
	c.method = http.MethodPost
	c.path = path
	c.body = strings.NewReader(values.Encode())
	if c.headers == nil {
		c.headers = map[string]string{}
	}
	c.headers["content-type"] = "application/x-www-form-urlencoded"
	return s.do(c)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
