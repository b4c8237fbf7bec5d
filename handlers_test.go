package studyblog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo-contrib/session"
	"github.com/stretchr/testify/require"
)

// newTestApp builds an app against a throwaway database with sessions but
// without the full middleware chain, so tests can call the API directly.
func newTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		Addr:             ":0",
		SiteURL:          "http://blog.test",
		DatabasePath:     filepath.Join(dir, "blog.db"),
		SessionSecret:    strings.Repeat("s", MinSessionSecretLength),
		StaticDir:        filepath.Join(dir, "public"),
		FeedCacheTTL:     time.Minute,
		LoginMaxAttempts: 5,
		LoginWindow:      time.Minute,
		SeedSubjects:     true,
	}
	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	a.Echo.HTTPErrorHandler = a.httpErrorHandler
	a.Echo.Use(session.Middleware(a.newSessionStore()))
	a.setupRoutes(a.Echo)
	return a
}

func doJSON(a *App, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

// signUp registers and logs in a fresh account, returning its session cookies
// and user record.
func signUp(t *testing.T, a *App, email string) ([]*http.Cookie, User) {
	t.Helper()
	body := `{"email":"` + email + `","password":"hunter22"}`
	rec := doJSON(a, http.MethodPost, "/register", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(a, http.MethodPost, "/login", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var user User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	return rec.Result().Cookies(), user
}

func firstSubject(t *testing.T, a *App) Subject {
	t.Helper()
	rec := doJSON(a, http.MethodGet, "/subjects", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var subjects []Subject
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subjects))
	require.NotEmpty(t, subjects)
	return subjects[0]
}

func createPost(t *testing.T, a *App, cookies []*http.Cookie, title, content string, published bool) Post {
	t.Helper()
	sub := firstSubject(t, a)
	in := map[string]any{
		"title":      title,
		"content":    content,
		"subject_id": sub.ID,
		"published":  published,
	}
	body, err := json.Marshal(in)
	require.NoError(t, err)
	rec := doJSON(a, http.MethodPost, "/admin/posts", string(body), cookies)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var post Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	return post
}

func TestAdminRequiresSession(t *testing.T) {
	a := newTestApp(t)

	for _, path := range []string{"/admin", "/admin/posts", "/admin/settings"} {
		rec := doJSON(a, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusSeeOther, rec.Code, path)
		require.Equal(t, "/login", rec.Header().Get("Location"), path)
	}
}

func TestAdminCreateWithoutSession(t *testing.T) {
	a := newTestApp(t)
	sub := firstSubject(t, a)

	// A well-formed create without a session redirects and writes nothing.
	body := `{"title":"Sneaky","content":"body","subject_id":"` + sub.ID + `","published":true}`
	rec := doJSON(a, http.MethodPost, "/admin/posts", body, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))

	posts, err := a.Store.ListPublished(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, posts)
}

// A feed that cannot be fetched is an error response, never an empty feed.
func TestFeedFetchFailureSurfacesError(t *testing.T) {
	a := newTestApp(t)

	require.NoError(t, a.Store.Close())

	rec := doJSON(a, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), `"error"`)
	require.NotContains(t, rec.Body.String(), `"posts"`)
}

func TestRegisterLoginLogout(t *testing.T) {
	a := newTestApp(t)
	cookies, user := signUp(t, a, "writer@example.com")
	require.Equal(t, "writer@example.com", user.Email)

	// Password hash must never appear in API responses.
	rec := doJSON(a, http.MethodGet, "/me", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "argon2id")

	rec = doJSON(a, http.MethodPost, "/logout", "", cookies)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(a, http.MethodGet, "/me", "", rec.Result().Cookies())
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	a := newTestApp(t)

	rec := doJSON(a, http.MethodPost, "/register", `{"email":"not-an-email","password":"hunter22"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(a, http.MethodPost, "/register", `{"email":"a@b.c","password":"short"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Duplicate email conflicts.
	rec = doJSON(a, http.MethodPost, "/register", `{"email":"a@b.c","password":"hunter22"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(a, http.MethodPost, "/register", `{"email":"a@b.c","password":"hunter22"}`, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	a := newTestApp(t)
	signUp(t, a, "writer@example.com")

	rec := doJSON(a, http.MethodPost, "/login", `{"email":"writer@example.com","password":"wrong22"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreatePostAndFeed(t *testing.T) {
	a := newTestApp(t)
	cookies, _ := signUp(t, a, "writer@example.com")

	content := strings.TrimSpace(strings.Repeat("word ", 210))
	createPost(t, a, cookies, "Study Notes", content, true)

	// The author sees it in the admin list with derived metadata.
	rec := doJSON(a, http.MethodGet, "/admin/posts", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []PostView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	require.Equal(t, "Study Notes", mine[0].Title)
	require.Equal(t, "2 min read", mine[0].ReadTime)
	require.Equal(t, "Anonymous", mine[0].Author)

	// It appears on the public feed too.
	rec = doJSON(a, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var feed struct {
		Posts    []PostView `json:"posts"`
		Subjects []Subject  `json:"subjects"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	require.Len(t, feed.Posts, 1)
	require.NotEmpty(t, feed.Subjects)
}

func TestCreatePostRequiresExplicitPublished(t *testing.T) {
	a := newTestApp(t)
	cookies, _ := signUp(t, a, "writer@example.com")
	sub := firstSubject(t, a)

	body := `{"title":"T","content":"C","subject_id":"` + sub.ID + `"}`
	rec := doJSON(a, http.MethodPost, "/admin/posts", body, cookies)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "published")
}

func TestDraftHiddenFromPublic(t *testing.T) {
	a := newTestApp(t)
	cookies, _ := signUp(t, a, "writer@example.com")

	draft := createPost(t, a, cookies, "Work in Progress", "not ready", false)

	rec := doJSON(a, http.MethodGet, "/posts/"+draft.ID, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(a, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "Work in Progress")

	// The owner still reaches it through the admin surface.
	rec = doJSON(a, http.MethodGet, "/admin/posts/"+draft.ID, "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPostDetail(t *testing.T) {
	a := newTestApp(t)
	cookies, _ := signUp(t, a, "writer@example.com")

	post := createPost(t, a, cookies, "Published Piece", "short body", true)

	rec := doJSON(a, http.MethodGet, "/posts/"+post.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view PostView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "Published Piece", view.Title)
	require.Equal(t, "1 min read", view.ReadTime)
	require.NotEmpty(t, view.SubjectName)

	rec = doJSON(a, http.MethodGet, "/posts/no-such-id", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeedSearchFilter(t *testing.T) {
	a := newTestApp(t)
	cookies, _ := signUp(t, a, "writer@example.com")

	createPost(t, a, cookies, "Calculus Primer", "derivatives", true)
	createPost(t, a, cookies, "Rome at War", "legions and SIEGES", true)

	var feed struct {
		Posts []PostView `json:"posts"`
	}

	rec := doJSON(a, http.MethodGet, "/?q=calculus", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	require.Len(t, feed.Posts, 1)
	require.Equal(t, "Calculus Primer", feed.Posts[0].Title)

	// Matches content case-insensitively.
	rec = doJSON(a, http.MethodGet, "/?q=sieges", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	require.Len(t, feed.Posts, 1)
	require.Equal(t, "Rome at War", feed.Posts[0].Title)
}

func TestUpdatePost(t *testing.T) {
	a := newTestApp(t)
	cookies, _ := signUp(t, a, "writer@example.com")
	post := createPost(t, a, cookies, "Before", "old", true)

	body := `{"title":"After","content":"new","subject_id":"` + post.SubjectID + `"}`
	rec := doJSON(a, http.MethodPut, "/admin/posts/"+post.ID, body, cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(a, http.MethodGet, "/posts/"+post.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "After")

	// Another account cannot touch it.
	others, _ := signUp(t, a, "other@example.com")
	rec = doJSON(a, http.MethodPut, "/admin/posts/"+post.ID, body, others)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteConfirmationFlow(t *testing.T) {
	a := newTestApp(t)
	cookies, _ := signUp(t, a, "writer@example.com")
	first := createPost(t, a, cookies, "First", "body", true)
	second := createPost(t, a, cookies, "Second", "body", true)

	// Stage, then cancel: nothing deleted.
	rec := doJSON(a, http.MethodPost, "/admin/posts/"+first.ID+"/delete", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "pending_confirmation")

	// A second staging for the same account conflicts.
	rec = doJSON(a, http.MethodPost, "/admin/posts/"+second.ID+"/delete", "", cookies)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(a, http.MethodPost, "/admin/posts/"+first.ID+"/delete/cancel", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(a, http.MethodGet, "/posts/"+first.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Confirm without staging conflicts.
	rec = doJSON(a, http.MethodPost, "/admin/posts/"+first.ID+"/delete/confirm", "", cookies)
	require.Equal(t, http.StatusConflict, rec.Code)

	// Stage then confirm: the post is gone, including from the feed.
	rec = doJSON(a, http.MethodPost, "/admin/posts/"+first.ID+"/delete", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(a, http.MethodPost, "/admin/posts/"+first.ID+"/delete/confirm", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(a, http.MethodGet, "/posts/"+first.ID, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = doJSON(a, http.MethodGet, "/", "", nil)
	require.NotContains(t, rec.Body.String(), "First")
	require.Contains(t, rec.Body.String(), "Second")
}

func TestSettingsRoundTrip(t *testing.T) {
	a := newTestApp(t)
	cookies, user := signUp(t, a, "owner@example.com")

	body := `{"site_name":"My Blog","site_description":"notes","show_owner_email":true}`
	rec := doJSON(a, http.MethodPut, "/admin/settings", body, cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Public settings endpoint reflects the save.
	rec = doJSON(a, http.MethodGet, "/settings", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var settings SiteSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	require.Equal(t, "My Blog", settings.SiteName)
	require.True(t, settings.ShowOwnerEmail)

	// With the toggle on, the signed-in owner sees their email as author.
	createPost(t, a, cookies, "Attributed", "body", true)
	rec = doJSON(a, http.MethodGet, "/", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), user.Email)
}

func TestAdminSummaryCounts(t *testing.T) {
	a := newTestApp(t)
	cookies, _ := signUp(t, a, "writer@example.com")
	createPost(t, a, cookies, "Live", "body", true)
	createPost(t, a, cookies, "Draft", "body", false)

	rec := doJSON(a, http.MethodGet, "/admin", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	var counts map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	require.Equal(t, 2, counts["total_posts"])
	require.Equal(t, 1, counts["published"])
	require.Equal(t, 1, counts["drafts"])
}

func TestRobotsAndFeeds(t *testing.T) {
	a := newTestApp(t)
	cookies, _ := signUp(t, a, "writer@example.com")
	createPost(t, a, cookies, "Syndicated", "body", true)

	rec := doJSON(a, http.MethodGet, "/robots.txt", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Sitemap:")

	rec = doJSON(a, http.MethodGet, "/feed.xml", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Syndicated")

	rec = doJSON(a, http.MethodGet, "/sitemap.xml", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http://blog.test/posts/")
}
