package studyblog

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// handleAdminSummary reports post counts for the signed-in identity.
func (a *App) handleAdminSummary(c echo.Context) error {
	posts, err := a.Store.ListOwned(c.Request().Context(), currentUserID(c))
	if err != nil {
		return fmt.Errorf("loading posts: %w", err)
	}
	published := 0
	for _, p := range posts {
		if p.Published {
			published++
		}
	}
	return c.JSON(http.StatusOK, map[string]int{
		"total_posts": len(posts),
		"published":   published,
		"drafts":      len(posts) - published,
	})
}

// handleAdminPosts lists the signed-in identity's posts, drafts included,
// newest first.
func (a *App) handleAdminPosts(c echo.Context) error {
	ctx := c.Request().Context()
	user := a.currentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
	}
	posts, err := a.Store.ListOwned(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("loading posts: %w", err)
	}
	settings, err := a.Store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	return c.JSON(http.StatusOK, annotatePosts(posts, user, settings))
}

// postInput is the create/update request body. Published is a pointer so a
// create without an explicit publish decision can be rejected instead of
// silently defaulting.
type postInput struct {
	Title     string `json:"title" form:"title"`
	Content   string `json:"content" form:"content"`
	SubjectID string `json:"subject_id" form:"subject_id"`
	Published *bool  `json:"published" form:"published"`
	ImageURL  string `json:"image_url" form:"image_url"`
}

func (in *postInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.SubjectID = strings.TrimSpace(in.SubjectID)
	switch {
	case in.Title == "":
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	case in.Content == "":
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	case in.SubjectID == "":
		return echo.NewHTTPError(http.StatusBadRequest, "subject is required")
	}
	return nil
}

func (a *App) handleAdminCreate(c echo.Context) error {
	user := a.currentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "you must be signed in to create a post")
	}
	var in postInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := in.validate(); err != nil {
		return err
	}
	if in.Published == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "published must be set explicitly")
	}
	post := Post{
		Title:     in.Title,
		Content:   in.Content,
		SubjectID: in.SubjectID,
		Published: *in.Published,
		ImageURL:  in.ImageURL,
		UserID:    user.ID,
	}
	if err := a.Store.CreatePost(c.Request().Context(), &post); err != nil {
		return fmt.Errorf("creating post: %w", err)
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusCreated, post)
}

// handleAdminPost fetches one post for editing, scoped by id and owner. A
// post owned by someone else is reported as not found, never rendered.
func (a *App) handleAdminPost(c echo.Context) error {
	post, err := a.Store.GetOwned(c.Request().Context(), c.Param("id"), currentUserID(c))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "post not found")
	}
	if err != nil {
		return fmt.Errorf("loading post: %w", err)
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleAdminUpdate(c echo.Context) error {
	var in postInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := in.validate(); err != nil {
		return err
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	err := a.Store.UpdatePost(ctx, id, currentUserID(c), in.Title, in.Content, in.SubjectID)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "post not found")
	}
	if err != nil {
		return fmt.Errorf("updating post: %w", err)
	}
	a.Cache.Invalidate()
	if err := a.detail.Invalidate(ctx, id); err != nil {
		c.Logger().Warnf("detail cache invalidate: %v", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "post updated"})
}

// handleAdminDeleteStage stages a deletion for confirmation. Only one
// deletion may be staged per identity at a time.
func (a *App) handleAdminDeleteStage(c echo.Context) error {
	if err := a.deletes.Stage(currentUserID(c), c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"state":   "pending_confirmation",
		"post_id": c.Param("id"),
	})
}

func (a *App) handleAdminDeleteCancel(c echo.Context) error {
	if err := a.deletes.Cancel(currentUserID(c)); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"state": "idle"})
}

// handleAdminDeleteConfirm executes the staged deletion. The delete itself is
// a single owner-scoped statement; that filter, not any prior read, is the
// authoritative ownership check.
func (a *App) handleAdminDeleteConfirm(c echo.Context) error {
	userID := currentUserID(c)
	postID, err := a.deletes.Begin(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	defer a.deletes.Finish(userID)

	ctx := c.Request().Context()
	err = a.Store.DeletePost(ctx, postID, userID)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "post not found")
	}
	if err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	a.Cache.Invalidate()
	if err := a.detail.Invalidate(ctx, postID); err != nil {
		c.Logger().Warnf("detail cache invalidate: %v", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "post deleted"})
}

func (a *App) handleAdminSettings(c echo.Context) error {
	settings, err := a.Store.GetSettings(c.Request().Context())
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	return c.JSON(http.StatusOK, settings)
}

// handleAdminSaveSettings upserts the full settings record. There are no
// partial updates; the locally-held object replaces the row.
func (a *App) handleAdminSaveSettings(c echo.Context) error {
	var settings SiteSettings
	if err := c.Bind(&settings); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := a.Store.SaveSettings(c.Request().Context(), settings); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return c.JSON(http.StatusOK, settings)
}
