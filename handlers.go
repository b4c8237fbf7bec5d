package studyblog

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// feedResponse is the home feed payload: annotated published posts plus the
// subject list for the filter control.
type feedResponse struct {
	Posts    []PostView `json:"posts"`
	Subjects []Subject  `json:"subjects"`
}

// handleHome serves the public feed. ?subject= narrows to one subject (the
// post set is re-read through the cache when it changes); ?q= is applied
// locally to the fetched set.
func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()

	posts, err := a.Cache.ListPublished(ctx, c.QueryParam("subject"))
	if err != nil {
		return fmt.Errorf("loading feed: %w", err)
	}
	subjects, err := a.Cache.ListSubjects(ctx)
	if err != nil {
		return fmt.Errorf("loading subjects: %w", err)
	}
	settings, err := a.Store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	posts = filterBySearch(posts, c.QueryParam("q"))
	views := annotatePosts(posts, a.currentUser(c), settings)
	return c.JSON(http.StatusOK, feedResponse{Posts: views, Subjects: subjects})
}

// handlePostDetail serves a single published post. An unpublished or missing
// post yields the same not-found outcome; unpublished content never leaks.
func (a *App) handlePostDetail(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	post, err := a.detail.Get(ctx, id)
	if err != nil {
		c.Logger().Warnf("detail cache read: %v", err)
	}
	if post == nil {
		p, err := a.Store.GetPublished(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "post not found")
		}
		if err != nil {
			return fmt.Errorf("loading post: %w", err)
		}
		post = &p
		if err := a.detail.Set(ctx, p); err != nil {
			c.Logger().Warnf("detail cache write: %v", err)
		}
	}

	settings, err := a.Store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	return c.JSON(http.StatusOK, annotatePost(*post, a.currentUser(c), settings))
}

func (a *App) handleSubjects(c echo.Context) error {
	subjects, err := a.Cache.ListSubjects(c.Request().Context())
	if err != nil {
		return fmt.Errorf("loading subjects: %w", err)
	}
	if subjects == nil {
		subjects = []Subject{}
	}
	return c.JSON(http.StatusOK, subjects)
}

// handleSiteSettings exposes the public site branding (name, description).
func (a *App) handleSiteSettings(c echo.Context) error {
	settings, err := a.Store.GetSettings(c.Request().Context())
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	return c.JSON(http.StatusOK, settings)
}

// handleRobots generates robots.txt dynamically using the site URL.
func (a *App) handleRobots(c echo.Context) error {
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /admin\n\nSitemap: %s/sitemap.xml\n", a.Config.SiteURL)
	return c.String(http.StatusOK, body)
}

func (a *App) handleFeedXML(c echo.Context) error {
	posts, err := a.Cache.ListPublished(c.Request().Context(), "")
	if err != nil {
		return fmt.Errorf("loading feed: %w", err)
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPublished(c.Request().Context(), "")
	if err != nil {
		return fmt.Errorf("loading feed: %w", err)
	}
	return a.renderSitemap(c, posts)
}
