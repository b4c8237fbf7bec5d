// Package studyblog is a single-binary blog service built with Go, Echo, and
// SQLite. It serves a public reading surface (feed, search, subject filter,
// post detail, RSS, sitemap) and a session-gated admin area (post CRUD, site
// settings, image uploads) as a JSON API.
package studyblog

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// App is the central application. It wires together the store, caches,
// limiter, delete confirmation flow, middleware, and routes.
type App struct {
	Config Config
	Echo   *echo.Echo
	Store  *Store
	Cache  *feedCache

	detail       *detailCache
	loginLimiter *loginLimiter
	deletes      *deleteConfirmer
}

// New creates the application: opens the database, runs migrations, and
// initializes caches. It does not start listening; call Start for that.
func New(cfg Config) (*App, error) {
	store, err := NewStore(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("studyblog: init store: %w", err)
	}

	a := &App{
		Config:       cfg,
		Echo:         echo.New(),
		Store:        store,
		Cache:        newFeedCache(store, cfg.FeedCacheTTL),
		loginLimiter: newLoginLimiter(cfg.LoginMaxAttempts, cfg.LoginWindow),
		deletes:      newDeleteConfirmer(),
	}

	if cfg.UseRedisCache() {
		detail, err := newDetailCache(cfg.RedisURL, cfg.FeedCacheTTL)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("studyblog: init redis cache: %w", err)
		}
		a.detail = detail
	}

	if cfg.SeedSubjects {
		if err := a.seedSubjects(context.Background()); err != nil {
			a.Close()
			return nil, fmt.Errorf("studyblog: seed subjects: %w", err)
		}
	}
	return a, nil
}

// Start installs middleware and routes and begins serving on Config.Addr.
func (a *App) Start() error {
	a.setupMiddleware()
	a.setupRoutes(a.Echo)

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes(e *echo.Echo) {
	e.Static("/public", a.Config.StaticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeedXML)

	// Public surface
	e.GET("/", a.handleHome)
	e.GET("/posts/:id", a.handlePostDetail)
	e.GET("/subjects", a.handleSubjects)
	e.GET("/settings", a.handleSiteSettings)
	e.GET("/me", a.handleMe)
	e.POST("/register", a.handleRegister)
	e.POST("/login", a.handleLogin)
	e.POST("/logout", a.handleLogout)

	// Admin surface, session-gated before any admin data fetch
	admin := e.Group("/admin", a.requireUser)
	admin.GET("", a.handleAdminSummary)
	admin.GET("/posts", a.handleAdminPosts)
	admin.POST("/posts", a.handleAdminCreate)
	admin.GET("/posts/:id", a.handleAdminPost)
	admin.PUT("/posts/:id", a.handleAdminUpdate)
	admin.POST("/posts/:id/delete", a.handleAdminDeleteStage)
	admin.POST("/posts/:id/delete/cancel", a.handleAdminDeleteCancel)
	admin.POST("/posts/:id/delete/confirm", a.handleAdminDeleteConfirm)
	admin.GET("/settings", a.handleAdminSettings)
	admin.PUT("/settings", a.handleAdminSaveSettings)
	admin.POST("/images", a.handleImageUpload)
}

// seedSubjects inserts a starter subject set when the table is empty.
func (a *App) seedSubjects(ctx context.Context) error {
	n, err := a.Store.CountSubjects(ctx)
	if err != nil || n > 0 {
		return err
	}
	for _, name := range []string{"Math", "History", "Science", "Literature"} {
		if err := a.Store.InsertSubject(ctx, &Subject{Name: name}); err != nil {
			return err
		}
	}
	return nil
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Store != nil {
		a.Store.Close()
	}
	if a.detail != nil {
		a.detail.Close()
	}
	return nil
}
