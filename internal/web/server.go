// Package web serves the portfolio page, its view-state endpoints and the
// admin dashboard.
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Zachkp/portfolio/internal/analytics"
	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/content"
	"github.com/Zachkp/portfolio/internal/logging"
	"github.com/Zachkp/portfolio/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Server wires the page, view-state and admin routes onto a gin engine.
type Server struct {
	engine   *gin.Engine
	cfg      *config.Config
	views    *session.Store
	page     *content.Portfolio
	store    *analytics.Store
	tracker  *analytics.Tracker
	log      *zap.Logger
	adminKey string
}

// Deps are the collaborators of a Server. Store and Tracker may be nil when
// analytics is disabled.
type Deps struct {
	Config  *config.Config
	Views   *session.Store
	Content *content.Portfolio
	Store   *analytics.Store
	Tracker *analytics.Tracker
	Logger  *zap.Logger
}

// New builds the server and its routes.
func New(d Deps) (*Server, error) {
	if d.Config == nil || d.Views == nil || d.Content == nil {
		return nil, errors.New("web: config, views and content are required")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), logging.Requests(d.Logger))
	if d.Tracker != nil {
		engine.Use(d.Tracker.Middleware())
	}
	engine.SetHTMLTemplate(tmpl)

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}
	engine.StaticFS("/static", http.FS(static))

	s := &Server{
		engine:   engine,
		cfg:      d.Config,
		views:    d.Views,
		page:     d.Content,
		store:    d.Store,
		tracker:  d.Tracker,
		log:      d.Logger,
		adminKey: analytics.RandomToken(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the site.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	r := s.engine
	r.GET("/", s.index)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "views": s.views.Len()})
	})
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title":     "Privacy Policy",
			"brand":     s.page.Brand,
			"analytics": s.store != nil,
		})
	})

	view := r.Group("/view/:id")
	view.POST("/scroll", s.scroll)
	view.POST("/theme", s.toggleTheme)
	view.POST("/menu", s.toggleMenu)
	view.POST("/navigate/:section", s.navigate)

	s.adminRoutes()
}

var templateFuncs = template.FuncMap{
	"pct":   func(f float64) string { return fmt.Sprintf("%.2f", f) },
	"join":  strings.Join,
	"lower": strings.ToLower,
}

func parseTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return tmpl, nil
}

func isHTMX(c *gin.Context) bool { return c.GetHeader("HX-Request") == "true" }
