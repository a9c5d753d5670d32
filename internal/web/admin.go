package web

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const adminCookie = "admin_token"

func (s *Server) adminRoutes() {
	r := s.engine

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{"title": "Admin Login"})
	})
	r.POST("/admin/login", s.adminLogin)
	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", false, true)
		s.log.Info("admin logout", zap.String("visitor", s.visitor(c)))
		c.Redirect(http.StatusFound, "/admin/login")
	})

	admin := r.Group("/admin")
	admin.Use(s.requireAdmin())

	admin.GET("/dashboard", func(c *gin.Context) {
		if s.store == nil {
			c.HTML(http.StatusServiceUnavailable, "admin-error.html", gin.H{"error": "Analytics is disabled"})
			return
		}
		stats, err := s.store.Stats(c.Request.Context())
		if err != nil {
			s.log.Error("loading admin stats", zap.Error(err))
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load statistics"})
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"stats":     stats,
			"liveViews": s.views.Len(),
		})
	})

	admin.GET("/api/stats", s.statsJSON(false))
	admin.GET("/export/stats", s.statsJSON(true))

	admin.POST("/privacy/cleanup", func(c *gin.Context) {
		if s.store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analytics disabled"})
			return
		}
		n, err := s.store.Cleanup(c.Request.Context(), s.cfg.Analytics.Retention)
		if err != nil {
			s.log.Error("privacy cleanup", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cleanup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup complete", "removed": n})
	})
}

func (s *Server) adminLogin(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Admin.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Admin.Password)) == 1
	if !userOK || !passOK {
		s.log.Warn("failed admin login", zap.String("visitor", s.visitor(c)))
		c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{"error": "Invalid credentials"})
		return
	}

	secure := s.cfg.Mode == gin.ReleaseMode
	c.SetCookie(adminCookie, s.adminKey, 3600*24, "/admin", "", secure, true)
	s.log.Info("admin login", zap.String("visitor", s.visitor(c)))
	c.Redirect(http.StatusFound, "/admin/dashboard")
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminKey)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) statsJSON(download bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analytics disabled"})
			return
		}
		stats, err := s.store.Stats(c.Request.Context())
		if err != nil {
			s.log.Error("loading admin stats", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load statistics"})
			return
		}
		if download {
			c.Header("Content-Disposition", "attachment; filename=portfolio-stats.json")
			s.log.Info("admin stats exported", zap.String("visitor", s.visitor(c)))
		}
		c.JSON(http.StatusOK, stats)
	}
}

// visitor is the hashed client IP used in admin audit logs.
func (s *Server) visitor(c *gin.Context) string {
	if s.tracker == nil {
		return ""
	}
	return s.tracker.HashIP(c.ClientIP())
}
