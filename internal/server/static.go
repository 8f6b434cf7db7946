package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// mountStatic serves the built frontend bundle. Requests matching a real
// file under the bundle directory are served as-is; any other non-API
// path falls back to index.html so client-side routes survive a reload.
func (s *Server) mountStatic() {
	if s.staticDir == "" {
		s.logger.Info("no frontend bundle configured, serving API only")
		return
	}

	index := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		s.logger.Warn("frontend bundle not found, serving API only",
			"dir", s.staticDir, "error", err)
		return
	}

	files := http.FileServer(http.Dir(s.staticDir))
	s.engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return
		}

		requested := filepath.Join(s.staticDir, filepath.Clean("/"+c.Request.URL.Path))
		if info, err := os.Stat(requested); err == nil && !info.IsDir() {
			files.ServeHTTP(c.Writer, c.Request)
			return
		}
		c.File(index)
	})
}
