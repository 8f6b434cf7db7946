package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"synergysphere/internal/storage/sqlite"
)

// Server provides the HTTP handlers for the collaboration backend.
type Server struct {
	engine     *gin.Engine
	store      *sqlite.Store
	logger     *slog.Logger
	staticDir  string
	sessionTTL time.Duration
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, logger *slog.Logger, staticDir string, sessionTTL time.Duration) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if sessionTTL <= 0 {
		sessionTTL = 30 * 24 * time.Hour
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api"))

	srv := &Server{
		engine:     router,
		store:      store,
		logger:     logger,
		staticDir:  staticDir,
		sessionTTL: sessionTTL,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		auth := api.Group("/auth")
		{
			auth.POST("/register", s.handleRegister)
			auth.POST("/login", s.handleLogin)
			auth.POST("/logout", s.handleLogout)
		}

		authed := api.Group("")
		authed.Use(s.requireSession())
		{
			projects := authed.Group("/projects")
			{
				projects.GET("", s.handleListProjects)
				projects.POST("", s.handleCreateProject)
				projects.GET(":id", s.handleGetProject)
				projects.PUT(":id", s.handleUpdateProject)
				projects.DELETE(":id", s.handleDeleteProject)

				projects.GET(":id/messages", s.handleListMessages)
				projects.POST(":id/messages", s.handleCreateMessage)
				projects.PUT(":id/messages/:messageId", s.handleUpdateMessage)
				projects.DELETE(":id/messages/:messageId", s.handleDeleteMessage)
			}

			tasks := authed.Group("/tasks")
			{
				tasks.GET("", s.handleListTasks)
				tasks.POST("", s.handleCreateTask)
				tasks.GET(":id", s.handleGetTask)
				tasks.PUT(":id", s.handleUpdateTask)
				tasks.DELETE(":id", s.handleDeleteTask)
				tasks.GET(":id/comments", s.handleListComments)
				tasks.POST(":id/comments", s.handleAddComment)
			}

			authed.GET("/notifications/upcoming-deadlines", s.handleUpcomingDeadlines)
			authed.GET("/dashboard/stats", s.handleDashboardStats)

			users := authed.Group("/users")
			{
				users.GET("/profile", s.handleGetProfile)
				users.PATCH("/profile", s.handleUpdateProfile)
				users.GET("/team-members", s.handleTeamMembers)
			}
		}
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if err != nil {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondStoreError maps storage sentinels to HTTP statuses; anything
// unexpected becomes a logged 500 with a generic message.
func (s *Server) respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, sqlite.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("store operation failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func respondForbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, gin.H{"error": msg})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
