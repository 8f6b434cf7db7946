package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"synergysphere/internal/models"
)

const sessionCookie = "session"

const userKey = "user"

// currentUser returns the request's resolved user. The session middleware
// guarantees it is present on authenticated routes.
func currentUser(c *gin.Context) models.User {
	u, _ := c.Get(userKey)
	user, _ := u.(models.User)
	return user
}

// requireSession resolves the session token from the cookie or the
// Authorization header to a user, once per request, and aborts with 401
// when no valid session exists.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		user, err := s.store.UserForSession(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(sessionCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func generateToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister creates a new account with a bcrypt password hash.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("email is required"))
		return
	}
	if req.Password == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("password is required"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}

	user, err := s.store.CreateUser(c.Request.Context(), req.Email, string(hash), req.Name)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, profileView(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin verifies the credentials and mints a session token, returned
// both as a cookie and in the response body for non-browser clients.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := s.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token := generateToken()
	expires := time.Now().Add(s.sessionTTL)
	if err := s.store.CreateSession(c.Request.Context(), user.ID, token, expires); err != nil {
		s.respondStoreError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, int(s.sessionTTL.Seconds()), "/", "", false, true)
	respondSuccess(c, http.StatusOK, gin.H{"token": token, "user": profileView(user)})
}

// handleLogout revokes the current session, if any, and clears the cookie.
func (s *Server) handleLogout(c *gin.Context) {
	if token := sessionToken(c); token != "" {
		if err := s.store.DeleteSession(c.Request.Context(), token); err != nil {
			s.respondStoreError(c, err)
			return
		}
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	respondSuccess(c, http.StatusOK, gin.H{"success": true})
}
