package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"synergysphere/internal/models"
)

// profileView is the user representation returned by the API: everything
// except the password hash.
func profileView(u models.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"avatar":    u.Avatar,
		"bio":       u.Bio,
		"skills":    u.Skills,
		"role":      u.Role,
		"createdAt": u.CreatedAt,
		"updatedAt": u.UpdatedAt,
	}
}

// handleGetProfile returns the requester's own profile.
func (s *Server) handleGetProfile(c *gin.Context) {
	respondSuccess(c, http.StatusOK, profileView(currentUser(c)))
}

type updateProfileRequest struct {
	Name   string   `json:"name"`
	Bio    string   `json:"bio"`
	Skills []string `json:"skills"`
}

// handleUpdateProfile replaces the mutable profile fields. Name is
// required; bio and skills are replaced wholesale.
func (s *Server) handleUpdateProfile(c *gin.Context) {
	user := currentUser(c)

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}

	updated, err := s.store.UpdateProfile(c.Request.Context(), user.ID, req.Name, req.Bio, req.Skills)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, profileView(updated))
}

// handleTeamMembers returns the user directory with per-project roles and
// task statistics.
func (s *Server) handleTeamMembers(c *gin.Context) {
	members, err := s.store.ListTeamMembers(c.Request.Context())
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"teamMembers": members})
}
