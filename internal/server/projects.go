package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"synergysphere/internal/access"
	"synergysphere/internal/models"
)

type createProjectRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Members     []string `json:"members"`
}

type updateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// handleListProjects returns the projects the requester owns or belongs
// to, newest first.
func (s *Server) handleListProjects(c *gin.Context) {
	user := currentUser(c)

	projects, err := s.store.ListProjects(c.Request.Context(), user.ID)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects})
}

// handleCreateProject creates a project owned by the requester. Listed
// member emails that resolve to accounts are enrolled with the member role.
func (s *Server) handleCreateProject(c *gin.Context) {
	user := currentUser(c)

	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("project name is required"))
		return
	}

	project, err := s.store.CreateProject(c.Request.Context(), user.ID, req.Name, req.Description, req.Members)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

// handleGetProject returns one project to its owner or members.
func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user := currentUser(c)

	project, err := s.store.GetProject(c.Request.Context(), id)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	if !access.CanAccess(&project, user.ID) {
		respondForbidden(c, "access denied")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleUpdateProject applies a partial update; owner or admin member only.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user := currentUser(c)

	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	project, err := s.store.GetProject(c.Request.Context(), id)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	if !access.CanModifyProject(&project, user.ID) {
		respondForbidden(c, "only the project owner or an admin can update the project")
		return
	}

	changes := map[string]any{}
	if req.Name != nil {
		changes["name"] = *req.Name
	}
	if req.Description != nil {
		changes["description"] = *req.Description
	}
	if req.Status != nil {
		if _, valid := models.ValidProjectStatuses[*req.Status]; !valid {
			s.respondError(c, http.StatusBadRequest, fmt.Errorf("invalid project status %q", *req.Status))
			return
		}
		changes["status"] = *req.Status
	}

	updated, err := s.store.UpdateProject(c.Request.Context(), id, changes)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": updated})
}

// handleDeleteProject removes a project and, through the cascading schema,
// its tasks, comments and messages. Owner only; admins may not delete.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user := currentUser(c)

	project, err := s.store.GetProject(c.Request.Context(), id)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	if !access.CanDeleteProject(&project, user.ID) {
		respondForbidden(c, "only the project owner can delete the project")
		return
	}

	if err := s.store.DeleteProject(c.Request.Context(), id); err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"success": true})
}
