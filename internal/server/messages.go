package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"synergysphere/internal/access"
	"synergysphere/internal/models"
	"synergysphere/internal/storage/sqlite"
)

type createMessageRequest struct {
	Content         string `json:"content"`
	TaskID          *int64 `json:"taskId"`
	ParentMessageID *int64 `json:"parentMessageId"`
}

type updateMessageRequest struct {
	Content string `json:"content"`
}

// messageProject loads the project for the :id path segment and verifies
// the requester may read it.
func (s *Server) messageProject(c *gin.Context) (models.Project, int64, bool) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return models.Project{}, 0, false
	}
	user := currentUser(c)

	project, err := s.store.GetProject(c.Request.Context(), projectID)
	if err != nil {
		s.respondStoreError(c, err)
		return models.Project{}, 0, false
	}
	if !access.CanAccess(&project, user.ID) {
		respondForbidden(c, "access denied to project")
		return models.Project{}, 0, false
	}
	return project, projectID, true
}

// handleListMessages returns the project discussion in chronological order.
func (s *Server) handleListMessages(c *gin.Context) {
	_, projectID, ok := s.messageProject(c)
	if !ok {
		return
	}

	messages, err := s.store.ListMessages(c.Request.Context(), projectID)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"messages": messages})
}

// handleCreateMessage posts a message, optionally as a reply or scoped to
// a task.
func (s *Server) handleCreateMessage(c *gin.Context) {
	_, projectID, ok := s.messageProject(c)
	if !ok {
		return
	}
	user := currentUser(c)

	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Content == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("message content is required"))
		return
	}

	message, err := s.store.CreateMessage(c.Request.Context(), projectID, user.ID, req.Content, req.TaskID, req.ParentMessageID)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"message": message})
}

// handleUpdateMessage edits a message. Strictly author-only: project role
// grants nothing here. The first edit flips isEdited and stamps editedAt.
func (s *Server) handleUpdateMessage(c *gin.Context) {
	_, projectID, ok := s.messageProject(c)
	if !ok {
		return
	}
	messageID, ok := parseID(c, "messageId")
	if !ok {
		return
	}
	user := currentUser(c)

	var req updateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Content == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("message content is required"))
		return
	}

	message, err := s.store.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	if message.ProjectID != projectID {
		s.respondStoreError(c, fmt.Errorf("message %w", sqlite.ErrNotFound))
		return
	}
	if !access.CanEditMessage(&message, user.ID) {
		respondForbidden(c, "can only edit your own messages")
		return
	}

	updated, err := s.store.UpdateMessage(c.Request.Context(), messageID, req.Content)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"message": updated})
}

// handleDeleteMessage removes a message under the same author-only rule
// as editing.
func (s *Server) handleDeleteMessage(c *gin.Context) {
	_, projectID, ok := s.messageProject(c)
	if !ok {
		return
	}
	messageID, ok := parseID(c, "messageId")
	if !ok {
		return
	}
	user := currentUser(c)

	message, err := s.store.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	if message.ProjectID != projectID {
		s.respondStoreError(c, fmt.Errorf("message %w", sqlite.ErrNotFound))
		return
	}
	if !access.CanEditMessage(&message, user.ID) {
		respondForbidden(c, "can only delete your own messages")
		return
	}

	if err := s.store.DeleteMessage(c.Request.Context(), messageID); err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"success": true})
}
