package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"synergysphere/internal/access"
	"synergysphere/internal/models"
	"synergysphere/internal/storage/sqlite"
)

type createTaskRequest struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	ProjectID      int64      `json:"projectId"`
	Priority       string     `json:"priority"`
	AssigneeID     *int64     `json:"assigneeId"`
	DueDate        *time.Time `json:"dueDate"`
	EstimatedHours *float64   `json:"estimatedHours"`
	Tags           []string   `json:"tags"`
}

type updateTaskRequest struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	Status         *string    `json:"status"`
	Priority       *string    `json:"priority"`
	AssigneeID     *int64     `json:"assigneeId"`
	DueDate        *time.Time `json:"dueDate"`
	EstimatedHours *float64   `json:"estimatedHours"`
	ActualHours    *float64   `json:"actualHours"`
	Tags           []string   `json:"tags"`
}

// taskProject loads the project a task belongs to for access checks.
func (s *Server) taskProject(c *gin.Context, task models.Task) (models.Project, bool) {
	project, err := s.store.GetProject(c.Request.Context(), task.ProjectID)
	if err != nil {
		s.respondStoreError(c, err)
		return models.Project{}, false
	}
	return project, true
}

// handleListTasks lists tasks filtered by project, by assignment to the
// requester, or scoped to the requester's projects when unfiltered.
func (s *Server) handleListTasks(c *gin.Context) {
	user := currentUser(c)

	filter := sqlite.TaskFilter{MemberID: user.ID}

	if raw := c.Query("projectId"); raw != "" {
		projectID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, fmt.Errorf("invalid projectId"))
			return
		}
		project, err := s.store.GetProject(c.Request.Context(), projectID)
		if err != nil {
			s.respondStoreError(c, err)
			return
		}
		if !access.CanAccess(&project, user.ID) {
			respondForbidden(c, "access denied to project")
			return
		}
		filter.ProjectID = &projectID
	}

	if c.Query("assignedToMe") == "true" {
		filter.AssigneeID = &user.ID
	}

	tasks, err := s.store.ListTasks(c.Request.Context(), filter)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleCreateTask inserts a task into a project the requester can access.
func (s *Server) handleCreateTask(c *gin.Context) {
	user := currentUser(c)

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Title == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("task title is required"))
		return
	}
	if req.ProjectID == 0 {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("project id is required"))
		return
	}

	project, err := s.store.GetProject(c.Request.Context(), req.ProjectID)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	if !access.CanAccess(&project, user.ID) {
		respondForbidden(c, "access denied to project")
		return
	}

	task, err := s.store.CreateTask(c.Request.Context(), sqlite.NewTask{
		ProjectID:      req.ProjectID,
		CreatorID:      user.ID,
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		AssigneeID:     req.AssigneeID,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
		Tags:           req.Tags,
	})
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleGetTask returns one task to members of its project.
func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user := currentUser(c)

	task, err := s.store.GetTask(c.Request.Context(), id)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	project, ok := s.taskProject(c, task)
	if !ok {
		return
	}
	if !access.CanAccess(&project, user.ID) {
		respondForbidden(c, "access denied")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleUpdateTask applies a partial update. Any project member may edit
// any field; a status change drives the completedAt derivation.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user := currentUser(c)

	raw, err := c.GetRawData()
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	var req updateTaskRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	// Nullable fields need presence detection: "assigneeId": null clears
	// the assignee, while an absent key leaves it alone.
	var present map[string]json.RawMessage
	if err := json.Unmarshal(raw, &present); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	hasKey := func(key string) bool {
		_, ok := present[key]
		return ok
	}

	task, err := s.store.GetTask(c.Request.Context(), id)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	project, ok := s.taskProject(c, task)
	if !ok {
		return
	}
	if !access.CanAccess(&project, user.ID) {
		respondForbidden(c, "access denied")
		return
	}

	changes := map[string]any{}
	if req.Title != nil {
		changes["title"] = *req.Title
	}
	if req.Description != nil {
		changes["description"] = *req.Description
	}
	if req.Status != nil {
		if _, valid := models.ValidTaskStatuses[*req.Status]; !valid {
			s.respondError(c, http.StatusBadRequest, fmt.Errorf("invalid task status %q", *req.Status))
			return
		}
		changes["status"] = *req.Status
	}
	if req.Priority != nil {
		changes["priority"] = *req.Priority
	}
	if hasKey("assigneeId") {
		changes["assigneeId"] = req.AssigneeID
	}
	if hasKey("dueDate") {
		changes["dueDate"] = req.DueDate
	}
	if hasKey("estimatedHours") {
		changes["estimatedHours"] = req.EstimatedHours
	}
	if req.ActualHours != nil {
		changes["actualHours"] = *req.ActualHours
	}
	if req.Tags != nil {
		changes["tags"] = req.Tags
	}

	updated, err := s.store.UpdateTask(c.Request.Context(), id, changes)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": updated})
}

// handleDeleteTask removes a task; project owner or admin member only.
// Being the task's creator or assignee is not sufficient.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user := currentUser(c)

	task, err := s.store.GetTask(c.Request.Context(), id)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	project, ok := s.taskProject(c, task)
	if !ok {
		return
	}
	if !access.CanDeleteTask(&project, user.ID) {
		respondForbidden(c, "only the project owner or an admin can delete tasks")
		return
	}

	if err := s.store.DeleteTask(c.Request.Context(), id); err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"success": true})
}

type commentRequest struct {
	Content string `json:"content"`
}

// handleAddComment appends a comment and returns the full task, comments
// included, the way the source API does.
func (s *Server) handleAddComment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user := currentUser(c)

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Content == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("comment content is required"))
		return
	}

	task, err := s.store.GetTask(c.Request.Context(), id)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	project, ok := s.taskProject(c, task)
	if !ok {
		return
	}
	if !access.CanAccess(&project, user.ID) {
		respondForbidden(c, "access denied")
		return
	}

	updated, err := s.store.AddTaskComment(c.Request.Context(), id, user.ID, req.Content)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": updated})
}

// handleListComments returns a task's comments, oldest first.
func (s *Server) handleListComments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user := currentUser(c)

	task, err := s.store.GetTask(c.Request.Context(), id)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	project, ok := s.taskProject(c, task)
	if !ok {
		return
	}
	if !access.CanAccess(&project, user.ID) {
		respondForbidden(c, "access denied")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"comments": task.Comments})
}
