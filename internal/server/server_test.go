package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synergysphere/internal/storage/sqlite"
)

type testEnv struct {
	srv   *Server
	store *sqlite.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlite.Open(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &testEnv{
		srv:   New(store, logger, "", 24*time.Hour),
		store: store,
	}
}

// signup registers a user through the API and returns a session token.
func (e *testEnv) signup(t *testing.T, name, email string) string {
	t.Helper()
	rec := e.do(t, "", http.MethodPost, "/api/auth/register",
		map[string]any{"name": name, "email": email, "password": "secret"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, "", http.MethodPost, "/api/auth/login",
		map[string]any{"email": email, "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func (e *testEnv) do(t *testing.T, token, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func (e *testEnv) createProject(t *testing.T, token, name string, members ...string) int64 {
	t.Helper()
	rec := e.do(t, token, http.MethodPost, "/api/projects",
		map[string]any{"name": name, "description": "d", "members": members})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body struct {
		Project struct {
			ID int64 `json:"id"`
		} `json:"project"`
	}
	decode(t, rec, &body)
	return body.Project.ID
}

func (e *testEnv) createTask(t *testing.T, token string, projectID int64, title string) int64 {
	t.Helper()
	rec := e.do(t, token, http.MethodPost, "/api/tasks",
		map[string]any{"title": title, "projectId": projectID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body struct {
		Task struct {
			ID int64 `json:"id"`
		} `json:"task"`
	}
	decode(t, rec, &body)
	return body.Task.ID
}

func TestAuthRequired(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{
		"/api/projects",
		"/api/tasks",
		"/api/notifications/upcoming-deadlines",
		"/api/users/profile",
	} {
		rec := e.do(t, "", http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, "", http.MethodPost, "/api/auth/register",
		map[string]any{"name": "Alice", "email": "alice@example.com", "password": "secret"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, "", http.MethodPost, "/api/auth/register",
		map[string]any{"name": "Alice2", "email": "alice@example.com", "password": "other"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "duplicate email")

	rec = e.do(t, "", http.MethodPost, "/api/auth/register",
		map[string]any{"email": "noname@example.com", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing name")

	rec = e.do(t, "", http.MethodPost, "/api/auth/login",
		map[string]any{"email": "alice@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := e.signup(t, "Bob", "bob@example.com")
	rec = e.do(t, token, http.MethodGet, "/api/users/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	decode(t, rec, &profile)
	assert.Equal(t, "Bob", profile.Name)
	assert.Equal(t, "bob@example.com", profile.Email)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = e.do(t, token, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, token, http.MethodGet, "/api/users/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "session revoked")
}

func TestProjectAuthorizationMatrix(t *testing.T) {
	e := newTestEnv(t)
	owner := e.signup(t, "Alice", "alice@example.com")
	member := e.signup(t, "Bob", "bob@example.com")
	outsider := e.signup(t, "Carol", "carol@example.com")

	projectID := e.createProject(t, owner, "Apollo", "bob@example.com")
	path := fmt.Sprintf("/api/projects/%d", projectID)

	// Read: owner and member yes, outsider 403.
	assert.Equal(t, http.StatusOK, e.do(t, owner, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusOK, e.do(t, member, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, outsider, http.MethodGet, path, nil).Code)

	// Update: plain member lacks the admin role.
	update := map[string]any{"status": "completed"}
	assert.Equal(t, http.StatusForbidden, e.do(t, member, http.MethodPut, path, update).Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, outsider, http.MethodPut, path, update).Code)

	rec := e.do(t, owner, http.MethodPut, path, update)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Project struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"project"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "completed", body.Project.Status)
	assert.Equal(t, "Apollo", body.Project.Name, "partial update keeps omitted fields")

	rec = e.do(t, owner, http.MethodPut, path, map[string]any{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown status rejected")

	// Delete: owner only.
	assert.Equal(t, http.StatusForbidden, e.do(t, member, http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusOK, e.do(t, owner, http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, owner, http.MethodGet, path, nil).Code)
}

func TestCreateProjectValidation(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "Alice", "alice@example.com")

	rec := e.do(t, token, http.MethodPost, "/api/projects", map[string]any{"description": "no name"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Listing the owner's own email must not duplicate the owner membership.
	rec = e.do(t, token, http.MethodPost, "/api/projects",
		map[string]any{"name": "Solo", "members": []string{"alice@example.com", "ghost@example.com"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		Project struct {
			Members []struct {
				Role string `json:"role"`
			} `json:"members"`
		} `json:"project"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Project.Members, 1)
	assert.Equal(t, "owner", body.Project.Members[0].Role)
}

func TestTaskLifecycle(t *testing.T) {
	e := newTestEnv(t)
	owner := e.signup(t, "Alice", "alice@example.com")
	member := e.signup(t, "Bob", "bob@example.com")
	outsider := e.signup(t, "Carol", "carol@example.com")

	projectID := e.createProject(t, owner, "Apollo", "bob@example.com")

	rec := e.do(t, owner, http.MethodPost, "/api/tasks", map[string]any{"projectId": projectID})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "title required")
	rec = e.do(t, owner, http.MethodPost, "/api/tasks", map[string]any{"title": "Orphan"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "projectId required")
	rec = e.do(t, outsider, http.MethodPost, "/api/tasks", map[string]any{"title": "Sneaky", "projectId": projectID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, member, http.MethodPost, "/api/tasks", map[string]any{"title": "Launch", "projectId": projectID})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Task struct {
			ID       int64  `json:"id"`
			Status   string `json:"status"`
			Priority string `json:"priority"`
		} `json:"task"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "todo", created.Task.Status)
	assert.Equal(t, "medium", created.Task.Priority, "default priority")

	taskPath := fmt.Sprintf("/api/tasks/%d", created.Task.ID)

	// Any member may edit any field; moving to done stamps completedAt.
	rec = e.do(t, member, http.MethodPut, taskPath, map[string]any{"status": "done", "priority": "high"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated struct {
		Task struct {
			Status      string     `json:"status"`
			Priority    string     `json:"priority"`
			CompletedAt *time.Time `json:"completedAt"`
		} `json:"task"`
	}
	decode(t, rec, &updated)
	assert.Equal(t, "done", updated.Task.Status)
	assert.Equal(t, "high", updated.Task.Priority)
	require.NotNil(t, updated.Task.CompletedAt)

	rec = e.do(t, member, http.MethodPut, taskPath, map[string]any{"status": "todo"})
	require.Equal(t, http.StatusOK, rec.Code)
	var reopened struct {
		Task struct {
			CompletedAt *time.Time `json:"completedAt"`
		} `json:"task"`
	}
	decode(t, rec, &reopened)
	assert.Nil(t, reopened.Task.CompletedAt, "leaving done clears completedAt")

	assert.Equal(t, http.StatusForbidden, e.do(t, outsider, http.MethodPut, taskPath, map[string]any{"title": "x"}).Code)

	// Delete: owner or admin only; the creator alone does not qualify.
	assert.Equal(t, http.StatusForbidden, e.do(t, member, http.MethodDelete, taskPath, nil).Code)
	assert.Equal(t, http.StatusOK, e.do(t, owner, http.MethodDelete, taskPath, nil).Code)
}

func TestTaskListFilters(t *testing.T) {
	e := newTestEnv(t)
	owner := e.signup(t, "Alice", "alice@example.com")
	outsider := e.signup(t, "Carol", "carol@example.com")

	projectID := e.createProject(t, owner, "Apollo")
	e.createTask(t, owner, projectID, "One")
	e.createTask(t, owner, projectID, "Two")

	rec := e.do(t, outsider, http.MethodGet, fmt.Sprintf("/api/tasks?projectId=%d", projectID), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "project filter without access")

	rec = e.do(t, owner, http.MethodGet, fmt.Sprintf("/api/tasks?projectId=%d", projectID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Tasks []struct {
			Title string `json:"title"`
		} `json:"tasks"`
	}
	decode(t, rec, &body)
	assert.Len(t, body.Tasks, 2)

	rec = e.do(t, outsider, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &body)
	assert.Empty(t, body.Tasks, "unfiltered list scoped to own projects")
}

func TestTaskComments(t *testing.T) {
	e := newTestEnv(t)
	owner := e.signup(t, "Alice", "alice@example.com")
	outsider := e.signup(t, "Carol", "carol@example.com")

	projectID := e.createProject(t, owner, "Apollo")
	taskID := e.createTask(t, owner, projectID, "Launch")
	path := fmt.Sprintf("/api/tasks/%d/comments", taskID)

	rec := e.do(t, owner, http.MethodPost, path, map[string]any{"content": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty content")
	rec = e.do(t, outsider, http.MethodPost, path, map[string]any{"content": "hi"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	e.do(t, owner, http.MethodPost, path, map[string]any{"content": "first"})
	rec = e.do(t, owner, http.MethodPost, path, map[string]any{"content": "second"})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Task struct {
			Comments []struct {
				Content string `json:"content"`
			} `json:"comments"`
		} `json:"task"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Task.Comments, 2)
	assert.Equal(t, "first", body.Task.Comments[0].Content, "append-only, order preserved")
	assert.Equal(t, "second", body.Task.Comments[1].Content)
}

func TestMessageAuthorOnlyRules(t *testing.T) {
	e := newTestEnv(t)
	owner := e.signup(t, "Alice", "alice@example.com")
	member := e.signup(t, "Bob", "bob@example.com")
	outsider := e.signup(t, "Carol", "carol@example.com")

	projectID := e.createProject(t, owner, "Apollo", "bob@example.com")
	base := fmt.Sprintf("/api/projects/%d/messages", projectID)

	rec := e.do(t, outsider, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, member, http.MethodPost, base, map[string]any{"content": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Message struct {
			ID       int64 `json:"id"`
			IsEdited bool  `json:"isEdited"`
		} `json:"message"`
	}
	decode(t, rec, &created)
	assert.False(t, created.Message.IsEdited)

	msgPath := fmt.Sprintf("%s/%d", base, created.Message.ID)

	// Even the project owner may not edit or delete another author's message.
	rec = e.do(t, owner, http.MethodPut, msgPath, map[string]any{"content": "hijack"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = e.do(t, owner, http.MethodDelete, msgPath, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, member, http.MethodPut, msgPath, map[string]any{"content": "hello again"})
	require.Equal(t, http.StatusOK, rec.Code)
	var edited struct {
		Message struct {
			Content  string     `json:"content"`
			IsEdited bool       `json:"isEdited"`
			EditedAt *time.Time `json:"editedAt"`
		} `json:"message"`
	}
	decode(t, rec, &edited)
	assert.True(t, edited.Message.IsEdited)
	assert.NotNil(t, edited.Message.EditedAt)
	assert.Equal(t, "hello again", edited.Message.Content)

	// Replies carry a one-level parent summary.
	rec = e.do(t, owner, http.MethodPost, base, map[string]any{"content": "re", "parentMessageId": created.Message.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	var reply struct {
		Message struct {
			Parent *struct {
				Content string `json:"content"`
			} `json:"parentMessage"`
		} `json:"message"`
	}
	decode(t, rec, &reply)
	require.NotNil(t, reply.Message.Parent)
	assert.Equal(t, "hello again", reply.Message.Parent.Content)

	// The message is only addressable under its own project, even for
	// the author going through another project they can access.
	otherID := e.createProject(t, member, "Beta")
	crossPath := fmt.Sprintf("/api/projects/%d/messages/%d", otherID, created.Message.ID)
	rec = e.do(t, member, http.MethodPut, crossPath, map[string]any{"content": "detour"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = e.do(t, member, http.MethodDelete, crossPath, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, http.StatusOK, e.do(t, member, http.MethodDelete, msgPath, nil).Code)
}

func TestUpcomingDeadlines(t *testing.T) {
	e := newTestEnv(t)
	owner := e.signup(t, "Alice", "alice@example.com")

	projectID := e.createProject(t, owner, "Apollo")

	inTwoDays := time.Now().Add(48 * time.Hour).Format(time.RFC3339)
	rec := e.do(t, owner, http.MethodPost, "/api/tasks",
		map[string]any{"title": "Soon", "projectId": projectID, "dueDate": inTwoDays})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, owner, http.MethodGet, "/api/notifications/upcoming-deadlines", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Notifications []struct {
			Type        string `json:"type"`
			DaysLeft    int    `json:"daysLeft"`
			DaysOverdue int    `json:"daysOverdue"`
			Priority    string `json:"priority"`
		} `json:"notifications"`
		Counts struct {
			Upcoming int `json:"upcoming"`
			Overdue  int `json:"overdue"`
			Total    int `json:"total"`
		} `json:"counts"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, "upcoming_deadline", body.Notifications[0].Type)
	assert.Equal(t, 2, body.Notifications[0].DaysLeft)
	assert.Equal(t, "medium", body.Notifications[0].Priority)
	assert.Equal(t, 1, body.Counts.Upcoming)
	assert.Equal(t, 0, body.Counts.Overdue)

	// Push the task past due: it becomes exactly one overdue entry. The
	// offset stays under a full day so the rounded-up count is 1.
	yesterday := time.Now().Add(-23 * time.Hour).Format(time.RFC3339)
	taskID := int64(1)
	rec = e.do(t, owner, http.MethodPut, fmt.Sprintf("/api/tasks/%d", taskID),
		map[string]any{"dueDate": yesterday})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, owner, http.MethodGet, "/api/notifications/upcoming-deadlines", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &body)
	require.Len(t, body.Notifications, 1, "never both upcoming and overdue")
	assert.Equal(t, "overdue_task", body.Notifications[0].Type)
	assert.Equal(t, 1, body.Notifications[0].DaysOverdue)
	assert.Equal(t, "critical", body.Notifications[0].Priority)
	assert.Equal(t, 1, body.Counts.Overdue)
}

func TestDashboardStats(t *testing.T) {
	e := newTestEnv(t)
	owner := e.signup(t, "Alice", "alice@example.com")

	projectID := e.createProject(t, owner, "Apollo")
	taskID := e.createTask(t, owner, projectID, "Launch")
	e.do(t, owner, http.MethodPut, fmt.Sprintf("/api/tasks/%d", taskID), map[string]any{"status": "done"})

	rec := e.do(t, owner, http.MethodGet, "/api/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Stats struct {
			TotalProjects  int `json:"totalProjects"`
			ActiveProjects int `json:"activeProjects"`
			TotalTasks     int `json:"totalTasks"`
			CompletedTasks int `json:"completedTasks"`
		} `json:"stats"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 1, body.Stats.TotalProjects)
	assert.Equal(t, 1, body.Stats.ActiveProjects)
	assert.Equal(t, 1, body.Stats.TotalTasks)
	assert.Equal(t, 1, body.Stats.CompletedTasks)
}

func TestTeamMembersAndProfile(t *testing.T) {
	e := newTestEnv(t)
	owner := e.signup(t, "Alice", "alice@example.com")
	e.signup(t, "Bob", "bob@example.com")

	e.createProject(t, owner, "Apollo", "bob@example.com")

	rec := e.do(t, owner, http.MethodGet, "/api/users/team-members", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		TeamMembers []struct {
			Name           string `json:"name"`
			CompletionRate int    `json:"completionRate"`
			Projects       []struct {
				Role string `json:"role"`
			} `json:"projects"`
		} `json:"teamMembers"`
	}
	decode(t, rec, &body)
	require.Len(t, body.TeamMembers, 2)
	assert.Equal(t, "Alice", body.TeamMembers[0].Name, "sorted by name")
	assert.Equal(t, 0, body.TeamMembers[0].CompletionRate)
	require.Len(t, body.TeamMembers[1].Projects, 1)
	assert.Equal(t, "member", body.TeamMembers[1].Projects[0].Role)

	rec = e.do(t, owner, http.MethodPatch, "/api/users/profile", map[string]any{"bio": "no name"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, owner, http.MethodPatch, "/api/users/profile",
		map[string]any{"name": "Alice L.", "bio": "engineer", "skills": []string{"go"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var profile struct {
		Name   string   `json:"name"`
		Bio    string   `json:"bio"`
		Skills []string `json:"skills"`
	}
	decode(t, rec, &profile)
	assert.Equal(t, "Alice L.", profile.Name)
	assert.Equal(t, "engineer", profile.Bio)
	assert.Equal(t, []string{"go"}, profile.Skills)
}
