package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synergysphere/internal/models"
)

func TestCompletionRate(t *testing.T) {
	assert.Equal(t, 0, CompletionRate(0, 0), "no assignments is 0, not an error")
	assert.Equal(t, 100, CompletionRate(4, 4))
	assert.Equal(t, 50, CompletionRate(1, 2))
	assert.Equal(t, 33, CompletionRate(1, 3))
	assert.Equal(t, 67, CompletionRate(2, 3))
}

func TestGetDashboardStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice@example.com", "Alice")
	bob := mustUser(t, s, "bob@example.com", "Bob")
	now := time.Now()

	p1, err := s.CreateProject(ctx, alice.ID, "Active", "", nil)
	require.NoError(t, err)
	p2, err := s.CreateProject(ctx, alice.ID, "Done", "", nil)
	require.NoError(t, err)
	_, err = s.UpdateProject(ctx, p2.ID, map[string]any{"status": "completed"})
	require.NoError(t, err)

	// A project alice has nothing to do with must not count.
	other, err := s.CreateProject(ctx, bob.ID, "Other", "", nil)
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, NewTask{ProjectID: other.ID, CreatorID: bob.ID, Title: "Invisible"})
	require.NoError(t, err)

	_, err = s.CreateTask(ctx, NewTask{ProjectID: p1.ID, CreatorID: alice.ID, Title: "Todo"})
	require.NoError(t, err)
	inProgress, err := s.CreateTask(ctx, NewTask{ProjectID: p1.ID, CreatorID: alice.ID, Title: "Doing"})
	require.NoError(t, err)
	_, err = s.UpdateTask(ctx, inProgress.ID, map[string]any{"status": models.TaskStatusInProgress})
	require.NoError(t, err)
	done, err := s.CreateTask(ctx, NewTask{ProjectID: p1.ID, CreatorID: alice.ID, Title: "Done"})
	require.NoError(t, err)
	_, err = s.UpdateTask(ctx, done.ID, map[string]any{"status": models.TaskStatusDone})
	require.NoError(t, err)
	past := now.Add(-48 * time.Hour)
	_, err = s.CreateTask(ctx, NewTask{ProjectID: p2.ID, CreatorID: alice.ID, Title: "Late", DueDate: &past})
	require.NoError(t, err)

	stats, err := s.GetDashboardStats(ctx, alice.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalProjects)
	assert.Equal(t, 1, stats.ActiveProjects)
	assert.Equal(t, 4, stats.TotalTasks)
	assert.Equal(t, 1, stats.InProgressTasks)
	assert.Equal(t, 1, stats.CompletedTasks)
	assert.Equal(t, 1, stats.OverdueTasks)
}

func TestListTeamMembers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	bob := mustUser(t, s, "bob@example.com", "Bob")
	alice := mustUser(t, s, "alice@example.com", "Alice")

	p, err := s.CreateProject(ctx, alice.ID, "Apollo", "", []string{"bob@example.com"})
	require.NoError(t, err)

	t1, err := s.CreateTask(ctx, NewTask{ProjectID: p.ID, CreatorID: alice.ID, Title: "One", AssigneeID: &bob.ID})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, NewTask{ProjectID: p.ID, CreatorID: alice.ID, Title: "Two", AssigneeID: &bob.ID})
	require.NoError(t, err)
	_, err = s.UpdateTask(ctx, t1.ID, map[string]any{"status": models.TaskStatusDone})
	require.NoError(t, err)

	members, err := s.ListTeamMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)

	assert.Equal(t, "Alice", members[0].Name, "sorted by name")
	assert.Equal(t, "Bob", members[1].Name)

	aliceRow := members[0]
	require.Len(t, aliceRow.Projects, 1)
	assert.Equal(t, models.RoleOwner, aliceRow.Projects[0].Role)
	assert.Equal(t, 0, aliceRow.TasksAssigned)
	assert.Equal(t, 0, aliceRow.CompletionRate, "zero assigned must not divide by zero")

	bobRow := members[1]
	require.Len(t, bobRow.Projects, 1)
	assert.Equal(t, models.RoleMember, bobRow.Projects[0].Role)
	assert.Equal(t, 2, bobRow.TasksAssigned)
	assert.Equal(t, 1, bobRow.TasksCompleted)
	assert.Equal(t, 50, bobRow.CompletionRate)
}

func TestListDeadlineTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice@example.com", "Alice")
	bob := mustUser(t, s, "bob@example.com", "Bob")
	now := time.Now()

	p, err := s.CreateProject(ctx, alice.ID, "Apollo", "", []string{"bob@example.com"})
	require.NoError(t, err)

	soon := now.Add(48 * time.Hour)
	past := now.Add(-24 * time.Hour)

	_, err = s.CreateTask(ctx, NewTask{ProjectID: p.ID, CreatorID: alice.ID, Title: "Unassigned", DueDate: &soon})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, NewTask{ProjectID: p.ID, CreatorID: alice.ID, Title: "Mine", DueDate: &past, AssigneeID: &alice.ID})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, NewTask{ProjectID: p.ID, CreatorID: alice.ID, Title: "Bobs", DueDate: &soon, AssigneeID: &bob.ID})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, NewTask{ProjectID: p.ID, CreatorID: alice.ID, Title: "No due date"})
	require.NoError(t, err)
	finished, err := s.CreateTask(ctx, NewTask{ProjectID: p.ID, CreatorID: alice.ID, Title: "Finished", DueDate: &past})
	require.NoError(t, err)
	_, err = s.UpdateTask(ctx, finished.ID, map[string]any{"status": models.TaskStatusDone})
	require.NoError(t, err)

	tasks, err := s.ListDeadlineTasks(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2, "only unassigned or own, not-done, dated tasks")
	assert.Equal(t, "Mine", tasks[0].Title, "ordered by due date")
	assert.Equal(t, "Unassigned", tasks[1].Title)
}
