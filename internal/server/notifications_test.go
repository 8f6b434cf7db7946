package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synergysphere/internal/models"
)

func deadlineTask(id int64, title string, due time.Time) models.Task {
	return models.Task{ID: id, Title: title, ProjectName: "Apollo", DueDate: &due}
}

func TestBuildDeadlineNotifications(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("upcoming within horizon", func(t *testing.T) {
		tasks := []models.Task{deadlineTask(1, "Launch", now.Add(48*time.Hour))}
		notifications, upcoming, overdue := buildDeadlineNotifications(tasks, now)

		require.Len(t, notifications, 1)
		assert.Equal(t, 1, upcoming)
		assert.Equal(t, 0, overdue)

		n := notifications[0]
		assert.Equal(t, "upcoming-1", n.ID)
		assert.Equal(t, "upcoming_deadline", n.Type)
		assert.Equal(t, 2, n.DaysLeft)
		assert.Equal(t, "medium", n.Priority)
		assert.Equal(t, `"Launch" is due in 2 days`, n.Message)
	})

	t.Run("due tomorrow is high priority", func(t *testing.T) {
		tasks := []models.Task{deadlineTask(2, "Review", now.Add(20*time.Hour))}
		notifications, _, _ := buildDeadlineNotifications(tasks, now)

		require.Len(t, notifications, 1)
		assert.Equal(t, "high", notifications[0].Priority)
		assert.Equal(t, `"Review" is due tomorrow`, notifications[0].Message)
	})

	t.Run("overdue never counts as upcoming", func(t *testing.T) {
		tasks := []models.Task{deadlineTask(3, "Report", now.Add(-24*time.Hour))}
		notifications, upcoming, overdue := buildDeadlineNotifications(tasks, now)

		require.Len(t, notifications, 1)
		assert.Equal(t, 0, upcoming)
		assert.Equal(t, 1, overdue)

		n := notifications[0]
		assert.Equal(t, "overdue-3", n.ID)
		assert.Equal(t, "overdue_task", n.Type)
		assert.Equal(t, 1, n.DaysOverdue)
		assert.Equal(t, "critical", n.Priority)
		assert.Equal(t, `"Report" is 1 day overdue`, n.Message)
	})

	t.Run("beyond horizon produces nothing", func(t *testing.T) {
		tasks := []models.Task{deadlineTask(4, "Later", now.Add(96*time.Hour))}
		notifications, upcoming, overdue := buildDeadlineNotifications(tasks, now)

		assert.Empty(t, notifications)
		assert.Equal(t, 0, upcoming)
		assert.Equal(t, 0, overdue)
	})

	t.Run("missing due date skipped", func(t *testing.T) {
		notifications, _, _ := buildDeadlineNotifications([]models.Task{{ID: 5, Title: "Undated"}}, now)
		assert.Empty(t, notifications)
	})
}

func TestDaysBetween(t *testing.T) {
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, daysBetween(base, base.Add(24*time.Hour)))
	assert.Equal(t, 2, daysBetween(base, base.Add(25*time.Hour)), "partial days round up")
	assert.Equal(t, 1, daysBetween(base, base.Add(time.Hour)))
	assert.Equal(t, 0, daysBetween(base, base))
}
