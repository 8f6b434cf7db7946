package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"synergysphere/internal/models"
)

// deadlineHorizon is how far ahead a due date counts as "upcoming".
const deadlineHorizon = 3 * 24 * time.Hour

// notification is one entry in the upcoming-deadlines feed.
type notification struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	TaskID      int64      `json:"taskId"`
	TaskTitle   string     `json:"taskTitle"`
	ProjectName string     `json:"projectName"`
	DueDate     *time.Time `json:"dueDate"`
	DaysLeft    int        `json:"daysLeft,omitempty"`
	DaysOverdue int        `json:"daysOverdue,omitempty"`
	Priority    string     `json:"priority"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// handleUpcomingDeadlines reports the requester's tasks due within the
// horizon or already overdue. Recomputed per request; clients poll.
func (s *Server) handleUpcomingDeadlines(c *gin.Context) {
	user := currentUser(c)

	tasks, err := s.store.ListDeadlineTasks(c.Request.Context(), user.ID)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}

	notifications, upcoming, overdue := buildDeadlineNotifications(tasks, time.Now())
	respondSuccess(c, http.StatusOK, gin.H{
		"notifications": notifications,
		"counts": gin.H{
			"upcoming": upcoming,
			"overdue":  overdue,
			"total":    len(notifications),
		},
	})
}

// buildDeadlineNotifications classifies each candidate task as upcoming or
// overdue relative to now. A task is never both. Tasks due beyond the
// horizon produce nothing.
func buildDeadlineNotifications(tasks []models.Task, now time.Time) ([]notification, int, int) {
	notifications := []notification{}
	var upcoming, overdue int

	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		due := *t.DueDate

		switch {
		case due.Before(now):
			days := daysBetween(due, now)
			notifications = append(notifications, notification{
				ID:          fmt.Sprintf("overdue-%d", t.ID),
				Type:        "overdue_task",
				Title:       "Task Overdue",
				Message:     fmt.Sprintf("%q is %d %s overdue", t.Title, days, plural(days, "day")),
				TaskID:      t.ID,
				TaskTitle:   t.Title,
				ProjectName: t.ProjectName,
				DueDate:     t.DueDate,
				DaysOverdue: days,
				Priority:    "critical",
				CreatedAt:   now,
			})
			overdue++
		case !due.After(now.Add(deadlineHorizon)):
			days := daysBetween(now, due)
			notifications = append(notifications, notification{
				ID:          fmt.Sprintf("upcoming-%d", t.ID),
				Type:        "upcoming_deadline",
				Title:       "Task Due Soon",
				Message:     upcomingMessage(t.Title, days),
				TaskID:      t.ID,
				TaskTitle:   t.Title,
				ProjectName: t.ProjectName,
				DueDate:     t.DueDate,
				DaysLeft:    days,
				Priority:    upcomingPriority(days),
				CreatedAt:   now,
			})
			upcoming++
		}
	}
	return notifications, upcoming, overdue
}

// daysBetween rounds the span from a to b up to whole days.
func daysBetween(a, b time.Time) int {
	diff := b.Sub(a)
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return days
}

func upcomingMessage(title string, days int) string {
	if days == 1 {
		return fmt.Sprintf("%q is due tomorrow", title)
	}
	return fmt.Sprintf("%q is due in %d days", title, days)
}

func upcomingPriority(days int) string {
	switch days {
	case 1:
		return "high"
	case 2:
		return "medium"
	default:
		return "low"
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// handleDashboardStats returns the per-user dashboard counters.
func (s *Server) handleDashboardStats(c *gin.Context) {
	user := currentUser(c)

	stats, err := s.store.GetDashboardStats(c.Request.Context(), user.ID, time.Now())
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"stats": stats})
}
