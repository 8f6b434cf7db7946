package sqlite

import (
	"context"
	"fmt"
	"math"
	"time"

	"synergysphere/internal/models"
)

// DashboardStats are the per-user counters shown on the dashboard,
// recomputed on every request.
type DashboardStats struct {
	TotalProjects   int `json:"totalProjects"`
	ActiveProjects  int `json:"activeProjects"`
	TotalTasks      int `json:"totalTasks"`
	InProgressTasks int `json:"inProgressTasks"`
	CompletedTasks  int `json:"completedTasks"`
	OverdueTasks    int `json:"overdueTasks"`
}

const userProjectIDs = `SELECT p.id FROM projects p
        LEFT JOIN project_members pm ON pm.project_id = p.id
        WHERE p.owner_id = ? OR pm.user_id = ?`

// GetDashboardStats counts the user's projects and the tasks within them.
// Overdue means past due and not done.
func (s *Store) GetDashboardStats(ctx context.Context, userID int64, now time.Time) (DashboardStats, error) {
	var stats DashboardStats

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*),
            COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0)
        FROM projects WHERE id IN (`+userProjectIDs+`)`, userID, userID).
		Scan(&stats.TotalProjects, &stats.ActiveProjects)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("project stats: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*),
            COALESCE(SUM(CASE WHEN status = 'in-progress' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN due_date IS NOT NULL AND due_date < ? AND status != 'done' THEN 1 ELSE 0 END), 0)
        FROM tasks WHERE project_id IN (`+userProjectIDs+`)`, now.UTC(), userID, userID).
		Scan(&stats.TotalTasks, &stats.InProgressTasks, &stats.CompletedTasks, &stats.OverdueTasks)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("task stats: %w", err)
	}

	return stats, nil
}

// ProjectRole names one project a user participates in and the role held there.
type ProjectRole struct {
	ProjectID   int64  `json:"projectId"`
	ProjectName string `json:"projectName"`
	Role        string `json:"role"`
}

// TeamMember is the directory view of a user with membership and task stats.
type TeamMember struct {
	models.UserSummary
	Role           string        `json:"role"`
	Projects       []ProjectRole `json:"projects"`
	TasksAssigned  int           `json:"tasksAssigned"`
	TasksCompleted int           `json:"tasksCompleted"`
	CompletionRate int           `json:"completionRate"`
}

// ListTeamMembers returns every user with their project roles and task
// counters, ordered by name. The completion rate is zero when nothing is
// assigned rather than a division error.
func (s *Store) ListTeamMembers(ctx context.Context) ([]TeamMember, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	members := []TeamMember{}
	for _, u := range users {
		tm := TeamMember{UserSummary: u.Summary(), Role: u.Role, Projects: []ProjectRole{}}

		rows, err := s.db.QueryContext(ctx, `SELECT p.id, p.name, pm.role
            FROM project_members pm JOIN projects p ON p.id = pm.project_id
            WHERE pm.user_id = ? ORDER BY p.name`, u.ID)
		if err != nil {
			return nil, fmt.Errorf("member projects: %w", err)
		}
		for rows.Next() {
			var pr ProjectRole
			if err := rows.Scan(&pr.ProjectID, &pr.ProjectName, &pr.Role); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan member project: %w", err)
			}
			tm.Projects = append(tm.Projects, pr)
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}

		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*),
                COALESCE(SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END), 0)
            FROM tasks WHERE assignee_id = ?`, u.ID).
			Scan(&tm.TasksAssigned, &tm.TasksCompleted)
		if err != nil {
			return nil, fmt.Errorf("member task stats: %w", err)
		}
		tm.CompletionRate = CompletionRate(tm.TasksCompleted, tm.TasksAssigned)

		members = append(members, tm)
	}
	return members, nil
}

// CompletionRate is round(completed/assigned*100), or 0 when nothing is assigned.
func CompletionRate(completed, assigned int) int {
	if assigned == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(assigned) * 100))
}

// ListDeadlineTasks returns the user's notification candidates: not-done
// tasks with a due date, in projects the user belongs to, that are either
// unassigned or assigned to the user. Ordered by due date.
func (s *Store) ListDeadlineTasks(ctx context.Context, userID int64) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+taskFrom+`
        WHERE t.project_id IN (`+userProjectIDs+`)
          AND t.due_date IS NOT NULL
          AND t.status != 'done'
          AND (t.assignee_id IS NULL OR t.assignee_id = ?)
        ORDER BY t.due_date, t.id`, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list deadline tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deadline task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
