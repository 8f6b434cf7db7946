package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"synergysphere/internal/models"
)

const taskColumns = `t.id, t.project_id, p.name, t.title, t.description, t.status, t.priority,
        t.assignee_id, t.creator_id, t.due_date, t.estimated_hours, t.actual_hours, t.tags,
        t.completed_at, t.created_at, t.updated_at,
        a.name, a.email, a.avatar`

const taskFrom = ` FROM tasks t
        JOIN projects p ON p.id = t.project_id
        LEFT JOIN users a ON a.id = t.assignee_id`

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var t models.Task
	var tags string
	var assigneeID sql.NullInt64
	var due, completed sql.NullTime
	var estimated sql.NullFloat64
	var aName, aEmail, aAvatar sql.NullString
	err := row.Scan(&t.ID, &t.ProjectID, &t.ProjectName, &t.Title, &t.Description, &t.Status, &t.Priority,
		&assigneeID, &t.CreatorID, &due, &estimated, &t.ActualHours, &tags,
		&completed, &t.CreatedAt, &t.UpdatedAt,
		&aName, &aEmail, &aAvatar)
	if err != nil {
		return models.Task{}, err
	}
	t.Tags = decodeList(tags)
	if assigneeID.Valid {
		id := assigneeID.Int64
		t.AssigneeID = &id
		t.Assignee = &models.UserSummary{ID: id, Name: aName.String, Email: aEmail.String, Avatar: aAvatar.String}
	}
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	if completed.Valid {
		c := completed.Time
		t.CompletedAt = &c
	}
	if estimated.Valid {
		e := estimated.Float64
		t.EstimatedHours = &e
	}
	return t, nil
}

// NewTask carries the client-settable fields for task creation.
type NewTask struct {
	ProjectID      int64
	CreatorID      int64
	Title          string
	Description    string
	Priority       string
	AssigneeID     *int64
	DueDate        *time.Time
	EstimatedHours *float64
	Tags           []string
}

// CreateTask inserts a task with the source defaults: status todo,
// priority medium when unset. The assignee is not validated against the
// project membership, matching the observed behavior.
func (s *Store) CreateTask(ctx context.Context, nt NewTask) (models.Task, error) {
	if strings.TrimSpace(nt.Title) == "" {
		return models.Task{}, fmt.Errorf("task title must not be empty")
	}
	if _, ok := models.ValidPriorities[nt.Priority]; !ok {
		nt.Priority = "medium"
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(project_id, title, description, status, priority, assignee_id, creator_id, due_date, estimated_hours, tags)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nt.ProjectID, strings.TrimSpace(nt.Title), strings.TrimSpace(nt.Description), models.TaskStatusTodo,
		nt.Priority, nt.AssigneeID, nt.CreatorID, nt.DueDate, nt.EstimatedHours, encodeList(nt.Tags))
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, fmt.Errorf("task id: %w", err)
	}
	return s.GetTask(ctx, id)
}

// GetTask retrieves a task with its comments populated.
func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+taskFrom+` WHERE t.id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task %w", ErrNotFound)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}

	comments, err := s.ListTaskComments(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	t.Comments = comments
	return t, nil
}

// TaskFilter narrows ListTasks. MemberID scopes the result to projects the
// user belongs to and applies only when no explicit filter is requested.
type TaskFilter struct {
	ProjectID  *int64
	AssigneeID *int64
	MemberID   int64
}

// ListTasks returns tasks newest first, without comments populated.
func (s *Store) ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + taskFrom
	where := []string{}
	args := []any{}

	switch {
	case f.ProjectID != nil:
		where = append(where, `t.project_id = ?`)
		args = append(args, *f.ProjectID)
	case f.AssigneeID == nil:
		// No explicit filter: scope to the projects the user belongs to.
		where = append(where, `t.project_id IN (
            SELECT p2.id FROM projects p2
            LEFT JOIN project_members pm ON pm.project_id = p2.id
            WHERE p2.owner_id = ? OR pm.user_id = ?)`)
		args = append(args, f.MemberID, f.MemberID)
	}
	if f.AssigneeID != nil {
		where = append(where, `t.assignee_id = ?`)
		args = append(args, *f.AssigneeID)
	}

	query += ` WHERE ` + strings.Join(where, ` AND `) + ` ORDER BY t.created_at DESC, t.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask applies a partial update. A status change to done stamps
// completed_at once; a change away from done clears it; re-saving an
// already done task leaves the stamp untouched.
func (s *Store) UpdateTask(ctx context.Context, id int64, changes map[string]any) (models.Task, error) {
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}

	title := current.Title
	description := current.Description
	status := current.Status
	priority := current.Priority
	assigneeID := current.AssigneeID
	dueDate := current.DueDate
	estimated := current.EstimatedHours
	actual := current.ActualHours
	tags := current.Tags
	completedAt := current.CompletedAt

	if v, ok := changes["title"].(string); ok && strings.TrimSpace(v) != "" {
		title = strings.TrimSpace(v)
	}
	if v, ok := changes["description"].(string); ok {
		description = strings.TrimSpace(v)
	}
	if v, ok := changes["status"].(string); ok {
		if _, valid := models.ValidTaskStatuses[v]; valid {
			status = v
		}
	}
	if v, ok := changes["priority"].(string); ok {
		if _, valid := models.ValidPriorities[v]; valid {
			priority = v
		}
	}
	if v, ok := changes["assigneeId"]; ok {
		assigneeID, _ = v.(*int64)
	}
	if v, ok := changes["dueDate"]; ok {
		dueDate, _ = v.(*time.Time)
	}
	if v, ok := changes["estimatedHours"]; ok {
		estimated, _ = v.(*float64)
	}
	if v, ok := changes["actualHours"].(float64); ok {
		actual = v
	}
	if v, ok := changes["tags"].([]string); ok {
		tags = v
	}

	if status != current.Status {
		if status == models.TaskStatusDone {
			now := time.Now().UTC()
			completedAt = &now
		} else {
			completedAt = nil
		}
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, assignee_id = ?,
            due_date = ?, estimated_hours = ?, actual_hours = ?, tags = ?, completed_at = ?,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = ?`,
		title, description, status, priority, assigneeID,
		dueDate, estimated, actual, encodeList(tags), completedAt, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes a task and its comments.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("task %w", ErrNotFound)
	}
	return nil
}

// AddTaskComment appends a comment and returns the full task. Comments are
// append-only: no update or delete statement exists for them.
func (s *Store) AddTaskComment(ctx context.Context, taskID, userID int64, content string) (models.Task, error) {
	if strings.TrimSpace(content) == "" {
		return models.Task{}, fmt.Errorf("comment content must not be empty")
	}
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return models.Task{}, err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_comments(task_id, user_id, content) VALUES(?, ?, ?)`,
		taskID, userID, strings.TrimSpace(content))
	if err != nil {
		return models.Task{}, fmt.Errorf("insert comment: %w", err)
	}
	return s.GetTask(ctx, taskID)
}

// ListTaskComments returns a task's comments oldest first.
func (s *Store) ListTaskComments(ctx context.Context, taskID int64) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT c.id, c.task_id, c.user_id, c.content, c.created_at,
            u.name, u.email, u.avatar
        FROM task_comments c JOIN users u ON u.id = c.user_id
        WHERE c.task_id = ? ORDER BY c.created_at, c.id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Content, &c.CreatedAt,
			&c.User.Name, &c.User.Email, &c.User.Avatar); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.User.ID = c.UserID
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
