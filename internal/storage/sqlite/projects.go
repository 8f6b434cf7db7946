package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"synergysphere/internal/models"
)

const projectColumns = `p.id, p.name, p.description, p.owner_id, p.status, p.priority, p.progress, p.tags, p.due_date, p.created_at, p.updated_at,
        o.name, o.email, o.avatar`

func scanProject(row interface{ Scan(...any) error }) (models.Project, error) {
	var p models.Project
	var tags string
	var due sql.NullTime
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.Status, &p.Priority, &p.Progress, &tags, &due,
		&p.CreatedAt, &p.UpdatedAt, &p.Owner.Name, &p.Owner.Email, &p.Owner.Avatar)
	if err != nil {
		return models.Project{}, err
	}
	p.Owner.ID = p.OwnerID
	p.Tags = decodeList(tags)
	if due.Valid {
		t := due.Time
		p.DueDate = &t
	}
	return p, nil
}

// CreateProject persists a project, enrolls the owner with the owner role
// and resolves the optional member emails. Emails that match no account,
// or the owner's own email, are skipped silently.
func (s *Store) CreateProject(ctx context.Context, ownerID int64, name, description string, memberEmails []string) (models.Project, error) {
	if strings.TrimSpace(name) == "" {
		return models.Project{}, fmt.Errorf("project name must not be empty")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projects(name, description, owner_id) VALUES(?, ?, ?)`,
		strings.TrimSpace(name), strings.TrimSpace(description), ownerID)
	if err != nil {
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Project{}, fmt.Errorf("project id: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO project_members(project_id, user_id, role) VALUES(?, ?, ?)`,
		id, ownerID, models.RoleOwner); err != nil {
		return models.Project{}, fmt.Errorf("enroll owner: %w", err)
	}

	for _, email := range memberEmails {
		member, err := s.GetUserByEmail(ctx, email)
		if errors.Is(err, ErrNotFound) {
			s.logger.Warn("skipping unknown member email", slog.String("email", email))
			continue
		}
		if err != nil {
			return models.Project{}, err
		}
		if member.ID == ownerID {
			continue
		}
		// INSERT OR IGNORE keeps the membership set duplicate-free when the
		// same email is listed twice.
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO project_members(project_id, user_id, role) VALUES(?, ?, ?)`,
			id, member.ID, models.RoleMember); err != nil {
			return models.Project{}, fmt.Errorf("enroll member: %w", err)
		}
	}

	return s.GetProject(ctx, id)
}

// GetProject fetches a single project with its membership list populated.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+`
        FROM projects p JOIN users o ON o.id = p.owner_id WHERE p.id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %w", ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}

	members, err := s.projectMembers(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	p.Members = members
	return p, nil
}

// ListProjects returns every project the user owns or belongs to,
// newest first, with memberships populated.
func (s *Store) ListProjects(ctx context.Context, userID int64) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT `+projectColumns+`
        FROM projects p
        JOIN users o ON o.id = p.owner_id
        LEFT JOIN project_members pm ON pm.project_id = p.id
        WHERE p.owner_id = ? OR pm.user_id = ?
        ORDER BY p.created_at DESC, p.id DESC`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range projects {
		members, err := s.projectMembers(ctx, projects[i].ID)
		if err != nil {
			return nil, err
		}
		projects[i].Members = members
	}
	return projects, nil
}

// UpdateProject applies a partial update; omitted fields keep their values.
func (s *Store) UpdateProject(ctx context.Context, id int64, changes map[string]any) (models.Project, error) {
	current, err := s.GetProject(ctx, id)
	if err != nil {
		return models.Project{}, err
	}

	name := current.Name
	description := current.Description
	status := current.Status

	if v, ok := changes["name"].(string); ok && strings.TrimSpace(v) != "" {
		name = strings.TrimSpace(v)
	}
	if v, ok := changes["description"].(string); ok {
		description = strings.TrimSpace(v)
	}
	if v, ok := changes["status"].(string); ok {
		if _, valid := models.ValidProjectStatuses[v]; valid {
			status = v
		}
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, description = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, description, status, id)
	if err != nil {
		return models.Project{}, fmt.Errorf("update project: %w", err)
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project. Member rows, tasks, their comments and
// messages go with it through the cascading foreign keys.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("project %w", ErrNotFound)
	}
	return nil
}

func (s *Store) projectMembers(ctx context.Context, projectID int64) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT pm.user_id, pm.role, pm.joined_at, u.name, u.email, u.avatar
        FROM project_members pm JOIN users u ON u.id = pm.user_id
        WHERE pm.project_id = ? ORDER BY pm.joined_at, pm.id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.UserID, &m.Role, &m.JoinedAt, &m.User.Name, &m.User.Email, &m.User.Avatar); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.User.ID = m.UserID
		members = append(members, m)
	}
	return members, rows.Err()
}
