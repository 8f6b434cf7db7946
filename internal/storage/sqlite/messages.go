package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"synergysphere/internal/models"
)

const messageColumns = `m.id, m.project_id, m.task_id, m.parent_message_id, m.author_id, m.content,
        m.is_edited, m.edited_at, m.created_at, m.updated_at,
        u.name, u.email, u.avatar`

func scanMessage(row interface{ Scan(...any) error }) (models.Message, error) {
	var m models.Message
	var taskID, parentID sql.NullInt64
	var editedAt sql.NullTime
	err := row.Scan(&m.ID, &m.ProjectID, &taskID, &parentID, &m.AuthorID, &m.Content,
		&m.IsEdited, &editedAt, &m.CreatedAt, &m.UpdatedAt,
		&m.Author.Name, &m.Author.Email, &m.Author.Avatar)
	if err != nil {
		return models.Message{}, err
	}
	m.Author.ID = m.AuthorID
	if taskID.Valid {
		id := taskID.Int64
		m.TaskID = &id
	}
	if parentID.Valid {
		id := parentID.Int64
		m.ParentMessageID = &id
	}
	if editedAt.Valid {
		t := editedAt.Time
		m.EditedAt = &t
	}
	return m, nil
}

// CreateMessage posts a message to a project's discussion, optionally
// scoped to a task or replying to another message.
func (s *Store) CreateMessage(ctx context.Context, projectID, authorID int64, content string, taskID, parentMessageID *int64) (models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return models.Message{}, fmt.Errorf("message content must not be empty")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages(project_id, task_id, parent_message_id, author_id, content) VALUES(?, ?, ?, ?, ?)`,
		projectID, taskID, parentMessageID, authorID, strings.TrimSpace(content))
	if err != nil {
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Message{}, fmt.Errorf("message id: %w", err)
	}
	return s.GetMessage(ctx, id)
}

// GetMessage fetches a message with its author and, when present, a
// one-level summary of the message it replies to.
func (s *Store) GetMessage(ctx context.Context, id int64) (models.Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+`
        FROM messages m JOIN users u ON u.id = m.author_id WHERE m.id = ?`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, fmt.Errorf("message %w", ErrNotFound)
	}
	if err != nil {
		return models.Message{}, fmt.Errorf("get message: %w", err)
	}
	if err := s.populateParent(ctx, &m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

// ListMessages returns a project's messages in chronological order.
func (s *Store) ListMessages(ctx context.Context, projectID int64) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+messageColumns+`
        FROM messages m JOIN users u ON u.id = m.author_id
        WHERE m.project_id = ? ORDER BY m.created_at, m.id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range messages {
		if err := s.populateParent(ctx, &messages[i]); err != nil {
			return nil, err
		}
	}
	return messages, nil
}

// UpdateMessage replaces the content and marks the message edited. The
// author check belongs to the caller; the store applies the change as-is.
func (s *Store) UpdateMessage(ctx context.Context, id int64, content string) (models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return models.Message{}, fmt.Errorf("message content must not be empty")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET content = ?, is_edited = 1, edited_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
        WHERE id = ?`, strings.TrimSpace(content), id)
	if err != nil {
		return models.Message{}, fmt.Errorf("update message: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Message{}, err
	}
	if affected == 0 {
		return models.Message{}, fmt.Errorf("message %w", ErrNotFound)
	}
	return s.GetMessage(ctx, id)
}

// DeleteMessage removes a message. Replies to it survive with their
// parent reference cleared.
func (s *Store) DeleteMessage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("message %w", ErrNotFound)
	}
	return nil
}

func (s *Store) populateParent(ctx context.Context, m *models.Message) error {
	if m.ParentMessageID == nil {
		return nil
	}
	var p models.MessageSummary
	err := s.db.QueryRowContext(ctx, `SELECT m.id, m.author_id, m.content, u.name, u.email, u.avatar
        FROM messages m JOIN users u ON u.id = m.author_id WHERE m.id = ?`, *m.ParentMessageID).
		Scan(&p.ID, &p.AuthorID, &p.Content, &p.Author.Name, &p.Author.Email, &p.Author.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get parent message: %w", err)
	}
	p.Author.ID = p.AuthorID
	m.Parent = &p
	return nil
}
