package models

import "time"

// User is a registered account. PasswordHash never leaves the storage layer;
// API responses expose Summary or the profile view instead.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Avatar       string    `json:"avatar"`
	Bio          string    `json:"bio"`
	Skills       []string  `json:"skills"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Summary is the shape embedded wherever another entity references a user.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}

// UserSummary is a populated user reference.
type UserSummary struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// Member is one (user, role) entry in a project's membership set.
// The project owner always appears here with RoleOwner.
type Member struct {
	UserID   int64       `json:"userId"`
	Role     string      `json:"role"`
	JoinedAt time.Time   `json:"joinedAt"`
	User     UserSummary `json:"user"`
}

// Project groups tasks, members and messages under a single owner.
// Progress is stored as entered and never recomputed from task completion.
type Project struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	OwnerID     int64       `json:"ownerId"`
	Owner       UserSummary `json:"owner"`
	Members     []Member    `json:"members"`
	Status      string      `json:"status"`
	Priority    string      `json:"priority"`
	Progress    int         `json:"progress"`
	Tags        []string    `json:"tags"`
	DueDate     *time.Time  `json:"dueDate,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Comment is an append-only note on a task.
type Comment struct {
	ID        int64       `json:"id"`
	TaskID    int64       `json:"taskId"`
	UserID    int64       `json:"userId"`
	User      UserSummary `json:"user"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Task is a unit of work scoped to exactly one project. CompletedAt is
// derived from status transitions and never set directly by clients.
type Task struct {
	ID             int64        `json:"id"`
	ProjectID      int64        `json:"projectId"`
	ProjectName    string       `json:"projectName"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Status         string       `json:"status"`
	Priority       string       `json:"priority"`
	AssigneeID     *int64       `json:"assigneeId,omitempty"`
	Assignee       *UserSummary `json:"assignee,omitempty"`
	CreatorID      int64        `json:"creatorId"`
	DueDate        *time.Time   `json:"dueDate,omitempty"`
	EstimatedHours *float64     `json:"estimatedHours,omitempty"`
	ActualHours    float64      `json:"actualHours"`
	Tags           []string     `json:"tags"`
	Comments       []Comment    `json:"comments"`
	CompletedAt    *time.Time   `json:"completedAt,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Message is a discussion post in a project, optionally scoped to a task
// and optionally a reply to another message.
type Message struct {
	ID              int64           `json:"id"`
	ProjectID       int64           `json:"projectId"`
	TaskID          *int64          `json:"taskId,omitempty"`
	ParentMessageID *int64          `json:"parentMessageId,omitempty"`
	Parent          *MessageSummary `json:"parentMessage,omitempty"`
	AuthorID        int64           `json:"authorId"`
	Author          UserSummary     `json:"author"`
	Content         string          `json:"content"`
	IsEdited        bool            `json:"isEdited"`
	EditedAt        *time.Time      `json:"editedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// MessageSummary is the one-level parent view returned with replies.
type MessageSummary struct {
	ID       int64       `json:"id"`
	AuthorID int64       `json:"authorId"`
	Author   UserSummary `json:"author"`
	Content  string      `json:"content"`
}

// Project-scoped membership roles, distinct from User.Role.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// ValidMemberRoles enumerates assignable membership roles.
var ValidMemberRoles = map[string]struct{}{
	RoleOwner:  {},
	RoleAdmin:  {},
	RoleMember: {},
}

// ValidProjectStatuses is the canonical project lifecycle enumeration.
var ValidProjectStatuses = map[string]struct{}{
	"planning":  {},
	"active":    {},
	"on-hold":   {},
	"completed": {},
	"archived":  {},
}

// Task statuses. Any status may transition to any other; moving to done
// stamps CompletedAt and moving away clears it.
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in-progress"
	TaskStatusDone       = "done"
)

// ValidTaskStatuses enumerates the task workflow states.
var ValidTaskStatuses = map[string]struct{}{
	TaskStatusTodo:       {},
	TaskStatusInProgress: {},
	TaskStatusDone:       {},
}

// ValidPriorities applies to both tasks and projects.
var ValidPriorities = map[string]struct{}{
	"low":      {},
	"medium":   {},
	"high":     {},
	"critical": {},
}
