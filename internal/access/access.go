// Package access centralizes the project authorization rules. Every handler
// consults these predicates instead of scanning membership lists inline.
package access

import "synergysphere/internal/models"

// CanAccess reports whether the user may read project-scoped resources:
// the owner and every member qualify.
func CanAccess(p *models.Project, userID int64) bool {
	if p.OwnerID == userID {
		return true
	}
	return hasRole(p, userID, models.RoleOwner, models.RoleAdmin, models.RoleMember)
}

// CanModifyProject reports whether the user may change project fields:
// the owner or a member with the admin role.
func CanModifyProject(p *models.Project, userID int64) bool {
	if p.OwnerID == userID {
		return true
	}
	return hasRole(p, userID, models.RoleAdmin)
}

// CanDeleteProject is owner-only. Admin members may not delete.
func CanDeleteProject(p *models.Project, userID int64) bool {
	return p.OwnerID == userID
}

// CanDeleteTask mirrors CanModifyProject: owner or admin member of the
// task's project. Being the task's creator or assignee is not sufficient.
func CanDeleteTask(p *models.Project, userID int64) bool {
	return CanModifyProject(p, userID)
}

// CanEditMessage is strictly author-only, regardless of project role.
// The same rule governs message deletion.
func CanEditMessage(m *models.Message, userID int64) bool {
	return m.AuthorID == userID
}

func hasRole(p *models.Project, userID int64, roles ...string) bool {
	for _, m := range p.Members {
		if m.UserID != userID {
			continue
		}
		for _, r := range roles {
			if m.Role == r {
				return true
			}
		}
	}
	return false
}
