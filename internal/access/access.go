package access

import (
	"errors"

	"go-biz-agent/internal/apperr"
	"go-biz-agent/internal/models"

	"gorm.io/gorm"
)

// RequireMember checks that the user belongs to the project at all.
// Every project-scoped operation starts here instead of repeating the
// membership query inline.
func RequireMember(db *gorm.DB, userID, projectID uint) error {
	_, err := lookup(db, userID, projectID)
	return err
}

// RequireAdmin checks for the 'admin' role on the project. Order
// update/delete and order-service delete are admin-only.
func RequireAdmin(db *gorm.DB, userID, projectID uint) error {
	member, err := lookup(db, userID, projectID)
	if err != nil {
		return err
	}
	if member.Role != models.RoleAdmin {
		return apperr.Forbidden("you need the admin role on project %d for this action", projectID)
	}
	return nil
}

func lookup(db *gorm.DB, userID, projectID uint) (*models.ProjectMember, error) {
	var member models.ProjectMember
	err := db.Where("user_id = ? AND project_id = ?", userID, projectID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Forbidden("you are not a member of project %d", projectID)
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}
