package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Permission is a single capability bit. A Role's mask is the bitwise OR of
// the bits it grants. 16, 32 and 64 are reserved for future capabilities.
type Permission int

const (
	PermissionFollow     Permission = 1
	PermissionWrite      Permission = 2
	PermissionComment    Permission = 4
	PermissionModerate   Permission = 8
	PermissionAdminister Permission = 128
)

/*

Role is a named bundle of permissions

Id: primary key
CreatedAt: time when entity is created

Name: unique role name
Permissions: capability mask, bitwise OR of Permission bits. A zero mask
	denies everything
IsDefault: true for exactly one role, assigned to new users at registration.
	Uniqueness is maintained by EnsureDefaultRoles, not by a database
	constraint

*/
type Role struct {
	Id          string `gorm:"primaryKey"`
	CreatedAt   time.Time
	Name        string `gorm:"uniqueIndex"`
	Permissions Permission
	IsDefault   bool
}

// HasPermission reports whether the mask grants p.
func (r *Role) HasPermission(p Permission) bool {
	return r.Permissions&p != 0
}

// EnsureDefaultRoles upserts the three built-in roles. Each tier's mask is
// cumulative over the one below. Safe to call on every startup: existing
// roles are updated in place by name, never duplicated.
func EnsureDefaultRoles(db *gorm.DB) error {
	userMask := PermissionFollow | PermissionWrite | PermissionComment
	roles := []Role{
		{Id: uuid.New().String(), Name: "User", Permissions: userMask, IsDefault: true},
		{Id: uuid.New().String(), Name: "Moderator", Permissions: userMask | PermissionModerate},
		{Id: uuid.New().String(), Name: "Administrator", Permissions: userMask | PermissionModerate | PermissionAdminister},
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, role := range roles {
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"permissions", "is_default"}),
			}).Create(&role)
			if res.Error != nil {
				return res.Error
			}
		}
		return nil
	})
}

// DefaultRole returns the role assigned to newly registered users.
func DefaultRole(db *gorm.DB) (*Role, error) {
	var role Role
	if err := db.Where("is_default = ?", true).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}
