package model

import (
	"time"

	"gorm.io/gorm"
)

/*

UserFollow is a directed "many-to-many" relation of one user following another

FollowerID: user who follows
FollowedID: user being followed
CreatedAt: time when the edge is created

At most one edge exists per ordered (follower, followed) pair, enforced by
the composite primary key. Deleting either endpoint removes the edge.

*/
type UserFollow struct {
	FollowerID string `gorm:"primaryKey"`
	FollowedID string `gorm:"primaryKey"`
	CreatedAt  time.Time
}

func (UserFollow) BeforeCreate(db *gorm.DB) error {
	return nil
}
