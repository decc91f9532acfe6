package service

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sunshen/weblog/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	feedQueryLimit         = 30
	defaultFeedQueryCursor = math.MaxInt32
)

// Follow creates the directed edge follower->followed with the current
// timestamp. Idempotent: following twice leaves exactly one edge.
// Self-follow is rejected outright rather than stored.
func Follow(db *gorm.DB, follower *model.User, followedID string) error {
	if !follower.Can(model.PermissionFollow) {
		return ErrPermissionDenied
	}
	if follower.Id == followedID {
		return validationError("followed_id", "cannot follow yourself")
	}

	var count int64
	db.Model(&model.User{}).Where("id = ?", followedID).Count(&count)
	if count == 0 {
		return errors.Wrap(gorm.ErrRecordNotFound, "followed user does not exist")
	}

	edge := model.UserFollow{FollowerID: follower.Id, FollowedID: followedID}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error
}

// Unfollow removes the edge if present, no-op otherwise.
func Unfollow(db *gorm.DB, follower *model.User, followedID string) error {
	return db.Delete(&model.UserFollow{
		FollowerID: follower.Id,
		FollowedID: followedID,
	}).Error
}

func IsFollowing(db *gorm.DB, followerID string, followedID string) (bool, error) {
	var count int64
	err := db.Model(&model.UserFollow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error
	return count > 0, err
}

// FollowedBlogs returns blogs authored by anyone the user follows, newest
// first. A single join bounds the query cost to one round trip no matter how
// many users are followed. Paginate by passing the smallest cursor of the
// previous page; a negative cursor starts from the newest.
func FollowedBlogs(db *gorm.DB, userID string, limit int, cursor int) ([]*model.Blog, error) {
	if limit <= 0 || limit > feedQueryLimit {
		limit = feedQueryLimit
	}
	if cursor < 0 {
		cursor = defaultFeedQueryCursor
	}

	var blogs []*model.Blog
	err := db.Model(&model.Blog{}).
		Preload("Author").
		Preload("Tags").
		Joins("JOIN user_follows ON user_follows.followed_id = blogs.author_id").
		Where("user_follows.follower_id = ? AND blogs.cursor < ?", userID, cursor).
		Order("blogs.created_at desc").
		Limit(limit).
		Find(&blogs).Error
	if err != nil {
		return nil, errors.Wrap(err, "fail to query followed blogs")
	}
	return blogs, nil
}

// Followers lists users following the given user.
func Followers(db *gorm.DB, userID string) ([]*model.User, error) {
	var user model.User
	if err := db.Preload("Followers").Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return user.Followers, nil
}

// FollowedUsers lists users the given user follows.
func FollowedUsers(db *gorm.DB, userID string) ([]*model.User, error) {
	var user model.User
	if err := db.Preload("Followed").Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return user.Followed, nil
}
