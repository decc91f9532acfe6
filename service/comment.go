package service

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sunshen/weblog/model"
	"gorm.io/gorm"
)

const maxCommentLength = 2000

// CreateComment leaves a comment on a blog. The author's display name is
// denormalized onto the comment so listings stay attributable without a
// users join.
func CreateComment(db *gorm.DB, author *model.User, blogID string, body string) (*model.Comment, error) {
	if !author.Can(model.PermissionComment) {
		return nil, ErrPermissionDenied
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, validationError("body", "must not be empty")
	}
	if len(body) > maxCommentLength {
		return nil, validationError("body", "too long")
	}

	var count int64
	db.Model(&model.Blog{}).Where("id = ?", blogID).Count(&count)
	if count == 0 {
		return nil, errors.Wrap(gorm.ErrRecordNotFound, "blog not found")
	}

	comment := &model.Comment{
		Id:         uuid.New().String(),
		Body:       body,
		AuthorID:   author.Id,
		AuthorName: author.Name,
		BlogID:     blogID,
	}
	if err := db.Create(comment).Error; err != nil {
		return nil, errors.Wrap(err, "fail to create comment")
	}
	return comment, nil
}

// SetCommentDisabled toggles the moderation flag. Requires the Moderate bit.
func SetCommentDisabled(db *gorm.DB, moderator *model.User, commentID string, disabled bool) error {
	if !moderator.Can(model.PermissionModerate) {
		return ErrPermissionDenied
	}
	res := db.Model(&model.Comment{}).Where("id = ?", commentID).Update("disabled", disabled)
	if res.Error != nil {
		return errors.Wrap(res.Error, "fail to moderate comment")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(gorm.ErrRecordNotFound, "comment not found")
	}
	return nil
}

// BlogComments lists a blog's comments oldest first. Disabled comments are
// only included for viewers holding the Moderate bit; anonymous viewers pass
// a nil user.
func BlogComments(db *gorm.DB, viewer *model.User, blogID string, limit int, offset int) ([]*model.Comment, error) {
	if limit <= 0 || limit > feedQueryLimit {
		limit = feedQueryLimit
	}

	query := db.Where("blog_id = ?", blogID)
	if viewer == nil || !viewer.IsModerator() {
		query = query.Where("disabled = ?", false)
	}

	var comments []*model.Comment
	err := query.Order("created_at asc").Limit(limit).Offset(offset).Find(&comments).Error
	return comments, err
}
