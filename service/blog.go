package service

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sunshen/weblog/model"
	. "github.com/sunshen/weblog/utils/log"
	"gorm.io/gorm"
)

// CreateBlog writes a new blog for the author. The body pipeline runs here,
// at write time, so the stored BodyHTML is never stale. Tags are attached
// from the comma-separated tagString.
func CreateBlog(db *gorm.DB, author *model.User, title string, body string, tagString string) (*model.Blog, error) {
	if !author.Can(model.PermissionWrite) {
		return nil, ErrPermissionDenied
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationError("title", "must not be empty")
	}

	blog := &model.Blog{
		Id:       uuid.New().String(),
		Title:    title,
		AuthorID: author.Id,
	}
	blog.SetBody(body)

	if err := db.Create(blog).Error; err != nil {
		return nil, errors.Wrap(err, "fail to create blog")
	}
	if err := SetBlogTagsFromString(db, blog, tagString); err != nil {
		return nil, err
	}

	Log.Info("user ", author.Name, " created blog ", blog.Id)
	blog.Author = *author
	return blog, nil
}

// UpdateBlog rewrites title, body and tags. Only the author or an
// administrator may edit. Tag replacement may orphan tags, so unused ones
// are reclaimed afterwards.
func UpdateBlog(db *gorm.DB, actor *model.User, blogID string, title string, body string, tagString string) (*model.Blog, error) {
	var blog model.Blog
	if err := db.Where("id = ?", blogID).First(&blog).Error; err != nil {
		return nil, errors.Wrap(err, "blog not found")
	}
	if blog.AuthorID != actor.Id && !actor.IsAdministrator() {
		return nil, ErrPermissionDenied
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationError("title", "must not be empty")
	}

	blog.Title = title
	blog.SetBody(body)
	if err := db.Model(&blog).
		Select("title", "body", "body_html").
		Updates(&blog).Error; err != nil {
		return nil, errors.Wrap(err, "fail to update blog")
	}
	if err := SetBlogTagsFromString(db, &blog, tagString); err != nil {
		return nil, err
	}
	if err := RemoveUnusedTags(db); err != nil {
		return nil, errors.Wrap(err, "fail to reclaim tags")
	}
	return &blog, nil
}

// DeleteBlog removes the blog, its comments and its tag associations in one
// transaction, then reclaims orphaned tags.
func DeleteBlog(db *gorm.DB, actor *model.User, blogID string) error {
	var blog model.Blog
	if err := db.Where("id = ?", blogID).First(&blog).Error; err != nil {
		return errors.Wrap(err, "blog not found")
	}
	if blog.AuthorID != actor.Id && !actor.IsAdministrator() {
		return ErrPermissionDenied
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("blog_id = ?", blogID).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&blog).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Delete(&blog).Error; err != nil {
			return err
		}
		return RemoveUnusedTags(tx)
	})
	return errors.Wrap(err, "fail to delete blog")
}

// GetBlog fetches a blog with author and tags preloaded.
func GetBlog(db *gorm.DB, id string) (*model.Blog, error) {
	var blog model.Blog
	err := db.Preload("Author").Preload("Tags").Where("id = ?", id).First(&blog).Error
	if err != nil {
		return nil, err
	}
	return &blog, nil
}

// UserBlogs lists a user's blogs newest first.
func UserBlogs(db *gorm.DB, userID string, limit int, offset int) ([]*model.Blog, error) {
	if limit <= 0 || limit > feedQueryLimit {
		limit = feedQueryLimit
	}
	var blogs []*model.Blog
	err := db.Preload("Tags").
		Where("author_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&blogs).Error
	return blogs, err
}

// TaggedBlogs lists blogs carrying the named tag, newest first.
func TaggedBlogs(db *gorm.DB, tagName string, limit int, offset int) ([]*model.Blog, error) {
	if limit <= 0 || limit > feedQueryLimit {
		limit = feedQueryLimit
	}
	var blogs []*model.Blog
	err := db.Preload("Author").Preload("Tags").
		Joins("JOIN blog_tags ON blog_tags.blog_id = blogs.id").
		Joins("JOIN tags ON tags.id = blog_tags.tag_id").
		Where("tags.name = ?", tagName).
		Order("blogs.created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&blogs).Error
	return blogs, err
}
