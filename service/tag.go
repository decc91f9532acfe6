package service

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sunshen/weblog/model"
	"github.com/sunshen/weblog/utils"
	"gorm.io/gorm"
)

// ParseTagString splits a comma-separated tag string into distinct names.
// Tokens are trimmed, empties dropped, duplicates collapsed. Matching is
// exact and case-sensitive.
func ParseTagString(tagString string) []string {
	var names []string
	for _, tok := range strings.Split(tagString, ",") {
		name := strings.TrimSpace(tok)
		if name == "" {
			continue
		}
		if utils.ContainsString(names, name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// SetBlogTagsFromString replaces the blog's entire tag list with the tags
// named in tagString, creating missing tags on the fly. Associations absent
// from the new string are dropped, not merged.
func SetBlogTagsFromString(db *gorm.DB, blog *model.Blog, tagString string) error {
	names := ParseTagString(tagString)

	err := db.Transaction(func(tx *gorm.DB) error {
		tags := make([]*model.Tag, 0, len(names))
		for _, name := range names {
			var tag model.Tag
			err := tx.Where("name = ?", name).First(&tag).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				tag = model.Tag{Id: uuid.New().String(), Name: name}
				if err := tx.Create(&tag).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
			tagCopy := tag
			tags = append(tags, &tagCopy)
		}
		return tx.Model(blog).Association("Tags").Replace(tags)
	})
	if err != nil {
		return errors.Wrap(err, "fail to set blog tags")
	}

	blog.Tags = nil
	return db.Model(blog).Association("Tags").Find(&blog.Tags)
}

// RemoveUnusedTags deletes every tag with zero associated blogs. Run after
// any blog deletion or tag-list replacement.
func RemoveUnusedTags(db *gorm.DB) error {
	return db.Where(
		"id NOT IN (?)",
		db.Table("blog_tags").Select("tag_id"),
	).Delete(&model.Tag{}).Error
}
