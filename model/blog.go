package model

import (
	"time"

	"github.com/sunshen/weblog/render"
)

/*

Blog is a single post authored by a user

Id: primary key
CreatedAt: time when entity is created

Title: post title in plain text
Body: raw Markdown source as typed by the author
BodyHTML: sanitized HTML rendering of Body. Recomputed eagerly by SetBody
	whenever the raw body changes, so reads never re-run the pipeline
AuthorID:
Author: user who wrote the blog, "belongs-to" relation. Deleting the author
	deletes the blog
Tags: tag taxonomy, "many-to-many" through blog_tags
Comments: comments left on this blog, removed together with it

Cursor: auto-inc global-unique index used for feed pagination, keeps the
	relative order of blogs without comparing timestamps

*/
type Blog struct {
	Id        string `gorm:"primaryKey"`
	CreatedAt time.Time
	Title     string
	Body      string
	BodyHTML  string
	AuthorID  string `gorm:"constraint:OnDelete:CASCADE;"`
	Author    User
	Tags      []*Tag     `gorm:"many2many:blog_tags;"`
	Comments  []*Comment `gorm:"constraint:OnDelete:CASCADE;"`
	Cursor    int32      `gorm:"autoIncrement"`
}

// SetBody assigns the raw Markdown body and eagerly recomputes BodyHTML.
// Callers must use this instead of writing Body directly so the cached
// rendering can never go stale.
func (b *Blog) SetBody(raw string) {
	b.Body = raw
	b.BodyHTML = render.Body(raw)
}
