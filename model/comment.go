package model

import "time"

/*

Comment is a reader's comment on a blog

Id: primary key
CreatedAt: time when entity is created

Body: plain-text comment body
AuthorID:
Author: commenting user, "belongs-to" relation, removed with the user
AuthorName: denormalized author display name, kept so a comment stays
	attributable in listings without joining users
BlogID:
Blog: the blog commented on, removed with the blog
Disabled: moderation flag. Disabled comments are hidden from regular
	readers but remain visible to moderators

*/
type Comment struct {
	Id         string `gorm:"primaryKey"`
	CreatedAt  time.Time
	Body       string
	AuthorID   string `gorm:"constraint:OnDelete:CASCADE;"`
	Author     User
	AuthorName string
	BlogID     string `gorm:"constraint:OnDelete:CASCADE;"`
	Blog       Blog
	Disabled   bool
}
