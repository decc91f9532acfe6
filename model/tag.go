package model

import "time"

/*

Tag is a single taxonomy label attached to blogs

Id: primary key
CreatedAt: time when entity is created
Name: unique tag name. Matching is exact and case-sensitive; names are
	trimmed of surrounding whitespace before lookup-or-create

A tag with no remaining blogs is an orphan and gets reclaimed by
service.RemoveUnusedTags.

*/
type Tag struct {
	Id        string `gorm:"primaryKey"`
	CreatedAt time.Time
	Name      string  `gorm:"uniqueIndex"`
	Blogs     []*Blog `gorm:"many2many:blog_tags;"`
}
