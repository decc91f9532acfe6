package model

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// Gender is a free-form profile enum carried over from the original schema.
type Gender string

const (
	GenderUnspecified Gender = ""
	GenderMale        Gender = "MALE"
	GenderFemale      Gender = "FEMALE"
)

/*

User is a registered member of the weblog

Id: primary key
CreatedAt: time when entity is created
LastSeenAt: refreshed on every authenticated request

Name: unique display name
Email: unique email address, lowercased before storage
PasswordHash: bcrypt hash, write-only. Plaintext is never stored and can only
	be verified, not read back
RoleID:
Role: the user's role, "belongs-to" relation. Assigned the default role at
	registration
Confirmed: false until the user proves control of Email via a confirmation
	token. Reset to false whenever Email changes
AvatarHash: md5 of the lowercased email, gravatar style. Recomputed on email
	change

Age, Gender, Phone, Location, AboutMe: optional profile fields

Blogs: blogs authored by this user, removed when the user is deleted
Followed: users this user follows, "many-to-many" through user_follows
Followers: users following this user, reverse side of the same join table

*/
type User struct {
	Id           string `gorm:"primaryKey"`
	CreatedAt    time.Time
	LastSeenAt   time.Time
	Name         string `gorm:"uniqueIndex"`
	Email        string `gorm:"uniqueIndex"`
	PasswordHash string
	RoleID       string
	Role         Role
	Confirmed    bool
	AvatarHash   string

	Age      int
	Gender   Gender
	Phone    string
	Location string
	AboutMe  string

	Blogs     []*Blog    `gorm:"constraint:OnDelete:CASCADE;"`
	Comments  []*Comment `gorm:"constraint:OnDelete:CASCADE;"`
	Followed  []*User    `gorm:"many2many:user_follows;joinForeignKey:FollowerID;joinReferences:FollowedID"`
	Followers []*User    `gorm:"many2many:user_follows;joinForeignKey:FollowedID;joinReferences:FollowerID"`
}

// Can reports whether the user's role grants permission p.
func (u *User) Can(p Permission) bool {
	return u.Role.HasPermission(p)
}

func (u *User) IsAdministrator() bool {
	return u.Can(PermissionAdminister)
}

func (u *User) IsModerator() bool {
	return u.Can(PermissionModerate)
}

// AvatarHashForEmail computes the gravatar-style hash stored in AvatarHash.
func AvatarHashForEmail(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}
