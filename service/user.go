package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"github.com/sunshen/weblog/model"
	"github.com/sunshen/weblog/token"
	"github.com/sunshen/weblog/utils"
	. "github.com/sunshen/weblog/utils/log"
	"gorm.io/gorm"
)

// RegisterUser creates an account with the default role assigned and
// confirmed=false. Nothing is committed when validation fails.
func RegisterUser(db *gorm.DB, name string, email string, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, validationError("name", "must not be empty")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, validationError("email", "not a valid email address")
	}
	if len(password) < 6 {
		return nil, validationError("password", "must be at least 6 characters")
	}

	var count int64
	db.Model(&model.User{}).Where("name = ?", name).Count(&count)
	if count > 0 {
		return nil, validationError("name", "already taken")
	}
	db.Model(&model.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return nil, validationError("email", "already registered")
	}

	role, err := model.DefaultRole(db)
	if err != nil {
		return nil, errors.Wrap(err, "no default role, did role seeding run?")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "fail to hash password")
	}

	user := &model.User{
		Id:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		RoleID:       role.Id,
		Role:         *role,
		AvatarHash:   model.AvatarHashForEmail(email),
		LastSeenAt:   time.Now(),
	}
	if err := db.Create(user).Error; err != nil {
		return nil, errors.Wrap(err, "fail to create user")
	}

	Log.Info("registered user ", user.Name, " with role ", role.Name)
	return user, nil
}

// Authenticate verifies the password for the account registered under email
// and refreshes the user's last-seen timestamp. The same failure is returned
// for unknown email and wrong password.
func Authenticate(db *gorm.DB, email string, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user model.User
	if err := db.Preload("Role").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, validationError("email", "unknown email or wrong password")
	}
	if !utils.VerifyPassword(user.PasswordHash, password) {
		return nil, validationError("email", "unknown email or wrong password")
	}

	user.LastSeenAt = time.Now()
	if err := db.Model(&user).Update("last_seen_at", user.LastSeenAt).Error; err != nil {
		return nil, errors.Wrap(err, "fail to refresh last seen")
	}
	return &user, nil
}

// RefreshLastSeen is called on every authenticated request.
func RefreshLastSeen(db *gorm.DB, userID string) error {
	return db.Model(&model.User{}).Where("id = ?", userID).
		Update("last_seen_at", time.Now()).Error
}

// ConfirmUser flips the confirmed flag iff tok is a valid confirmation token
// for this user. Returns false, without detail, on any invalid token.
func ConfirmUser(db *gorm.DB, tokens *token.Service, user *model.User, tok string) (bool, error) {
	if !tokens.Verify(user.Id, token.PurposeConfirmUser, tok) {
		return false, nil
	}
	if user.Confirmed {
		return true, nil
	}
	if err := db.Model(user).Update("confirmed", true).Error; err != nil {
		return false, errors.Wrap(err, "fail to confirm user")
	}
	user.Confirmed = true
	return true, nil
}

// ProfileUpdate is the set of fields a user may edit on their own profile.
type ProfileUpdate struct {
	Age      int
	Gender   model.Gender
	Phone    string
	Location string
	AboutMe  string
}

func UpdateProfile(db *gorm.DB, user *model.User, update ProfileUpdate) error {
	if err := copier.Copy(user, &update); err != nil {
		return errors.Wrap(err, "fail to apply profile update")
	}
	return db.Model(user).
		Select("age", "gender", "phone", "location", "about_me").
		Updates(user).Error
}

// AdminProfileUpdate additionally covers the account fields only an
// administrator may touch.
type AdminProfileUpdate struct {
	ProfileUpdate
	Name      string
	Email     string
	Confirmed bool
	RoleID    string
}

// AdminUpdateProfile lets an administrator edit any account. A changed email
// gets its avatar hash recomputed; the confirmed flag is whatever the admin
// set it to.
func AdminUpdateProfile(db *gorm.DB, admin *model.User, targetID string, update AdminProfileUpdate) (*model.User, error) {
	if !admin.Can(model.PermissionAdminister) {
		return nil, ErrPermissionDenied
	}

	var target model.User
	if err := db.Preload("Role").Where("id = ?", targetID).First(&target).Error; err != nil {
		return nil, errors.Wrap(err, "user not found")
	}

	update.Name = strings.TrimSpace(update.Name)
	update.Email = strings.ToLower(strings.TrimSpace(update.Email))

	var count int64
	db.Model(&model.User{}).Where("name = ? AND id <> ?", update.Name, targetID).Count(&count)
	if count > 0 {
		return nil, validationError("name", "already taken")
	}
	db.Model(&model.User{}).Where("email = ? AND id <> ?", update.Email, targetID).Count(&count)
	if count > 0 {
		return nil, validationError("email", "already registered")
	}

	if err := copier.Copy(&target, &update); err != nil {
		return nil, errors.Wrap(err, "fail to apply profile update")
	}
	target.AvatarHash = model.AvatarHashForEmail(target.Email)

	err := db.Model(&target).
		Select("name", "email", "confirmed", "role_id", "avatar_hash",
			"age", "gender", "phone", "location", "about_me").
		Updates(&target).Error
	if err != nil {
		return nil, errors.Wrap(err, "fail to update user")
	}
	return &target, nil
}

// ChangeEmail updates the address, resets confirmed to false and recomputes
// the avatar hash. The caller is responsible for mailing a fresh
// confirmation token afterwards.
func ChangeEmail(db *gorm.DB, user *model.User, newEmail string) error {
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if newEmail == "" || !strings.Contains(newEmail, "@") {
		return validationError("email", "not a valid email address")
	}

	var count int64
	db.Model(&model.User{}).Where("email = ? AND id <> ?", newEmail, user.Id).Count(&count)
	if count > 0 {
		return validationError("email", "already registered")
	}

	user.Email = newEmail
	user.Confirmed = false
	user.AvatarHash = model.AvatarHashForEmail(newEmail)
	return db.Model(user).
		Select("email", "confirmed", "avatar_hash").
		Updates(user).Error
}

// ResetPassword sets a new password iff tok is a valid reset token for the
// account registered under email. Token failures collapse to a single
// boolean, the same as confirmation.
func ResetPassword(db *gorm.DB, tokens *token.Service, email string, tok string, newPassword string) (bool, error) {
	var user model.User
	if err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return false, nil
	}
	if !tokens.Verify(user.Id, token.PurposeResetPassword, tok) {
		return false, nil
	}
	if len(newPassword) < 6 {
		return false, validationError("password", "must be at least 6 characters")
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return false, errors.Wrap(err, "fail to hash password")
	}
	if err := db.Model(&user).Update("password_hash", hash).Error; err != nil {
		return false, errors.Wrap(err, "fail to reset password")
	}
	return true, nil
}

func ChangePassword(db *gorm.DB, user *model.User, oldPassword string, newPassword string) error {
	if !utils.VerifyPassword(user.PasswordHash, oldPassword) {
		return validationError("old_password", "wrong password")
	}
	if len(newPassword) < 6 {
		return validationError("new_password", "must be at least 6 characters")
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return errors.Wrap(err, "fail to hash password")
	}
	user.PasswordHash = hash
	return db.Model(user).Update("password_hash", hash).Error
}

// DeleteUser removes the account together with everything it owns: authored
// blogs and their comments, comments the user left elsewhere, and follow
// edges in both directions. One transaction, so no partial cascade is ever
// visible. Orphaned tags are reclaimed at the end.
func DeleteUser(db *gorm.DB, userID string) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("author_id = ?", userID).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where(
			"blog_id IN (?)",
			tx.Table("blogs").Select("id").Where("author_id = ?", userID),
		).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Exec(
			"DELETE FROM blog_tags WHERE blog_id IN (SELECT id FROM blogs WHERE author_id = ?)",
			userID,
		).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", userID).Delete(&model.Blog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("follower_id = ? OR followed_id = ?", userID, userID).
			Delete(&model.UserFollow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", userID).Delete(&model.User{}).Error; err != nil {
			return err
		}
		return RemoveUnusedTags(tx)
	})
	if err != nil {
		return errors.Wrap(err, "fail to delete user")
	}

	Log.Info("deleted user ", userID, " and all owned content")
	return nil
}

// GetUser fetches a user with role preloaded.
func GetUser(db *gorm.DB, id string) (*model.User, error) {
	var user model.User
	if err := db.Preload("Role").Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail fetches a user by email address.
func GetUserByEmail(db *gorm.DB, email string) (*model.User, error) {
	var user model.User
	err := db.Preload("Role").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByName fetches a user by display name, for the public user page.
func GetUserByName(db *gorm.DB, name string) (*model.User, error) {
	var user model.User
	if err := db.Preload("Role").Where("name = ?", name).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
