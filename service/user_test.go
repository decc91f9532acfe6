package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sunshen/weblog/model"
	"github.com/sunshen/weblog/token"
	"github.com/sunshen/weblog/utils"
)

func TestRegisterUserAssignsDefaultRole(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	user := createTestUser(t, db, "alice")
	require.Equal(t, "User", user.Role.Name)
	require.True(t, user.Role.IsDefault)
	require.False(t, user.Confirmed)
	require.Equal(t, model.AvatarHashForEmail("alice@example.com"), user.AvatarHash)
	require.NotEqual(t, "password", user.PasswordHash)
}

func TestRegisterUserRejectsDuplicates(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	createTestUser(t, db, "alice")

	_, err := RegisterUser(db, "alice", "other@example.com", "password")
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "name", validation.Field)

	_, err = RegisterUser(db, "other", "alice@example.com", "password")
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "email", validation.Field)
}

func TestAuthenticate(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	created := createTestUser(t, db, "alice")

	user, err := Authenticate(db, "alice@example.com", "password")
	require.NoError(t, err)
	require.Equal(t, created.Id, user.Id)
	require.True(t, time.Since(user.LastSeenAt) < time.Minute)

	_, err = Authenticate(db, "alice@example.com", "wrong")
	require.Error(t, err)
	_, err = Authenticate(db, "nobody@example.com", "password")
	require.Error(t, err)
}

func TestConfirmUser(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	tokens := token.NewService("test-secret", time.Hour)

	user := createTestUser(t, db, "alice")

	tok, err := tokens.Generate(user.Id, token.PurposeConfirmUser)
	require.NoError(t, err)

	ok, err := ConfirmUser(db, tokens, user, tok)
	require.NoError(t, err)
	require.True(t, ok)

	reloaded, err := GetUser(db, user.Id)
	require.NoError(t, err)
	require.True(t, reloaded.Confirmed)
}

func TestConfirmUserRejectsForeignToken(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	tokens := token.NewService("test-secret", time.Hour)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	tok, err := tokens.Generate(bob.Id, token.PurposeConfirmUser)
	require.NoError(t, err)

	ok, err := ConfirmUser(db, tokens, alice, tok)
	require.NoError(t, err)
	require.False(t, ok)

	reloaded, err := GetUser(db, alice.Id)
	require.NoError(t, err)
	require.False(t, reloaded.Confirmed)
}

func TestChangeEmailResetsConfirmed(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	user := createTestUser(t, db, "alice")
	require.NoError(t, db.Model(user).Update("confirmed", true).Error)

	require.NoError(t, ChangeEmail(db, user, "Alice.New@Example.com"))

	reloaded, err := GetUser(db, user.Id)
	require.NoError(t, err)
	require.Equal(t, "alice.new@example.com", reloaded.Email)
	require.False(t, reloaded.Confirmed)
	require.Equal(t, model.AvatarHashForEmail("alice.new@example.com"), reloaded.AvatarHash)
}

func TestResetPassword(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	tokens := token.NewService("test-secret", time.Hour)

	user := createTestUser(t, db, "alice")

	tok, err := tokens.Generate(user.Id, token.PurposeResetPassword)
	require.NoError(t, err)

	ok, err := ResetPassword(db, tokens, user.Email, tok, "newpassword")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = Authenticate(db, user.Email, "newpassword")
	require.NoError(t, err)
	_, err = Authenticate(db, user.Email, "password")
	require.Error(t, err)
}

func TestAdminUpdateProfileRequiresAdminister(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	update := AdminProfileUpdate{Name: "bobby", Email: bob.Email, Confirmed: true, RoleID: bob.RoleID}
	_, err := AdminUpdateProfile(db, alice, bob.Id, update)
	require.ErrorIs(t, err, ErrPermissionDenied)

	promoteTestUser(t, db, alice, "Administrator")
	updated, err := AdminUpdateProfile(db, alice, bob.Id, update)
	require.NoError(t, err)
	require.Equal(t, "bobby", updated.Name)
	require.True(t, updated.Confirmed)
}

func TestDeleteUserCascades(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	blog, err := CreateBlog(db, alice, "title", "body", "solo")
	require.NoError(t, err)
	_, err = CreateComment(db, bob, blog.Id, "nice post")
	require.NoError(t, err)
	_, err = CreateComment(db, alice, blog.Id, "thanks")
	require.NoError(t, err)
	require.NoError(t, Follow(db, alice, bob.Id))
	require.NoError(t, Follow(db, bob, alice.Id))

	require.NoError(t, DeleteUser(db, alice.Id))

	var count int64
	db.Model(&model.User{}).Where("id = ?", alice.Id).Count(&count)
	require.Zero(t, count)
	db.Model(&model.Blog{}).Where("author_id = ?", alice.Id).Count(&count)
	require.Zero(t, count)
	db.Model(&model.Comment{}).Count(&count)
	require.Zero(t, count)
	db.Model(&model.UserFollow{}).
		Where("follower_id = ? OR followed_id = ?", alice.Id, alice.Id).Count(&count)
	require.Zero(t, count)
	// The only blog carrying the tag is gone, so the tag is reclaimed too.
	db.Model(&model.Tag{}).Where("name = ?", "solo").Count(&count)
	require.Zero(t, count)
}
