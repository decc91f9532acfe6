package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sunshen/weblog/utils"
)

func TestCreateComment(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	blog, err := CreateBlog(db, alice, "title", "body", "")
	require.NoError(t, err)

	comment, err := CreateComment(db, bob, blog.Id, "  nice post  ")
	require.NoError(t, err)
	require.Equal(t, "nice post", comment.Body)
	require.Equal(t, "bob", comment.AuthorName)
	require.False(t, comment.Disabled)
}

func TestCreateCommentValidation(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	alice := createTestUser(t, db, "alice")
	blog, err := CreateBlog(db, alice, "title", "body", "")
	require.NoError(t, err)

	var validation *ValidationError
	_, err = CreateComment(db, alice, blog.Id, "   ")
	require.ErrorAs(t, err, &validation)

	_, err = CreateComment(db, alice, blog.Id, strings.Repeat("a", maxCommentLength+1))
	require.ErrorAs(t, err, &validation)

	_, err = CreateComment(db, alice, "missing-blog", "hello")
	require.Error(t, err)
}

func TestModerationHidesDisabledComments(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	mod := createTestUser(t, db, "mod")
	promoteTestUser(t, db, mod, "Moderator")

	blog, err := CreateBlog(db, alice, "title", "body", "")
	require.NoError(t, err)
	comment, err := CreateComment(db, bob, blog.Id, "spam spam spam")
	require.NoError(t, err)

	// A regular user cannot moderate.
	require.ErrorIs(t, SetCommentDisabled(db, bob, comment.Id, true), ErrPermissionDenied)

	require.NoError(t, SetCommentDisabled(db, mod, comment.Id, true))

	visible, err := BlogComments(db, bob, blog.Id, 10, 0)
	require.NoError(t, err)
	require.Empty(t, visible)

	anonymous, err := BlogComments(db, nil, blog.Id, 10, 0)
	require.NoError(t, err)
	require.Empty(t, anonymous)

	moderated, err := BlogComments(db, mod, blog.Id, 10, 0)
	require.NoError(t, err)
	require.Len(t, moderated, 1)
	require.True(t, moderated[0].Disabled)

	// Re-enabling makes it visible again.
	require.NoError(t, SetCommentDisabled(db, mod, comment.Id, false))
	visible, err = BlogComments(db, bob, blog.Id, 10, 0)
	require.NoError(t, err)
	require.Len(t, visible, 1)
}
