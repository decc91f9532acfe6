package service

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sunshen/weblog/model"
	"github.com/sunshen/weblog/utils"
)

func TestCreateBlogRendersBody(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	alice := createTestUser(t, db, "alice")
	blog, err := CreateBlog(db, alice, "hello", "# Hi\n<script>alert(1)</script>", "")
	require.NoError(t, err)

	require.Contains(t, blog.BodyHTML, "<h1>Hi</h1>")
	require.NotContains(t, blog.BodyHTML, "<script")

	// The rendering is cached on the row, not recomputed on read.
	reloaded, err := GetBlog(db, blog.Id)
	require.NoError(t, err)
	require.Equal(t, blog.BodyHTML, reloaded.BodyHTML)
}

func TestCreateBlogRequiresWritePermission(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	alice := createTestUser(t, db, "alice")
	locked := model.Role{Id: "locked-role", Name: "Locked", Permissions: 0}
	require.NoError(t, db.Create(&locked).Error)
	promoteTestUser(t, db, alice, "Locked")

	_, err := CreateBlog(db, alice, "title", "body", "")
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestUpdateBlogRecomputesBody(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	alice := createTestUser(t, db, "alice")
	blog, err := CreateBlog(db, alice, "title", "first", "")
	require.NoError(t, err)

	updated, err := UpdateBlog(db, alice, blog.Id, "title", "**second**", "")
	require.NoError(t, err)
	require.Contains(t, updated.BodyHTML, "<strong>second</strong>")

	reloaded, err := GetBlog(db, blog.Id)
	require.NoError(t, err)
	require.Equal(t, updated.BodyHTML, reloaded.BodyHTML)
}

func TestUpdateBlogOnlyAuthorOrAdmin(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	blog, err := CreateBlog(db, alice, "title", "body", "")
	require.NoError(t, err)

	_, err = UpdateBlog(db, bob, blog.Id, "hijacked", "body", "")
	require.ErrorIs(t, err, ErrPermissionDenied)

	promoteTestUser(t, db, bob, "Administrator")
	_, err = UpdateBlog(db, bob, blog.Id, "edited by admin", "body", "")
	require.NoError(t, err)
}

func TestDeleteBlogRemovesComments(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	blog, err := CreateBlog(db, alice, "title", "body", "")
	require.NoError(t, err)
	_, err = CreateComment(db, bob, blog.Id, "hello")
	require.NoError(t, err)

	require.NoError(t, DeleteBlog(db, alice, blog.Id))

	var count int64
	db.Model(&model.Comment{}).Where("blog_id = ?", blog.Id).Count(&count)
	require.Zero(t, count)
}

func TestUserBlogsNewestFirst(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	alice := createTestUser(t, db, "alice")
	for _, title := range []string{"one", "two"} {
		_, err := CreateBlog(db, alice, title, "body", "")
		require.NoError(t, err)
	}

	blogs, err := UserBlogs(db, alice.Id, 10, 0)
	require.NoError(t, err)
	require.Len(t, blogs, 2)
	require.Equal(t, "two", blogs[0].Title)
}

func TestTaggedBlogs(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	alice := createTestUser(t, db, "alice")
	_, err := CreateBlog(db, alice, "tagged", "body", "go")
	require.NoError(t, err)
	_, err = CreateBlog(db, alice, "untagged", "body", "")
	require.NoError(t, err)

	blogs, err := TaggedBlogs(db, "go", 10, 0)
	require.NoError(t, err)
	require.Len(t, blogs, 1)
	require.Equal(t, "tagged", blogs[0].Title)
}
