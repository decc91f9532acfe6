package service

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sunshen/weblog/model"
	"github.com/sunshen/weblog/utils"
)

func TestFollowAndUnfollow(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	following, err := IsFollowing(db, alice.Id, bob.Id)
	require.NoError(t, err)
	require.False(t, following)

	require.NoError(t, Follow(db, alice, bob.Id))
	following, err = IsFollowing(db, alice.Id, bob.Id)
	require.NoError(t, err)
	require.True(t, following)

	// The edge is directed.
	following, err = IsFollowing(db, bob.Id, alice.Id)
	require.NoError(t, err)
	require.False(t, following)

	require.NoError(t, Unfollow(db, alice, bob.Id))
	following, err = IsFollowing(db, alice.Id, bob.Id)
	require.NoError(t, err)
	require.False(t, following)

	// Unfollow without an edge is a no-op.
	require.NoError(t, Unfollow(db, alice, bob.Id))
}

func TestFollowIsIdempotent(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	require.NoError(t, Follow(db, alice, bob.Id))
	require.NoError(t, Follow(db, alice, bob.Id))

	var count int64
	db.Model(&model.UserFollow{}).
		Where("follower_id = ? AND followed_id = ?", alice.Id, bob.Id).Count(&count)
	require.Equal(t, int64(1), count)
}

func TestFollowRejectsSelf(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	alice := createTestUser(t, db, "alice")

	err := Follow(db, alice, alice.Id)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestFollowRequiresPermission(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	// A role with mask 0 denies everything.
	locked := model.Role{Id: "locked-role", Name: "Locked", Permissions: 0}
	require.NoError(t, db.Create(&locked).Error)
	promoteTestUser(t, db, alice, "Locked")

	require.ErrorIs(t, Follow(db, alice, bob.Id), ErrPermissionDenied)
}

func TestFollowedBlogsNewestFirst(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")

	_, err := CreateBlog(db, bob, "bob first", "one", "")
	require.NoError(t, err)
	_, err = CreateBlog(db, carol, "carol first", "two", "")
	require.NoError(t, err)
	_, err = CreateBlog(db, bob, "bob second", "three", "")
	require.NoError(t, err)

	require.NoError(t, Follow(db, alice, bob.Id))

	blogs, err := FollowedBlogs(db, alice.Id, 10, -1)
	require.NoError(t, err)
	require.Len(t, blogs, 2)
	require.Equal(t, "bob second", blogs[0].Title)
	require.Equal(t, "bob first", blogs[1].Title)
	require.Equal(t, "bob", blogs[0].Author.Name)

	// Following carol merges her blogs into the same single-query feed.
	require.NoError(t, Follow(db, alice, carol.Id))
	blogs, err = FollowedBlogs(db, alice.Id, 10, -1)
	require.NoError(t, err)
	require.Len(t, blogs, 3)
}

func TestFollowedBlogsCursorPagination(t *testing.T) {
	db, _ := utils.CreateTempDB(t)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	require.NoError(t, Follow(db, alice, bob.Id))

	for _, title := range []string{"one", "two", "three"} {
		_, err := CreateBlog(db, bob, title, "body", "")
		require.NoError(t, err)
	}

	page, err := FollowedBlogs(db, alice.Id, 2, -1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "three", page[0].Title)

	next, err := FollowedBlogs(db, alice.Id, 2, int(page[1].Cursor))
	require.NoError(t, err)
	require.Len(t, next, 1)
	require.Equal(t, "one", next[0].Title)
}
