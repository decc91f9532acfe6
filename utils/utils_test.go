package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsString(t *testing.T) {
	assert.True(t, ContainsString([]string{"a", "b"}, "a"))
	assert.False(t, ContainsString([]string{}, "a"))
	assert.False(t, ContainsString([]string{"a", "b"}, "c"))
}

func TestRandomAlphabetString(t *testing.T) {
	s := RandomAlphabetString(8)
	assert.Len(t, s, 8)
}

func TestBlogKeyRoundTrip(t *testing.T) {
	parser := RedisKeyParser{delimiter: "__"}

	key, err := parser.EncodeBlogKey("user1", "blog1")
	assert.Nil(t, err)

	userId, blogId, err := parser.DecodeBlogKey(key)
	assert.Nil(t, err)
	assert.Equal(t, "user1", userId)
	assert.Equal(t, "blog1", blogId)

	_, err = parser.EncodeBlogKey("user__1", "blog1")
	assert.NotNil(t, err)
}
