package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPassword(hash, "correct horse battery staple"))
	assert.False(t, CheckPassword(hash, "wrong password"))
	assert.False(t, CheckPassword("", "anything"))
}

func TestSanitizeStripsMarkup(t *testing.T) {
	assert.Equal(t, "hello", Sanitize("<script>alert(1)</script>hello"))
	assert.NotContains(t, Sanitize(`<img src=x onerror=alert(1)>safe`), "onerror")
	assert.Equal(t, "plain text", Sanitize("plain text"))
}
