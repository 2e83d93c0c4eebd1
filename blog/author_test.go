package blog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuthor(t *testing.T) {
	a, err := NewAuthor("  admin ", " admin@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "admin", a.Username)
	assert.Equal(t, "admin@example.com", a.Email)
	_, err = uuid.Parse(a.ID)
	assert.NoError(t, err)

	_, err = NewAuthor("  ", "x@example.com")
	assert.Error(t, err)
}

func TestAuthorPassword(t *testing.T) {
	a, err := NewAuthor("admin", "")
	require.NoError(t, err)
	require.NoError(t, a.SetPassword("s3cret"))
	assert.NotEqual(t, []byte("s3cret"), a.Hash)

	ok, err := a.PasswordMatches("s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.PasswordMatches("wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	a.Sanitize()
	assert.Nil(t, a.Hash)
}
