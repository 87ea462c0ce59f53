package auth

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStoreCredentials(t *testing.T) {
	store, err := NewUserStore("", "")
	require.NoError(t, err)

	require.NoError(t, store.AddUser("admin", "s3cret"))
	assert.ErrorIs(t, store.AddUser("admin", "other"), ErrUserAlreadyExists)

	ok, user := store.VerifyCredentials("admin", "s3cret")
	assert.True(t, ok)
	require.NotNil(t, user)
	assert.Equal(t, "admin", user.Username)

	ok, _ = store.VerifyCredentials("admin", "wrong")
	assert.False(t, ok)
	ok, _ = store.VerifyCredentials("nobody", "s3cret")
	assert.False(t, ok)

	require.NoError(t, store.SetPassword("admin", "changed"))
	ok, _ = store.VerifyCredentials("admin", "changed")
	assert.True(t, ok)

	require.NoError(t, store.RemoveUser("admin"))
	assert.ErrorIs(t, store.RemoveUser("admin"), ErrUserNotFound)
	assert.Empty(t, store.ListUsers())
}

func TestUserStorePersistsEncrypted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth", "users.dat")

	store, err := NewUserStore(path, "a key")
	require.NoError(t, err)
	require.NoError(t, store.AddUser("reader", "pw"))

	reopened, err := NewUserStore(path, "a key")
	require.NoError(t, err)
	assert.Equal(t, []string{"reader"}, reopened.ListUsers())
	ok, _ := reopened.VerifyCredentials("reader", "pw")
	assert.True(t, ok)

	_, err = NewUserStore(path, "another key")
	assert.Error(t, err)

	user, err := reopened.GetUser("reader")
	require.NoError(t, err)
	assert.Empty(t, user.PasswordHash.Hash)
}
