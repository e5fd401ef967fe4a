package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/core/user"
)

func TestFileKeyring(t *testing.T) {
	keyring, err := NewFileKeyring(t.TempDir())
	require.NoError(t, err)

	t.Run("load with no saved entry", func(t *testing.T) {
		_, ok, err := keyring.Load()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	entry := session.Entry{
		Token: "tok",
		User:  user.User{ID: "u1", Username: "awe", Roles: []string{user.RoleStudent}},
	}

	t.Run("save then load round-trips", func(t *testing.T) {
		require.NoError(t, keyring.Save(entry))

		got, ok, err := keyring.Load()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, entry.Token, got.Token)
		assert.Equal(t, entry.User.ID, got.User.ID)
		assert.Equal(t, entry.User.Roles, got.User.Roles)
	})

	t.Run("clear removes the entry", func(t *testing.T) {
		require.NoError(t, keyring.Clear())
		_, ok, err := keyring.Load()
		require.NoError(t, err)
		assert.False(t, ok)

		// clearing again is a no-op
		require.NoError(t, keyring.Clear())
	})
}

func TestFileKeyring_corruptFileReadsAsAbsent(t *testing.T) {
	dir := t.TempDir()
	keyring, err := NewFileKeyring(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, keyringFile), []byte("{not json"), 0o600))

	_, ok, err := keyring.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileKeyring_fileMode(t *testing.T) {
	dir := t.TempDir()
	keyring, err := NewFileKeyring(dir)
	require.NoError(t, err)

	require.NoError(t, keyring.Save(session.Entry{Token: "tok", User: user.User{ID: "u1"}}))

	info, err := os.Stat(filepath.Join(dir, keyringFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
