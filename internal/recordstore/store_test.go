package recordstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAppendAndReadAllRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	require.NoError(t, store.Append("User", map[string]any{"id": "u1", "name": "Alice"}))
	require.NoError(t, store.Append("User", map[string]any{"id": "u2", "name": "Bob"}))
	require.NoError(t, store.Close())

	var got []map[string]any
	err := ReadAll(filepath.Join(dir, "user.sqlite"), func(raw map[string]any) error {
		got = append(got, raw)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "u1", got[0]["id"])
	assert.Equal(t, "u2", got[1]["id"])
}

func TestStoreClassesTracksOpenedFiles(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	defer store.Close()

	require.NoError(t, store.Append("User", map[string]any{"id": "u1"}))
	require.NoError(t, store.Append("Group", map[string]any{"id": "g1"}))

	assert.ElementsMatch(t, []string{"User", "Group"}, store.Classes())
}

func TestStoreLowercasesClassFileName(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	require.NoError(t, store.Append("ServicePrincipal", map[string]any{"id": "sp1"}))
	require.NoError(t, store.Close())

	var count int
	err := ReadAll(filepath.Join(dir, "serviceprincipal.sqlite"), func(raw map[string]any) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
