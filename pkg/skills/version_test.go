package skills

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	t.Run("deterministic across invocations", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte("content"), 0o644))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "examples"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "examples", "demo.svelte"), []byte("<script></script>"), 0o644))

		first, firstJSON, err := Fingerprint(dir)
		require.NoError(t, err)
		second, secondJSON, err := Fingerprint(dir)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, firstJSON, secondJSON)
	})

	t.Run("identical content in different dirs hashes the same", func(t *testing.T) {
		dirA := t.TempDir()
		dirB := t.TempDir()
		for _, dir := range []string{dirA, dirB} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte("same"), 0o644))
		}

		hashA, _, err := Fingerprint(dirA)
		require.NoError(t, err)
		hashB, _, err := Fingerprint(dirB)
		require.NoError(t, err)
		assert.Equal(t, hashA, hashB)
	})

	t.Run("single byte change changes the hash", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "SKILL.md")
		require.NoError(t, os.WriteFile(path, []byte("version a"), 0o644))
		before, _, err := Fingerprint(dir)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(path, []byte("version b"), 0o644))
		after, _, err := Fingerprint(dir)
		require.NoError(t, err)
		assert.NotEqual(t, before, after)
	})

	t.Run("renaming a file changes the hash", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("x"), 0o644))
		before, _, err := Fingerprint(dir)
		require.NoError(t, err)

		require.NoError(t, os.Rename(filepath.Join(dir, "a.md"), filepath.Join(dir, "b.md")))
		after, _, err := Fingerprint(dir)
		require.NoError(t, err)
		assert.NotEqual(t, before, after)
	})

	t.Run("manifest uses slash-separated relative paths", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte("content"), 0o644))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "examples"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "examples", "demo.svelte"), []byte("x"), 0o644))

		_, filesJSON, err := Fingerprint(dir)
		require.NoError(t, err)

		var manifest map[string]string
		require.NoError(t, json.Unmarshal([]byte(filesJSON), &manifest))
		assert.Contains(t, manifest, "SKILL.md")
		assert.Contains(t, manifest, "examples/demo.svelte")
		assert.Len(t, manifest, 2)
	})
}

func TestSnapshotAll(t *testing.T) {
	tmpDir := t.TempDir()
	writeSkill(t, tmpDir, "zeta", "zeta", "desc", "body z")
	writeSkill(t, tmpDir, "alpha", "alpha", "desc", "body a")

	discovery, err := NewDiscovery(WithSkillDirs(tmpDir))
	require.NoError(t, err)

	snapshots, err := SnapshotAll(discovery)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, "alpha", snapshots[0].SkillName)
	assert.Equal(t, "zeta", snapshots[1].SkillName)
	assert.NotEqual(t, snapshots[0].ContentHash, snapshots[1].ContentHash)
	assert.Len(t, snapshots[0].ContentHash, 64)
}
