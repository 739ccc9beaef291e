package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureParentDir_CreatesNestedDirectory(t *testing.T) {
	tmp := t.TempDir()
	dsn := filepath.Join(tmp, "state", "profiles", "autofill.db")

	got, err := EnsureParentDir(dsn)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tmp, "state", "profiles"), got)

	fi, err := os.Stat(got)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}
}

func TestEnsureParentDir_Idempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "db", "autofill.db")

	first, err := EnsureParentDir(dsn)
	require.NoError(t, err)
	second, err := EnsureParentDir(dsn)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEnsureParentDir_SkipsSpecialDSNs(t *testing.T) {
	for _, dsn := range []string{"", ":memory:", "file::memory:?cache=shared", "autofill.db"} {
		_, err := EnsureParentDir(dsn)
		require.NoError(t, err, dsn)
	}
}

func TestEnsureParentDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "state")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o660))

	_, err := EnsureParentDir(filepath.Join(blocker, "autofill.db"))
	require.Error(t, err, "should fail when a file exists with the parent's name")
}
