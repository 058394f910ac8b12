package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFedvizHome_EnvOverride(t *testing.T) {
	home := filepath.Join(t.TempDir(), "custom")
	t.Setenv(HomeEnv, home)

	got, err := GetFedvizHome()
	require.NoError(t, err)
	assert.Equal(t, home, got)
	assert.DirExists(t, home)
}

func TestGetFedvizHome_MarkerFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".fedviz-root"), nil, 0644))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	t.Setenv(HomeEnv, "")
	chdir(t, nested)

	got, err := GetFedvizHome()
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(filepath.Join(root, ".fedviz"))
	require.NoError(t, err)
	gotResolved, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	assert.Equal(t, want, gotResolved)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadEnv(dir), "missing .env is not an error")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FEDVIZ_TEST_VALUE=from-file\n"), 0644))
	t.Setenv("FEDVIZ_TEST_VALUE", "")
	os.Unsetenv("FEDVIZ_TEST_VALUE")

	require.NoError(t, LoadEnv(dir))
	assert.Equal(t, "from-file", os.Getenv("FEDVIZ_TEST_VALUE"))
}

func TestLoad_ResolvesUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)
	chdir(t, t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(home, FileName), []byte("log_dir: runlogs\n"), 0644))

	cfg, gotHome, err := Load()
	require.NoError(t, err)
	assert.Equal(t, home, gotHome)
	assert.Equal(t, filepath.Join(home, "runlogs"), cfg.LogDir)
	assert.Equal(t, filepath.Join(home, "settings"), cfg.SettingsDir)
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
