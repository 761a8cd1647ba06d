package configutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string         `json:"name"`
	Retries int            `json:"retries"`
	Nested  map[string]int `json:"nested"`
	Limit   *int           `json:"limit"`
}

func write(t *testing.T, path, contents string) {
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "dir/harvest.local.json5", LocalPath("dir/harvest.json5"))
	require.Equal(t, "config.local", LocalPath("config"))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "app.json5")

	_, err := ReadConfig[testConfig](name)
	require.ErrorIs(t, err, fs.ErrNotExist)

	write(t, name, `{
		// comments and trailing commas are fine
		name: "shared",
		retries: 3,
	}`)
	config, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "shared", Retries: 3}, config)

	write(t, filepath.Join(dir, "app.local.json5"), `{ retries: 7 }`)
	config, err = ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "shared", Retries: 7}, config)
}

func TestReadConfigLocalZeroPointer(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "app.json5")
	write(t, name, `{ name: "shared", limit: 3 }`)

	config, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, 3, *config.Limit)

	write(t, filepath.Join(dir, "app.local.json5"), `{ limit: 0 }`)
	config, err = ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, "shared", config.Name)
	require.Equal(t, 0, *config.Limit)
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "app.local.json5"), `{ name: "local" }`)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "app.json5"))
	require.NoError(t, err)
	require.Equal(t, "local", config.Name)
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "app.json5")
	write(t, name, `{ name: `)

	_, err := ReadConfig[testConfig](name)
	require.Error(t, err)
	require.NotErrorIs(t, err, fs.ErrNotExist)
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	write(t, filepath.Join(root, "found.json5"), `{ name: "root" }`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() {
		os.Chdir(wd)
	})

	config, err := ReadRecursively[testConfig]("found.json5")
	require.NoError(t, err)
	require.Equal(t, "root", config.Name)

	_, err = ReadRecursively[testConfig]("missing-config-for-test.json5")
	require.ErrorIs(t, err, fs.ErrNotExist)
}
