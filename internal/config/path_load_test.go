package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.jsonc"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	t.Setenv(EnvConfigPath, "/tmp/from-env.yaml")
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, "/tmp/from-env.yaml", resolved)
	t.Setenv(EnvConfigPath, "")

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "rehearse", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "rehearse", "config.jsonc"), resolved)
}

func TestResolvePathFallsBackToYAMLCandidate(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", xdg)
	dir := filepath.Join(xdg, "rehearse")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("debug:\n  clip_dump: true\n"), 0o600))
	resolved, err := ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, yamlPath, resolved)

	jsoncPath := filepath.Join(dir, "config.jsonc")
	require.NoError(t, os.WriteFile(jsoncPath, []byte("{}"), 0o600))
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, jsoncPath, resolved)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, FormatDefaults, loaded.Format)
	require.Contains(t, loaded.Describe(), "using defaults")
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadExistingJSONCParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	contents := `
{
  "backend": {
    "url": "http://127.0.0.1:5050",
    "analyze_path": "/v2/analyze"
  },
  "history": {"enable": false}
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, FormatJSONC, loaded.Format)
	require.Equal(t, fmt.Sprintf("loaded %q (jsonc)", path), loaded.Describe())
	require.Equal(t, "http://127.0.0.1:5050", loaded.Config.Backend.URL)
	require.Equal(t, "/v2/analyze", loaded.Config.Backend.AnalyzePath)
	require.False(t, loaded.Config.History.Enable)
}

func TestLoadExistingYAMLParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("upload:\n  min_bytes: 0\n"), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, FormatYAML, loaded.Format)
	require.Equal(t, 0, loaded.Config.Upload.MinBytes)
}

func TestLoadParseErrorIncludesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("{ not-json }"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
	require.Contains(t, err.Error(), path)
}
