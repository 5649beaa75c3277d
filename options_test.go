package glyph

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	t.Setenv("GLYPH_SERVER_PORT", "")
	t.Setenv("GLYPH_SERVER_AUTH", "")

	opts := DefaultOptions()
	assert.Equal(t, "localhost", opts.Host)
	assert.Equal(t, DefaultPort, opts.Port)
	assert.Empty(t, opts.Auth)
	assert.Equal(t, 5*time.Second, opts.ConnectTimeout)
	assert.Zero(t, opts.CallTimeout, "calls block indefinitely unless configured")
}

func TestDefaultOptionsFromEnv(t *testing.T) {
	t.Setenv("GLYPH_SERVER_PORT", "3120")
	t.Setenv("GLYPH_SERVER_AUTH", "sekrit")

	opts := DefaultOptions()
	assert.Equal(t, 3120, opts.Port)
	assert.Equal(t, "sekrit", opts.Auth)
}

func TestDefaultOptionsBadPortEnv(t *testing.T) {
	t.Setenv("GLYPH_SERVER_PORT", "not-a-port")
	opts := DefaultOptions()
	assert.Equal(t, DefaultPort, opts.Port)
}

func TestConfigDirResolution(t *testing.T) {
	t.Setenv("GLYPH_CONFIG_DIR", "/opt/glyph-conf")
	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/opt/glyph-conf", dir)

	t.Setenv("GLYPH_CONFIG_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	dir, err = ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/xdg", "glyph"), dir)
}

func TestLoadOptionsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
host = "mesher.example.com"
port = 4444
auth = "token"
version = "7.22.2"
connect_timeout = "10s"
call_timeout = "2h"
launch_program = "tclsh"
launch_args = ["-encoding", "utf-8"]
`), 0o644))

	opts, err := loadOptionsFile(DefaultOptions(), path)
	require.NoError(t, err)
	assert.Equal(t, "mesher.example.com", opts.Host)
	assert.Equal(t, 4444, opts.Port)
	assert.Equal(t, "token", opts.Auth)
	assert.Equal(t, "7.22.2", opts.Version)
	assert.Equal(t, 10*time.Second, opts.ConnectTimeout)
	assert.Equal(t, 2*time.Hour, opts.CallTimeout)
	assert.Equal(t, "tclsh", opts.LaunchProgram)
	assert.Equal(t, []string{"-encoding", "utf-8"}, opts.LaunchArgs)
}

func TestLoadOptionsMissingFile(t *testing.T) {
	opts, err := loadOptionsFile(DefaultOptions(), filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, opts.Port)
}

func TestLoadOptionsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = ["), 0o644))
	_, err := loadOptionsFile(DefaultOptions(), path)
	assert.Error(t, err)
}

func TestWithDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	assert.Equal(t, "localhost", opts.Host)
	assert.Equal(t, 5*time.Second, opts.ConnectTimeout)
	assert.Equal(t, 5*time.Second, opts.LaunchGrace)
	assert.Zero(t, opts.Port, "zero port stays zero: it selects auto-launch")
}
