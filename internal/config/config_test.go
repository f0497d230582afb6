package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/docpkg/internal/logger"
	"github.com/shinji-kodama/docpkg/internal/model"
)

func TestLoadEnvFrom(t *testing.T) {
	env, err := LoadEnvFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"BRANCH_NAME":       "main",
		"DOCPKG_LOG_LEVEL":  "debug",
		"DOCPKG_LOG_PRETTY": "true",
		"DOCPKG_GIT":        "/usr/local/bin/git",
	}))
	require.NoError(t, err)

	assert.Equal(t, "main", env.BranchName)
	assert.Equal(t, "debug", env.LogLevel)
	assert.True(t, env.Pretty)
	assert.Equal(t, "/usr/local/bin/git", env.Git)
}

func TestLoadEnvFromEmpty(t *testing.T) {
	env, err := LoadEnvFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)
	assert.Equal(t, Env{}, env)
}

func TestLoadEnvFromInvalidBool(t *testing.T) {
	_, err := LoadEnvFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"DOCPKG_LOG_PRETTY": "sometimes",
	}))
	require.Error(t, err)
	assert.True(t, model.IsCode(err, model.ExitConfiguration))
}

// TestLoadSettingsJSONC verifies comments and trailing commas are accepted.
func TestLoadSettingsJSONC(t *testing.T) {
	dir := t.TempDir()
	content := `{
  // use the git from the toolchain image
  "git": "/opt/git/bin/git",
  /* quieter in CI */
  "logLevel": "warn",
  "output": "json",
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFileName), []byte(content), 0644))

	settings, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, "/opt/git/bin/git", settings.Git)
	assert.Equal(t, "warn", settings.LogLevel)
	assert.Equal(t, "json", settings.Output)
}

func TestLoadSettingsMissingFile(t *testing.T) {
	settings, err := LoadSettings(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Settings{}, settings)
}

func TestLoadSettingsMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFileName), []byte(`{"git": [}`), 0644))

	_, err := LoadSettings(dir)
	require.Error(t, err)
	assert.True(t, model.IsCode(err, model.ExitConfiguration))
}

func TestResolveDefaults(t *testing.T) {
	cfg, err := Resolve(Flags{}, Env{}, Settings{})
	require.NoError(t, err)

	assert.Equal(t, DefaultGit, cfg.Git)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.Pretty)
	assert.Empty(t, cfg.BranchOverride)
}

// TestResolvePrecedence walks the flag > env > settings ordering.
func TestResolvePrecedence(t *testing.T) {
	settings := Settings{Git: "settings-git", LogLevel: "error", Output: "yaml"}
	env := Env{Git: "env-git", LogLevel: "warn", BranchName: "ci-branch"}

	cfg, err := Resolve(Flags{}, env, settings)
	require.NoError(t, err)
	assert.Equal(t, "env-git", cfg.Git)
	assert.Equal(t, logger.LevelWarn, cfg.LogLevel)
	assert.Equal(t, "yaml", cfg.Output)
	assert.Equal(t, "ci-branch", cfg.BranchOverride)

	cfg, err = Resolve(Flags{Output: "json", Verbose: true}, env, settings)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)

	cfg, err = Resolve(Flags{}, Env{}, settings)
	require.NoError(t, err)
	assert.Equal(t, "settings-git", cfg.Git)
	assert.Equal(t, logger.LevelError, cfg.LogLevel)
}

func TestResolveRejectsInvalidValues(t *testing.T) {
	_, err := Resolve(Flags{Output: "xml"}, Env{}, Settings{})
	require.Error(t, err)
	assert.True(t, model.IsCode(err, model.ExitConfiguration))

	_, err = Resolve(Flags{}, Env{LogLevel: "loud"}, Settings{})
	require.Error(t, err)
	assert.True(t, model.IsCode(err, model.ExitConfiguration))
}
