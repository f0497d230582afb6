// Package config assembles docpkg's runtime configuration.
//
// Three sources are merged, highest precedence first:
//  1. command-line flags
//  2. environment variables (BRANCH_NAME, DOCPKG_*), read with go-envconfig
//  3. an optional .docpkg.jsonc settings file in the source root
//
// Anything still unset falls back to the defaults below.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sethvargo/go-envconfig"
	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/docpkg/internal/logger"
	"github.com/shinji-kodama/docpkg/internal/model"
)

const (
	// SettingsFileName is the optional per-repository settings file.
	SettingsFileName = ".docpkg.jsonc"

	// DefaultGit is the git binary used when nothing else is configured.
	DefaultGit = "git"

	// DefaultOutput is the output format used when nothing else is configured.
	DefaultOutput = "text"
)

// validOutputs lists the formats understood by --output.
var validOutputs = map[string]bool{"text": true, "json": true, "yaml": true}

// Env holds the environment variables docpkg reads. Empty means unset;
// defaults are applied by Resolve so that a settings file can still win
// over a missing variable.
type Env struct {
	// BranchName is the fallback origin branch for automation that checks
	// out a detached HEAD (CI systems commonly do).
	BranchName string `env:"BRANCH_NAME"`

	LogLevel string `env:"DOCPKG_LOG_LEVEL"`
	Pretty   bool   `env:"DOCPKG_LOG_PRETTY, default=false"`
	Git      string `env:"DOCPKG_GIT"`
}

// LoadEnv reads Env from the process environment.
func LoadEnv(ctx context.Context) (Env, error) {
	return LoadEnvFrom(ctx, envconfig.OsLookuper())
}

// LoadEnvFrom reads Env through the given lookuper. Tests pass
// envconfig.MapLookuper to avoid touching the real environment.
func LoadEnvFrom(ctx context.Context, lookuper envconfig.Lookuper) (Env, error) {
	var env Env
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &env,
		Lookuper: lookuper,
	}); err != nil {
		return Env{}, model.WrapCLIError(model.ExitConfiguration, "failed to read environment", err)
	}
	return env, nil
}

// Settings is the content of the optional .docpkg.jsonc file.
type Settings struct {
	// Git overrides the git binary (absolute path or name on PATH).
	Git string `json:"git,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel,omitempty"`

	// Output is the default output format: text, json or yaml.
	Output string `json:"output,omitempty"`
}

// LoadSettings reads dir/.docpkg.jsonc. A missing file yields zero Settings.
// Comments and trailing commas are accepted, as in other JSONC tooling.
func LoadSettings(dir string) (Settings, error) {
	path := filepath.Join(dir, SettingsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Settings{}, nil
		}
		return Settings{}, model.WrapCLIError(model.ExitConfiguration,
			fmt.Sprintf("failed to read %s", path), err)
	}

	var settings Settings
	if err := json.Unmarshal(jsonc.ToJSON(data), &settings); err != nil {
		return Settings{}, model.WrapCLIError(model.ExitConfiguration,
			fmt.Sprintf("failed to parse %s", path), err)
	}
	return settings, nil
}

// Flags are the values given on the command line. Empty means not given.
type Flags struct {
	Output  string
	Verbose bool
}

// Config is the merged configuration handed to the commands.
type Config struct {
	Git            string
	LogLevel       logger.LogLevel
	Pretty         bool
	Output         string
	BranchOverride string
}

// Resolve merges the three sources by precedence and validates the result.
func Resolve(flags Flags, env Env, settings Settings) (Config, error) {
	cfg := Config{
		Git:            first(env.Git, settings.Git, DefaultGit),
		Pretty:         env.Pretty,
		Output:         first(flags.Output, settings.Output, DefaultOutput),
		BranchOverride: env.BranchName,
	}

	if !validOutputs[cfg.Output] {
		return Config{}, model.NewCLIError(model.ExitConfiguration,
			fmt.Sprintf("invalid output format %q: valid values are text, json, yaml", cfg.Output))
	}

	levelName := first(env.LogLevel, settings.LogLevel)
	level, known := logger.ParseLevel(levelName)
	if levelName != "" && !known {
		return Config{}, model.NewCLIError(model.ExitConfiguration,
			fmt.Sprintf("invalid log level %q: valid values are debug, info, warn, error", levelName))
	}
	if flags.Verbose {
		level = logger.LevelDebug
	}
	cfg.LogLevel = level

	return cfg, nil
}

// first returns the first non-empty string.
func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
