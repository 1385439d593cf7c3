// Package config loads distill settings and resolves its on-disk locations.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const appName = "distill"

// DefaultConfigDir returns ~/.distill.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, "."+appName), nil
}

// DefaultConfigPath returns ~/.distill/config.yaml.
func DefaultConfigPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// CacheDir returns the per-user cache directory for distill. Both the
// ask cache and the transcript live here and outlive the process.
func CacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("get cache dir: %w", err)
	}
	return filepath.Join(base, appName), nil
}

// CachePath returns the configured cache database path or the default one.
func (c *Config) CachePath() (string, error) {
	if c.Cache.Path != "" {
		return ExpandPath(c.Cache.Path)
	}
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache.db"), nil
}

// TranscriptPath returns the configured transcript path or the default one.
func (c *Config) TranscriptPath() (string, error) {
	if c.Transcript.Path != "" {
		return ExpandPath(c.Transcript.Path)
	}
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "log.txt"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home dir: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}

	if path == "~" {
		return os.UserHomeDir()
	}

	return path, nil
}
