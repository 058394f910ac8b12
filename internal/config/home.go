package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// HomeEnv names the environment variable that overrides the home directory.
const HomeEnv = "FEDVIZ_HOME"

const modulePath = "github.com/harrison/fedviz"

// GetFedvizHome returns the fedviz home directory
// Priority order:
//  1. FEDVIZ_HOME environment variable (if set)
//  2. .fedviz beside the fedviz repository root (detected by finding go.mod)
//  3. .fedviz in the current working directory (fallback)
//
// The directory is created if it doesn't exist
func GetFedvizHome() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create fedviz home directory: %w", err)
		}
		return home, nil
	}

	base, err := findRepoRoot()
	if err != nil || base == "" {
		base, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
	}

	home := filepath.Join(base, ".fedviz")
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create fedviz home directory: %w", err)
	}
	return home, nil
}

// findRepoRoot walks up from the working directory looking for a
// .fedviz-root marker or a go.mod declaring the fedviz module.
func findRepoRoot() (string, error) {
	current, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(current, ".fedviz-root")); err == nil {
			return current, nil
		}
		if data, err := os.ReadFile(filepath.Join(current, "go.mod")); err == nil {
			if strings.Contains(string(data), "module "+modulePath) {
				return current, nil
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return "", fmt.Errorf("fedviz repository root not found (looking for .fedviz-root or go.mod with %s)", modulePath)
}

// LoadEnv reads dir/.env into the process environment. Variables already
// set win, and a missing file is not an error.
func LoadEnv(dir string) error {
	err := godotenv.Load(filepath.Join(dir, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load reads .env from the working directory, resolves the home directory,
// and loads home/config.yaml with every relative path resolved under home.
func Load() (*Config, string, error) {
	if cwd, err := os.Getwd(); err == nil {
		if err := LoadEnv(cwd); err != nil {
			return nil, "", err
		}
	}
	home, err := GetFedvizHome()
	if err != nil {
		return nil, "", err
	}
	cfg, err := LoadConfig(filepath.Join(home, FileName))
	if err != nil {
		return nil, "", err
	}
	cfg.Resolve(home)
	return cfg, home, nil
}
