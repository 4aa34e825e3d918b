// Package favorites persists the user's favorite keys.
// Favorites are stored in ~/.config/transitpal/favorites.toml.
package favorites

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/danpilch/transitpal/internal/transit"
)

const defaultPath = "~/.config/transitpal/favorites.toml"

type file struct {
	Favorites []string `toml:"favorites"`
}

// DefaultPath returns the default favorites file path.
func DefaultPath() string {
	return defaultPath
}

// Load reads the favorites at path. A missing file yields no favorites.
// Duplicate keys are dropped; an invalid key is an error.
func Load(path string) ([]transit.FavoriteKey, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read favorites: %w", err)
	}

	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse favorites: %w", err)
	}

	var keys []transit.FavoriteKey
	seen := make(map[transit.FavoriteKey]bool, len(f.Favorites))
	for _, raw := range f.Favorites {
		k, err := transit.ParseFavoriteKey(raw)
		if err != nil {
			return nil, fmt.Errorf("parse favorites: %w", err)
		}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Save writes keys to path, creating directories as needed. The file is
// replaced atomically.
func Save(path string, keys []transit.FavoriteKey) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create favorites dir: %w", err)
	}

	f := file{Favorites: make([]string, 0, len(keys))}
	for _, k := range keys {
		f.Favorites = append(f.Favorites, string(k))
	}
	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal favorites: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".favorites-*.toml")
	if err != nil {
		return fmt.Errorf("write favorites: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write favorites: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write favorites: %w", err)
	}
	if err := os.Rename(tmp.Name(), resolved); err != nil {
		return fmt.Errorf("write favorites: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
