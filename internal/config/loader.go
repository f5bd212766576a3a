package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the name of the site file looked up in the current
// and home directories.
const DefaultConfigFile = ".pagewalk"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile reads a site file. Unknown keys are rejected so that a
// misspelled selector does not silently fall back to a preset. An empty
// file yields a File without sites. A missing file returns
// ErrConfigNotFound; whether that is fatal is up to the caller.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // the path comes from the user
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if f.Sites == nil {
		f.Sites = map[string]SiteConfig{}
	}
	return &f, nil
}

// searchPaths lists where FindConfigFile looks when no path is given,
// most specific first.
func searchPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, DefaultConfigFile))
	}
	paths = append(paths, filepath.Join(XDGConfigDir(), "config.yaml"))
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, DefaultConfigFile))
	}
	return paths
}

// FindConfigFile returns the site file to load, or "" when there is none.
// An explicit configPath is used only if it exists. Otherwise the first
// existing file among ./.pagewalk, $XDG_CONFIG_HOME/pagewalk/config.yaml
// and ~/.pagewalk wins.
func FindConfigFile(configPath string) string {
	paths := searchPaths()
	if configPath != "" {
		paths = []string{configPath}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
