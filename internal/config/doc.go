// Package config provides configuration structures and utilities for pagewalk.
// It defines the global crawl options set from CLI flags, the per-site
// definitions read from the .pagewalk YAML file, and the XDG directories
// used for the crawl history.
package config
