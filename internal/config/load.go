package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Format names how a config file was decoded.
type Format string

const (
	FormatDefaults Format = "defaults"
	FormatJSONC    Format = "jsonc"
	FormatYAML     Format = "yaml"
)

// Loaded is the resolved config plus where it came from.
type Loaded struct {
	Path     string
	Format   Format
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Describe summarizes the config source for diagnostics.
func (l Loaded) Describe() string {
	if !l.Exists {
		return fmt.Sprintf("%q not found; using defaults", l.Path)
	}
	return fmt.Sprintf("loaded %q (%s)", l.Path, l.Format)
}

// Load resolves the config path, then parses and validates it. A missing
// file is not an error: defaults are returned with a warning.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Loaded{
			Path:     path,
			Format:   FormatDefaults,
			Config:   Default(),
			Warnings: []Warning{{Message: fmt.Sprintf("config file %q not found; using defaults", path)}},
		}, nil
	}
	if err != nil {
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), Default())
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}

	return Loaded{
		Path:     path,
		Format:   detectFormat(string(content)),
		Config:   cfg,
		Warnings: warnings,
		Exists:   true,
	}, nil
}

func detectFormat(content string) Format {
	trimmed := strings.TrimSpace(content)
	switch {
	case trimmed == "":
		return FormatDefaults
	case strings.HasPrefix(trimmed, "{"):
		return FormatJSONC
	default:
		return FormatYAML
	}
}
