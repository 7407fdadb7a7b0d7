package knowledge

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

//go:embed defaults.yaml
var defaultCatalogue []byte

// DefaultPattern matches catalogue files inside a directory.
const DefaultPattern = "**/*.{yaml,yml,toml}"

var ErrUnsupportedFormat = errors.New("unsupported catalogue format")

// Default returns the built-in knowledge base.
func Default() *Base {
	b := New()
	c, err := Parse(defaultCatalogue, ".yaml")
	if err != nil {
		panic(fmt.Sprintf("knowledge: embedded catalogue: %v", err))
	}
	b.Merge(c)
	return b
}

// Parse decodes a catalogue. ext selects the format (".yaml", ".yml", ".toml").
func Parse(data []byte, ext string) (*Catalogue, error) {
	var c Catalogue
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to parse YAML catalogue: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to parse TOML catalogue: %w", err)
		}
	default:
		return nil, fmt.Errorf("%s: %w", ext, ErrUnsupportedFormat)
	}
	return &c, nil
}

// Load builds a knowledge base from the built-in catalogue plus path, which
// may be a single file or a directory searched with pattern. Files are
// merged in lexical order so later files override earlier ones.
func Load(path, pattern string) (*Base, error) {
	b := Default()
	if path == "" {
		return b, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat catalogue: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		if pattern == "" {
			pattern = DefaultPattern
		}
		files, err = doublestar.FilepathGlob(filepath.Join(path, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid catalogue pattern: %w", err)
		}
		sort.Strings(files)
	}

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalogue %s: %w", file, err)
		}
		c, err := Parse(data, filepath.Ext(file))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		b.Merge(c)
	}
	return b, nil
}
