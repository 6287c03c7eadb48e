package runtimeconfig

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format represents a supported runtime config file format.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// UnsupportedFormatError reports a file extension detectFormat does
// not recognize.
type UnsupportedFormatError struct {
	Extension string
	Path      string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported runtime config format %q for file %s (supported: .yaml, .yml, .toml)",
		e.Extension, e.Path)
}

func detectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", &UnsupportedFormatError{Extension: ext, Path: path}
	}
}

// Load reads and parses a Builder defaults file from path. Format is
// detected from the file extension; ${VAR_NAME} environment variables
// are expanded before parsing.
func Load(path string) (*Config, error) {
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("runtimeconfig: opening %s: %w", path, err)
	}
	defer file.Close()

	return loadFromReaderWithFormat(file, format)
}

// LoadFromReaderWithFormat reads and parses a Builder defaults
// document from r with an explicit format.
func LoadFromReaderWithFormat(r io.Reader, format Format) (*Config, error) {
	return loadFromReaderWithFormat(r, format)
}

func loadFromReaderWithFormat(r io.Reader, format Format) (*Config, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("runtimeconfig: reading document: %w", err)
	}

	expanded := os.ExpandEnv(string(content))

	var cfg Config
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("runtimeconfig: parsing YAML: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("runtimeconfig: parsing TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("runtimeconfig: unknown format %q", format)
	}

	return &cfg, nil
}
