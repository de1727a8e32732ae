// Package config loads the optional TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/luinbytes/media-dedupe/dedupe"
	"github.com/luinbytes/media-dedupe/logging"
)

// LocalFile is looked up in the working directory.
const LocalFile = ".deduprc.toml"

// Config holds the settings a scan can take from a file. Command-line
// flags that were set explicitly take precedence over these values.
type Config struct {
	Destination string `toml:"destination"`
	Algorithm   string `toml:"algorithm"`
	Threshold   int    `toml:"threshold"`
	DryRun      bool   `toml:"dry_run"`
	LogLevel    string `toml:"log_level"`
	LogFormat   string `toml:"log_format"`
	NoColor     bool   `toml:"no_color"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Algorithm: string(dedupe.AverageHash),
		Threshold: dedupe.DefaultThreshold,
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// DefaultConfigPath is the per-user configuration file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/media-dedupe/config.toml")
}

// Load locates, parses and validates a configuration file. path is used
// when non-empty; otherwise see Locate. It returns the config, the file
// used and whether that file existed. Missing files are not an error
// unless path was given explicitly.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := Locate(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, fmt.Errorf("config %s: %w", resolved, err)
	}
	return &cfg, resolved, exists, nil
}

// Locate picks the configuration file: an explicit path, then
// ./.deduprc.toml, then ~/.config/media-dedupe/config.toml. An explicit
// path that does not exist is an error.
func Locate(explicit string) (string, bool, error) {
	if explicit != "" {
		expanded, err := expandPath(explicit)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			return "", false, fmt.Errorf("config file %s: %w", expanded, err)
		}
		return expanded, true, nil
	}

	local, err := filepath.Abs(LocalFile)
	if err == nil {
		if ok, err := fileExists(local); err != nil {
			return "", false, err
		} else if ok {
			return local, true, nil
		}
	}

	global, err := DefaultConfigPath()
	if err != nil {
		// No home directory: run on defaults.
		return "", false, nil
	}
	ok, err := fileExists(global)
	if err != nil {
		return "", false, err
	}
	return global, ok, nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if _, err := dedupe.ParseAlgorithm(c.Algorithm); err != nil {
		return err
	}
	if c.Threshold < 1 || c.Threshold > dedupe.FingerprintBits {
		return fmt.Errorf("threshold must be between 1 and %d, got %d", dedupe.FingerprintBits, c.Threshold)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return errors.New("log_format must be console or json")
	}
	return nil
}

func (c *Config) normalize() error {
	c.Algorithm = strings.ToLower(strings.TrimSpace(c.Algorithm))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.Destination != "" {
		dest, err := expandPath(c.Destination)
		if err != nil {
			return err
		}
		c.Destination = dest
	}
	return nil
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return !info.IsDir(), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat config %s: %w", path, err)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
