package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultConfigFile is read from the working directory when -config is not
// given.
const DefaultConfigFile = "plush.toml"

type Config struct {
	Build     BuildConfig     `toml:"build"`
	Toolchain ToolchainConfig `toml:"toolchain"`
}

type BuildConfig struct {
	// OutputDir receives build products when -o is not given. Empty means
	// next to the source file.
	OutputDir string `toml:"output_dir"`
	// KeepIR keeps the .ll file after linking an executable.
	KeepIR bool `toml:"keep_ir"`
}

type ToolchainConfig struct {
	Clang string `toml:"clang"`
	// Runtime overrides the C runtime source. Empty uses the embedded copy.
	Runtime string `toml:"runtime"`
}

func DefaultConfig() *Config {
	return &Config{
		Build:     BuildConfig{KeepIR: true},
		Toolchain: ToolchainConfig{Clang: "clang"},
	}
}

// LoadConfig reads a plush.toml. A missing file yields the defaults; unknown
// keys are an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := ParseConfig(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes TOML data over cfg, keeping the values of absent keys.
func ParseConfig(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return errors.New(strict.String())
		}
		return err
	}
	if cfg.Toolchain.Clang == "" {
		return errors.New("toolchain.clang must not be empty")
	}
	return nil
}
