package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "plush.toml"))
	be.Err(t, err, nil)
	be.Equal(t, cfg, DefaultConfig())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plush.toml")
	err := os.WriteFile(path, []byte(`
[build]
output_dir = "out"
keep_ir = false

[toolchain]
clang = "clang-17"
`), 0o644)
	be.Err(t, err, nil)

	cfg, err := LoadConfig(path)
	be.Err(t, err, nil)
	be.Equal(t, cfg.Build, BuildConfig{OutputDir: "out", KeepIR: false})
	be.Equal(t, cfg.Toolchain, ToolchainConfig{Clang: "clang-17"})
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name string
		data string
		want *Config
		err  string
	}{
		{
			name: "empty keeps defaults",
			data: "",
			want: DefaultConfig(),
		},
		{
			name: "partial table",
			data: "[toolchain]\nruntime = \"rt.c\"\n",
			want: &Config{
				Build:     BuildConfig{KeepIR: true},
				Toolchain: ToolchainConfig{Clang: "clang", Runtime: "rt.c"},
			},
		},
		{
			name: "unknown key",
			data: "[build]\noptimize = true\n",
			err:  "optimize",
		},
		{
			name: "empty clang",
			data: "[toolchain]\nclang = \"\"\n",
			err:  "toolchain.clang must not be empty",
		},
		{
			name: "wrong type",
			data: "[build]\nkeep_ir = \"yes\"\n",
			err:  "bool",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			err := ParseConfig([]byte(test.data), cfg)
			if test.err != "" {
				be.Err(t, err, test.err)
				return
			}
			be.Err(t, err, nil)
			be.Equal(t, cfg, test.want)
		})
	}
}

func TestLoadConfigNamesTheFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	be.Err(t, os.WriteFile(path, []byte("[build\n"), 0o644), nil)
	_, err := LoadConfig(path)
	be.Err(t, err, "broken.toml: ")
}
