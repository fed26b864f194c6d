package main

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

//go:embed runtime/plush_runtime.c
var embeddedRuntime []byte

// linkTimeout bounds a single clang invocation.
const linkTimeout = 2 * time.Minute

// Toolchain links generated IR with the C runtime into a native executable.
type Toolchain struct {
	Clang       string
	RuntimePath string
	Timeout     time.Duration
	// Log receives the clang command line when set.
	Log io.Writer
}

func NewToolchain(cfg *Config) *Toolchain {
	return &Toolchain{
		Clang:       cfg.Toolchain.Clang,
		RuntimePath: cfg.Toolchain.Runtime,
		Timeout:     linkTimeout,
	}
}

// Args returns the clang arguments that link irPath and runtimePath into
// exePath.
func (t *Toolchain) Args(irPath, runtimePath, exePath string) []string {
	return []string{"-Wno-override-module", "-O0", "-o", exePath, irPath, runtimePath, "-lm"}
}

// Link writes the runtime to a scratch directory unless an override is
// configured, then runs clang.
func (t *Toolchain) Link(ctx context.Context, irPath, exePath string) error {
	scratch := filepath.Join(os.TempDir(), "plush-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	runtimePath := t.RuntimePath
	if runtimePath == "" {
		runtimePath = filepath.Join(scratch, "plush_runtime.c")
		if err := os.WriteFile(runtimePath, embeddedRuntime, 0o644); err != nil {
			return err
		}
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = linkTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := t.Args(irPath, runtimePath, exePath)
	if t.Log != nil {
		fmt.Fprintf(t.Log, "Running %s %v\n", t.Clang, args)
	}
	cmd := exec.CommandContext(ctx, t.Clang, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w\n%s", t.Clang, err, out)
	}
	return nil
}
