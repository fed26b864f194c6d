package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestToolchainArgs(t *testing.T) {
	tools := NewToolchain(DefaultConfig())
	be.Equal(t, tools.Clang, "clang")
	be.Equal(t, tools.RuntimePath, "")
	be.Equal(t, tools.Timeout, linkTimeout)
	be.Equal(t, tools.Args("a.ll", "rt.c", "a"),
		[]string{"-Wno-override-module", "-O0", "-o", "a", "a.ll", "rt.c", "-lm"})
}

// fakeClang writes a shell script that stands in for clang.
func fakeClang(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "clang")
	be.Err(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755), nil)
	return path
}

func TestToolchainLinkWritesEmbeddedRuntime(t *testing.T) {
	dir := t.TempDir()
	saved := filepath.Join(dir, "runtime.c")
	// $6 is the runtime source.
	clang := fakeClang(t, `cp "$6" "`+saved+`" && echo "$@" > "`+filepath.Join(dir, "args")+`"`)

	var log bytes.Buffer
	tools := &Toolchain{Clang: clang, Log: &log}
	err := tools.Link(context.Background(), "prog.ll", "prog")
	be.Err(t, err, nil)

	runtimeSource, err := os.ReadFile(saved)
	be.Err(t, err, nil)
	be.Equal(t, runtimeSource, embeddedRuntime)

	args, err := os.ReadFile(filepath.Join(dir, "args"))
	be.Err(t, err, nil)
	be.True(t, strings.HasPrefix(string(args), "-Wno-override-module -O0 -o prog prog.ll "))
	be.True(t, strings.HasPrefix(log.String(), "Running "+clang))
}

func TestToolchainLinkRuntimeOverride(t *testing.T) {
	dir := t.TempDir()
	clang := fakeClang(t, `echo "$6" > "`+filepath.Join(dir, "runtime")+`"`)

	tools := &Toolchain{Clang: clang, RuntimePath: "custom.c"}
	be.Err(t, tools.Link(context.Background(), "prog.ll", "prog"), nil)

	used, err := os.ReadFile(filepath.Join(dir, "runtime"))
	be.Err(t, err, nil)
	be.Equal(t, strings.TrimSpace(string(used)), "custom.c")
}

func TestToolchainLinkFailure(t *testing.T) {
	clang := fakeClang(t, "echo 'undefined symbol: print_int' >&2\nexit 1")
	tools := &Toolchain{Clang: clang}
	err := tools.Link(context.Background(), "prog.ll", "prog")
	be.Err(t, err, "undefined symbol: print_int")
	be.Err(t, err, clang+" failed")
}
