package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/do"
)

// Driver runs the compiler pipeline on behalf of the command line.
type Driver struct {
	Config    *Config
	Toolchain *Toolchain
	Stdout    io.Writer
	Verbose   bool
}

// newInjector wires the services behind the command line. Configuration is
// loaded lazily, the first time a service needs it.
func newInjector(configPath string) *do.Injector {
	i := do.New()
	do.Provide(i, func(i *do.Injector) (*Config, error) {
		return LoadConfig(configPath)
	})
	do.Provide(i, func(i *do.Injector) (*Toolchain, error) {
		cfg, err := do.Invoke[*Config](i)
		if err != nil {
			return nil, err
		}
		return NewToolchain(cfg), nil
	})
	do.Provide(i, NewDriver)
	return i
}

func NewDriver(i *do.Injector) (*Driver, error) {
	cfg, err := do.Invoke[*Config](i)
	if err != nil {
		return nil, err
	}
	tools, err := do.Invoke[*Toolchain](i)
	if err != nil {
		return nil, err
	}
	return &Driver{Config: cfg, Toolchain: tools, Stdout: os.Stdout}, nil
}

func (d *Driver) logf(format string, args ...any) {
	if d.Verbose {
		fmt.Fprintf(d.Stdout, format, args...)
	}
}

// OutputPath names a build product for filename: the source's base name
// with ext, placed in the configured output directory or next to the
// source.
func (d *Driver) OutputPath(filename, ext string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)) + ext
	dir := d.Config.Build.OutputDir
	if dir == "" {
		dir = filepath.Dir(filename)
	}
	path := filepath.Join(dir, base)
	if path == filepath.Clean(filename) {
		path += ".out"
	}
	return path
}

// Build compiles filename to IR and, if exe is set, links it into an
// executable. It returns the path of the final product.
func (d *Driver) Build(ctx context.Context, filename, output string, exe bool) (string, error) {
	source, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	d.logf("Compiling %s...\n", filename)
	ir, err := CompileProgram(source)
	if err != nil {
		return "", err
	}

	irPath := output
	exePath := ""
	if exe {
		exePath = output
		if exePath == "" {
			exePath = d.OutputPath(filename, "")
		}
		irPath = exePath + ".ll"
	} else if irPath == "" {
		irPath = d.OutputPath(filename, ".ll")
	}

	if err := os.MkdirAll(filepath.Dir(irPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(irPath, []byte(ir), 0o644); err != nil {
		return "", err
	}
	d.logf("Generated %s (%d bytes)\n", irPath, len(ir))
	if !exe {
		return irPath, nil
	}

	if d.Verbose {
		d.Toolchain.Log = d.Stdout
	}
	if err := d.Toolchain.Link(ctx, irPath, exePath); err != nil {
		return "", err
	}
	if !d.Config.Build.KeepIR {
		os.Remove(irPath)
	}
	d.logf("Linked %s\n", exePath)
	return exePath, nil
}

// Check parses and analyzes filename.
func (d *Driver) Check(filename string) error {
	source, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	d.logf("Checking %s...\n", filename)
	program, _, err := Analyze(source)
	if err != nil {
		return err
	}
	d.logf("AST: %s\n", ToSExpr(program))
	return nil
}

// Run interprets filename and returns main's result.
func (d *Driver) Run(filename string) (int32, error) {
	source, err := os.ReadFile(filename)
	if err != nil {
		return 0, err
	}
	d.logf("Running %s...\n", filename)
	return d.Eval(string(source))
}

// Eval interprets a program given as text.
func (d *Driver) Eval(code string) (int32, error) {
	program, tc, err := Analyze([]byte(code))
	if err != nil {
		return 0, err
	}
	in := NewInterpreter(tc)
	in.Stdout = d.Stdout
	return in.Run(program)
}

// AST returns the parse tree of filename as an s-expression.
func (d *Driver) AST(filename string) (string, error) {
	source, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	program, err := ParseProgram(NewLexer(source))
	if err != nil {
		return "", err
	}
	return ToSExpr(program), nil
}
