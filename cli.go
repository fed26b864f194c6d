package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/samber/do"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, `Plush - A small statically typed language that compiles to LLVM IR

Usage:
    plush <command> [arguments]

Commands:
    build <file>    Compile a .plush file to LLVM IR (or an executable with -exe)
    check <file>    Parse and type-check a .plush file
    run <file>      Interpret a .plush file
    ast <file>      Print the parse tree of a .plush file
    eval <code>     Interpret inline Plush code
    help            Show this help message

Examples:
    plush build -o prime.ll examples/prime.plush
    plush build -exe hello.plush
    plush run examples/prime.plush
    plush eval 'function main() { print_int(42); }'

Use "plush <command> -h" for more information about a command.
`)
}

// commandFlags registers the flags every subcommand shares.
func commandFlags(fs *flag.FlagSet) (verbose *bool, config *string) {
	verbose = fs.Bool("v", false, "Show verbose compilation details")
	config = fs.String("config", DefaultConfigFile, "Path of the configuration file")
	return verbose, config
}

func parseCommand(fs *flag.FlagSet, args []string, what string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one %s argument\n", what)
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func mustDriver(configPath string, verbose bool) *Driver {
	injector := newInjector(configPath)
	driver, err := do.Invoke[*Driver](injector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	driver.Verbose = verbose
	return driver
}

func buildCommand(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	output := fs.String("o", "", "Output file path (default: <filename>.ll, or <filename> with -exe)")
	exe := fs.Bool("exe", false, "Link the IR with the C runtime into an executable")
	verbose, config := commandFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: plush build [-o output] [-exe] [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Compile a .plush file to LLVM IR\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	filename := parseCommand(fs, args, "file")

	driver := mustDriver(*config, *verbose)
	product, err := driver.Build(context.Background(), filename, *output, *exe)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if !*verbose {
		fmt.Printf("Generated %s\n", product)
	}
}

func checkCommand(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	verbose, config := commandFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: plush check [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Parse and type-check a .plush file\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	filename := parseCommand(fs, args, "file")

	driver := mustDriver(*config, *verbose)
	if err := driver.Check(filename); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", filename, err)
		os.Exit(1)
	}
	fmt.Printf("%s: no errors found\n", filename)
}

func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	verbose, config := commandFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: plush run [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Interpret a .plush file; the exit status is main's result\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	filename := parseCommand(fs, args, "file")

	driver := mustDriver(*config, *verbose)
	code, err := driver.Run(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	os.Exit(int(code))
}

func astCommand(args []string) {
	fs := flag.NewFlagSet("ast", flag.ExitOnError)
	verbose, config := commandFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: plush ast <file>\n")
		fmt.Fprintf(os.Stderr, "Print the parse tree of a .plush file\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	filename := parseCommand(fs, args, "file")

	driver := mustDriver(*config, *verbose)
	tree, err := driver.AST(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Println(tree)
}

func evalCommand(args []string) {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	verbose, config := commandFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: plush eval [-v] <code>\n")
		fmt.Fprintf(os.Stderr, "Interpret inline Plush code\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	code := parseCommand(fs, args, "code")

	driver := mustDriver(*config, *verbose)
	driver.logf("Evaluating: %s\n", code)
	status, err := driver.Eval(code)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	os.Exit(int(status))
}

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "build":
		buildCommand(args)
	case "check":
		checkCommand(args)
	case "run":
		runCommand(args)
	case "ast":
		astCommand(args)
	case "eval":
		evalCommand(args)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showUsage()
		os.Exit(1)
	}
}
