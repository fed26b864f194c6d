package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/strager/plush/sexy"
)

// Example is one Plush program together with the output it printed.
type Example struct {
	Name       string
	Input      string
	Expected   string
	SourceFile string
	ExitCode   int
}

type Extractor struct {
	plush string
	cases []Example
}

func NewExtractor(plush string) *Extractor {
	return &Extractor{plush: plush}
}

func (e *Extractor) extractFromPrograms(pattern string) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	for _, file := range files {
		if err := e.visitFile(file); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to process %s: %v\n", file, err)
		}
	}

	return nil
}

// visitFile interprets one program with "plush run" and records its output.
// A non-zero exit status is main's result, not a failure, as long as
// nothing was written to stderr.
func (e *Extractor) visitFile(filename string) error {
	src, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(e.plush, "run", filename)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	exitCode := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || stderr.Len() > 0 {
			return fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		exitCode = exitErr.ExitCode()
	}

	expected := strings.TrimSuffix(stdout.String(), "\n")
	if expected == "" {
		return fmt.Errorf("program printed nothing")
	}
	e.cases = append(e.cases, Example{
		Name:       generateTestName(filename),
		Input:      strings.TrimSpace(string(src)),
		Expected:   expected,
		SourceFile: filepath.Base(filename),
		ExitCode:   exitCode,
	})
	return nil
}

// generateTestName turns "examples/prime_sieve.plush" into "prime sieve".
func generateTestName(filename string) string {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return strings.ReplaceAll(name, "_", " ")
}

func (e *Extractor) generateSexyMarkdown() string {
	if len(e.cases) == 0 {
		return "# No test cases found\n"
	}

	sort.Slice(e.cases, func(i, j int) bool {
		return e.cases[i].SourceFile < e.cases[j].SourceFile
	})

	var sb strings.Builder
	sb.WriteString("# Example programs\n\n")
	sb.WriteString("Generated by running the programs under examples/.\n\n")

	for _, tc := range e.cases {
		sb.WriteString(fmt.Sprintf("## Test: %s\n\n", tc.Name))
		if tc.ExitCode != 0 {
			sb.WriteString(fmt.Sprintf("From %s; main returns %d.\n\n", tc.SourceFile, tc.ExitCode))
		} else {
			sb.WriteString(fmt.Sprintf("From %s.\n\n", tc.SourceFile))
		}
		sb.WriteString(fmt.Sprintf("```%s\n", sexy.InputTypePlushProgram))
		sb.WriteString(tc.Input)
		sb.WriteString("\n```\n\n")
		sb.WriteString(fmt.Sprintf("```%s\n", sexy.AssertionTypeExecute))
		sb.WriteString(tc.Expected)
		sb.WriteString("\n```\n\n")
	}

	return sb.String()
}

func main() {
	plush := flag.String("plush", "plush", "Path of the plush binary")
	pattern := flag.String("programs", "examples/*.plush", "Glob of programs to run")
	output := flag.String("o", "", "Write the markdown here instead of stdout")
	flag.Parse()

	extractor := NewExtractor(*plush)
	if err := extractor.extractFromPrograms(*pattern); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	markdown := extractor.generateSexyMarkdown()

	// The generated suite must load the same way the test runner loads it.
	cases, err := sexy.ExtractTestCases(markdown)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: generated markdown does not parse: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Extracted %d test cases\n", len(cases))

	if *output == "" {
		fmt.Print(markdown)
		return
	}
	if err := os.WriteFile(*output, []byte(markdown), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
