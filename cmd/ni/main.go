// Command ni compiles and runs a single Ni source file.
package main

import (
	"fmt"
	"os"

	"github.com/sasalla23/ni/pkg/checker"
	"github.com/sasalla23/ni/pkg/codegen"
	"github.com/sasalla23/ni/pkg/parser"
	"github.com/sasalla23/ni/pkg/vm"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: ni SOURCE_PATH")
		os.Exit(1)
	}
	path := os.Args[1]

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ni:", err)
		os.Exit(1)
	}

	file, err := parser.Parse(string(src), path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := checker.Check(file); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	program, staticData, err := codegen.Generate(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := vm.New(program, staticData).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
