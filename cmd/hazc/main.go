// Copyright 2022 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command hazc drives the full scan -> preprocess -> parse -> generate
// pipeline and, unless told otherwise, hands the resulting FASM source
// off to fasm and gcc to produce a runnable binary.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vx-lang/hazc/internal/codegen"
	"github.com/vx-lang/hazc/internal/parser"
	"github.com/vx-lang/hazc/internal/preprocessor"
	"github.com/vx-lang/hazc/internal/scanner"
)

var verbose bool

// runCommand runs a command and extracts its combined output.
func runCommand(name string, arg ...string) (string, error) {
	if verbose {
		fmt.Fprintf(os.Stderr, "Running %v\n", append([]string{name}, arg...))
	}
	cmd := exec.Command(name, arg...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if output != nil {
			return "", errors.New(string(output))
		}
		return "", err
	}
	return string(output), nil
}

// compile runs the pipeline on sourceFile and writes the generated
// FASM source next to it, returning the path it wrote.
func compile(sourceFile string, includePaths []string) (string, error) {
	src, err := os.ReadFile(sourceFile)
	if err != nil {
		return "", err
	}

	toks, err := scanner.Tokens(string(src), sourceFile)
	if err != nil {
		return "", err
	}

	dirs := append([]string{"./", "./include/", filepath.Dir(sourceFile) + "/"}, includePaths...)
	readFile := func(path string) (string, error) {
		b, err := os.ReadFile(path)
		return string(b), err
	}
	toks, err = preprocessor.New(dirs, readFile).Process(toks)
	if err != nil {
		return "", err
	}

	decls, err := parser.Parse(toks)
	if err != nil {
		return "", err
	}

	asm, err := codegen.New().Generate(decls)
	if err != nil {
		return "", err
	}

	asmPath := strings.TrimSuffix(sourceFile, filepath.Ext(sourceFile)) + ".asm"
	if err := os.WriteFile(asmPath, []byte(asm), 0o644); err != nil {
		return "", err
	}
	fmt.Printf("[INFO] Generated assembly file: %s\n", asmPath)
	return asmPath, nil
}

// assemble runs fasm over asmPath and returns the produced object file.
func assemble(asmPath string) (string, error) {
	if _, err := runCommand("fasm", "-m", "524288", asmPath); err != nil {
		return "", err
	}
	return strings.TrimSuffix(asmPath, filepath.Ext(asmPath)) + ".obj", nil
}

// link runs gcc over objPath and returns the produced executable.
func link(objPath string) (string, error) {
	exePath := strings.TrimSuffix(objPath, filepath.Ext(objPath)) + ".exe"
	if _, err := runCommand("gcc", objPath, "-o", exePath); err != nil {
		return "", err
	}
	return exePath, nil
}

var command = &cobra.Command{
	Use:  "hazc source",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		asmOnly, _ := cmd.Flags().GetBool("asm")
		run, _ := cmd.Flags().GetBool("run")
		clean, _ := cmd.Flags().GetBool("clean")
		includePaths, _ := cmd.Flags().GetStringSlice("include-path")

		sourceFile := args[0]
		asmPath, err := compile(sourceFile, includePaths)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if asmOnly {
			return
		}

		objPath, err := assemble(asmPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		exePath, err := link(objPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		if run {
			output, err := runCommand(exePath)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Print(output)
		}

		if clean {
			_ = os.Remove(asmPath)
			_ = os.Remove(objPath)
		}
	},
}

func init() {
	command.Flags().Bool("asm", false, "stop after generating the FASM source, skipping assembly and linking")
	command.Flags().Bool("run", false, "run the compiled executable after a successful build")
	command.Flags().Bool("clean", false, "remove intermediate .asm/.obj files after a successful build")
	command.Flags().StringSliceP("include-path", "I", nil, "additional %include search path")
	command.Flags().BoolVarP(&verbose, "verbose", "v", false, "if set, print external commands before running them")
}

func main() {
	if err := command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
