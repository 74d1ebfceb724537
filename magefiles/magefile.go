//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binDir = "bin"

var Default = Build

// Build compiles the terrainbake binary into bin/.
func Build() error {
	mg.Deps(Tidy)
	out := filepath.Join(binDir, "terrainbake")
	fmt.Println("Building", out)
	return sh.RunV("go", "build", "-o", out, "./cmd/terrainbake")
}

// Tidy runs go mod tidy.
func Tidy() error {
	return sh.Run("go", "mod", "tidy")
}

// Test runs unit tests. Set TERRAINBAKE_GL_TESTS=1 to include OpenGL tests.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// TestGL runs the OpenGL device tests against a real context.
func TestGL() error {
	return sh.RunWithV(map[string]string{"TERRAINBAKE_GL_TESTS": "1"},
		"go", "test", "./internal/engine/gpu/...")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Fmt reports files gofmt would change.
func Fmt() error {
	out, err := sh.Output("gofmt", "-l", "cmd", "internal", "pkg")
	if err != nil {
		return err
	}
	if out != "" {
		return fmt.Errorf("unformatted files:\n%s", out)
	}
	return nil
}

// Check runs formatting, vet and tests.
func Check() {
	mg.SerialDeps(Fmt, Vet, Test)
}

// Clean removes build output.
func Clean() error {
	return os.RemoveAll(binDir)
}
