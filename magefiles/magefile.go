//go:build mage

// Package main provides build targets for the todolist project using Mage.
//
// Usage:
//
//	mage build   Compile api, tui and todoctl to bin/
//	mage test    Run all tests with the race detector
//	mage lint    Run go vet and golangci-lint
//	mage run     Start the API with configs/config.yaml
//	mage clean   Remove build artifacts
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo     = "go"
	binLint   = "golangci-lint"
	binaryDir = "bin"
)

var commands = []string{"api", "tui", "todoctl"}

// Build compiles every command under cmd/ to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	for _, name := range commands {
		out := filepath.Join(binaryDir, name)
		if err := sh.RunV(binGo, "build", "-o", out, "./cmd/"+name); err != nil {
			return err
		}
	}
	return nil
}

// Test runs all tests. go-sqlite3 needs cgo.
func Test() error {
	env := map[string]string{"CGO_ENABLED": "1"}
	return sh.RunWithV(env, binGo, "test", "-race", "-count=1", "./...")
}

// Lint runs go vet and golangci-lint.
func Lint() error {
	if err := sh.RunV(binGo, "vet", "./..."); err != nil {
		return err
	}
	return sh.RunV(binLint, "run", "./...")
}

// Run builds and starts the API server.
func Run() error {
	mg.Deps(Build)
	env := map[string]string{"CONFIG_PATH": "configs/config.yaml"}
	return sh.RunWithV(env, filepath.Join(binaryDir, "api"))
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}
