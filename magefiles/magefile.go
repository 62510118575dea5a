// Package main provides build targets for the baglink project using Mage.
//
// Usage:
//
//	mage build     Compile baglink binary to bin/
//	mage test      Run all tests
//	mage race      Run all tests with the race detector
//	mage lint      Run golangci-lint
//	mage clean     Remove build artifacts
//	mage install   Install baglink to GOPATH/bin

//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/sh"
)

const (
	binaryName = "baglink"
	binaryDir  = "bin"
	cmdDir     = "./cmd/baglink"
)

// Build compiles the baglink binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs all tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Race runs all tests with the race detector. The linking engine's
// concurrency guarantees live or die here.
func Race() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs golangci-lint over the module.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binaryDir)
}

// Install installs the baglink binary to GOPATH/bin.
func Install() error {
	return sh.RunV("go", "install", cmdDir)
}
