// Package testutil provides shared fixtures for tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
)

// Fixture returns the raw contents of a file under testdata/.
func Fixture(name string) ([]byte, error) {
	_, currentFile, _, _ := runtime.Caller(0)
	return os.ReadFile(filepath.Join(filepath.Dir(currentFile), "testdata", name))
}
