// Package testdata resolves paths to the shared test fixtures.
package testdata

import (
	"path/filepath"
	"runtime"
)

// DefaultConfigFile is the application configuration used by cross package
// tests, relative to this directory.
var DefaultConfigFile = "etc/app.yaml"

var basedir string

func init() {
	_, f, _, _ := runtime.Caller(0)
	basedir = filepath.Dir(f)
}

// BaseDir returns the directory holding this package.
func BaseDir() string {
	return basedir
}

// Path resolves rel against the testdata directory. Absolute paths come
// back unmodified.
func Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(basedir, rel)
}
