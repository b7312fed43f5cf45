package schemgen

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// NumCPU is the number of cores available to the parallel stages of the pipeline.
var NumCPU = runtime.NumCPU()

// ConvertToAbsolute returns an absolute path for the given path, treating a relative
// path as relative to the given directory.
func ConvertToAbsolute(path, relativeTo string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	absPath, err := filepath.Abs(filepath.Join(relativeTo, path))
	if err != nil {
		return "", fmt.Errorf("unable to make %q absolute relative to %q: %v", path, relativeTo, err)
	}
	return absPath, nil
}
