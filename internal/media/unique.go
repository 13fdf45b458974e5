package media

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
)

// UniqueFileName returns base+ext, or base+sep+N+ext with the smallest N >= 1
// that does not exist in dir.
func UniqueFileName(dir, base, ext, sep string) string {
	name := base + ext
	for n := 1; exists(filepath.Join(dir, name)); n++ {
		name = base + sep + strconv.Itoa(n) + ext
	}
	return name
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
