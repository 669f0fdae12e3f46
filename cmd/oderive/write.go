package main

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// tempFile is the part of *os.File the writer needs.
type tempFile interface {
	Name() string
	Write([]byte) (int, error)
	Close() error
}

// File operation hooks, overridden in tests.
var (
	readFile       = os.ReadFile
	createTempFile = func(dir, pattern string) (tempFile, error) { return os.CreateTemp(dir, pattern) }
	chmodFile      = os.Chmod
	renameFile     = os.Rename
	removeFile     = os.Remove
)

// writeOutput replaces target with data unless it already holds exactly data,
// and reports whether it wrote. Leaving unchanged output alone keeps its
// modification time, so build caches and watchers see no change.
func writeOutput(target string, data []byte, perm os.FileMode) (bool, error) {
	old, err := readFile(target)
	switch {
	case err == nil && bytes.Equal(old, data):
		return false, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return false, err
	}
	if err := writeFileAtomic(target, data, perm); err != nil {
		return false, err
	}
	return true, nil
}

// writeFileAtomic writes data to a temporary file next to target and renames
// it into place, so go build never sees a half-written file.
func writeFileAtomic(target string, data []byte, perm os.FileMode) (err error) {
	tmp, err := createTempFile(filepath.Dir(target), filepath.Base(target)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = removeFile(tmp.Name())
		}
	}()

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if err = chmodFile(tmp.Name(), perm); err != nil {
		return err
	}
	return renameFile(tmp.Name(), target)
}
