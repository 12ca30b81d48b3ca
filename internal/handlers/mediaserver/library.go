package mediaserver

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"example.com/mediaserve/internal/http1"
)

// ListFiles returns the names of the files directly under dir, sorted by name. Symlinks
// are followed and listed when they resolve to a regular file. Directories, dangling
// links and other special files are left out.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		switch {
		case e.Type().IsRegular():
			names = append(names, e.Name())
		case e.Type()&fs.ModeSymlink != 0:
			if fi, err := os.Stat(filepath.Join(dir, e.Name())); err == nil && fi.Mode().IsRegular() {
				names = append(names, e.Name())
			}
		}
	}
	return names, nil
}

// lookupFile reports whether name is one of the files ListFiles returns for dir.
// The name is matched against the directory listing and never resolved as a path.
func lookupFile(dir, name string) (bool, error) {
	names, err := ListFiles(dir)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// readListedFile reads a file previously found by lookupFile. A file that vanished in
// between is reported as not found.
func readListedFile(dir, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, http1.NewNotFoundError("file " + name + " removed while serving")
		}
		return nil, http1.NewServerError("failed to read "+name, err)
	}
	return data, nil
}
