package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
)

// DefaultDirMode is the permission mode for directories created on receive.
// The process umask still applies.
const DefaultDirMode os.FileMode = 0o777

// DefaultFileMode is the permission mode for files created on receive.
const DefaultFileMode os.FileMode = 0o666

// EnsureDirectory makes every component of path exist, creating missing ones
// with mode, like "mkdir -p". It walks prefixes from the root down and skips
// empty segments, so leading, doubled and trailing separators are harmless.
// Calling it on a path that already exists is a no-op.
func EnsureDirectory(path string, mode os.FileMode) error {
	if path == "" {
		return errors.New("empty directory path")
	}

	slashed := filepath.ToSlash(path)
	prefix := ""
	if strings.HasPrefix(slashed, "/") {
		prefix = "/"
	}

	created := 0
	for _, segment := range strings.Split(slashed, "/") {
		if segment == "" {
			continue
		}

		switch prefix {
		case "", "/":
			prefix += segment
		default:
			prefix += "/" + segment
		}

		made, err := ensureSegment(filepath.FromSlash(prefix), mode)
		if err != nil {
			return err
		}
		if made {
			created++
		}
	}

	if created > 0 {
		logrus.WithFields(logrus.Fields{
			"function": "EnsureDirectory",
			"path":     path,
			"created":  created,
			"mode":     fmt.Sprintf("%#o", mode),
		}).Debug("Provisioned directory")
	}

	return nil
}

// ensureSegment creates dir if it is missing and reports whether it did.
func ensureSegment(dir string, mode os.FileMode) (bool, error) {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return false, &fs.PathError{Op: "mkdir", Path: dir, Err: syscall.ENOTDIR}
		}
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}

	if err := os.Mkdir(dir, mode); err != nil {
		// another process may have created it between Stat and Mkdir
		if errors.Is(err, fs.ErrExist) {
			if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
				return false, nil
			}
		}
		return false, err
	}

	return true, nil
}
