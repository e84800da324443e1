package storage

import (
	"os"
	"path/filepath"
)

// writeTemp writes data to a synced temp file beside path and returns its
// name. The caller owns the temp file.
func writeTemp(path string, data []byte, perm os.FileMode) (string, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	ok := false
	defer func() {
		if !ok {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return "", err
	}
	ok = true
	return tmpName, nil
}

// writeFileAtomic replaces path with data so readers see either the old or
// the new content, never a partial write.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpName, err := writeTemp(path, data, perm)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// createFileAtomic publishes data at path only when nothing exists there.
// The link either fails with an os.IsExist error or exposes the complete
// content, so two racing creators cannot both win.
func createFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpName, err := writeTemp(path, data, perm)
	if err != nil {
		return err
	}
	defer os.Remove(tmpName)
	return os.Link(tmpName, path)
}
