package nblink

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// copyFile copies src over dst through a temporary sibling so readers never see
// a half-written destination. Permission bits follow the source.
func copyFile(src, dst string) (err error) {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	if dstInfo, statErr := os.Lstat(dst); statErr == nil && dstInfo.IsDir() {
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("remove directory in the way: %w", err)
		}
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		return err
	}
	if err = tmp.Chmod(info.Mode().Perm()); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}

// replaceTree removes dst and copies the tree rooted at src into it. It returns
// the source paths of the copied files in walk order. Symlinked directories are
// not followed.
func replaceTree(src, dst string) ([]string, error) {
	if err := os.RemoveAll(dst); err != nil {
		return nil, fmt.Errorf("remove stale copy: %w", err)
	}

	var copied []string
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type()&fs.ModeSymlink != 0:
			info, err := os.Stat(path)
			if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.Mode().IsRegular()) {
				return nil
			}
			if err != nil {
				return err
			}
		case !d.Type().IsRegular():
			return nil
		}

		if err := copyFile(path, target); err != nil {
			return err
		}
		copied = append(copied, path)
		return nil
	})
	if err != nil {
		return copied, err
	}
	return copied, nil
}
