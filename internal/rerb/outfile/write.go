package outfile

import (
	"bytes"
	"os"
	"path/filepath"
)

// WriteGeneratedFile writes src to outPath, creating parent directories. The
// file is replaced atomically and left untouched when its content already
// matches. It reports whether the file changed.
func WriteGeneratedFile(outPath string, src []byte) (bool, error) {
	if old, err := os.ReadFile(outPath); err == nil && bytes.Equal(old, src) {
		return false, nil
	}
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outPath)+".*")
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(src); err != nil {
		_ = tmp.Close()
		return false, err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return false, err
	}
	return true, nil
}
