// Package fileio writes output files so that a reader never observes a
// partially written result.
package fileio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"vizloop/pkg/errs"
	"vizloop/std/net"
)

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.IO("create parent directory", dir, err)
	}
	return nil
}

// WriteAtomicFunc creates a temp file beside path, lets write fill it and
// renames it into place. On any error the temp file is removed and path is
// left untouched.
func WriteAtomicFunc(path string, write func(tmp string) error) error {
	if err := EnsureParentDir(path); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errs.IO("create temp file", path, err)
	}
	tmp := f.Name()
	f.Close()

	if err := write(tmp); err != nil {
		os.Remove(tmp)
		return errs.IO("write", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errs.IO("rename", path, err)
	}
	return nil
}

// WriteAtomic writes data to path via a temp file and rename.
func WriteAtomic(path string, data []byte) error {
	return WriteAtomicFunc(path, func(tmp string) error {
		return os.WriteFile(tmp, data, 0o644)
	})
}

// Marshal renders v as two-space indented JSON with HTML escaping off.
func Marshal(v any) ([]byte, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return []byte(sb.String()), nil
}

// WriteJSON writes v as pretty JSON.
func WriteJSON(path string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	return WriteAtomic(path, data)
}

// CopyFile copies src to dst, creating dst's directory.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errs.Input("open", src, err)
	}
	defer in.Close()

	return WriteAtomicFunc(dst, func(tmp string) error {
		out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}

// SidecarPath returns the default metadata path for an output file: the
// same directory and stem with a .json extension.
func SidecarPath(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "output"
	}
	return filepath.Join(filepath.Dir(path), stem+".json")
}

// Abs returns path made absolute against the working directory. Paths that
// cannot be resolved are returned unchanged.
func Abs(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Available reports whether src is a remote URL or an existing local path.
func Available(src string) bool {
	return net.IsNetworkURL(src) || Exists(src)
}

// ReadSource returns the bytes of a local file, an http(s) URL, or stdin
// when src is "-".
func ReadSource(src string) ([]byte, error) {
	switch {
	case src == "-":
		return io.ReadAll(os.Stdin)
	case net.IsNetworkURL(src):
		body, _, err := net.Fetch(src)
		return body, err
	}
	return os.ReadFile(src)
}
