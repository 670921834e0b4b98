// Package baseline keeps named baseline screenshots with their latest
// capture, a timestamped history, and the diff outputs of every run.
package baseline

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"vizloop/pkg/errs"
	"vizloop/pkg/fileio"
)

// Subdirectories of a loop directory.
const (
	DirBaselines   = "baselines"
	DirLatest      = "latest"
	DirHistory     = "history"
	DirDiffs       = "diffs"
	DirReports     = "reports"
	DirAnnotations = "annotations"
)

// TimestampLayout is the compact UTC stamp used in history file names.
const TimestampLayout = "20060102-150405"

// Store is a loop directory.
type Store struct {
	Root string
}

// ResolveDir picks the loop directory: loopDir when set, else
// <outRoot>/loop. An older layout that kept baselines directly under
// outRoot is still used when no loop/baselines directory exists yet.
func ResolveDir(outRoot, loopDir string) string {
	if loopDir != "" {
		return loopDir
	}
	legacy := filepath.Join(outRoot, DirBaselines)
	current := filepath.Join(outRoot, "loop", DirBaselines)
	if fileio.Exists(legacy) && !fileio.Exists(current) {
		return outRoot
	}
	return filepath.Join(outRoot, "loop")
}

// Open creates the loop subdirectories under root.
func Open(root string) (*Store, error) {
	s := &Store{Root: root}
	for _, d := range []string{DirBaselines, DirLatest, DirHistory, DirDiffs, DirReports, DirAnnotations} {
		dir := filepath.Join(root, d)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errs.IO("create loop directory", dir, err)
		}
	}
	return s, nil
}

// SanitizeName keeps ASCII letters, digits, '.', '_' and '-', maps space,
// '/' and ':' to '_' and drops everything else. An empty result becomes
// "baseline".
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 128 && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '/' || r == ':':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "baseline"
	}
	return b.String()
}

// Paths are the files one run reads or writes.
type Paths struct {
	Baseline     string
	Latest       string
	History      string
	Diff         string
	Report       string
	Annotated    string
	AnnotateSpec string
}

// Paths returns the files for a run of name stamped at ts.
func (s *Store) Paths(name string, ts time.Time) Paths {
	safe := SanitizeName(name)
	stamp := safe + "-" + ts.UTC().Format(TimestampLayout)
	return Paths{
		Baseline:     filepath.Join(s.Root, DirBaselines, safe+".png"),
		Latest:       filepath.Join(s.Root, DirLatest, safe+".png"),
		History:      filepath.Join(s.Root, DirHistory, stamp+".png"),
		Diff:         filepath.Join(s.Root, DirDiffs, stamp+".png"),
		Report:       filepath.Join(s.Root, DirReports, stamp+".json"),
		Annotated:    filepath.Join(s.Root, DirAnnotations, stamp+".png"),
		AnnotateSpec: filepath.Join(s.Root, DirReports, stamp+"-change-spec.json"),
	}
}

// Names lists the stored baselines, sorted.
func (s *Store) Names() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.Root, DirBaselines, "*.png"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".png"))
	}
	return names, nil
}

// Promote copies the latest capture of name over its baseline.
func (s *Store) Promote(name string) (string, error) {
	p := s.Paths(name, time.Time{})
	if !fileio.Exists(p.Latest) {
		return "", errs.Input("no latest capture", p.Latest, nil)
	}
	if err := fileio.CopyFile(p.Latest, p.Baseline); err != nil {
		return "", err
	}
	return p.Baseline, nil
}

// LatestNames lists names that have a latest capture, sorted.
func (s *Store) LatestNames() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.Root, DirLatest, "*.png"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".png"))
	}
	return names, nil
}
