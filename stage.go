package xlkinetics

import (
	"os"
	"path/filepath"
)

// staging collects a run's outputs in a hidden directory beside their
// destination and moves them into place only once all were written.
type staging struct {
	dir    string
	target string
	files  []string
}

func newStaging(target, runID string) (*staging, error) {
	dir := filepath.Join(target, ".xlkinetics-"+runID)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, &IOError{Op: "stage", Path: dir, Err: err}
	}
	return &staging{dir: dir, target: target}, nil
}

// path registers name as an output and returns where to write it.
func (s *staging) path(name string) string {
	s.files = append(s.files, name)
	return filepath.Join(s.dir, name)
}

// commit moves every staged file into the target directory and returns the
// final paths in registration order. If a move fails the files already
// moved are taken back out, so either all outputs appear or none do.
// Regular files already at a destination are set aside in the staging
// directory first and put back on failure.
func (s *staging) commit() ([]string, error) {
	defer s.discard()

	var moved, replaced []string
	rollback := func() {
		for _, m := range moved {
			os.Remove(m)
		}
		for _, name := range replaced {
			os.Rename(s.backup(name), filepath.Join(s.target, name))
		}
	}
	for _, name := range s.files {
		dst := filepath.Join(s.target, name)
		if fi, err := os.Lstat(dst); err == nil && fi.Mode().IsRegular() {
			if err := os.Rename(dst, s.backup(name)); err != nil {
				rollback()
				return nil, &IOError{Op: "relocate", Path: dst, Err: err}
			}
			replaced = append(replaced, name)
		}
		if err := os.Rename(filepath.Join(s.dir, name), dst); err != nil {
			rollback()
			return nil, &IOError{Op: "relocate", Path: dst, Err: err}
		}
		moved = append(moved, dst)
	}
	return moved, nil
}

func (s *staging) backup(name string) string {
	return filepath.Join(s.dir, ".prev-"+name)
}

// discard removes the staging directory and anything left in it.
func (s *staging) discard() {
	os.RemoveAll(s.dir)
}
