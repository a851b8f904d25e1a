// Package artifacts owns the run-directory tree and all durable writes
// into it. Every write lands under a temporary name and is renamed into
// place, so a resumed run can tell a finished artifact from one that was
// interrupted mid-write by the presence of the final name alone.
package artifacts

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"newsdigest/constants"
	"newsdigest/internal/common"
)

// Store is the filesystem layout for a single pipeline run.
type Store struct {
	runID  string
	runDir string
	logger *slog.Logger
}

// NewStore creates the run directory tree for a fresh run under base.
// The run id is derived from the current time.
func NewStore(base string, logger *slog.Logger) (*Store, error) {
	runID := time.Now().Format("20060102_150405")
	return openStore(base, runID, logger, true)
}

// OpenStore attaches to an existing run directory, creating any missing
// subdirectories but never a new run id. A run id with no directory on
// disk yields common.ErrStateNotFound without creating anything.
func OpenStore(base, runID string, logger *slog.Logger) (*Store, error) {
	runDir := filepath.Join(base, "run_"+runID)
	if _, err := os.Stat(runDir); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", runDir, common.ErrStateNotFound)
		}
		return nil, fmt.Errorf("stat run dir %s: %w", runDir, err)
	}
	return openStore(base, runID, logger, true)
}

func openStore(base, runID string, logger *slog.Logger, create bool) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	runDir := filepath.Join(base, "run_"+runID)
	if create {
		for _, dir := range []string{
			runDir,
			filepath.Join(runDir, constants.URLsDir),
			filepath.Join(runDir, constants.PDFsDir),
			filepath.Join(runDir, constants.TextDir),
			filepath.Join(runDir, constants.ProcessedDir),
			filepath.Join(runDir, constants.ProcessedDir, constants.IndividualDir),
		} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create run dir %s: %w", dir, err)
			}
		}
	}
	return &Store{runID: runID, runDir: runDir, logger: logger}, nil
}

func (s *Store) RunID() string  { return s.runID }
func (s *Store) RunDir() string { return s.runDir }

// Dir returns the absolute path of a stage directory.
func (s *Store) Dir(name string) string {
	return filepath.Join(s.runDir, name)
}

// Path returns the absolute path of a file inside a stage directory.
func (s *Store) Path(dir, name string) string {
	return filepath.Join(s.runDir, dir, name)
}

// Write saves data under dir/name atomically: the bytes go to a .tmp
// sibling first and are renamed into place on success.
func (s *Store) Write(dir, name string, data []byte) error {
	final := s.Path(dir, name)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("rename %s: %w", final, err)
	}
	return nil
}

// WriteJSON marshals v with indentation and writes it atomically.
func (s *Store) WriteJSON(dir, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return s.Write(dir, name, data)
}

// Read returns the contents of dir/name.
func (s *Store) Read(dir, name string) ([]byte, error) {
	return os.ReadFile(s.Path(dir, name))
}

// List returns the sorted base names in a stage directory matching ext
// (e.g. ".pdf"). Temporary files are never listed.
func (s *Store) List(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(s.Dir(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".tmp") {
			continue
		}
		if ext != "" && !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// SweepTemp removes leftover .tmp files from a stage directory. Called at
// stage start so an interrupted previous run cannot leak half-written
// artifacts into this one.
func (s *Store) SweepTemp(dir string) {
	matches, _ := filepath.Glob(filepath.Join(s.Dir(dir), "*.tmp"))
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			s.logger.Warn("artifacts.sweep.failed", "path", m, "error", err)
			continue
		}
		s.logger.Info("artifacts.sweep.removed", "path", m)
	}
}
