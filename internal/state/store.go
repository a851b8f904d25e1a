package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"newsdigest/constants"
	"newsdigest/internal/common"
)

// stateSchema rejects state files that are structurally broken before we
// try to resume from them. Only shape is pinned here; values are the
// orchestrator's business.
const stateSchema = `{
  "type": "object",
  "required": ["run_id", "status", "steps_completed", "urls", "pdfs", "texts", "processed"],
  "properties": {
    "run_id": {"type": "string", "minLength": 1},
    "status": {
      "enum": ["initialized", "urls_scraped", "pdfs_generated", "text_extracted", "completed"]
    },
    "steps_completed": {"type": "array", "items": {"type": "string"}},
    "urls": {"type": "array"},
    "pdfs": {"type": "array", "items": {"type": "string"}},
    "texts": {"type": "array", "items": {"type": "string"}},
    "processed": {"type": "array"}
  }
}`

var compiledSchema = jsonschema.MustCompileString("pipeline_state.json", stateSchema)

// Store reads and writes pipeline_state.json inside a run directory.
type Store struct {
	runDir string
	logger *slog.Logger
}

func NewStore(runDir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{runDir: runDir, logger: logger}
}

func (s *Store) path() string {
	return filepath.Join(s.runDir, constants.StateFile)
}

// Save writes the state atomically (tmp then rename).
func (s *Store) Save(st *RunState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return common.WrapError(err, "marshal state")
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return common.WrapError(err, "write state")
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		return common.WrapError(err, "rename state")
	}
	s.logger.Debug("state.saved", "run_id", st.RunID, "status", st.Status, "steps", strings.Join(st.StepsCompleted, ","))
	return nil
}

// Load reads and validates persisted state. A missing file yields
// common.ErrStateNotFound; a file that fails schema validation is treated
// as corrupt and refused.
func (s *Store) Load() (*RunState, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", s.path(), common.ErrStateNotFound)
		}
		return nil, common.WrapError(err, "read state")
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, common.WrapError(err, "parse state")
	}
	if err := compiledSchema.Validate(raw); err != nil {
		return nil, common.NewAppError("STATE_CORRUPT", "state file failed schema validation", err)
	}

	var st RunState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, common.WrapError(err, "decode state")
	}
	s.logger.Info("state.loaded", "run_id", st.RunID, "status", st.Status, "steps", strings.Join(st.StepsCompleted, ","))
	return &st, nil
}
