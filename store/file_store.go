package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	zlog "github.com/rs/zerolog/log"

	"winnow/common"
	"winnow/editlog"
)

// FileStore keeps one JSON record per task at
// <baseDir>/<taskId>/context_edits.json.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a FileStore rooted at the given directory.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

// NewDefaultFileStore creates a FileStore under the winnow state home.
func NewDefaultFileStore() (*FileStore, error) {
	stateHome, err := common.GetWinnowStateHome()
	if err != nil {
		return nil, err
	}
	return NewFileStore(filepath.Join(stateHome, "tasks")), nil
}

func (s *FileStore) taskFilePath(taskId string) string {
	return filepath.Join(s.baseDir, taskId, EditLogFileName)
}

func (s *FileStore) Load(ctx context.Context, taskId string) (*editlog.EditLog, error) {
	if taskId == "" {
		return nil, errors.New("taskId cannot be empty")
	}

	data, err := os.ReadFile(s.taskFilePath(taskId))
	if err != nil {
		if os.IsNotExist(err) {
			return editlog.New(), nil
		}
		return nil, fmt.Errorf("failed to read edit log for task %s: %w", taskId, err)
	}

	log := editlog.New()
	if err := json.Unmarshal(data, log); err != nil {
		zlog.Warn().Err(err).Str("taskId", taskId).Msg("stored edit log could not be decoded, starting empty")
		return editlog.New(), nil
	}
	return log, nil
}

func (s *FileStore) Save(ctx context.Context, taskId string, log *editlog.EditLog) error {
	if taskId == "" {
		return errors.New("taskId cannot be empty")
	}

	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to marshal edit log for task %s: %w", taskId, err)
	}

	taskDir := filepath.Join(s.baseDir, taskId)
	if err := os.MkdirAll(taskDir, 0755); err != nil {
		return fmt.Errorf("failed to create task directory for %s: %w", taskId, err)
	}
	if err := os.WriteFile(s.taskFilePath(taskId), data, 0644); err != nil {
		return fmt.Errorf("failed to write edit log for task %s: %w", taskId, err)
	}
	return nil
}
