package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// GetWinnowStateHome returns a directory path for storing user-specific
// winnow state data (logs, per-task edit logs, etc). If needed, it also
// creates the necessary directories for storing state data according to the
// XDG spec. Can be overridden by setting the WINNOW_STATE_HOME environment
// variable.
func GetWinnowStateHome() (string, error) {
	winnowStateDir := os.Getenv("WINNOW_STATE_HOME")
	if winnowStateDir != "" {
		err := os.MkdirAll(winnowStateDir, 0755)
		if err != nil {
			return "", fmt.Errorf("failed to create winnow state directory from WINNOW_STATE_HOME: %w", err)
		}
		return winnowStateDir, nil
	}

	winnowStateDir = filepath.Join(xdg.StateHome, "winnow")
	err := os.MkdirAll(winnowStateDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create winnow state directory: %w", err)
	}
	return winnowStateDir, nil
}
