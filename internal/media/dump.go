package media

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DumpClip writes a finished clip under dir/debug for offline inspection.
func DumpClip(dir string, sessionID string, extension string, clip []byte) (string, error) {
	debugDir := filepath.Join(dir, "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return "", fmt.Errorf("create debug dir: %w", err)
	}
	if extension == "" {
		extension = "webm"
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("clip-%s-%s.%s", timestamp, sessionID, extension))
	if err := os.WriteFile(path, clip, 0o600); err != nil {
		return "", fmt.Errorf("write debug clip %q: %w", path, err)
	}
	return path, nil
}
