// Package logging wires slog-based logging for the attrition engine:
// console plus session log file, with an optional OTel bridge.
package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath builds a session log file path using OS-appropriate separators.
func LogFilePath(logsDir, moduleName string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", moduleName, sessionStart.Format("20060102_150405")),
	)
}
