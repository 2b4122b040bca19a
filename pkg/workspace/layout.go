package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	SharedDirName  = "shared"
	InputFileName  = "claude-to-jules-message.md"
	OutputFileName = "jules-to-cc.md"
	SchemaFileName = "schema.md"

	archivePrefix = "processed-"
	archiveLayout = "20060102-150405"
)

// Layout names the handoff files under a workspace's shared directory.
type Layout struct {
	SharedDir  string
	InputPath  string
	OutputPath string
	// SchemaPath is a convention for the peer process; nothing here reads it.
	SchemaPath string
}

// NewLayout derives the handoff file paths for a workspace root.
func NewLayout(root string) Layout {
	shared := filepath.Join(root, SharedDirName)
	return Layout{
		SharedDir:  shared,
		InputPath:  filepath.Join(shared, InputFileName),
		OutputPath: filepath.Join(shared, OutputFileName),
		SchemaPath: filepath.Join(shared, SchemaFileName),
	}
}

// ArchivePath returns processed-YYYYMMDD-HHMMSS.md for t in local time.
// Two archives in the same second share a name.
func (l Layout) ArchivePath(t time.Time) string {
	return filepath.Join(l.SharedDir, ArchiveName(t))
}

// ArchiveName is the base name used by ArchivePath.
func ArchiveName(t time.Time) string {
	return archivePrefix + t.Local().Format(archiveLayout) + ".md"
}

// EnsureSharedDir creates the shared directory when missing.
func (l Layout) EnsureSharedDir() error {
	if err := os.MkdirAll(l.SharedDir, 0o755); err != nil {
		return fmt.Errorf("create shared directory: %w", err)
	}
	return nil
}
