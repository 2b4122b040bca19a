package files

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"handoff/pkg/workspace"
)

const (
	MaxWriteBytes        = 1024 * 1024
	MaxOperationDuration = 10 * time.Second
)

// Service executes bounded filesystem operations inside a workspace.
type Service struct {
	guard                *workspace.Guard
	maxWriteBytes        int
	maxOperationDuration time.Duration
}

type ReadResult struct {
	Path    string
	Content string
	Bytes   int
}

type WriteResult struct {
	Path         string
	BytesWritten int
}

// NewService creates a workspace-bounded filesystem service.
func NewService(guard *workspace.Guard) *Service {
	return &Service{
		guard:                guard,
		maxWriteBytes:        MaxWriteBytes,
		maxOperationDuration: MaxOperationDuration,
	}
}

// Guard exposes the workspace guard the service resolves paths with.
func (s *Service) Guard() *workspace.Guard {
	return s.guard
}

// Exists reports whether path names an existing regular file.
func (s *Service) Exists(path string) (bool, error) {
	resolvedPath, err := s.guard.ResolvePath(path)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(resolvedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, workspace.NormalizeIOError(err, "stat failed")
	}

	return !info.IsDir(), nil
}

// ReadFile returns the whole file as read. Size and content are not checked,
// so every inbound document reaches the parser.
func (s *Service) ReadFile(ctx context.Context, path string) (ReadResult, error) {
	ctx, cancel := s.withOperationContext(ctx)
	defer cancel()

	resolvedPath, err := s.guard.ResolvePath(path)
	if err != nil {
		return ReadResult{}, err
	}

	if err := checkContext(ctx); err != nil {
		return ReadResult{}, err
	}

	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		return ReadResult{}, workspace.NormalizeIOError(err, "read failed")
	}

	return ReadResult{
		Path:    resolvedPath,
		Content: string(content),
		Bytes:   len(content),
	}, nil
}

// WriteFile replaces path with content, creating parent directories as needed.
func (s *Service) WriteFile(ctx context.Context, path string, content string) (WriteResult, error) {
	ctx, cancel := s.withOperationContext(ctx)
	defer cancel()

	if len(content) > s.maxWriteBytes {
		return WriteResult{}, workspace.NewError(workspace.ErrorIO, fmt.Sprintf("content exceeds max_write_bytes (%d)", s.maxWriteBytes))
	}
	if err := checkContext(ctx); err != nil {
		return WriteResult{}, err
	}

	resolvedPath, err := s.guard.ResolvePath(path)
	if err != nil {
		return WriteResult{}, err
	}

	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(resolvedPath); statErr == nil {
		if info.IsDir() {
			return WriteResult{}, workspace.NewError(workspace.ErrorInvalidPath, "target is a directory")
		}
		mode = info.Mode().Perm()
	} else if !os.IsNotExist(statErr) {
		return WriteResult{}, workspace.NormalizeIOError(statErr, "stat failed")
	}

	if err := os.MkdirAll(filepath.Dir(resolvedPath), 0o755); err != nil {
		return WriteResult{}, workspace.NormalizeIOError(err, "create parent directory failed")
	}

	if err := s.guard.EnsureContained(resolvedPath); err != nil {
		return WriteResult{}, err
	}

	if err := atomicWrite(resolvedPath, []byte(content), mode); err != nil {
		return WriteResult{}, workspace.NormalizeIOError(err, "write failed")
	}

	return WriteResult{Path: resolvedPath, BytesWritten: len(content)}, nil
}

// Rename moves from onto to, replacing any file already at to.
func (s *Service) Rename(ctx context.Context, from string, to string) error {
	ctx, cancel := s.withOperationContext(ctx)
	defer cancel()

	if err := checkContext(ctx); err != nil {
		return err
	}

	source, err := s.guard.ResolvePath(from)
	if err != nil {
		return err
	}
	target, err := s.guard.ResolvePath(to)
	if err != nil {
		return err
	}

	if err := os.Rename(source, target); err != nil {
		return workspace.NormalizeIOError(err, "rename failed")
	}

	return nil
}

func (s *Service) withOperationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}

	if s.maxOperationDuration <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, s.maxOperationDuration)
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return workspace.NewError(workspace.ErrorIO, err.Error())
	}

	return nil
}

func atomicWrite(path string, data []byte, mode os.FileMode) error {
	parentDir := filepath.Dir(path)
	tmp, err := os.CreateTemp(parentDir, ".handoff-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		_ = tmp.Close()
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	cleanup = false
	return nil
}
