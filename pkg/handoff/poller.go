package handoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"handoff/pkg/config"
	"handoff/pkg/document"
	"handoff/pkg/files"
	"handoff/pkg/metrics"
	"handoff/pkg/workspace"
)

// Poller consumes one inbound document per cycle from the shared directory.
//
// A parsed message is always answered and archived, even when its handler
// fails or the response cannot be written. A document that cannot be read or
// parsed is left in place and retried on the next cycle.
type Poller struct {
	layout     workspace.Layout
	files      *files.Service
	dispatcher *Dispatcher
	metrics    *metrics.Recorder
	log        *slog.Logger
	now        func() time.Time
}

// Option customizes a Poller during construction.
type Option func(*Poller)

// WithClock overrides the clock used for ids, timestamps and archive names.
func WithClock(clock func() time.Time) Option {
	return func(p *Poller) {
		p.now = clock
	}
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(log *slog.Logger) Option {
	return func(p *Poller) {
		p.log = log
	}
}

// WithMetrics records cycle outcomes on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(p *Poller) {
		p.metrics = r
	}
}

// New resolves the configured workspace, which must exist, and creates its
// shared directory.
func New(cfg *config.Config, opts ...Option) (*Poller, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	guard, err := workspace.NewGuard(cfg.Workspace)
	if err != nil {
		return nil, err
	}

	p := &Poller{
		layout: workspace.NewLayout(guard.Root()),
		files:  files.NewService(guard),
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With("component", "handoff.poller")
	p.dispatcher = NewDispatcher(p.files, p.now)

	if err := p.layout.EnsureSharedDir(); err != nil {
		return nil, err
	}

	return p, nil
}

// Layout returns the handoff file locations.
func (p *Poller) Layout() workspace.Layout {
	return p.layout
}

// PollOnce runs a single cycle and reports whether a message was consumed.
// The only error it returns is a failure to archive a consumed message.
func (p *Poller) PollOnce(ctx context.Context) (bool, error) {
	exists, err := p.files.Exists(p.layout.InputPath)
	if err != nil {
		p.log.Error("Failed to check for message", "error", err)
		p.metrics.ObserveCycle(metrics.OutcomeMalformed)
		return false, nil
	}
	if !exists {
		p.metrics.ObserveCycle(metrics.OutcomeIdle)
		return false, nil
	}

	msg, err := p.readMessage(ctx)
	if err != nil {
		p.log.Error("Failed to read message", "path", p.layout.InputPath, "error", err)
		p.metrics.ObserveCycle(metrics.OutcomeMalformed)
		return false, nil
	}

	p.log.Info("Processing message", "action", msg.Action, "id", msg.ID)
	result := p.dispatcher.Dispatch(ctx, msg)
	response := BuildResponse(msg, result, p.now())
	p.metrics.ObserveResponse(actionLabel(msg.Action), result.Status)

	written := true
	if err := p.writeResponse(ctx, response); err != nil {
		// The message is still archived below, so this response is lost.
		written = false
		p.log.Error("Failed to write response", "path", p.layout.OutputPath, "error", err)
	}

	archivePath, err := p.archive(ctx)
	if err != nil {
		p.metrics.ObserveCycle(metrics.OutcomeFailed)
		return false, err
	}

	p.metrics.ObserveCycle(metrics.OutcomeProcessed)
	p.metrics.MarkProcessed(p.now())
	p.log.Info("Message archived", "archive", filepath.Base(archivePath), "status", result.Status, "response_written", written)
	return true, nil
}

// Run polls, then sleeps interval, until ctx is cancelled. Cancellation is
// a clean stop; an archive failure ends the loop with that error.
func (p *Poller) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("poll interval must be greater than zero")
	}

	p.log.Info("Starting handoff poller", "interval", interval, "shared_dir", p.layout.SharedDir)

	for {
		if _, err := p.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				p.log.Info("Poller stopped")
				return nil
			}
			p.log.Error("Poller crashed", "error", err)
			return err
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.log.Info("Poller stopped")
			return nil
		case <-timer.C:
		}
	}
}

func (p *Poller) readMessage(ctx context.Context) (Message, error) {
	read, err := p.files.ReadFile(ctx, p.layout.InputPath)
	if err != nil {
		return Message{}, err
	}

	doc, err := document.Parse([]byte(read.Content))
	if err != nil {
		return Message{}, err
	}

	return MessageFromDocument(doc, p.now()), nil
}

func (p *Poller) writeResponse(ctx context.Context, response Response) error {
	content, err := response.Render()
	if err != nil {
		return err
	}

	if _, err := p.files.WriteFile(ctx, p.layout.OutputPath, string(content)); err != nil {
		return err
	}
	return nil
}

// archive renames the input away. An input that already vanished is not an error.
func (p *Poller) archive(ctx context.Context) (string, error) {
	archivePath := p.layout.ArchivePath(p.now())

	exists, err := p.files.Exists(p.layout.InputPath)
	if err != nil {
		return "", fmt.Errorf("archive message: %w", err)
	}
	if !exists {
		return archivePath, nil
	}

	if err := p.files.Rename(ctx, p.layout.InputPath, archivePath); err != nil {
		return "", fmt.Errorf("archive message: %w", err)
	}
	return archivePath, nil
}

func actionLabel(action string) string {
	switch action {
	case ActionAddFile, ActionRunTask, ActionMessage:
		return action
	default:
		return ActionUnknown
	}
}
