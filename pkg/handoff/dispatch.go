package handoff

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"handoff/pkg/files"
)

// Dispatcher turns a Message into a Result. It never fails: every error,
// including a panicking handler, becomes a Result with StatusError.
type Dispatcher struct {
	files *files.Service
	now   func() time.Time
}

// NewDispatcher builds a dispatcher writing add_file targets through svc.
func NewDispatcher(svc *files.Service, now func() time.Time) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{files: svc, now: now}
}

// Dispatch runs the handler for msg.Action.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) (result Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = processingError(msg.Action, fmt.Errorf("%v", recovered))
		}
	}()

	req, err := msg.Request()
	if err != nil {
		return processingError(msg.Action, err)
	}

	result, err = d.handle(ctx, req)
	if err != nil {
		return processingError(msg.Action, err)
	}
	return result
}

func (d *Dispatcher) handle(ctx context.Context, req Request) (Result, error) {
	switch r := req.(type) {
	case AddFile:
		return d.addFile(ctx, r)
	case RunTask:
		return Result{
			Status:    StatusAcknowledged,
			Message:   "Task received: " + r.Task,
			Timestamp: timestamp(d.now()),
		}, nil
	case Note:
		return Result{
			Status:    StatusReceived,
			Message:   fmt.Sprintf("Message acknowledged: %d characters", utf8.RuneCountInString(r.Content)),
			Timestamp: timestamp(d.now()),
		}, nil
	case UnknownAction:
		return Result{Status: StatusError, Message: "Unknown action: " + r.Name}, nil
	default:
		return Result{}, fmt.Errorf("unhandled request %T", req)
	}
}

func (d *Dispatcher) addFile(ctx context.Context, req AddFile) (Result, error) {
	if req.Path == "" || req.Contents == nil {
		return Result{Status: StatusError, Message: "Missing path or contents"}, nil
	}

	written, err := d.files.WriteFile(ctx, req.Path, *req.Contents)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Status:  StatusSuccess,
		Message: "File created: " + req.Path,
		Path:    written.Path,
	}, nil
}

func processingError(action string, err error) Result {
	return Result{
		Status:  StatusError,
		Message: fmt.Sprintf("Error processing %s: %v", action, err),
	}
}
