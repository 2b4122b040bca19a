package handoff

import (
	"errors"
	"fmt"
	"time"

	"handoff/pkg/document"
)

const (
	ActionAddFile = "add_file"
	ActionRunTask = "run_task"
	ActionMessage = "message"
	ActionUnknown = "unknown"

	// Sender tags used when a message does not carry its own.
	PeerRequester = "cc"
	PeerResponder = "jules"

	defaultTask    = "No task specified"
	defaultContent = "Empty message"
)

// Message is one inbound handoff request.
type Message struct {
	ID     string
	From   string
	For    string
	Action string
	// Payload is usually a map[string]any; any other shape is rejected by Request.
	Payload any
	Body    string
}

// MessageFromDocument builds a Message from a parsed document. Documents
// without front matter become a plain "message" action carrying the raw text.
func MessageFromDocument(doc document.Document, now time.Time) Message {
	if !doc.HasFrontMatter {
		return Message{
			ID:      timestamp(now),
			From:    PeerRequester,
			For:     PeerResponder,
			Action:  ActionMessage,
			Payload: map[string]any{"content": doc.Body},
		}
	}

	msg := Message{
		ID:     stringField(doc.Fields, "id"),
		From:   stringField(doc.Fields, "from"),
		For:    stringField(doc.Fields, "for"),
		Action: ActionUnknown,
		Body:   doc.Body,
	}
	if raw, ok := doc.Fields["action"]; ok && raw != nil {
		msg.Action = scalarString(raw)
	}

	msg.Payload = map[string]any{}
	if raw, ok := doc.Fields["payload"]; ok && raw != nil {
		msg.Payload = raw
	}

	return msg
}

// Request is the closed set of actions a Message can carry.
type Request interface {
	actionName() string
}

// AddFile writes Contents to Path under the workspace. A nil Contents means
// the field was absent.
type AddFile struct {
	Path     string
	Contents *string
}

// RunTask acknowledges a task without running it.
type RunTask struct {
	Task string
}

// Note acknowledges free text from payload.content or the document body.
type Note struct {
	Content string
}

// UnknownAction carries an action name no handler recognizes.
type UnknownAction struct {
	Name string
}

func (AddFile) actionName() string         { return ActionAddFile }
func (RunTask) actionName() string         { return ActionRunTask }
func (Note) actionName() string            { return ActionMessage }
func (u UnknownAction) actionName() string { return u.Name }

var errPayloadShape = errors.New("payload must be a mapping")

// Request decodes the action-specific payload.
func (m Message) Request() (Request, error) {
	switch m.Action {
	case ActionAddFile, ActionRunTask, ActionMessage:
	default:
		return UnknownAction{Name: m.Action}, nil
	}

	payload, ok := m.Payload.(map[string]any)
	if !ok {
		return nil, errPayloadShape
	}

	switch m.Action {
	case ActionAddFile:
		return decodeAddFile(payload)
	case ActionRunTask:
		task := defaultTask
		if raw, ok := payload["task"]; ok && raw != nil {
			task = scalarString(raw)
		}
		return RunTask{Task: task}, nil
	default:
		content, err := noteContent(payload, m.Body)
		if err != nil {
			return nil, err
		}
		return Note{Content: content}, nil
	}
}

// noteContent prefers payload.content, then the document body.
func noteContent(payload map[string]any, body string) (string, error) {
	if raw, ok := payload["content"]; ok && raw != nil {
		content, isString := raw.(string)
		if !isString {
			return "", fmt.Errorf("payload.content must be a string, got %T", raw)
		}
		return content, nil
	}
	if body != "" {
		return body, nil
	}
	return defaultContent, nil
}

func decodeAddFile(payload map[string]any) (AddFile, error) {
	var req AddFile

	if raw, ok := payload["path"]; ok && raw != nil {
		path, isString := raw.(string)
		if !isString {
			return AddFile{}, fmt.Errorf("payload.path must be a string, got %T", raw)
		}
		req.Path = path
	}

	if raw, ok := payload["contents"]; ok && raw != nil {
		contents, isString := raw.(string)
		if !isString {
			return AddFile{}, fmt.Errorf("payload.contents must be a string, got %T", raw)
		}
		req.Contents = &contents
	}

	return req, nil
}

func stringField(fields map[string]any, key string) string {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return ""
	}
	return scalarString(raw)
}

func scalarString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
