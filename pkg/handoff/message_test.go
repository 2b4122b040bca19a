package handoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handoff/pkg/document"
)

var fixedNow = time.Date(2026, 10, 16, 14, 30, 5, 123000000, time.UTC)

func TestMessageFromDocumentDefaults(t *testing.T) {
	doc, err := document.Parse([]byte("---\nid: abc\n---\nnotes"))
	require.NoError(t, err)

	msg := MessageFromDocument(doc, fixedNow)

	assert.Equal(t, "abc", msg.ID)
	assert.Equal(t, ActionUnknown, msg.Action)
	assert.Equal(t, map[string]any{}, msg.Payload)
	assert.Equal(t, "notes", msg.Body)
}

func TestMessageFromDocumentWithoutFrontMatter(t *testing.T) {
	doc, err := document.Parse([]byte("hello there"))
	require.NoError(t, err)

	msg := MessageFromDocument(doc, fixedNow)

	assert.Equal(t, "2026-10-16T14:30:05.123Z", msg.ID)
	assert.Equal(t, PeerRequester, msg.From)
	assert.Equal(t, PeerResponder, msg.For)
	assert.Equal(t, ActionMessage, msg.Action)
	assert.Equal(t, map[string]any{"content": "hello there"}, msg.Payload)
}

func TestMessageFromDocumentStringifiesScalars(t *testing.T) {
	doc, err := document.Parse([]byte("---\nid: 20261016\naction: run_task\n---\n"))
	require.NoError(t, err)

	msg := MessageFromDocument(doc, fixedNow)
	assert.Equal(t, "20261016", msg.ID)
}

func TestRequestVariants(t *testing.T) {
	contents := "body"
	empty := ""

	tests := []struct {
		name    string
		msg     Message
		want    Request
		wantErr bool
	}{
		{
			name: "add file",
			msg:  Message{Action: ActionAddFile, Payload: map[string]any{"path": "a.txt", "contents": "body"}},
			want: AddFile{Path: "a.txt", Contents: &contents},
		},
		{
			name: "add file empty contents",
			msg:  Message{Action: ActionAddFile, Payload: map[string]any{"path": "a.txt", "contents": ""}},
			want: AddFile{Path: "a.txt", Contents: &empty},
		},
		{
			name: "add file null contents",
			msg:  Message{Action: ActionAddFile, Payload: map[string]any{"path": "a.txt", "contents": nil}},
			want: AddFile{Path: "a.txt"},
		},
		{
			name:    "add file numeric contents",
			msg:     Message{Action: ActionAddFile, Payload: map[string]any{"path": "a.txt", "contents": 12}},
			wantErr: true,
		},
		{
			name: "run task default",
			msg:  Message{Action: ActionRunTask, Payload: map[string]any{}},
			want: RunTask{Task: "No task specified"},
		},
		{
			name: "message default",
			msg:  Message{Action: ActionMessage, Payload: map[string]any{}},
			want: Note{Content: "Empty message"},
		},
		{
			name: "message falls back to body",
			msg:  Message{Action: ActionMessage, Payload: map[string]any{}, Body: "Hello"},
			want: Note{Content: "Hello"},
		},
		{
			name:    "message numeric content",
			msg:     Message{Action: ActionMessage, Payload: map[string]any{"content": 42}, Body: "Hello"},
			wantErr: true,
		},
		{
			name: "unknown ignores payload shape",
			msg:  Message{Action: "deploy", Payload: "not a map"},
			want: UnknownAction{Name: "deploy"},
		},
		{
			name:    "known action with scalar payload",
			msg:     Message{Action: ActionRunTask, Payload: "not a map"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.msg.Request()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildResponseSwapsPeers(t *testing.T) {
	msg := Message{ID: "1", From: "cc", For: "jules", Action: ActionMessage}

	resp := BuildResponse(msg, Result{Status: StatusReceived}, fixedNow)

	assert.Equal(t, "message_response", resp.Action)
	assert.Equal(t, "jules", resp.From)
	assert.Equal(t, "cc", resp.For)
	assert.Equal(t, "2026-10-16T14:30:05.123Z", resp.ID)
}

func TestBuildResponseDefaultsPeers(t *testing.T) {
	resp := BuildResponse(Message{Action: ActionRunTask}, Result{}, fixedNow)

	assert.Equal(t, PeerResponder, resp.From)
	assert.Equal(t, PeerRequester, resp.For)
}

func TestResponseRoundTrip(t *testing.T) {
	resp := BuildResponse(
		Message{From: "cc", For: "jules", Action: ActionAddFile},
		Result{Status: StatusSuccess, Message: "File created: x", Path: "/ws/x"},
		fixedNow,
	)

	out, err := resp.Render()
	require.NoError(t, err)

	doc, err := document.Parse(out)
	require.NoError(t, err)
	require.True(t, doc.HasFrontMatter)

	parsed := MessageFromDocument(doc, time.Time{})
	assert.Equal(t, resp.ID, parsed.ID)
	assert.Equal(t, resp.From, parsed.From)
	assert.Equal(t, resp.For, parsed.For)
	assert.Equal(t, resp.Action, parsed.Action)
	assert.Equal(t, "Response to add_file_response", parsed.Body)

	payload, ok := parsed.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, payload["status"])
	assert.Equal(t, "/ws/x", payload["path"])
}

func TestResponseRenderKeepsExplicitBody(t *testing.T) {
	resp := Response{ID: "1", Action: "run_task_response", Body: "custom text"}

	out, err := resp.Render()
	require.NoError(t, err)

	doc, err := document.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "custom text", doc.Body)
	_, hasBody := doc.Fields["body"]
	assert.False(t, hasBody)
}
