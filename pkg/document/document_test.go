package document

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrontMatter(t *testing.T) {
	doc, err := Parse([]byte("---\naction: message\nfrom: cc\nfor: jules\npayload:\n  content: hi\n---\nHello\n"))
	require.NoError(t, err)

	assert.True(t, doc.HasFrontMatter)
	assert.Equal(t, "message", doc.Fields["action"])
	assert.Equal(t, "cc", doc.Fields["from"])
	assert.Equal(t, "jules", doc.Fields["for"])
	assert.Equal(t, map[string]any{"content": "hi"}, doc.Fields["payload"])
	assert.Equal(t, "Hello", doc.Body)
}

func TestParseSectionEndsAtFirstInlineDelimiter(t *testing.T) {
	doc, err := Parse([]byte("---\naction: a---b\n---\nbody"))
	require.NoError(t, err)

	assert.True(t, doc.HasFrontMatter)
	assert.Equal(t, map[string]any{"action": "a"}, doc.Fields)
	assert.Equal(t, "b\n---\nbody", doc.Body)
}

func TestParseVariants(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantFront   bool
		wantBody    string
		wantErr     bool
		wantFieldOK string
	}{
		{name: "plain text", input: "just words", wantBody: "just words"},
		{name: "single fence falls back", input: "---\naction: message\n", wantBody: "---\naction: message\n"},
		{name: "crlf", input: "---\r\naction: run_task\r\n---\r\nbody\r\n", wantFront: true, wantBody: "body", wantFieldOK: "action"},
		{name: "body keeps later fences", input: "---\naction: x\n---\nline\n---\nmore", wantFront: true, wantBody: "line\n---\nmore", wantFieldOK: "action"},
		{name: "empty body", input: "---\naction: x\n---\n", wantFront: true, wantBody: "", wantFieldOK: "action"},
		{name: "empty section", input: "---\n---\nbody", wantErr: true},
		{name: "list section", input: "---\n- a\n- b\n---\nbody", wantErr: true},
		{name: "broken yaml", input: "---\naction: [unclosed\n---\nbody", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.input))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedFrontMatter) {
					t.Fatalf("error = %v, want %v", err, ErrMalformedFrontMatter)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if doc.HasFrontMatter != tt.wantFront {
				t.Fatalf("HasFrontMatter = %v, want %v", doc.HasFrontMatter, tt.wantFront)
			}
			if doc.Body != tt.wantBody {
				t.Fatalf("Body = %q, want %q", doc.Body, tt.wantBody)
			}
			if tt.wantFieldOK != "" {
				if _, ok := doc.Fields[tt.wantFieldOK]; !ok {
					t.Fatalf("missing field %q in %v", tt.wantFieldOK, doc.Fields)
				}
			}
		})
	}
}

func TestRenderLayout(t *testing.T) {
	out, err := Render(map[string]any{"action": "run_task_response"}, "Response to run_task_response")
	require.NoError(t, err)

	assert.Equal(t, "---\naction: run_task_response\n---\n\nResponse to run_task_response", string(out))
}

func TestRenderThenParse(t *testing.T) {
	type envelope struct {
		ID      string         `yaml:"id"`
		Action  string         `yaml:"action"`
		Payload map[string]any `yaml:"payload"`
	}

	out, err := Render(envelope{
		ID:      "2026-10-16T08:30:00.123456789Z",
		Action:  "message_response",
		Payload: map[string]any{"status": "received"},
	}, "trailing text")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(out), "---\n"))

	doc, err := Parse(out)
	require.NoError(t, err)

	assert.Equal(t, "2026-10-16T08:30:00.123456789Z", doc.Fields["id"])
	assert.Equal(t, "message_response", doc.Fields["action"])
	assert.Equal(t, "trailing text", doc.Body)
}
