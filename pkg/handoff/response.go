package handoff

import (
	"time"

	"handoff/pkg/document"
)

const (
	StatusSuccess      = "success"
	StatusError        = "error"
	StatusAcknowledged = "acknowledged"
	StatusReceived     = "received"

	responseSuffix = "_response"
)

// Result is the payload of a Response.
type Result struct {
	Status    string `yaml:"status"`
	Message   string `yaml:"message"`
	Path      string `yaml:"path,omitempty"`
	Timestamp string `yaml:"timestamp,omitempty"`
}

// Response is the reply written for each processed Message.
type Response struct {
	ID      string `yaml:"id"`
	From    string `yaml:"from"`
	For     string `yaml:"for"`
	Action  string `yaml:"action"`
	Payload Result `yaml:"payload"`
	// Body becomes the free text after the front matter.
	Body string `yaml:"-"`
}

// BuildResponse addresses result back to the sender of msg.
func BuildResponse(msg Message, result Result, now time.Time) Response {
	from := msg.For
	if from == "" {
		from = PeerResponder
	}
	to := msg.From
	if to == "" {
		to = PeerRequester
	}

	return Response{
		ID:      timestamp(now),
		From:    from,
		For:     to,
		Action:  msg.Action + responseSuffix,
		Payload: result,
	}
}

// Render serializes the response as a handoff document. An empty Body is
// replaced by "Response to <action>".
func (r Response) Render() ([]byte, error) {
	body := r.Body
	if body == "" {
		body = "Response to " + r.Action
	}
	return document.Render(r, body)
}
