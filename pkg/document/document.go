// Package document reads and writes handoff documents: an optional YAML
// section fenced by "---" followed by free text.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Delimiter fences the structured section.
const Delimiter = "---"

// ErrMalformedFrontMatter indicates the fenced section is not a YAML mapping.
var ErrMalformedFrontMatter = errors.New("document: malformed front matter")

// Document is a parsed handoff file.
type Document struct {
	// Fields is nil when HasFrontMatter is false.
	Fields         map[string]any
	Body           string
	HasFrontMatter bool
}

// Parse splits content into its structured section and body.
//
// Content that does not open with the delimiter, or that has no closing
// delimiter, is returned whole as Body with HasFrontMatter unset. A fenced
// section that is not a YAML mapping is an error.
//
// The section ends at the second occurrence of the delimiter anywhere in the
// text, not only on a line of its own. A value containing "---" therefore
// truncates the section on re-parse.
func Parse(content []byte) (Document, error) {
	text := string(normalizeNewlines(content))
	if !strings.HasPrefix(text, Delimiter) {
		return Document{Body: string(content)}, nil
	}

	// parts[0] is whatever precedes the opening fence, always empty here.
	parts := strings.SplitN(text, Delimiter, 3)
	if len(parts) < 3 {
		return Document{Body: string(content)}, nil
	}

	section := strings.TrimSpace(parts[1])
	if section == "" {
		return Document{}, fmt.Errorf("%w: empty section", ErrMalformedFrontMatter)
	}

	var fields map[string]any
	if err := yaml.Unmarshal([]byte(section), &fields); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformedFrontMatter, err)
	}
	if fields == nil {
		return Document{}, fmt.Errorf("%w: section is not a mapping", ErrMalformedFrontMatter)
	}

	return Document{
		Fields:         fields,
		Body:           strings.TrimSpace(parts[2]),
		HasFrontMatter: true,
	}, nil
}

// Render writes fields as the structured section followed by a blank line and body.
func Render(fields any, body string) ([]byte, error) {
	var section bytes.Buffer
	enc := yaml.NewEncoder(&section)
	enc.SetIndent(2)
	if err := enc.Encode(fields); err != nil {
		return nil, fmt.Errorf("document: encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("document: encode front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(Delimiter + "\n")
	buf.Write(bytes.TrimRight(section.Bytes(), "\n"))
	buf.WriteString("\n" + Delimiter + "\n\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

func normalizeNewlines(content []byte) []byte {
	return bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
}
