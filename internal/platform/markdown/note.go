package markdown

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---"

// Note is a markdown document with a YAML frontmatter header.
type Note struct {
	Meta map[string]any
	Body string
}

// Render writes the frontmatter between fences followed by a blank line and
// the body. yaml.v3 sorts map keys, so output is stable for equal notes.
func (n Note) Render() (string, error) {
	var b strings.Builder
	b.WriteString(fence + "\n")
	if len(n.Meta) > 0 {
		raw, err := yaml.Marshal(n.Meta)
		if err != nil {
			return "", fmt.Errorf("encode note header: %w", err)
		}
		b.Write(raw)
	}
	b.WriteString(fence + "\n\n")
	b.WriteString(strings.TrimLeft(n.Body, "\n"))
	return b.String(), nil
}
