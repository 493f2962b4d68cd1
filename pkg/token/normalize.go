package token

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Placeholder strings returned instead of propagating per-token
// failures. A single malformed field must never abort resolution of
// an entire value set.
const (
	PlaceholderObject = "[object]"
	PlaceholderError  = "[format error]"
)

// dateLayouts are the wire formats recognized as dates. Matching
// scalars render in day-first form.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02",
}

const displayDateLayout = "02/01/2006"

// Normalizer converts tokens into canonical display strings.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer. A nil logger falls back to
// slog.Default().
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize renders a token as its canonical display string. It never
// panics: any internal failure yields PlaceholderError and a logged
// warning.
func (n *Normalizer) Normalize(tok Token) (out string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("token normalization failed", "panic", r)
			out = PlaceholderError
		}
	}()
	return n.normalize(tok)
}

func (n *Normalizer) normalize(tok Token) string {
	switch t := tok.(type) {
	case Null:
		return ""
	case Scalar:
		return n.scalar(t)
	case Reference:
		return n.reference(t)
	case WorkspaceRef:
		return n.workspaceRef(t)
	case Array:
		return n.array(t)
	case Document:
		return strings.TrimSpace(n.docText(t.Root))
	}
	return ""
}

func (n *Normalizer) scalar(s Scalar) string {
	switch s.Kind {
	case KindString:
		if formatted, ok := formatDate(s.Str); ok {
			return formatted
		}
		return s.Str
	case KindNumber:
		return strconv.FormatFloat(s.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(s.Bool)
	}
	return ""
}

// reference picks the first non-empty descriptive field in a fixed
// priority order.
func (n *Normalizer) reference(r Reference) string {
	for _, candidate := range []string{r.DisplayName, r.Name, r.Value, r.Email, r.Key} {
		if candidate != "" {
			return candidate
		}
	}
	return PlaceholderObject
}

func (n *Normalizer) workspaceRef(w WorkspaceRef) string {
	if w.ObjectID != "" {
		return "ID: " + w.ObjectID
	}
	if idx := strings.LastIndex(w.ID, ":"); idx >= 0 {
		return "Ref: " + w.ID[idx+1:]
	}
	return PlaceholderObject
}

func (n *Normalizer) array(a Array) string {
	switch len(a.Items) {
	case 0:
		return ""
	case 1:
		return n.normalize(a.Items[0])
	}
	parts := make([]string, 0, len(a.Items))
	for _, item := range a.Items {
		if s := n.normalize(item); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// docText walks the document depth-first, concatenating leaf text and
// inserting a newline after each paragraph node.
func (n *Normalizer) docText(node DocNode) string {
	var sb strings.Builder
	n.writeDocNode(&sb, node)
	return sb.String()
}

func (n *Normalizer) writeDocNode(sb *strings.Builder, node DocNode) {
	if node.Text != "" {
		sb.WriteString(node.Text)
	}
	for _, child := range node.Content {
		n.writeDocNode(sb, child)
	}
	if node.Type == "paragraph" {
		sb.WriteString("\n")
	}
}

func formatDate(s string) (string, bool) {
	if len(s) < 10 || s[4] != '-' {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(displayDateLayout), true
		}
	}
	return "", false
}

// NormalizeRaw decodes a raw JSON value and normalizes it in one
// step.
func (n *Normalizer) NormalizeRaw(v any) string {
	return n.Normalize(Decode(v))
}
