package ui

import (
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/smarchetti/ticketdesk/pkg/autocomplete"
	"github.com/smarchetti/ticketdesk/pkg/cascade"
	"github.com/smarchetti/ticketdesk/pkg/model"
)

// Interface checks for the engine-side control surfaces.
var (
	_ cascade.Control      = (*Selector)(nil)
	_ autocomplete.Control = (*Selector)(nil)
)

// SelectorEvent describes what a key press did to a selector.
type SelectorEvent int

const (
	EventNone SelectorEvent = iota
	// EventTextChanged fires when the typed text changed.
	EventTextChanged
	// EventSelected fires when a candidate was confirmed with enter.
	EventSelected
)

const maxDropdownItems = 6

// Selector is a single-field selection control: a text input with a
// dropdown of candidate display values. Typing narrows the list
// through an attached autocomplete filter; the fuzzy match only moves
// the cursor to the most likely candidate.
//
// The filter's debounce timer fires on its own goroutine, so all
// state shared with it is guarded by a mutex.
type Selector struct {
	field model.FieldType
	label string
	theme Theme

	mu         sync.Mutex
	input      textinput.Model
	candidates []string
	index      int
	open       bool
	enabled    bool
	selected   string
	width      int
}

// NewSelector creates a disabled selector for a field. It stays
// disabled until candidates arrive.
func NewSelector(field model.FieldType, label string, theme Theme) *Selector {
	ti := textinput.New()
	ti.Placeholder = "Caricamento..."
	ti.CharLimit = 128
	ti.Width = 38

	return &Selector{
		field: field,
		label: label,
		theme: theme,
		input: ti,
		width: 44,
	}
}

// Field returns the field type this selector edits.
func (s *Selector) Field() model.FieldType {
	return s.field
}

// Label returns the human-readable label.
func (s *Selector) Label() string {
	return s.label
}

// SelectedDisplay returns the confirmed display value.
func (s *Selector) SelectedDisplay() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Text returns the current typed text.
func (s *Selector) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input.Value()
}

// SetText replaces the typed text and marks it as the confirmed
// selection. Used for programmatic resets, not for user typing.
func (s *Selector) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input.SetValue(text)
	s.selected = text
	s.open = false
	s.index = 0
}

// SetCandidates replaces the visible candidate list. The typed text is
// left alone; the cursor jumps to the closest match for it.
func (s *Selector) SetCandidates(items []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = append([]string(nil), items...)
	s.index = s.bestMatchLocked()
}

// SetEnabled toggles whether the selector accepts input.
func (s *Selector) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
	if !enabled {
		s.open = false
		s.input.Blur()
	}
}

// Enabled reports whether the selector accepts input.
func (s *Selector) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// SetPlaceholder sets the ghost text shown while the input is empty
// and clears any stale selection.
func (s *Selector) SetPlaceholder(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input.Placeholder = text
	s.input.SetValue("")
	s.selected = ""
}

// SetWidth sets the rendered width of the control.
func (s *Selector) SetWidth(width int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if width < 24 {
		width = 24
	}
	s.width = width
	s.input.Width = width - 6
}

// Focus gives the selector keyboard focus.
func (s *Selector) Focus() tea.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input.Focus()
	return textinput.Blink
}

// Blur removes keyboard focus and closes the dropdown.
func (s *Selector) Blur() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input.Blur()
	s.open = false
}

// Focused reports whether the selector has keyboard focus.
func (s *Selector) Focused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input.Focused()
}

// Open reports whether the dropdown is showing.
func (s *Selector) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Update handles one key press. Navigation and confirmation are
// handled here; everything else flows into the text input.
func (s *Selector) Update(msg tea.KeyMsg) (SelectorEvent, tea.Cmd) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return EventNone, nil
	}

	switch msg.String() {
	case "down":
		if !s.open {
			s.open = true
			return EventNone, nil
		}
		if s.index < len(s.candidates)-1 {
			s.index++
		}
		return EventNone, nil
	case "up":
		if s.open && s.index > 0 {
			s.index--
		}
		return EventNone, nil
	case "enter":
		if !s.open {
			s.open = true
			return EventNone, nil
		}
		if len(s.candidates) == 0 {
			return EventNone, nil
		}
		if s.index >= len(s.candidates) {
			s.index = len(s.candidates) - 1
		}
		s.selected = s.candidates[s.index]
		s.input.SetValue(s.selected)
		s.open = false
		return EventSelected, nil
	case "esc":
		if s.open {
			s.open = false
			s.input.SetValue(s.selected)
			return EventNone, nil
		}
		return EventNone, nil
	}

	before := s.input.Value()
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	if s.input.Value() != before {
		s.open = true
		s.index = s.bestMatchLocked()
		return EventTextChanged, cmd
	}
	return EventNone, cmd
}

// bestMatchLocked returns the candidate index closest to the typed
// text, or 0. Callers hold s.mu.
func (s *Selector) bestMatchLocked() int {
	text := strings.TrimSpace(s.input.Value())
	if text == "" || len(s.candidates) == 0 {
		return 0
	}
	matches := fuzzy.Find(text, s.candidates)
	if len(matches) == 0 {
		return 0
	}
	return matches[0].Index
}

// View renders the selector. focused controls the border accent.
func (s *Selector) View(focused bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.theme
	var b strings.Builder

	labelStyle := t.Renderer.NewStyle().Foreground(t.Subtext)
	if focused {
		labelStyle = t.Renderer.NewStyle().Foreground(t.Primary).Bold(true)
	}
	b.WriteString(labelStyle.Render(s.label))
	b.WriteString("\n")

	borderColor := t.Border
	if focused {
		borderColor = t.Primary
	}
	inputStyle := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(s.width - 2)

	if s.enabled {
		b.WriteString(inputStyle.Render(s.input.View()))
	} else {
		ghost := t.Renderer.NewStyle().Foreground(t.Subtext).Faint(true).
			Render(s.input.Placeholder)
		b.WriteString(inputStyle.BorderForeground(t.Border).Render(ghost))
	}

	if s.open && s.enabled {
		b.WriteString("\n")
		b.WriteString(s.dropdownLocked())
	}

	return b.String()
}

func (s *Selector) dropdownLocked() string {
	t := s.theme

	if len(s.candidates) == 0 {
		return t.Renderer.NewStyle().Foreground(t.Subtext).Italic(true).
			Render("  Nessun valore")
	}

	start := 0
	if s.index >= maxDropdownItems {
		start = s.index - maxDropdownItems + 1
	}
	end := start + maxDropdownItems
	if end > len(s.candidates) {
		end = len(s.candidates)
	}

	var lines []string
	for i := start; i < end; i++ {
		item := runewidth.Truncate(s.candidates[i], s.width-4, "…")
		if i == s.index {
			lines = append(lines, t.Renderer.NewStyle().
				Foreground(t.Primary).Bold(true).Render("▸ "+item))
		} else {
			lines = append(lines, t.Renderer.NewStyle().
				Foreground(t.Text).Render("  "+item))
		}
	}
	if end < len(s.candidates) {
		lines = append(lines, t.Renderer.NewStyle().Foreground(t.Subtext).Italic(true).
			Render("  … altri "+strconv.Itoa(len(s.candidates)-end)))
	}
	return strings.Join(lines, "\n")
}
