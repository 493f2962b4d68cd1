// Package valuemap maintains the reversible mapping between canonical
// display strings and the original API-native values backing a
// selection control.
package valuemap

import (
	"sort"

	"github.com/smarchetti/ticketdesk/pkg/model"
)

// Mapping is an ordered display→original mapping owned by exactly one
// selection control. It is rebuilt, never mutated in place, on every
// reload.
type Mapping struct {
	defaultLabel string
	order        []string
	byDisplay    map[string]string
}

// Build creates a mapping from resolved field values. The default
// label is always the first entry and maps to the empty string.
// Values are inserted sorted by display value; a display value that is
// already present is skipped, so the first writer wins. This silently
// collapses distinct originals that normalize to the same display
// string, a deliberate simplification.
func Build(values []model.FieldValue, defaultLabel string) *Mapping {
	m := &Mapping{
		defaultLabel: defaultLabel,
		order:        make([]string, 0, len(values)+1),
		byDisplay:    make(map[string]string, len(values)+1),
	}
	m.insert(defaultLabel, "")

	sorted := make([]model.FieldValue, len(values))
	copy(sorted, values)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DisplayValue < sorted[j].DisplayValue
	})

	for _, v := range sorted {
		if v.DisplayValue == "" {
			continue
		}
		m.insert(v.DisplayValue, v.Value)
	}
	return m
}

func (m *Mapping) insert(display, original string) {
	if _, exists := m.byDisplay[display]; exists {
		return
	}
	m.order = append(m.order, display)
	m.byDisplay[display] = original
}

// ToOriginal resolves a display value to its original API value. An
// unmapped display value is returned unchanged so freshly-typed text
// is never silently discarded.
func (m *Mapping) ToOriginal(display string) string {
	if original, ok := m.byDisplay[display]; ok {
		return original
	}
	return display
}

// ToDisplay resolves an original value back to its display value via
// a linear scan in insertion order. ok is false when no entry
// matches.
func (m *Mapping) ToDisplay(original string) (string, bool) {
	for _, display := range m.order {
		if m.byDisplay[display] == original {
			return display, true
		}
	}
	return "", false
}

// Contains reports whether display is a known display value.
func (m *Mapping) Contains(display string) bool {
	_, ok := m.byDisplay[display]
	return ok
}

// DisplayValues returns the candidate list in insertion order, the
// default label first.
func (m *Mapping) DisplayValues() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// DefaultLabel returns the "all" sentinel label.
func (m *Mapping) DefaultLabel() string {
	return m.defaultLabel
}

// Len returns the number of entries including the default sentinel.
func (m *Mapping) Len() int {
	return len(m.order)
}
