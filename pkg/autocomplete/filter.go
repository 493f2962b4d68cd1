package autocomplete

import (
	"strings"
	"sync"
	"time"

	"github.com/smarchetti/ticketdesk/pkg/debounce"
	"github.com/smarchetti/ticketdesk/pkg/valuemap"
)

// Control is the slice of the selection-control surface the filter
// needs: the typed text and the visible candidate list.
type Control interface {
	Text() string
	SetText(text string)
	SetCandidates(items []string)
}

// managedPrefixes are dropped from a managed display string before
// matching, since they embed a common organizational prefix that
// should not affect relevance.
var managedPrefixes = []string{"Civilia Next - ", "Area "}

const managedDelimiter = " -> "

// Filter intercepts free-text typing in a selection control and
// narrows its candidate set with a substring match. Managed controls
// (backed by a value mapping) match against prefix-stripped display
// strings; unmanaged controls match the full string.
type Filter struct {
	control  Control
	debounce *debounce.Debouncer

	mu       sync.Mutex
	allItems []string
	mapping  *valuemap.Mapping
	updating bool
}

// NewFilter attaches a filter to a control over its full candidate
// list. mapping is nil for unmanaged controls. A zero interval uses
// debounce.DefaultInterval.
func NewFilter(control Control, allItems []string, mapping *valuemap.Mapping, interval time.Duration) *Filter {
	return &Filter{
		control:  control,
		debounce: debounce.New(interval),
		allItems: append([]string(nil), allItems...),
		mapping:  mapping,
	}
}

// Reload replaces the backing candidate list and mapping, e.g. after
// the control's values were re-resolved.
func (f *Filter) Reload(allItems []string, mapping *valuemap.Mapping) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allItems = append([]string(nil), allItems...)
	f.mapping = mapping
}

// TextChanged restarts the debounce timer. Filtering runs only when
// the timer fires uninterrupted. Calls made while the filter itself
// is rebuilding the list are ignored, which breaks the event feedback
// loop.
func (f *Filter) TextChanged() {
	f.mu.Lock()
	if f.updating {
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	f.debounce.Trigger(f.Apply)
}

// Apply filters the candidate list against the control's current
// text immediately. Empty text restores the full list.
func (f *Filter) Apply() {
	search := strings.ToLower(strings.TrimSpace(f.control.Text()))

	f.mu.Lock()
	var filtered []string
	if search == "" {
		filtered = append([]string(nil), f.allItems...)
	} else {
		for _, item := range f.allItems {
			if strings.Contains(strings.ToLower(f.matchTarget(item)), search) {
				filtered = append(filtered, item)
			}
		}
	}
	f.updating = true
	f.mu.Unlock()

	// The rebuild below re-enters the control's change handler; the
	// updating flag makes that re-entry a no-op.
	f.control.SetCandidates(filtered)

	f.mu.Lock()
	f.updating = false
	f.mu.Unlock()
}

// FocusLost cancels pending filtering and, when the typed text is not
// an exact known display value, resets the control to its default
// sentinel. Typed-but-unselected text must never pass as a filter
// value.
func (f *Filter) FocusLost() {
	f.debounce.Cancel()

	text := f.control.Text()

	f.mu.Lock()
	mapping := f.mapping
	known := false
	if mapping != nil {
		known = mapping.Contains(text)
	} else {
		for _, item := range f.allItems {
			if item == text {
				known = true
				break
			}
		}
	}
	if known {
		f.mu.Unlock()
		return
	}
	restore := append([]string(nil), f.allItems...)
	f.updating = true
	f.mu.Unlock()

	if mapping != nil {
		f.control.SetText(mapping.DefaultLabel())
	} else {
		f.control.SetText("")
	}
	f.control.SetCandidates(restore)

	f.mu.Lock()
	f.updating = false
	f.mu.Unlock()
}

// matchTarget reduces a display string to the part worth matching.
func (f *Filter) matchTarget(item string) string {
	if f.mapping == nil {
		return item
	}
	if idx := strings.Index(item, managedDelimiter); idx >= 0 {
		return item[idx+len(managedDelimiter):]
	}
	target := item
	for _, prefix := range managedPrefixes {
		target = strings.TrimPrefix(target, prefix)
	}
	return target
}
