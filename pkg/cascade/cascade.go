// Package cascade drives dependent selection controls: when a parent
// control's selection changes, the child's candidate set is
// refiltered from a universe fetched exactly once per link.
package cascade

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/smarchetti/ticketdesk/pkg/fetch"
	"github.com/smarchetti/ticketdesk/pkg/model"
	"github.com/smarchetti/ticketdesk/pkg/valuemap"
)

// Control is the slice of the selection-control surface the
// controller needs.
type Control interface {
	SelectedDisplay() string
	SetCandidates(items []string)
	SetEnabled(enabled bool)
	SetPlaceholder(text string)
}

// strippedPrefixes are the organizational prefixes removed when
// deriving a filter key from a parent value.
var strippedPrefixes = []string{"Civilia Next - ", "Area "}

// childDelimiters separate a child item's parent segment from its own
// label, tried in order.
var childDelimiters = []string{" -> ", " - "}

// Link wires one parent control to one child control. The child's
// full value universe is fetched once at registration and kept for
// the lifetime of the link; only the derived partition changes on
// parent selection.
type Link struct {
	parent         Control
	child          Control
	childField     model.FieldType
	parentMapping  *valuemap.Mapping
	allChildValues []model.FieldValue
	childMapping   *valuemap.Mapping
	defaultLabel   string
	placeholder    string
	enabled        bool
}

// ChildMapping returns the mapping currently backing the child
// control, or nil while the link is disabled.
func (l *Link) ChildMapping() *valuemap.Mapping {
	return l.childMapping
}

// Enabled reports whether the child currently accepts input.
func (l *Link) Enabled() bool {
	return l.enabled
}

// SetParentMapping replaces the mapping used to resolve the parent's
// selected display into its original value, e.g. after the parent
// control reloads.
func (l *Link) SetParentMapping(m *valuemap.Mapping) {
	l.parentMapping = m
}

// Controller owns the registered dependency links.
type Controller struct {
	resolver *fetch.Resolver
	logger   *slog.Logger
	links    []*Link
}

// NewController creates a Controller. A nil logger falls back to
// slog.Default().
func NewController(resolver *fetch.Resolver, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{resolver: resolver, logger: logger}
}

// Register creates a link between a parent and a child control,
// fetching the child's unfiltered value universe once. The child
// starts disabled behind a "select parent first" placeholder.
func (c *Controller) Register(ctx context.Context, parent, child Control, childField model.FieldType, parentMapping *valuemap.Mapping, defaultLabel, placeholder string) (*Link, error) {
	values, err := c.resolver.Resolve(ctx, childField, nil)
	if err != nil {
		return nil, fmt.Errorf("load values for dependent field %s: %w", childField, err)
	}

	link := &Link{
		parent:         parent,
		child:          child,
		childField:     childField,
		parentMapping:  parentMapping,
		allChildValues: values,
		defaultLabel:   defaultLabel,
		placeholder:    placeholder,
	}
	link.disable()
	c.links = append(c.links, link)
	return link, nil
}

// Deregister removes a link; the child control is left disabled.
func (c *Controller) Deregister(link *Link) {
	for i, l := range c.links {
		if l == link {
			c.links = append(c.links[:i], c.links[i+1:]...)
			link.disable()
			return
		}
	}
}

// Links returns the registered links.
func (c *Controller) Links() []*Link {
	return c.links
}

// ParentChanged recomputes the child's candidate set from the
// parent's current selection. It resolves the parent's original value
// (not the display string) so changing default labels cannot alter
// filtering.
func (c *Controller) ParentChanged(link *Link) {
	display := link.parent.SelectedDisplay()
	original := display
	if link.parentMapping != nil {
		original = link.parentMapping.ToOriginal(display)
	}
	if original == "" {
		link.disable()
		return
	}

	key := DeriveKey(original)
	matched, keyless := partition(link.allChildValues, key)

	filtered := append(matched, keyless...)
	link.childMapping = valuemap.Build(filtered, link.defaultLabel)
	link.child.SetCandidates(link.childMapping.DisplayValues())
	link.child.SetEnabled(true)
	link.enabled = true
}

func (l *Link) disable() {
	l.enabled = false
	l.childMapping = nil
	l.child.SetCandidates(nil)
	l.child.SetPlaceholder(l.placeholder)
	l.child.SetEnabled(false)
}

// partition splits the universe into items whose derived key matches
// and items with no derivable key. Unclassifiable items are always
// visible, appended after matches. Items with a non-matching key are
// excluded.
func partition(values []model.FieldValue, key string) (matched, keyless []model.FieldValue) {
	for _, v := range values {
		itemKey, label, ok := SplitChild(v.DisplayValue)
		if !ok {
			keyless = append(keyless, v)
			continue
		}
		if strings.EqualFold(DeriveKey(itemKey), key) {
			relabeled := v
			relabeled.DisplayValue = label
			matched = append(matched, relabeled)
		}
	}
	sortByDisplay(matched)
	sortByDisplay(keyless)
	return matched, keyless
}

func sortByDisplay(values []model.FieldValue) {
	sort.SliceStable(values, func(i, j int) bool {
		return values[i].DisplayValue < values[j].DisplayValue
	})
}

// DeriveKey reduces a parent value to its filter key by stripping the
// fixed organizational prefixes.
func DeriveKey(value string) string {
	key := strings.TrimSpace(value)
	for _, prefix := range strippedPrefixes {
		key = strings.TrimPrefix(key, prefix)
	}
	return strings.TrimSpace(key)
}

// SplitChild splits a child display value into its parent segment and
// its own label. ok is false when no delimiter is present, meaning
// the item cannot be classified.
func SplitChild(display string) (parentKey, label string, ok bool) {
	for _, delim := range childDelimiters {
		if idx := strings.Index(display, delim); idx >= 0 {
			return display[:idx], display[idx+len(delim):], true
		}
	}
	return "", display, false
}
