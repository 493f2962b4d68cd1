package autocomplete

import (
	"sync"
	"testing"
	"time"

	"github.com/smarchetti/ticketdesk/pkg/model"
	"github.com/smarchetti/ticketdesk/pkg/valuemap"
)

type fakeControl struct {
	mu         sync.Mutex
	text       string
	candidates []string
	setCalls   int
	onChange   func()
}

func (f *fakeControl) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

func (f *fakeControl) SetText(text string) {
	f.mu.Lock()
	f.text = text
	cb := f.onChange
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (f *fakeControl) SetCandidates(items []string) {
	f.mu.Lock()
	f.candidates = items
	f.setCalls++
	cb := f.onChange
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (f *fakeControl) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.candidates...)
}

func managedItems() ([]string, *valuemap.Mapping) {
	values := []model.FieldValue{
		{Value: "area-demo", DisplayValue: "Civilia Next - Area Demografia", FieldType: model.FieldArea},
		{Value: "area-trib", DisplayValue: "Civilia Next - Area Tributi", FieldType: model.FieldArea},
	}
	m := valuemap.Build(values, "Tutte")
	return m.DisplayValues(), m
}

func TestFilter_ManagedPrefixAwareMatch(t *testing.T) {
	items, mapping := managedItems()
	ctl := &fakeControl{text: "trib"}
	f := NewFilter(ctl, items, mapping, time.Millisecond)

	f.Apply()

	got := ctl.snapshot()
	if len(got) != 1 || got[0] != "Civilia Next - Area Tributi" {
		t.Errorf("candidates = %v, want only the Tributi entry", got)
	}
}

func TestFilter_ManagedDelimiterMatch(t *testing.T) {
	values := []model.FieldValue{
		{Value: "1", DisplayValue: "Civilia Next - Area Demografia -> Anagrafe", FieldType: model.FieldApplication},
		{Value: "2", DisplayValue: "Civilia Next - Area Demografia -> Elettorale", FieldType: model.FieldApplication},
	}
	m := valuemap.Build(values, "Tutte")
	ctl := &fakeControl{text: "elet"}
	f := NewFilter(ctl, m.DisplayValues(), m, time.Millisecond)

	f.Apply()

	got := ctl.snapshot()
	if len(got) != 1 || got[0] != "Civilia Next - Area Demografia -> Elettorale" {
		t.Errorf("candidates = %v", got)
	}
}

func TestFilter_UnmanagedPlainSubstring(t *testing.T) {
	items := []string{"Civilia Next - Area Demografia", "StandaloneApp"}
	ctl := &fakeControl{text: "civilia"}
	f := NewFilter(ctl, items, nil, time.Millisecond)

	f.Apply()

	got := ctl.snapshot()
	// Unmanaged matching keeps the full string, prefix included.
	if len(got) != 1 || got[0] != "Civilia Next - Area Demografia" {
		t.Errorf("candidates = %v", got)
	}
}

func TestFilter_EmptySearchRestoresFullList(t *testing.T) {
	items, mapping := managedItems()
	ctl := &fakeControl{text: "trib"}
	f := NewFilter(ctl, items, mapping, time.Millisecond)

	f.Apply()
	ctl.SetText("")
	f.Apply()

	got := ctl.snapshot()
	if len(got) != len(items) {
		t.Errorf("candidates = %v, want full list %v", got, items)
	}
}

func TestFilter_DebounceCoalescesKeystrokes(t *testing.T) {
	items, mapping := managedItems()
	ctl := &fakeControl{}
	f := NewFilter(ctl, items, mapping, 30*time.Millisecond)

	// Three rapid keystrokes; only the last settled text filters.
	ctl.SetText("t")
	f.TextChanged()
	ctl.SetText("tr")
	f.TextChanged()
	ctl.SetText("trib")
	f.TextChanged()

	time.Sleep(60 * time.Millisecond)

	got := ctl.snapshot()
	if len(got) != 1 || got[0] != "Civilia Next - Area Tributi" {
		t.Errorf("candidates = %v", got)
	}
	ctl.mu.Lock()
	calls := ctl.setCalls
	ctl.mu.Unlock()
	if calls != 1 {
		t.Errorf("SetCandidates called %d times, want 1", calls)
	}
}

func TestFilter_ReentrancyGuard(t *testing.T) {
	items, mapping := managedItems()
	ctl := &fakeControl{text: "trib"}
	f := NewFilter(ctl, items, mapping, time.Millisecond)

	// The control notifies on every rebuild, as a real text-changed
	// handler would. The guard must stop the loop.
	ctl.onChange = func() {
		f.TextChanged()
	}

	f.Apply()
	time.Sleep(20 * time.Millisecond)

	got := ctl.snapshot()
	if len(got) != 1 {
		t.Errorf("candidates = %v", got)
	}
}

func TestFilter_FocusLostResetsUnknownText(t *testing.T) {
	items, mapping := managedItems()
	ctl := &fakeControl{text: "tri"}
	f := NewFilter(ctl, items, mapping, time.Millisecond)

	f.FocusLost()

	if ctl.Text() != "Tutte" {
		t.Errorf("text = %q, want the default sentinel", ctl.Text())
	}
	if got := ctl.snapshot(); len(got) != len(items) {
		t.Errorf("candidates = %v, want full list", got)
	}
}

func TestFilter_FocusLostKeepsExactMatch(t *testing.T) {
	items, mapping := managedItems()
	ctl := &fakeControl{text: "Civilia Next - Area Tributi"}
	f := NewFilter(ctl, items, mapping, time.Millisecond)

	f.FocusLost()

	if ctl.Text() != "Civilia Next - Area Tributi" {
		t.Errorf("text = %q, exact matches must be kept", ctl.Text())
	}
}

func TestFilter_FocusLostUnmanagedClearsText(t *testing.T) {
	items := []string{"Uno", "Due"}
	ctl := &fakeControl{text: "nope"}
	f := NewFilter(ctl, items, nil, time.Millisecond)

	f.FocusLost()

	if ctl.Text() != "" {
		t.Errorf("text = %q, want cleared", ctl.Text())
	}
}

