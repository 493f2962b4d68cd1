package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/smarchetti/ticketdesk/pkg/autocomplete"
	"github.com/smarchetti/ticketdesk/pkg/cascade"
	"github.com/smarchetti/ticketdesk/pkg/fetch"
	"github.com/smarchetti/ticketdesk/pkg/model"
	"github.com/smarchetti/ticketdesk/pkg/query"
	"github.com/smarchetti/ticketdesk/pkg/valuemap"
)

// formFields is the display order of the filter controls.
var formFields = []model.FieldType{
	model.FieldStatus,
	model.FieldPriority,
	model.FieldIssueType,
	model.FieldAssignee,
	model.FieldOrganization,
	model.FieldArea,
	model.FieldApplication,
}

// childPlaceholder is shown on the dependent control while no parent
// value is selected.
const childPlaceholder = "Seleziona prima un'area"

const loadFailedPlaceholder = "Caricamento non riuscito"

// defaultLabelFor returns the all-values sentinel for a field,
// agreeing in gender with the Italian field name.
func defaultLabelFor(field model.FieldType) string {
	switch field {
	case model.FieldStatus, model.FieldIssueType, model.FieldAssignee:
		return "Tutti"
	}
	return "Tutte"
}

// labelFor returns the on-screen label for a field.
func labelFor(field model.FieldType) string {
	switch field {
	case model.FieldStatus:
		return "Stato"
	case model.FieldPriority:
		return "Priorità"
	case model.FieldIssueType:
		return "Tipo"
	case model.FieldAssignee:
		return "Assegnatario"
	case model.FieldOrganization:
		return "Organizzazione"
	case model.FieldArea:
		return "Area"
	case model.FieldApplication:
		return "Applicazione"
	}
	return field.DisplayName()
}

type fieldLoadedMsg struct {
	field  model.FieldType
	values []model.FieldValue
	err    error
}

type linkReadyMsg struct {
	link *cascade.Link
	err  error
}

type progressMsg string

type clearNoticeMsg struct{}

// ConfigReloadedMsg carries runtime-tunable settings from a config
// reload into the form. Send it with tea.Program.Send.
type ConfigReloadedMsg struct {
	DebounceInterval time.Duration
}

// Model is the filter form: one selector per field, the dependency
// link between Area and Applicazione, and the assembled query preview.
type Model struct {
	resolver   *fetch.Resolver
	controller *cascade.Controller
	project    string
	theme      Theme
	interval   time.Duration

	selectors []*Selector
	byField   map[model.FieldType]*Selector
	filters   map[model.FieldType]*autocomplete.Filter
	mappings  map[model.FieldType]*valuemap.Mapping
	link      *cascade.Link

	focus   int
	width   int
	height  int
	loading int
	status  string
	notice  string

	progressCh chan string
}

// NewModel builds the filter form. interval is the autocomplete
// debounce interval; zero uses the package default.
func NewModel(resolver *fetch.Resolver, controller *cascade.Controller, project string, interval time.Duration, theme Theme) Model {
	m := Model{
		resolver:   resolver,
		controller: controller,
		project:    project,
		theme:      theme,
		interval:   interval,
		byField:    make(map[model.FieldType]*Selector),
		filters:    make(map[model.FieldType]*autocomplete.Filter),
		mappings:   make(map[model.FieldType]*valuemap.Mapping),
		status:     "Caricamento...",
		progressCh: make(chan string, 8),
	}
	for _, field := range formFields {
		sel := NewSelector(field, labelFor(field), theme)
		m.selectors = append(m.selectors, sel)
		m.byField[field] = sel
	}
	// The dependent control loads through the cascade link, every
	// other field loads directly.
	m.loading = len(formFields)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.selectors[0].Focus(), m.listenProgress(), m.registerLink()}
	for _, field := range formFields {
		if field == model.FieldApplication {
			continue
		}
		cmds = append(cmds, m.loadField(field))
	}
	return tea.Batch(cmds...)
}

func (m Model) progress(status string) {
	select {
	case m.progressCh <- status:
	default:
	}
}

func (m Model) listenProgress() tea.Cmd {
	ch := m.progressCh
	return func() tea.Msg {
		return progressMsg(<-ch)
	}
}

func (m Model) loadField(field model.FieldType) tea.Cmd {
	return func() tea.Msg {
		values, err := m.resolver.Resolve(context.Background(), field, m.progress)
		return fieldLoadedMsg{field: field, values: values, err: err}
	}
}

func (m Model) refreshField(field model.FieldType) tea.Cmd {
	return func() tea.Msg {
		values, err := m.resolver.Refresh(context.Background(), field, m.progress)
		return fieldLoadedMsg{field: field, values: values, err: err}
	}
}

func (m Model) registerLink() tea.Cmd {
	parent := m.byField[model.FieldArea]
	child := m.byField[model.FieldApplication]
	return func() tea.Msg {
		link, err := m.controller.Register(context.Background(), parent, child,
			model.FieldApplication, nil, defaultLabelFor(model.FieldApplication), childPlaceholder)
		return linkReadyMsg{link: link, err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w := msg.Width - 4
		if w > 60 {
			w = 60
		}
		for _, sel := range m.selectors {
			sel.SetWidth(w)
		}
		return m, nil

	case fieldLoadedMsg:
		return m.onFieldLoaded(msg)

	case linkReadyMsg:
		m.loading--
		if msg.err != nil {
			m.byField[model.FieldApplication].SetPlaceholder(loadFailedPlaceholder)
			return m, nil
		}
		m.link = msg.link
		if mapping, ok := m.mappings[model.FieldArea]; ok {
			m.link.SetParentMapping(mapping)
		}
		return m, nil

	case progressMsg:
		m.status = string(msg)
		return m, m.listenProgress()

	case clearNoticeMsg:
		m.notice = ""
		return m, nil

	case ConfigReloadedMsg:
		if msg.DebounceInterval > 0 && msg.DebounceInterval != m.interval {
			m.interval = msg.DebounceInterval
			m.rebuildFilters()
		}
		return m, nil

	case tea.KeyMsg:
		return m.onKey(msg)
	}
	return m, nil
}

func (m Model) onFieldLoaded(msg fieldLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading--
	sel := m.byField[msg.field]
	if msg.err != nil {
		sel.SetEnabled(false)
		sel.SetPlaceholder(loadFailedPlaceholder)
		return m, nil
	}

	mapping := valuemap.Build(msg.values, defaultLabelFor(msg.field))
	m.mappings[msg.field] = mapping
	sel.SetCandidates(mapping.DisplayValues())
	sel.SetText(mapping.DefaultLabel())
	sel.SetEnabled(true)
	m.filters[msg.field] = autocomplete.NewFilter(sel, mapping.DisplayValues(), mapping, m.interval)

	if msg.field == model.FieldArea {
		if m.link != nil {
			m.link.SetParentMapping(mapping)
		}
		// The load reset the parent to its sentinel; reconcile the
		// link so a child partition from the old selection cannot
		// survive enabled.
		m.onSelected(model.FieldArea)
	}
	return m, nil
}

func (m Model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		cmd := m.moveFocus(1)
		return m, cmd
	case "shift+tab":
		cmd := m.moveFocus(-1)
		return m, cmd
	case "ctrl+y":
		return m.copyQuery()
	case "ctrl+r":
		field := m.selectors[m.focus].Field()
		if field == model.FieldApplication {
			// The dependent list is owned by its link; refresh the
			// parent instead.
			field = model.FieldArea
		}
		m.loading++
		m.status = "Caricamento..."
		return m, m.refreshField(field)
	}

	sel := m.selectors[m.focus]
	ev, cmd := sel.Update(msg)
	switch ev {
	case EventTextChanged:
		if f := m.filters[sel.Field()]; f != nil {
			f.TextChanged()
		}
	case EventSelected:
		m.onSelected(sel.Field())
	}
	return m, cmd
}

// onSelected reacts to a confirmed selection: a new Area recomputes
// the Applicazione candidates through the cascade link.
func (m *Model) onSelected(field model.FieldType) {
	if field != model.FieldArea || m.link == nil {
		return
	}
	m.controller.ParentChanged(m.link)

	child := m.byField[model.FieldApplication]
	if cm := m.link.ChildMapping(); cm != nil {
		child.SetText(cm.DefaultLabel())
		m.filters[model.FieldApplication] = autocomplete.NewFilter(
			child, cm.DisplayValues(), cm, m.interval)
	} else {
		delete(m.filters, model.FieldApplication)
	}
}

// rebuildFilters recreates every attached filter with the current
// debounce interval. Candidate lists and mappings are unchanged.
func (m *Model) rebuildFilters() {
	for field, mapping := range m.mappings {
		if field == model.FieldApplication {
			continue
		}
		m.filters[field] = autocomplete.NewFilter(
			m.byField[field], mapping.DisplayValues(), mapping, m.interval)
	}
	if m.link != nil {
		if cm := m.link.ChildMapping(); cm != nil {
			m.filters[model.FieldApplication] = autocomplete.NewFilter(
				m.byField[model.FieldApplication], cm.DisplayValues(), cm, m.interval)
		}
	}
}

func (m *Model) moveFocus(dir int) tea.Cmd {
	current := m.selectors[m.focus]
	current.Blur()
	if f := m.filters[current.Field()]; f != nil {
		f.FocusLost()
	}

	n := len(m.selectors)
	next := m.focus
	for i := 0; i < n; i++ {
		next = (next + dir + n) % n
		if m.selectors[next].Enabled() {
			break
		}
	}
	m.focus = next
	return m.selectors[next].Focus()
}

func (m Model) copyQuery() (tea.Model, tea.Cmd) {
	q := m.currentQuery()
	if err := clipboard.WriteAll(q); err != nil {
		m.notice = "Copia non riuscita: " + err.Error()
	} else {
		m.notice = "Query copiata negli appunti"
	}
	return m, tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return clearNoticeMsg{}
	})
}

// currentQuery assembles the search query from the confirmed
// selections, always resolving display values to originals.
func (m Model) currentQuery() string {
	var clauses []query.Clause
	for _, field := range formFields {
		mapping := m.mappings[field]
		if field == model.FieldApplication {
			if m.link == nil {
				continue
			}
			mapping = m.link.ChildMapping()
		}
		if mapping == nil {
			continue
		}
		sel := m.byField[field]
		if !sel.Enabled() {
			continue
		}
		clauses = append(clauses, query.Clause{
			Field:    field,
			Original: mapping.ToOriginal(sel.SelectedDisplay()),
		})
	}
	return query.Build(m.project, clauses)
}

// View implements tea.Model.
func (m Model) View() string {
	t := m.theme
	var b strings.Builder

	title := t.Renderer.NewStyle().Foreground(t.Primary).Bold(true).
		Render("ticketdesk · " + m.project)
	b.WriteString(title)
	b.WriteString("\n\n")

	for i, sel := range m.selectors {
		b.WriteString(sel.View(i == m.focus))
		b.WriteString("\n")
	}

	width := m.width - 2
	if width <= 0 {
		width = 78
	}

	b.WriteString("\n")
	b.WriteString(RenderDivider(t, width))
	b.WriteString("\n")

	queryStyle := t.Renderer.NewStyle().Foreground(t.Text)
	b.WriteString(queryStyle.Render(runewidth.Truncate(m.currentQuery(), width, "…")))
	b.WriteString("\n")

	statusStyle := t.Renderer.NewStyle().Foreground(t.Subtext).Italic(true)
	if m.loading > 0 {
		b.WriteString(statusStyle.Render(m.status))
	} else {
		stats := m.resolver.Cache().Stats()
		b.WriteString(statusStyle.Render(fmt.Sprintf(
			"cache: %d campi · hit rate %.0f%% (%d/%d)",
			stats.Size, stats.HitRate*100, stats.Hits, stats.Hits+stats.Misses)))
	}
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(t.Renderer.NewStyle().Foreground(t.Success).Render(m.notice))
		b.WriteString("\n")
	}

	footer := t.Renderer.NewStyle().Foreground(t.Subtext).Faint(true).
		Render("tab: campo · ↑/↓: scorri · invio: seleziona · ctrl+r: aggiorna · ctrl+y: copia query · ctrl+c: esci")
	b.WriteString(footer)

	return b.String()
}
