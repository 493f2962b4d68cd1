// Package fetch retrieves the universe of legal values for ticket
// fields, choosing a retrieval strategy per field shape, and resolves
// them into cached canonical field values.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/smarchetti/ticketdesk/pkg/api"
	"github.com/smarchetti/ticketdesk/pkg/model"
	"github.com/smarchetti/ticketdesk/pkg/token"
)

// TicketAPI is the transport surface the strategies depend on. The
// concrete implementation is api.Client, injected at construction.
type TicketAPI interface {
	ListStatuses(ctx context.Context) ([]api.Status, error)
	ListPriorities(ctx context.Context) ([]api.Priority, error)
	ListIssueTypes(ctx context.Context) ([]api.IssueType, error)
	ListAssignableUsers(ctx context.Context, project string) ([]api.User, error)
	ListOrganizations(ctx context.Context, start, limit int) ([]api.Organization, error)
	CreateMeta(ctx context.Context) (*api.CreateMeta, error)
	SearchTickets(ctx context.Context, query string, startAt, maxResults int) (*api.SearchResult, error)
}

// ProgressFunc receives free-text status strings during long fetches.
type ProgressFunc func(status string)

// Strategy identifies how a field's values are retrieved.
type Strategy int

const (
	// StrategyDirect is a single request to a fixed enumeration
	// endpoint.
	StrategyDirect Strategy = iota
	// StrategyPaginated walks the organization listing page by page.
	StrategyPaginated
	// StrategyMeta extracts allowed values from field metadata across
	// all projects and issue types.
	StrategyMeta
	// StrategyHybrid tries metadata extraction first and falls back
	// to scanning recent tickets.
	StrategyHybrid
)

// Defaults for the dispatcher knobs.
const (
	DefaultPageSize        = 50
	DefaultBatchCeiling    = 25
	DefaultHybridThreshold = 200
	DefaultFallbackScan    = 1000
	DefaultSearchPageSize  = 100
	DefaultBatchPause      = 100 * time.Millisecond
)

// priorityAllowList is the fixed set of priorities exposed to users.
var priorityAllowList = map[string]bool{
	"Alta":  true,
	"Media": true,
	"Bassa": true,
}

// excludedAssignees are known non-assignable automation accounts that
// the assignable-users endpoint still returns.
var excludedAssignees = map[string]bool{
	"Automation for Jira": true,
	"Assistenza Civilia":  true,
	"Sistema":             true,
}

// Options tunes the dispatcher. Zero values fall back to defaults.
type Options struct {
	Project         string
	PageSize        int
	BatchCeiling    int
	HybridThreshold int
	FallbackScan    int
	BatchPause      time.Duration
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.BatchCeiling <= 0 {
		o.BatchCeiling = DefaultBatchCeiling
	}
	if o.HybridThreshold <= 0 {
		o.HybridThreshold = DefaultHybridThreshold
	}
	if o.FallbackScan <= 0 {
		o.FallbackScan = DefaultFallbackScan
	}
	if o.BatchPause <= 0 {
		o.BatchPause = DefaultBatchPause
	}
	return o
}

// Dispatcher picks and runs the retrieval strategy for a field type,
// producing raw string values, deduplicated and sorted where the
// strategy defines a canonical order.
type Dispatcher struct {
	api        TicketAPI
	normalizer *token.Normalizer
	logger     *slog.Logger
	opts       Options
}

// NewDispatcher creates a Dispatcher. A nil logger falls back to
// slog.Default().
func NewDispatcher(ticketAPI TicketAPI, opts Options, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		api:        ticketAPI,
		normalizer: token.NewNormalizer(logger),
		logger:     logger,
		opts:       opts.withDefaults(),
	}
}

// StrategyFor selects the retrieval strategy for a field type. The
// choice is a pure function of the field.
func StrategyFor(field model.FieldType) Strategy {
	switch field {
	case model.FieldOrganization:
		return StrategyPaginated
	case model.FieldStatus, model.FieldPriority, model.FieldIssueType, model.FieldAssignee:
		return StrategyDirect
	case model.FieldArea, model.FieldApplication:
		return StrategyHybrid
	}
	return StrategyMeta
}

// Fetch retrieves the raw values for a field using its strategy.
func (d *Dispatcher) Fetch(ctx context.Context, field model.FieldType, progress ProgressFunc) ([]string, error) {
	if progress == nil {
		progress = func(string) {}
	}
	switch StrategyFor(field) {
	case StrategyPaginated:
		return d.fetchPaginated(ctx, progress)
	case StrategyDirect:
		return d.fetchDirect(ctx, field, progress)
	case StrategyHybrid:
		return d.fetchHybrid(ctx, field, progress)
	default:
		return d.fetchMeta(ctx, field, progress)
	}
}

// fetchDirect hits the fixed enumeration endpoint for the field and
// applies its per-field selector.
func (d *Dispatcher) fetchDirect(ctx context.Context, field model.FieldType, progress ProgressFunc) ([]string, error) {
	progress("Caricamento " + field.DisplayName() + "...")

	switch field {
	case model.FieldStatus:
		statuses, err := d.api.ListStatuses(ctx)
		if err != nil {
			return nil, fmt.Errorf("list statuses: %w", err)
		}
		names := make([]string, 0, len(statuses))
		for _, s := range statuses {
			names = append(names, s.StatusCategory.Name)
		}
		return dedupeSorted(names), nil

	case model.FieldPriority:
		priorities, err := d.api.ListPriorities(ctx)
		if err != nil {
			return nil, fmt.Errorf("list priorities: %w", err)
		}
		names := make([]string, 0, len(priorities))
		for _, p := range priorities {
			if priorityAllowList[p.Name] {
				names = append(names, p.Name)
			}
		}
		return dedupeSorted(names), nil

	case model.FieldIssueType:
		types, err := d.api.ListIssueTypes(ctx)
		if err != nil {
			return nil, fmt.Errorf("list issue types: %w", err)
		}
		names := make([]string, 0, len(types))
		for _, it := range types {
			names = append(names, it.Name)
		}
		return dedupeSorted(names), nil

	case model.FieldAssignee:
		users, err := d.api.ListAssignableUsers(ctx, d.opts.Project)
		if err != nil {
			return nil, fmt.Errorf("list assignable users: %w", err)
		}
		names := make([]string, 0, len(users))
		for _, u := range users {
			if excludedAssignees[u.DisplayName] {
				continue
			}
			names = append(names, u.DisplayName)
		}
		return dedupeSorted(names), nil
	}

	return nil, fmt.Errorf("no direct enumeration endpoint for field %s", field)
}

// fetchPaginated walks the organization listing in fixed-size pages.
// It stops on a short page or after the batch ceiling, which bounds
// worst-case latency against unbounded remote data.
func (d *Dispatcher) fetchPaginated(ctx context.Context, progress ProgressFunc) ([]string, error) {
	var names []string
	start := 0
	for batch := 0; batch < d.opts.BatchCeiling; batch++ {
		progress(fmt.Sprintf("Caricamento organizzazioni (%d)...", len(names)))

		page, err := d.api.ListOrganizations(ctx, start, d.opts.PageSize)
		if err != nil {
			return nil, fmt.Errorf("list organizations at %d: %w", start, err)
		}
		for _, org := range page {
			names = append(names, org.Name)
		}
		if len(page) < d.opts.PageSize {
			break
		}
		start += d.opts.PageSize
	}
	return dedupeSorted(names), nil
}

// fetchMeta extracts a custom field's allowed values from the field
// metadata of every project and issue type, merged.
func (d *Dispatcher) fetchMeta(ctx context.Context, field model.FieldType, progress ProgressFunc) ([]string, error) {
	customID := field.CustomID()
	if customID == "" {
		return nil, fmt.Errorf("field %s has no custom id for metadata extraction", field)
	}
	progress("Caricamento valori per " + field.DisplayName() + "...")

	meta, err := d.api.CreateMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("field metadata for %s: %w", customID, err)
	}

	var values []string
	for _, project := range meta.Projects {
		for _, issueType := range project.IssueTypes {
			metaField, ok := issueType.Fields[customID]
			if !ok {
				continue
			}
			for _, allowed := range metaField.AllowedValues {
				if v := d.normalizer.NormalizeRaw(allowed); v != "" {
					values = append(values, v)
				}
			}
		}
	}
	return dedupeSorted(values), nil
}

// fetchHybrid tries metadata extraction first. When the result is
// thin or the attempt fails outright it falls back to collecting
// distinct values observed in a bounded sample of recent tickets.
func (d *Dispatcher) fetchHybrid(ctx context.Context, field model.FieldType, progress ProgressFunc) ([]string, error) {
	values, err := d.fetchMeta(ctx, field, progress)
	if err == nil && len(values) >= d.opts.HybridThreshold {
		return values, nil
	}
	if err != nil {
		d.logger.Warn("primary listing failed, falling back to ticket scan",
			"field", string(field), "error", err)
	} else {
		d.logger.Debug("primary listing below threshold, falling back to ticket scan",
			"field", string(field), "count", len(values), "threshold", d.opts.HybridThreshold)
	}
	return d.fetchFromTickets(ctx, field, progress)
}

// fetchFromTickets scans up to FallbackScan recent tickets and
// collects the distinct non-placeholder values of the target field.
func (d *Dispatcher) fetchFromTickets(ctx context.Context, field model.FieldType, progress ProgressFunc) ([]string, error) {
	customID := field.CustomID()
	if customID == "" {
		customID = string(field)
	}
	query := "project = " + d.opts.Project + " ORDER BY created DESC"

	seen := make(map[string]bool)
	scanned := 0
	for scanned < d.opts.FallbackScan {
		window := d.opts.FallbackScan - scanned
		if window > DefaultSearchPageSize {
			window = DefaultSearchPageSize
		}
		progress(fmt.Sprintf("Analisi ticket recenti (%d/%d)...", scanned, d.opts.FallbackScan))

		res, err := d.api.SearchTickets(ctx, query, scanned, window)
		if err != nil {
			return nil, fmt.Errorf("ticket scan for %s: %w", field, err)
		}
		for _, issue := range res.Issues {
			raw, ok := issue.Fields[customID]
			if !ok {
				continue
			}
			v := d.normalizer.NormalizeRaw(raw)
			if v == "" || v == token.PlaceholderObject || v == token.PlaceholderError {
				continue
			}
			seen[v] = true
		}
		scanned += len(res.Issues)
		if len(res.Issues) < window || scanned >= res.Total {
			break
		}
		if err := d.pause(ctx); err != nil {
			return nil, err
		}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}

// pause yields between scan batches; it aborts early when the context
// is cancelled.
func (d *Dispatcher) pause(ctx context.Context) error {
	t := time.NewTimer(d.opts.BatchPause)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func dedupeSorted(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
