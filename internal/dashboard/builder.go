// Package dashboard creates, or reuses, the filter, widgets and dashboard that
// chart the launches of one launch name.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"rppreproc/internal/rp"
)

// Widget sizes on the dashboard grid.
const (
	tableWidgetSize = 6
	statsWidgetSize = 20
)

const autoDescription = "RP PreProc Auto widget"

// Result describes what the builder created or found.
type Result struct {
	ID      rp.FlexID `json:"id"`
	URL     string    `json:"url"`
	Widgets []Widget  `json:"widgets"`
}

// Widget is one widget on the dashboard and the filter feeding it.
type Widget struct {
	ID     rp.FlexID `json:"id"`
	Filter Filter    `json:"filter"`
}

// Filter identifies a launch filter.
type Filter struct {
	ID rp.FlexID `json:"id"`
}

// Builder is idempotent: every entity is looked up by exact name first and
// created only when missing, and widgets already on the dashboard are not
// added again.
type Builder struct {
	project    *rp.ProjectScope
	launchName string
	logger     *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder returns a builder for launches named launchName.
func NewBuilder(project *rp.ProjectScope, launchName string, opts ...Option) *Builder {
	b := &Builder{project: project, launchName: launchName}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	b.logger = b.logger.With("launch", launchName)
	return b
}

// TableWidgetName is the name of the launches table widget.
func (b *Builder) TableWidgetName() string { return b.launchName + " Launches Table" }

// StatsWidgetName is the name of the overall statistics widget.
func (b *Builder) StatsWidgetName() string { return b.launchName + " Overall Stats" }

// Build ensures the filter, both widgets and the dashboard exist and are wired.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	filterID, err := b.ensureFilter(ctx)
	if err != nil {
		return nil, err
	}
	tableID, err := b.ensureWidget(ctx, b.tableWidget(filterID))
	if err != nil {
		return nil, err
	}
	statsID, err := b.ensureWidget(ctx, b.statsWidget(filterID))
	if err != nil {
		return nil, err
	}
	dashID, err := b.ensureDashboard(ctx)
	if err != nil {
		return nil, err
	}
	if err := b.addWidget(ctx, dashID, tableID, tableWidgetSize); err != nil {
		return nil, err
	}
	if err := b.addWidget(ctx, dashID, statsID, statsWidgetSize); err != nil {
		return nil, err
	}

	res := &Result{
		ID:  dashID,
		URL: b.project.Dashboards().URL(dashID),
		Widgets: []Widget{
			{ID: tableID, Filter: Filter{ID: filterID}},
			{ID: statsID, Filter: Filter{ID: filterID}},
		},
	}
	b.logger.InfoContext(ctx, "dashboard ready", "dashboard_id", dashID, "url", res.URL)
	return res, nil
}

func (b *Builder) ensureFilter(ctx context.Context) (rp.FlexID, error) {
	filters := b.project.Filters()
	id, ok, err := filters.FindByName(ctx, b.launchName)
	if err != nil {
		return "", fmt.Errorf("find filter %q: %w", b.launchName, err)
	}
	if ok {
		b.logger.DebugContext(ctx, "reusing filter", "filter_id", id)
		return id, nil
	}
	id, err = filters.Create(ctx, rp.CreateFilterRQ{Elements: []rp.FilterElement{{
		Description: "RP PreProc Auto Filter",
		Entities: []rp.FilterEntity{
			{Condition: "eq", FilteringField: "name", Value: b.launchName},
		},
		Name: b.launchName,
		SelectionParameters: rp.SelectionParameters{
			Orders:     []rp.FilterOrder{{IsAsc: false, SortingColumn: "start_time"}},
			PageNumber: 1,
		},
		Share: true,
		Type:  "launch",
	}}})
	if err != nil {
		return "", fmt.Errorf("create filter %q: %w", b.launchName, err)
	}
	return id, nil
}

func (b *Builder) tableWidget(filterID rp.FlexID) rp.CreateWidgetRQ {
	name := b.TableWidgetName()
	return rp.CreateWidgetRQ{
		ContentParameters: rp.ContentParameters{
			ContentFields: []string{
				"name", "number", "last_modified", "status",
				"statistics$defects$product_bug$PB001",
				"statistics$defects$automation_bug$AB001",
				"statistics$defects$system_issue$SI001",
				"statistics$defects$to_investigate$TI001",
				"tags", "user", "start_time", "end_time", "description",
				"statistics$executions$total",
				"statistics$executions$passed",
				"statistics$executions$failed",
				"statistics$executions$skipped",
			},
			Gadget:         "launches_table",
			ItemsCount:     10,
			MetadataFields: []string{"start_time"},
			Type:           "launches_table",
			WidgetOptions:  map[string]any{"filterName": []string{name}},
		},
		Description: autoDescription,
		FilterID:    filterID,
		Name:        name,
		Share:       true,
	}
}

func (b *Builder) statsWidget(filterID rp.FlexID) rp.CreateWidgetRQ {
	return rp.CreateWidgetRQ{
		ContentParameters: rp.ContentParameters{
			ContentFields: []string{
				"statistics$executions$total",
				"statistics$executions$passed",
				"statistics$executions$failed",
				"statistics$executions$skipped",
				"statistics$defects$product_bug$PB001",
				"statistics$defects$automation_bug$AB001",
				"statistics$defects$system_issue$SI001",
				"statistics$defects$no_defect$ND001",
				"statistics$defects$to_investigate$TI001",
			},
			Gadget:         "overall_statistics",
			ItemsCount:     50,
			MetadataFields: []string{"name", "number", "start_time"},
			Type:           "statistics_panel",
			WidgetOptions:  map[string]any{"viewMode": []string{"donut"}, "latest": []string{}},
		},
		Description: autoDescription,
		FilterID:    filterID,
		Name:        b.StatsWidgetName(),
		Share:       true,
	}
}

func (b *Builder) ensureWidget(ctx context.Context, rq rp.CreateWidgetRQ) (rp.FlexID, error) {
	widgets := b.project.Widgets()
	id, ok, err := widgets.FindByName(ctx, rq.Name)
	if err != nil {
		return "", fmt.Errorf("find widget %q: %w", rq.Name, err)
	}
	if ok {
		b.logger.DebugContext(ctx, "reusing widget", "widget", rq.Name, "widget_id", id)
		return id, nil
	}
	id, err = widgets.Create(ctx, rq)
	if err != nil {
		return "", fmt.Errorf("create widget %q: %w", rq.Name, err)
	}
	return id, nil
}

func (b *Builder) ensureDashboard(ctx context.Context) (rp.FlexID, error) {
	dashboards := b.project.Dashboards()
	id, ok, err := dashboards.FindByName(ctx, b.launchName)
	if err != nil {
		return "", fmt.Errorf("find dashboard %q: %w", b.launchName, err)
	}
	if ok {
		b.logger.DebugContext(ctx, "reusing dashboard", "dashboard_id", id)
		return id, nil
	}
	id, err = dashboards.Create(ctx, rp.DashboardRQ{
		Description: "RP PreProc Auto Dashboard",
		Name:        b.launchName,
		Share:       true,
	})
	if err != nil {
		return "", fmt.Errorf("create dashboard %q: %w", b.launchName, err)
	}
	return id, nil
}

func (b *Builder) addWidget(ctx context.Context, dashID, widgetID rp.FlexID, size int) error {
	dashboards := b.project.Dashboards()
	d, err := dashboards.Get(ctx, dashID)
	if err != nil {
		return fmt.Errorf("get dashboard %s: %w", dashID, err)
	}
	if d.HasWidget(widgetID) {
		b.logger.DebugContext(ctx, "widget already on dashboard", "widget_id", widgetID)
		return nil
	}
	err = dashboards.Update(ctx, dashID, rp.UpdateDashboardRQ{
		AddWidget: rp.AddWidget{
			WidgetID:       widgetID,
			WidgetPosition: []int{0},
			WidgetSize:     []int{size},
		},
		Description: "RP PreProc Auto Widget",
		Name:        b.launchName,
		Share:       true,
	})
	if err != nil {
		return fmt.Errorf("add widget %s to dashboard %s: %w", widgetID, dashID, err)
	}
	return nil
}
