package dashboard

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grafana/grafana-foundation-sdk/go/cog"
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/prometheus"
)

const (
	DefaultTitle     = "New Relic alerting"
	DefaultUID       = "nrwatch-overview"
	DefaultNamespace = "nrwatch"
	DefaultRefresh   = "1m"

	DefaultHeight  = 8
	MaxPanelHeight = 20
	MaxPanelSpan   = 24
	DefaultSpan    = 12 // two columns
)

type ChartConfig struct {
	Title   string `json:"title"`
	Row     string `json:"row"`
	Type    string `json:"type"`
	Query   string `json:"query"`
	Legend  string `json:"legend,omitempty"`
	Instant bool   `json:"instant,omitempty"`
	Span    uint32 `json:"span,omitempty"`
	Height  uint32 `json:"height,omitempty"`
}

type Config struct {
	Title     string        `json:"title"`
	UID       string        `json:"uid"`
	Namespace string        `json:"namespace"`
	Refresh   string        `json:"refresh"`
	Charts    []ChartConfig `json:"charts"`
}

func (c *Config) ApplyDefaults() {
	if c.Title == "" {
		c.Title = DefaultTitle
	}

	if c.UID == "" {
		c.UID = DefaultUID
	}

	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}

	if c.Refresh == "" {
		c.Refresh = DefaultRefresh
	}

	if len(c.Charts) == 0 {
		c.Charts = DefaultCharts(c.Namespace)
	}
}

// DefaultCharts covers the metrics exported by the poller and the New Relic
// HTTP client.
func DefaultCharts(ns string) []ChartConfig {
	return []ChartConfig{
		{
			Title:  "Apdex score",
			Row:    "Applications",
			Type:   "timeseries",
			Query:  fmt.Sprintf(`%s_apdex_score{app=~"$app"}`, ns),
			Legend: "{{app}}",
		},
		{
			Title:  "Error rate (%)",
			Row:    "Applications",
			Type:   "timeseries",
			Query:  fmt.Sprintf(`%s_error_rate{app=~"$app"}`, ns),
			Legend: "{{app}}",
		},
		{
			Title:   "Current apdex",
			Row:     "Applications",
			Type:    "gauge",
			Query:   fmt.Sprintf(`%s_apdex_score{app=~"$app"}`, ns),
			Legend:  "{{app}}",
			Instant: true,
			Span:    24,
		},
		{
			Title:  "Poll outcomes",
			Row:    "Engine",
			Type:   "timeseries",
			Query:  fmt.Sprintf(`sum by (outcome) (rate(%s_polls_total[5m]))`, ns),
			Legend: "{{outcome}}",
		},
		{
			Title:  "Alerts per hour",
			Row:    "Engine",
			Type:   "timeseries",
			Query:  fmt.Sprintf(`sum by (kind) (increase(%s_alerts_total[1h]))`, ns),
			Legend: "{{kind}}",
		},
		{
			Title: "Poll duration p95",
			Row:   "Engine",
			Type:  "timeseries",
			Query: fmt.Sprintf(`histogram_quantile(0.95, sum by (le) (rate(%s_poll_duration_seconds_bucket[5m])))`, ns),
		},
		{
			Title:  "New Relic request duration p95",
			Row:    "Engine",
			Type:   "timeseries",
			Query:  fmt.Sprintf(`histogram_quantile(0.95, sum by (le, endpoint) (rate(%s_newrelic_request_duration_seconds_bucket[5m])))`, ns),
			Legend: "{{endpoint}}",
		},
	}
}

func LoadConfig(path string) (Config, error) {
	var config Config

	content, err := os.ReadFile(filepath.Clean(os.ExpandEnv(path)))
	if err != nil {
		return config, err
	}

	if err := json.Unmarshal(content, &config); err != nil {
		return config, fmt.Errorf("decode dashboard config: %w", err)
	}

	return config, nil
}

func Build(config Config) (dashboard.Dashboard, error) {
	config.ApplyDefaults()

	builder := dashboard.NewDashboardBuilder(config.Title).
		Uid(config.UID).
		Tags([]string{"nrwatch", "newrelic", "alerting"}).
		Refresh(config.Refresh).
		Time("now-6h", "now").
		Editable().
		WithVariable(
			dashboard.NewQueryVariableBuilder("app").
				Label("Application").
				Description("New Relic application name").
				Query(dashboard.StringOrMap{
					String: cog.ToPtr(fmt.Sprintf("label_values(%s_apdex_score, app)", config.Namespace)),
				}).
				Refresh(dashboard.VariableRefreshOnTimeRangeChanged).
				Sort(dashboard.VariableSortAlphabeticalCaseInsensitiveAsc).
				Multi(true).
				IncludeAll(true),
		)

	// rows keep the order of their first chart
	var rowOrder []string
	grouped := make(map[string][]ChartConfig)
	for _, chart := range config.Charts {
		if _, ok := grouped[chart.Row]; !ok {
			rowOrder = append(rowOrder, chart.Row)
		}
		grouped[chart.Row] = append(grouped[chart.Row], chart)
	}

	for _, name := range rowOrder {
		row := dashboard.NewRowBuilder(name)
		for _, chart := range grouped[name] {
			row.WithPanel(newChartPanel(chart))
		}
		builder.WithRow(row)
	}

	return builder.Build()
}

func Marshal(config Config) ([]byte, error) {
	dashboardObj, err := Build(config)
	if err != nil {
		return nil, err
	}

	return json.MarshalIndent(dashboardObj, "", "  ")
}

func newChartPanel(config ChartConfig) *dashboard.PanelBuilder {
	queryBuilder := prometheus.NewDataqueryBuilder().
		Expr(config.Query).
		RefId("A")

	switch config.Type {
	case "table":
		queryBuilder.Format(prometheus.PromQueryFormatTable)
	default:
		queryBuilder.Format(prometheus.PromQueryFormatTimeSeries)
	}

	if config.Legend != "" {
		queryBuilder.LegendFormat(config.Legend)
	}

	if config.Instant {
		queryBuilder.Instant()
	}

	width := uint32(DefaultSpan)
	if config.Span > 0 && config.Span <= MaxPanelSpan {
		width = config.Span
	}

	height := uint32(DefaultHeight)
	if config.Height > 0 && config.Height < MaxPanelHeight {
		height = config.Height
	}

	panelType := config.Type
	if panelType == "" {
		panelType = "timeseries"
	}

	return dashboard.NewPanelBuilder().
		Title(config.Title).
		Type(panelType).
		Height(height).
		Span(width).
		WithTarget(queryBuilder)
}
