package newrelic

import "strconv"

type Application struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Language       string `json:"language"`
	HealthStatus   string `json:"health_status"`
	Reporting      bool   `json:"reporting"`
	LastReportedAt string `json:"last_reported_at"`

	Summary ApplicationSummary `json:"application_summary"`
}

func (a Application) IDString() string {
	return strconv.FormatInt(a.ID, 10)
}

type ApplicationSummary struct {
	ResponseTime  float64 `json:"response_time"`
	Throughput    float64 `json:"throughput"`
	ErrorRate     float64 `json:"error_rate"`
	ApdexTarget   float64 `json:"apdex_target"`
	ApdexScore    float64 `json:"apdex_score"`
	HostCount     int     `json:"host_count"`
	InstanceCount int     `json:"instance_count"`
}

type applicationList struct {
	Applications []Application `json:"applications"`
}

type applicationEnvelope struct {
	Application Application `json:"application"`
}

type metricData struct {
	MetricData struct {
		From    string `json:"from"`
		To      string `json:"to"`
		Metrics []struct {
			Name       string      `json:"name"`
			Timeslices []timeslice `json:"timeslices"`
		} `json:"metrics"`
	} `json:"metric_data"`
}

type timeslice struct {
	From   string             `json:"from"`
	To     string             `json:"to"`
	Values map[string]float64 `json:"values"`
}
