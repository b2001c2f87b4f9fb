package observability

import "time"

// HealthStatus is the state of one component or of the whole service.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusDown     HealthStatus = "down"
)

// severity orders statuses so the worst one wins.
func (s HealthStatus) severity() int {
	switch s {
	case HealthStatusDown:
		return 2
	case HealthStatusDegraded:
		return 1
	default:
		return 0
	}
}

// Health is one health-check result. For a model it covers the backend round trip.
type Health struct {
	Name      string       `json:"name"`
	Status    HealthStatus `json:"status"`
	Message   string       `json:"message,omitempty"`
	LatencyMS int64        `json:"latency_ms,omitempty"`
}

// Timed fills LatencyMS from the check start time.
func (h Health) Timed(start time.Time) Health {
	h.LatencyMS = time.Since(start).Milliseconds()
	return h
}

// ServiceHealth is the /health body.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// NewServiceHealth starts a report with status up.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{Service: service, Status: HealthStatusUp, Version: version}
}

// AddComponent records h; the service takes the worst component status.
func (sh *ServiceHealth) AddComponent(h Health) {
	sh.Components = append(sh.Components, h)
	sh.Status = Worst(sh.Status, h.Status)
}

// Worst returns the most severe of statuses, up when empty.
func Worst(statuses ...HealthStatus) HealthStatus {
	worst := HealthStatusUp
	for _, s := range statuses {
		if s.severity() > worst.severity() {
			worst = s
		}
	}
	return worst
}
