package bootstrap

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/kbukum/modelkit/component"
	"github.com/kbukum/modelkit/observability"
)

var (
	colorGreen  = color.New(color.FgGreen)
	colorYellow = color.New(color.FgYellow)
	colorRed    = color.New(color.FgRed)
	colorBold   = color.New(color.Bold)
	colorCyan   = color.New(color.FgCyan)
)

// Summary prints what started: components, routes and live health.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
}

// NewSummary creates a Summary for a service.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records how long startup took.
func (s *Summary) SetStartupDuration(d time.Duration) { s.startupDuration = d }

// Display writes the summary to w. Components describe themselves through
// component.Describable and component.RouteProvider.
func (s *Summary) Display(ctx context.Context, w io.Writer, registry *component.Registry) {
	version := s.version
	if version == "" {
		version = "dev"
	}
	fmt.Fprintf(w, "\n%s %s started in %.2fs\n", colorBold.Sprint(s.serviceName), version, s.startupDuration.Seconds())

	if registry == nil || len(registry.All()) == 0 {
		fmt.Fprintf(w, "   %s no components registered\n\n", treePrefix(0, 1))
		return
	}

	comps := registry.All()
	fmt.Fprintf(w, "\nComponents\n")
	for i, c := range comps {
		d := component.Description{Name: c.Name()}
		if desc, ok := c.(component.Describable); ok {
			d = desc.Describe()
			if d.Name == "" {
				d.Name = c.Name()
			}
		}
		line := d.Name
		if d.Type != "" {
			line += " [" + d.Type + "]"
		}
		if d.Details != "" {
			line += ": " + d.Details
		}
		if d.Port > 0 {
			line += fmt.Sprintf(" (:%d)", d.Port)
		}
		fmt.Fprintf(w, "   %s %s\n", treePrefix(i, len(comps)), line)
	}

	var routes []component.Route
	for _, c := range comps {
		if rp, ok := c.(component.RouteProvider); ok {
			routes = append(routes, rp.Routes()...)
		}
	}
	if len(routes) > 0 {
		fmt.Fprintf(w, "\nRoutes (%d)\n", len(routes))
		for i, r := range routes {
			fmt.Fprintf(w, "   %s %s %s\n", treePrefix(i, len(routes)), methodColor(r.Method), r.Path)
		}
	}

	health := registry.HealthAll(ctx)
	fmt.Fprintf(w, "\nHealth\n")
	for i, h := range health {
		msg := ""
		if h.Message != "" {
			msg = " (" + h.Message + ")"
		}
		fmt.Fprintf(w, "   %s %s: %s%s\n", treePrefix(i, len(health)), h.Name, statusColor(h.Status), msg)
	}
	fmt.Fprintln(w)
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func statusColor(s observability.HealthStatus) string {
	switch s {
	case observability.HealthStatusUp:
		return colorGreen.Sprint(s)
	case observability.HealthStatusDegraded:
		return colorYellow.Sprint(s)
	case observability.HealthStatusDown:
		return colorRed.Sprint(s)
	default:
		return string(s)
	}
}

func methodColor(m string) string {
	switch m {
	case "GET":
		return colorGreen.Sprintf("%-6s", m)
	case "POST":
		return colorCyan.Sprintf("%-6s", m)
	default:
		return fmt.Sprintf("%-6s", m)
	}
}
