package server

import (
	"context"

	"github.com/kbukum/modelkit/component"
	"github.com/kbukum/modelkit/observability"
)

var (
	_ component.Component     = (*Server)(nil)
	_ component.Describable   = (*Server)(nil)
	_ component.RouteProvider = (*Server)(nil)
)

// Name implements component.Component.
func (s *Server) Name() string { return "http" }

// Health is up once the listener is bound.
func (s *Server) Health(context.Context) observability.Health {
	h := observability.Health{Name: s.Name(), Status: observability.HealthStatusUp}
	if s.listener == nil {
		h.Status = observability.HealthStatusDown
		h.Message = "not listening"
	}
	return h
}

// Describe implements component.Describable.
func (s *Server) Describe() component.Description {
	details := "http/1.1+h2c"
	if s.config.Auth.Enabled {
		details += ", jwt auth"
	}
	return component.Description{Name: "HTTP gateway", Type: "server", Details: details, Port: s.config.Port}
}

// Routes lists the registered gin routes.
func (s *Server) Routes() []component.Route {
	infos := s.engine.Routes()
	out := make([]component.Route, 0, len(infos))
	for _, r := range infos {
		out = append(out, component.Route{Method: r.Method, Path: r.Path, Handler: r.Handler})
	}
	return out
}
