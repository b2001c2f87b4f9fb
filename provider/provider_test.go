package provider_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/kbukum/modelkit/errors"
	"github.com/kbukum/modelkit/logger"
	"github.com/kbukum/modelkit/provider"
	"github.com/kbukum/modelkit/resilience"
)

type echoProvider struct {
	name      string
	available bool
	closed    atomic.Bool
}

func (p *echoProvider) Name() string                       { return p.name }
func (p *echoProvider) IsAvailable(_ context.Context) bool { return p.available }
func (p *echoProvider) Execute(_ context.Context, in string) (string, error) {
	return "echo:" + in, nil
}
func (p *echoProvider) Close(_ context.Context) error {
	p.closed.Store(true)
	return nil
}

var errTransient = errors.New("transient failure")

type failingProvider struct {
	calls     atomic.Int32
	failUntil int32
}

func (p *failingProvider) Name() string                       { return "failing" }
func (p *failingProvider) IsAvailable(_ context.Context) bool { return true }
func (p *failingProvider) Execute(_ context.Context, in string) (string, error) {
	if p.calls.Add(1) <= p.failUntil {
		return "", errTransient
	}
	return "ok:" + in, nil
}

type echoConfig struct {
	Available bool
}

func newEcho(name string) provider.Factory[*echoProvider, echoConfig] {
	return func(cfg echoConfig) (*echoProvider, error) {
		return &echoProvider{name: name, available: cfg.Available}, nil
	}
}

func TestRegistry(t *testing.T) {
	reg := provider.NewRegistry[*echoProvider, echoConfig]()
	reg.RegisterFactory("beta", newEcho("beta"))
	reg.RegisterFactory("alpha", newEcho("alpha"))

	if got := reg.List(); len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Fatalf("expected sorted [alpha beta], got %v", got)
	}
	if !reg.Has("alpha") || reg.Has("gamma") {
		t.Fatal("Has mismatch")
	}

	p, err := reg.Create("alpha", echoConfig{Available: true})
	if err != nil || p.Name() != "alpha" || !p.available {
		t.Fatalf("Create: %v %+v", err, p)
	}

	_, err = reg.Create("missing", echoConfig{})
	if err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Fatalf("expected not registered error, got %v", err)
	}
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	reg := provider.NewRegistry[*echoProvider, echoConfig]()
	reg.RegisterFactory("echo", newEcho("echo"))
	mgr := provider.NewManager(reg, &provider.HealthCheckSelector[*echoProvider]{})

	if err := mgr.Initialize("down", "echo", echoConfig{Available: false}); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Initialize("up", "echo", echoConfig{Available: true}); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Initialize("x", "nope", echoConfig{}); err == nil {
		t.Fatal("expected error for unknown factory")
	}

	if got := mgr.Available(); len(got) != 2 || got[0] != "down" || got[1] != "up" {
		t.Fatalf("Available = %v", got)
	}

	p, err := mgr.Get(ctx)
	if err != nil || !p.available {
		t.Fatalf("Get should skip unavailable provider: %v", err)
	}

	mgr.SetSelector(&provider.PrioritySelector[*echoProvider]{Priority: []string{"down"}})
	if _, err := mgr.Get(ctx); !errors.Is(err, provider.ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}

	if _, ok := mgr.GetByName("up"); !ok {
		t.Fatal("GetByName(up) not found")
	}

	if err := mgr.Close(ctx); err != nil {
		t.Fatal(err)
	}
	up, _ := mgr.GetByName("up")
	if !up.closed.Load() {
		t.Fatal("Close was not forwarded")
	}
}

func TestPrioritySelector(t *testing.T) {
	providers := map[string]*echoProvider{
		"a": {name: "a", available: false},
		"b": {name: "b", available: true},
		"c": {name: "c", available: true},
	}
	sel := &provider.PrioritySelector[*echoProvider]{Priority: []string{"a", "c", "b"}}
	p, err := sel.Select(context.Background(), providers)
	if err != nil || p.Name() != "c" {
		t.Fatalf("expected c, got %v %v", p, err)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(tag string) provider.Middleware[string, string] {
		return provider.Intercept(func(ctx context.Context, _ string, in string, next func(context.Context, string) (string, error)) (string, error) {
			order = append(order, tag)
			return next(ctx, in)
		})
	}

	wrapped := provider.Chain(mw("A"), mw("B"), mw("C"))(&echoProvider{name: "test"})
	out, err := wrapped.Execute(context.Background(), "x")
	if err != nil || out != "echo:x" {
		t.Fatalf("got %q %v", out, err)
	}
	if strings.Join(order, "") != "ABC" {
		t.Fatalf("expected ABC, got %v", order)
	}
}

func TestIntercept_Forwards(t *testing.T) {
	inner := &echoProvider{name: "inner", available: true}
	var seen string
	wrapped := provider.Intercept(func(ctx context.Context, name string, in string, next func(context.Context, string) (string, error)) (string, error) {
		seen = name
		return next(ctx, strings.ToUpper(in))
	})(inner)

	if wrapped.Name() != "inner" || !wrapped.IsAvailable(context.Background()) {
		t.Fatal("name or availability not forwarded")
	}
	got, err := wrapped.Execute(context.Background(), "hi")
	if err != nil || got != "echo:HI" || seen != "inner" {
		t.Fatalf("got %q %v (name %q)", got, err, seen)
	}
	if c, ok := wrapped.(provider.Closeable); !ok || c.Close(context.Background()) != nil || !inner.closed.Load() {
		t.Fatal("Close not forwarded")
	}
}

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)

	ok := provider.WithLogging[string, string](log)(&echoProvider{name: "echo"})
	if _, err := ok.Execute(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"provider":"echo"`) {
		t.Fatalf("missing provider field: %s", buf.String())
	}

	buf.Reset()
	failing := provider.WithLogging[string, string](log)(&failingProvider{failUntil: 1})
	if _, err := failing.Execute(context.Background(), "hi"); err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(buf.String(), "provider execute failed") {
		t.Fatalf("missing failure log: %s", buf.String())
	}
}

func TestWithResilience_Empty(t *testing.T) {
	p := &echoProvider{name: "echo"}
	if provider.WithResilience[string, string](p, provider.ResilienceConfig{}) != provider.RequestResponse[string, string](p) {
		t.Fatal("empty config should return provider unchanged")
	}
}

func TestWithResilience_Retry(t *testing.T) {
	p := &failingProvider{failUntil: 2}
	retry := resilience.FixedRetryConfig(3, time.Millisecond, nil)
	wrapped := provider.WithResilience[string, string](p, provider.ResilienceConfig{Retry: &retry})

	out, err := wrapped.Execute(context.Background(), "x")
	if err != nil || out != "ok:x" {
		t.Fatalf("got %q %v", out, err)
	}
	if p.calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", p.calls.Load())
	}
}

func TestWithResilience_CircuitBreaker(t *testing.T) {
	p := &failingProvider{failUntil: 100}
	cb := resilience.DefaultCircuitBreakerConfig("test")
	cb.MaxFailures = 2
	cb.Cooldown = time.Hour
	wrapped := provider.WithResilience[string, string](p, provider.ResilienceConfig{CircuitBreaker: &cb})

	for i := 0; i < 2; i++ {
		if _, err := wrapped.Execute(context.Background(), "x"); !errors.Is(err, errTransient) {
			t.Fatalf("call %d: expected transient error, got %v", i, err)
		}
	}
	_, err := wrapped.Execute(context.Background(), "x")
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeServiceUnavailable {
		t.Fatalf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
	if wrapped.IsAvailable(context.Background()) {
		t.Fatal("open circuit should report unavailable")
	}
}

func TestWithResilience_Bulkhead(t *testing.T) {
	p := &echoProvider{name: "echo"}
	bh := resilience.BulkheadConfig{Name: "test", MaxConcurrent: 1}
	wrapped := provider.WithResilience[string, string](p, provider.ResilienceConfig{Bulkhead: &bh})
	out, err := wrapped.Execute(context.Background(), "x")
	if err != nil || out != "echo:x" {
		t.Fatalf("got %q %v", out, err)
	}
}

func TestWithResilience_RateLimited(t *testing.T) {
	p := &echoProvider{name: "echo"}
	rl := resilience.RateLimiterConfig{Name: "groq", Rate: resilience.PerMinute(1), Burst: 1}
	wrapped := provider.WithResilience[string, string](p, provider.ResilienceConfig{RateLimiter: &rl})

	if _, err := wrapped.Execute(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := wrapped.Execute(ctx, "x")
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeRateLimited {
		t.Fatalf("expected RATE_LIMITED, got %v", err)
	}
}
