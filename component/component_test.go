package component

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kbukum/modelkit/observability"
)

type fakeComponent struct {
	name     string
	startErr error
	stopErr  error
	status   observability.HealthStatus
	log      *[]string
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Start(context.Context) error {
	if f.log != nil {
		*f.log = append(*f.log, "start:"+f.name)
	}
	return f.startErr
}

func (f *fakeComponent) Stop(context.Context) error {
	if f.log != nil {
		*f.log = append(*f.log, "stop:"+f.name)
	}
	return f.stopErr
}

func (f *fakeComponent) Health(context.Context) observability.Health {
	return observability.Health{Name: f.name, Status: f.status}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeComponent{name: "models"}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := r.Register(&fakeComponent{name: "models"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
	if r.Get("models") == nil || r.Get("missing") != nil {
		t.Error("Get() lookup mismatch")
	}
}

func TestStartStopOrder(t *testing.T) {
	var log []string
	r := NewRegistry()
	for _, name := range []string{"telemetry", "models", "http"} {
		_ = r.Register(&fakeComponent{name: name, log: &log})
	}

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll() error: %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll() error: %v", err)
	}

	want := []string{
		"start:telemetry", "start:models", "start:http",
		"stop:http", "stop:models", "stop:telemetry",
	}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %q, want %q", i, log[i], want[i])
		}
	}
}

func TestStartFailureStopsOnlyStarted(t *testing.T) {
	var log []string
	r := NewRegistry()
	_ = r.Register(&fakeComponent{name: "models", log: &log})
	_ = r.Register(&fakeComponent{name: "http", log: &log, startErr: errors.New("address in use")})
	_ = r.Register(&fakeComponent{name: "never", log: &log})

	if err := r.StartAll(context.Background()); err == nil {
		t.Fatal("expected StartAll error")
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll() error: %v", err)
	}

	want := []string{"start:models", "start:http", "stop:models"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %q, want %q", i, log[i], want[i])
		}
	}
}

func TestStopAllJoinsErrors(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&fakeComponent{name: "a", stopErr: errors.New("a failed")})
	_ = r.Register(&fakeComponent{name: "b", stopErr: errors.New("b failed")})
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil {
		t.Fatal("expected StopAll error")
	}
	for _, want := range []string{"a failed", "b failed"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestHealthAll(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&fakeComponent{name: "models", status: observability.HealthStatusDegraded})
	_ = r.Register(&fakeComponent{name: "http", status: observability.HealthStatusUp})

	got := r.HealthAll(context.Background())
	if len(got) != 2 {
		t.Fatalf("HealthAll() = %v", got)
	}
	if got[0].Name != "models" || got[0].Status != observability.HealthStatusDegraded {
		t.Errorf("got[0] = %+v", got[0])
	}
	if len(r.All()) != 2 {
		t.Errorf("All() len = %d", len(r.All()))
	}
}
