package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kbukum/modelkit/component"
	"github.com/kbukum/modelkit/logger"
	"github.com/kbukum/modelkit/observability"
)

// Hook is a lifecycle callback.
type Hook func(ctx context.Context) error

// App owns the lifecycle of one process.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary

	gracefulTimeout time.Duration
	summaryOut      io.Writer
	onConfigure     []func(ctx context.Context, app *App[C]) error
	onStart         []Hook
	onReady         []Hook
	onStop          []Hook
}

// Option configures an App.
type Option func(*options)

type options struct {
	logger          *logger.Logger
	gracefulTimeout time.Duration
	summaryOut      io.Writer
}

// WithLogger replaces the logger built from the config's logging section.
func WithLogger(l *logger.Logger) Option { return func(o *options) { o.logger = l } }

// WithGracefulTimeout bounds shutdown. Defaults to 15s.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *options) { o.gracefulTimeout = d }
}

// WithSummaryWriter sets where the startup summary is printed; nil
// disables it. Defaults to stderr.
func WithSummaryWriter(w io.Writer) Option { return func(o *options) { o.summaryOut = w } }

// NewApp applies defaults to cfg, validates it and initializes logging.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := options{gracefulTimeout: 15 * time.Second, summaryOut: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	base := cfg.GetBaseConfig()
	if o.logger == nil {
		logger.Init(*cfg.GetLoggingConfig())
		o.logger = logger.GetGlobalLogger()
	}

	return &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(),
		Logger:          o.logger.WithComponent("bootstrap"),
		Summary:         NewSummary(base.Name, base.Version),
		gracefulTimeout: o.gracefulTimeout,
		summaryOut:      o.summaryOut,
	}, nil
}

// RegisterComponent adds c; components start in registration order.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnConfigure registers a callback that runs after components have started.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// OnStart registers hooks that run right after components start.
func (a *App[C]) OnStart(hooks ...Hook) { a.onStart = append(a.onStart, hooks...) }

// OnReady registers hooks that run after the ready check.
func (a *App[C]) OnReady(hooks ...Hook) { a.onReady = append(a.onReady, hooks...) }

// OnStop registers hooks that run before components stop.
func (a *App[C]) OnStop(hooks ...Hook) { a.onStop = append(a.onStop, hooks...) }

func runHooks(ctx context.Context, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("hook %d: %w", i, err)
		}
	}
	return nil
}

// ReadyCheck fails when any component is down. Degraded components, such
// as an unreachable model backend, do not fail it.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var down []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status != observability.HealthStatusDown {
			continue
		}
		detail := h.Name
		if h.Message != "" {
			detail += " (" + h.Message + ")"
		}
		down = append(down, detail)
	}
	if len(down) > 0 {
		return fmt.Errorf("components down: %s", strings.Join(down, ", "))
	}
	return nil
}

// Run starts everything, blocks until a signal or ctx ends, then shuts down.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		_ = a.stop()
		return err
	}
	a.WaitForSignal(ctx)
	return a.stop()
}

// RunTask starts everything, runs task with a context cancelled on
// SIGINT/SIGTERM, then shuts down. The task's error wins over shutdown
// errors.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		_ = a.stop()
		return err
	}

	taskCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	taskErr := task(taskCtx)
	cancel()

	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Debug("starting", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("start components: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("on start: %w", err)
	}
	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return fmt.Errorf("configure: %w", err)
		}
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}
	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("on ready: %w", err)
	}

	a.Summary.SetStartupDuration(time.Since(start))
	if a.summaryOut != nil {
		a.Summary.Display(ctx, a.summaryOut, a.Components)
	}
	return nil
}

// WaitForSignal blocks until SIGINT/SIGTERM or ctx is done.
func (a *App[C]) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("shutdown signal received", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		return nil
	}
}

// Shutdown stops the app when the caller manages the lifecycle.
func (a *App[C]) Shutdown(context.Context) error { return a.stop() }

func (a *App[C]) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var firstErr error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("on stop hook failed", logger.Fields(logger.FieldError, err.Error()))
		firstErr = err
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		if firstErr == nil {
			firstErr = err
		}
	}
	a.Logger.Debug("stopped")
	return firstErr
}
