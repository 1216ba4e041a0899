package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/prefetchkit/component"
	"github.com/kbukum/prefetchkit/config"
	"github.com/kbukum/prefetchkit/logger"
)

// testConfig is a minimal config for testing that satisfies the Config interface.
type testConfig struct {
	config.ServiceConfig
}

// mockComponent implements component.Component for testing.
type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   component.Health
	started  bool
	stopped  bool
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	m.started = true
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	m.stopped = true
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) component.Health {
	return m.health
}
func (m *mockComponent) Describe() component.Description {
	return component.Description{Type: "pipeline", Details: "capacity=8"}
}

func healthy(name string) *mockComponent {
	return &mockComponent{
		name:   name,
		health: component.Health{Name: name, Status: component.StatusHealthy},
	}
}

func newTestConfig(name, version string) *testConfig {
	return &testConfig{
		ServiceConfig: config.ServiceConfig{
			Name:        name,
			Version:     version,
			Environment: "development",
		},
	}
}

func newTestApp(t *testing.T, opts ...Option) (*App[*testConfig], *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{WithLogger(logger.Nop()), WithSummaryOutput(&out)}, opts...)
	app, err := NewApp(newTestConfig("test", "1.0"), opts...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app, &out
}

func TestNewApp(t *testing.T) {
	cfg := newTestConfig("test-svc", "1.0.0")
	app, err := NewApp(cfg, WithSummaryOutput(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if app.Name != "test-svc" {
		t.Errorf("expected name 'test-svc', got %q", app.Name)
	}
	if app.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %q", app.Version)
	}
	if app.Components == nil {
		t.Error("expected non-nil components registry")
	}
	if app.Logger == nil {
		t.Error("expected non-nil logger")
	}
	if app.Cfg.Name != "test-svc" {
		t.Errorf("expected cfg.Name 'test-svc', got %q", app.Cfg.Name)
	}
}

func TestNewAppBuildVersion(t *testing.T) {
	app, err := NewApp(newTestConfig("test", ""), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if app.Version == "" {
		t.Error("expected the build version to fill an empty config version")
	}
	if app.Cfg.Version != app.Version {
		t.Errorf("expected config version %q, got %q", app.Version, app.Cfg.Version)
	}
}

func TestNewAppValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ServiceConfig
	}{
		{"missing name", config.ServiceConfig{Environment: "development"}},
		{"unknown environment", config.ServiceConfig{Name: "x", Environment: "qa"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewApp(&testConfig{ServiceConfig: tc.cfg}, WithLogger(logger.Nop()))
			if err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestWithGracefulTimeout(t *testing.T) {
	app, _ := newTestApp(t, WithGracefulTimeout(5*time.Second))
	if app.gracefulTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %v", app.gracefulTimeout)
	}
}

func TestDefaultGracefulTimeout(t *testing.T) {
	app, _ := newTestApp(t)
	if app.gracefulTimeout != 15*time.Second {
		t.Errorf("expected default 15s, got %v", app.gracefulTimeout)
	}
}

func TestRegisterComponent(t *testing.T) {
	app, _ := newTestApp(t)
	if err := app.RegisterComponent(healthy("records")); err != nil {
		t.Fatalf("RegisterComponent failed: %v", err)
	}
	if app.Components.Get("records") == nil {
		t.Error("expected component to be registered")
	}
	if err := app.RegisterComponent(healthy("records")); err == nil {
		t.Error("expected error for duplicate component registration")
	}
}

func TestHooks(t *testing.T) {
	app, _ := newTestApp(t)
	order := []string{}
	app.OnStart(
		func(ctx context.Context) error { order = append(order, "first"); return nil },
		func(ctx context.Context) error { order = append(order, "second"); return nil },
	)

	if err := runHooks(context.Background(), app.onStart); err != nil {
		t.Fatalf("hook failed: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("expected [first, second], got %v", order)
	}
}

func TestHookErrorStopsExecution(t *testing.T) {
	secondCalled := false
	hooks := []Hook{
		func(ctx context.Context) error { return fmt.Errorf("fail") },
		func(ctx context.Context) error { secondCalled = true; return nil },
	}
	if err := runHooks(context.Background(), hooks); err == nil {
		t.Error("expected error from failing hook")
	}
	if secondCalled {
		t.Error("expected second hook not to be called after first fails")
	}
}

func TestReadyCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  component.HealthStatus
		wantErr bool
	}{
		{"healthy", component.StatusHealthy, false},
		{"degraded", component.StatusDegraded, true},
		{"unhealthy", component.StatusUnhealthy, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app, _ := newTestApp(t)
			app.RegisterComponent(healthy("source"))
			app.RegisterComponent(&mockComponent{
				name:   "digest",
				health: component.Health{Name: "digest", Status: tc.status, Message: "end of stream"},
			})
			err := app.ReadyCheck(context.Background())
			if (err != nil) != tc.wantErr {
				t.Errorf("wantErr=%v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestReadyCheckEmpty(t *testing.T) {
	app, _ := newTestApp(t)
	if err := app.ReadyCheck(context.Background()); err != nil {
		t.Errorf("expected no error for empty registry, got %v", err)
	}
}

func TestRunTaskSuccess(t *testing.T) {
	app, out := newTestApp(t)
	executed := false
	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		executed = true
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if !executed {
		t.Error("expected task to be executed")
	}
	if !strings.Contains(out.String(), "✅ test finished") {
		t.Errorf("expected result line, got:\n%s", out.String())
	}
}

func TestRunTaskError(t *testing.T) {
	app, out := newTestApp(t)
	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		return fmt.Errorf("task error")
	})
	if err == nil || err.Error() != "task error" {
		t.Fatalf("expected 'task error', got %v", err)
	}
	if !strings.Contains(out.String(), "❌ test failed") {
		t.Errorf("expected failure line, got:\n%s", out.String())
	}
}

func TestRunTaskCancellation(t *testing.T) {
	app, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := app.RunTask(ctx, func(taskCtx context.Context) error {
		cancel()
		<-taskCtx.Done()
		return taskCtx.Err()
	})
	if err == nil {
		t.Error("expected error from canceled task")
	}
}

func TestRunTaskLifecycleOrder(t *testing.T) {
	app, _ := newTestApp(t)

	order := []string{}
	app.OnStart(func(ctx context.Context) error {
		order = append(order, "start")
		return nil
	})
	app.OnReady(func(ctx context.Context) error {
		order = append(order, "ready")
		return nil
	})
	app.OnStop(func(ctx context.Context) error {
		order = append(order, "stop")
		return nil
	})

	app.RunTask(context.Background(), func(ctx context.Context) error {
		order = append(order, "task")
		return nil
	})

	expected := []string{"start", "ready", "task", "stop"}
	if len(order) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, order)
	}
	for i, v := range expected {
		if order[i] != v {
			t.Errorf("order[%d] = %q, expected %q", i, order[i], v)
		}
	}
}

func TestRunTaskWithComponents(t *testing.T) {
	app, out := newTestApp(t)
	comp := healthy("records")
	app.RegisterComponent(comp)

	app.RunTask(context.Background(), func(ctx context.Context) error {
		if !comp.started {
			t.Error("expected component to be started before the task")
		}
		return nil
	})

	if !comp.stopped {
		t.Error("expected component to be stopped after task")
	}
	if !strings.Contains(out.String(), "records [pipeline]: capacity=8") {
		t.Errorf("expected component description in summary, got:\n%s", out.String())
	}
}

func TestRunTaskHookErrors(t *testing.T) {
	tests := []struct {
		name    string
		install func(app *App[*testConfig])
	}{
		{"start", func(app *App[*testConfig]) {
			app.OnStart(func(ctx context.Context) error { return fmt.Errorf("start hook failed") })
		}},
		{"ready", func(app *App[*testConfig]) {
			app.OnReady(func(ctx context.Context) error { return fmt.Errorf("ready hook failed") })
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app, _ := newTestApp(t)
			comp := healthy("records")
			app.RegisterComponent(comp)
			tc.install(app)

			ran := false
			err := app.RunTask(context.Background(), func(ctx context.Context) error {
				ran = true
				return nil
			})
			if err == nil {
				t.Error("expected error from hook")
			}
			if ran {
				t.Error("task must not run after a failed startup")
			}
			if !comp.stopped {
				t.Error("started components must be stopped after a failed startup")
			}
		})
	}
}

func TestRunTaskWithStopHookError(t *testing.T) {
	app, _ := newTestApp(t)
	app.OnStop(func(ctx context.Context) error {
		return fmt.Errorf("stop hook failed")
	})

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		return nil
	})
	if err == nil {
		t.Error("expected error from stop hook")
	}
}

func TestRunTaskComponentStartError(t *testing.T) {
	app, _ := newTestApp(t)
	app.RegisterComponent(&mockComponent{
		name:     "source",
		startErr: fmt.Errorf("open failed"),
	})

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		t.Error("task should not run")
		return nil
	})
	if err == nil {
		t.Error("expected error from component start")
	}
}

func TestRunTaskWithComponentStopError(t *testing.T) {
	app, _ := newTestApp(t)
	app.RegisterComponent(&mockComponent{
		name:    "source",
		stopErr: fmt.Errorf("close failed"),
		health:  component.Health{Name: "source", Status: component.StatusHealthy},
	})

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		return nil
	})
	if err == nil {
		t.Error("expected error from component stop")
	}

	err = app.RunTask(context.Background(), func(ctx context.Context) error {
		return fmt.Errorf("task error")
	})
	if err == nil || err.Error() != "task error" {
		t.Errorf("task error must take precedence, got %v", err)
	}
}

func TestShutdown(t *testing.T) {
	app, _ := newTestApp(t)
	comp := healthy("records")
	app.RegisterComponent(comp)

	if err := app.Components.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !comp.stopped {
		t.Error("expected component to be stopped")
	}
}

func TestSummarySteps(t *testing.T) {
	var out bytes.Buffer
	s := NewSummary("digest", "1.0", &out)
	s.TrackStep("pass 1", "records=3", 12*time.Millisecond, nil)
	s.TrackStep("pass 2", "records=1", 3*time.Millisecond, fmt.Errorf("truncated"))
	s.SetTaskDuration(20 * time.Millisecond)
	s.DisplayResult(nil)

	steps := s.Steps()
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	got := out.String()
	for _, want := range []string{
		"├── ✅ pass 1: records=3 in 12ms",
		"└── ❌ pass 2: records=1 in 3ms (truncated)",
		"✅ digest finished",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in:\n%s", want, got)
		}
	}
}

func TestSummaryDisplayStartup(t *testing.T) {
	var out bytes.Buffer
	s := NewSummary("digest", "1.0", &out)
	s.SetStartupDuration(1500 * time.Millisecond)

	reg := component.NewRegistry()
	reg.Register(healthy("source"))
	reg.Register(&mockComponent{
		name:   "digest",
		health: component.Health{Name: "digest", Status: component.StatusDegraded, Message: "end of stream"},
	})
	s.DisplayStartup(context.Background(), reg)

	got := out.String()
	for _, want := range []string{
		"🚀 digest 1.0 started in 1.50s",
		"├── source [pipeline]: capacity=8",
		"└── ⚠️ digest: degraded (end of stream)",
		"(1/2 healthy)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in:\n%s", want, got)
		}
	}
}

func TestSummaryDisplayStartupEmpty(t *testing.T) {
	var out bytes.Buffer
	s := NewSummary("digest", "1.0", &out)
	s.DisplayStartup(context.Background(), nil)
	s.DisplayStartup(context.Background(), component.NewRegistry())
	if strings.Count(out.String(), "No components registered") != 2 {
		t.Errorf("expected empty registry notice twice, got:\n%s", out.String())
	}
}

func TestTreePrefix(t *testing.T) {
	if treePrefix(0, 2) != "├──" {
		t.Error("expected branch for non-last item")
	}
	if treePrefix(1, 2) != "└──" {
		t.Error("expected corner for last item")
	}
}

func TestHealthStatusIcon(t *testing.T) {
	tests := []struct {
		status component.HealthStatus
		want   string
	}{
		{component.StatusHealthy, "✅"},
		{component.StatusDegraded, "⚠️"},
		{component.StatusUnhealthy, "❌"},
		{"unknown", "❓"},
	}
	for _, tc := range tests {
		if got := healthStatusIcon(tc.status); got != tc.want {
			t.Errorf("healthStatusIcon(%q) = %q, want %q", tc.status, got, tc.want)
		}
	}
}
