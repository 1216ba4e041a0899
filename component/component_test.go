package component

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// mockComponent implements Component for testing.
type mockComponent struct {
	name       string
	desc       *Description
	stopCtxErr error
	startErr   error
	stopErr    error
	health     Health
	startOrder *[]string
	stopOrder  *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.startOrder != nil {
		*m.startOrder = append(*m.startOrder, m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		m.stopCtxErr = fmt.Errorf("stop context has no deadline")
	}
	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) Health {
	return m.health
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("expected non-nil registry")
	}
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	c := &mockComponent{name: "records", health: Health{Name: "records", Status: StatusHealthy}}

	if err := r.Register(c); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	c := &mockComponent{name: "records"}
	r.Register(c)

	err := r.Register(&mockComponent{name: "records"})
	if err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestGet(t *testing.T) {
	r := NewRegistry()
	c := &mockComponent{name: "records"}
	r.Register(c)

	got := r.Get("records")
	if got == nil {
		t.Fatal("expected to get registered component")
	}
	if got.Name() != "records" {
		t.Errorf("expected 'db', got %q", got.Name())
	}
}

func TestGetNotFound(t *testing.T) {
	r := NewRegistry()
	got := r.Get("missing")
	if got != nil {
		t.Error("expected nil for unregistered component")
	}
}

func TestStartAll(t *testing.T) {
	r := NewRegistry()
	order := []string{}

	r.Register(&mockComponent{
		name: "records", startOrder: &order,
		health: Health{Name: "records", Status: StatusHealthy},
	})
	r.Register(&mockComponent{
		name: "digest", startOrder: &order,
		health: Health{Name: "digest", Status: StatusHealthy},
	})

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}

	if len(order) != 2 {
		t.Fatalf("expected 2 starts, got %d", len(order))
	}
	if order[0] != "records" || order[1] != "digest" {
		t.Errorf("expected start order [records, digest], got %v", order)
	}
}

func TestStartAllError(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockComponent{name: "records", startErr: fmt.Errorf("input file missing")})

	err := r.StartAll(context.Background())
	if err == nil {
		t.Error("expected error from StartAll")
	}
}

func TestStopAllReverseOrder(t *testing.T) {
	r := NewRegistry()
	order := []string{}

	r.Register(&mockComponent{name: "records", stopOrder: &order, health: Health{Name: "records", Status: StatusHealthy}})
	r.Register(&mockComponent{name: "digest", stopOrder: &order, health: Health{Name: "digest", Status: StatusHealthy}})
	r.Register(&mockComponent{name: "sink", stopOrder: &order, health: Health{Name: "sink", Status: StatusHealthy}})

	r.StartAll(context.Background())
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}

	if len(order) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(order))
	}
	if order[0] != "sink" || order[1] != "digest" || order[2] != "records" {
		t.Errorf("expected reverse stop order [sink, digest, records], got %v", order)
	}
}

func TestStopAllSkipsUnstarted(t *testing.T) {
	r := NewRegistry()
	order := []string{}
	r.Register(&mockComponent{name: "records", stopOrder: &order})

	// Don't start, then stop
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("expected 0 stops for unstarted components, got %d", len(order))
	}
}

func TestStopAllWithErrors(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockComponent{
		name: "records", stopErr: fmt.Errorf("stop failed"),
		health: Health{Name: "records", Status: StatusHealthy},
	})
	r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil {
		t.Error("expected error from StopAll")
	}
}

func TestHealthAll(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockComponent{
		name:   "records",
		health: Health{Name: "records", Status: StatusHealthy, Message: "streaming"},
	})
	r.Register(&mockComponent{
		name:   "digest",
		health: Health{Name: "digest", Status: StatusUnhealthy, Message: "not started"},
	})

	results := r.HealthAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != StatusHealthy {
		t.Errorf("expected records healthy, got %s", results[0].Status)
	}
	if results[1].Status != StatusUnhealthy {
		t.Errorf("expected digest unhealthy, got %s", results[1].Status)
	}
}

func TestHealthStatusConstants(t *testing.T) {
	if StatusHealthy != "healthy" {
		t.Errorf("expected 'healthy', got %q", StatusHealthy)
	}
	if StatusUnhealthy != "unhealthy" {
		t.Errorf("expected 'unhealthy', got %q", StatusUnhealthy)
	}
	if StatusDegraded != "degraded" {
		t.Errorf("expected 'degraded', got %q", StatusDegraded)
	}
}


// describedComponent adds Describable to mockComponent.
type describedComponent struct {
	mockComponent
}

func (d *describedComponent) Describe() Description { return *d.desc }

func TestStopAllJoinsErrors(t *testing.T) {
	errA := fmt.Errorf("close reader")
	errB := fmt.Errorf("flush sink")

	r := NewRegistry()
	r.Register(&mockComponent{name: "records", stopErr: errA})
	r.Register(&mockComponent{name: "sink", stopErr: errB})
	r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("expected both stop errors to be wrapped, got %v", err)
	}
}

func TestStopAllAppliesTimeout(t *testing.T) {
	r := NewRegistry()
	r.SetStopTimeout(time.Second)
	c := &mockComponent{name: "records"}
	r.Register(c)
	r.StartAll(context.Background())

	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if c.stopCtxErr != nil {
		t.Error(c.stopCtxErr)
	}
}

func TestDescribe(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockComponent{name: "records"})
	r.Register(&describedComponent{mockComponent{
		name: "digest",
		desc: &Description{Type: "pipeline", Details: "workers=4"},
	}})

	got := r.Describe()
	if len(got) != 2 {
		t.Fatalf("expected 2 descriptions, got %d", len(got))
	}
	tests := []struct {
		idx     int
		name    string
		typ     string
		details string
	}{
		{0, "records", "", ""},
		{1, "digest", "pipeline", "workers=4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := got[tt.idx]
			if d.Name != tt.name || d.Type != tt.typ || d.Details != tt.details {
				t.Errorf("got %+v", d)
			}
		})
	}
}
