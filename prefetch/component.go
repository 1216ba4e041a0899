package prefetch

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kbukum/prefetchkit/component"
	"github.com/kbukum/prefetchkit/logger"
)

// Destroyer is implemented by Iter and MultiIter.
type Destroyer interface {
	Destroy()
}

const (
	componentIdle int32 = iota
	componentRunning
	componentStopped
)

type pipelineComponent struct {
	name  string
	start func(context.Context) error
	p     Destroyer
	state atomic.Int32
}

// AsComponent exposes a pipeline as a lifecycle component. start runs on
// Start and usually calls Init; Stop destroys the pipeline.
func AsComponent(name string, start func(context.Context) error, p Destroyer) component.Component {
	return &pipelineComponent{name: name, start: start, p: p}
}

func (c *pipelineComponent) Name() string { return c.name }

func (c *pipelineComponent) Start(ctx context.Context) error {
	if !c.state.CompareAndSwap(componentIdle, componentRunning) {
		return fmt.Errorf("pipeline %s already started", c.name)
	}
	if c.start == nil {
		return nil
	}
	if err := c.start(ctx); err != nil {
		c.state.Store(componentIdle)
		return err
	}
	return nil
}

func (c *pipelineComponent) Stop(_ context.Context) error {
	if c.state.Swap(componentStopped) == componentStopped {
		return nil
	}
	c.p.Destroy()
	logger.Get("prefetch").Debug("pipeline component stopped", logger.Fields(logger.FieldComponent, c.name))
	return nil
}

func (c *pipelineComponent) Health(_ context.Context) component.Health {
	h := component.Health{Name: c.name, Status: component.StatusHealthy}
	switch c.state.Load() {
	case componentIdle:
		h.Status, h.Message = component.StatusUnhealthy, "not started"
	case componentStopped:
		h.Status, h.Message = component.StatusUnhealthy, "destroyed"
	default:
		if s, ok := c.p.(interface{ Stats() Stats }); ok {
			if st := s.Stats(); st.Ended {
				h.Status, h.Message = component.StatusDegraded, "end of stream"
			}
		}
	}
	return h
}

func (c *pipelineComponent) Describe() component.Description {
	d := component.Description{Name: c.name, Type: "pipeline"}
	switch p := c.p.(type) {
	case interface{ Stats() Stats }:
		st := p.Stats()
		d.Details = fmt.Sprintf("capacity=%d queued=%d free=%d", st.Capacity, st.Queued, st.Free)
	case interface{ Workers() int }:
		d.Details = fmt.Sprintf("workers=%d", p.Workers())
	}
	return d
}
