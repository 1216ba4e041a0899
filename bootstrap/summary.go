package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/prefetchkit/component"
)

// StepInfo is one tracked unit of task work, such as a pass over a dataset.
type StepInfo struct {
	Name     string
	Detail   string
	Duration time.Duration
	Err      error
}

// Summary tracks and displays the application's startup and task result.
type Summary struct {
	serviceName     string
	version         string
	out             io.Writer
	startupDuration time.Duration
	taskDuration    time.Duration

	mu    sync.Mutex
	steps []StepInfo
}

// NewSummary creates a summary that prints to out.
func NewSummary(serviceName, version string, out io.Writer) *Summary {
	return &Summary{
		serviceName: serviceName,
		version:     version,
		out:         out,
		steps:       make([]StepInfo, 0),
	}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// SetTaskDuration records how long the task ran.
func (s *Summary) SetTaskDuration(d time.Duration) {
	s.taskDuration = d
}

// TrackStep records a finished unit of task work. It is safe for concurrent use.
func (s *Summary) TrackStep(name, detail string, d time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, StepInfo{Name: name, Detail: detail, Duration: d, Err: err})
}

// Steps returns a copy of the tracked steps.
func (s *Summary) Steps() []StepInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StepInfo(nil), s.steps...)
}

// DisplayStartup prints the header, the registered components and their live
// health.
func (s *Summary) DisplayStartup(ctx context.Context, registry *component.Registry) {
	w := s.out
	fmt.Fprintf(w, "\n🚀 %s %s started in %.2fs\n\n",
		s.serviceName, s.version, s.startupDuration.Seconds())

	if registry == nil {
		fmt.Fprintf(w, "   └── No components registered\n\n")
		return
	}

	descs := registry.Describe()
	if len(descs) == 0 {
		fmt.Fprintf(w, "   └── No components registered\n\n")
		return
	}

	fmt.Fprintf(w, "📦 Components\n")
	for i, d := range descs {
		typ := d.Type
		if typ == "" {
			typ = "component"
		}
		line := fmt.Sprintf("%s [%s]", d.Name, typ)
		if d.Details != "" {
			line += ": " + d.Details
		}
		fmt.Fprintf(w, "   %s %s\n", treePrefix(i, len(descs)), line)
	}

	results := registry.HealthAll(ctx)
	fmt.Fprintf(w, "\n🏥 Health Check\n")
	healthy := 0
	for i, h := range results {
		msg := ""
		if h.Message != "" {
			msg = " (" + h.Message + ")"
		}
		if h.Status == component.StatusHealthy {
			healthy++
		}
		fmt.Fprintf(w, "   %s %s %s: %s%s\n", treePrefix(i, len(results)),
			healthStatusIcon(h.Status), h.Name, strings.ToLower(string(h.Status)), msg)
	}
	if healthy == len(results) {
		fmt.Fprintf(w, "\n✅ All components healthy (%d/%d)\n\n", healthy, len(results))
	} else {
		fmt.Fprintf(w, "\n⚠️  Some components have issues (%d/%d healthy)\n\n", healthy, len(results))
	}
}

// DisplayResult prints the tracked steps and the task outcome.
func (s *Summary) DisplayResult(taskErr error) {
	w := s.out
	steps := s.Steps()
	if len(steps) > 0 {
		fmt.Fprintf(w, "📋 Steps\n")
		for i, st := range steps {
			line := st.Name
			if st.Detail != "" {
				line += ": " + st.Detail
			}
			line += fmt.Sprintf(" in %s", st.Duration.Round(time.Millisecond))
			if st.Err != nil {
				line += " (" + st.Err.Error() + ")"
			}
			fmt.Fprintf(w, "   %s %s %s\n", treePrefix(i, len(steps)), stepIcon(st.Err), line)
		}
		fmt.Fprintf(w, "\n")
	}

	if taskErr != nil {
		fmt.Fprintf(w, "❌ %s failed after %.2fs: %v\n\n", s.serviceName, s.taskDuration.Seconds(), taskErr)
		return
	}
	fmt.Fprintf(w, "✅ %s finished in %.2fs\n\n", s.serviceName, s.taskDuration.Seconds())
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func stepIcon(err error) string {
	if err != nil {
		return "❌"
	}
	return "✅"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
