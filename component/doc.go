// Package component defines the lifecycle interface shared by the
// long-running parts of a prefetchkit program.
//
// A Component is started, health-checked and stopped by a Registry in a
// deterministic order: components start in registration order and stop in
// reverse, so a pipeline registered after its upstream is torn down first.
//
// # Interfaces
//
//   - Component: Name/Start/Stop/Health lifecycle
//   - Describable: optional one-line summary for startup output
package component
