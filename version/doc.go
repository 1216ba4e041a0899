// Package version reports the build identity of prefetchkit binaries.
//
// Version, commit, branch and build time are set at compile time:
//
//	go build -ldflags "-X github.com/kbukum/prefetchkit/version.Version=1.0.0" ./cmd/prefetch-digest
package version
