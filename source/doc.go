// Package source provides producers to feed prefetch pipelines.
//
// Slice replays an in-memory slice and is handy for tests and fixtures.
// Records reads newline-delimited records from a seekable stream, optionally
// gzip or zstd compressed, reusing each record's byte buffer across calls.
// Both rewind on Reset, so they can back a pipeline that runs several passes.
package source
