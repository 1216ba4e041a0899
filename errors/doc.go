// Package errors provides the structured error type used across prefetchkit.
//
// Usage-contract violations of the pipelines (double Init, reading a value
// with no current item, resetting concurrently with a read, ...) are
// programmer errors: the pipelines panic with an *AppError carrying one of
// the codes below. Configuration problems are returned as ordinary errors of
// the same type. Stream exhaustion is never an error.
package errors
