// Package logger provides structured logging for prefetchkit using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with structured fields. Pipelines obtain a
// component logger through Get and enrich it with their instance id.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("prefetch").WithFields(logger.Fields(logger.FieldPipelineID, id))
//	log.Debug("producer started")
package logger
