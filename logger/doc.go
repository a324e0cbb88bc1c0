// Package logger provides structured logging for streamkit using zerolog.
//
// Pipelines log through component-scoped loggers obtained from Get. The
// process-wide logger defaults to warn level on stderr so that a library
// consumer sees nothing unless something goes wrong; applications call
// Init (usually from config.Config.Apply) to change that.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//	  output: "stderr"
//
// # Usage
//
//	log := logger.Get("stream")
//	log.Warn("close failed", logger.ErrorFields("close", err))
package logger
