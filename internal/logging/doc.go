// Package logging provides structured, flush-per-record file logging for
// process-wiki runs, with optional stderr mirroring. Every run writes a
// rolling JSON log file alongside its processing stats so that an
// interrupted run leaves a complete tail.
package logging
