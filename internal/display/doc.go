// Package display formats user-facing terminal output: load progress and
// warnings about files that failed to load or lack optional columns.
//
// Warnings render in yellow with an optional message, file list and
// suggestion:
//
//	w := display.WarnMissingColumns(batch.Warnings())
//	w.Display(os.Stderr)
//
// Every function takes an io.Writer so output can be captured in tests.
package display
