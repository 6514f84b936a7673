// Package ui renders engine results and query output for the terminal.
//
// Every Render function takes the structs the repositories and the sync
// engine already produce and returns a styled string; nothing here reads
// the database or talks to a service. Styling goes through a single
// [Palette] so the commands share one look, and lipgloss degrades the
// colors when output is not a terminal.
package ui
