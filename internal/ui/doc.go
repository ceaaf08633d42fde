// Package ui styles terminal output for the CLI with lipgloss.
//
// A single [Palette] holds the title, success, error, warning and help styles; [Title], [OK],
// [Err], [Warn] and [Help] render text with them. When the output is not a terminal lipgloss
// drops the escape codes, so piped output stays plain.
package ui
