// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for browsing discovery results:
//  1. [LoadingView] : Watch discovery phases stream in real time
//  2. [ResultListView] : Browse the ranked track list
//  3. [DetailView] : Inspect one track with its score and reasons
//  4. [TraceView] : Read the stage-by-stage discovery trace
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the discovery engine, providing non-blocking status reporting during the run.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, t, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
