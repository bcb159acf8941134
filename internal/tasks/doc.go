// Package tasks orchestrates long-running operations over saved discovery runs.
//
// The [ExportEngine] exports saved runs to disk in bulk using a worker pool,
// reporting progress through a channel consumed by the CLI layer. Each run is
// written in the requested format (json, csv, markdown, txt) and the batch is
// summarized in a manifest file.
package tasks
