package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LoadRuns Phase = iota
	ExportRun
)

func (p Phase) String() string {
	switch p {
	case LoadRuns:
		return "load_runs"
	case ExportRun:
		return "export_run"
	default:
		return ""
	}
}

func loadingRunsUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadRuns,
		Step:    1,
		Total:   total,
		Message: "Loading saved discovery runs...",
	}
}

func exportingRunUpdate(step, total int, runID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportRun,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, runID),
	}
}

func exportCompletedUpdate(step, total int, runID string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportRun,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, runID, filesCount),
	}
}

func exportFailedUpdate(step, total int, runID string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportRun,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, runID, err),
	}
}
