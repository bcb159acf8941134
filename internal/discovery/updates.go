package discovery

import "fmt"

// ProgressUpdate represents a progress event during a discovery run.
//
// Used to send real-time updates to the CLI or TUI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Discovery phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Discovery phase enumeration
type Phase int

const (
	PhaseBuildKnownSet Phase = iota
	FetchSeedArtists
	ExpandArtists
	Backfill
	DiversifyPool
	RankResults
	Done
)

func (p Phase) String() string {
	switch p {
	case PhaseBuildKnownSet:
		return "build_known_set"
	case FetchSeedArtists:
		return "fetch_seed_artists"
	case ExpandArtists:
		return "expand_artists"
	case Backfill:
		return "backfill"
	case DiversifyPool:
		return "diversify"
	case RankResults:
		return "rank"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

func knownSetUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: PhaseBuildKnownSet, Step: 1, Total: 1, Message: "Building known-track set..."}
}

func seedArtistsUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: FetchSeedArtists, Step: 1, Total: 1, Message: "Fetching top artists..."}
}

func expandUpdate(seeds int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExpandArtists,
		Step:    1,
		Total:   seeds,
		Message: fmt.Sprintf("Expanding %d seed artists...", seeds),
	}
}

func backfillUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: Backfill, Step: 1, Total: 1, Message: "Backfilling sparse pool from known tracks..."}
}

func diversifyUpdate(poolSize int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DiversifyPool,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Diversifying %d candidates...", poolSize),
	}
}

func rankUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RankResults,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Scoring %d candidates...", count),
	}
}

func doneUpdate(results int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Discovery complete: %d tracks", results),
	}
}
