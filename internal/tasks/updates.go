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
	LoadSubmissions Phase = iota
	CheckRemote
	ResolveTracks
	SweepStale
	RenderSite
	Validate
)

func (p Phase) String() string {
	switch p {
	case LoadSubmissions:
		return "load_submissions"
	case CheckRemote:
		return "check_remote"
	case ResolveTracks:
		return "resolve_tracks"
	case SweepStale:
		return "sweep_stale"
	case RenderSite:
		return "render_site"
	case Validate:
		return "validate"
	default:
		return ""
	}
}

func loadSubmissionsUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadSubmissions,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded %d submission files...", total),
	}
}

func checkRemoteUpdate(step, total int, key string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CheckRemote,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Checking remote playlist (%s)...", key),
	}
}

func resolveTracksUpdate(step, total int, key string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Resolving tracks (%s)...", key),
	}
}

func sweepStaleUpdate(removed int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SweepStale,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Removed %d stale cache entries...", removed),
	}
}

func renderSiteUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RenderSite,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Rendering site for %d playlists...", total),
	}
}

func validateUpdate(step, total int, key string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Validate,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Validating submission (%s)...", key),
	}
}
