package tasks

import (
	"fmt"

	"github.com/marmottus/tidal-bot/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	ResolveFolder Phase = iota
	ResolvePlaylist
	Reconcile
	Reorder
)

func (p Phase) String() string {
	switch p {
	case ResolveFolder:
		return "resolve_folder"
	case ResolvePlaylist:
		return "resolve_playlist"
	case Reconcile:
		return "reconcile"
	case Reorder:
		return "reorder"
	default:
		return ""
	}
}

func resolveFolderUpdate(folder string) ProgressUpdate {
	message := "Resolving root folder..."
	if folder != "" {
		message = fmt.Sprintf("Resolving folder %s...", folder)
	}
	return ProgressUpdate{
		Phase:   ResolveFolder,
		Step:    1,
		Total:   1,
		Message: message,
	}
}

func resolvePlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolvePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Resolving playlist %s...", name),
	}
}

func reconcileTrackUpdate(step, total int, track models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconcile,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, track.FullName()),
	}
}

func reorderUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reorder,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Reordering playlist %s...", name),
	}
}
