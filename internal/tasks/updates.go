package tasks

import (
	"fmt"

	"github.com/desertthunder/crate/internal/models"
)

// ProgressUpdate represents a change to one queue item.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase            // Operation phase
	ItemID  string           // Queue item the update belongs to
	Step    int              // Current step number within phase (percent while uploading)
	Total   int              // Total steps in this phase
	Message string           // Human-readable message for display
	Item    *models.FileItem // Item state after the update was applied
}

// Operation phase enumeration
type Phase int

const (
	Queued Phase = iota
	Uploading
	Analyzing
	Completed
	Failed
	Dropped
	ClearedAll
)

func (p Phase) String() string {
	switch p {
	case Queued:
		return "queued"
	case Uploading:
		return "uploading"
	case Analyzing:
		return "analyzing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Dropped:
		return "removed"
	case ClearedAll:
		return "cleared"
	default:
		return ""
	}
}

func queuedUpdate(item models.FileItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Queued,
		ItemID:  item.ID,
		Total:   100,
		Message: fmt.Sprintf("Queued %s", item.Filename()),
		Item:    &item,
	}
}

func uploadingUpdate(item models.FileItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Uploading,
		ItemID:  item.ID,
		Step:    item.Progress,
		Total:   100,
		Message: fmt.Sprintf("Uploading %s (%d%%)", item.Filename(), item.Progress),
		Item:    &item,
	}
}

func analyzingUpdate(item models.FileItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Analyzing,
		ItemID:  item.ID,
		Step:    100,
		Total:   100,
		Message: fmt.Sprintf("Analyzing %s...", item.Filename()),
		Item:    &item,
	}
}

func completedUpdate(item models.FileItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Completed,
		ItemID:  item.ID,
		Step:    100,
		Total:   100,
		Message: fmt.Sprintf("✓ %s", item.Filename()),
		Item:    &item,
	}
}

func failedUpdate(item models.FileItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Failed,
		ItemID:  item.ID,
		Step:    item.Progress,
		Total:   100,
		Message: fmt.Sprintf("✗ %s: %s", item.Filename(), item.ErrorMessage),
		Item:    &item,
	}
}

func removedUpdate(id string) ProgressUpdate {
	return ProgressUpdate{Phase: Dropped, ItemID: id, Message: "Removed " + id}
}

func clearedUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: ClearedAll, Message: "Queue cleared"}
}

// updateFor maps an item's current status to the update describing it.
func updateFor(item models.FileItem) ProgressUpdate {
	switch item.Status {
	case models.ItemUploading:
		return uploadingUpdate(item)
	case models.ItemAnalyzing:
		return analyzingUpdate(item)
	case models.ItemComplete:
		return completedUpdate(item)
	case models.ItemError:
		return failedUpdate(item)
	default:
		return queuedUpdate(item)
	}
}
