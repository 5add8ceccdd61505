package tasks

import (
	"slices"

	"github.com/desertthunder/crate/internal/models"
)

const (
	uploadFailedMessage   = "Upload failed"
	uploadTimeoutMessage  = "Upload timed out"
	analysisFailedMessage = "Analysis failed"
	pollingFailedMessage  = "Polling failed"
)

// Queue is an immutable snapshot of the upload queue in insertion order.
//
// The zero value is an empty queue. Values returned by [Reduce] never share a backing array
// with their input, so a snapshot handed to a reader is never modified afterwards.
type Queue struct {
	items []models.FileItem
}

// Items returns a copy of the queue entries.
func (q Queue) Items() []models.FileItem {
	return slices.Clone(q.items)
}

func (q Queue) Len() int {
	return len(q.items)
}

// Get returns the item with id.
func (q Queue) Get(id string) (models.FileItem, bool) {
	if i := q.index(id); i >= 0 {
		return q.items[i], true
	}
	return models.FileItem{}, false
}

// Contains reports whether an item with the same filename and byte size is already queued.
func (q Queue) Contains(filename string, size int64) bool {
	return slices.ContainsFunc(q.items, func(it models.FileItem) bool {
		return it.Filename() == filename && it.Size() == size
	})
}

// Counts tallies items per status.
func (q Queue) Counts() map[models.ItemStatus]int {
	counts := make(map[models.ItemStatus]int)
	for _, it := range q.items {
		counts[it.Status]++
	}
	return counts
}

// Settled reports whether every item has reached a terminal state.
func (q Queue) Settled() bool {
	return !slices.ContainsFunc(q.items, func(it models.FileItem) bool { return !it.Status.Terminal() })
}

func (q Queue) index(id string) int {
	return slices.IndexFunc(q.items, func(it models.FileItem) bool { return it.ID == id })
}

// Event is a queue mutation. Every event except [Cleared] targets one item by id.
type Event interface {
	event()
}

type (
	// Enqueued adds a new pending item unless its (filename, size) is already queued.
	Enqueued struct{ Item models.FileItem }
	// UploadStarted moves a pending item to uploading.
	UploadStarted struct{ ID string }
	// UploadProgress records byte-level transfer progress.
	UploadProgress struct {
		ID      string
		Percent int
	}
	// UploadSucceeded moves an uploading item to analyzing with the server-assigned track.
	UploadSucceeded struct {
		ID    string
		Track *models.Track
	}
	// UploadFailed moves an uploading item to error.
	UploadFailed struct {
		ID      string
		Message string
	}
	// PollResult applies a polled track to an analyzing item.
	PollResult struct {
		ID    string
		Track *models.Track
	}
	// PollFailed ends an analyzing item whose status could not be fetched.
	PollFailed struct {
		ID      string
		Message string
	}
	// Removed deletes an item in any state.
	Removed struct{ ID string }
	// Cleared empties the queue.
	Cleared struct{}
)

func (Enqueued) event()        {}
func (UploadStarted) event()   {}
func (UploadProgress) event()  {}
func (UploadSucceeded) event() {}
func (UploadFailed) event()    {}
func (PollResult) event()      {}
func (PollFailed) event()      {}
func (Removed) event()         {}
func (Cleared) event()         {}

// Reduce applies e to q and returns the resulting queue.
//
// Reduce is pure. Events that target a missing id, and events that would move an item
// along an edge its status does not allow, return q unchanged, so late or out-of-order
// deliveries are harmless.
func Reduce(q Queue, e Event) Queue {
	switch e := e.(type) {
	case Enqueued:
		item := e.Item
		if item.ID == "" || q.index(item.ID) >= 0 || q.Contains(item.Filename(), item.Size()) {
			return q
		}
		item.Status = models.ItemPending
		item.Progress = 0
		item.ErrorMessage = ""
		return Queue{items: append(slices.Clone(q.items), item)}

	case UploadStarted:
		return q.update(e.ID, func(it *models.FileItem) bool {
			if !it.Status.CanTransition(models.ItemUploading) {
				return false
			}
			it.Status = models.ItemUploading
			it.Progress = 0
			return true
		})

	case UploadProgress:
		return q.update(e.ID, func(it *models.FileItem) bool {
			if it.Status != models.ItemUploading {
				return false
			}
			it.Progress = clampProgress(e.Percent)
			return true
		})

	case UploadSucceeded:
		return q.update(e.ID, func(it *models.FileItem) bool {
			if e.Track == nil || !it.Status.CanTransition(models.ItemAnalyzing) {
				return false
			}
			it.Status = models.ItemAnalyzing
			it.Progress = 100
			it.ServerTrackID = e.Track.ID
			return true
		})

	case UploadFailed:
		return q.update(e.ID, func(it *models.FileItem) bool {
			if it.Status != models.ItemUploading {
				return false
			}
			it.Status = models.ItemError
			it.Progress = 0
			it.ErrorMessage = e.Message
			return true
		})

	case PollResult:
		return q.update(e.ID, func(it *models.FileItem) bool {
			if e.Track == nil || it.Status != models.ItemAnalyzing {
				return false
			}
			switch e.Track.Status {
			case models.TrackComplete:
				track := e.Track.Clone()
				it.Status = models.ItemComplete
				it.TrackData = &track
			case models.TrackFailed:
				it.Status = models.ItemError
				it.ErrorMessage = analysisFailedMessage
			default:
				return false
			}
			it.Progress = 100
			return true
		})

	case PollFailed:
		return q.update(e.ID, func(it *models.FileItem) bool {
			if it.Status != models.ItemAnalyzing {
				return false
			}
			it.Status = models.ItemError
			it.ErrorMessage = e.Message
			return true
		})

	case Removed:
		i := q.index(e.ID)
		if i < 0 {
			return q
		}
		return Queue{items: slices.Delete(slices.Clone(q.items), i, i+1)}

	case Cleared:
		return Queue{}
	}
	return q
}

// update copies q and applies fn to the copy of item id. When fn reports no change q is returned as is.
func (q Queue) update(id string, fn func(*models.FileItem) bool) Queue {
	i := q.index(id)
	if i < 0 {
		return q
	}

	item := q.items[i]
	if !fn(&item) {
		return q
	}

	items := slices.Clone(q.items)
	items[i] = item
	return Queue{items: items}
}

func clampProgress(p int) int {
	return min(max(p, 0), 100)
}
