// Package selection tracks which tracks are marked for a batch export.
package selection

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// Exporter produces the export file for a batch of track ids.
type Exporter interface {
	ExportBatch(ctx context.Context, ids []string) (string, error)
}

// Set is a set of track ids. The zero value is empty and ready to use.
type Set struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func New(ids ...string) *Set {
	s := &Set{}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

// Toggle selects id if it is unselected and unselects it otherwise. Returns the new state.
func (s *Set) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.add(id)
	return true
}

// ToggleAll operates on the visible tracks only: when every visible track is selected they are
// all unselected, otherwise they are all selected. Selections outside visible are kept.
//
// Calling it twice with the same visible tracks and no selected visible track in between
// restores the original selection.
func (s *Set) ToggleAll(visible []models.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(visible) == 0 {
		return
	}

	all := true
	for _, t := range visible {
		if _, ok := s.ids[t.ID]; !ok {
			all = false
			break
		}
	}

	for _, t := range visible {
		if all {
			delete(s.ids, t.ID)
		} else {
			s.add(t.ID)
		}
	}
}

// AllSelected reports whether every visible track is selected.
func (s *Set) AllSelected(visible []models.Track) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(visible) == 0 {
		return false
	}
	for _, t := range visible {
		if _, ok := s.ids[t.ID]; !ok {
			return false
		}
	}
	return true
}

// ClearAll unselects everything.
func (s *Set) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.ids)
}

func (s *Set) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the selected ids in sorted order.
func (s *Set) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.ids))
}

// Export hands the selected ids to exp and returns where the file was written.
func (s *Set) Export(ctx context.Context, exp Exporter) (string, error) {
	ids := s.IDs()
	if len(ids) == 0 {
		return "", shared.ErrNothingSelected
	}
	return exp.ExportBatch(ctx, ids)
}

// add must be called with mu held.
func (s *Set) add(id string) {
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	s.ids[id] = struct{}{}
}
